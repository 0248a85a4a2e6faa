package templates

import "os"

const configTemplate = `
environment: development
filesystem_type: local
dispatch: pool

db:
  driver: sqlite
  dsn: "file:./data/studio.db?cache=shared"

gemini:
  api_keys: []
  text_model: gemini-2.5-flash
  image_model: gemini-2.5-flash-image

s3:
  endpoint_url: ""
  region_name: "auto"
  bucket_name: ""
  folder: "studio"
  vanity_url: ""

minio:
  endpoint: "localhost:9000"
  bucket_name: "studio"
  use_ssl: false

redis:
  addr: "localhost:6379"
  queue: "studio:jobs"

admission:
  max_concurrent_jobs: 3
  max_batch_size: 100
  max_variations: 10
  workers: 8

assets:
  public_origin: "http://localhost:8881"
  upload_base_url: "http://localhost:8881/uploads"
  max_dimension: 2048
`

func GetConfigTemplate() string {
	return configTemplate
}

func WriteConfig(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.WriteString(GetConfigTemplate())
	return err
}
