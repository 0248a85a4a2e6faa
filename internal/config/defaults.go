package config

import (
	"errors"

	"github.com/spf13/viper"
)

const DefaultStudioHome = "~/.product-studio"

var (
	ErrStudioHomeExpandFailed = errors.New("failed to expand studio home directory")
	ErrInvalidFilesystem      = errors.New("invalid filesystem type")
	ErrInvalidDispatch        = errors.New("invalid dispatch mode")
	ErrDBNotConfigured        = errors.New("database dsn is not set")
	ErrInvalidAdmission       = errors.New("admission.max_concurrent_jobs must be at least 1")
)

// SetDefaults registers the defaults every deployment starts from.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", 8881)
	v.SetDefault("host", "localhost")
	v.SetDefault("environment", "development")
	v.SetDefault("filesystem_type", FilesystemLocal)
	v.SetDefault("dispatch", DispatchPool)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "file:./data/studio.db?cache=shared")

	v.SetDefault("gemini.text_model", "gemini-2.5-flash")
	v.SetDefault("gemini.image_model", "gemini-2.5-flash-image")
	v.SetDefault("gemini.max_retries", 3)
	v.SetDefault("openai.model", "gpt-4o")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.queue", "studio:jobs")

	v.SetDefault("admission.max_concurrent_jobs", 3)
	v.SetDefault("admission.max_batch_size", 100)
	v.SetDefault("admission.max_variations", 10)
	v.SetDefault("admission.workers", 8)

	v.SetDefault("metering.event_name", "image_generation_overage")
	v.SetDefault("assets.max_dimension", 2048)
}
