package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cozy-creator/product-studio/internal/templates"
	"github.com/cozy-creator/product-studio/internal/utils/pathutil"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	FilesystemLocal = "local"
	FilesystemS3    = "s3"
	FilesystemMinio = "minio"
)

const (
	DispatchPool  = "pool"
	DispatchRedis = "redis"
)

const studioPrefix = "STUDIO"

type Config struct {
	Port        int    `mapstructure:"port"`
	Host        string `mapstructure:"host"`
	Environment string `mapstructure:"environment"`
	StudioHome  string `mapstructure:"studio_home"`
	AssetsDir   string `mapstructure:"assets_dir"`
	Filesystem  string `mapstructure:"filesystem_type"`
	Dispatch    string `mapstructure:"dispatch"`

	DB        *DBConfig        `mapstructure:"db"`
	S3        *S3Config        `mapstructure:"s3"`
	Minio     *MinioConfig     `mapstructure:"minio"`
	Gemini    *GeminiConfig    `mapstructure:"gemini"`
	OpenAI    *OpenAIConfig    `mapstructure:"openai"`
	Redis     *RedisConfig     `mapstructure:"redis"`
	Admission *AdmissionConfig `mapstructure:"admission"`
	Metering  *MeteringConfig  `mapstructure:"metering"`
	Assets    *AssetsConfig    `mapstructure:"assets"`
}

type DBConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Debug  bool   `mapstructure:"debug"`
}

type S3Config struct {
	Folder      string `mapstructure:"folder"`
	Region      string `mapstructure:"region_name"`
	Bucket      string `mapstructure:"bucket_name"`
	AccessKey   string `mapstructure:"access_key"`
	SecretKey   string `mapstructure:"secret_key"`
	EndpointUrl string `mapstructure:"endpoint_url"`
	VanityUrl   string `mapstructure:"vanity_url"`
}

type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket_name"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	PublicUrl string `mapstructure:"public_url"`
}

type GeminiConfig struct {
	APIKeys    []string `mapstructure:"api_keys"`
	TextModel  string   `mapstructure:"text_model"`
	ImageModel string   `mapstructure:"image_model"`
	MaxRetries int      `mapstructure:"max_retries"`
}

// OpenAIConfig enables the OpenAI text backend for structured calls when an
// api key is present. Image synthesis always goes through Gemini.
type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TLS      bool   `mapstructure:"tls"`
	Queue    string `mapstructure:"queue"`
}

type AdmissionConfig struct {
	MaxConcurrentJobs int `mapstructure:"max_concurrent_jobs"`
	MaxBatchSize      int `mapstructure:"max_batch_size"`
	MaxVariations     int `mapstructure:"max_variations"`
	Workers           int `mapstructure:"workers"`
}

type MeteringConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	APIKey    string `mapstructure:"api_key"`
	EventName string `mapstructure:"event_name"`
}

type AssetsConfig struct {
	PublicOrigin  string `mapstructure:"public_origin"`
	UploadBaseUrl string `mapstructure:"upload_base_url"`
	ServiceToken  string `mapstructure:"service_token"`
	MaxDimension  int    `mapstructure:"max_dimension"`
}

var config *Config

func InitConfig() error {
	studioHome, err := getStudioHome()
	if err != nil {
		return err
	}

	if err := createStudioHomeDirs(studioHome); err != nil {
		return err
	}

	assetsDir := viper.GetString("assets_dir")
	if assetsDir == "" {
		assetsDir = filepath.Join(studioHome, "assets")
	}

	viper.Set("studio_home", studioHome)
	viper.Set("assets_dir", assetsDir)

	envFile := viper.GetString("env_file")
	if envFile == "" {
		envFile = filepath.Join(studioHome, ".env")
	}

	configFile := viper.GetString("config_file")
	if configFile == "" {
		configFile = filepath.Join(studioHome, "config.yaml")
		if _, err := os.Stat(configFile); err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("failed to stat config.yaml file: %w", err)
			}

			if err := templates.WriteConfig(configFile); err != nil {
				return fmt.Errorf("failed to create config.yaml file: %w", err)
			}
		}
	}

	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	}

	SetDefaults(viper.GetViper())

	viper.SetEnvPrefix(studioPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`, `-`, `_`))
	viper.AutomaticEnv()
	viper.SetConfigFile(configFile)

	if err := LoadConfig(false); err != nil {
		if errors.As(err, &viper.ConfigFileNotFoundError{}) {
			fmt.Println("No config file found. Using default config.")
		} else {
			return err
		}
	}

	return nil
}

func LoadConfig(reload bool) error {
	if config != nil && !reload {
		return fmt.Errorf("config already loaded")
	}

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config: %w", err)
	}

	cfg, err := Unmarshal(viper.GetViper())
	if err != nil {
		return err
	}

	config = cfg
	return nil
}

// Unmarshal decodes v into a Config and checks the result.
func Unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Filesystem) {
	case FilesystemLocal, FilesystemS3, FilesystemMinio:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidFilesystem, c.Filesystem)
	}

	switch c.Dispatch {
	case DispatchPool, DispatchRedis:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidDispatch, c.Dispatch)
	}

	if c.DB == nil || c.DB.DSN == "" {
		return ErrDBNotConfigured
	}

	if c.Admission == nil || c.Admission.MaxConcurrentJobs < 1 {
		return ErrInvalidAdmission
	}

	return nil
}

func GetConfig() *Config {
	return config
}

func MustGetConfig() *Config {
	if config == nil {
		panic("config not loaded")
	}

	return config
}

// Returns the studio home directory path.
// It is taken from the `studio_home` flag, then the STUDIO_HOME environment
// variable, and finally DefaultStudioHome.
func getStudioHome() (string, error) {
	studioHome := viper.GetString("studio_home")
	if studioHome == "" {
		studioHome = os.Getenv("STUDIO_HOME")
		if studioHome == "" {
			studioHome = DefaultStudioHome
		}
	}

	studioHome, err := pathutil.ExpandPath(studioHome)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStudioHomeExpandFailed, err)
	}

	return studioHome, nil
}

func createStudioHomeDirs(studioHome string) error {
	if err := os.MkdirAll(filepath.Join(studioHome, "assets"), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create studio home directory: %w", err)
	}

	return nil
}
