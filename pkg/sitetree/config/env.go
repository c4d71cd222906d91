package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// envConfig mirrors ServerConfig as flat environment variables
type envConfig struct {
	Port         string `env:"PORT" env-default:"8080"`
	Environment  string `env:"ENVIRONMENT" env-default:"development"`
	DatabaseType string `env:"DATABASE_TYPE" env-default:"memory"`
	DatabaseURL  string `env:"DATABASE_URL" env-default:""`
	DBSchema     string `env:"DB_SCHEMA" env-default:"sitetree"`

	DefaultStorageBackend string `env:"DEFAULT_STORAGE_BACKEND" env-default:"memory"`
	StorageBackend        string `env:"STORAGE_BACKEND" env-default:"memory"`

	FSBaseDir   string `env:"FS_BASE_DIR" env-default:"./data/attachments"`
	FSURLPrefix string `env:"FS_URL_PREFIX" env-default:""`

	S3Endpoint        string `env:"AWS_S3_ENDPOINT" env-default:""`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" env-default:""`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" env-default:""`
	S3Bucket          string `env:"AWS_S3_BUCKET" env-default:"sitetree-attachments"`
	S3Region          string `env:"AWS_S3_REGION" env-default:"us-east-1"`
	S3UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"false"`
	S3EnableSSE       bool   `env:"AWS_S3_ENABLE_SSE" env-default:"false"`
	S3CreateBucket    bool   `env:"AWS_S3_CREATE_BUCKET" env-default:"false"`

	JWTSecret          string `env:"JWT_SECRET" env-default:""`
	EnableEventLogging bool   `env:"ENABLE_EVENT_LOGGING" env-default:"true"`
}

// LoadFromEnv builds a ServerConfig from environment variables
func LoadFromEnv() (*ServerConfig, error) {
	var env envConfig
	if err := cleanenv.ReadEnv(&env); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	opts := []Option{
		WithPort(env.Port),
		WithEnvironment(env.Environment),
		WithDatabase(env.DatabaseType, env.DatabaseURL),
		WithDBSchema(env.DBSchema),
		WithJWTSecret(env.JWTSecret),
		WithEventLogging(env.EnableEventLogging),
	}

	switch env.StorageBackend {
	case "fs":
		opts = append(opts, WithStorageBackend("fs", "fs", map[string]interface{}{
			"base_dir":   env.FSBaseDir,
			"url_prefix": env.FSURLPrefix,
		}), WithDefaultStorageBackend("fs"))
	case "s3":
		opts = append(opts, WithStorageBackend("s3", "s3", map[string]interface{}{
			"endpoint":                   env.S3Endpoint,
			"access_key_id":              env.S3AccessKeyID,
			"secret_access_key":          env.S3SecretAccessKey,
			"bucket":                     env.S3Bucket,
			"region":                     env.S3Region,
			"use_path_style":             env.S3UsePathStyle,
			"enable_sse":                 env.S3EnableSSE,
			"create_bucket_if_not_exist": env.S3CreateBucket,
		}), WithDefaultStorageBackend("s3"))
	default:
		// memory backend is the built-in default
	}

	return Load(opts...)
}
