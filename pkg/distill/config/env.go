package config

import (
	"github.com/ilyakaznacheev/cleanenv"
)

// EnvConfig lists the environment variables read by WithEnv
type EnvConfig struct {
	DatabaseURL string `env:"DISTILL_DATABASE_URL" env-default:"memory" env-description:"entity repository: memory or postgresql://..."`
	DBSchema    string `env:"DISTILL_DB_SCHEMA" env-default:"distill" env-description:"postgres schema"`

	StorageURL      string `env:"DISTILL_STORAGE_URL" env-default:"memory://" env-description:"export store: memory://, file:///dir or s3://bucket/prefix"`
	ExportURLPrefix string `env:"DISTILL_EXPORT_URL_PREFIX" env-description:"URL prefix of the file export directory"`

	S3AccessKeyID     string `env:"DISTILL_S3_ACCESS_KEY_ID" env-description:"static S3 access key"`
	S3SecretAccessKey string `env:"DISTILL_S3_SECRET_ACCESS_KEY" env-description:"static S3 secret key"`

	Language    string `env:"DISTILL_LANGUAGE" env-default:"und" env-description:"default extraction language"`
	MaxDepth    int    `env:"DISTILL_MAX_DEPTH" env-default:"0" env-description:"levels of referenced entities distilled inline"`
	FileBaseURL string `env:"DISTILL_FILE_BASE_URL" env-description:"base URL for file and image fields"`

	APIKeys map[string]string `env:"DISTILL_API_KEYS" env-description:"API keys as name:sha256 pairs separated by commas"`
}

// WithEnv applies the DISTILL_* environment variables, see EnvConfig.
func WithEnv() Option {
	return func(c *Config) error {
		var env EnvConfig
		if err := cleanenv.ReadEnv(&env); err != nil {
			return err
		}

		opts := []Option{
			WithDatabase(env.DatabaseURL, env.DBSchema),
			WithStorageURL(env.StorageURL),
			WithExportURLPrefix(env.ExportURLPrefix),
			WithLanguage(env.Language),
			WithMaxDepth(env.MaxDepth),
			WithFileBaseURL(env.FileBaseURL),
		}
		if env.S3AccessKeyID != "" {
			opts = append(opts, WithS3Credentials(env.S3AccessKeyID, env.S3SecretAccessKey))
		}
		for name, sha := range env.APIKeys {
			opts = append(opts, WithAPIKey(name, sha))
		}

		for _, opt := range opts {
			if err := opt(c); err != nil {
				return err
			}
		}
		return nil
	}
}

// EnvUsage describes the environment variables read by WithEnv
func EnvUsage() string {
	text, err := cleanenv.GetDescription(&EnvConfig{}, nil)
	if err != nil {
		return ""
	}
	return text
}
