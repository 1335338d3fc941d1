package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/content-distill/pkg/distill"
	"github.com/tendant/content-distill/pkg/distill/entity"
	"github.com/tendant/content-distill/pkg/distill/export"
	fsexport "github.com/tendant/content-distill/pkg/distill/export/fs"
	memoryexport "github.com/tendant/content-distill/pkg/distill/export/memory"
	s3export "github.com/tendant/content-distill/pkg/distill/export/s3"
	"github.com/tendant/content-distill/pkg/distill/processors"
	"github.com/tendant/content-distill/pkg/distill/repo/memory"
	repopg "github.com/tendant/content-distill/pkg/distill/repo/postgres"
)

// Option applies configuration to a Config instance.
type Option func(*Config) error

// Config describes how the distill server and CLI are assembled
type Config struct {
	// Entity repository
	DatabaseType string // "memory", "postgres"
	DatabaseURL  string
	DBSchema     string // Postgres schema to use (default: distill)

	// Export storage
	Storage StorageConfig

	// Extraction
	Language    string
	MaxDepth    int
	FileBaseURL string

	// API key name -> SHA256 of the key
	APIKeys map[string]string
}

// StorageConfig represents configuration for the export store
type StorageConfig struct {
	Type      string // "memory", "fs", "s3"
	BaseDir   string
	URLPrefix string
	S3        s3export.Config
}

// Load constructs a Config by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*Config, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaults() Config {
	return Config{
		DatabaseType: "memory",
		DBSchema:     "distill",
		Storage:      StorageConfig{Type: "memory"},
		Language:     distill.LangcodeNotSpecified,
		APIKeys:      map[string]string{},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.DatabaseType {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("database_url is required when using postgres")
		}
	default:
		return errors.New("database_type must be 'memory' or 'postgres'")
	}

	switch c.Storage.Type {
	case "memory":
	case "fs":
		if c.Storage.BaseDir == "" {
			return errors.New("base_dir is required for fs storage")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return errors.New("bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}

	if c.MaxDepth < 0 {
		return errors.New("max_depth must not be negative")
	}
	return nil
}

// WithDatabase selects the entity repository. Empty or "memory" selects the
// in-memory repository; postgres:// and postgresql:// URLs select Postgres.
func WithDatabase(databaseURL, schema string) Option {
	return func(c *Config) error {
		if schema != "" {
			c.DBSchema = schema
		}
		switch {
		case databaseURL == "" || databaseURL == "memory":
			c.DatabaseType = "memory"
			c.DatabaseURL = ""
		case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
			c.DatabaseType = "postgres"
			c.DatabaseURL = databaseURL
		default:
			return fmt.Errorf("unsupported database url format: %s (use 'memory' or 'postgresql://...')", databaseURL)
		}
		return nil
	}
}

// WithStorageURL selects the export store:
//
//	memory://
//	file:///path/to/exports
//	s3://bucket/prefix?region=us-east-1&endpoint=http://localhost:9000&path_style=true&create_bucket=true
func WithStorageURL(storageURL string) Option {
	return func(c *Config) error {
		if storageURL == "" || storageURL == "memory" || storageURL == "memory://" {
			c.Storage.Type = "memory"
			return nil
		}

		u, err := url.Parse(storageURL)
		if err != nil {
			return fmt.Errorf("invalid storage url: %w", err)
		}

		switch u.Scheme {
		case "file":
			if u.Path == "" {
				return errors.New("filesystem path cannot be empty in storage url")
			}
			c.Storage.Type = "fs"
			c.Storage.BaseDir = u.Path
		case "s3":
			if u.Host == "" {
				return errors.New("bucket cannot be empty in storage url")
			}
			q := u.Query()
			c.Storage.Type = "s3"
			c.Storage.S3.Bucket = u.Host
			c.Storage.S3.Prefix = prefixFromPath(u.Path)
			if v := q.Get("region"); v != "" {
				c.Storage.S3.Region = v
			}
			if v := q.Get("endpoint"); v != "" {
				c.Storage.S3.Endpoint = v
			}
			if v := q.Get("path_style"); v != "" {
				c.Storage.S3.UsePathStyle, _ = strconv.ParseBool(v)
			}
			if v := q.Get("create_bucket"); v != "" {
				c.Storage.S3.CreateBucketIfNotExist, _ = strconv.ParseBool(v)
			}
		default:
			return fmt.Errorf("unsupported storage url format: %s (use 'memory://', 'file://...', or 's3://...')", storageURL)
		}
		return nil
	}
}

func prefixFromPath(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return ""
	}
	return path + "/"
}

// WithExportURLPrefix sets the URL prefix the fs export directory is served under
func WithExportURLPrefix(prefix string) Option {
	return func(c *Config) error {
		c.Storage.URLPrefix = prefix
		return nil
	}
}

// WithS3Credentials sets static S3 credentials
func WithS3Credentials(accessKeyID, secretAccessKey string) Option {
	return func(c *Config) error {
		c.Storage.S3.AccessKeyID = accessKeyID
		c.Storage.S3.SecretAccessKey = secretAccessKey
		return nil
	}
}

// WithLanguage sets the default extraction language
func WithLanguage(langcode string) Option {
	return func(c *Config) error {
		if langcode != "" {
			c.Language = langcode
		}
		return nil
	}
}

// WithMaxDepth sets how many levels of referenced entities are distilled inline
func WithMaxDepth(depth int) Option {
	return func(c *Config) error {
		c.MaxDepth = depth
		return nil
	}
}

// WithFileBaseURL sets the base URL that file and image uris resolve against
func WithFileBaseURL(baseURL string) Option {
	return func(c *Config) error {
		c.FileBaseURL = baseURL
		return nil
	}
}

// WithAPIKey registers the SHA256 of an API key under name
func WithAPIKey(name, sha256 string) Option {
	return func(c *Config) error {
		if name == "" || sha256 == "" {
			return errors.New("api key name and hash are required")
		}
		if c.APIKeys == nil {
			c.APIKeys = map[string]string{}
		}
		c.APIKeys[name] = sha256
		return nil
	}
}

// BuildRepository creates the entity repository. The returned close function
// releases the database pool, if any.
func (c *Config) BuildRepository(ctx context.Context) (entity.Repository, func(), error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), func() {}, nil
	case "postgres":
		cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse database url: %w", err)
		}
		schema := c.DBSchema
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			if schema == "" {
				return nil
			}
			_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
			return err
		}
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return repopg.NewWithPool(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// BuildStore creates the export store
func (c *Config) BuildStore(ctx context.Context) (export.Store, error) {
	switch c.Storage.Type {
	case "memory":
		return memoryexport.New(), nil
	case "fs":
		return fsexport.New(fsexport.Config{BaseDir: c.Storage.BaseDir, URLPrefix: c.Storage.URLPrefix})
	case "s3":
		return s3export.New(ctx, c.Storage.S3)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
}

// BuildProcessor creates the standard handler registry
func (c *Config) BuildProcessor() *distill.Registry {
	return processors.NewRegistry(
		processors.WithMaxDepth(c.MaxDepth),
		processors.WithURLResolver(processors.BaseURLResolver{BaseURL: c.FileBaseURL}),
	)
}
