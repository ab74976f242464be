package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/brandvault/internal/catalog"
	"github.com/starford/brandvault/internal/kv"
	"github.com/starford/brandvault/internal/storage"
)

// Object storage drivers.
const (
	ObjectsDriverFS = "fs"
	ObjectsDriverS3 = "s3"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	KV      KVConfig          `yaml:"kv"`
	Objects ObjectsConfig     `yaml:"objects"`
	Catalog CatalogConfig     `yaml:"catalog"`
	Events  EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.KV.Validate(); err != nil {
		return fmt.Errorf("kv: %w", err)
	}
	if err := c.Objects.Validate(); err != nil {
		return fmt.Errorf("objects: %w", err)
	}
	if err := c.Catalog.Validate(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	return c.Events.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
	// CORSOrigins lists the browser origins allowed to call the API. Empty
	// allows any origin.
	CORSOrigins []string `yaml:"cors_origins"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// KVConfig selects the metadata store.
type KVConfig struct {
	Driver string       `yaml:"driver"`
	Redis  RedisConfig  `yaml:"redis"`
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	URL       string `yaml:"url"`
	KeyPrefix string `yaml:"key_prefix"`
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the store configuration.
func (c *KVConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.In(kv.DriverRedis, kv.DriverSQLite, kv.DriverNone)),
		validation.Field(&c.Redis, validation.When(c.Driver == kv.DriverRedis, validation.By(func(any) error {
			return validation.ValidateStruct(&c.Redis, validation.Field(&c.Redis.URL, validation.Required))
		}))),
		validation.Field(&c.SQLite, validation.When(c.Driver == kv.DriverSQLite, validation.By(func(any) error {
			return validation.ValidateStruct(&c.SQLite, validation.Field(&c.SQLite.Path, validation.Required))
		}))),
	)
}

// Options converts the configuration for kv.Open.
func (c *KVConfig) Options() kv.Options {
	return kv.Options{
		Driver:     c.Driver,
		RedisURL:   c.Redis.URL,
		KeyPrefix:  c.Redis.KeyPrefix,
		SQLitePath: c.SQLite.Path,
	}
}

// ObjectsConfig selects where uploaded files live.
type ObjectsConfig struct {
	Driver string   `yaml:"driver"`
	FS     FSConfig `yaml:"fs"`
	S3     S3Config `yaml:"s3"`
}

// FSConfig stores objects below a local directory.
type FSConfig struct {
	Root       string `yaml:"root"`
	PublicPath string `yaml:"public_path"`
}

// S3Config stores objects in an S3 bucket. Endpoint and ForcePathStyle
// target S3-compatible services such as MinIO.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PublicBaseURL   string `yaml:"public_base_url"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
	DisableSSL      bool   `yaml:"disable_ssl"`
}

// Validate validates the object storage configuration.
func (c *ObjectsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(ObjectsDriverFS, ObjectsDriverS3)),
		validation.Field(&c.FS, validation.When(c.Driver == ObjectsDriverFS, validation.By(func(any) error {
			return validation.ValidateStruct(&c.FS,
				validation.Field(&c.FS.Root, validation.Required),
				validation.Field(&c.FS.PublicPath, validation.Required),
			)
		}))),
		validation.Field(&c.S3, validation.When(c.Driver == ObjectsDriverS3, validation.By(func(any) error {
			return validation.ValidateStruct(&c.S3,
				validation.Field(&c.S3.Bucket, validation.Required),
				validation.Field(&c.S3.Region, validation.Required),
			)
		}))),
	)
}

// S3Options converts the S3 section for storage.NewS3.
func (c *ObjectsConfig) S3Options() storage.S3Options {
	return storage.S3Options{
		Bucket:          c.S3.Bucket,
		Region:          c.S3.Region,
		Endpoint:        c.S3.Endpoint,
		AccessKeyID:     c.S3.AccessKeyID,
		SecretAccessKey: c.S3.SecretAccessKey,
		PublicBaseURL:   c.S3.PublicBaseURL,
		ForcePathStyle:  c.S3.ForcePathStyle,
		DisableSSL:      c.S3.DisableSSL,
	}
}

// CatalogConfig holds catalog behaviour settings.
type CatalogConfig struct {
	// DefaultBrand is assigned to assets saved without a brand.
	DefaultBrand string `yaml:"default_brand"`
}

// Validate validates the catalog configuration.
func (c *CatalogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DefaultBrand, validation.Required),
	)
}

// EventsConfig holds SSE settings.
type EventsConfig struct {
	// Throttle is the minimum interval between catalog.updated events.
	Throttle time.Duration `yaml:"throttle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Throttle, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		KV: KVConfig{
			Driver: kv.DriverSQLite,
			Redis: RedisConfig{
				URL:       "redis://localhost:6379/0",
				KeyPrefix: "",
			},
			SQLite: SQLiteConfig{
				Path: "./brandvault.db",
			},
		},
		Objects: ObjectsConfig{
			Driver: ObjectsDriverFS,
			FS: FSConfig{
				Root:       "./objects",
				PublicPath: "/files",
			},
		},
		Catalog: CatalogConfig{
			DefaultBrand: catalog.DefaultBrand,
		},
		Events: EventsConfig{
			Throttle: 2 * time.Second,
		},
	}
}
