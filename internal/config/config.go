// Package config loads runtime settings from defaults, an optional
// invoicedesk.yaml file and INVOICEDESK_* environment variables, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"invoicedesk/internal/blob"
	"invoicedesk/internal/kv"
	"invoicedesk/internal/logging"
)

// EnvPrefix prefixes every environment variable, e.g. INVOICEDESK_STORAGE_DRIVER.
const EnvPrefix = "INVOICEDESK"

// Config holds all configuration values.
type Config struct {
	Env            string `mapstructure:"ENV"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	HTTPAddr       string `mapstructure:"HTTP_ADDR"`
	StrictWorkflow bool   `mapstructure:"STRICT_WORKFLOW"`

	// Persistent storage.
	StorageDriver string `mapstructure:"STORAGE_DRIVER"`
	SQLitePath    string `mapstructure:"SQLITE_PATH"`
	PostgresDSN   string `mapstructure:"POSTGRES_DSN"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	RedisPrefix   string `mapstructure:"REDIS_PREFIX"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`

	// Document storage.
	BlobDriver        string        `mapstructure:"BLOB_DRIVER"`
	BlobFSRoot        string        `mapstructure:"BLOB_FS_ROOT"`
	S3Bucket          string        `mapstructure:"S3_BUCKET"`
	S3Region          string        `mapstructure:"S3_REGION"`
	S3Endpoint        string        `mapstructure:"S3_ENDPOINT"`
	S3PathStyle       bool          `mapstructure:"S3_PATH_STYLE"`
	S3AccessKeyID     string        `mapstructure:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string        `mapstructure:"S3_SECRET_ACCESS_KEY"`
	DocumentURLExpiry time.Duration `mapstructure:"DOCUMENT_URL_EXPIRY"`
}

var defaults = map[string]any{
	"ENV":                  "development",
	"LOG_LEVEL":            "",
	"HTTP_ADDR":            "127.0.0.1:8080",
	"STRICT_WORKFLOW":      false,
	"STORAGE_DRIVER":       string(kv.DriverSQLite),
	"SQLITE_PATH":          "invoicedesk.db",
	"POSTGRES_DSN":         "",
	"REDIS_ADDR":           "localhost:6379",
	"REDIS_PASSWORD":       "",
	"REDIS_DB":             0,
	"REDIS_PREFIX":         "invoicedesk:",
	"MONGO_URI":            "mongodb://localhost:27017",
	"MONGO_DATABASE":       "invoicedesk",
	"BLOB_DRIVER":          string(blob.DriverFilesystem),
	"BLOB_FS_ROOT":         "./blobdata",
	"S3_BUCKET":            "",
	"S3_REGION":            "us-east-1",
	"S3_ENDPOINT":          "",
	"S3_PATH_STYLE":        false,
	"S3_ACCESS_KEY_ID":     "",
	"S3_SECRET_ACCESS_KEY": "",
	"DOCUMENT_URL_EXPIRY":  "15m",
}

// Load reads configuration. When path is empty an invoicedesk.yaml in the
// working directory or ./config is used if present; an explicit path must
// exist.
func Load(path string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("invoicedesk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// KV returns the storage backend settings.
func (c Config) KV() kv.Config {
	return kv.Config{
		Driver:        kv.Driver(c.StorageDriver),
		SQLitePath:    c.SQLitePath,
		PostgresDSN:   c.PostgresDSN,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
		RedisPrefix:   c.RedisPrefix,
		MongoURI:      c.MongoURI,
		MongoDatabase: c.MongoDatabase,
	}
}

// Blob returns the document store settings.
func (c Config) Blob() blob.Config {
	return blob.Config{
		Driver:            blob.Driver(c.BlobDriver),
		FSRoot:            c.BlobFSRoot,
		S3Bucket:          c.S3Bucket,
		S3Region:          c.S3Region,
		S3Endpoint:        c.S3Endpoint,
		S3PathStyle:       c.S3PathStyle,
		S3AccessKeyID:     c.S3AccessKeyID,
		S3SecretAccessKey: c.S3SecretAccessKey,
	}
}

// Logging returns the logger settings.
func (c Config) Logging() logging.Config {
	return logging.Config{Env: c.Env, Level: c.LogLevel}
}
