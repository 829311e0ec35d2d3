// Package blob selects the object store used for invoice documents.
package blob

import (
	"context"
	"fmt"

	"invoicedesk/internal/blob/core"
	"invoicedesk/internal/infra/blob/fs"
	"invoicedesk/internal/infra/blob/memory"
	"invoicedesk/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend.
	Driver = core.Driver
	// Store is the backend contract returned by Open.
	Store = core.Store
	// Info describes a stored object.
	Info = core.Info
	// PutOptions carries object attributes.
	PutOptions = core.PutOptions
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrUnsupported = core.ErrUnsupported
	ErrNotFound    = core.ErrNotFound
	ErrExists      = core.ErrExists
)

// Config holds the settings of every driver; only the selected driver's
// fields are read.
type Config struct {
	Driver            Driver
	FSRoot            string
	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3PathStyle       bool
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// Open constructs the backend named by cfg.Driver (fs when empty).
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case DriverS3:
		return s3.New(ctx, s3.Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			PathStyle:       cfg.S3PathStyle,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", driver)
	}
}

// NewMemory returns an in-process store.
func NewMemory() Store { return memory.New() }
