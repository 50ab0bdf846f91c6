// Package blob selects the artifact store that exported reports are written to.
package blob

import (
	"context"
	"fmt"

	"idsearch/internal/blob/core"
	"idsearch/internal/infra/blob/fs"
	"idsearch/internal/infra/blob/memory"
	"idsearch/internal/infra/blob/s3"
)

type (
	// Driver identifies a backend.
	Driver = core.Driver
	// PutOptions configures a write.
	PutOptions = core.PutOptions
	// Info describes a stored artifact.
	Info = core.Info
	// Store is implemented by every backend.
	Store = core.Store
	// S3Config configures the S3 backend.
	S3Config = s3.Config
)

// Drivers accepted by Open.
const (
	// DriverFilesystem stores artifacts under a local root with sidecar metadata.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 stores artifacts in an S3 bucket.
	DriverS3 = core.DriverS3
	// DriverMemory keeps artifacts in process, for tests.
	DriverMemory = core.DriverMemory
)

var (
	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = core.ErrNotFound
	// ErrExists is returned when a create-only write hits an existing key.
	ErrExists = core.ErrExists
	// ErrInvalidKey is returned for empty, absolute or escaping keys.
	ErrInvalidKey = core.ErrInvalidKey
)

// Config chooses a backend. An empty driver means the filesystem.
type Config struct {
	Driver Driver   `mapstructure:"driver"`
	FSRoot string   `mapstructure:"fs_root"`
	S3     S3Config `mapstructure:"s3"`
}

// Open constructs the store selected by cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case DriverMemory:
		return memory.New(), nil
	case DriverS3:
		store, err := s3.New(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
