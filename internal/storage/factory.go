package storage

import (
	"fmt"

	"github.com/andresuchdata/popsync/internal/config"
)

// New returns the ObjectStorage selected by cfg.Driver.
func New(cfg config.StorageConfig) (ObjectStorage, error) {
	switch cfg.Driver {
	case "", "s3":
		return NewS3Client(S3Config{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			UseSSL:    cfg.UseSSL,
		})
	case "memory":
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
