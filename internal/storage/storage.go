package storage

import (
	"context"
	"errors"
	"fmt"
)

const (
	TypeS3         = "s3"
	TypeFileSystem = "filesystem"

	DefaultStorageClass = "GLACIER_IR"
	DefaultContentType  = "image/tif"
)

var ErrObjectNotFound = errors.New("object not found")

// ObjectStore reads uploaded images and writes reprocessed pages.
type ObjectStore interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	PutObject(ctx context.Context, bucket, key string, data []byte) error
}

type Config struct {
	Type         string `yaml:"type" validate:"omitempty,oneof=s3 filesystem"`
	Root         string `yaml:"root"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	StorageClass string `yaml:"storageClass"`
	ContentType  string `yaml:"contentType"`
}

// NewObjectStore builds the store selected by cfg.Type.
func NewObjectStore(ctx context.Context, cfg Config) (ObjectStore, error) {
	switch cfg.Type {
	case "", TypeS3:
		return NewS3StoreFromConfig(ctx, cfg)
	case TypeFileSystem:
		if cfg.Root == "" {
			return nil, fmt.Errorf("filesystem storage requires a root directory")
		}
		return NewFileSystemStore(cfg.Root), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
