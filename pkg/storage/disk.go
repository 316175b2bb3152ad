// Package storage abstracts where generated files (invoices) are written.
//
// Two drivers are available:
//   - "local": a directory on the local filesystem (default)
//   - "s3": S3-compatible object storage (AWS S3, MinIO, R2)
//
//	disk, err := storage.Open(ctx, storage.Config{Driver: "local", Root: "storage"})
//	disk.Put(ctx, "invoices/o-1.html", body, "text/html")
//	url := disk.URL("invoices/o-1.html")
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when path does not exist.
var ErrNotFound = errors.New("storage: file not found")

// Disk is a flat key/value file store.
type Disk interface {
	Put(ctx context.Context, path string, content []byte, contentType string) error
	Get(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
	// URL is the public location of path.
	URL(path string) string
}

type Config struct {
	Driver string
	// Local driver.
	Root    string
	BaseURL string
	// S3 driver.
	Bucket   string
	Region   string
	Key      string
	Secret   string
	Endpoint string
	S3URL    string
}

// Open builds the disk named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Disk, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalDisk(cfg.Root, cfg.BaseURL)
	case "s3":
		return NewS3Disk(ctx, cfg)
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q (supported: local, s3)", cfg.Driver)
	}
}
