// Package storage uploads written datasets to object storage.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"lumina/fraud-sim/internal/config"
	simerrors "lumina/fraud-sim/internal/errors"
)

// ObjectStorage is the minimal object store the simulate command and the
// service publish datasets to. Implementations are the local filesystem and S3.
type ObjectStorage interface {
	// Upload copies the file at localPath to objectKey.
	Upload(ctx context.Context, localPath, objectKey string) error

	// Download copies objectKey to localPath.
	Download(ctx context.Context, objectKey, localPath string) error

	// Exists reports whether objectKey is present.
	Exists(ctx context.Context, objectKey string) (bool, error)

	// Delete removes objectKey. Deleting a missing object is not an error.
	Delete(ctx context.Context, objectKey string) error

	// ListObjects returns every key under prefix.
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}

// ErrObjectNotFound is returned by Download when the key does not exist.
var ErrObjectNotFound = simerrors.New(simerrors.ErrCategoryStorage, simerrors.CodeObjectNotFound, "object not found")

// ObjectKey joins the configured prefix and a file name into an object key.
func ObjectKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// New builds the backend selected by cfg.Type. It returns nil when uploads are
// disabled.
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStorage, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "local":
		local, err := NewLocalStorage(cfg.Path)
		if err != nil {
			return nil, err
		}
		return local, nil
	case "s3":
		s3, err := NewS3Storage(ctx, cfg.Bucket, S3Config{
			Region:       cfg.Region,
			Endpoint:     cfg.Endpoint,
			UsePathStyle: cfg.Endpoint != "",
		})
		if err != nil {
			return nil, err
		}
		return s3, nil
	default:
		return nil, simerrors.NewConfigError(fmt.Sprintf("unknown storage type %q", cfg.Type))
	}
}

func uploadFailed(key string, err error) error {
	return simerrors.NewStorageError(simerrors.CodeUploadFailed, "upload "+key, err)
}
