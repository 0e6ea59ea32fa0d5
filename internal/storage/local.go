package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	simerrors "lumina/fraud-sim/internal/errors"
)

// LocalStorage implements ObjectStorage on a directory of the local
// filesystem. Keys map to paths below the base directory.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates basePath if needed and returns a store rooted there.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, simerrors.NewStorageError(simerrors.CodeUploadFailed, "create storage directory", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Upload copies localPath into the store. The object appears atomically: the
// copy goes to a temporary file that is renamed into place.
func (l *LocalStorage) Upload(ctx context.Context, localPath, objectKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dest := l.fullPath(objectKey)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return uploadFailed(objectKey, err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return uploadFailed(objectKey, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return uploadFailed(objectKey, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return uploadFailed(objectKey, err)
	}
	if err := tmp.Close(); err != nil {
		return uploadFailed(objectKey, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return uploadFailed(objectKey, err)
	}
	return nil
}

// Download copies an object out of the store.
func (l *LocalStorage) Download(ctx context.Context, objectKey, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := os.Open(l.fullPath(objectKey))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrObjectNotFound
	}
	if err != nil {
		return simerrors.NewStorageError(simerrors.CodeObjectNotFound, "open "+objectKey, err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	dst, err := os.Create(localPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// Exists reports whether objectKey is present.
func (l *LocalStorage) Exists(ctx context.Context, objectKey string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(l.fullPath(objectKey))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// Delete removes objectKey; missing objects are ignored.
func (l *LocalStorage) Delete(ctx context.Context, objectKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(l.fullPath(objectKey)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// ListObjects walks the directory under prefix and returns slash-separated
// keys relative to the base directory.
func (l *LocalStorage) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var keys []string
	err := filepath.WalkDir(l.fullPath(prefix), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.basePath, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (l *LocalStorage) fullPath(objectKey string) string {
	return filepath.Join(l.basePath, filepath.FromSlash(objectKey))
}
