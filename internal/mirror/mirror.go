package mirror

import (
	"context"
	"errors"
	"fmt"
)

// ErrConflict is returned when a write used a stale sha.
var ErrConflict = errors.New("mirror file changed concurrently")

// Error is a failed mirror operation.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("mirror %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FileInfo describes an existing mirrored file.
type FileInfo struct {
	Path string
	// SHA is the optimistic concurrency token required to update the file.
	SHA string
}

// FileStore is a path addressed file hosting API.
type FileStore interface {
	// Name identifies the store in logs and task records.
	Name() string
	// FileExists returns nil without error when path does not exist.
	FileExists(ctx context.Context, path string) (*FileInfo, error)
	CreateFile(ctx context.Context, path string, content []byte, message string) error
	UpdateFile(ctx context.Context, path string, content []byte, sha, message string) error
	ListFiles(ctx context.Context, ref string) ([]string, error)
}

// Upsert creates path or updates it with the sha of a fresh existence check.
func Upsert(ctx context.Context, fs FileStore, path string, content []byte, message string) error {
	info, err := fs.FileExists(ctx, path)
	if err != nil {
		return err
	}
	if info == nil {
		return fs.CreateFile(ctx, path, content, message)
	}
	return fs.UpdateFile(ctx, path, content, info.SHA, message)
}
