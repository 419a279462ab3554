package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/franz/voiceset/internal/util"
)

// Local implements ObjectStore on top of a local directory. Keys map to
// file paths under the root. Used by tests and for offline development
// against a pre-downloaded mirror.
type Local struct {
	root string
}

// NewLocal creates a Local store rooted at dir.
// The directory is created (with parents) if it does not already exist.
func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, err
	}
	return &Local{root: abs}, nil
}

// resolve turns an object key into an absolute filesystem path
func (l *Local) resolve(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(key))
}

// Download copies the object at key into localPath
func (l *Local) Download(_ context.Context, key, localPath string) error {
	src, err := os.Open(l.resolve(key))
	if err != nil {
		return fmt.Errorf("%w: object %s: %v", util.ErrRemoteIO, key, err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}
	dst, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", localPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("%w: copy %s: %v", util.ErrRemoteIO, key, err)
	}
	return nil
}

// List returns all object keys under prefix, sorted
func (l *Local) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.Walk(l.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", util.ErrRemoteIO, prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Copy duplicates src to dst within the store
func (l *Local) Copy(ctx context.Context, src, dst string) error {
	return l.Download(ctx, src, l.resolve(dst))
}

// Delete removes the object at key (idempotent)
func (l *Local) Delete(_ context.Context, key string) error {
	err := os.Remove(l.resolve(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: delete %s: %v", util.ErrRemoteIO, key, err)
	}
	return nil
}
