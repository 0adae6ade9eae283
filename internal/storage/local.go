package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/hrm/internal/logging"
)

// LocalArchiver stores uploads as files below a root directory.
type LocalArchiver struct {
	root string
}

// NewLocalArchiver creates root if needed.
func NewLocalArchiver(root string) (*LocalArchiver, error) {
	if root == "" {
		return nil, fmt.Errorf("storage: local root is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create archive root: %w", err)
	}
	return &LocalArchiver{root: root}, nil
}

// Root returns the archive directory.
func (a *LocalArchiver) Root() string { return a.root }

// Archive copies r to root/key and returns the cleaned key. The file is
// written under a temporary name and renamed into place.
func (a *LocalArchiver) Archive(ctx context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dest := filepath.Join(a.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".archive-*")
	if err != nil {
		return "", fmt.Errorf("create archive file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write archive file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("finalize archive file: %w", err)
	}

	logging.FromContext(ctx).Debug("upload archived", "backend", ProviderLocal, "key", clean, "bytes", n)
	return clean, nil
}
