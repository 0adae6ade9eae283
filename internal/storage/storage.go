// Package storage archives original import uploads.
//
// Two backends are provided: [LocalArchiver] writes under a directory on
// disk and [S3Archiver] uploads to an S3 compatible bucket. [New] picks
// one from configuration.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/JonMunkholm/hrm/internal/config"
	"github.com/JonMunkholm/hrm/internal/core"
)

// Provider names accepted by New.
const (
	ProviderNone  = "none"
	ProviderLocal = "local"
	ProviderS3    = "s3"
)

// ErrInvalidKey is returned for empty keys and keys that escape the archive root.
var ErrInvalidKey = errors.New("storage: invalid object key")

// New returns the archiver selected by cfg.Provider.
// The none provider yields a nil archiver, which disables archiving.
func New(ctx context.Context, cfg config.StorageConfig) (core.Archiver, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderNone:
		return nil, nil
	case ProviderLocal:
		a, err := NewLocalArchiver(cfg.LocalDir)
		if err != nil {
			return nil, err
		}
		return a, nil
	case ProviderS3:
		a, err := NewS3Archiver(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("storage: unknown provider %q", cfg.Provider)
	}
}

// cleanKey normalizes key to a slash-separated relative path.
func cleanKey(key string) (string, error) {
	key = strings.ReplaceAll(strings.TrimSpace(key), "\\", "/")
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}

	cleaned := strings.TrimPrefix(path.Clean("/"+key), "/")
	if cleaned == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}
