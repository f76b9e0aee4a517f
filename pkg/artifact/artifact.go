// 10 Oct 2026

// Package artifact keeps the per group bundles of a run (unaligned
// and aligned) where someone can look at them afterwards. Keys look
// like relative paths, "group_fastas/group_7.fasta".
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/andrew-torda/supermat/pkg/config"
)

// Driver names a backend.
type Driver string

const (
	DriverFS     Driver = "fs"     // local directory, the default
	DriverMemory Driver = "memory" // tests and dry runs
	DriverS3     Driver = "s3"     // S3 or anything that talks like it
)

// ErrNotFound is returned by Get for a key never stored.
var ErrNotFound = errors.New("artifact not found")

// Store is safe for concurrent use. Put replaces whatever was under
// key, so a rerun overwrites the previous run's bundles.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Driver() Driver
}

// Open picks a backend from the artifacts section of the configuration.
func Open(ctx context.Context, cfg config.Artifacts) (Store, error) {
	switch Driver(cfg.Driver) {
	case DriverFS, "":
		return NewFS(cfg.Root)
	case DriverMemory:
		return NewMemory(), nil
	case DriverS3:
		return NewS3(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown artifact driver %q", cfg.Driver)
}

// Key joins a directory and a file name into a key.
func Key(dir, name string) string { return path.Join(dir, name) }

// cleanKey refuses keys that would wander out of the store.
func cleanKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("empty artifact key")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("absolute artifact key %q", key)
	}
	clean := path.Clean(strings.ReplaceAll(key, "\\", "/"))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("artifact key %q leaves the store", key)
	}
	return clean, nil
}
