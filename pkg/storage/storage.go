// Package storage holds the documents of taskdesk: one YAML file per task,
// status, client and push subscription, the settings singleton, the CLI
// session and raw attachment bytes. Paths are slash separated, such as
// "tasks/<id>.yaml" or "attachments/<task-id>/<file>".
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrInvalidPath is returned for paths that escape the storage root.
	ErrInvalidPath = errors.New("invalid storage path")
)

type Storage interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	// Delete returns ErrNotFound when path does not exist.
	Delete(ctx context.Context, path string) error
	// List returns the documents directly under prefix, or nothing when the
	// prefix is unknown.
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// cleanPath normalizes p to a slash separated path relative to the storage
// root, without leading or trailing slashes.
func cleanPath(p string) (string, error) {
	c := strings.Trim(filepath.ToSlash(filepath.Clean(filepath.FromSlash(p))), "/")
	if c == ".." || strings.HasPrefix(c, "../") {
		return "", fmt.Errorf("%s: %w", p, ErrInvalidPath)
	}
	if c == "." {
		c = ""
	}
	return c, nil
}
