package status

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/kazz187/taskdesk/pkg/cerr"
)

// debounceInterval absorbs the burst of events editors emit for one save.
const debounceInterval = 200 * time.Millisecond

type catalogFile struct {
	Statuses []*Status `yaml:"statuses"`
}

// EnsureDefaults seeds DefaultStatuses when repo holds no status at all.
func EnsureDefaults(ctx context.Context, repo Repository) error {
	existing, err := repo.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	now := time.Now()
	for _, s := range DefaultStatuses() {
		s.CreatedAt = now
		if err := repo.Create(ctx, s); err != nil {
			return err
		}
	}
	slog.Info("seeded default status catalog", "count", len(DefaultStatuses()))
	return nil
}

// ApplyFile upserts every status declared in the YAML file at path.
// Statuses absent from the file are left alone.
func ApplyFile(ctx context.Context, repo Repository, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read catalog file: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return 0, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	applied := 0
	for _, s := range f.Statuses {
		if s.ID == "" {
			continue
		}
		current, err := repo.Get(ctx, s.ID)
		switch {
		case err == nil:
			s.CreatedAt = current.CreatedAt
			err = repo.Update(ctx, s)
		case cerr.IsCode(err, cerr.NotFound):
			s.CreatedAt = time.Now()
			err = repo.Create(ctx, s)
		}
		if err != nil {
			return applied, fmt.Errorf("failed to apply status %q: %w", s.ID, err)
		}
		applied++
	}
	return applied, nil
}

// WatchFile re-applies the catalog file whenever it changes, until ctx is done.
// The parent directory is watched so that atomic renames are seen.
func WatchFile(ctx context.Context, repo Repository, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve catalog path: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				debounce = time.After(debounceInterval)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("status catalog watcher error", "error", err)
		case <-debounce:
			debounce = nil
			n, err := ApplyFile(ctx, repo, abs)
			if err != nil {
				slog.Error("failed to reload status catalog", "path", abs, "error", err)
				continue
			}
			slog.Info("reloaded status catalog", "path", abs, "applied", n)
		}
	}
}
