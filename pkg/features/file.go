package features

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/backer/pkg/observability"
)

// FileFlags evaluates flags from a YAML file
type FileFlags struct {
	path  string
	rules atomic.Pointer[ruleSet]
}

// LoadFile reads and parses a flag file
func LoadFile(path string) (*FileFlags, error) {
	f := &FileFlags{path: path}
	if err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// Reload re-reads the file. On error the previous rules stay active.
func (f *FileFlags) Reload() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("failed to read feature flags: %w", err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse feature flags: %w", err)
	}

	f.rules.Store(compile(doc))
	return nil
}

// Enabled implements Flags
func (f *FileFlags) Enabled(ctx context.Context, flag, distinctID string) bool {
	return f.rules.Load().enabled(flag, distinctID)
}

// Watch reloads the file whenever it changes until ctx is done. The parent
// directory is watched so editors that replace the file are picked up.
func (f *FileFlags) Watch(ctx context.Context, logger *observability.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", f.path, err)
	}

	target := filepath.Clean(f.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := f.Reload(); err != nil {
				logger.WithError(err).Warn("Keeping previous feature flags")
				continue
			}
			logger.WithField("path", f.path).Info("Feature flags reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Warn("Feature flag watcher error")
		}
	}
}
