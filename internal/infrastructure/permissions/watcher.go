package permissions

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// GrantsWatcher reports edits to the grants file, so a long-running process
// picks up permissions changed by hand or by another rillcast command.
type GrantsWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *zap.SugaredLogger
}

// NewGrantsWatcher watches the directory of path; editors often replace the
// file rather than write it in place.
func NewGrantsWatcher(path string, logger *zap.SugaredLogger) (*GrantsWatcher, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create grants dir: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &GrantsWatcher{
		path:    filepath.Clean(path),
		watcher: w,
		logger:  logger,
	}, nil
}

// Run calls onChange for every change to the grants file until ctx is done
// or the watcher is closed.
func (g *GrantsWatcher) Run(ctx context.Context, onChange func()) error {
	defer g.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-g.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != g.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				g.logger.Debugw("grants file changed", "path", g.path, "op", event.Op.String())
				onChange()
			}
		case err, ok := <-g.watcher.Errors:
			if !ok {
				return nil
			}
			g.logger.Warnw("grants watcher error", "error", err)
		}
	}
}

func (g *GrantsWatcher) Close() error {
	return g.watcher.Close()
}
