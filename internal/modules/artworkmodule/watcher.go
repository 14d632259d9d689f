package artworkmodule

import (
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/mantonx/harmonia/internal/logger"
)

// Watcher invalidates the resolution cache when the artwork tree changes
// outside the API, e.g. an admin deleting files over SSH. Without it a
// removed file would keep being served from cache until the TTL ran out.
type Watcher struct {
	watcher *fsnotify.Watcher
	cache   *ResolutionCache
	done    chan struct{}
}

// NewWatcher creates a watcher over the artwork root
func NewWatcher(root string, cache *ResolutionCache) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher: fsWatcher,
		cache:   cache,
		done:    make(chan struct{}),
	}

	// Watch the whole tree; fsnotify is not recursive on its own.
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fsWatcher.Add(path)
		}
		return nil
	})
	if err != nil {
		fsWatcher.Close()
		return nil, err
	}

	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// New subdirectories need their own watch
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.watcher.Add(event.Name); err != nil {
						logger.Warn("Failed to watch new artwork directory %s: %v", event.Name, err)
					}
				}
			}
			if event.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename|fsnotify.Create) != 0 {
				logger.Debug("Artwork tree changed (%s), invalidating resolution cache", event.Name)
				w.cache.InvalidateAll()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Artwork watcher error: %v", err)
		}
	}
}

// Close stops the watcher
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
