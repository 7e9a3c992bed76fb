package handler

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Watcher triggers a reload whenever the configuration file changes on disk.
// It watches the containing directory rather than the file itself so that
// editors which replace the file (write to temp, rename over) keep being
// seen, and debounces bursts of events into a single reload.
type Watcher struct {
	path     string
	reload   func() error
	debounce time.Duration

	fs *fsnotify.Watcher
}

func NewWatcher(path string, reload func() error) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "resolving configuration path")
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating file watcher")
	}

	if err := fs.Add(filepath.Dir(absPath)); err != nil {
		_ = fs.Close()
		return nil, errors.Wrap(err, "watching configuration directory")
	}

	return &Watcher{
		path:     absPath,
		reload:   reload,
		debounce: 100 * time.Millisecond,
		fs:       fs,
	}, nil
}

// Run blocks until ctx is done, reloading after each settled change to the
// configuration file.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fs.Close()

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			log.WithFields(log.Fields{"path": event.Name, "op": event.Op.String()}).
				Debug("configuration file changed")

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(w.debounce)
			debounceCh = debounceTimer.C

		case <-debounceCh:
			debounceCh = nil
			w.runReload()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.WithError(err).Error("configuration watcher error")
		}
	}
}

func (w *Watcher) runReload() {
	switch err := w.reload(); {
	case err == nil:
		log.Info("successfully reloaded configuration")
	case errors.Is(err, ErrRestartRequired):
		log.WithError(err).Warn("configuration changed but needs a restart to apply")
	default:
		log.WithError(err).Error("got an error during configuration reload")
	}
}
