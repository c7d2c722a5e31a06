package watch

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/df-mc/atomic"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const DefaultDebounce = 100 * time.Millisecond

var ErrAlreadyWatching = errors.New("already watching")

// FileWatcher calls OnChange after the watched file was written, created,
// renamed or removed. Bursts of events within Debounce are coalesced.
type FileWatcher struct {
	Path     string
	OnChange func()
	Debounce time.Duration
	Logger   *zap.Logger

	watcher *atomic.Value[*fsnotify.Watcher]
}

func New(path string, onChange func(), logger *zap.Logger) *FileWatcher {
	return &FileWatcher{
		Path:     path,
		OnChange: onChange,
		Debounce: DefaultDebounce,
		Logger:   logger,
		watcher:  atomic.NewValue[*fsnotify.Watcher](nil),
	}
}

// Close stops a running Watch.
func (w *FileWatcher) Close() error {
	if w.watcher == nil {
		return nil
	}
	fsw := w.watcher.Load()
	if fsw == nil {
		return nil
	}
	return fsw.Close()
}

// Watch blocks until ctx is done or the underlying watcher fails.
func (w *FileWatcher) Watch(ctx context.Context) error {
	if w.OnChange == nil {
		return errors.New("needs OnChange func")
	}
	if w.watcher == nil {
		w.watcher = atomic.NewValue[*fsnotify.Watcher](nil)
	}
	if w.watcher.Load() != nil {
		return ErrAlreadyWatching
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()
	w.watcher.Store(fsw)
	defer w.watcher.Store(nil)

	logger := w.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Editors replace files on save, so the parent directory is watched.
	path, err := filepath.Abs(w.Path)
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		return err
	}

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	tick := time.NewTicker(debounce)
	defer tick.Stop()
	var pending bool

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			if !pending {
				continue
			}
			pending = false
			w.OnChange()
		case e, ok := <-fsw.Events:
			if !ok {
				logger.Debug("closing file watcher",
					zap.String("cause", "watcher event channel closed"),
				)
				return nil
			}

			if filepath.Clean(e.Name) != path {
				continue
			}

			if e.Op&fsnotify.Remove == fsnotify.Remove ||
				e.Op&fsnotify.Write == fsnotify.Write ||
				e.Op&fsnotify.Create == fsnotify.Create ||
				e.Op&fsnotify.Rename == fsnotify.Rename {
				logger.Debug("file changed",
					zap.String("path", e.Name),
					zap.String("op", e.Op.String()),
				)
				pending = true
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Error("error while watching file",
				zap.Error(err),
				zap.String("path", path),
			)
		}
	}
}
