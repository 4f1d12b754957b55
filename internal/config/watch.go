package config

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher hot-reloads a Config whenever its backing file changes on disk:
// one fsnotify.Watcher, one goroutine translating raw events into reloads,
// and buffered channels so a slow consumer can't stall the filesystem watch.
type Watcher struct {
	w       *fsnotify.Watcher
	path    string
	log     *slog.Logger
	updateC chan Config
	errC    chan error
}

// NewWatcher starts watching path, pushing a freshly-loaded Config to
// Updates() every time the file is written, created or renamed into place.
func NewWatcher(path string, log *slog.Logger) (*Watcher, error) {
	if log == nil {
		log = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, err
	}
	cw := &Watcher{
		w:       w,
		path:    path,
		log:     log,
		updateC: make(chan Config, 8),
		errC:    make(chan error, 1),
	}
	go cw.loop()
	return cw, nil
}

func (cw *Watcher) loop() {
	for {
		select {
		case ev, ok := <-cw.w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			cfg, err := Load(cw.path)
			if err != nil {
				cw.log.Debug("config reload failed", "path", cw.path, "error", err)
				continue
			}
			select {
			case cw.updateC <- cfg:
			default:
				cw.log.Debug("config update dropped, channel full", "path", cw.path)
			}
		case err, ok := <-cw.w.Errors:
			if !ok {
				return
			}
			cw.errC <- err
		}
	}
}

// Updates returns the channel of successfully reloaded configs.
func (cw *Watcher) Updates() <-chan Config { return cw.updateC }

// Errors returns the channel of filesystem watch errors.
func (cw *Watcher) Errors() <-chan error { return cw.errC }

// Close stops the watch.
func (cw *Watcher) Close() error { return cw.w.Close() }
