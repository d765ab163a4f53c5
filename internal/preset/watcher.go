package preset

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/litescript/ls-sensitivity/internal/form"
)

const debounce = 100 * time.Millisecond

// Change is a reload of the watched preset. Err is set when the new
// contents could not be read or parsed, or when the watch itself failed.
type Change struct {
	Path   string
	Preset form.Preset
	Err    error
}

// Watcher reloads a preset file whenever it is written.
type Watcher struct {
	Path    string
	Changes <-chan Change

	changes chan Change
	done    chan struct{}
	quit    chan struct{}
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for path. The file's directory is watched
// so editors that replace the file are still seen.
func NewWatcher(path string) (*Watcher, error) {
	if _, err := formatOf(path); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		abs = filepath.Join(dir, filepath.Base(abs))
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ch := make(chan Change, 4)
	return &Watcher{
		Path:    abs,
		Changes: ch,
		changes: ch,
		done:    make(chan struct{}),
		quit:    make(chan struct{}),
		watcher: fw,
	}, nil
}

// Start begins watching.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.Path)); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and the Changes channel.
func (w *Watcher) Stop() {
	close(w.quit)
	w.watcher.Close()
	<-w.done
	close(w.changes)
}

func (w *Watcher) loop() {
	defer close(w.done)

	var pending time.Time
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.Path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				pending = time.Now()
			}

		case <-ticker.C:
			if !pending.IsZero() && time.Since(pending) >= debounce {
				pending = time.Time{}
				w.emit()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.send(Change{Path: w.Path, Err: fmt.Errorf("watching %s: %w", filepath.Dir(w.Path), err)})
		}
	}
}

func (w *Watcher) emit() {
	p, err := Load(w.Path)
	w.send(Change{Path: w.Path, Preset: p, Err: err})
}

func (w *Watcher) send(c Change) {
	select {
	case w.changes <- c:
	case <-w.quit:
	}
}
