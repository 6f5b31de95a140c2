// Package signals lets another process cancel in-flight runs by dropping
// files into a shared directory. A file named <run-id>.cancel cancels one
// run; all.cancel cancels every active run. Signal files are consumed.
package signals

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

const (
	cancelSuffix = ".cancel"
	allName      = "all" + cancelSuffix
)

// Canceller is the part of the orchestrator the watcher drives.
type Canceller interface {
	Cancel(runID string) bool
	CancelAll() int
}

// Watcher consumes cancel signal files as they appear.
type Watcher struct {
	dir    string
	target Canceller

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// NewWatcher creates the signal directory if needed, handles any signals
// already present and starts watching for new ones.
func NewWatcher(dir string, target Canceller) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create signals directory: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	w := &Watcher{
		dir:     dir,
		target:  target,
		watcher: fw,
		done:    make(chan struct{}),
	}

	// Signals written while nobody was watching.
	entries, err := os.ReadDir(dir)
	if err == nil {
		for _, e := range entries {
			if !e.IsDir() {
				w.handle(filepath.Join(dir, e.Name()))
			}
		}
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 || event.Op&fsnotify.Write != 0 {
				w.handle(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[signals] watcher error: %v", err)
		}
	}
}

func (w *Watcher) handle(path string) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, cancelSuffix) {
		return
	}

	if err := os.Remove(path); err != nil {
		// Already consumed by an earlier event for the same file.
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("[signals] remove %s: %v", base, err)
		}
		return
	}

	if base == allName {
		n := w.target.CancelAll()
		log.Printf("[signals] cancel all: %d run(s) cancelled", n)
		return
	}

	runID := strings.TrimSuffix(base, cancelSuffix)
	if w.target.Cancel(runID) {
		log.Printf("[signals] cancelled run %s", runID)
	} else {
		log.Printf("[signals] no active run %s", runID)
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

// WriteCancel drops a signal that cancels runID. An empty runID cancels
// every active run.
func WriteCancel(dir, runID string) (string, error) {
	if strings.ContainsAny(runID, `/\`) || runID == "." || runID == ".." {
		return "", fmt.Errorf("invalid run id %q", runID)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create signals directory: %w", err)
	}

	name := allName
	if runID != "" {
		name = runID + cancelSuffix
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, nil, 0644); err != nil {
		return "", fmt.Errorf("write signal: %w", err)
	}
	return path, nil
}
