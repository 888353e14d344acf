package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"packedit/internal/log"
	"packedit/pkg/types"

	"github.com/fsnotify/fsnotify"
)

// Change is a file event below the watched root
type Change struct {
	// Disk path as reported by fsnotify
	Path string
	// Entry is Path relative to the root, as an archive path
	Entry     types.Path
	Info      os.FileInfo // nil for removals
	Timestamp time.Time
	Op        fsnotify.Op
}

// Removed reports whether the file is gone
func (c Change) Removed() bool {
	return c.Op.Has(fsnotify.Remove) || c.Op.Has(fsnotify.Rename)
}

// Watcher monitors an unpacked archive folder, including its subfolders
type Watcher struct {
	root string

	// Directories being watched
	directories []string

	changes   chan Change
	stopChan  chan struct{}
	fsWatcher *fsnotify.Watcher

	// Lock for running state and the directories list
	mutex   sync.RWMutex
	running bool
	stopped bool
}

// New creates a watcher for the folder at root
func New(root string) (*Watcher, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("error accessing directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		root:      root,
		changes:   make(chan Change, 64),
		stopChan:  make(chan struct{}),
		fsWatcher: fsWatcher,
	}, nil
}

// Root is the watched folder
func (w *Watcher) Root() string {
	return w.root
}

// AddTree watches root and every folder below it. fsnotify is not
// recursive, so each folder is added on its own.
func (w *Watcher) AddTree() error {
	return filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.addDirectory(path)
		}
		return nil
	})
}

func (w *Watcher) addDirectory(dir string) error {
	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("failed to add directory %s to watcher: %w", dir, err)
	}

	w.mutex.Lock()
	found := false
	for _, existingDir := range w.directories {
		if existingDir == dir {
			found = true
			break
		}
	}
	if !found {
		w.directories = append(w.directories, dir)
	}
	w.mutex.Unlock()
	log.LogWithFields(log.F("directory", dir)).Debug("Watching directory")
	return nil
}

// Directories returns the watched folders
func (w *Watcher) Directories() []string {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return append([]string(nil), w.directories...)
}

// Changes delivers file events. It is closed by Stop.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Start begins watching. A stopped watcher cannot be restarted.
func (w *Watcher) Start() error {
	w.mutex.Lock()
	if w.running {
		w.mutex.Unlock()
		return fmt.Errorf("watcher already running")
	}
	if w.stopped {
		w.mutex.Unlock()
		return fmt.Errorf("watcher was stopped")
	}
	w.running = true
	w.stopChan = make(chan struct{})
	stop := w.stopChan
	w.mutex.Unlock()

	go w.loop(stop)

	log.LogWithFields(log.F("root", w.root)).Info("Watcher started")
	return nil
}

func (w *Watcher) loop(stop <-chan struct{}) {
	defer close(w.changes)
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handle(event, stop)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.LogWithFields(log.F("error", err)).Error("fsnotify watcher error")

		case <-stop:
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event, stop <-chan struct{}) {
	change := Change{
		Path:      event.Name,
		Entry:     w.entryPath(event.Name),
		Timestamp: time.Now(),
		Op:        event.Op,
	}
	if change.Entry.IsEmpty() {
		return
	}

	switch {
	case change.Removed():
	case event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			// gone again before we got to it
			if !os.IsNotExist(err) {
				log.LogWithFields(log.F("file", event.Name), log.F("error", err)).Error("Error stating file")
			}
			return
		}
		if info.IsDir() {
			if event.Op.Has(fsnotify.Create) {
				if err := w.addDirectory(event.Name); err != nil {
					log.LogWithFields(log.F("directory", event.Name)).WithError(err).Warn("Cannot watch new directory")
				}
			}
			return
		}
		if !info.Mode().IsRegular() {
			return
		}
		change.Info = info
	default:
		return
	}

	select {
	case w.changes <- change:
	case <-stop:
	}
}

func (w *Watcher) entryPath(name string) types.Path {
	rel, err := filepath.Rel(w.root, name)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}
	return types.ParsePath(filepath.ToSlash(rel))
}

// Stop halts watching and closes the change channel
func (w *Watcher) Stop() {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if !w.running {
		return
	}
	close(w.stopChan)

	if err := w.fsWatcher.Close(); err != nil {
		log.LogWithFields(log.F("error", err)).Error("Error closing fsnotify watcher")
	}
	w.running = false
	w.stopped = true

	log.Info("Watcher stopped")
}
