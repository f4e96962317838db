// Package watcher reloads selection files when they change on disk.
package watcher

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/chazu/molprint/pkg/logging"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 150 * time.Millisecond

// FileWatcher calls back once per settled change of a watched file.
// Callbacks run one at a time, never overlapping each other, so they may
// drive state that is not safe for concurrent use.
//
// Directories are watched rather than the files themselves, so files that
// editors replace by rename keep firing.
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	log       logging.Logger
	debounce  time.Duration
	mu        sync.Mutex
	run       sync.Mutex // held while a callback runs
	callbacks map[string]func(string)
	timers    map[string]*time.Timer
	dirs      map[string]int
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewFileWatcher creates a watcher. A non-positive debounce uses
// DefaultDebounce.
func NewFileWatcher(debounce time.Duration, log logging.Logger) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &FileWatcher{
		watcher:   w,
		log:       log,
		debounce:  debounce,
		callbacks: make(map[string]func(string)),
		timers:    make(map[string]*time.Timer),
		dirs:      make(map[string]int),
		done:      make(chan struct{}),
	}, nil
}

// Watch registers callback for each file. The files need not exist yet,
// but their directories must.
func (fw *FileWatcher) Watch(files []string, callback func(string)) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", file, err)
		}
		if _, ok := fw.callbacks[abs]; !ok {
			dir := filepath.Dir(abs)
			if fw.dirs[dir] == 0 {
				if err := fw.watcher.Add(dir); err != nil {
					return fmt.Errorf("watch %s: %w", dir, err)
				}
			}
			fw.dirs[dir]++
		}
		fw.callbacks[abs] = callback
		fw.log.Debug("watching", logging.Path(abs))
	}
	return nil
}

// Start dispatches events until Close.
func (fw *FileWatcher) Start() {
	go func() {
		for {
			select {
			case ev, ok := <-fw.watcher.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
					fw.changed(filepath.Clean(ev.Name))
				}
			case err, ok := <-fw.watcher.Errors:
				if !ok {
					return
				}
				fw.log.Warn("watcher error", logging.Error(err))
			case <-fw.done:
				return
			}
		}
	}()
}

func (fw *FileWatcher) changed(path string) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	callback, ok := fw.callbacks[path]
	if !ok {
		return
	}
	if t, ok := fw.timers[path]; ok {
		t.Stop()
	}
	fw.timers[path] = time.AfterFunc(fw.debounce, func() {
		fw.dispatch(path, callback)
	})
}

func (fw *FileWatcher) dispatch(path string, callback func(string)) {
	fw.run.Lock()
	defer fw.run.Unlock()
	select {
	case <-fw.done:
		return
	default:
	}
	callback(path)
}

// Unwatch drops a file. Its directory is released once no other file in
// it is watched.
func (fw *FileWatcher) Unwatch(file string) error {
	abs, err := filepath.Abs(file)
	if err != nil {
		return err
	}
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if _, ok := fw.callbacks[abs]; !ok {
		return nil
	}
	delete(fw.callbacks, abs)
	if t, ok := fw.timers[abs]; ok {
		t.Stop()
		delete(fw.timers, abs)
	}
	dir := filepath.Dir(abs)
	if fw.dirs[dir]--; fw.dirs[dir] == 0 {
		delete(fw.dirs, dir)
		return fw.watcher.Remove(dir)
	}
	return nil
}

// Close stops the watcher, drops pending callbacks and waits for a running
// one to return. It must not be called from a callback.
func (fw *FileWatcher) Close() error {
	fw.closeOnce.Do(func() {
		close(fw.done)
		fw.mu.Lock()
		for _, t := range fw.timers {
			t.Stop()
		}
		fw.timers = make(map[string]*time.Timer)
		fw.mu.Unlock()

		fw.run.Lock()
		fw.run.Unlock()
		fw.closeErr = fw.watcher.Close()
	})
	return fw.closeErr
}
