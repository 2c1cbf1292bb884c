package config

import (
	"log"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultSettleDelay = 100 * time.Millisecond

// FileWatcher invokes a handler when watched files change. Notifications are
// debounced, so editors and deploy scripts that write a file in several steps
// trigger a single reload. Shared by the config manager and the persona
// directory.
type FileWatcher struct {
	fs      *fsnotify.Watcher
	handler func()
	filter  func(name string) bool
	settle  time.Duration
	prefix  string

	mu    sync.Mutex
	timer *time.Timer

	done chan struct{}
}

// WatcherConfig configures a FileWatcher. Filter may be nil to react to every
// change under the watched paths.
type WatcherConfig struct {
	Handler       func()
	Filter        func(name string) bool
	DebounceDelay time.Duration
	LogPrefix     string
}

// NewFileWatcher starts a watcher; paths are added with Add.
func NewFileWatcher(cfg WatcherConfig) (*FileWatcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	fw := &FileWatcher{
		fs:      fs,
		handler: cfg.Handler,
		filter:  cfg.Filter,
		settle:  cfg.DebounceDelay,
		prefix:  cfg.LogPrefix,
		done:    make(chan struct{}),
	}
	if fw.settle == 0 {
		fw.settle = defaultSettleDelay
	}
	if fw.prefix == "" {
		fw.prefix = "FileWatcher"
	}

	go fw.run()
	return fw, nil
}

// Add watches a file or directory.
func (fw *FileWatcher) Add(path string) error {
	return fw.fs.Add(path)
}

// Stop ends the watch loop and releases the underlying watcher.
func (fw *FileWatcher) Stop() {
	close(fw.done)
	fw.fs.Close()
}

func (fw *FileWatcher) run() {
	for {
		select {
		case <-fw.done:
			return
		case evt, ok := <-fw.fs.Events:
			if !ok {
				return
			}
			if fw.relevant(evt) {
				fw.schedule()
			}
		case err, ok := <-fw.fs.Errors:
			if !ok {
				return
			}
			log.Printf("[%s] Watcher error: %v", fw.prefix, err)
		}
	}
}

func (fw *FileWatcher) relevant(evt fsnotify.Event) bool {
	if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return fw.filter == nil || fw.filter(evt.Name)
}

// schedule arms the debounce timer, pushing it back while changes keep
// arriving.
func (fw *FileWatcher) schedule() {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(fw.settle, func() {
		log.Printf("[%s] Files changed, reloading...", fw.prefix)
		if fw.handler != nil {
			fw.handler()
		}
	})
}
