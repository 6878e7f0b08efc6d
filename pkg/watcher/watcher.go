package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/include-cycles/pkg/finder"
	"github.com/ritzau/include-cycles/pkg/logging"
)

// batchWindow groups raw fsnotify events before they reach the debouncer
const batchWindow = 100 * time.Millisecond

// ChangeType represents the type of file change detected
type ChangeType int

const (
	// ChangeTypeContent is a write to an existing source file
	ChangeTypeContent ChangeType = iota
	// ChangeTypeLayout is a source file or directory appearing, disappearing or moving
	ChangeTypeLayout
)

func (t ChangeType) String() string {
	switch t {
	case ChangeTypeContent:
		return "content"
	case ChangeTypeLayout:
		return "layout"
	}
	return "unknown"
}

// ChangeEvent represents a batch of file system changes. Paths are
// slash-separated and relative to the watched root.
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// FileWatcher watches every non-excluded directory below a root for changes
// to matching source files
type FileWatcher struct {
	watcher *fsnotify.Watcher
	root    string
	matcher *finder.Matcher
	events  chan ChangeEvent

	mu      sync.Mutex
	watched map[string]bool
}

// NewFileWatcher creates a new file system watcher for a source tree
func NewFileWatcher(root string, matcher *finder.Matcher) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher: watcher,
		root:    root,
		matcher: matcher,
		events:  make(chan ChangeEvent, 100),
		watched: make(map[string]bool),
	}

	return fw, nil
}

// Start begins watching for file changes. The events channel is closed
// when ctx is done or Stop is called.
func (fw *FileWatcher) Start(ctx context.Context) error {
	dirs, err := finder.Dirs(fw.root, fw.matcher)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		fw.watchDir(dir)
	}

	logging.New("watcher").Info("started watching source tree", "path", fw.root, "directories", len(dirs))

	// Process events
	go fw.processEvents(ctx)

	return nil
}

func (fw *FileWatcher) watchDir(dir string) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.watched[dir] {
		return
	}
	if err := fw.watcher.Add(dir); err != nil {
		logging.New("watcher").Warn("failed to watch directory", "path", dir, "error", err)
		return
	}
	fw.watched[dir] = true
}

// watchNewDir arms watches for a directory created after Start, and for
// everything below it
func (fw *FileWatcher) watchNewDir(dir string) {
	if fw.matcher.Excluded(fw.rel(dir)) {
		return
	}
	dirs, err := finder.Dirs(dir, fw.matcher)
	if err != nil {
		logging.New("watcher").Debug("new directory vanished", "path", dir, "error", err)
		return
	}
	for _, d := range dirs {
		fw.watchDir(d)
	}
}

func (fw *FileWatcher) forget(path string) bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if !fw.watched[path] {
		return false
	}
	delete(fw.watched, path)
	return true
}

func (fw *FileWatcher) rel(path string) string {
	rel, err := filepath.Rel(fw.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// classify maps one fsnotify event onto a change, or reports false for
// events that cannot affect the include graph
func (fw *FileWatcher) classify(event fsnotify.Event) (ChangeType, string, bool) {
	rel := fw.rel(event.Name)

	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			fw.watchNewDir(event.Name)
			return ChangeTypeLayout, rel, !fw.matcher.Excluded(rel)
		}
		return ChangeTypeLayout, rel, fw.matcher.Match(rel)

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// A watched directory going away drops every file below it
		if fw.forget(event.Name) {
			return ChangeTypeLayout, rel, true
		}
		return ChangeTypeLayout, rel, fw.matcher.Match(rel)

	case event.Has(fsnotify.Write):
		return ChangeTypeContent, rel, fw.matcher.Match(rel)
	}

	// Chmod never changes includes
	return 0, "", false
}

// processEvents processes file system events and batches them by type
func (fw *FileWatcher) processEvents(ctx context.Context) {
	logger := logging.New("watcher")
	defer close(fw.events)
	defer func() { _ = fw.watcher.Close() }()

	// Batch events to avoid sending one event per file
	batches := make(map[ChangeType][]string)

	flushTimer := time.NewTimer(batchWindow)
	flushTimer.Stop()

	flush := func() bool {
		for _, t := range []ChangeType{ChangeTypeLayout, ChangeTypeContent} {
			if len(batches[t]) == 0 {
				continue
			}
			select {
			case fw.events <- ChangeEvent{Type: t, Paths: batches[t], Timestamp: time.Now()}:
			case <-ctx.Done():
				return false
			}
			delete(batches, t)
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			changeType, rel, relevant := fw.classify(event)
			if !relevant {
				continue
			}
			logging.Trace("file change", "path", rel, "op", event.Op.String())
			batches[changeType] = append(batches[changeType], rel)
			flushTimer.Reset(batchWindow)

		case <-flushTimer.C:
			if !flush() {
				return
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Stop stops the file watcher
func (fw *FileWatcher) Stop() error {
	return fw.watcher.Close()
}
