package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventOp represents the type of file system operation.
type EventOp int

const (
	Create EventOp = iota
	Write
	Remove
	Rename
)

// String returns the string representation of EventOp.
func (op EventOp) String() string {
	switch op {
	case Create:
		return "Create"
	case Write:
		return "Write"
	case Remove:
		return "Remove"
	case Rename:
		return "Rename"
	default:
		return "Unknown"
	}
}

// Event is a debounced change to a single path.
type Event struct {
	Path string
	Op   EventOp
	Time time.Time
}

// Config controls which paths are watched and which changes are reported.
type Config struct {
	// Paths are the root directories, watched recursively.
	Paths []string
	// Exclude holds gitignore-style patterns applied under every root on
	// top of the root's own .gitignore.
	Exclude []string
	// Extensions restricts reported file events to these extensions.
	// Empty means every file is reported.
	Extensions []string
	Logger     *slog.Logger
}

// Watcher watches directory trees for changes and emits debounced events.
type Watcher struct {
	cfg    Config
	rules  *ignoreRules
	exts   map[string]bool
	logger *slog.Logger

	mu     sync.Mutex
	fsw    *fsnotify.Watcher
	closed bool
}

// New compiles the ignore rules of every root. Watching starts with Start.
func New(cfg Config) (*Watcher, error) {
	rules, err := loadIgnoreRules(cfg.Paths, cfg.Exclude)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var exts map[string]bool
	if len(cfg.Extensions) > 0 {
		exts = make(map[string]bool, len(cfg.Extensions))
		for _, ext := range cfg.Extensions {
			exts[strings.ToLower(ext)] = true
		}
	}
	return &Watcher{cfg: cfg, rules: rules, exts: exts, logger: logger}, nil
}

// Start adds every non-ignored directory under the roots and returns the
// event channel. The channel is closed when ctx is cancelled or the
// watcher is closed.
func (w *Watcher) Start(ctx context.Context) (<-chan Event, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()

	for _, root := range w.cfg.Paths {
		if err := w.addRecursive(root); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	out := make(chan Event, 100)
	go w.eventLoop(ctx, fsw, out)
	return out, nil
}

// Close shuts down the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.rules.MatchDir(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// wanted reports whether a change to path should be emitted.
func (w *Watcher) wanted(path string, isDir bool) bool {
	if isDir {
		return !w.rules.MatchDir(path)
	}
	if w.rules.Match(path) {
		return false
	}
	return w.exts == nil || w.exts[strings.ToLower(filepath.Ext(path))]
}

const debounceWindow = 100 * time.Millisecond

// debouncer holds back events per path until the path has been quiet for
// debounceWindow; the latest event wins.
type debouncer struct {
	mu      sync.Mutex
	pending map[string]*pendingEvent
	emit    func(Event)
}

type pendingEvent struct {
	event Event
	timer *time.Timer
}

func newDebouncer(emit func(Event)) *debouncer {
	return &debouncer{pending: make(map[string]*pendingEvent), emit: emit}
}

func (d *debouncer) push(evt Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pending[evt.Path]; ok {
		p.timer.Stop()
		p.event = evt
		p.timer = time.AfterFunc(debounceWindow, func() { d.fire(evt.Path) })
		return
	}
	p := &pendingEvent{event: evt}
	p.timer = time.AfterFunc(debounceWindow, func() { d.fire(evt.Path) })
	d.pending[evt.Path] = p
}

func (d *debouncer) fire(path string) {
	d.mu.Lock()
	p := d.pending[path]
	delete(d.pending, path)
	d.mu.Unlock()
	if p != nil {
		d.emit(p.event)
	}
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for path, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, path)
	}
}

func (w *Watcher) eventLoop(ctx context.Context, fsw *fsnotify.Watcher, out chan<- Event) {
	// Debounce timers fire on their own goroutines; the stopped flag keeps
	// them from sending once out is closed.
	var (
		sendMu  sync.RWMutex
		stopped bool
	)
	done := make(chan struct{})
	emit := func(evt Event) {
		sendMu.RLock()
		defer sendMu.RUnlock()
		if stopped {
			return
		}
		select {
		case out <- evt:
		case <-done:
		}
	}
	deb := newDebouncer(emit)
	defer func() {
		deb.stop()
		close(done)
		sendMu.Lock()
		stopped = true
		close(out)
		sendMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case fsEvent, ok := <-fsw.Events:
			if !ok {
				return
			}
			op, valid := convertOp(fsEvent.Op)
			if !valid {
				continue
			}

			isDir := false
			if op == Create {
				if info, err := os.Stat(fsEvent.Name); err == nil && info.IsDir() {
					isDir = true
					if !w.rules.MatchDir(fsEvent.Name) {
						if err := w.addRecursive(fsEvent.Name); err != nil {
							w.logger.Warn("watching new directory failed",
								slog.String("dir", fsEvent.Name), slog.String("error", err.Error()))
						}
					}
				}
			}
			if !w.wanted(fsEvent.Name, isDir) {
				continue
			}
			deb.push(Event{Path: fsEvent.Name, Op: op, Time: time.Now()})

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", slog.String("error", err.Error()))
		}
	}
}

func convertOp(op fsnotify.Op) (EventOp, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return Create, true
	case op.Has(fsnotify.Write):
		return Write, true
	case op.Has(fsnotify.Remove):
		return Remove, true
	case op.Has(fsnotify.Rename):
		return Rename, true
	default:
		return 0, false
	}
}
