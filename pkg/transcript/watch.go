package transcript

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grovetools/claudelogs/errors"
	"github.com/sirupsen/logrus"
)

// historyWatcher re-reads a project's chat history whenever one of its
// transcripts is added or changes and then stays unchanged for the
// stability threshold.
type historyWatcher struct {
	svc         *Service
	projectPath string
	dir         string
	onUpdate    func([]Message)
	log         *logrus.Entry

	fsw *fsnotify.Watcher
	// watched is the directory currently registered with fsw: the project
	// directory, or its nearest existing ancestor until it appears.
	watched string

	// readCtx is the caller's context; loopCtx ends with unsubscribe.
	readCtx context.Context
	loopCtx context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	pending map[string]bool // path -> changed again while settling

	reload  chan struct{}
	stopped atomic.Bool
	once    sync.Once

	// deliverMu orders deliveries against unsubscribe; inCallback lets the
	// callback itself unsubscribe without waiting on its own delivery.
	deliverMu  sync.Mutex
	inCallback atomic.Bool
}

// WatchChatHistory calls onUpdate with the full, timestamp-ordered history
// of the project every time a transcript is added or written. It returns a
// function that stops further deliveries. A read already in flight when
// unsubscribing runs to completion but its result is dropped.
func (s *Service) WatchChatHistory(ctx context.Context, projectPath string, onUpdate func([]Message)) (func(), error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeWatchFailed, "creating file watcher")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w := &historyWatcher{
		svc:         s,
		projectPath: projectPath,
		dir:         s.projectDir(projectPath),
		onUpdate:    onUpdate,
		log:         s.log.WithField("project", projectPath),
		fsw:         fsw,
		readCtx:     ctx,
		loopCtx:     loopCtx,
		cancel:      cancel,
		pending:     make(map[string]bool),
		reload:      make(chan struct{}, 1),
	}

	if err := w.watchNearest(); err != nil {
		cancel()
		fsw.Close()
		return nil, errors.Wrap(err, errors.ErrCodeWatchFailed, "watching project directory").
			WithDetail("dir", w.dir)
	}

	go w.eventLoop()
	go w.reloadLoop()

	w.log.WithField("dir", w.watched).Debug("Watching chat history")
	return w.unsubscribe, nil
}

// watchNearest registers the project directory, or the closest ancestor
// that exists when the project directory has not been created yet.
func (w *historyWatcher) watchNearest() error {
	target := w.dir
	for {
		info, err := os.Stat(target)
		if err == nil && info.IsDir() {
			break
		}
		parent := filepath.Dir(target)
		if parent == target {
			return os.ErrNotExist
		}
		target = parent
	}
	if target == w.watched {
		return nil
	}
	if err := w.fsw.Add(target); err != nil {
		return err
	}
	if w.watched != "" {
		_ = w.fsw.Remove(w.watched)
	}
	w.watched = target
	return nil
}

func (w *historyWatcher) unsubscribe() {
	w.once.Do(func() {
		w.stopped.Store(true)
		w.cancel()
		w.fsw.Close()
		if !w.inCallback.Load() {
			// wait out a delivery that passed its check before stopped was set
			w.deliverMu.Lock()
			w.deliverMu.Unlock() //nolint:staticcheck
		}
		w.log.Debug("Stopped watching chat history")
	})
}

func (w *historyWatcher) eventLoop() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("Watcher error")
		case <-w.loopCtx.Done():
			w.unsubscribe()
			return
		}
	}
}

func (w *historyWatcher) handleEvent(event fsnotify.Event) {
	if w.watched != w.dir {
		// Waiting for the project directory: move the watch down the
		// path as directories appear.
		if event.Op&fsnotify.Create == 0 || !isSameOrAncestor(event.Name, w.dir) {
			return
		}
		if err := w.watchNearest(); err != nil {
			w.log.WithError(err).Warn("Cannot follow new directory")
			return
		}
		if w.watched == w.dir {
			w.log.Debug("Project directory appeared")
			w.scanExisting()
		}
		return
	}

	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	if filepath.Dir(event.Name) != w.dir || !strings.HasSuffix(event.Name, ".jsonl") {
		return
	}
	w.svc.stats.Invalidate(event.Name)
	w.settle(event.Name)
}

// isSameOrAncestor reports whether dir is path or one of its parents.
func isSameOrAncestor(dir, path string) bool {
	dir, path = filepath.Clean(dir), filepath.Clean(path)
	return dir == path || strings.HasPrefix(path, strings.TrimSuffix(dir, string(filepath.Separator))+string(filepath.Separator))
}

// scanExisting settles every transcript already present in a directory that
// appeared after the watch started.
func (w *historyWatcher) scanExisting() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".jsonl") {
			w.settle(filepath.Join(w.dir, e.Name()))
		}
	}
}

// settle starts a stability wait for path, or marks the running wait as
// disturbed.
func (w *historyWatcher) settle(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.pending[path]; ok {
		w.pending[path] = true
		return
	}
	w.pending[path] = false
	go w.awaitStable(path)
}

// awaitStable polls path until its size and mtime have not changed for the
// stability threshold, then requests a reload.
func (w *historyWatcher) awaitStable(path string) {
	ticker := time.NewTicker(w.svc.poll)
	defer ticker.Stop()

	var last FileStat
	stableSince := time.Now()
	for {
		select {
		case <-w.loopCtx.Done():
			return
		case <-ticker.C:
		}

		info, err := os.Stat(path)
		if err != nil {
			w.mu.Lock()
			delete(w.pending, path)
			w.mu.Unlock()
			return
		}
		cur := FileStat{Size: info.Size(), ModTime: info.ModTime()}
		if cur != last {
			last = cur
			stableSince = time.Now()
			continue
		}
		if time.Since(stableSince) < w.svc.stability {
			continue
		}

		w.mu.Lock()
		if w.pending[path] {
			w.pending[path] = false
			w.mu.Unlock()
			stableSince = time.Now()
			continue
		}
		delete(w.pending, path)
		w.mu.Unlock()

		w.log.WithField("path", path).Trace("Transcript settled")
		w.requestReload()
		return
	}
}

// requestReload coalesces reload requests while one is queued.
func (w *historyWatcher) requestReload() {
	select {
	case w.reload <- struct{}{}:
	default:
	}
}

func (w *historyWatcher) reloadLoop() {
	for {
		select {
		case <-w.loopCtx.Done():
			return
		case <-w.reload:
		}

		msgs, err := w.svc.ReadChatHistory(w.readCtx, w.projectPath)
		if w.stopped.Load() {
			return
		}
		if err != nil {
			w.log.WithError(err).Warn("Reloading chat history failed")
			continue
		}
		if !w.deliver(msgs) {
			return
		}
	}
}

// deliver hands msgs to onUpdate unless the watcher has been stopped. No
// delivery starts once unsubscribe has returned.
func (w *historyWatcher) deliver(msgs []Message) bool {
	w.deliverMu.Lock()
	defer w.deliverMu.Unlock()
	if w.stopped.Load() {
		return false
	}
	w.inCallback.Store(true)
	defer w.inCallback.Store(false)
	w.onUpdate(msgs)
	return true
}
