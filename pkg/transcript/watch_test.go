package transcript

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grovetools/claudelogs/logging"
	"github.com/grovetools/claudelogs/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type updates struct {
	mu    sync.Mutex
	calls [][]Message
}

func (u *updates) record(msgs []Message) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, msgs)
}

func (u *updates) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.calls)
}

func (u *updates) last() []Message {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.calls) == 0 {
		return nil
	}
	return u.calls[len(u.calls)-1]
}

func TestWatchChatHistory(t *testing.T) {
	home := testutil.NewClaudeHome(t)
	path := home.WriteSession(project, "s1", testutil.UserLine("s1", 100, "hello"))
	svc := newTestService(t, home)

	var got updates
	unsubscribe, err := svc.WatchChatHistory(context.Background(), project, got.record)
	require.NoError(t, err)
	defer unsubscribe()

	testutil.AppendLines(t, path, testutil.AssistantLine("s1", 200, "hi", nil))
	require.Eventually(t, func() bool {
		return len(got.last()) == 2
	}, 5*time.Second, 20*time.Millisecond)

	home.WriteSession(project, "s2", testutil.UserLine("s2", 50, "earlier"))
	require.Eventually(t, func() bool {
		return len(got.last()) == 3
	}, 5*time.Second, 20*time.Millisecond)

	msgs := got.last()
	assert.Equal(t, "s2", msgs[0].SessionID)
	assert.Equal(t, "s1", msgs[2].SessionID)
}

func TestWatchChatHistoryWaitsForStability(t *testing.T) {
	home := testutil.NewClaudeHome(t)
	path := home.WriteSession(project, "s1", testutil.UserLine("s1", 1, "x"))
	svc := newTestService(t, home, func(o *Options) {
		o.StabilityThreshold = 300 * time.Millisecond
	})

	var got updates
	unsubscribe, err := svc.WatchChatHistory(context.Background(), project, got.record)
	require.NoError(t, err)
	defer unsubscribe()

	// a burst of writes settles into a single reload
	for i := 2; i <= 5; i++ {
		testutil.AppendLines(t, path, testutil.UserLine("s1", int64(i), "x"))
		time.Sleep(30 * time.Millisecond)
	}
	assert.Equal(t, 0, got.count())

	require.Eventually(t, func() bool { return got.count() >= 1 }, 5*time.Second, 20*time.Millisecond)
	assert.Len(t, got.last(), 5)
}

func TestWatchChatHistoryMissingDirectory(t *testing.T) {
	home := testutil.NewClaudeHome(t)
	svc := newTestService(t, home)

	var got updates
	unsubscribe, err := svc.WatchChatHistory(context.Background(), project, got.record)
	require.NoError(t, err)
	defer unsubscribe()

	home.WriteSession(project, "s1", testutil.UserLine("s1", 1, "x"))
	require.Eventually(t, func() bool { return len(got.last()) == 1 }, 5*time.Second, 20*time.Millisecond)
}

func TestWatchChatHistoryUnsubscribe(t *testing.T) {
	home := testutil.NewClaudeHome(t)
	path := home.WriteSession(project, "s1", testutil.UserLine("s1", 1, "x"))
	svc := newTestService(t, home)

	var got updates
	unsubscribe, err := svc.WatchChatHistory(context.Background(), project, got.record)
	require.NoError(t, err)

	unsubscribe()
	unsubscribe()

	testutil.AppendLines(t, path, testutil.UserLine("s1", 2, "x"))
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 0, got.count())
}

func TestWatchChatHistoryContextCancel(t *testing.T) {
	home := testutil.NewClaudeHome(t)
	path := home.WriteSession(project, "s1", testutil.UserLine("s1", 1, "x"))
	svc := newTestService(t, home)

	ctx, cancel := context.WithCancel(context.Background())
	var got updates
	_, err := svc.WatchChatHistory(ctx, project, got.record)
	require.NoError(t, err)

	cancel()
	time.Sleep(50 * time.Millisecond)
	testutil.AppendLines(t, path, testutil.UserLine("s1", 2, "x"))
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 0, got.count())
}

func newBareWatcher(t *testing.T, onUpdate func([]Message)) *historyWatcher {
	t.Helper()
	fsw, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	return &historyWatcher{
		onUpdate: onUpdate,
		log:      logging.Discard(),
		fsw:      fsw,
		readCtx:  ctx,
		loopCtx:  ctx,
		cancel:   cancel,
	}
}

func TestWatcherDeliverAfterUnsubscribe(t *testing.T) {
	var got updates
	w := newBareWatcher(t, got.record)

	assert.True(t, w.deliver(nil))
	w.unsubscribe()
	assert.False(t, w.deliver(nil))
	assert.Equal(t, 1, got.count())
}

func TestWatcherUnsubscribeDuringDelivery(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var got updates
	w := newBareWatcher(t, func(msgs []Message) {
		close(entered)
		<-release
		got.record(msgs)
	})

	go w.deliver(nil)
	<-entered

	// a delivery already running does not hold up unsubscribe
	stopped := make(chan struct{})
	go func() {
		w.unsubscribe()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("unsubscribe blocked on a running callback")
	}
	close(release)

	require.Eventually(t, func() bool { return got.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, w.deliver(nil))
	assert.Equal(t, 1, got.count())
}

func TestWatcherUnsubscribeFromCallback(t *testing.T) {
	var w *historyWatcher
	calls := 0
	w = newBareWatcher(t, func([]Message) {
		calls++
		w.unsubscribe()
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.deliver(nil)
		w.deliver(nil)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("unsubscribe inside the callback blocked")
	}
	assert.Equal(t, 1, calls)
}

func TestIsSameOrAncestor(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "claude", "projects")
	target := filepath.Join(root, "-home-abc")

	assert.True(t, isSameOrAncestor(target, target))
	assert.True(t, isSameOrAncestor(root, target))
	assert.True(t, isSameOrAncestor(string(filepath.Separator), target))
	assert.False(t, isSameOrAncestor(filepath.Join(root, "-home-ab"), target))
	assert.False(t, isSameOrAncestor(filepath.Join(target, "sub"), target))
}

func TestWatchChatHistoryIgnoresPrefixSibling(t *testing.T) {
	home := testutil.NewClaudeHome(t)
	svc := newTestService(t, home)

	var got updates
	unsubscribe, err := svc.WatchChatHistory(context.Background(), "/home/ab", got.record)
	require.NoError(t, err)
	defer unsubscribe()

	// "-home-a" shares a name prefix with "-home-ab" but is not on its path
	home.WriteSession("/home/a", "other", testutil.UserLine("other", 1, "x"))
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 0, got.count())

	home.WriteSession("/home/ab", "s1", testutil.UserLine("s1", 1, "x"))
	require.Eventually(t, func() bool { return len(got.last()) == 1 }, 5*time.Second, 20*time.Millisecond)
}
