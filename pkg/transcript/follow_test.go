package transcript

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/grovetools/claudelogs/errors"
	"github.com/grovetools/claudelogs/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollow(t *testing.T) {
	home := testutil.NewClaudeHome(t)
	path := home.WriteSession(project, "s1",
		testutil.UserLine("s1", 1, "existing"),
	)
	svc := newTestService(t, home)

	var mu sync.Mutex
	var seen []string
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Follow(ctx, path, FollowOptions{FromStart: true, Poll: true}, func(m Message) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, m.Message.Content.(string))
		})
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, 5*time.Second, 20*time.Millisecond)

	testutil.AppendLines(t, path, "", "{not json", testutil.UserLine("s1", 2, "appended"))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Follow did not return after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"existing", "appended"}, seen)
}

func TestFollowMissingFile(t *testing.T) {
	home := testutil.NewClaudeHome(t)
	svc := newTestService(t, home)

	err := svc.Follow(context.Background(), filepath.Join(home.Dir, "missing.jsonl"), FollowOptions{}, func(Message) {})
	assert.True(t, errors.Is(err, errors.ErrCodeReadFailed))
}
