package transcript

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/claudelogs/config"
	"github.com/grovetools/claudelogs/errors"
	"github.com/grovetools/claudelogs/logging"
	"github.com/grovetools/claudelogs/pkg/claudepath"
	"github.com/grovetools/claudelogs/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const project = "/home/dev/app"

func newTestService(t *testing.T, home *testutil.ClaudeHome, mutate ...func(*Options)) *Service {
	t.Helper()
	opts := Options{
		ConfigDir:          home.Dir,
		Logger:             logging.Discard(),
		StabilityThreshold: 50 * time.Millisecond,
		PollInterval:       10 * time.Millisecond,
	}
	for _, m := range mutate {
		m(&opts)
	}
	svc, err := NewService(opts)
	require.NoError(t, err)
	return svc
}

func TestServiceInstallation(t *testing.T) {
	home := testutil.NewClaudeHome(t)
	svc := newTestService(t, home)

	assert.Equal(t, home.Dir, svc.ConfigDir())
	assert.True(t, svc.IsInstalled())

	projects, err := svc.Projects(context.Background())
	require.NoError(t, err)
	assert.Empty(t, projects)

	home.ProjectDir(project)
	home.ProjectDir("/srv/api")
	projects, err = svc.Projects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"-home-dev-app", "-srv-api"}, projects)
	assert.Equal(t, "-home-dev-app", svc.FindProjectByPath(project))
	assert.Equal(t, "-srv-api", svc.FindProjectByPath("api"))
	assert.Equal(t, "", svc.FindProjectByPath("/elsewhere"))

	missing := newTestService(t, home, func(o *Options) { o.ConfigDir = filepath.Join(t.TempDir(), "nope") })
	assert.False(t, missing.IsInstalled())
}

func TestWellFormedSession(t *testing.T) {
	home := testutil.NewClaudeHome(t)
	home.WriteSession(project, "s1",
		testutil.UserLine("s1", 100, "hello"),
		testutil.AssistantLine("s1", 200, "hi", map[string]any{"input_tokens": 10, "output_tokens": 5}),
		testutil.AssistantLine("s1", 300, "bye", nil),
	)
	svc := newTestService(t, home)
	ctx := context.Background()

	s, err := svc.SessionWithMessages(ctx, project, "s1")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, 3, s.MessageCount)
	assert.Equal(t, time.UnixMilli(100).UTC(), s.StartTime.UTC())
	assert.Equal(t, time.UnixMilli(300).UTC(), s.LastUpdate.UTC())
	require.NotNil(t, s.TokenUsage)
	assert.Equal(t, int64(15), s.TokenUsage.TotalTokens)

	metas, err := svc.SessionsMetadata(ctx, project)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, 3, metas[0].MessageCount)
	assert.Equal(t, "hello", metas[0].FirstMessagePreview)
	assert.Equal(t, "bye", metas[0].LastMessagePreview)
	assert.Equal(t, filepath.Join(claudepath.ProjectDir(home.Dir, project), "s1.jsonl"), metas[0].FilePath)

	missing, err := svc.SessionWithMessages(ctx, project, "other")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMalformedFirstLine(t *testing.T) {
	home := testutil.NewClaudeHome(t)
	svc := newTestService(t, home)
	ctx := context.Background()

	t.Run("salvage succeeds", func(t *testing.T) {
		home.WriteSession(project, "salvaged",
			"{not json",
			testutil.UserLine("s1", 1000, "valid"),
		)
		metas, err := svc.SessionsMetadata(ctx, project)
		require.NoError(t, err)
		require.Len(t, metas, 1)
		assert.Equal(t, "s1", metas[0].SessionID)
		assert.Equal(t, 2, metas[0].MessageCount)
	})

	t.Run("salvage fails", func(t *testing.T) {
		other := "/home/dev/broken"
		home.WriteSession(other, "garbage",
			"{not json",
			"still {not json",
		)
		metas, err := svc.SessionsMetadata(ctx, other)
		require.NoError(t, err)
		assert.Empty(t, metas)
	})
}

func TestSummaryFileExcluded(t *testing.T) {
	home := testutil.NewClaudeHome(t)
	home.WriteSession(project, "summary",
		`{"type":"summary","summary":"Refactoring","leafUuid":"abc"}`,
		testutil.UserLine("s-summary", 1, "x"),
	)
	home.WriteSession(project, "s1", testutil.UserLine("s1", 1, "x"))
	svc := newTestService(t, home)

	metas, err := svc.SessionsMetadata(context.Background(), project)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, "s1", metas[0].SessionID)
}

func TestEmptyProject(t *testing.T) {
	home := testutil.NewClaudeHome(t)
	svc := newTestService(t, home)
	ctx := context.Background()

	for _, p := range []string{"/does/not/exist", project} {
		if p == project {
			home.ProjectDir(project)
		}

		metas, err := svc.SessionsMetadata(ctx, p)
		require.NoError(t, err)
		assert.NotNil(t, metas)
		assert.Empty(t, metas)

		recent, err := svc.RecentSessions(ctx, p, 0)
		require.NoError(t, err)
		assert.NotNil(t, recent)
		assert.Empty(t, recent)

		page, err := svc.SessionsPaginated(ctx, p, PageOptions{})
		require.NoError(t, err)
		assert.Equal(t, Page{Sessions: []SessionMetadata{}, Total: 0, HasMore: false}, page)

		cpage, err := svc.SessionsCursor(ctx, p, CursorOptions{})
		require.NoError(t, err)
		assert.Empty(t, cpage.Sessions)
		assert.False(t, cpage.HasMore)

		history, err := svc.ReadChatHistory(ctx, p)
		require.NoError(t, err)
		assert.Empty(t, history)

		data, err := svc.ProjectData(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, 0, data.TotalMessages)
		assert.Nil(t, data.FirstMessageTime)
	}
}

func TestMessageCountMatchesLines(t *testing.T) {
	home := testutil.NewClaudeHome(t)
	var lines []string
	for i := 0; i < 25; i++ {
		lines = append(lines, testutil.UserLine("s1", int64(i*10), "x"))
		if i%5 == 0 {
			lines = append(lines, "")
		}
	}
	home.WriteSession(project, "s1", lines...)
	svc := newTestService(t, home)

	metas, err := svc.SessionsMetadata(context.Background(), project)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, 25, metas[0].MessageCount)
}

func TestRecentSessions(t *testing.T) {
	home := testutil.NewClaudeHome(t)
	for i, id := range []string{"a", "b", "c", "d"} {
		home.WriteSession(project, id,
			testutil.Line(map[string]any{"type": "user", "sessionId": id, "timestamp": testutil.TS(int64(i * 1000)), "gitBranch": "main", "message": map[string]any{"role": "user", "content": "x"}}),
			testutil.AssistantLine(id, int64(i*1000+500), "y", nil),
		)
	}
	svc := newTestService(t, home)

	recent, err := svc.RecentSessions(context.Background(), project, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "d", recent[0].SessionID)
	assert.Equal(t, "c", recent[1].SessionID)
	assert.Equal(t, UnknownValue, recent[0].GitBranch)
	assert.Empty(t, recent[0].CWD)
	assert.Nil(t, recent[0].TokenUsage)

	all, err := svc.RecentSessions(context.Background(), project, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestExcludePatterns(t *testing.T) {
	home := testutil.NewClaudeHome(t)
	home.WriteSession(project, "s1", testutil.UserLine("s1", 1, "x"))
	home.WriteSession(project, "agent-123", testutil.UserLine("agent", 2, "x"))
	svc := newTestService(t, home, func(o *Options) { o.Exclude = []string{"agent-*.jsonl"} })

	metas, err := svc.SessionsMetadata(context.Background(), project)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, "s1", metas[0].SessionID)

	history, err := svc.ReadChatHistory(context.Background(), project)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = NewService(Options{ConfigDir: home.Dir, Logger: logging.Discard(), Exclude: []string{"["}})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestReadChatHistory(t *testing.T) {
	home := testutil.NewClaudeHome(t)
	home.WriteSession(project, "s1",
		testutil.UserLine("s1", 100, "one"),
		testutil.UserLine("s1", 400, "four"),
	)
	home.WriteSession(project, "s2",
		testutil.UserLine("s2", 200, "two"),
		"{not json",
		testutil.UserLine("s2", 300, "three"),
	)
	svc := newTestService(t, home)

	history, err := svc.ReadChatHistory(context.Background(), project)
	require.NoError(t, err)
	var contents []any
	for _, m := range history {
		contents = append(contents, m.Message.Content)
	}
	assert.Equal(t, []any{"one", "two", "three", "four"}, contents)

	msgs, err := svc.SessionMessages(context.Background(), project, "s2")
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestReadChatHistoryDirectoryFailure(t *testing.T) {
	home := testutil.NewClaudeHome(t)
	dir := claudepath.ProjectDir(home.Dir, project)
	require.NoError(t, os.WriteFile(dir, []byte("not a directory"), 0o644))
	svc := newTestService(t, home)

	_, err := svc.ReadChatHistory(context.Background(), project)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInternal))
	assert.Equal(t, 500, errors.HTTPStatus(err))

	// the metadata path degrades instead
	metas, err := svc.SessionsMetadata(context.Background(), project)
	require.NoError(t, err)
	assert.Empty(t, metas)
}

func TestProjectData(t *testing.T) {
	home := testutil.NewClaudeHome(t)
	home.WriteSession(project, "s1",
		testutil.Line(map[string]any{"type": "user", "sessionId": "s1", "timestamp": testutil.TS(100), "gitBranch": "main", "cwd": "/home/dev/app", "message": map[string]any{"role": "user", "content": "x"}}),
		testutil.AssistantLine("s1", 150, "y", nil),
	)
	home.WriteSession(project, "s2",
		testutil.Line(map[string]any{"type": "user", "sessionId": "s2", "timestamp": testutil.TS(200), "gitBranch": "feature", "cwd": "/home/dev/app/sub", "message": map[string]any{"role": "user", "content": "x"}}),
	)
	svc := newTestService(t, home)

	data, err := svc.ProjectData(context.Background(), project)
	require.NoError(t, err)
	assert.Equal(t, project, data.ProjectPath)
	assert.Equal(t, "-home-dev-app", data.EncodedPath)
	assert.Equal(t, 3, data.TotalMessages)
	require.Len(t, data.Sessions, 2)
	assert.Equal(t, "s2", data.Sessions[0].SessionID)
	assert.Equal(t, []string{"feature", "main"}, data.Branches)
	assert.Equal(t, []string{"/home/dev/app", "/home/dev/app/sub"}, data.WorkingDirectories)
	require.NotNil(t, data.FirstMessageTime)
	require.NotNil(t, data.LastMessageTime)
	assert.Equal(t, time.UnixMilli(100).UTC(), data.FirstMessageTime.UTC())
	assert.Equal(t, time.UnixMilli(200).UTC(), data.LastMessageTime.UTC())
}

func TestServicePagination(t *testing.T) {
	home := testutil.NewClaudeHome(t)
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		home.WriteSession(project, id, testutil.UserLine(id, int64(i*1000), "msg "+id))
	}
	svc := newTestService(t, home)
	ctx := context.Background()

	page, err := svc.SessionsPaginated(ctx, project, PageOptions{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.True(t, page.HasMore)
	assert.Equal(t, []string{"c", "b"}, ids(page.Sessions))

	first, err := svc.SessionsCursor(ctx, project, CursorOptions{Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "d", "c"}, ids(first.Sessions))
	second, err := svc.SessionsCursor(ctx, project, CursorOptions{Limit: 3, Cursor: first.NextCursor})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids(second.Sessions))
	assert.False(t, second.HasMore)
}

func TestSessionsMetadataCancelled(t *testing.T) {
	home := testutil.NewClaudeHome(t)
	home.WriteSession(project, "s1", testutil.UserLine("s1", 1, "x"))
	svc := newTestService(t, home)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.SessionsMetadata(ctx, project)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg, err := config.LoadFromBytes([]byte(`
claude_dir: /tmp/claude
scan:
  max_lines: 10
  timeout: 2s
  concurrency: 4
exclude:
  - "agent-*.jsonl"
`), config.FormatYAML)
	require.NoError(t, err)

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, "/tmp/claude", opts.ConfigDir)
	assert.Equal(t, 10, opts.Limits.MaxLines)
	assert.Equal(t, 2*time.Second, opts.Limits.Timeout)
	assert.Equal(t, 4, opts.Concurrency)
	assert.Equal(t, []string{"agent-*.jsonl"}, opts.Exclude)
	assert.Equal(t, 300*time.Millisecond, opts.StabilityThreshold)
	assert.NotNil(t, opts.StatCache)
}
