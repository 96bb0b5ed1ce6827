package transcript

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/grovetools/claudelogs/config"
	"github.com/grovetools/claudelogs/errors"
	"github.com/grovetools/claudelogs/logging"
	"github.com/grovetools/claudelogs/pkg/claudepath"
	"github.com/moby/patternmatcher"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultRecentLimit is the number of sessions RecentSessions returns when
// no limit is given.
const DefaultRecentLimit = 10

// Options configures a Service. Zero fields take their defaults.
type Options struct {
	// ConfigDir is the Claude Code configuration directory. Defaults to
	// claudepath.ConfigDir().
	ConfigDir string
	Logger    *logrus.Entry
	Parser    *Parser
	StatCache *StatCache
	Limits    ScanLimits
	// Concurrency bounds how many files are scanned at once.
	Concurrency int
	// Exclude holds file name patterns of transcripts to ignore.
	Exclude []string

	StabilityThreshold time.Duration
	PollInterval       time.Duration
}

// OptionsFromConfig maps a loaded configuration onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ConfigDir: cfg.ClaudeDir,
		Limits: ScanLimits{
			MaxLines:    cfg.Scan.MaxLines,
			Timeout:     cfg.ScanTimeout(),
			MaxLineSize: cfg.Scan.MaxLineSize,
		},
		StatCache:          NewStatCache(cfg.StatCacheTTL()),
		Concurrency:        cfg.Scan.Concurrency,
		Exclude:            cfg.Exclude,
		StabilityThreshold: cfg.StabilityThreshold(),
		PollInterval:       cfg.PollInterval(),
	}
}

// Service answers queries over the transcripts of one Claude Code
// installation. Every call reads through to disk; only file stats are
// cached.
type Service struct {
	configDir   string
	log         *logrus.Entry
	parser      *Parser
	reader      *Reader
	assembler   *Assembler
	stats       *StatCache
	concurrency int
	exclude     *patternmatcher.PatternMatcher

	stability time.Duration
	poll      time.Duration
}

// NewService wires a Service from opts.
func NewService(opts Options) (*Service, error) {
	if opts.ConfigDir == "" {
		opts.ConfigDir = claudepath.ConfigDir()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewLogger("transcript")
	}
	if opts.Parser == nil {
		p, err := NewParser(opts.Logger)
		if err != nil {
			return nil, err
		}
		opts.Parser = p
	}
	if opts.StatCache == nil {
		opts.StatCache = NewStatCache(DefaultStatTTL)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = config.DefaultConcurrency
	}
	if opts.StabilityThreshold <= 0 {
		opts.StabilityThreshold = 300 * time.Millisecond
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 100 * time.Millisecond
	}

	pm, err := patternmatcher.New(opts.Exclude)
	if err != nil {
		return nil, errors.InvalidInput("exclude", opts.Exclude, err.Error())
	}

	assembler, err := NewAssembler(opts.Parser, opts.Logger)
	if err != nil {
		return nil, err
	}

	return &Service{
		configDir:   opts.ConfigDir,
		log:         opts.Logger,
		parser:      opts.Parser,
		reader:      NewReader(opts.Parser, opts.Limits, opts.Logger),
		assembler:   assembler,
		stats:       opts.StatCache,
		concurrency: opts.Concurrency,
		exclude:     pm,
		stability:   opts.StabilityThreshold,
		poll:        opts.PollInterval,
	}, nil
}

// ConfigDir returns the Claude Code configuration directory in use.
func (s *Service) ConfigDir() string {
	return s.configDir
}

// IsInstalled reports whether the configuration directory exists.
func (s *Service) IsInstalled() bool {
	info, err := os.Stat(s.configDir)
	return err == nil && info.IsDir()
}

// Reader exposes the service's line reader.
func (s *Service) Reader() *Reader {
	return s.reader
}

// Assembler exposes the service's session assembler.
func (s *Service) Assembler() *Assembler {
	return s.assembler
}

// ParserStats returns the parser's per-tier counters.
func (s *Service) ParserStats() ParserStats {
	return s.parser.Stats()
}

// Projects lists the encoded project directory names.
func (s *Service) Projects(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	projects, err := claudepath.ListProjects(s.configDir)
	if err != nil {
		return nil, errors.Internal(err, "listing Claude projects")
	}
	return projects, nil
}

// FindProjectByPath maps a filesystem path onto an encoded project
// directory name, or "" when none matches.
func (s *Service) FindProjectByPath(target string) string {
	return claudepath.FindProjectByPath(s.configDir, target)
}

// projectDir accepts either a filesystem path or an encoded directory name.
func (s *Service) projectDir(projectPath string) string {
	return claudepath.ProjectDir(s.configDir, projectPath)
}

// transcriptFiles lists the non-excluded *.jsonl files of a project. A
// missing directory gives no files and no error.
func (s *Service) transcriptFiles(projectPath string) ([]string, error) {
	dir := s.projectDir(projectPath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		if excluded, err := s.exclude.MatchesOrParentMatches(name); err == nil && excluded {
			s.log.WithField("file", name).Trace("Excluded transcript")
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}

// SessionsMetadata builds metadata for every session file of the project,
// newest first. Files that cannot be read are logged and skipped; only
// cancellation of ctx is returned as an error.
func (s *Service) SessionsMetadata(ctx context.Context, projectPath string) ([]SessionMetadata, error) {
	files, err := s.transcriptFiles(projectPath)
	if err != nil {
		s.log.WithError(err).WithField("project", projectPath).Warn("Cannot list project directory")
		return []SessionMetadata{}, nil
	}

	results := make([]*SessionMetadata, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.metadataForFile(gctx, projectPath, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]SessionMetadata, 0, len(results))
	for _, m := range results {
		if m != nil {
			out = append(out, *m)
		}
	}
	sortMetadata(out, SortByLastUpdate, SortDesc)

	s.log.WithFields(logrus.Fields{
		"project":  projectPath,
		"files":    len(files),
		"sessions": len(out),
	}).Debug("Collected session metadata")
	return out, nil
}

func (s *Service) metadataForFile(ctx context.Context, projectPath, path string) *SessionMetadata {
	log := s.log.WithField("path", path)

	if !s.reader.IsSessionFile(ctx, path) {
		log.Trace("Not a session file")
		return nil
	}
	stat, err := s.stats.Stat(path)
	if err != nil {
		log.WithError(err).Warn("Cannot stat session file")
		return nil
	}
	fl, err := s.reader.FirstLastLines(ctx, path)
	if err != nil {
		log.WithError(err).Warn("Skipping session file")
		return nil
	}

	meta := s.assembler.CreateSessionMetadataFromLines(projectPath, fl.First, fl.Last, fl.LineCount, stat.Size)
	if meta == nil {
		log.Debug("No metadata could be recovered")
		return nil
	}
	meta.FilePath = path
	return meta
}

// RecentSessions returns the most recently updated sessions, built from
// metadata only. A non-positive limit uses DefaultRecentLimit.
func (s *Service) RecentSessions(ctx context.Context, projectPath string, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	metas, err := s.SessionsMetadata(ctx, projectPath)
	if err != nil {
		return nil, err
	}
	if len(metas) > limit {
		metas = metas[:limit]
	}
	sessions := make([]Session, 0, len(metas))
	for _, m := range metas {
		sessions = append(sessions, CreateSessionFromMetadata(m))
	}
	return sessions, nil
}

// ReadChatHistory parses every transcript of the project and returns all
// messages ordered by timestamp. A missing project directory gives no
// messages; any other directory failure is returned as an internal error.
func (s *Service) ReadChatHistory(ctx context.Context, projectPath string) ([]Message, error) {
	files, err := s.transcriptFiles(projectPath)
	if err != nil {
		return nil, errors.Internal(err, "failed to read chat history").
			WithDetail("projectPath", projectPath)
	}

	perFile := make([][]Message, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			msgs, err := s.reader.ReadJSONLFile(gctx, path)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.log.WithError(err).WithField("path", path).Warn("Skipping unreadable transcript")
				return nil
			}
			perFile[i] = msgs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := []Message{}
	for _, msgs := range perFile {
		all = append(all, msgs...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Time().Before(all[j].Time())
	})
	return all, nil
}

// SessionMessages returns the messages of one session in timestamp order.
func (s *Service) SessionMessages(ctx context.Context, projectPath, sessionID string) ([]Message, error) {
	all, err := s.ReadChatHistory(ctx, projectPath)
	if err != nil {
		return nil, err
	}
	msgs := []Message{}
	for _, m := range all {
		if m.SessionID == sessionID {
			msgs = append(msgs, m)
		}
	}
	return msgs, nil
}

// SessionWithMessages builds the full view of one session. It returns nil
// without error when no message belongs to the session.
func (s *Service) SessionWithMessages(ctx context.Context, projectPath, sessionID string) (*Session, error) {
	msgs, err := s.SessionMessages(ctx, projectPath, sessionID)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return s.assembler.CreateSessionFromMessages(sessionID, projectPath, msgs), nil
}

// ProjectData aggregates every session of the project from its full
// message history.
func (s *Service) ProjectData(ctx context.Context, projectPath string) (*ProjectData, error) {
	all, err := s.ReadChatHistory(ctx, projectPath)
	if err != nil {
		return nil, err
	}

	data := &ProjectData{
		ProjectPath:        projectPath,
		EncodedPath:        claudepath.EncodePath(projectPath),
		Sessions:           []Session{},
		TotalMessages:      len(all),
		Branches:           []string{},
		WorkingDirectories: []string{},
	}
	if len(all) == 0 {
		return data, nil
	}

	first, last := all[0].Time(), all[len(all)-1].Time()
	data.FirstMessageTime = &first
	data.LastMessageTime = &last

	var order []string
	bySession := map[string][]Message{}
	branches := map[string]struct{}{}
	cwds := map[string]struct{}{}
	for _, m := range all {
		if _, ok := bySession[m.SessionID]; !ok {
			order = append(order, m.SessionID)
		}
		bySession[m.SessionID] = append(bySession[m.SessionID], m)
		if m.GitBranch != "" {
			branches[m.GitBranch] = struct{}{}
		}
		if m.CWD != "" {
			cwds[m.CWD] = struct{}{}
		}
	}

	for _, id := range order {
		if sess := s.assembler.CreateSessionFromMessages(id, projectPath, bySession[id]); sess != nil {
			data.Sessions = append(data.Sessions, *sess)
		}
	}
	sort.SliceStable(data.Sessions, func(i, j int) bool {
		return data.Sessions[i].LastUpdate.After(data.Sessions[j].LastUpdate)
	})

	data.Branches = sortedKeys(branches)
	data.WorkingDirectories = sortedKeys(cwds)
	return data, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
