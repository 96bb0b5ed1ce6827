package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/grovetools/claudelogs/config"
	"github.com/grovetools/claudelogs/pkg/paths"
	"github.com/grovetools/claudelogs/util/pathutil"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex
)

// NewLogger returns the logger for a component, configured from the default
// config file. Loggers are built once per component.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	var logCfg Config
	if cfg, err := config.LoadDefault(); err == nil {
		if logCfg, err = FromConfig(cfg); err != nil {
			logrus.Warnf("Failed to parse 'logging' config: %v", err)
		}
	}

	entry := New(component, logCfg, os.Stderr)
	loggers[component] = entry
	return entry
}

// FromConfig decodes the logging section of a loaded configuration.
func FromConfig(cfg *config.Config) (Config, error) {
	var logCfg Config
	if cfg == nil {
		return logCfg, nil
	}
	err := cfg.UnmarshalExtension("logging", &logCfg)
	return logCfg, err
}

// New builds an uncached logger for component. stderr receives structured
// output according to Format.StructuredToStderr.
func New(component string, logCfg Config, stderr io.Writer) *logrus.Entry {
	logger := logrus.New()

	levelStr := "info"
	if env := os.Getenv("CLAUDELOGS_LOG_LEVEL"); env != "" {
		levelStr = env
	} else if logCfg.Level != "" {
		levelStr = logCfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if os.Getenv("CLAUDELOGS_LOG_CALLER") == "true" || logCfg.ReportCaller {
		logger.SetReportCaller(true)
	}

	logger.SetFormatter(formatterFor(logCfg.Format.Preset, logCfg.Format))

	if shouldLogToStderr(logCfg.Format.StructuredToStderr, logger.GetLevel(), stderr) {
		logger.SetOutput(stderr)
	} else {
		logger.SetOutput(io.Discard)
	}

	if logCfg.File.Enabled {
		if hook, err := newFileHook(component, logCfg.File); err != nil {
			logger.Warnf("Failed to open log file: %v", err)
		} else {
			logger.AddHook(hook)
		}
	}

	return logger.WithField("component", component)
}

// Discard returns a logger that drops everything. Meant for tests and
// library callers that do not care about diagnostics.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.PanicLevel)
	return logger.WithField("component", "discard")
}

// Reset drops every cached component logger.
func Reset() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	loggers = make(map[string]*logrus.Entry)
}

func formatterFor(preset string, format FormatConfig) logrus.Formatter {
	switch preset {
	case "json":
		return &logrus.JSONFormatter{}
	case "simple":
		return &TextFormatter{Config: FormatConfig{
			DisableTimestamp: true,
			DisableComponent: true,
		}}
	default:
		return &TextFormatter{Config: format}
	}
}

// shouldLogToStderr applies the structured_to_stderr mode. In "auto" mode
// logs go to stderr when debugging or when stderr is not an interactive
// terminal.
func shouldLogToStderr(mode string, level logrus.Level, stderr io.Writer) bool {
	if stderr == nil {
		return false
	}
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}

	isDebug := os.Getenv("CLAUDELOGS_DEBUG") == "1" || level >= logrus.DebugLevel
	isInteractive := false
	if f, ok := stderr.(*os.File); ok {
		isInteractive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return isDebug || !isInteractive
}

// fileHook writes every entry to a rotating file with its own formatter.
type fileHook struct {
	mu        sync.Mutex
	writer    io.Writer
	formatter logrus.Formatter
}

func newFileHook(component string, sink FileSinkConfig) (*fileHook, error) {
	path := filepath.Join(paths.LogDir(), component+".log")
	if sink.Path != "" {
		expanded, err := pathutil.Expand(sink.Path)
		if err != nil {
			return nil, err
		}
		path = expanded
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	maxSize := sink.MaxSizeMB
	if maxSize == 0 {
		maxSize = 10
	}
	maxBackups := sink.MaxBackups
	if maxBackups == 0 {
		maxBackups = 3
	}

	var formatter logrus.Formatter = &TextFormatter{}
	if sink.Format == "json" {
		formatter = &logrus.JSONFormatter{}
	}

	return &fileHook{
		writer: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			MaxAge:     sink.MaxAgeDays,
			Compress:   sink.Compress,
		},
		formatter: formatter,
	}, nil
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.writer.Write(line)
	return err
}
