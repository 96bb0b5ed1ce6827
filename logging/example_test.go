package logging_test

import (
	"github.com/grovetools/claudelogs/logging"
	"github.com/sirupsen/logrus"
)

func ExampleNewLogger() {
	log := logging.NewLogger("transcript")

	log.Debug("Scanning project")
	log.Info("Loaded sessions")

	log.WithFields(logrus.Fields{
		"session": "1f0c",
		"lines":   412,
	}).Info("Session metadata built")

	log.WithField("file", "/home/me/.claude/projects/-home-me-app/1f0c.jsonl").Warn("Skipping unreadable file")
}

func ExampleNewLogger_configuration() {
	// Configuration via config.yml:
	//
	// logging:
	//   level: debug
	//   report_caller: true
	//   file:
	//     enabled: true
	//     max_size_mb: 20
	//   format:
	//     preset: json
	//
	// Or via environment variables:
	// CLAUDELOGS_LOG_LEVEL=debug
	// CLAUDELOGS_LOG_CALLER=true

	log := logging.NewLogger("configured")
	log.Info("This will respect the configuration")
}
