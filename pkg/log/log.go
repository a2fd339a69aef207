// Package log provides logging functionality for githooks.
package log

import (
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/githooks/pkg/config"
	"github.com/charmbracelet/log"
)

// NewLogger returns a new logger configured from the GITHOOKS_LOG_*
// environment. Hook diagnostics go to stderr by default, stdout belongs to
// git.
func NewLogger(env config.Env) (*log.Logger, *os.File, error) {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateOnly,
	})

	switch {
	case config.IsVerbose():
		logger.SetReportCaller(true)
		fallthrough
	case config.IsDebug():
		logger.SetLevel(log.DebugLevel)
	}

	if env.Log.TimeFormat != "" {
		logger.SetTimeFormat(env.Log.TimeFormat)
	}

	switch strings.ToLower(env.Log.Format) {
	case "json":
		logger.SetFormatter(log.JSONFormatter)
	case "logfmt":
		logger.SetFormatter(log.LogfmtFormatter)
	case "text":
		logger.SetFormatter(log.TextFormatter)
	}

	var f *os.File
	if env.Log.Path != "" {
		var err error
		f, err = os.OpenFile(env.Log.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec
		if err != nil {
			return nil, nil, err //nolint:wrapcheck
		}
		logger.SetOutput(f)
	}

	return logger, f, nil
}
