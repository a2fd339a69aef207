package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/duration"
	"github.com/caarlos0/env/v11"
)

// LogEnv is the logger configuration.
type LogEnv struct {
	// Format is the format of the logs. Valid values are "json", "logfmt",
	// and "text".
	Format string `env:"FORMAT"`

	// TimeFormat for the log timestamp field, in Go's time format.
	TimeFormat string `env:"TIME_FORMAT"`

	// Path to a file to write logs to. If not set, logs go to stderr.
	Path string `env:"PATH"`
}

// Env is the process environment configuration.
type Env struct {
	// Log is the logger configuration.
	Log LogEnv `envPrefix:"LOG_"`

	// Disable lists plugins forcibly disabled for this invocation, in
	// addition to the per-plugin GITHOOKS_DISABLE_<NAME> variables.
	Disable []string `env:"DISABLE" envSeparator:","`

	// Timeout overrides githooks.timeout for external commands. Accepts
	// humane durations ("90s", "2m", "1h30m").
	Timeout string `env:"TIMEOUT"`

	// User overrides the authenticated username lookup entirely. Meant for
	// testing and emergency use.
	User string `env:"USER"`
}

// ParseEnv parses the GITHOOKS_* environment variables.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.ParseWithOptions(&e, env.Options{Prefix: "GITHOOKS_"}); err != nil {
		return e, err
	}
	return e, nil
}

// CommandTimeout returns the bound applied to external command execution.
// Zero means no bound. Precedence: GITHOOKS_TIMEOUT, then githooks.timeout,
// then the one-minute default.
func (e Env) CommandTimeout(cfg *Store) (time.Duration, error) {
	v := e.Timeout
	if v == "" {
		v, _ = cfg.Get("githooks", "timeout")
	}
	if v == "" {
		return time.Minute, nil
	}
	return duration.Parse(v)
}

// IsDebug returns true when running in debug mode.
func IsDebug() bool {
	debug, _ := strconv.ParseBool(os.Getenv("GITHOOKS_DEBUG"))
	return debug
}

// IsVerbose returns true when running in verbose mode. Verbose mode is only
// enabled if debug mode is enabled.
func IsVerbose() bool {
	verbose, _ := strconv.ParseBool(os.Getenv("GITHOOKS_VERBOSE"))
	return IsDebug() && verbose
}

// PluginDisabled reports whether the plugin is switched off for this
// invocation through the environment, either by GITHOOKS_DISABLE_<NAME>
// or by membership in GITHOOKS_DISABLE. The variable name is the plugin
// name uppercased, which gives operators an emergency bypass that needs no
// configuration change.
func (e Env) PluginDisabled(name string) bool {
	if _, ok := os.LookupEnv("GITHOOKS_DISABLE_" + strings.ToUpper(name)); ok {
		return true
	}
	for _, d := range e.Disable {
		if strings.EqualFold(strings.TrimSpace(d), name) {
			return true
		}
	}
	return false
}
