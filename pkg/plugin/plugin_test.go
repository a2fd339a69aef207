package plugin

import (
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/githooks/pkg/config"
	"github.com/charmbracelet/githooks/pkg/git"
	"github.com/charmbracelet/githooks/pkg/hooks"
	"github.com/charmbracelet/log"
)

func inertLogger() *log.Logger {
	return log.New(io.Discard)
}

// storeWith builds a Store from "section.key", "value" pairs.
func storeWith(t *testing.T, pairs ...string) *config.Store {
	t.Helper()
	if len(pairs)%2 != 0 {
		t.Fatal("storeWith wants key/value pairs")
	}
	cfg := config.NewStore()
	for i := 0; i < len(pairs); i += 2 {
		section, key, ok := strings.Cut(pairs[i], ".")
		if !ok {
			t.Fatalf("bad key %q", pairs[i])
		}
		cfg.Set(section, key, pairs[i+1])
	}
	return cfg
}

func invocationFor(t *testing.T, point hooks.HookPoint, repo *git.Repository, cfg *config.Store, user string) *hooks.Invocation {
	t.Helper()
	inv, err := hooks.NewInvocation(point, repo, cfg, config.Env{User: user}, inertLogger())
	if err != nil {
		t.Fatal(err)
	}
	return inv
}

func faultOptions(faults []hooks.Fault) []string {
	var opts []string
	for _, f := range faults {
		opts = append(opts, f.Option)
	}
	return opts
}

func TestRegisterBuiltins(t *testing.T) {
	r := hooks.NewRegistry()
	Register(r)
	for _, p := range Builtins() {
		if !r.Known(p.Name()) {
			t.Errorf("%s not registered", p.Name())
		}
		if len(p.Points()) == 0 {
			t.Errorf("%s covers no hook points", p.Name())
		}
	}
}
