package plugin

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matryer/is"

	"github.com/charmbracelet/githooks/pkg/hooks"
)

func TestCheckLogMessageRules(t *testing.T) {
	cases := []struct {
		name    string
		cfg     []string
		message string
		want    []string
	}{
		{
			name:    "clean message",
			cfg:     []string{"checklog.title-required", "true", "checklog.title-max-width", "50"},
			message: "Fix ref parser\n\nLonger explanation.\n",
			want:    nil,
		},
		{
			name:    "missing title",
			cfg:     []string{"checklog.title-required", "true"},
			message: "\nbody without a title\n",
			want:    []string{"checklog.title-required"},
		},
		{
			name:    "title too wide",
			cfg:     []string{"checklog.title-max-width", "10"},
			message: "This title is far too long\n",
			want:    []string{"checklog.title-max-width"},
		},
		{
			name:    "deprecated width key still applies",
			cfg:     []string{"checklog.title-max-length", "10"},
			message: "This title is far too long\n",
			want:    []string{"checklog.title-max-width"},
		},
		{
			name:    "period required",
			cfg:     []string{"checklog.title-period", "required"},
			message: "No trailing period\n",
			want:    []string{"checklog.title-period"},
		},
		{
			name:    "period forbidden",
			cfg:     []string{"checklog.title-period", "forbidden"},
			message: "Trailing period.\n",
			want:    []string{"checklog.title-period"},
		},
		{
			name:    "body too wide",
			cfg:     []string{"checklog.body-max-width", "10"},
			message: "Title\n\nthis body line runs past the limit\n",
			want:    []string{"checklog.body-max-width"},
		},
		{
			name:    "required pattern absent",
			cfg:     []string{"checklog.match", "^JIRA-[0-9]+"},
			message: "Fix something\n",
			want:    []string{"checklog.match"},
		},
		{
			name:    "forbidden pattern present",
			cfg:     []string{"checklog.match", "!WIP"},
			message: "WIP: not done\n",
			want:    []string{"checklog.match"},
		},
		{
			name: "every violation reported",
			cfg: []string{
				"checklog.title-max-width", "5",
				"checklog.title-period", "required",
				"checklog.match", "^JIRA-",
			},
			message: "Too long and no period\n",
			want:    []string{"checklog.title-max-width", "checklog.title-period", "checklog.match"},
		},
	}

	p := NewCheckLog()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			is := is.New(t)
			inv := invocationFor(t, hooks.CommitMsg, nil, storeWith(t, c.cfg...), "alice")
			rules, faults := p.parseRules(inv)
			is.Equal(len(faults), 0)
			got := p.checkMessage(rules, "", "", c.message)
			is.Equal(faultOptions(got), c.want)
			for _, f := range got {
				is.Equal(f.Kind, hooks.PolicyViolation)
				is.Equal(f.Plugin, "checklog")
			}
		})
	}
}

func TestCheckLogBadConfig(t *testing.T) {
	cases := []struct {
		name   string
		cfg    []string
		option string
	}{
		{"bad period value", []string{"checklog.title-period", "sometimes"}, "checklog.title-period"},
		{"bad pattern", []string{"checklog.match", "("}, "checklog.match"},
		{"bad width", []string{"checklog.title-max-width", "wide"}, "checklog.title-max-width"},
		{"bad body width", []string{"checklog.body-max-width", "x"}, "checklog.body-max-width"},
		{"bad required flag", []string{"checklog.title-required", "maybe"}, "checklog.title-required"},
	}
	p := NewCheckLog()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			is := is.New(t)
			inv := invocationFor(t, hooks.CommitMsg, nil, storeWith(t, c.cfg...), "alice")
			_, faults := p.parseRules(inv)
			is.Equal(len(faults), 1)
			is.Equal(faults[0].Kind, hooks.ConfigError)
			is.Equal(faults[0].Option, c.option)
		})
	}
}

func TestCheckLogMessageFile(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "COMMIT_EDITMSG")
	message := "Fix parser\n# Please enter the commit message for your changes.\n# On branch master\n"
	is.NoErr(os.WriteFile(path, []byte(message), 0o600))

	// Comment lines must not count against the rules.
	cfg := storeWith(t, "checklog.match", "!branch")
	inv := invocationFor(t, hooks.CommitMsg, nil, cfg, "alice")
	inv.MessageFile = path

	p := NewCheckLog()
	faults, err := p.Run(context.Background(), inv)
	is.NoErr(err)
	is.Equal(len(faults), 0)

	inv = invocationFor(t, hooks.CommitMsg, nil, storeWith(t, "checklog.title-max-width", "5"), "alice")
	inv.MessageFile = path
	faults, err = p.Run(context.Background(), inv)
	is.NoErr(err)
	is.Equal(len(faults), 1)
	is.True(strings.Contains(faults[0].Message, "limit is 5"))
}

func TestCheckLogMissingMessageFile(t *testing.T) {
	is := is.New(t)
	inv := invocationFor(t, hooks.CommitMsg, nil, storeWith(t, "checklog.title-required", "true"), "alice")
	inv.MessageFile = filepath.Join(t.TempDir(), "absent")

	faults, err := NewCheckLog().Run(context.Background(), inv)
	is.NoErr(err)
	is.Equal(len(faults), 1)
	is.Equal(faults[0].Kind, hooks.ToolFailure)
}
