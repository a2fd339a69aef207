package plugin

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/githooks/pkg/git"
	"github.com/charmbracelet/githooks/pkg/hooks"
)

// CheckWhitespace rejects commits that introduce whitespace errors, as
// reported by git's own --check machinery (trailing whitespace, space
// before tab, and whatever core.whitespace configures).
type CheckWhitespace struct{}

// NewCheckWhitespace returns the plugin.
func NewCheckWhitespace() *CheckWhitespace {
	return &CheckWhitespace{}
}

// Name implements hooks.Handler.
func (*CheckWhitespace) Name() string { return "checkwhitespace" }

// Points implements hooks.Handler.
func (*CheckWhitespace) Points() []hooks.HookPoint {
	return []hooks.HookPoint{
		hooks.PreCommit,
		hooks.PrePush,
		hooks.PreReceive,
		hooks.Update,
		hooks.RefUpdate,
		hooks.PatchsetCreated,
		hooks.DraftPublished,
	}
}

// Run implements hooks.Handler.
func (p *CheckWhitespace) Run(ctx context.Context, inv *hooks.Invocation) ([]hooks.Fault, error) {
	return eachCommit(ctx, inv, p.Name(), func(ref string, c *git.Commit) []hooks.Fault {
		return p.checkCommit(ctx, inv, ref, c)
	}), nil
}

func (p *CheckWhitespace) checkCommit(ctx context.Context, inv *hooks.Invocation, ref string, c *git.Commit) []hooks.Fault {
	// A merge is its own base, so the diff is empty and conflict
	// resolutions are not re-checked.
	args := []string{"diff-tree", "--check", c.Base().String(), c.ID.String()}
	if c.ID.IsZero() {
		args = []string{"diff-index", "--check", "--cached", c.Base().String()}
	}

	// git reports the problems on stdout and exits nonzero, so the output
	// has to be captured explicitly.
	var out bytes.Buffer
	err := inv.Repo.RunStream(ctx, nil, &out, io.Discard, args...)
	if err == nil {
		return nil
	}
	if out.Len() == 0 {
		return []hooks.Fault{hooks.ToolFault(p.Name(), fmt.Errorf("%s: %w", args[0], err))}
	}
	f := hooks.Fault{
		Kind:    hooks.PolicyViolation,
		Plugin:  p.Name(),
		Ref:     ref,
		Commit:  c.ID.String(),
		Message: "whitespace errors",
		Detail:  truncateOutput(out.Bytes()),
	}
	if c.ID.IsZero() {
		f.Commit = ""
	}
	return []hooks.Fault{f}
}
