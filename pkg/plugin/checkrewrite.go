package plugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/githooks/pkg/git"
	"github.com/charmbracelet/githooks/pkg/hooks"
)

// handoffFile is the state file bridging a pre-commit/post-commit pair.
// Two lines: the pre-commit HEAD id, and its space-separated parent ids.
const handoffFile = "githooks-precommit"

// CheckRewrite warns when history that other branches can reach gets
// rewritten. At commit time it detects amends of published commits through
// a handoff file written by pre-commit and read back by post-commit; at
// rebase time it checks the commits about to be replayed.
type CheckRewrite struct{}

// NewCheckRewrite returns the plugin.
func NewCheckRewrite() *CheckRewrite {
	return &CheckRewrite{}
}

// Name implements hooks.Handler.
func (*CheckRewrite) Name() string { return "checkrewrite" }

// Points implements hooks.Handler.
func (*CheckRewrite) Points() []hooks.HookPoint {
	return []hooks.HookPoint{
		hooks.PreCommit,
		hooks.PostCommit,
		hooks.PreRebase,
	}
}

// Run implements hooks.Handler.
func (p *CheckRewrite) Run(ctx context.Context, inv *hooks.Invocation) ([]hooks.Fault, error) {
	switch inv.Point {
	case hooks.PreCommit:
		return p.record(ctx, inv), nil
	case hooks.PostCommit:
		return p.checkAmend(ctx, inv), nil
	case hooks.PreRebase:
		return p.checkRebase(ctx, inv), nil
	}
	return nil, nil
}

func (p *CheckRewrite) toolFault(err error) []hooks.Fault {
	return []hooks.Fault{hooks.ToolFault(p.Name(), err)}
}

func (p *CheckRewrite) handoffPath(ctx context.Context, inv *hooks.Invocation) (string, error) {
	dir, err := inv.Repo.GitDir(ctx)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, handoffFile), nil
}

// record snapshots HEAD and its parents before the commit is made.
func (p *CheckRewrite) record(ctx context.Context, inv *hooks.Invocation) []hooks.Fault {
	path, err := p.handoffPath(ctx, inv)
	if err != nil {
		return p.toolFault(err)
	}
	head, err := inv.Repo.CommitAt(ctx, "HEAD")
	if err != nil {
		// Unborn branch: the first commit cannot rewrite anything.
		os.Remove(path) //nolint:errcheck
		return nil
	}
	parents := make([]string, len(head.Parents))
	for i, h := range head.Parents {
		parents[i] = h.String()
	}
	content := head.ID.String() + "\n" + strings.Join(parents, " ") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return p.toolFault(fmt.Errorf("write %s: %w", path, err))
	}
	return nil
}

// checkAmend consumes the handoff file. A new HEAD with the same parents
// as the recorded commit means the recorded commit was amended away; if
// any branch still reaches it, the rewrite is flagged.
func (p *CheckRewrite) checkAmend(ctx context.Context, inv *hooks.Invocation) []hooks.Fault {
	path, err := p.handoffPath(ctx, inv)
	if err != nil {
		return p.toolFault(err)
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return p.toolFault(err)
	}
	defer os.Remove(path) //nolint:errcheck

	// Two lines, the second may be empty for a root commit.
	lines := strings.Split(string(data), "\n")
	if len(lines) < 2 || lines[0] == "" {
		return nil
	}
	recorded, parentLine := lines[0], lines[1]

	head, err := inv.Repo.CommitAt(ctx, "HEAD")
	if err != nil {
		return p.toolFault(err)
	}
	if head.ID.String() == recorded {
		// Stale file from an aborted commit.
		return nil
	}
	parents := make([]string, len(head.Parents))
	for i, h := range head.Parents {
		parents[i] = h.String()
	}
	if strings.Join(parents, " ") != parentLine {
		// A regular commit on top, not an amend.
		return nil
	}

	branches, err := inv.Repo.BranchesContaining(ctx, git.Hash(recorded))
	if err != nil {
		return p.toolFault(err)
	}
	current, _ := inv.Repo.CurrentBranch(ctx)
	others := exclude(branches, current)
	if len(others) == 0 {
		return nil
	}
	return []hooks.Fault{{
		Kind:    hooks.PolicyViolation,
		Plugin:  p.Name(),
		Commit:  recorded,
		Message: fmt.Sprintf("amend rewrote a commit still reachable from %s", strings.Join(others, ", ")),
	}}
}

// checkRebase flags commits in the rebased range that other branches
// reach. Arguments are the ones git hands to pre-rebase: the upstream,
// and the branch being rebased when it is not the checked-out one.
func (p *CheckRewrite) checkRebase(ctx context.Context, inv *hooks.Invocation) []hooks.Fault {
	if len(inv.Args) == 0 {
		return p.toolFault(fmt.Errorf("pre-rebase invoked without an upstream argument"))
	}
	upstream := inv.Args[0]
	branch := "HEAD"
	var current string
	if len(inv.Args) > 1 {
		branch = inv.Args[1]
		current = git.RefsHeads + branch
	} else if cur, err := inv.Repo.CurrentBranch(ctx); err == nil {
		branch = cur
		current = cur
	}

	ids, err := inv.Repo.RunLines(ctx, "rev-list", upstream+".."+branch)
	if err != nil {
		return p.toolFault(fmt.Errorf("rev-list %s..%s: %w", upstream, branch, err))
	}
	var faults []hooks.Fault
	for _, id := range ids {
		branches, err := inv.Repo.BranchesContaining(ctx, git.Hash(id))
		if err != nil {
			return append(faults, p.toolFault(err)...)
		}
		others := exclude(branches, current)
		if len(others) == 0 {
			continue
		}
		faults = append(faults, hooks.Fault{
			Kind:    hooks.PolicyViolation,
			Plugin:  p.Name(),
			Commit:  id,
			Message: fmt.Sprintf("rebase would rewrite a commit reachable from %s", strings.Join(others, ", ")),
		})
	}
	return faults
}

func exclude(list []string, drop string) []string {
	var out []string
	for _, v := range list {
		if v != drop {
			out = append(out, v)
		}
	}
	return out
}
