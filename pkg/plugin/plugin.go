// Package plugin implements the built-in policy plugins. Each plugin is a
// hooks.Handler reading its options from its own configuration section,
// named after the plugin in lowercase. Plugins accumulate faults and never
// abort the invocation themselves.
package plugin

import (
	"context"
	"fmt"

	"github.com/charmbracelet/githooks/pkg/git"
	"github.com/charmbracelet/githooks/pkg/hooks"
)

// Builtins returns every built-in plugin, in registration order.
func Builtins() []hooks.Handler {
	return []hooks.Handler{
		NewCheckReference(),
		NewCheckCommit(),
		NewCheckLog(),
		NewCheckFile(),
		NewCheckWhitespace(),
		NewCheckRewrite(),
		NewNotify(),
	}
}

// Register adds every built-in plugin to the registry.
func Register(r *hooks.Registry) {
	for _, p := range Builtins() {
		r.Add(p)
	}
}

// eachCommit visits every commit record the invocation carries: the
// synthesized staged record at commit time, the patchset commit for Gerrit
// points, or the commits each ref update introduces. The visit function
// returns the faults for one commit; a ref update that cannot be walked
// becomes a tool-failure fault and the remaining updates are still
// visited.
func eachCommit(ctx context.Context, inv *hooks.Invocation, plugin string, visit func(ref string, c *git.Commit) []hooks.Fault) []hooks.Fault {
	var faults []hooks.Fault
	switch inv.Point {
	case hooks.PreCommit, hooks.PrepareCommitMsg, hooks.CommitMsg:
		c, err := inv.Repo.StagedCommit(ctx)
		if err != nil {
			return []hooks.Fault{hooks.ToolFault(plugin, fmt.Errorf("synthesize staged commit: %w", err))}
		}
		return visit("", c)
	case hooks.PostCommit:
		c, err := inv.Repo.HeadCommit(ctx)
		if err != nil {
			return []hooks.Fault{hooks.ToolFault(plugin, fmt.Errorf("resolve HEAD: %w", err))}
		}
		return visit("", c)
	case hooks.PatchsetCreated, hooks.DraftPublished:
		if inv.Gerrit == nil || inv.Gerrit.Commit == "" {
			return nil
		}
		c, err := inv.Repo.CommitAt(ctx, inv.Gerrit.Commit)
		if err != nil {
			return []hooks.Fault{hooks.ToolFault(plugin, err)}
		}
		return visit(inv.Gerrit.Branch, c)
	}
	for _, u := range inv.Updates {
		commits, err := inv.Commits(ctx, u)
		if err != nil {
			faults = append(faults, withRef(hooks.ToolFault(plugin, err), u.Ref))
			continue
		}
		for _, c := range commits {
			for _, f := range visit(u.Ref, c) {
				faults = append(faults, withRef(f, u.Ref))
			}
		}
	}
	return faults
}

func withRef(f hooks.Fault, ref string) hooks.Fault {
	if f.Ref == "" {
		f.Ref = ref
	}
	return f
}
