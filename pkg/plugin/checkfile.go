package plugin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/githooks/pkg/access"
	"github.com/charmbracelet/githooks/pkg/git"
	"github.com/charmbracelet/githooks/pkg/hooks"
	"github.com/dustin/go-humanize"
	"github.com/gobwas/glob"
	"github.com/kballard/go-shellquote"
)

// checkerOutputLimit caps how much of an external checker's output is
// carried into a fault detail.
const checkerOutputLimit = 8 << 10

// CheckFile polices the files a commit touches: an ACL over add, modify
// and delete, external checker commands matched by glob, and blob size
// limits.
type CheckFile struct{}

// NewCheckFile returns the plugin.
func NewCheckFile() *CheckFile {
	return &CheckFile{}
}

// Name implements hooks.Handler.
func (*CheckFile) Name() string { return "checkfile" }

// Points implements hooks.Handler.
func (*CheckFile) Points() []hooks.HookPoint {
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

type fileRules struct {
	acl       []access.Rule
	checkers  []fileChecker
	maxsize   []sizeRule
	sizelimit uint64
}

func (r fileRules) empty() bool {
	return len(r.acl) == 0 && len(r.checkers) == 0 && len(r.maxsize) == 0 && r.sizelimit == 0
}

// fileChecker is one "GLOB COMMAND [ARG...]" value. The staged or
// committed blob is written to a temporary file whose path is appended as
// the command's last argument.
type fileChecker struct {
	glob glob.Glob
	argv []string
}

type sizeRule struct {
	glob  glob.Glob
	limit uint64
	raw   string
}

// Run implements hooks.Handler.
func (p *CheckFile) Run(ctx context.Context, inv *hooks.Invocation) ([]hooks.Fault, error) {
	rules, faults := p.parseRules(inv)
	if len(faults) > 0 {
		return faults, nil
	}
	if rules.empty() {
		inv.Logger.Warn("checkfile is enabled but no rules are configured")
		return nil, nil
	}

	return eachCommit(ctx, inv, p.Name(), func(ref string, c *git.Commit) []hooks.Fault {
		return p.checkCommit(ctx, inv, rules, ref, c)
	}), nil
}

func (p *CheckFile) parseRules(inv *hooks.Invocation) (fileRules, []hooks.Fault) {
	var (
		rules  fileRules
		faults []hooks.Fault
	)
	cfgErr := func(option string, err error) {
		faults = append(faults, hooks.ConfigFault(p.Name(), "checkfile."+option, err))
	}

	acl, err := access.ParseRules(inv.Config.GetAll("checkfile", "acl"), access.FileActions)
	if err != nil {
		cfgErr("acl", err)
	}
	rules.acl = acl

	for _, v := range inv.Config.GetAll("checkfile", "name") {
		words, err := shellquote.Split(v)
		if err != nil {
			cfgErr("name", fmt.Errorf("invalid checker %q: %w", v, err))
			continue
		}
		if len(words) < 2 {
			cfgErr("name", fmt.Errorf("invalid checker %q, expected \"GLOB COMMAND [ARG...]\"", v))
			continue
		}
		g, err := glob.Compile(words[0], '/')
		if err != nil {
			cfgErr("name", fmt.Errorf("invalid pattern %q: %w", words[0], err))
			continue
		}
		rules.checkers = append(rules.checkers, fileChecker{glob: g, argv: words[1:]})
	}

	for _, v := range inv.Config.GetAll("checkfile", "maxsize") {
		fields := strings.Fields(v)
		if len(fields) != 2 {
			cfgErr("maxsize", fmt.Errorf("invalid limit %q, expected \"GLOB SIZE\"", v))
			continue
		}
		g, err := glob.Compile(fields[0], '/')
		if err != nil {
			cfgErr("maxsize", fmt.Errorf("invalid pattern %q: %w", fields[0], err))
			continue
		}
		limit, err := humanize.ParseBytes(fields[1])
		if err != nil {
			cfgErr("maxsize", fmt.Errorf("invalid size %q: %w", fields[1], err))
			continue
		}
		rules.maxsize = append(rules.maxsize, sizeRule{glob: g, limit: limit, raw: v})
	}

	// sizelimit predates maxsize and has no pattern. It still applies to
	// every file, on top of any maxsize rules.
	if v, ok := inv.Config.Get("checkfile", "sizelimit"); ok {
		inv.Logger.Warn("option checkfile.sizelimit is deprecated, use checkfile.maxsize instead")
		limit, err := humanize.ParseBytes(v)
		if err != nil {
			cfgErr("sizelimit", fmt.Errorf("invalid size %q: %w", v, err))
		} else {
			rules.sizelimit = limit
		}
	}
	return rules, faults
}

func (p *CheckFile) checkCommit(ctx context.Context, inv *hooks.Invocation, rules fileRules, ref string, c *git.Commit) []hooks.Fault {
	var faults []hooks.Fault
	fault := func(option, format string, args ...interface{}) {
		f := hooks.Fault{
			Kind:    hooks.PolicyViolation,
			Plugin:  p.Name(),
			Ref:     ref,
			Commit:  c.ID.String(),
			Option:  "checkfile." + option,
			Message: fmt.Sprintf(format, args...),
		}
		if c.ID.IsZero() {
			f.Commit = ""
		}
		faults = append(faults, f)
	}

	for _, change := range c.Changes {
		if len(rules.acl) > 0 {
			action := access.Action(change.Status)
			decision, rule := access.Evaluate(rules.acl, inv.Matcher(), inv.User, action, change.Path)
			switch decision {
			case access.Denied:
				fault("acl", "%s of %s denied for %s by rule %q", statusWord(change.Status), change.Path, inv.User, rule)
			case access.NoMatch:
				fault("acl", "no rule allows %s of %s for %s", statusWord(change.Status), change.Path, inv.User)
			}
		}

		// Deleted files have no blob to size or lint.
		if change.Status == git.StatusDeleted {
			continue
		}
		rev := blobRev(c, change.Path)

		if len(rules.maxsize) > 0 || rules.sizelimit > 0 {
			size, err := p.blobSize(ctx, inv, rev)
			if err != nil {
				faults = append(faults, hooks.ToolFault(p.Name(), fmt.Errorf("size of %s: %w", change.Path, err)))
				continue
			}
			for _, sr := range rules.maxsize {
				if sr.glob.Match(change.Path) && size > sr.limit {
					fault("maxsize", "%s is %s, limit is %s", change.Path, humanize.IBytes(size), humanize.IBytes(sr.limit))
				}
			}
			if rules.sizelimit > 0 && size > rules.sizelimit {
				fault("sizelimit", "%s is %s, limit is %s", change.Path, humanize.IBytes(size), humanize.IBytes(rules.sizelimit))
			}
		}

		for _, checker := range rules.checkers {
			if !checker.glob.Match(change.Path) {
				continue
			}
			faults = append(faults, p.runChecker(ctx, inv, checker, rev, ref, c, change.Path)...)
		}
	}
	return faults
}

// blobRev names the blob for path in rev syntax: the index for the staged
// pseudo-commit, the commit's tree otherwise.
func blobRev(c *git.Commit, path string) string {
	if c.ID.IsZero() {
		return ":" + path
	}
	return c.ID.String() + ":" + path
}

func (p *CheckFile) blobSize(ctx context.Context, inv *hooks.Invocation, rev string) (uint64, error) {
	out, err := inv.Repo.Run(ctx, "cat-file", "-s", rev)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(strings.TrimSpace(string(out)), 10, 64)
}

func (p *CheckFile) runChecker(ctx context.Context, inv *hooks.Invocation, checker fileChecker, rev, ref string, c *git.Commit, path string) []hooks.Fault {
	toolFault := func(err error) []hooks.Fault {
		return []hooks.Fault{hooks.ToolFault(p.Name(), fmt.Errorf("check %s: %w", path, err))}
	}

	// Checkers get the blob as a file, not the working tree path: the
	// content under review may exist only in the index or in a pushed
	// commit. Keep the extension so linters can detect the file type.
	tmp, err := os.CreateTemp("", "githooks-*"+filepath.Ext(path))
	if err != nil {
		return toolFault(err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	err = inv.Repo.RunStream(ctx, nil, tmp, io.Discard, "cat-file", "blob", rev)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return toolFault(err)
	}

	argv := append(append([]string{}, checker.argv...), tmp.Name())
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) //nolint:gosec
	cmd.Dir = inv.Repo.Path
	out, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		// Could not run at all (missing binary, killed by the deadline).
		return toolFault(fmt.Errorf("%s: %w", argv[0], err))
	}
	f := hooks.Fault{
		Kind:    hooks.PolicyViolation,
		Plugin:  p.Name(),
		Ref:     ref,
		Commit:  c.ID.String(),
		Option:  "checkfile.name",
		Message: fmt.Sprintf("%s rejected by %s (exit status %d)", path, argv[0], exitErr.ExitCode()),
		Detail:  truncateOutput(out),
	}
	if c.ID.IsZero() {
		f.Commit = ""
	}
	return []hooks.Fault{f}
}

func statusWord(s git.FileStatus) string {
	switch s {
	case git.StatusAdded:
		return "add"
	case git.StatusModified:
		return "modify"
	case git.StatusDeleted:
		return "delete"
	}
	return s.String()
}

func truncateOutput(out []byte) string {
	out = bytes.TrimSpace(out)
	if len(out) <= checkerOutputLimit {
		return string(out)
	}
	return string(out[:checkerOutputLimit]) + "\n... (output truncated)"
}
