package plugin

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/charmbracelet/githooks/pkg/access"
	"github.com/charmbracelet/githooks/pkg/git"
	"github.com/charmbracelet/githooks/pkg/hooks"
)

// CheckCommit enforces identity policy on commits: author and committer
// names and emails must match configured specs, emails may be required to
// parse as real addresses, and merge commits may be restricted to a set of
// mergers.
type CheckCommit struct{}

// NewCheckCommit returns the plugin.
func NewCheckCommit() *CheckCommit {
	return &CheckCommit{}
}

// Name implements hooks.Handler.
func (*CheckCommit) Name() string { return "checkcommit" }

// Points implements hooks.Handler.
func (*CheckCommit) Points() []hooks.HookPoint {
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

type identityRules struct {
	authorName     []access.UserSpec
	authorEmail    []access.UserSpec
	committerName  []access.UserSpec
	committerEmail []access.UserSpec
	emailValid     bool
	mergers        []access.UserSpec
}

// Run implements hooks.Handler.
func (p *CheckCommit) Run(ctx context.Context, inv *hooks.Invocation) ([]hooks.Fault, error) {
	rules, faults := p.parseRules(inv)
	if len(faults) > 0 {
		return faults, nil
	}
	return eachCommit(ctx, inv, p.Name(), func(ref string, c *git.Commit) []hooks.Fault {
		return p.check(inv, rules, ref, c)
	}), nil
}

func (p *CheckCommit) parseRules(inv *hooks.Invocation) (identityRules, []hooks.Fault) {
	var (
		rules  identityRules
		faults []hooks.Fault
	)
	specs := func(option string) []access.UserSpec {
		ss, err := access.ParseUserSpecs(inv.Config.GetAll("checkcommit", option))
		if err != nil {
			faults = append(faults, hooks.ConfigFault(p.Name(), "checkcommit."+option, err))
		}
		return ss
	}
	rules.authorName = specs("author-name")
	rules.authorEmail = specs("author-email")
	rules.committerName = specs("committer-name")
	rules.committerEmail = specs("committer-email")
	rules.mergers = specs("merger")

	valid, _, err := inv.Config.GetBool("checkcommit", "email-valid")
	if err != nil {
		faults = append(faults, hooks.ConfigFault(p.Name(), "checkcommit.email-valid", err))
	}
	rules.emailValid = valid
	return rules, faults
}

func (p *CheckCommit) check(inv *hooks.Invocation, rules identityRules, ref string, c *git.Commit) []hooks.Fault {
	var faults []hooks.Fault
	fault := func(option, format string, args ...interface{}) {
		faults = append(faults, hooks.Fault{
			Kind:    hooks.PolicyViolation,
			Plugin:  p.Name(),
			Ref:     ref,
			Commit:  c.ID.String(),
			Option:  "checkcommit." + option,
			Message: fmt.Sprintf(format, args...),
		})
	}

	m := inv.Matcher()
	if len(rules.authorName) > 0 && !m.MatchAny(c.Author.Name, rules.authorName) {
		fault("author-name", "author name %q matches no configured spec", c.Author.Name)
	}
	if len(rules.authorEmail) > 0 && !m.MatchAny(c.Author.Email, rules.authorEmail) {
		fault("author-email", "author email %q matches no configured spec", c.Author.Email)
	}
	if len(rules.committerName) > 0 && !m.MatchAny(c.Committer.Name, rules.committerName) {
		fault("committer-name", "committer name %q matches no configured spec", c.Committer.Name)
	}
	if len(rules.committerEmail) > 0 && !m.MatchAny(c.Committer.Email, rules.committerEmail) {
		fault("committer-email", "committer email %q matches no configured spec", c.Committer.Email)
	}

	if rules.emailValid {
		if !validAddress(c.Author.Email) {
			fault("email-valid", "author email %q is not a valid address", c.Author.Email)
		}
		if !validAddress(c.Committer.Email) {
			fault("email-valid", "committer email %q is not a valid address", c.Committer.Email)
		}
	}

	if c.IsMerge() && len(rules.mergers) > 0 && !m.MatchAny(inv.User, rules.mergers) {
		fault("merger", "merge commits may not be pushed by %s", inv.User)
	}

	// The staged record has no id yet; drop the placeholder from faults.
	if c.ID.IsZero() {
		for i := range faults {
			faults[i].Commit = ""
		}
	}
	return faults
}

func validAddress(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
