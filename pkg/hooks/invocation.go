package hooks

import (
	"context"
	"fmt"
	"os"
	"os/user"

	"github.com/charmbracelet/githooks/pkg/access"
	"github.com/charmbracelet/githooks/pkg/config"
	"github.com/charmbracelet/githooks/pkg/git"
	"github.com/charmbracelet/log"
)

// GerritArgs carries the flag values a Gerrit hook invocation provides.
// The change fields are set for patchset-created and draft-published, the
// rev fields for ref-update.
type GerritArgs struct {
	Change           string
	ChangeURL        string
	Project          string
	Branch           string
	Topic            string
	Commit           string
	Uploader         string
	UploaderUsername string
	Patchset         string
	Refname          string
	OldRev           string
	NewRev           string
}

// Invocation is the live handle for one hook run. It carries the resolved
// configuration view, the authenticated user, the normalized ref updates,
// and the repository handle whose command cache all handlers share. An
// invocation is built at dispatch start and discarded at dispatch end,
// nothing survives into the next run.
type Invocation struct {
	Point  HookPoint
	Args   []string
	Repo   *git.Repository
	Config *config.Store
	Env    config.Env
	User   string

	// Updates are the ref changes the invocation carries, already
	// filtered by the githooks.ref and githooks.noref specs.
	Updates []git.RefUpdate

	// MessageFile is the commit message file path handed to the
	// commit-msg and prepare-commit-msg hooks.
	MessageFile string

	// Gerrit is set for Gerrit hook points.
	Gerrit *GerritArgs

	Logger  *log.Logger
	matcher *access.Matcher
}

// NewInvocation assembles the handle for one hook run: it parses the group
// and admin tables, resolves the authenticated user, and applies the ref
// filters. A malformed group or admin table is fatal for the whole
// invocation, there is no safe policy default without them.
func NewInvocation(point HookPoint, repo *git.Repository, cfg *config.Store, env config.Env, logger *log.Logger) (*Invocation, error) {
	groups, err := access.ParseGroups(cfg.GetAll("githooks", "groups"))
	if err != nil {
		return nil, fmt.Errorf("option githooks.groups: %w", err)
	}
	admins, err := access.ParseUserSpecs(config.Split(cfg.GetAll("githooks", "admin")))
	if err != nil {
		return nil, fmt.Errorf("option githooks.admin: %w", err)
	}
	inv := &Invocation{
		Point:   point,
		Repo:    repo,
		Config:  cfg,
		Env:     env,
		User:    resolveUser(env, cfg),
		Logger:  logger,
		matcher: access.NewMatcher(groups, admins),
	}
	return inv, nil
}

// resolveUser determines the authenticated username: the GITHOOKS_USER
// override, then the variable named by githooks.userenv, then USER, then
// the process owner.
func resolveUser(env config.Env, cfg *config.Store) string {
	if env.User != "" {
		return env.User
	}
	userenv := "USER"
	if v, ok := cfg.Get("githooks", "userenv"); ok && v != "" {
		userenv = v
	}
	if v := os.Getenv(userenv); v != "" {
		return v
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

// Matcher returns the user matcher built from the group and admin tables.
func (inv *Invocation) Matcher() *access.Matcher {
	return inv.matcher
}

// IsAdmin reports whether the invocation's user is an administrator.
func (inv *Invocation) IsAdmin() bool {
	return inv.matcher.IsAdmin(inv.User)
}

// SetUpdates installs the invocation's ref updates after filtering them
// through the githooks.ref and githooks.noref specs. When include specs
// are configured only matching refs are checked; refs matching an exclude
// spec are skipped. Skipped refs pass through without policy evaluation.
func (inv *Invocation) SetUpdates(updates []git.RefUpdate) error {
	include, err := parseRefSpecs(inv.Config, "ref")
	if err != nil {
		return err
	}
	exclude, err := parseRefSpecs(inv.Config, "noref")
	if err != nil {
		return err
	}
	filtered := make([]git.RefUpdate, 0, len(updates))
	for _, u := range updates {
		if len(include) > 0 && !matchAnyTarget(include, u.Ref) {
			inv.Logger.Debug("ref not covered by githooks.ref, skipping", "ref", u.Ref)
			continue
		}
		if matchAnyTarget(exclude, u.Ref) {
			inv.Logger.Debug("ref excluded by githooks.noref, skipping", "ref", u.Ref)
			continue
		}
		filtered = append(filtered, u)
	}
	inv.Updates = filtered
	return nil
}

func parseRefSpecs(cfg *config.Store, key string) ([]access.TargetSpec, error) {
	values := config.Split(cfg.GetAll("githooks", key))
	specs := make([]access.TargetSpec, 0, len(values))
	for _, v := range values {
		spec, err := access.ParseTarget(v)
		if err != nil {
			return nil, fmt.Errorf("option githooks.%s: %w", key, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func matchAnyTarget(specs []access.TargetSpec, ref string) bool {
	for _, spec := range specs {
		if spec.Match(ref) {
			return true
		}
	}
	return false
}

// Commits returns the commit records a ref update introduces, through the
// repository's per-invocation cache.
func (inv *Invocation) Commits(ctx context.Context, u git.RefUpdate) ([]*git.Commit, error) {
	return inv.Repo.CommitsInRange(ctx, u)
}
