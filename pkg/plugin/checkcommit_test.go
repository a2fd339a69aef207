package plugin

import (
	"context"
	"strings"
	"testing"

	"github.com/matryer/is"

	"github.com/charmbracelet/githooks/pkg/git"
	"github.com/charmbracelet/githooks/pkg/hooks"
	"github.com/charmbracelet/githooks/pkg/test"
)

var testID = git.Hash(strings.Repeat("a", 40))

func record(author, committer git.Signature, parents int) *git.Commit {
	c := &git.Commit{ID: testID, Author: author, Committer: committer}
	for i := 0; i < parents; i++ {
		c.Parents = append(c.Parents, testID)
	}
	return c
}

func TestCheckCommitIdentity(t *testing.T) {
	corp := git.Signature{Name: "Test User", Email: "test@example.com"}
	outsider := git.Signature{Name: "Someone Else", Email: "else@elsewhere.org"}

	cases := []struct {
		name   string
		cfg    []string
		commit *git.Commit
		want   []string
	}{
		{
			name:   "author email spec satisfied",
			cfg:    []string{"checkcommit.author-email", "^.*@example\\.com$"},
			commit: record(corp, corp, 1),
			want:   nil,
		},
		{
			name:   "author email spec violated",
			cfg:    []string{"checkcommit.author-email", "^.*@example\\.com$"},
			commit: record(outsider, corp, 1),
			want:   []string{"checkcommit.author-email"},
		},
		{
			name:   "author name literal",
			cfg:    []string{"checkcommit.author-name", "Test User"},
			commit: record(outsider, corp, 1),
			want:   []string{"checkcommit.author-name"},
		},
		{
			name:   "committer checked independently",
			cfg:    []string{"checkcommit.committer-email", "^.*@example\\.com$"},
			commit: record(outsider, corp, 1),
			want:   nil,
		},
		{
			name:   "invalid email",
			cfg:    []string{"checkcommit.email-valid", "true"},
			commit: record(git.Signature{Name: "X", Email: "bad@??"}, corp, 1),
			want:   []string{"checkcommit.email-valid"},
		},
		{
			name:   "valid email",
			cfg:    []string{"checkcommit.email-valid", "true"},
			commit: record(corp, corp, 1),
			want:   nil,
		},
	}

	p := NewCheckCommit()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			is := is.New(t)
			inv := invocationFor(t, hooks.PreReceive, nil, storeWith(t, c.cfg...), "alice")
			rules, faults := p.parseRules(inv)
			is.Equal(len(faults), 0)
			got := p.check(inv, rules, "refs/heads/master", c.commit)
			is.Equal(faultOptions(got), c.want)
			for _, f := range got {
				is.Equal(f.Commit, testID.String())
				is.Equal(f.Ref, "refs/heads/master")
			}
		})
	}
}

func TestCheckCommitMerger(t *testing.T) {
	is := is.New(t)
	sig := git.Signature{Name: "Test User", Email: "test@example.com"}
	merge := record(sig, sig, 2)
	p := NewCheckCommit()

	inv := invocationFor(t, hooks.PreReceive, nil, storeWith(t, "checkcommit.merger", "boss"), "alice")
	rules, faults := p.parseRules(inv)
	is.Equal(len(faults), 0)
	got := p.check(inv, rules, "refs/heads/master", merge)
	is.Equal(len(got), 1)
	is.Equal(got[0].Option, "checkcommit.merger")

	// The merger spec does not constrain regular commits.
	got = p.check(inv, rules, "refs/heads/master", record(sig, sig, 1))
	is.Equal(len(got), 0)

	inv = invocationFor(t, hooks.PreReceive, nil, storeWith(t, "checkcommit.merger", "boss"), "boss")
	rules, _ = p.parseRules(inv)
	got = p.check(inv, rules, "refs/heads/master", merge)
	is.Equal(len(got), 0)
}

func TestCheckCommitMergerGroup(t *testing.T) {
	is := is.New(t)
	sig := git.Signature{Name: "Test User", Email: "test@example.com"}
	cfg := storeWith(t,
		"githooks.groups", "releasers = boss carol",
		"checkcommit.merger", "@releasers",
	)
	inv := invocationFor(t, hooks.PreReceive, nil, cfg, "carol")
	p := NewCheckCommit()
	rules, faults := p.parseRules(inv)
	is.Equal(len(faults), 0)
	is.Equal(len(p.check(inv, rules, "refs/heads/master", record(sig, sig, 2))), 0)
}

func TestCheckCommitBadSpec(t *testing.T) {
	is := is.New(t)
	inv := invocationFor(t, hooks.PreReceive, nil, storeWith(t, "checkcommit.author-name", "^["), "alice")
	_, faults := NewCheckCommit().parseRules(inv)
	is.Equal(len(faults), 1)
	is.Equal(faults[0].Kind, hooks.ConfigError)
	is.Equal(faults[0].Option, "checkcommit.author-name")
}

func TestCheckCommitStagedBadAuthorEmail(t *testing.T) {
	test.RequireGit(t)
	is := is.New(t)

	fx := test.NewRepo(t)
	fx.WriteFile("a.txt", "hello\n")
	fx.Commit("initial")
	fx.WriteFile("b.txt", "world\n")

	t.Setenv("GIT_AUTHOR_NAME", "Bad Actor")
	t.Setenv("GIT_AUTHOR_EMAIL", "bad@??")
	t.Setenv("GIT_COMMITTER_NAME", "Bad Actor")
	t.Setenv("GIT_COMMITTER_EMAIL", "good@example.com")

	cfg := storeWith(t, "checkcommit.email-valid", "true")
	inv := invocationFor(t, hooks.PreCommit, fx.Open(), cfg, "alice")

	faults, err := NewCheckCommit().Run(context.Background(), inv)
	is.NoErr(err)
	is.Equal(len(faults), 1)
	is.Equal(faults[0].Option, "checkcommit.email-valid")
	is.True(strings.Contains(faults[0].Message, "author email"))
	is.Equal(faults[0].Commit, "") // no commit exists yet
}
