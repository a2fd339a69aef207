package plugin

import (
	"context"
	"strings"
	"testing"

	"github.com/matryer/is"

	"github.com/charmbracelet/githooks/pkg/config"
	"github.com/charmbracelet/githooks/pkg/git"
	"github.com/charmbracelet/githooks/pkg/hooks"
	"github.com/charmbracelet/githooks/pkg/test"
)

func pushUpdate(old, new string) []git.RefUpdate {
	return []git.RefUpdate{{Ref: "refs/heads/master", Old: git.Hash(old), New: git.Hash(new)}}
}

func TestCheckFileACL(t *testing.T) {
	test.RequireGit(t)
	is := is.New(t)

	fx := test.NewRepo(t)
	fx.WriteFile("README.md", "hi\n")
	c1 := fx.Commit("initial")
	fx.WriteFile("docs/guide.md", "guide\n")
	fx.WriteFile("src/main.go", "package main\n")
	c2 := fx.Commit("add docs and code")

	cfg := config.NewStore()
	cfg.Set("checkfile", "acl", "allow AMD ^docs/")
	inv := invocationFor(t, hooks.PreReceive, fx.Open(), cfg, "alice")
	inv.Updates = pushUpdate(c1, c2)

	faults, err := NewCheckFile().Run(context.Background(), inv)
	is.NoErr(err)
	is.Equal(len(faults), 1)
	is.Equal(faults[0].Option, "checkfile.acl")
	is.True(strings.Contains(faults[0].Message, "src/main.go"))
	is.Equal(faults[0].Commit, c2)
}

func TestCheckFileMaxSize(t *testing.T) {
	test.RequireGit(t)
	is := is.New(t)

	fx := test.NewRepo(t)
	fx.WriteFile("README.md", "hi\n")
	c1 := fx.Commit("initial")
	fx.WriteFile("blob.bin", strings.Repeat("x", 100))
	c2 := fx.Commit("add blob")

	cfg := config.NewStore()
	cfg.Set("checkfile", "maxsize", "*.bin 50")
	cfg.Set("checkfile", "sizelimit", "80")
	inv := invocationFor(t, hooks.PreReceive, fx.Open(), cfg, "alice")
	inv.Updates = pushUpdate(c1, c2)

	faults, err := NewCheckFile().Run(context.Background(), inv)
	is.NoErr(err)
	is.Equal(faultOptions(faults), []string{"checkfile.maxsize", "checkfile.sizelimit"})
	is.True(strings.Contains(faults[0].Message, "100 B"))
}

func TestCheckFileChecker(t *testing.T) {
	test.RequireGit(t)
	is := is.New(t)

	fx := test.NewRepo(t)
	fx.WriteFile("README.md", "hi\n")
	c1 := fx.Commit("initial")
	fx.WriteFile("notes.txt", "content\n")
	c2 := fx.Commit("add notes")

	cfg := storeWith(t, "checkfile.name", "*.txt true")
	inv := invocationFor(t, hooks.PreReceive, fx.Open(), cfg, "alice")
	inv.Updates = pushUpdate(c1, c2)
	faults, err := NewCheckFile().Run(context.Background(), inv)
	is.NoErr(err)
	is.Equal(len(faults), 0)

	cfg = storeWith(t, "checkfile.name", "*.txt false")
	inv = invocationFor(t, hooks.PreReceive, fx.Open(), cfg, "alice")
	inv.Updates = pushUpdate(c1, c2)
	faults, err = NewCheckFile().Run(context.Background(), inv)
	is.NoErr(err)
	is.Equal(len(faults), 1)
	is.Equal(faults[0].Kind, hooks.PolicyViolation)
	is.Equal(faults[0].Option, "checkfile.name")
	is.True(strings.Contains(faults[0].Message, "notes.txt"))
}

func TestCheckFileDeletionsSkipped(t *testing.T) {
	test.RequireGit(t)
	is := is.New(t)

	fx := test.NewRepo(t)
	fx.WriteFile("notes.txt", "content\n")
	c1 := fx.Commit("initial")
	fx.Remove("notes.txt")
	c2 := fx.Commit("drop notes")

	// The checker would fail, but deletions carry no blob to check.
	cfg := storeWith(t, "checkfile.name", "*.txt false")
	inv := invocationFor(t, hooks.PreReceive, fx.Open(), cfg, "alice")
	inv.Updates = pushUpdate(c1, c2)
	faults, err := NewCheckFile().Run(context.Background(), inv)
	is.NoErr(err)
	is.Equal(len(faults), 0)
}

func TestCheckFileStaged(t *testing.T) {
	test.RequireGit(t)
	is := is.New(t)

	fx := test.NewRepo(t)
	fx.WriteFile("README.md", "hi\n")
	fx.Commit("initial")
	fx.WriteFile("secret.pem", "key\n")

	t.Setenv("GIT_AUTHOR_NAME", "Test User")
	t.Setenv("GIT_AUTHOR_EMAIL", "test@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "Test User")
	t.Setenv("GIT_COMMITTER_EMAIL", "test@example.com")

	cfg := storeWith(t, "checkfile.acl", "deny AMD ^.*\\.pem$")
	inv := invocationFor(t, hooks.PreCommit, fx.Open(), cfg, "alice")

	faults, err := NewCheckFile().Run(context.Background(), inv)
	is.NoErr(err)
	is.Equal(len(faults), 1)
	is.True(strings.Contains(faults[0].Message, "secret.pem"))
	is.Equal(faults[0].Commit, "")
}

func TestCheckFileBadConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  []string
		opt  string
	}{
		{"ref letters in file table", []string{"checkfile.acl", "allow CRUD ^docs/"}, "checkfile.acl"},
		{"checker without command", []string{"checkfile.name", "*.txt"}, "checkfile.name"},
		{"bad checker quoting", []string{"checkfile.name", "*.txt 'unterminated"}, "checkfile.name"},
		{"bad size", []string{"checkfile.maxsize", "*.bin huge"}, "checkfile.maxsize"},
		{"maxsize missing size", []string{"checkfile.maxsize", "*.bin"}, "checkfile.maxsize"},
		{"bad sizelimit", []string{"checkfile.sizelimit", "big"}, "checkfile.sizelimit"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			is := is.New(t)
			inv := invocationFor(t, hooks.PreReceive, nil, storeWith(t, c.cfg...), "alice")
			faults, err := NewCheckFile().Run(context.Background(), inv)
			is.NoErr(err)
			is.Equal(len(faults), 1)
			is.Equal(faults[0].Kind, hooks.ConfigError)
			is.Equal(faults[0].Option, c.opt)
		})
	}
}
