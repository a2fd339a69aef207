// Package test provides throwaway git repositories for tests.
package test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/charmbracelet/githooks/pkg/git"
)

// RequireGit skips the test when git is not installed. Fixtures build
// without it, but the hook machinery shells out to git to evaluate them.
func RequireGit(tb testing.TB) {
	tb.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		tb.Skip("git not found in PATH")
	}
}

// Repo is a repository fixture written through go-git.
type Repo struct {
	Path string

	tb testing.TB
	gg *gogit.Repository
	wt *gogit.Worktree
}

// NewRepo initializes an empty repository in a temporary directory. The
// default branch is master.
func NewRepo(tb testing.TB) *Repo {
	tb.Helper()
	path := tb.TempDir()
	gg, err := gogit.PlainInit(path, false)
	if err != nil {
		tb.Fatal(err)
	}
	wt, err := gg.Worktree()
	if err != nil {
		tb.Fatal(err)
	}
	return &Repo{Path: path, tb: tb, gg: gg, wt: wt}
}

// Open returns the hook-side handle for the fixture.
func (r *Repo) Open() *git.Repository {
	r.tb.Helper()
	repo, err := git.Open(r.Path, time.Minute)
	if err != nil {
		r.tb.Fatal(err)
	}
	return repo
}

// WriteFile writes a file and stages it.
func (r *Repo) WriteFile(name, content string) {
	r.tb.Helper()
	path := filepath.Join(r.Path, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.tb.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		r.tb.Fatal(err)
	}
	if _, err := r.wt.Add(name); err != nil {
		r.tb.Fatal(err)
	}
}

// Remove deletes a file and stages the deletion.
func (r *Repo) Remove(name string) {
	r.tb.Helper()
	if _, err := r.wt.Remove(name); err != nil {
		r.tb.Fatal(err)
	}
}

// Commit commits whatever is staged and returns the commit id.
func (r *Repo) Commit(message string) string {
	return r.CommitAs("Test User", "test@example.com", message)
}

// CommitAs commits with an explicit author and committer identity.
func (r *Repo) CommitAs(name, email, message string) string {
	r.tb.Helper()
	sig := &object.Signature{Name: name, Email: email, When: time.Now()}
	id, err := r.wt.Commit(message, &gogit.CommitOptions{
		Author:            sig,
		Committer:         sig,
		AllowEmptyCommits: true,
	})
	if err != nil {
		r.tb.Fatal(err)
	}
	return id.String()
}

// Branch creates and checks out a branch at the current HEAD.
func (r *Repo) Branch(name string) {
	r.tb.Helper()
	err := r.wt.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Create: true,
	})
	if err != nil {
		r.tb.Fatal(err)
	}
}

// Checkout switches to an existing branch.
func (r *Repo) Checkout(name string) {
	r.tb.Helper()
	err := r.wt.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
	})
	if err != nil {
		r.tb.Fatal(err)
	}
}

// Merge writes a merge commit joining HEAD and other, reusing HEAD's
// tree, and advances the current branch to it.
func (r *Repo) Merge(other, message string) string {
	r.tb.Helper()
	return r.Rewrite(message, r.Head(), other)
}

// Rewrite writes a commit carrying HEAD's tree and the given parents and
// moves the current branch to it, bypassing the worktree. With the
// current commit's own parents it acts like an amend.
func (r *Repo) Rewrite(message string, parents ...string) string {
	r.tb.Helper()
	headRef, err := r.gg.Head()
	if err != nil {
		r.tb.Fatal(err)
	}
	head, err := r.gg.CommitObject(headRef.Hash())
	if err != nil {
		r.tb.Fatal(err)
	}
	sig := object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()}
	commit := &object.Commit{
		Author:    sig,
		Committer: sig,
		Message:   message,
		TreeHash:  head.TreeHash,
	}
	for _, p := range parents {
		commit.ParentHashes = append(commit.ParentHashes, plumbing.NewHash(p))
	}
	obj := r.gg.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		r.tb.Fatal(err)
	}
	id, err := r.gg.Storer.SetEncodedObject(obj)
	if err != nil {
		r.tb.Fatal(err)
	}
	if err := r.gg.Storer.SetReference(plumbing.NewHashReference(headRef.Name(), id)); err != nil {
		r.tb.Fatal(err)
	}
	return id.String()
}

// Tag creates a lightweight tag at the given commit.
func (r *Repo) Tag(name, id string) {
	r.tb.Helper()
	if _, err := r.gg.CreateTag(name, plumbing.NewHash(id), nil); err != nil {
		r.tb.Fatal(err)
	}
}

// Head returns the current HEAD commit id.
func (r *Repo) Head() string {
	r.tb.Helper()
	ref, err := r.gg.Head()
	if err != nil {
		r.tb.Fatal(err)
	}
	return ref.Hash().String()
}
