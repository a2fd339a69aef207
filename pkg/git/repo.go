package git

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	gitm "github.com/aymanbagabas/git-module"
	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultCacheSize bounds the number of memoized command results held for
// one invocation.
const defaultCacheSize = 128

type runResult struct {
	out []byte
	err error
}

// Repository is a handle on the repository a hook runs against. It wraps
// git-module with a memoizing command runner: the same command and
// arguments run at most once per invocation, successes and failures alike,
// so repeated queries from independent handlers stay deterministic and
// cheap. Handles are exclusively owned by one invocation and never reused.
type Repository struct {
	*gitm.Repository

	// Path is the directory commands run in.
	Path string

	timeout time.Duration
	cache   *lru.Cache[string, runResult]
}

// Open opens the repository at the given path. The timeout bounds every
// command run through the handle.
func Open(path string, timeout time.Duration) (*Repository, error) {
	repo, err := gitm.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", path, err)
	}
	cache, err := lru.New[string, runResult](defaultCacheSize)
	if err != nil {
		return nil, err
	}
	return &Repository{
		Repository: repo,
		Path:       path,
		timeout:    timeout,
		cache:      cache,
	}, nil
}

// Discover opens the repository containing the working directory. Git runs
// hooks with the repository as the working directory, at the top of the
// worktree for client-side hooks and inside the git directory for
// server-side ones, so no upward search is needed.
func Discover(timeout time.Duration) (*Repository, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return Open(wd, timeout)
}

// SetTimeout adjusts the per-command bound after the configuration has
// been read. Zero disables the bound.
func (r *Repository) SetTimeout(d time.Duration) {
	if d == 0 {
		// git-module substitutes its own default for a zero timeout.
		d = -1
	}
	r.timeout = d
}

// Run executes a git command and memoizes its result. The cache is safe
// for concurrent handlers requesting the same key.
func (r *Repository) Run(ctx context.Context, args ...string) ([]byte, error) {
	key := strings.Join(args, "\x00")
	if res, ok := r.cache.Get(key); ok {
		return res.out, res.err
	}
	out, err := gitm.NewCommand(args...).
		WithContext(ctx).
		WithTimeout(r.timeout).
		RunInDir(r.Path)
	r.cache.Add(key, runResult{out: out, err: err})
	return out, err
}

// RunLines runs a git command and splits its output into non-empty lines.
func (r *Repository) RunLines(ctx context.Context, args ...string) ([]string, error) {
	out, err := r.Run(ctx, args...)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// RunStream executes a git command with streaming stdio, bypassing the
// cache. Used for blob content, where buffering and memoizing would hold
// arbitrarily large output in memory.
func (r *Repository) RunStream(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args ...string) error {
	return gitm.NewCommand(args...).
		WithContext(ctx).
		WithTimeout(r.timeout).
		RunInDirWithOptions(r.Path, gitm.RunInDirOptions{
			Stdin:  stdin,
			Stdout: stdout,
			Stderr: stderr,
		})
}

// ConfigList returns the raw layered configuration, system through local
// scope in git's own resolution order, NUL-separated.
func (r *Repository) ConfigList(ctx context.Context) ([]byte, error) {
	return r.Run(ctx, "config", "--list", "-z")
}

// MergeBase returns the best common ancestor of two commits. The error is
// not unwrapped: unrelated histories and tool failures alike are reported,
// and classification treats both as the stricter rewind case.
func (r *Repository) MergeBase(ctx context.Context, a, b Hash) (Hash, error) {
	out, err := r.Run(ctx, "merge-base", a.String(), b.String())
	if err != nil {
		return "", err
	}
	return Hash(strings.TrimSpace(string(out))), nil
}

// CurrentBranch returns the full ref name HEAD points at. Fails on a
// detached HEAD.
func (r *Repository) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.Run(ctx, "symbolic-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// BranchesContaining returns the full names of branches whose history
// includes the given commit.
func (r *Repository) BranchesContaining(ctx context.Context, commit Hash) ([]string, error) {
	return r.RunLines(ctx, "branch", "--contains", commit.String(), "--format=%(refname)")
}

// GitDir resolves the repository's control-data directory to an absolute
// path.
func (r *Repository) GitDir(ctx context.Context) (string, error) {
	out, err := r.Run(ctx, "rev-parse", "--git-dir")
	if err != nil {
		return "", fmt.Errorf("resolve git dir: %w", err)
	}
	dir := strings.TrimSpace(string(out))
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(r.Path, dir)
	}
	return dir, nil
}

// HooksDir resolves the directory git executes hooks from, honoring
// core.hooksPath and linked worktrees.
func (r *Repository) HooksDir(ctx context.Context) (string, error) {
	out, err := r.Run(ctx, "rev-parse", "--git-path", "hooks")
	if err != nil {
		return "", fmt.Errorf("resolve hooks dir: %w", err)
	}
	dir := strings.TrimSpace(string(out))
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(r.Path, dir)
	}
	return dir, nil
}
