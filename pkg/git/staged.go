package git

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// StagedCommit synthesizes a commit record for the commit being created,
// before it exists. The pre-commit hook runs against this record: identity
// comes from the GIT_AUTHOR_* and GIT_COMMITTER_* environment, falling
// back to git's own identity resolution, changes come from the index. The
// record carries the zero id and an empty message, the message does not
// exist yet at this point.
func (r *Repository) StagedCommit(ctx context.Context) (*Commit, error) {
	c := &Commit{ID: ZeroHash}

	var err error
	c.Author, err = r.identity(ctx, "GIT_AUTHOR_NAME", "GIT_AUTHOR_EMAIL", "GIT_AUTHOR_IDENT")
	if err != nil {
		return nil, err
	}
	c.Committer, err = r.identity(ctx, "GIT_COMMITTER_NAME", "GIT_COMMITTER_EMAIL", "GIT_COMMITTER_IDENT")
	if err != nil {
		return nil, err
	}

	// Diff the index against HEAD, or against the empty tree for the
	// repository's first commit.
	base := Hash(EmptyTree)
	if out, err := r.Run(ctx, "rev-parse", "--verify", "--quiet", "HEAD"); err == nil {
		head := Hash(strings.TrimSpace(string(out)))
		c.Parents = []Hash{head}
		base = head
	}
	out, err := r.Run(ctx, "diff-index", "--cached", "--name-status", base.String())
	if err != nil {
		return nil, fmt.Errorf("diff index: %w", err)
	}
	c.Changes, err = parseNameStatus(string(out))
	if err != nil {
		return nil, fmt.Errorf("diff index: %w", err)
	}
	return c, nil
}

func (r *Repository) identity(ctx context.Context, nameVar, emailVar, identVar string) (Signature, error) {
	sig := Signature{
		Name:  os.Getenv(nameVar),
		Email: os.Getenv(emailVar),
	}
	if sig.Name != "" && sig.Email != "" {
		return sig, nil
	}
	out, err := r.Run(ctx, "var", identVar)
	if err != nil {
		return Signature{}, fmt.Errorf("resolve %s: %w", identVar, err)
	}
	ident, err := parseIdent(strings.TrimSpace(string(out)))
	if err != nil {
		return Signature{}, err
	}
	if sig.Name == "" {
		sig.Name = ident.Name
	}
	if sig.Email == "" {
		sig.Email = ident.Email
	}
	return sig, nil
}

// parseIdent splits an ident line of the form "Name <email> time zone".
func parseIdent(line string) (Signature, error) {
	start := strings.Index(line, "<")
	end := strings.Index(line, ">")
	if start < 0 || end < start {
		return Signature{}, fmt.Errorf("malformed ident %q", line)
	}
	return Signature{
		Name:  strings.TrimSpace(line[:start]),
		Email: line[start+1 : end],
	}, nil
}
