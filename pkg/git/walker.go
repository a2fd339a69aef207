package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	gitm "github.com/aymanbagabas/git-module"
)

// logFormat lays out one machine-readable entry per commit: an entry
// marker, NUL-separated ident fields, the raw message closed by a field
// terminator, then the name-status lines git appends. Ident lines cannot
// carry the separator bytes and paths are C-quoted, so only a crafted
// commit message can disturb the framing, and a disturbed frame fails the
// parse instead of dropping records.
const logFormat = "--format=%x02%H%x00%P%x00%an%x00%ae%x00%cn%x00%ce%x00%B%x01"

// FileStatus is the single-letter change status of one file in a commit.
type FileStatus byte

const (
	// StatusAdded marks a file introduced by the commit.
	StatusAdded FileStatus = 'A'
	// StatusModified marks a file changed by the commit.
	StatusModified FileStatus = 'M'
	// StatusDeleted marks a file removed by the commit.
	StatusDeleted FileStatus = 'D'
)

// String implements fmt.Stringer.
func (s FileStatus) String() string { return string(rune(s)) }

// FileChange is one per-file entry of a commit record.
type FileChange struct {
	Status FileStatus
	Path   string
}

// Signature identifies an author or committer.
type Signature struct {
	Name  string
	Email string
}

// String implements fmt.Stringer.
func (s Signature) String() string {
	return fmt.Sprintf("%s <%s>", s.Name, s.Email)
}

// Commit is one record produced by walking a pushed range: identity,
// message, parents, and per-file change statuses. Records are immutable
// and scoped to one invocation.
type Commit struct {
	ID        Hash
	Parents   []Hash
	Author    Signature
	Committer Signature
	Message   string
	Changes   []FileChange
}

// Summary returns the first line of the commit message.
func (c *Commit) Summary() string {
	title, _, _ := strings.Cut(c.Message, "\n")
	return title
}

// IsMerge reports whether the commit has more than one parent.
func (c *Commit) IsMerge() bool { return len(c.Parents) > 1 }

// Base returns the tree-ish the commit's changes are measured against: the
// parent for ordinary commits, the empty tree for parentless ones, and the
// commit itself for merges, whose conflict-resolution diffs are
// disregarded.
func (c *Commit) Base() Hash {
	switch len(c.Parents) {
	case 0:
		return EmptyTree
	case 1:
		return c.Parents[0]
	}
	return c.ID
}

// CommitsInRange walks the commits a ref update introduces, newest first.
// For a created ref the walk excludes everything reachable from existing
// refs, so history accepted by earlier pushes is not checked again. A
// delete introduces nothing. Results are memoized per range for the
// invocation's lifetime.
func (r *Repository) CommitsInRange(ctx context.Context, u RefUpdate) ([]*Commit, error) {
	if u.IsDelete() {
		return nil, nil
	}
	args := []string{"log", logFormat, "--name-status"}
	if u.IsCreate() {
		args = append(args, u.New.String(), "--not", "--all")
	} else {
		args = append(args, u.Old.String()+".."+u.New.String())
	}
	out, err := r.Run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("list commits for %s: %w", u.Ref, err)
	}
	commits, err := parseLog(out)
	if err != nil {
		return nil, fmt.Errorf("parse commits for %s: %w", u.Ref, err)
	}
	return commits, nil
}

// CommitAt returns the record for a single revision.
func (r *Repository) CommitAt(ctx context.Context, rev string) (*Commit, error) {
	out, err := r.Run(ctx, "log", "-1", logFormat, "--name-status", rev)
	if err != nil {
		return nil, fmt.Errorf("resolve commit %s: %w", rev, err)
	}
	commits, err := parseLog(out)
	if err != nil {
		return nil, fmt.Errorf("parse commit %s: %w", rev, err)
	}
	if len(commits) != 1 {
		return nil, fmt.Errorf("resolve commit %s: got %d records", rev, len(commits))
	}
	return commits[0], nil
}

// HeadCommit returns the record for the commit HEAD points at, as created
// by the post-commit hook.
func (r *Repository) HeadCommit(ctx context.Context) (*Commit, error) {
	cf, err := r.CatFileCommit("HEAD")
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD commit: %w", err)
	}
	c := convertCommit(cf)
	out, err := r.Run(ctx, "diff-tree", "--no-commit-id", "--name-status", "-r", c.Base().String(), c.ID.String())
	if err != nil {
		return nil, fmt.Errorf("diff HEAD commit: %w", err)
	}
	c.Changes, err = parseNameStatus(string(out))
	if err != nil {
		return nil, fmt.Errorf("diff HEAD commit: %w", err)
	}
	return c, nil
}

func convertCommit(cf *gitm.Commit) *Commit {
	c := &Commit{
		ID:      Hash(cf.ID.String()),
		Message: strings.TrimRight(cf.Message, "\n"),
	}
	if cf.Author != nil {
		c.Author = Signature{Name: cf.Author.Name, Email: cf.Author.Email}
	}
	if cf.Committer != nil {
		c.Committer = Signature{Name: cf.Committer.Name, Email: cf.Committer.Email}
	}
	for i := 0; i < cf.ParentsCount(); i++ {
		if pid, err := cf.ParentID(i); err == nil {
			c.Parents = append(c.Parents, Hash(pid.String()))
		}
	}
	return c
}

func parseLog(out []byte) ([]*Commit, error) {
	var commits []*Commit
	for _, entry := range strings.Split(string(out), "\x02") {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		header, statuses, found := strings.Cut(entry, "\x01")
		if !found {
			return nil, fmt.Errorf("malformed log entry %q", truncate(entry))
		}
		fields := strings.Split(header, "\x00")
		if len(fields) != 7 {
			return nil, fmt.Errorf("malformed log entry %q", truncate(entry))
		}
		c := &Commit{
			ID:        Hash(fields[0]),
			Author:    Signature{Name: fields[2], Email: fields[3]},
			Committer: Signature{Name: fields[4], Email: fields[5]},
			Message:   strings.TrimRight(fields[6], "\n"),
		}
		for _, p := range strings.Fields(fields[1]) {
			c.Parents = append(c.Parents, Hash(p))
		}
		changes, err := parseNameStatus(statuses)
		if err != nil {
			return nil, fmt.Errorf("commit %s: %w", c.ID.Short(), err)
		}
		c.Changes = changes
		commits = append(commits, c)
	}
	return commits, nil
}

// parseNameStatus parses --name-status lines. Statuses collapse onto the
// add/modify/delete letters policy rules use: a rename deletes its source
// and adds its destination, a copy adds its destination, a type change is
// a modification.
func parseNameStatus(out string) ([]FileChange, error) {
	var changes []FileChange
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("malformed name-status line %q", truncate(line))
		}
		path, err := unquotePath(fields[1])
		if err != nil {
			return nil, err
		}
		switch status := fields[0][0]; status {
		case 'A', 'M', 'D':
			changes = append(changes, FileChange{Status: FileStatus(status), Path: path})
		case 'T':
			changes = append(changes, FileChange{Status: StatusModified, Path: path})
		case 'R', 'C':
			if len(fields) < 3 {
				return nil, fmt.Errorf("malformed name-status line %q", truncate(line))
			}
			dest, err := unquotePath(fields[2])
			if err != nil {
				return nil, err
			}
			if status == 'R' {
				changes = append(changes, FileChange{Status: StatusDeleted, Path: path})
			}
			changes = append(changes, FileChange{Status: StatusAdded, Path: dest})
		default:
			return nil, fmt.Errorf("unrecognized status %q in line %q", string(status), truncate(line))
		}
	}
	return changes, nil
}

func unquotePath(path string) (string, error) {
	if !strings.HasPrefix(path, `"`) {
		return path, nil
	}
	unquoted, err := strconv.Unquote(path)
	if err != nil {
		return "", fmt.Errorf("malformed quoted path %s", path)
	}
	return unquoted, nil
}

func truncate(s string) string {
	if len(s) > 80 {
		return s[:80] + "..."
	}
	return s
}
