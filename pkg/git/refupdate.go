package git

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// ChangeKind classifies what a ref update does to history. The letter
// values double as the action letters of reference access rules.
type ChangeKind byte

const (
	// Created is a ref that did not exist before.
	Created ChangeKind = 'C'
	// Rewound is a non-fast-forward change, history rewritten or a
	// non-branch ref moved.
	Rewound ChangeKind = 'R'
	// Updated is a fast-forward of an existing branch.
	Updated ChangeKind = 'U'
	// Deleted is a ref removed.
	Deleted ChangeKind = 'D'
)

// String implements fmt.Stringer.
func (k ChangeKind) String() string {
	switch k {
	case Created:
		return "create"
	case Rewound:
		return "rewind"
	case Updated:
		return "update"
	case Deleted:
		return "delete"
	}
	return fmt.Sprintf("unknown(%c)", byte(k))
}

// RefUpdate is one ref change carried by a hook invocation: the ref name
// and the old and new commits, either of which may be the null sentinel.
// Every hook surface normalizes into this shape.
type RefUpdate struct {
	Ref string
	Old Hash
	New Hash
}

// String implements fmt.Stringer.
func (u RefUpdate) String() string {
	return fmt.Sprintf("%s %s..%s", u.Ref, u.Old.Short(), u.New.Short())
}

// IsCreate reports whether the update creates the ref.
func (u RefUpdate) IsCreate() bool { return u.Old.IsZero() }

// IsDelete reports whether the update deletes the ref.
func (u RefUpdate) IsDelete() bool { return u.New.IsZero() }

// Classify determines the change kind. Deletes and creates are decided by
// the null sentinel alone. Moving anything outside refs/heads/ counts as a
// rewind, tags do not fast-forward. A branch update is a fast-forward only
// when the old commit is the merge base of the two; when the merge base
// differs or cannot be computed at all, classification falls to the
// stricter rewind, never the more permissive update.
func (u RefUpdate) Classify(ctx context.Context, r *Repository) ChangeKind {
	switch {
	case u.IsDelete():
		return Deleted
	case u.IsCreate():
		return Created
	case !IsBranch(u.Ref):
		return Rewound
	}
	base, err := r.MergeBase(ctx, u.Old, u.New)
	if err == nil && base == u.Old {
		return Updated
	}
	return Rewound
}

// ParseRefUpdate parses the "REF OLD NEW" argument form of the update and
// ref-update hooks.
func ParseRefUpdate(ref, old, new string) (RefUpdate, error) {
	if ref == "" || old == "" || new == "" {
		return RefUpdate{}, fmt.Errorf("malformed ref update %q %q %q", ref, old, new)
	}
	return RefUpdate{Ref: ref, Old: Hash(old), New: Hash(new)}, nil
}

// ParseReceiveUpdates parses the stdin of the pre-receive and post-receive
// hooks, one "OLD NEW REF" line per updated ref, in input order.
func ParseReceiveUpdates(in io.Reader) ([]RefUpdate, error) {
	var updates []RefUpdate
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("malformed receive line %q, expected \"OLD NEW REF\"", line)
		}
		updates = append(updates, RefUpdate{
			Old: Hash(fields[0]),
			New: Hash(fields[1]),
			Ref: fields[2],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return updates, nil
}

// ParsePushUpdates parses the stdin of the pre-push hook, one
// "LOCALREF LOCALSHA REMOTEREF REMOTESHA" line per ref to be pushed. The
// update is expressed against the remote ref, the side policy guards: the
// remote sha is the old value and the local sha the new one.
func ParsePushUpdates(in io.Reader) ([]RefUpdate, error) {
	var updates []RefUpdate
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, fmt.Errorf("malformed push line %q, expected \"LOCALREF LOCALSHA REMOTEREF REMOTESHA\"", line)
		}
		updates = append(updates, RefUpdate{
			Ref: fields[2],
			Old: Hash(fields[3]),
			New: Hash(fields[1]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return updates, nil
}
