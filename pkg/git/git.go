// Package git wraps the git command-line tool for hook evaluation. It
// normalizes the various hook invocation surfaces into RefUpdate values,
// classifies each update as a create, update, rewind, or delete, and walks
// the commits a push introduces into structured records. Every command runs
// through a per-invocation memoizing runner with a bounded timeout.
package git

import (
	"strings"

	gitm "github.com/aymanbagabas/git-module"
)

const (
	// RefsHeads is the prefix for branch references.
	RefsHeads = gitm.RefsHeads
	// RefsTags is the prefix for tag references.
	RefsTags = gitm.RefsTags
)

// EmptyTree is the id of the empty tree object, used as the synthetic base
// of a parentless commit.
const EmptyTree = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// ZeroHash is the null sentinel git passes for a ref side that does not
// exist, i.e. the old side of a create and the new side of a delete.
var ZeroHash Hash = gitm.EmptyID

// Hash represents a git hash.
type Hash string

// String returns the string representation of a hash.
func (h Hash) String() string {
	return string(h)
}

// IsZero reports whether the hash is the null sentinel.
func (h Hash) IsZero() bool {
	return h == "" || h == ZeroHash
}

// Short returns an abbreviated form for diagnostics.
func (h Hash) Short() string {
	if len(h) > 7 {
		return string(h[:7])
	}
	return string(h)
}

// IsBranch reports whether ref is under the branch namespace.
func IsBranch(ref string) bool {
	return strings.HasPrefix(ref, RefsHeads)
}

// IsTag reports whether ref is under the tag namespace.
func IsTag(ref string) bool {
	return strings.HasPrefix(ref, RefsTags)
}

// ShortRef strips the well-known namespace prefix from a ref name.
func ShortRef(ref string) string {
	for _, prefix := range []string{RefsHeads, RefsTags} {
		if strings.HasPrefix(ref, prefix) {
			return strings.TrimPrefix(ref, prefix)
		}
	}
	return ref
}
