// Package hooks implements the dispatch core: the fixed set of hook
// points, the handler registry, the per-invocation context handed to every
// handler, and the dispatcher that turns accumulated faults into a single
// accept or reject decision.
package hooks

import "fmt"

// HookPoint names a moment in the commit and push lifecycle where policy
// handlers may run. The set is fixed at startup.
type HookPoint string

// Git client-side hook points.
const (
	PreCommit        HookPoint = "pre-commit"
	PrepareCommitMsg HookPoint = "prepare-commit-msg"
	CommitMsg        HookPoint = "commit-msg"
	PostCommit       HookPoint = "post-commit"
	PreRebase        HookPoint = "pre-rebase"
	PrePush          HookPoint = "pre-push"
)

// Git server-side hook points.
const (
	PreReceive  HookPoint = "pre-receive"
	Update      HookPoint = "update"
	PostReceive HookPoint = "post-receive"
)

// Gerrit hook points.
const (
	RefUpdate       HookPoint = "ref-update"
	PatchsetCreated HookPoint = "patchset-created"
	DraftPublished  HookPoint = "draft-published"
)

// Points returns every hook point in a fixed order.
func Points() []HookPoint {
	return []HookPoint{
		PreCommit,
		PrepareCommitMsg,
		CommitMsg,
		PostCommit,
		PreRebase,
		PrePush,
		PreReceive,
		Update,
		PostReceive,
		RefUpdate,
		PatchsetCreated,
		DraftPublished,
	}
}

// ParsePoint resolves a hook name, as found in argv or a symlink name, to
// its hook point.
func ParsePoint(name string) (HookPoint, error) {
	for _, p := range Points() {
		if string(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown hook %q", name)
}

// String implements fmt.Stringer.
func (p HookPoint) String() string { return string(p) }

// Enforcing reports whether a rejection at this point stops the operation.
// The post-* points run after the fact: their handlers observe and notify
// but cannot veto, and administrators do not bypass them.
func (p HookPoint) Enforcing() bool {
	switch p {
	case PostCommit, PostReceive:
		return false
	}
	return true
}

// ServerSide reports whether the point runs on the receiving side of a
// push.
func (p HookPoint) ServerSide() bool {
	switch p {
	case PreReceive, Update, PostReceive, RefUpdate, PatchsetCreated, DraftPublished:
		return true
	}
	return false
}
