package git

import (
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestParseReceiveUpdates(t *testing.T) {
	is := is.New(t)

	in := strings.NewReader(
		shaA + " " + shaB + " refs/heads/main\n" +
			ZeroHash.String() + " " + shaC + " refs/heads/feature\n")
	updates, err := ParseReceiveUpdates(in)
	is.NoErr(err)
	is.Equal(len(updates), 2)

	is.Equal(updates[0], RefUpdate{Ref: "refs/heads/main", Old: shaA, New: shaB})
	is.True(!updates[0].IsCreate())
	is.True(!updates[0].IsDelete())

	is.True(updates[1].IsCreate())
	is.Equal(updates[1].Ref, "refs/heads/feature")
}

func TestParseReceiveUpdatesMalformed(t *testing.T) {
	is := is.New(t)
	_, err := ParseReceiveUpdates(strings.NewReader("too few fields\n"))
	is.True(err != nil)
}

func TestParsePushUpdates(t *testing.T) {
	is := is.New(t)

	// The update is expressed against the remote side.
	in := strings.NewReader("refs/heads/topic " + shaB + " refs/heads/main " + shaA + "\n")
	updates, err := ParsePushUpdates(in)
	is.NoErr(err)
	is.Equal(len(updates), 1)
	is.Equal(updates[0], RefUpdate{Ref: "refs/heads/main", Old: shaA, New: shaB})
}

func TestParseRefUpdate(t *testing.T) {
	is := is.New(t)

	u, err := ParseRefUpdate("refs/heads/main", shaA, shaB)
	is.NoErr(err)
	is.Equal(u.Ref, "refs/heads/main")
	is.Equal(u.Old, Hash(shaA))
	is.Equal(u.New, Hash(shaB))

	_, err = ParseRefUpdate("", shaA, shaB)
	is.True(err != nil)
}

func TestRefUpdateSentinels(t *testing.T) {
	is := is.New(t)

	del := RefUpdate{Ref: "refs/heads/gone", Old: shaA, New: ZeroHash}
	is.True(del.IsDelete())
	is.True(!del.IsCreate())

	create := RefUpdate{Ref: "refs/heads/new", Old: ZeroHash, New: shaA}
	is.True(create.IsCreate())
	is.True(!create.IsDelete())
}

func TestHashHelpers(t *testing.T) {
	is := is.New(t)

	is.True(ZeroHash.IsZero())
	is.True(Hash("").IsZero())
	is.True(!Hash(shaA).IsZero())
	is.Equal(Hash(shaA).Short(), "aaaaaaa")
	is.Equal(Hash("ab").Short(), "ab")
}

func TestRefNamespaces(t *testing.T) {
	is := is.New(t)

	is.True(IsBranch("refs/heads/main"))
	is.True(!IsBranch("refs/tags/v1.0.0"))
	is.True(IsTag("refs/tags/v1.0.0"))
	is.Equal(ShortRef("refs/heads/main"), "main")
	is.Equal(ShortRef("refs/tags/v1.0.0"), "v1.0.0")
	is.Equal(ShortRef("refs/notes/commits"), "refs/notes/commits")
}

func TestChangeKindString(t *testing.T) {
	is := is.New(t)
	is.Equal(Created.String(), "create")
	is.Equal(Rewound.String(), "rewind")
	is.Equal(Updated.String(), "update")
	is.Equal(Deleted.String(), "delete")
}
