package git

import (
	"strings"
	"testing"

	"github.com/matryer/is"
)

const (
	shaA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	shaB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	shaC = "cccccccccccccccccccccccccccccccccccccccc"
)

// entry builds one log entry the way the walker's format string lays it
// out.
func entry(id, parents, an, ae, cn, ce, body string, statuses ...string) string {
	var b strings.Builder
	b.WriteString("\x02")
	b.WriteString(strings.Join([]string{id, parents, an, ae, cn, ce, body}, "\x00"))
	b.WriteString("\x01\n")
	for _, s := range statuses {
		b.WriteString(s)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

func TestParseLog(t *testing.T) {
	is := is.New(t)

	out := entry(shaA, shaB, "Alice", "alice@example.com", "Bob", "bob@example.com",
		"fix parser\n\nLonger explanation.\n", "M\tpkg/parse.go", "A\tpkg/parse_test.go") +
		entry(shaB, "", "Alice", "alice@example.com", "Alice", "alice@example.com",
			"initial commit\n", "A\tREADME.md")

	commits, err := parseLog([]byte(out))
	is.NoErr(err)
	is.Equal(len(commits), 2)

	c := commits[0]
	is.Equal(c.ID, Hash(shaA))
	is.Equal(c.Parents, []Hash{shaB})
	is.Equal(c.Author.Name, "Alice")
	is.Equal(c.Author.Email, "alice@example.com")
	is.Equal(c.Committer.Email, "bob@example.com")
	is.Equal(c.Summary(), "fix parser")
	is.Equal(c.Message, "fix parser\n\nLonger explanation.")
	is.Equal(len(c.Changes), 2)
	is.Equal(c.Changes[0], FileChange{Status: StatusModified, Path: "pkg/parse.go"})
	is.Equal(c.Changes[1], FileChange{Status: StatusAdded, Path: "pkg/parse_test.go"})

	root := commits[1]
	is.Equal(len(root.Parents), 0)
	is.Equal(root.Base(), Hash(EmptyTree))
	is.True(!root.IsMerge())
}

func TestParseLogMergeCommit(t *testing.T) {
	is := is.New(t)

	// Merges list several parents and no statuses.
	out := entry(shaA, shaB+" "+shaC, "Alice", "a@example.com", "Alice", "a@example.com",
		"Merge branch 'feature'\n")
	commits, err := parseLog([]byte(out))
	is.NoErr(err)
	is.Equal(len(commits), 1)

	c := commits[0]
	is.True(c.IsMerge())
	is.Equal(c.Base(), c.ID)
	is.Equal(len(c.Changes), 0)
}

func TestParseLogEmpty(t *testing.T) {
	is := is.New(t)
	commits, err := parseLog(nil)
	is.NoErr(err)
	is.Equal(len(commits), 0)
}

func TestParseLogMalformed(t *testing.T) {
	is := is.New(t)

	// A message smuggling separator bytes breaks the framing. That must
	// surface as an error, not as silently dropped records.
	_, err := parseLog([]byte("\x02" + shaA + "\x00only-two-fields\x01\n"))
	is.True(err != nil)

	_, err = parseLog([]byte("\x02no terminator at all"))
	is.True(err != nil)
}

func TestParseNameStatus(t *testing.T) {
	is := is.New(t)

	changes, err := parseNameStatus("A\tadded.go\nM\tchanged.go\nD\tremoved.go\n")
	is.NoErr(err)
	is.Equal(changes, []FileChange{
		{Status: StatusAdded, Path: "added.go"},
		{Status: StatusModified, Path: "changed.go"},
		{Status: StatusDeleted, Path: "removed.go"},
	})
}

func TestParseNameStatusRenameAndCopy(t *testing.T) {
	is := is.New(t)

	changes, err := parseNameStatus("R100\told.go\tnew.go\nC75\tbase.go\tcopy.go\nT\tmode.go\n")
	is.NoErr(err)
	is.Equal(changes, []FileChange{
		{Status: StatusDeleted, Path: "old.go"},
		{Status: StatusAdded, Path: "new.go"},
		{Status: StatusAdded, Path: "copy.go"},
		{Status: StatusModified, Path: "mode.go"},
	})
}

func TestParseNameStatusQuotedPath(t *testing.T) {
	is := is.New(t)

	changes, err := parseNameStatus("A\t\"sp\\303\\244ce.go\"\n")
	is.NoErr(err)
	is.Equal(len(changes), 1)
	is.Equal(changes[0].Path, "späce.go")
}

func TestParseNameStatusMalformed(t *testing.T) {
	is := is.New(t)

	_, err := parseNameStatus("garbage without tab\n")
	is.True(err != nil)
	_, err = parseNameStatus("Z\tfile.go\n")
	is.True(err != nil)
	_, err = parseNameStatus("R100\tonly-one-path\n")
	is.True(err != nil)
}

func TestCommitBase(t *testing.T) {
	is := is.New(t)

	is.Equal((&Commit{ID: shaA}).Base(), Hash(EmptyTree))
	is.Equal((&Commit{ID: shaA, Parents: []Hash{shaB}}).Base(), Hash(shaB))
	is.Equal((&Commit{ID: shaA, Parents: []Hash{shaB, shaC}}).Base(), Hash(shaA))
}

func TestParseIdent(t *testing.T) {
	is := is.New(t)

	sig, err := parseIdent("Alice Example <alice@example.com> 1700000000 +0100")
	is.NoErr(err)
	is.Equal(sig.Name, "Alice Example")
	is.Equal(sig.Email, "alice@example.com")

	_, err = parseIdent("no email here")
	is.True(err != nil)
}
