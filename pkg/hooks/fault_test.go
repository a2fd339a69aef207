package hooks

import (
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestFaultString(t *testing.T) {
	is := is.New(t)

	f := Fault{
		Plugin:  "checkcommit",
		Message: `author email "bad@??" is not a valid address`,
		Ref:     "refs/heads/main",
		Commit:  "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		Option:  "checkcommit.email-valid",
	}
	is.Equal(f.String(), `refs/heads/main @ aaaaaaa: author email "bad@??" is not a valid address (option checkcommit.email-valid)`)

	bare := Fault{Plugin: "checklog", Message: "title too long"}
	is.Equal(bare.String(), "title too long")

	refOnly := Fault{Ref: "refs/heads/main", Message: "delete denied"}
	is.Equal(refOnly.String(), "refs/heads/main: delete denied")
}

func TestSortFaultsOrder(t *testing.T) {
	is := is.New(t)

	faults := []Fault{
		{Ref: "refs/heads/b", Commit: "2", Plugin: "z", Message: "4"},
		{Ref: "refs/heads/a", Commit: "2", Plugin: "z", Message: "3"},
		{Ref: "refs/heads/a", Commit: "1", Plugin: "z", Message: "2"},
		{Ref: "refs/heads/a", Commit: "1", Plugin: "a", Message: "1"},
	}
	for i := range faults {
		faults[i].seq = i
	}
	SortFaults(faults)

	var got []string
	for _, f := range faults {
		got = append(got, f.Message)
	}
	is.Equal(got, []string{"1", "2", "3", "4"})
}

func TestSortFaultsStableWithinGroup(t *testing.T) {
	is := is.New(t)

	// Same ref, commit, and plugin: recording order is preserved.
	faults := []Fault{
		{Ref: "r", Plugin: "p", Message: "first", seq: 0},
		{Ref: "r", Plugin: "p", Message: "second", seq: 1},
	}
	SortFaults(faults)
	is.Equal(faults[0].Message, "first")
	is.Equal(faults[1].Message, "second")
}

func TestWriteReportGroupsByPlugin(t *testing.T) {
	is := is.New(t)

	faults := []Fault{
		{Plugin: "checkreference", Ref: "refs/heads/a", Message: "create denied", Option: "checkreference.acl"},
		{Plugin: "checkcommit", Ref: "refs/heads/a", Message: "bad email"},
		{Plugin: "checkreference", Ref: "refs/heads/b", Message: "delete denied"},
	}
	for i := range faults {
		faults[i].seq = i
	}
	SortFaults(faults)

	var b strings.Builder
	WriteReport(&b, PreReceive, faults)
	out := b.String()

	is.True(strings.Contains(out, "pre-receive rejected, 3 faults"))
	is.True(strings.Contains(out, "checkreference:"))
	is.True(strings.Contains(out, "checkcommit:"))
	is.True(strings.Contains(out, "refs/heads/a: create denied (option checkreference.acl)"))

	// One section per plugin.
	is.Equal(strings.Count(out, "checkreference:"), 1)
}

func TestWriteReportDetailIndented(t *testing.T) {
	is := is.New(t)

	faults := []Fault{{
		Plugin:  "checkwhitespace",
		Message: "whitespace errors",
		Detail:  "main.go:3: trailing whitespace\nmain.go:9: space before tab",
	}}
	var b strings.Builder
	WriteReport(&b, PreCommit, faults)
	out := b.String()
	is.True(strings.Contains(out, "    main.go:3: trailing whitespace"))
	is.True(strings.Contains(out, "    main.go:9: space before tab"))
}

func TestWriteReportEmpty(t *testing.T) {
	is := is.New(t)
	var b strings.Builder
	WriteReport(&b, PreReceive, nil)
	is.Equal(b.String(), "")
}
