// Package gerrit adapts the Gerrit hook surface: it parses the "--name
// value" argument convention of the ref-update, patchset-created and
// draft-published hooks and reports dispatch outcomes back to the review
// server as label votes.
package gerrit

import (
	"strings"

	"github.com/charmbracelet/githooks/pkg/git"
	"github.com/charmbracelet/githooks/pkg/hooks"
)

// ParseArgs parses the argument pairs Gerrit passes to its hooks. Both the
// "--name value" and "--name=value" forms are accepted. Unknown flags are
// skipped, Gerrit grows new ones between releases and an upgraded server
// must not break the hook.
func ParseArgs(args []string) *hooks.GerritArgs {
	ga := &hooks.GerritArgs{}
	known := map[string]*string{
		"--change":            &ga.Change,
		"--change-url":        &ga.ChangeURL,
		"--project":           &ga.Project,
		"--branch":            &ga.Branch,
		"--topic":             &ga.Topic,
		"--commit":            &ga.Commit,
		"--uploader":          &ga.Uploader,
		"--uploader-username": &ga.UploaderUsername,
		"--patchset":          &ga.Patchset,
		"--refname":           &ga.Refname,
		"--oldrev":            &ga.OldRev,
		"--newrev":            &ga.NewRev,
	}
	for i := 0; i < len(args); i++ {
		name, value, inline := strings.Cut(args[i], "=")
		if !strings.HasPrefix(name, "--") {
			continue
		}
		if !inline && i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
			i++
			value = args[i]
		}
		if dst, ok := known[name]; ok {
			*dst = value
		}
	}
	return ga
}

// Update returns the ref change a ref-update invocation describes.
func Update(ga *hooks.GerritArgs) (git.RefUpdate, error) {
	return git.ParseRefUpdate(ga.Refname, ga.OldRev, ga.NewRev)
}
