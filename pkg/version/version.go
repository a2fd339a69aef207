// Package version holds build-time version information.
package version

var (
	// Version contains the application version number. It's set via ldflags
	// when building.
	Version = ""

	// CommitSHA contains the SHA of the commit that this application was
	// built against. It's set via ldflags when building.
	CommitSHA = ""
)
