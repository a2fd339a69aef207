package access

import (
	"fmt"
	"regexp"
	"strings"
)

// UserSpec matches an authenticated username. The grammar follows the
// target grammar with one addition: "^regex" is an anchored pattern,
// "@group" is a membership test against the group table, anything else is
// exact equality.
type UserSpec struct {
	raw   string
	re    *regexp.Regexp
	group string
}

// ParseUserSpec compiles a user spec.
func ParseUserSpec(spec string) (UserSpec, error) {
	switch {
	case spec == "":
		return UserSpec{}, fmt.Errorf("empty user spec")
	case strings.HasPrefix(spec, "^"):
		re, err := regexp.Compile(spec)
		if err != nil {
			return UserSpec{}, fmt.Errorf("invalid user pattern %q: %w", spec, err)
		}
		return UserSpec{raw: spec, re: re}, nil
	case strings.HasPrefix(spec, "@"):
		name := strings.TrimPrefix(spec, "@")
		if name == "" {
			return UserSpec{}, fmt.Errorf("empty group reference")
		}
		return UserSpec{raw: spec, group: name}, nil
	}
	return UserSpec{raw: spec}, nil
}

// String returns the spec as configured.
func (u UserSpec) String() string { return u.raw }

// Matcher resolves usernames against specs and the configured group and
// admin tables. Built once per invocation.
type Matcher struct {
	groups *Groups
	admins []UserSpec
}

// NewMatcher builds a matcher over the given group table and admin specs.
// A nil group table means no groups are defined.
func NewMatcher(groups *Groups, admins []UserSpec) *Matcher {
	if groups == nil {
		groups = &Groups{}
	}
	return &Matcher{groups: groups, admins: admins}
}

// Match reports whether user satisfies the spec.
func (m *Matcher) Match(user string, spec UserSpec) bool {
	switch {
	case spec.re != nil:
		return spec.re.MatchString(user)
	case spec.group != "":
		return m.groups.IsMember(user, spec.group)
	}
	return user == spec.raw
}

// MatchAny reports whether user satisfies any of the specs.
func (m *Matcher) MatchAny(user string, specs []UserSpec) bool {
	for _, spec := range specs {
		if m.Match(user, spec) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether user matches the githooks.admin list.
// Administrators bypass every policy check in every plugin.
func (m *Matcher) IsAdmin(user string) bool {
	return m.MatchAny(user, m.admins)
}

// ParseUserSpecs compiles a list of specs, e.g. the githooks.admin values.
func ParseUserSpecs(specs []string) ([]UserSpec, error) {
	out := make([]UserSpec, 0, len(specs))
	for _, s := range specs {
		us, err := ParseUserSpec(s)
		if err != nil {
			return nil, err
		}
		out = append(out, us)
	}
	return out, nil
}
