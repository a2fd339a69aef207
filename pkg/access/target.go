package access

import (
	"fmt"
	"regexp"
	"strings"
)

// TargetSpec matches a reference name or file path. A spec beginning with
// "^" is a regular expression anchored at the start of the target; anything
// else matches by exact string equality. Specs are compiled once, when the
// configuration is parsed, so an invalid pattern surfaces as a
// configuration error before any rule is evaluated.
type TargetSpec struct {
	raw string
	re  *regexp.Regexp
}

// ParseTarget compiles a target spec.
func ParseTarget(spec string) (TargetSpec, error) {
	if spec == "" {
		return TargetSpec{}, fmt.Errorf("empty target spec")
	}
	if !strings.HasPrefix(spec, "^") {
		return TargetSpec{raw: spec}, nil
	}
	re, err := regexp.Compile(spec)
	if err != nil {
		return TargetSpec{}, fmt.Errorf("invalid target pattern %q: %w", spec, err)
	}
	return TargetSpec{raw: spec, re: re}, nil
}

// Match reports whether the target matches the spec.
func (t TargetSpec) Match(target string) bool {
	if t.re != nil {
		return t.re.MatchString(target)
	}
	return t.raw == target
}

// IsRegexp reports whether the spec is a pattern rather than a literal.
func (t TargetSpec) IsRegexp() bool { return t.re != nil }

// String returns the spec as configured.
func (t TargetSpec) String() string { return t.raw }
