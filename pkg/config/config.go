// Package config exposes the layered repository configuration consumed by
// hooks and plugins.
//
// Repository options come from git itself: the dispatcher reads the merged
// output of `git config --list -z` once per invocation and wraps it in a
// Store. Git prints scopes in precedence order (system, then global, then
// local, then worktree), so multi-valued options accumulate in file order
// across scopes, which is exactly the order rule evaluation depends on.
// Process-level knobs come from GITHOOKS_* environment variables, parsed
// into Env.
package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Store is an ordered, multi-valued, read-only view of the repository
// configuration. It never writes back.
type Store struct {
	values map[string][]string
	// defaults tracks keys injected through SetDefault so they can be
	// distinguished from values that were really configured.
	defaults map[string]bool
}

// NewStore builds an empty Store. Useful for tests and for commit-time hooks
// running outside any repository.
func NewStore() *Store {
	return &Store{
		values:   make(map[string][]string),
		defaults: make(map[string]bool),
	}
}

// ParseList parses `git config --list -z` output into a Store. Each record
// is "key\nvalue" terminated by NUL; a key configured without a value (a
// bare boolean, e.g. "[githooks] parallel") has no newline at all.
func ParseList(data []byte) *Store {
	s := NewStore()
	for _, rec := range strings.Split(string(data), "\x00") {
		if rec == "" {
			continue
		}
		key, value, found := strings.Cut(rec, "\n")
		key = strings.ToLower(key)
		if !found {
			// Valueless key. Git treats these as boolean true.
			s.values[key] = append(s.values[key], "")
			continue
		}
		s.values[key] = append(s.values[key], value)
	}
	return s
}

func join(section, key string) string {
	return strings.ToLower(section) + "." + strings.ToLower(key)
}

// Set appends a value for section.key. It exists for tests and for
// assembling synthetic stores; real invocations read everything from git.
func (s *Store) Set(section, key string, values ...string) {
	k := join(section, key)
	s.values[k] = append(s.values[k], values...)
}

// GetAll returns every configured value for section.key in configuration
// file order. The returned slice is shared; callers must not modify it.
func (s *Store) GetAll(section, key string) []string {
	return s.values[join(section, key)]
}

// Get returns the effective single value for section.key. Following git,
// the last configured value wins.
func (s *Store) Get(section, key string) (string, bool) {
	vs := s.values[join(section, key)]
	if len(vs) == 0 {
		return "", false
	}
	return vs[len(vs)-1], true
}

// GetBool parses section.key as a git boolean. A key configured with no
// value at all counts as true, matching git's own semantics. An
// unparseable literal is reported as an error so callers can surface a
// configuration fault instead of crashing.
func (s *Store) GetBool(section, key string) (value, ok bool, err error) {
	v, ok := s.Get(section, key)
	if !ok {
		return false, false, nil
	}
	b, err := parseBool(v)
	if err != nil {
		return false, true, fmt.Errorf("%s.%s: %w", section, key, err)
	}
	return b, true, nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "", "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean value %q", v)
}

// GetInt parses section.key as a decimal integer.
func (s *Store) GetInt(section, key string) (value int, ok bool, err error) {
	v, ok := s.Get(section, key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, true, fmt.Errorf("%s.%s: invalid integer value %q", section, key, v)
	}
	return n, true, nil
}

// SetDefault injects value for section.key unless the key was configured.
// It is applied at most once per key and invocation; plugins call it while
// being constructed.
func (s *Store) SetDefault(section, key, value string) {
	k := join(section, key)
	if len(s.values[k]) > 0 {
		return
	}
	s.values[k] = []string{value}
	s.defaults[k] = true
}

// IsDefault reports whether the current value of section.key came from
// SetDefault rather than from configuration.
func (s *Store) IsDefault(section, key string) bool {
	return s.defaults[join(section, key)]
}

// Deprecation describes a deprecated key whose values were used because the
// canonical key was absent.
type Deprecation struct {
	Section string
	Old     string
	New     string
}

func (d Deprecation) String() string {
	return fmt.Sprintf("option %s.%s is deprecated, use %s instead", d.Section, d.Old, d.New)
}

// Resolve returns the values for the canonical section.key, falling back to
// the deprecated keys when the canonical one is entirely absent.
//
// Resolution order is strict and documented per plugin: canonical values if
// any exist, otherwise the deprecated keys' values concatenated in the
// order the keys are listed here, each key's values in configuration file
// order. Deprecated values are never interleaved with canonical ones, so
// switching to the new name cannot silently reorder rules. The returned
// Deprecations let the caller surface a notice.
func (s *Store) Resolve(section, key string, deprecated ...string) ([]string, []Deprecation) {
	if vs := s.GetAll(section, key); len(vs) > 0 {
		return vs, nil
	}
	var (
		out   []string
		notes []Deprecation
	)
	for _, old := range deprecated {
		oldSection, oldKey := section, old
		// A deprecated key may live in another section, written as
		// "section.key" (e.g. checkacls.acl superseded by
		// checkreference.acl).
		if b, a, found := strings.Cut(old, "."); found {
			oldSection, oldKey = b, a
		}
		vs := s.GetAll(oldSection, oldKey)
		if len(vs) == 0 {
			continue
		}
		out = append(out, vs...)
		notes = append(notes, Deprecation{Section: oldSection, Old: oldKey, New: section + "." + key})
	}
	return out, notes
}

// Split expands multi-name values. Options like githooks.plugin accept
// several whitespace-separated names in a single value, so
//
//	[githooks]
//	plugin = CheckLog CheckReference
//	plugin = CheckFile
//
// yields [CheckLog CheckReference CheckFile].
func Split(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, strings.Fields(v)...)
	}
	return out
}
