package access

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Groups is the named-group table built from githooks.groups. Members are
// usernames or "@name" references to other groups. The table is validated
// for cycles when it is built, never at query time, so a live hook run can
// expand memberships without guarding against infinite recursion.
type Groups struct {
	members map[string][]string
}

// ParseGroups builds the group table from the githooks.groups values. Each
// value is either a block of definition lines
//
//	devs  = alice bob
//	leads = @devs carol
//
// or "file:PATH" naming a YAML file with a mapping from group name to a
// list of members. Blank lines and #-comments are ignored. A group defined
// twice accumulates members. A cyclic definition is a configuration error.
func ParseGroups(values []string) (*Groups, error) {
	g := &Groups{members: make(map[string][]string)}
	for _, value := range values {
		if path, ok := strings.CutPrefix(strings.TrimSpace(value), "file:"); ok {
			if err := g.loadFile(strings.TrimSpace(path)); err != nil {
				return nil, err
			}
			continue
		}
		if err := g.parseBlock(value); err != nil {
			return nil, err
		}
	}
	if err := g.check(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Groups) parseBlock(block string) error {
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, members, found := strings.Cut(line, "=")
		if !found {
			return fmt.Errorf("malformed group definition %q, expected \"name = member ...\"", line)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("malformed group definition %q, missing group name", line)
		}
		g.members[name] = append(g.members[name], strings.Fields(members)...)
	}
	return nil
}

func (g *Groups) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read group file: %w", err)
	}
	table := make(map[string][]string)
	if err := yaml.Unmarshal(data, &table); err != nil {
		return fmt.Errorf("parse group file %s: %w", path, err)
	}
	for name, members := range table {
		g.members[name] = append(g.members[name], members...)
	}
	return nil
}

// check rejects references to undefined groups and cyclic definitions.
func (g *Groups) check() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(g.members))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("cyclic group definition: %s", strings.Join(append(path, name), " -> "))
		}
		state[name] = visiting
		for _, m := range g.members[name] {
			ref, ok := strings.CutPrefix(m, "@")
			if !ok {
				continue
			}
			if _, defined := g.members[ref]; !defined {
				return fmt.Errorf("group %s references undefined group @%s", name, ref)
			}
			if err := visit(ref, append(path, name)); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	for name := range g.members {
		if err := visit(name, nil); err != nil {
			return err
		}
	}
	return nil
}

// IsMember reports whether user belongs to the group, directly or through
// any nested group. The group name may be given with or without its "@"
// sigil. Unknown groups have no members.
func (g *Groups) IsMember(user, group string) bool {
	group = strings.TrimPrefix(group, "@")
	if g.members == nil {
		return false
	}
	for _, m := range g.members[group] {
		if ref, ok := strings.CutPrefix(m, "@"); ok {
			if g.IsMember(user, ref) {
				return true
			}
			continue
		}
		if m == user {
			return true
		}
	}
	return false
}

// Names returns the defined group names, for diagnostics.
func (g *Groups) Names() []string {
	names := make([]string, 0, len(g.members))
	for name := range g.members {
		names = append(names, name)
	}
	return names
}
