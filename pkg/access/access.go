// Package access implements the rule language used to authorize operations
// on references and files: user specs with group expansion, action-letter
// masks, literal-or-regex target patterns, and the first-match-wins rule
// engine with its default-deny invariant.
package access

import (
	"fmt"
	"strings"
)

// Action is a single-letter operation code.
type Action byte

// Reference actions.
const (
	Create Action = 'C'
	Rewind Action = 'R'
	Update Action = 'U'
	Delete Action = 'D'
)

// File actions. Delete is shared with the reference alphabet.
const (
	Add    Action = 'A'
	Modify Action = 'M'
)

// String returns the letter for the action.
func (a Action) String() string { return string(rune(a)) }

// Alphabet is the set of letters an action mask may draw from.
type Alphabet string

const (
	// RefActions is the alphabet for reference rules: create, rewind,
	// update, delete.
	RefActions Alphabet = "CRUD"

	// FileActions is the alphabet for file rules: add, modify, delete.
	FileActions Alphabet = "AMD"
)

// ActionSet is a validated action mask.
type ActionSet struct {
	letters string
}

// ParseActions validates mask against the alphabet. Any letter outside the
// alphabet is a configuration error, never silently ignored.
func ParseActions(mask string, alphabet Alphabet) (ActionSet, error) {
	if mask == "" {
		return ActionSet{}, fmt.Errorf("empty action set, expected letters from %q", alphabet)
	}
	for i := 0; i < len(mask); i++ {
		if !strings.ContainsRune(string(alphabet), rune(mask[i])) {
			return ActionSet{}, fmt.Errorf("invalid action %q, expected letters from %q", mask[i:i+1], alphabet)
		}
	}
	return ActionSet{letters: mask}, nil
}

// Has reports whether the set contains the action.
func (s ActionSet) Has(a Action) bool {
	return strings.ContainsRune(s.letters, rune(a))
}

// String returns the mask letters as configured.
func (s ActionSet) String() string { return s.letters }
