package access

import (
	"fmt"
	"strings"
)

// Decision is the outcome of evaluating a rule list for one access.
type Decision int

const (
	// NoMatch means no rule covered the access. Callers enforcing a
	// policy treat this as a denial.
	NoMatch Decision = iota
	// Allowed means the first matching rule was an allow rule.
	Allowed
	// Denied means the first matching rule was a deny rule.
	Denied
)

// String implements fmt.Stringer.
func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allow"
	case Denied:
		return "deny"
	default:
		return "no match"
	}
}

// Granted reports whether the decision permits the access. Only an
// explicit allow grants, everything else is a refusal.
func (d Decision) Granted() bool { return d == Allowed }

// Rule is one parsed access rule. A nil Who matches every user.
type Rule struct {
	Allow   bool
	Actions ActionSet
	Target  TargetSpec
	Who     *UserSpec

	// Source is the raw rule text, kept for fault messages.
	Source string
}

// String implements fmt.Stringer.
func (r Rule) String() string { return r.Source }

// Match reports whether the rule covers the given access. The user match
// is delegated to the matcher so group references resolve.
func (r Rule) Match(m *Matcher, user string, action Action, target string) bool {
	if !r.Actions.Has(action) {
		return false
	}
	if !r.Target.Match(target) {
		return false
	}
	if r.Who == nil {
		return true
	}
	return m.Match(user, *r.Who)
}

// ParseRule parses a single rule of the form
//
//	allow|deny ACTIONS TARGET [by WHO]
//
// against the given action alphabet. ACTIONS is a non-empty set of letters
// from the alphabet, TARGET a literal or ^-anchored regular expression, and
// WHO a user spec. Any deviation is a configuration error.
func ParseRule(text string, alphabet Alphabet) (Rule, error) {
	fields := strings.Fields(text)
	if len(fields) < 3 {
		return Rule{}, fmt.Errorf("malformed rule %q, expected \"allow|deny ACTIONS TARGET [by WHO]\"", text)
	}

	var rule Rule
	rule.Source = strings.Join(fields, " ")
	switch fields[0] {
	case "allow":
		rule.Allow = true
	case "deny":
		rule.Allow = false
	default:
		return Rule{}, fmt.Errorf("malformed rule %q, verb must be allow or deny, got %q", text, fields[0])
	}

	actions, err := ParseActions(fields[1], alphabet)
	if err != nil {
		return Rule{}, fmt.Errorf("malformed rule %q: %w", text, err)
	}
	rule.Actions = actions

	target, err := ParseTarget(fields[2])
	if err != nil {
		return Rule{}, fmt.Errorf("malformed rule %q: %w", text, err)
	}
	rule.Target = target

	switch len(fields) {
	case 3:
	case 5:
		if fields[3] != "by" {
			return Rule{}, fmt.Errorf("malformed rule %q, expected \"by\", got %q", text, fields[3])
		}
		who, err := ParseUserSpec(fields[4])
		if err != nil {
			return Rule{}, fmt.Errorf("malformed rule %q: %w", text, err)
		}
		rule.Who = &who
	default:
		return Rule{}, fmt.Errorf("malformed rule %q, expected \"allow|deny ACTIONS TARGET [by WHO]\"", text)
	}

	return rule, nil
}

// ParseRules parses one rule per value. Values carrying several
// newline-separated rules are split first. Blank lines and #-comments are
// skipped.
func ParseRules(values []string, alphabet Alphabet) ([]Rule, error) {
	var rules []Rule
	for _, value := range values {
		for _, line := range strings.Split(value, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			rule, err := ParseRule(line, alphabet)
			if err != nil {
				return nil, err
			}
			rules = append(rules, rule)
		}
	}
	return rules, nil
}

// Evaluate walks the rules in order and returns the decision of the first
// rule covering the access, along with that rule. When no rule matches it
// returns NoMatch and a nil rule. Rule order is the only precedence there
// is: a deny behind an allow is unreachable for accesses the allow covers.
func Evaluate(rules []Rule, m *Matcher, user string, action Action, target string) (Decision, *Rule) {
	for i := range rules {
		if !rules[i].Match(m, user, action, target) {
			continue
		}
		if rules[i].Allow {
			return Allowed, &rules[i]
		}
		return Denied, &rules[i]
	}
	return NoMatch, nil
}
