package hooks

import (
	"fmt"
	"sort"
	"strings"
)

// FaultKind classifies why a fault was recorded.
type FaultKind int

const (
	// PolicyViolation is the expected case, content that breaks a
	// configured rule.
	PolicyViolation FaultKind = iota
	// ConfigError marks an option the plugin could not parse or apply.
	ConfigError
	// ToolFailure marks an external command that failed unexpectedly.
	// Failures count against the push, a broken tool never waves content
	// through.
	ToolFailure
	// InternalError marks a bug in a handler, recovered at the dispatch
	// boundary.
	InternalError
)

// String implements fmt.Stringer.
func (k FaultKind) String() string {
	switch k {
	case PolicyViolation:
		return "policy violation"
	case ConfigError:
		return "configuration error"
	case ToolFailure:
		return "tool failure"
	case InternalError:
		return "internal error"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Fault is one recorded reason for rejection, with enough context to fix
// it: the plugin, the ref and commit it applies to, the configuration
// option involved, and free-form detail. Faults accumulate across all
// handlers of an invocation and are reported together, never truncated to
// the first.
type Fault struct {
	Kind    FaultKind
	Plugin  string
	Message string

	// Optional context.
	Ref    string
	Commit string
	Option string
	Detail string

	seq int
}

// String renders the fault on one line.
func (f Fault) String() string {
	var b strings.Builder
	switch {
	case f.Ref != "" && f.Commit != "":
		fmt.Fprintf(&b, "%s @ %s: ", f.Ref, short(f.Commit))
	case f.Ref != "":
		fmt.Fprintf(&b, "%s: ", f.Ref)
	case f.Commit != "":
		fmt.Fprintf(&b, "%s: ", short(f.Commit))
	}
	b.WriteString(f.Message)
	if f.Option != "" {
		fmt.Fprintf(&b, " (option %s)", f.Option)
	}
	return b.String()
}

func short(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}

// Faultf builds a policy-violation fault.
func Faultf(plugin, format string, args ...interface{}) Fault {
	return Fault{Kind: PolicyViolation, Plugin: plugin, Message: fmt.Sprintf(format, args...)}
}

// ConfigFault builds a configuration-error fault attributed to an option.
func ConfigFault(plugin, option string, err error) Fault {
	return Fault{Kind: ConfigError, Plugin: plugin, Option: option, Message: err.Error()}
}

// ToolFault builds a fault for an external command failure.
func ToolFault(plugin string, err error) Fault {
	return Fault{Kind: ToolFailure, Plugin: plugin, Message: err.Error()}
}

// SortFaults orders faults for reporting: by ref, then commit, then
// plugin, ties broken by recording order. The order is a pure function of
// the recorded set, independent of handler scheduling.
func SortFaults(faults []Fault) {
	sort.SliceStable(faults, func(i, j int) bool {
		a, b := faults[i], faults[j]
		if a.Ref != b.Ref {
			return a.Ref < b.Ref
		}
		if a.Commit != b.Commit {
			return a.Commit < b.Commit
		}
		if a.Plugin != b.Plugin {
			return a.Plugin < b.Plugin
		}
		return a.seq < b.seq
	})
}
