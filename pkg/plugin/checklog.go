package plugin

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/githooks/pkg/git"
	"github.com/charmbracelet/githooks/pkg/hooks"
)

// CheckLog enforces commit message conventions: a non-empty title, title
// and body width limits, a trailing-period rule for the title, and
// free-form regex requirements with ! negation. At commit time it reads
// the message file git hands to the commit-msg hook; at push time it
// checks every pushed commit's message.
type CheckLog struct{}

// NewCheckLog returns the plugin.
func NewCheckLog() *CheckLog {
	return &CheckLog{}
}

// Name implements hooks.Handler.
func (*CheckLog) Name() string { return "checklog" }

// Points implements hooks.Handler.
func (*CheckLog) Points() []hooks.HookPoint {
	return []hooks.HookPoint{
		hooks.CommitMsg,
		hooks.PrePush,
		hooks.PreReceive,
		hooks.Update,
		hooks.RefUpdate,
		hooks.PatchsetCreated,
		hooks.DraftPublished,
	}
}

type logRules struct {
	titleRequired bool
	titleMaxWidth int
	titlePeriod   string // "", "required", or "forbidden"
	bodyMaxWidth  int
	match         []logPattern
}

type logPattern struct {
	re     *regexp.Regexp
	negate bool
	source string
}

// Run implements hooks.Handler.
func (p *CheckLog) Run(ctx context.Context, inv *hooks.Invocation) ([]hooks.Fault, error) {
	rules, faults := p.parseRules(inv)
	if len(faults) > 0 {
		return faults, nil
	}

	if inv.Point == hooks.CommitMsg {
		data, err := os.ReadFile(inv.MessageFile)
		if err != nil {
			return []hooks.Fault{hooks.ToolFault(p.Name(), fmt.Errorf("read message file: %w", err))}, nil
		}
		return p.checkMessage(rules, "", "", stripComments(string(data))), nil
	}

	return eachCommit(ctx, inv, p.Name(), func(ref string, c *git.Commit) []hooks.Fault {
		return p.checkMessage(rules, ref, c.ID.String(), c.Message)
	}), nil
}

func (p *CheckLog) parseRules(inv *hooks.Invocation) (logRules, []hooks.Fault) {
	var (
		rules  logRules
		faults []hooks.Fault
	)
	cfgErr := func(option string, err error) {
		faults = append(faults, hooks.ConfigFault(p.Name(), "checklog."+option, err))
	}

	required, _, err := inv.Config.GetBool("checklog", "title-required")
	if err != nil {
		cfgErr("title-required", err)
	}
	rules.titleRequired = required

	// title-max-length is the retired name for title-max-width.
	widths, notes := inv.Config.Resolve("checklog", "title-max-width", "title-max-length")
	for _, n := range notes {
		inv.Logger.Warn(n.String())
	}
	if len(widths) > 0 {
		w, err := strconv.Atoi(strings.TrimSpace(widths[len(widths)-1]))
		if err != nil || w < 0 {
			cfgErr("title-max-width", fmt.Errorf("invalid width %q", widths[len(widths)-1]))
		} else {
			rules.titleMaxWidth = w
		}
	}

	if v, ok := inv.Config.Get("checklog", "title-period"); ok {
		switch v {
		case "required", "forbidden":
			rules.titlePeriod = v
		default:
			cfgErr("title-period", fmt.Errorf("invalid value %q, expected \"required\" or \"forbidden\"", v))
		}
	}

	width, ok, err := inv.Config.GetInt("checklog", "body-max-width")
	if err != nil {
		cfgErr("body-max-width", err)
	} else if ok {
		rules.bodyMaxWidth = width
	}

	for _, v := range inv.Config.GetAll("checklog", "match") {
		pattern := logPattern{source: v}
		expr := v
		if strings.HasPrefix(expr, "!") {
			pattern.negate = true
			expr = expr[1:]
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			cfgErr("match", err)
			continue
		}
		pattern.re = re
		rules.match = append(rules.match, pattern)
	}
	return rules, faults
}

func (p *CheckLog) checkMessage(rules logRules, ref, commit, message string) []hooks.Fault {
	var faults []hooks.Fault
	fault := func(option, format string, args ...interface{}) {
		faults = append(faults, hooks.Fault{
			Kind:    hooks.PolicyViolation,
			Plugin:  p.Name(),
			Ref:     ref,
			Commit:  commit,
			Option:  "checklog." + option,
			Message: fmt.Sprintf(format, args...),
		})
	}

	title, body, _ := strings.Cut(message, "\n")
	title = strings.TrimSpace(title)

	if rules.titleRequired && title == "" {
		fault("title-required", "commit message has no title")
	}
	if rules.titleMaxWidth > 0 && len(title) > rules.titleMaxWidth {
		fault("title-max-width", "title is %d characters long, limit is %d", len(title), rules.titleMaxWidth)
	}
	if title != "" {
		switch rules.titlePeriod {
		case "required":
			if !strings.HasSuffix(title, ".") {
				fault("title-period", "title must end with a period")
			}
		case "forbidden":
			if strings.HasSuffix(title, ".") {
				fault("title-period", "title must not end with a period")
			}
		}
	}

	if rules.bodyMaxWidth > 0 {
		for i, line := range strings.Split(body, "\n") {
			if len(line) > rules.bodyMaxWidth {
				fault("body-max-width", "body line %d is %d characters long, limit is %d", i+2, len(line), rules.bodyMaxWidth)
			}
		}
	}

	for _, pattern := range rules.match {
		matched := pattern.re.MatchString(message)
		if pattern.negate && matched {
			fault("match", "message matches forbidden pattern %q", pattern.source)
		}
		if !pattern.negate && !matched {
			fault("match", "message does not match required pattern %q", pattern.source)
		}
	}
	return faults
}

// stripComments removes the comment lines git adds to the message file.
func stripComments(message string) string {
	var lines []string
	for _, line := range strings.Split(message, "\n") {
		if strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
