package plugin

import (
	"context"
	"fmt"
	"regexp"

	"github.com/charmbracelet/githooks/pkg/access"
	"github.com/charmbracelet/githooks/pkg/hooks"
)

// CheckReference enforces reference access rules: who may create, rewind,
// update, or delete which refs. Rules live in checkreference.acl, with a
// fallback to the retired checkacls.acl section. The older deny and allow
// regex options are honored as well, evaluated in addition to the ACL.
type CheckReference struct{}

// NewCheckReference returns the plugin.
func NewCheckReference() *CheckReference {
	return &CheckReference{}
}

// Name implements hooks.Handler.
func (*CheckReference) Name() string { return "checkreference" }

// Points implements hooks.Handler.
func (*CheckReference) Points() []hooks.HookPoint {
	return []hooks.HookPoint{hooks.PrePush, hooks.PreReceive, hooks.Update, hooks.RefUpdate}
}

// Run implements hooks.Handler.
func (p *CheckReference) Run(ctx context.Context, inv *hooks.Invocation) ([]hooks.Fault, error) {
	values, notes := inv.Config.Resolve("checkreference", "acl", "checkacls.acl")
	for _, n := range notes {
		inv.Logger.Warn(n.String())
	}
	rules, err := access.ParseRules(values, access.RefActions)
	if err != nil {
		return []hooks.Fault{hooks.ConfigFault(p.Name(), "checkreference.acl", err)}, nil
	}

	denies, allows, faults := p.legacyLists(inv)
	if len(faults) > 0 {
		return faults, nil
	}
	if len(rules) == 0 && len(denies) == 0 && len(allows) == 0 {
		inv.Logger.Warn("checkreference enabled but no rules configured, nothing to enforce")
		return nil, nil
	}

	for _, u := range inv.Updates {
		kind := u.Classify(ctx, inv.Repo)
		if len(rules) > 0 {
			decision, rule := access.Evaluate(rules, inv.Matcher(), inv.User, access.Action(kind), u.Ref)
			switch decision {
			case access.Denied:
				faults = append(faults, hooks.Fault{
					Kind:    hooks.PolicyViolation,
					Plugin:  p.Name(),
					Ref:     u.Ref,
					Option:  "checkreference.acl",
					Message: fmt.Sprintf("%s denied for %s by rule %q", kind, inv.User, rule),
				})
			case access.NoMatch:
				faults = append(faults, hooks.Fault{
					Kind:    hooks.PolicyViolation,
					Plugin:  p.Name(),
					Ref:     u.Ref,
					Option:  "checkreference.acl",
					Message: fmt.Sprintf("no rule allows %s for %s", kind, inv.User),
				})
			}
		}
		faults = append(faults, p.legacyEvaluate(denies, allows, u.Ref)...)
	}
	return faults, nil
}

// legacyLists compiles the deprecated checkreference.deny and
// checkreference.allow regex options.
func (p *CheckReference) legacyLists(inv *hooks.Invocation) (denies, allows []*regexp.Regexp, faults []hooks.Fault) {
	compile := func(option string) []*regexp.Regexp {
		values := inv.Config.GetAll("checkreference", option)
		if len(values) > 0 {
			inv.Logger.Warn(fmt.Sprintf("option checkreference.%s is deprecated, use checkreference.acl instead", option))
		}
		var res []*regexp.Regexp
		for _, v := range values {
			re, err := regexp.Compile(v)
			if err != nil {
				faults = append(faults, hooks.ConfigFault(p.Name(), "checkreference."+option, err))
				continue
			}
			res = append(res, re)
		}
		return res
	}
	denies = compile("deny")
	allows = compile("allow")
	return denies, allows, faults
}

// legacyEvaluate applies the deprecated lists to one ref: a ref matching
// any deny pattern is rejected, and when allow patterns exist the ref must
// match one of them. Both run in addition to the ACL, producing the union
// of faults.
func (p *CheckReference) legacyEvaluate(denies, allows []*regexp.Regexp, ref string) []hooks.Fault {
	var faults []hooks.Fault
	for _, re := range denies {
		if re.MatchString(ref) {
			faults = append(faults, hooks.Fault{
				Kind:    hooks.PolicyViolation,
				Plugin:  p.Name(),
				Ref:     ref,
				Option:  "checkreference.deny",
				Message: fmt.Sprintf("ref matches deny pattern %q", re),
			})
			break
		}
	}
	if len(allows) > 0 {
		allowed := false
		for _, re := range allows {
			if re.MatchString(ref) {
				allowed = true
				break
			}
		}
		if !allowed {
			faults = append(faults, hooks.Fault{
				Kind:    hooks.PolicyViolation,
				Plugin:  p.Name(),
				Ref:     ref,
				Option:  "checkreference.allow",
				Message: "ref matches no allow pattern",
			})
		}
	}
	return faults
}
