package hooks

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/githooks/pkg/config"
	"golang.org/x/sync/errgroup"
)

// State tracks an invocation through dispatch.
type State int

const (
	// Idle is the state before configuration is resolved.
	Idle State = iota
	// ConfigResolved means the enabled plugin set is known.
	ConfigResolved
	// HandlersRunning means handlers are executing.
	HandlersRunning
	// Decided means all handlers have run and faults are tallied.
	Decided
	// Accepted is the terminal state of a clean invocation.
	Accepted
	// Rejected is the terminal state of an invocation with faults.
	Rejected
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ConfigResolved:
		return "config resolved"
	case HandlersRunning:
		return "handlers running"
	case Decided:
		return "decided"
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Result is the outcome of one dispatch: the terminal state and the
// sorted fault list that produced it.
type Result struct {
	Faults []Fault

	state State
}

// Accepted reports whether the invocation passed.
func (r Result) Accepted() bool { return r.state == Accepted }

// Dispatcher executes the handlers registered for a hook point and folds
// their faults into an accept or reject decision. A dispatcher is built
// per invocation and never reused.
type Dispatcher struct {
	registry *Registry
	state    State
}

// NewDispatcher returns a dispatcher over the registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry, state: Idle}
}

// State returns the dispatcher's current state.
func (d *Dispatcher) State() State { return d.state }

// Dispatch runs one invocation through the state machine. Every handler
// for the point runs, in registration order, unless githooks.failfast cuts
// the run short after the first handler that faults. Administrators bypass
// enforcing points entirely. The decision is Accepted exactly when zero
// faults were recorded.
func (d *Dispatcher) Dispatch(ctx context.Context, inv *Invocation) Result {
	enabled, faults := d.resolvePlugins(inv)
	d.state = ConfigResolved
	if len(faults) > 0 {
		// A plugin list that cannot be resolved has no safe policy
		// default, fail closed before running anything.
		return d.decide(inv, faults)
	}

	if inv.Point.Enforcing() && inv.IsAdmin() {
		inv.Logger.Debug("administrator bypass", "user", inv.User)
		d.state = Accepted
		return Result{state: Accepted}
	}

	var handlers []Handler
	for _, h := range d.registry.Handlers(inv.Point) {
		if !enabled[h.Name()] {
			continue
		}
		if inv.Env.PluginDisabled(h.Name()) {
			inv.Logger.Warn("plugin disabled for this invocation", "plugin", h.Name())
			continue
		}
		handlers = append(handlers, h)
	}

	failFast, _, err := inv.Config.GetBool("githooks", "failfast")
	if err != nil {
		faults = append(faults, ConfigFault("githooks", "githooks.failfast", err))
		return d.decide(inv, faults)
	}
	parallel, _, err := inv.Config.GetBool("githooks", "parallel")
	if err != nil {
		faults = append(faults, ConfigFault("githooks", "githooks.parallel", err))
		return d.decide(inv, faults)
	}

	d.state = HandlersRunning
	perHandler := make([][]Fault, len(handlers))
	if parallel && !failFast {
		var g errgroup.Group
		for i, h := range handlers {
			i, h := i, h
			g.Go(func() error {
				perHandler[i] = d.runHandler(ctx, inv, h)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, h := range handlers {
			perHandler[i] = d.runHandler(ctx, inv, h)
			if failFast && len(perHandler[i]) > 0 {
				inv.Logger.Debug("failfast, skipping remaining handlers", "after", h.Name())
				break
			}
		}
	}
	for _, fs := range perHandler {
		faults = append(faults, fs...)
	}
	return d.decide(inv, faults)
}

// runHandler executes one handler, converting a panic or error return into
// an internal-error fault so one broken plugin cannot stop unrelated
// policies from being evaluated.
func (d *Dispatcher) runHandler(ctx context.Context, inv *Invocation, h Handler) (faults []Fault) {
	defer func() {
		if r := recover(); r != nil {
			inv.Logger.Error("plugin panicked", "plugin", h.Name(), "panic", r)
			faults = append(faults, Fault{
				Kind:    InternalError,
				Plugin:  h.Name(),
				Message: fmt.Sprintf("internal error in plugin %s: %v", h.Name(), r),
			})
		}
	}()
	fs, err := h.Run(ctx, inv)
	faults = append(faults, fs...)
	if err != nil {
		faults = append(faults, Fault{
			Kind:    InternalError,
			Plugin:  h.Name(),
			Message: fmt.Sprintf("internal error in plugin %s: %v", h.Name(), err),
		})
	}
	return faults
}

// resolvePlugins builds the enabled plugin set from githooks.plugin minus
// githooks.disable. Enabling a name no plugin answers to is a
// configuration error.
func (d *Dispatcher) resolvePlugins(inv *Invocation) (map[string]bool, []Fault) {
	var faults []Fault
	enabled := make(map[string]bool)
	for _, name := range config.Split(inv.Config.GetAll("githooks", "plugin")) {
		lower := strings.ToLower(name)
		if !d.registry.Known(lower) {
			faults = append(faults, Fault{
				Kind:    ConfigError,
				Plugin:  "githooks",
				Option:  "githooks.plugin",
				Message: fmt.Sprintf("unknown plugin %q", name),
			})
			continue
		}
		enabled[lower] = true
	}
	for _, name := range config.Split(inv.Config.GetAll("githooks", "disable")) {
		delete(enabled, strings.ToLower(name))
	}
	return enabled, faults
}

func (d *Dispatcher) decide(inv *Invocation, faults []Fault) Result {
	d.state = Decided
	for i := range faults {
		faults[i].seq = i
	}
	SortFaults(faults)
	if len(faults) == 0 {
		d.state = Accepted
		return Result{state: Accepted}
	}
	d.state = Rejected
	inv.Logger.Debug("invocation rejected", "faults", len(faults))
	return Result{state: Rejected, Faults: faults}
}
