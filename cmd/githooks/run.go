package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/githooks/pkg/config"
	"github.com/charmbracelet/githooks/pkg/gerrit"
	"github.com/charmbracelet/githooks/pkg/git"
	"github.com/charmbracelet/githooks/pkg/hooks"
	"github.com/charmbracelet/githooks/pkg/plugin"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run HOOK [ARG...]",
	Short: "Run the policy handlers for a hook",
	Long: "Run dispatches one hook invocation to the configured plugins. It is what\n" +
		"the installed shims call; symlinking the binary under a hook's name has\n" +
		"the same effect. Arguments and stdin are passed through exactly as git\n" +
		"or Gerrit provide them.",
	Args: cobra.MinimumNArgs(1),
	// Gerrit passes its own --flags, hand them through untouched.
	DisableFlagParsing: true,
	RunE:               runHook,
}

func runHook(cmd *cobra.Command, args []string) error {
	if len(args) == 0 || args[0] == "--help" || args[0] == "-h" {
		return cmd.Help()
	}
	point, err := hooks.ParsePoint(args[0])
	if err != nil {
		return err
	}
	args = args[1:]

	ctx := cmd.Context()
	env := config.FromContext(ctx)
	logger := log.FromContext(ctx).WithPrefix(point.String())

	repo, err := git.Discover(time.Minute)
	if err != nil {
		return err
	}
	raw, err := repo.ConfigList(ctx)
	if err != nil {
		return fmt.Errorf("read configuration: %w", err)
	}
	cfg := config.ParseList(raw)

	timeout, err := env.CommandTimeout(cfg)
	if err != nil {
		return fmt.Errorf("option githooks.timeout: %w", err)
	}
	repo.SetTimeout(timeout)

	inv, err := hooks.NewInvocation(point, repo, cfg, env, logger)
	if err != nil {
		return err
	}
	inv.Args = args
	if err := collectInputs(cmd, inv, args); err != nil {
		return err
	}

	registry := hooks.NewRegistry()
	plugin.Register(registry)

	res := hooks.NewDispatcher(registry).Dispatch(ctx, inv)

	switch point {
	case hooks.PatchsetCreated, hooks.DraftPublished:
		if err := gerrit.VoteOnResult(ctx, inv, res); err != nil {
			logger.Error("vote failed", "error", err)
		}
	}

	if res.Accepted() {
		return nil
	}
	hooks.WriteReport(cmd.ErrOrStderr(), point, res.Faults)
	if !point.Enforcing() {
		return nil
	}
	// The report is the whole error message, keep cobra from adding
	// another line.
	cmd.SilenceErrors = true
	return fmt.Errorf("%s rejected", point)
}

// collectInputs normalizes the hook's surface into the invocation: ref
// updates from stdin or argv, the commit message file path, Gerrit flag
// arguments.
func collectInputs(cmd *cobra.Command, inv *hooks.Invocation, args []string) error {
	switch inv.Point {
	case hooks.PreReceive, hooks.PostReceive:
		updates, err := git.ParseReceiveUpdates(cmd.InOrStdin())
		if err != nil {
			return err
		}
		return inv.SetUpdates(updates)
	case hooks.PrePush:
		updates, err := git.ParsePushUpdates(cmd.InOrStdin())
		if err != nil {
			return err
		}
		return inv.SetUpdates(updates)
	case hooks.Update:
		if len(args) != 3 {
			return fmt.Errorf("update hook expects REF OLD NEW, got %d arguments", len(args))
		}
		u, err := git.ParseRefUpdate(args[0], args[1], args[2])
		if err != nil {
			return err
		}
		return inv.SetUpdates([]git.RefUpdate{u})
	case hooks.PrepareCommitMsg, hooks.CommitMsg:
		if len(args) == 0 {
			return fmt.Errorf("%s hook expects the message file path", inv.Point)
		}
		inv.MessageFile = args[0]
	case hooks.RefUpdate:
		ga := gerrit.ParseArgs(args)
		applyGerritArgs(inv, ga)
		u, err := gerrit.Update(ga)
		if err != nil {
			return err
		}
		return inv.SetUpdates([]git.RefUpdate{u})
	case hooks.PatchsetCreated, hooks.DraftPublished:
		applyGerritArgs(inv, gerrit.ParseArgs(args))
	}
	return nil
}

// applyGerritArgs attaches the parsed flags and adopts the uploader as the
// acting user unless the environment already named one.
func applyGerritArgs(inv *hooks.Invocation, ga *hooks.GerritArgs) {
	inv.Gerrit = ga
	if inv.Env.User == "" && ga.UploaderUsername != "" {
		inv.User = ga.UploaderUsername
	}
}
