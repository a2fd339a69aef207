package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/githooks/pkg/git"
	"github.com/charmbracelet/githooks/pkg/hooks"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// shimMarker identifies shims written by install, so upgrades and
// uninstall never touch hooks that belong to something else.
const shimMarker = "# installed by githooks"

var installForce bool

var installCmd = &cobra.Command{
	Use:   "install [HOOK...]",
	Short: "Install hook shims into the repository",
	Long: "Install writes a small shim for each hook into the directory git runs\n" +
		"hooks from, honoring core.hooksPath. Without arguments every git hook is\n" +
		"installed; Gerrit hooks are only installed when named explicitly.\n" +
		"Existing hooks that were not written by githooks are left alone unless\n" +
		"--force is given.",
	RunE: runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall [HOOK...]",
	Short: "Remove installed hook shims",
	RunE:  runUninstall,
}

func init() {
	installCmd.Flags().BoolVarP(&installForce, "force", "f", false, "overwrite hooks not written by githooks")
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	points, err := selectPoints(args, gitPoints())
	if err != nil {
		return err
	}
	repo, err := git.Discover(time.Minute)
	if err != nil {
		return err
	}
	hooksDir, err := repo.HooksDir(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		return err
	}

	logger := log.FromContext(ctx)
	var foreign []string
	for _, p := range points {
		filename := filepath.Join(hooksDir, p.String())
		content := shimScript(p)
		existing, err := os.ReadFile(filename)
		switch {
		case err == nil && string(existing) == content:
			continue
		case err == nil && !isShim(existing) && !installForce:
			foreign = append(foreign, filename)
			continue
		case err != nil && !os.IsNotExist(err):
			return err
		}
		if err := os.WriteFile(filename, []byte(content), 0o700); err != nil { //nolint:gosec
			return fmt.Errorf("write hook %s: %w", p, err)
		}
		logger.Info("hook installed", "hook", p.String(), "path", filename)
	}
	if len(foreign) > 0 {
		return fmt.Errorf("existing hooks not written by githooks: %s (use --force to overwrite)",
			strings.Join(foreign, ", "))
	}
	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	points, err := selectPoints(args, hooks.Points())
	if err != nil {
		return err
	}
	repo, err := git.Discover(time.Minute)
	if err != nil {
		return err
	}
	hooksDir, err := repo.HooksDir(ctx)
	if err != nil {
		return err
	}

	logger := log.FromContext(ctx)
	for _, p := range points {
		filename := filepath.Join(hooksDir, p.String())
		existing, err := os.ReadFile(filename)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return err
		}
		if !isShim(existing) {
			logger.Warn("not written by githooks, leaving in place", "path", filename)
			continue
		}
		if err := os.Remove(filename); err != nil {
			return err
		}
		logger.Info("hook removed", "hook", p.String())
	}
	return nil
}

// shimScript resolves the binary through PATH at hook time. An absolute
// path would break the moment the binary is reinstalled elsewhere.
func shimScript(p hooks.HookPoint) string {
	return fmt.Sprintf("#!/bin/sh\n%s\nexec githooks run %s \"$@\"\n", shimMarker, p)
}

func isShim(data []byte) bool {
	return bytes.Contains(data, []byte(shimMarker))
}

func selectPoints(args []string, defaults []hooks.HookPoint) ([]hooks.HookPoint, error) {
	if len(args) == 0 {
		return defaults, nil
	}
	points := make([]hooks.HookPoint, 0, len(args))
	for _, a := range args {
		p, err := hooks.ParsePoint(a)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

// gitPoints returns the points git itself invokes, everything but the
// Gerrit surface.
func gitPoints() []hooks.HookPoint {
	var points []hooks.HookPoint
	for _, p := range hooks.Points() {
		switch p {
		case hooks.RefUpdate, hooks.PatchsetCreated, hooks.DraftPublished:
			continue
		}
		points = append(points, p)
	}
	return points
}
