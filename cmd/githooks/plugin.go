package main

import (
	"strings"
	"time"

	"github.com/caarlos0/tablewriter"
	"github.com/charmbracelet/githooks/pkg/config"
	"github.com/charmbracelet/githooks/pkg/git"
	"github.com/charmbracelet/githooks/pkg/hooks"
	"github.com/charmbracelet/githooks/pkg/plugin"
	"github.com/spf13/cobra"
)

var pluginCmd = &cobra.Command{
	Use:   "plugin",
	Short: "Manage policy plugins",
}

var pluginListCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in plugins and their enabled state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		enabled := enabledPlugins(cmd)
		return tablewriter.Render(
			cmd.OutOrStdout(),
			plugin.Builtins(),
			[]string{"Name", "Hooks", "Enabled"},
			func(h hooks.Handler) ([]string, error) {
				points := make([]string, 0, len(h.Points()))
				for _, p := range h.Points() {
					points = append(points, p.String())
				}
				state := "no"
				if enabled[h.Name()] {
					state = "yes"
				}
				return []string{h.Name(), strings.Join(points, ", "), state}, nil
			},
		)
	},
}

func init() {
	pluginCmd.AddCommand(pluginListCmd)
}

// enabledPlugins resolves githooks.plugin minus githooks.disable for the
// repository around the working directory. Outside a repository every
// plugin reads as disabled.
func enabledPlugins(cmd *cobra.Command) map[string]bool {
	enabled := make(map[string]bool)
	repo, err := git.Discover(time.Minute)
	if err != nil {
		return enabled
	}
	raw, err := repo.ConfigList(cmd.Context())
	if err != nil {
		return enabled
	}
	cfg := config.ParseList(raw)
	for _, name := range config.Split(cfg.GetAll("githooks", "plugin")) {
		enabled[strings.ToLower(name)] = true
	}
	for _, name := range config.Split(cfg.GetAll("githooks", "disable")) {
		delete(enabled, strings.ToLower(name))
	}
	return enabled
}
