package main

import (
	"runtime/debug"

	"github.com/charmbracelet/githooks/pkg/version"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "githooks",
	Short:        "Policy hooks for git and Gerrit",
	Long:         "Githooks dispatches git and Gerrit hooks to configuration-driven policy plugins.",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(
		runCmd,
		installCmd,
		uninstallCmd,
		pluginCmd,
		manCmd,
	)

	rootCmd.CompletionOptions.HiddenDefaultCmd = true

	if len(version.CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + version.CommitSHA[0:7] + ")\n")
	}
	if version.Version == "" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Sum != "" {
			version.Version = info.Main.Version
		} else {
			version.Version = "unknown (built from source)"
		}
	}
	rootCmd.Version = version.Version
}
