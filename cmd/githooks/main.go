package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/githooks/pkg/config"
	"github.com/charmbracelet/githooks/pkg/hooks"
	githookslog "github.com/charmbracelet/githooks/pkg/log"
	"github.com/charmbracelet/log"
	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	ctx := context.Background()

	env, err := config.ParseEnv()
	if err != nil {
		log.Fatal(err)
	}

	logger, logFile, err := githookslog.NewLogger(env)
	if err != nil {
		log.Fatal(err)
	}
	if logFile != nil {
		defer logFile.Close() //nolint:errcheck
	}

	// Set global logger
	log.SetDefault(logger)

	// Set the max number of processes to the number of CPUs
	// This is useful when running githooks in a container
	if _, err := maxprocs.Set(maxprocs.Logger(log.Debugf)); err != nil {
		log.Warn("couldn't set automaxprocs", "error", err)
	}

	ctx = config.WithContext(ctx, env)
	ctx = log.WithContext(ctx, logger)

	// When installed as the hook itself, the binary is invoked under the
	// hook's name; rewrite into the run command.
	if name := filepath.Base(os.Args[0]); name != "githooks" {
		if _, err := hooks.ParsePoint(name); err == nil {
			os.Args = append([]string{os.Args[0], "run", name}, os.Args[1:]...)
		}
	}

	if rootCmd.ExecuteContext(ctx) != nil {
		os.Exit(1)
	}
}
