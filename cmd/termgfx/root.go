package main

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/llehouerou/termgfx/internal/config"
	"github.com/llehouerou/termgfx/internal/diag"
	"github.com/llehouerou/termgfx/internal/errmsg"
	"github.com/llehouerou/termgfx/internal/graphics"
	"github.com/llehouerou/termgfx/internal/kittyimg"
)

// Grid size used for replayed streams. Placement is not modelled, so only
// the store needs one.
const (
	replayLines   = 24
	replayColumns = 80
)

// newRootCmd creates the root termgfx command with all subcommands attached.
func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "termgfx",
		Short:         "Kitty graphics protocol tooling",
		Long:          "termgfx encodes images as kitty graphics escape sequences and replays\ncaptured escape streams through the terminal-side image store.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "configuration file (default: XDG config, then ./termgfx.toml)")

	load := func() (*config.Config, error) {
		var (
			cfg *config.Config
			err error
		)
		if configPath != "" {
			cfg, err = config.LoadFrom(configPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return nil, opError(errmsg.OpLoadConfig, err)
		}
		return cfg, nil
	}

	cmd.AddCommand(
		newSendCmd(load),
		newReplayCmd(load),
		newDumpCmd(load),
	)

	return cmd
}

// opError turns err into the message shown to the user.
func opError(op errmsg.Op, err error) error {
	return errors.New(errmsg.Format(op, err))
}

type configLoader func() (*config.Config, error)

// replay feeds the escape stream in r through a fresh store. Failures are
// logged to stderr (or the configured log file).
func replay(cfg *config.Config, r io.Reader, stderr io.Writer) (*graphics.Store, kittyimg.Stats, error) {
	log, closeLog, err := diag.NewLogger(cfg.GetLogConfig(), stderr)
	if err != nil {
		return nil, kittyimg.Stats{}, err
	}
	defer func() { _ = closeLog() }()
	defer func() { _ = log.Sync() }()

	rep := diag.New(log)
	store := graphics.New(replayLines, replayColumns,
		graphics.WithLimits(cfg.GetGraphicsConfig()),
		graphics.WithReporter(rep),
	)

	stats, err := kittyimg.Feed(r, store, rep)
	if err != nil {
		store.Close()
		return nil, stats, opError(errmsg.OpReadStream, err)
	}
	return store, stats, nil
}
