package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/mutker/camsync/internal/config"
	"codeberg.org/mutker/camsync/internal/errors"
	"codeberg.org/mutker/camsync/internal/logger"
	"codeberg.org/mutker/camsync/internal/pid"
	"codeberg.org/mutker/camsync/internal/sysutil"
	"github.com/spf13/pflag"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	if !cfg.Debug && !cfg.Verbose {
		if level, err := logger.ParseLevel(string(cfg.LogLevel)); err == nil {
			logger.SetLogLevel(level)
		}
	}
	logger.Debug().Str("file", cfg.ConfigFile).Msg("Config loaded")

	if err := pid.Write(cfg.PIDFile); err != nil {
		var appErr errors.Error
		if errors.As(err, &appErr) {
			logger.FatalWithCode(appErr).Str("pid_file", cfg.PIDFile).Msg("Failed to write PID file")
		}
		logger.Fatal().Err(err).Str("pid_file", cfg.PIDFile).Msg("Failed to write PID file")
	}

	if limit, err := sysutil.RaiseFileLimit(cfg.FileLimit); err != nil {
		logger.Warn().Err(err).Msg("Failed to raise open file limit")
	} else {
		logger.Debug().Uint64("nofile", limit).Msg("Open file limit")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	a := newApp(cfg, logger.Default())
	if err := a.run(ctx); err != nil {
		var appErr errors.Error
		if errors.As(err, &appErr) {
			logger.ErrorWithCode(appErr).Msg("error in main loop")
		} else {
			logger.Error().Err(err).Msg("error in main loop")
		}
	}
	a.shutdown()

	if err := pid.Remove(cfg.PIDFile); err != nil {
		logger.Warn().Err(err).Msg("Failed to remove PID file")
	}
	logger.Info().Msg("Exiting...")
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
