package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ttu-dot/fitanalysis/config"
	"github.com/ttu-dot/fitanalysis/hrmerge"
	"github.com/ttu-dot/fitanalysis/internal/service"
	"github.com/ttu-dot/fitanalysis/store"
)

var rootCmd = &cobra.Command{
	Use:           "fitanalysis",
	Short:         "Store FIT activities, merge offline heart rate and export the results",
	Version:       config.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	configPath string
	dataDir    string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (overrides config)")
}

type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

func exitError(code int, err error) error {
	return &exitCodeError{code: code, err: err}
}

// app is the wiring shared by every subcommand.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	store *store.Store
	svc   *service.Service
}

func openApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, exitError(1, fmt.Errorf("failed to load config: %w", err))
	}
	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}
	log, err := cfg.Log.NewLogger()
	if err != nil {
		return nil, exitError(1, err)
	}
	st, err := store.OpenDir(cfg.Storage.DataDir, log)
	if err != nil {
		return nil, exitError(1, fmt.Errorf("failed to open store: %w", err))
	}
	svc := service.New(service.Config{
		Store:  st,
		Engine: hrmerge.New(hrmerge.Config{Defaults: cfg.HRMerge.Criteria()}),
		Logger: log,
	})
	return &app{cfg: cfg, log: log, store: st, svc: svc}, nil
}

func (a *app) Close() {
	_ = a.store.Close()
	_ = a.log.Sync()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fitanalysis failed: %v\n", err)
		var coded *exitCodeError
		if errors.As(err, &coded) {
			os.Exit(coded.code)
		}
		os.Exit(1)
	}
}
