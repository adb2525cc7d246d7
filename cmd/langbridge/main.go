package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lexcodex/langbridge/bridge"
	"github.com/lexcodex/langbridge/internal/config"
	"github.com/lexcodex/langbridge/persistence"
)

var (
	flagWorkspace string
	flagConfig    string
	flagLogLevel  string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "langbridge",
		Short:         "Drive external language-service processes from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagWorkspace, "workspace", envOrDefault("LANGBRIDGE_WORKSPACE", "."), "Workspace root")
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default <workspace>/langbridge.yaml)")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", envOrDefault("LANGBRIDGE_LOG_LEVEL", ""), "Override log level (debug, info, warn, error)")

	root.AddCommand(newCompleteCmd(), newDefinitionsCmd(), newHackCmd(), newServicesCmd(), newStateCmd())
	return root
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// session is the per-invocation environment shared by subcommands.
type session struct {
	cfg   *config.Config
	env   *bridge.Environment
	store *persistence.StateStore
}

func (s *session) Close() {
	if s.store != nil {
		_ = s.store.Close()
	}
}

func openSession() (*session, error) {
	workspace, err := filepath.Abs(flagWorkspace)
	if err != nil {
		return nil, err
	}
	path := flagConfig
	if path == "" {
		path = filepath.Join(workspace, config.DefaultFile)
	}
	cfg, err := config.Load(path, workspace)
	if err != nil {
		return nil, err
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	store, err := persistence.NewStateStore(cfg.StateDB)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	return &session{
		cfg:   cfg,
		store: store,
		env: &bridge.Environment{
			Config:   cfg,
			Registry: bridge.NewRegistry(cfg),
			Store:    store,
			Logger:   logger,
		},
	}, nil
}
