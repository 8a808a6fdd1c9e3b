package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kysee/zknote/zk-asset/settings"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string

	cfg    settings.Settings
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "zknote",
	Short: "Confidential notes and join-split proofs",
	Long: `zknote spends confidential value notes.

It selects notes from a balance, splits the spent value into fresh notes for
the recipients and proves with PLONK over BN254 that the join-split keeps
the total value.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = settings.Default()
		if configPath != "" {
			var err error
			if cfg, err = settings.Load(configPath); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("log-level") || configPath == "" {
			lvl, err := zerolog.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("parse log level: %w", err)
			}
			cfg.LogLevel = lvl
		}

		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(cfg.LogLevel).
			With().Timestamp().Logger()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML settings file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(exportVerifierCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
