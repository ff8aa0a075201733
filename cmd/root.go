/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"chatcore/pkg/config"
	"chatcore/pkg/logger"

	"github.com/spf13/cobra"
)

var appConfig *config.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chatcore",
	Short: "Normalize chat messages and buffer their replies",
	Long: `chatcore turns raw chat content into normalized messages and collects the
replies produced for them in a FIFO reply buffer.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadOrDefault()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		slog.SetDefault(appLogger)
		appConfig = cfg

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// activeConfig returns the config loaded by the root command, or defaults when
// a subcommand runs without it.
func activeConfig() *config.Config {
	if appConfig == nil {
		return config.Default()
	}

	return appConfig
}
