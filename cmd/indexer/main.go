package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stablewatch/cngn-indexer/internal/config"
	"github.com/stablewatch/cngn-indexer/pkg/logger"
)

var (
	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "cngn-indexer",
	Short: "cNGN trade indexer and daily VWAP builder",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}
		logger.Init(&logger.Options{
			Level:      level,
			TimeFormat: time.RFC3339,
		})
	},
}

func main() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", "configs/config.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logs")

	rootCmd.AddCommand(newIngestCmd(), newVwapCmd(), newTradesCmd(), newRescanCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("Load config failed", "path", configPath, "err", err)
	}
	logger.Info("Config loaded", "path", configPath)
	return cfg
}
