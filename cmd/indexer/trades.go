package main

import (
	"github.com/spf13/cobra"

	"github.com/stablewatch/cngn-indexer/internal/ledger"
	"github.com/stablewatch/cngn-indexer/pkg/logger"
)

func newTradesCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "Write the derived file of ledger rows routed through the designated router",
		Run: func(cmd *cobra.Command, args []string) {
			runTrades(out)
		},
	}
	cmd.Flags().StringVar(&out, "out", "data/router_trades.csv", "output path")
	return cmd
}

func runTrades(out string) {
	cfg := loadConfig()

	kept, err := ledger.FilterRouterTrades(cfg.Ledger.Path, out, cfg.Router.Address, cfg.Router.Name)
	if err != nil {
		logger.Fatal("Filter router trades failed", "err", err)
	}
	logger.Info("Router trades written", "path", out, "rows", kept)
}
