package main

import (
	"github.com/spf13/cobra"

	"github.com/stablewatch/cngn-indexer/internal/ledger"
	"github.com/stablewatch/cngn-indexer/internal/vwap"
	"github.com/stablewatch/cngn-indexer/pkg/logger"
)

func newVwapCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "vwap",
		Short: "Build the gap-free daily VWAP series from the ledger",
		Run: func(cmd *cobra.Command, args []string) {
			runVwap(out)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output path (default from config)")
	return cmd
}

func runVwap(out string) {
	cfg := loadConfig()
	if out == "" {
		out = cfg.VWAP.OutputPath
	}

	trades, err := ledger.ReadAll(cfg.Ledger.Path)
	if err != nil {
		logger.Fatal("Read ledger failed", "path", cfg.Ledger.Path, "err", err)
	}

	builder := vwap.NewBuilder(vwap.Config{
		RouterAddress: cfg.Router.Address,
		RouterName:    cfg.Router.Name,
	})
	records, err := builder.Build(trades)
	if err != nil {
		logger.Fatal("Build VWAP series failed", "err", err)
	}
	if len(records) == 0 {
		logger.Warn("No qualifying trades, nothing to write")
		return
	}

	if err := vwap.WriteCSVFile(out, records); err != nil {
		logger.Fatal("Write VWAP series failed", "path", out, "err", err)
	}
	logger.Info("VWAP series written",
		"path", out,
		"days", len(records),
		"from", records[0].Date.Format("2006-01-02"),
		"to", records[len(records)-1].Date.Format("2006-01-02"),
	)
}
