package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/DjordjeVuckovic/grade-consensus/internal/replay"
	"github.com/DjordjeVuckovic/grade-consensus/internal/replay/fixture"
	"github.com/DjordjeVuckovic/grade-consensus/internal/replay/report"
	"github.com/DjordjeVuckovic/grade-consensus/internal/storage/es"
)

func main() {
	cfg := parseFlags()
	ctx := context.Background()

	if cfg.Verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	f, err := fixture.LoadFromFile(cfg.FixturePath)
	if err != nil {
		slog.Error("Failed to load fixture", "path", cfg.FixturePath, "error", err)
		os.Exit(1)
	}

	result, err := replay.Run(ctx, f)
	if err != nil {
		slog.Error("Replay failed", "error", err)
		os.Exit(1)
	}

	rpt := report.Generate(result)
	report.WriteTable(rpt, os.Stdout)

	if cfg.Output != "" {
		if err := report.WriteJSON(rpt, cfg.Output); err != nil {
			slog.Error("Failed to write JSON report", "error", err)
			os.Exit(1)
		}
		slog.Info("Report written", "path", cfg.Output)
	}

	if historyCfg := cfg.historyConfig(); historyCfg != nil {
		backfill(ctx, *historyCfg, result)
	}
}

func backfill(ctx context.Context, cfg es.ClientConfig, result *replay.Result) {
	indexer, err := es.NewHistoryIndexer(ctx, cfg)
	if err != nil {
		slog.Error("Failed to create history indexer", "error", err)
		os.Exit(1)
	}
	if err := indexer.Backfill(ctx, result.Rounds, result.Entries); err != nil {
		slog.Error("History backfill failed", "error", err)
		os.Exit(1)
	}
	slog.Info("History backfilled", "index", cfg.IndexName, "rounds", len(result.Rounds), "entries", len(result.Entries))
}
