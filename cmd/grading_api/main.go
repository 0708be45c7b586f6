// Package main Grade Consensus API
// @title Grade Consensus API
// @version 1.0
// @description Multi-evaluator exam grading with consensus, escalation and audited teacher overrides
// @BasePath /
package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/DjordjeVuckovic/grade-consensus/docs"
	"github.com/DjordjeVuckovic/grade-consensus/internal/evaluator"
	"github.com/DjordjeVuckovic/grade-consensus/internal/router"
	"github.com/DjordjeVuckovic/grade-consensus/internal/server"
	"github.com/DjordjeVuckovic/grade-consensus/internal/session"
	"github.com/DjordjeVuckovic/grade-consensus/internal/storage/factory"
	"github.com/labstack/echo/v4"
)

func main() {
	slog.SetLogLoggerLevel(slog.LevelDebug)

	appSettings := NewAppConfig()
	cfg, err := appSettings.Load()
	if err != nil {
		slog.Error("Failed to load app configuration", "error", err)
		os.Exit(1)
	}

	sCfg, err := server.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	store, err := factory.New(context.Background(), &cfg.StorageConfig)
	if err != nil {
		slog.Error("Failed to create storage", "error", err)
		os.Exit(1)
	}
	defer store.Store.Close()

	evaluators, err := evaluator.NewOllamaSet(&cfg.EvaluatorConfig)
	if err != nil {
		slog.Error("Failed to create evaluators", "error", err)
		os.Exit(1)
	}

	var coordOpts []session.Option
	var routerOpts []router.GradingRouterOption
	if store.History != nil {
		coordOpts = append(coordOpts, session.WithHistorySink(store.History))
		routerOpts = append(routerOpts, router.WithHistorySearcher(store.History))
		slog.Info("Grading history index enabled")
	}

	coord, err := session.NewCoordinator(store.Store, evaluators, cfg.Policy, coordOpts...)
	if err != nil {
		slog.Error("Failed to create grading coordinator", "error", err)
		os.Exit(1)
	}

	s := server.New(sCfg, store.Health).
		SetupMiddlewares().
		SetupErrorHandler().
		SetupHealthChecks("/health").
		SetupOpenApi("/swagger/*").
		OnShutdown(func(ctx context.Context) {
			slog.Info("Shutdown started, cancelling grading jobs...")
			if err := coord.Shutdown(ctx); err != nil {
				slog.Warn("Grading jobs did not stop in time", "error", err)
			}
		})

	s.Echo.GET("/", func(c echo.Context) error {
		return c.String(200, "Grade Consensus API is running")
	})

	router.NewGradingRouter(s.Echo, coord, routerOpts...).Bind()

	slog.Info("Starting grading API",
		"port", sCfg.Port,
		"storage", cfg.StorageConfig.Type,
		"evaluators", cfg.EvaluatorConfig.EvaluatorIDs)

	if err := s.Start(); err != nil {
		slog.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}
