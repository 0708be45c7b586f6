package main

import (
	"log/slog"
	"os"

	"github.com/DjordjeVuckovic/grade-consensus/internal/evaluator"
	"github.com/DjordjeVuckovic/grade-consensus/internal/session"
	"github.com/DjordjeVuckovic/grade-consensus/internal/storage/factory"
	"github.com/DjordjeVuckovic/grade-consensus/pkg/config/env"
)

type AppConfig struct {
	ENV string
}

func NewAppConfig() *AppConfig {
	return &AppConfig{
		ENV: os.Getenv("ENV"),
	}
}

type GradingApiConfig struct {
	StorageConfig   factory.StorageConfig
	EvaluatorConfig evaluator.Config
	Policy          session.Policy
}

func (as *AppConfig) Load() (*GradingApiConfig, error) {
	err := env.LoadDotEnv(as.ENV, "cmd/grading_api/.env")
	if err != nil {
		slog.Info("Failed to .env load environment variables, continuing with existing environment variables", "error", err)
	}

	storageCfg, err := factory.LoadEnv()
	if err != nil {
		slog.Error("Failed to load storage configuration from environment", "error", err)
		return nil, err
	}

	evalCfg, err := evaluator.LoadConfigFromEnv()
	if err != nil {
		slog.Error("Failed to load evaluator configuration from environment", "error", err)
		return nil, err
	}

	policy, err := session.LoadPolicyFromEnv()
	if err != nil {
		slog.Error("Failed to load grading policy", "error", err)
		return nil, err
	}

	return &GradingApiConfig{
		StorageConfig:   *storageCfg,
		EvaluatorConfig: *evalCfg,
		Policy:          policy,
	}, nil
}
