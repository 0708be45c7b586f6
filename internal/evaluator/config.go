package evaluator

import (
	"errors"
	"fmt"
	"os"

	"github.com/DjordjeVuckovic/grade-consensus/pkg/utils"
)

type Config struct {
	BaseURL             string
	Model               string
	EvaluatorIDs        []string
	EnforceRubricPoints bool
}

func LoadConfigFromEnv() (*Config, error) {
	baseURL := os.Getenv("OLLAMA_BASE_URL")
	if baseURL == "" {
		return nil, errors.New("OLLAMA_BASE_URL environment variable not set")
	}

	ids := DefaultEvaluatorIDs
	if raw := os.Getenv("EVALUATOR_IDS"); raw != "" {
		ids = utils.SplitTrim(raw, ",")
	}
	if len(ids) == 0 {
		return nil, errors.New("EVALUATOR_IDS must name at least one evaluator")
	}

	return &Config{
		BaseURL:             baseURL,
		Model:               os.Getenv("EVALUATOR_MODEL"),
		EvaluatorIDs:        ids,
		EnforceRubricPoints: os.Getenv("EVALUATOR_ENFORCE_RUBRIC_POINTS") == "true",
	}, nil
}

// NewOllamaSet builds one evaluator per configured profile.
func NewOllamaSet(cfg *Config, opts ...OllamaOption) ([]Evaluator, error) {
	set := make([]Evaluator, 0, len(cfg.EvaluatorIDs))
	for _, id := range cfg.EvaluatorIDs {
		profile, err := LookupProfile(id)
		if err != nil {
			return nil, err
		}
		evalOpts := append([]OllamaOption{WithModel(cfg.Model), WithRubricPoints(cfg.EnforceRubricPoints)}, opts...)
		e, err := NewOllamaEvaluator(cfg.BaseURL, profile, evalOpts...)
		if err != nil {
			return nil, fmt.Errorf("create evaluator %q: %w", id, err)
		}
		set = append(set, e)
	}
	return set, nil
}
