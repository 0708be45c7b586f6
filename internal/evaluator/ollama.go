package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DjordjeVuckovic/grade-consensus/internal/domain"
)

const defaultModel = "qwen3:8b"

type OllamaOption func(*OllamaEvaluator)

// OllamaEvaluator grades through an Ollama /api/generate endpoint using one Profile.
type OllamaEvaluator struct {
	base          url.URL
	http          *http.Client
	model         string
	profile       Profile
	enforcePoints bool
	now           func() time.Time
}

func NewOllamaEvaluator(baseURL string, profile Profile, opts ...OllamaOption) (*OllamaEvaluator, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	e := &OllamaEvaluator{
		base:    *base,
		http:    &http.Client{},
		model:   defaultModel,
		profile: profile,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

func WithHttpClient(httpClient *http.Client) OllamaOption {
	return func(e *OllamaEvaluator) {
		e.http = httpClient
	}
}

func WithModel(model string) OllamaOption {
	return func(e *OllamaEvaluator) {
		if model != "" {
			e.model = model
		}
	}
}

// WithRubricPoints makes the evaluator recompute its score from the rubric's point values
// instead of trusting the model's arithmetic.
func WithRubricPoints(enabled bool) OllamaOption {
	return func(e *OllamaEvaluator) {
		e.enforcePoints = enabled
	}
}

func (e *OllamaEvaluator) ID() string {
	return e.profile.ID
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Format  string         `json:"format"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type opinion struct {
	Score             *float64 `json:"score"`
	MaxScore          float64  `json:"max_score"`
	Confidence        *float64 `json:"confidence"`
	Reasoning         string   `json:"reasoning"`
	CriteriaMet       []string `json:"criteria_met"`
	MistakesFound     []string `json:"mistakes_found"`
	AmbiguousCriteria []string `json:"ambiguous_criteria"`
}

func (e *OllamaEvaluator) Evaluate(ctx context.Context, req Request) (domain.GradingResult, error) {
	prompt, err := buildPrompt(e.profile, req)
	if err != nil {
		return domain.GradingResult{}, Unavailable(e.ID(), err)
	}

	var resp generateResponse
	err = e.do(ctx, http.MethodPost, "/api/generate", generateRequest{
		Model:   e.model,
		Prompt:  prompt,
		Format:  "json",
		Options: map[string]any{"temperature": e.profile.Temperature},
	}, &resp)
	if err != nil {
		return domain.GradingResult{}, err
	}

	result, err := e.parse(resp.Response, req)
	if err != nil {
		return domain.GradingResult{}, err
	}

	slog.Debug("Evaluator opinion received",
		"evaluator", e.ID(),
		"question_id", req.Answer.QuestionID,
		"score", result.Score,
		"confidence", result.Confidence)

	return result, nil
}

func (e *OllamaEvaluator) parse(raw string, req Request) (domain.GradingResult, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	var op opinion
	if err := json.Unmarshal([]byte(clean), &op); err != nil {
		return domain.GradingResult{}, Malformed(e.ID(), fmt.Errorf("unmarshal opinion: %w", err))
	}
	if op.Score == nil || op.Confidence == nil {
		return domain.GradingResult{}, Malformed(e.ID(), errors.New("opinion is missing score or confidence"))
	}

	maxScore := op.MaxScore
	if maxScore == 0 {
		maxScore = req.MaxScore
	}

	result := domain.GradingResult{
		EvaluatorID:       e.ID(),
		Score:             *op.Score,
		MaxScore:          maxScore,
		Confidence:        *op.Confidence,
		Reasoning:         strings.TrimSpace(op.Reasoning),
		CriteriaMet:       op.CriteriaMet,
		MistakesFound:     op.MistakesFound,
		AmbiguousCriteria: op.AmbiguousCriteria,
		CreatedAt:         e.now(),
	}

	if err := Validate(result, req.Rubric); err != nil {
		return domain.GradingResult{}, err
	}

	if e.enforcePoints {
		result.MaxScore = req.MaxScore
		result.Score = req.Rubric.PointsFor(result.CriteriaMet, result.MistakesFound, req.MaxScore)
	}

	return result, nil
}

func (e *OllamaEvaluator) do(ctx context.Context, method, path string, reqData, respData any) error {
	reqDataBytes, err := json.Marshal(reqData)
	if err != nil {
		return Unavailable(e.ID(), err)
	}

	reqURL := e.base.JoinPath(path)
	request, err := http.NewRequestWithContext(ctx, method, reqURL.String(), bytes.NewReader(reqDataBytes))
	if err != nil {
		return Unavailable(e.ID(), err)
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	resp, err := e.http.Do(request)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Timeout(e.ID(), err)
		}
		return Unavailable(e.ID(), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Unavailable(e.ID(), err)
	}

	if resp.StatusCode != http.StatusOK {
		return Unavailable(e.ID(), fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(respBody)))
	}

	if err := json.Unmarshal(respBody, respData); err != nil {
		return Malformed(e.ID(), fmt.Errorf("unmarshal response: %w", err))
	}

	return nil
}

var _ Evaluator = (*OllamaEvaluator)(nil)
