package session

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/DjordjeVuckovic/grade-consensus/internal/consensus"
	"github.com/DjordjeVuckovic/grade-consensus/internal/orchestrator"
	"gopkg.in/yaml.v3"
)

const DefaultMaxParallelQuestions = 4

// Policy gathers every grading tunable.
type Policy struct {
	Orchestrator orchestrator.Config `yaml:"orchestrator"`
	Consensus    consensus.Policy    `yaml:"consensus"`
	// MaxParallelQuestions bounds how many questions of one submission are graded at once.
	MaxParallelQuestions int `yaml:"max_parallel_questions"`
}

func DefaultPolicy() Policy {
	return Policy{
		Orchestrator:         orchestrator.DefaultConfig(),
		Consensus:            consensus.DefaultPolicy(),
		MaxParallelQuestions: DefaultMaxParallelQuestions,
	}
}

func (p Policy) withDefaults() Policy {
	p.Consensus = p.Consensus.WithDefaults()
	if p.MaxParallelQuestions <= 0 {
		p.MaxParallelQuestions = DefaultMaxParallelQuestions
	}
	p.Consensus.Quorum = p.Orchestrator.Quorum
	return p
}

func LoadPolicyFromFile(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicy(data)
}

func ParsePolicy(data []byte) (Policy, error) {
	p := DefaultPolicy()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("parse policy YAML: %w", err)
	}
	if err := validate(p); err != nil {
		return Policy{}, err
	}
	return p.withDefaults(), nil
}

// LoadPolicyFromEnv reads GRADING_POLICY_FILE when set, otherwise individual variables over the defaults.
func LoadPolicyFromEnv() (Policy, error) {
	if path := os.Getenv("GRADING_POLICY_FILE"); path != "" {
		slog.Info("Loading grading policy", "path", path)
		return LoadPolicyFromFile(path)
	}

	p := DefaultPolicy()
	var err error
	set := func(name string, parse func(string) error) {
		raw := os.Getenv(name)
		if raw == "" || err != nil {
			return
		}
		if perr := parse(raw); perr != nil {
			err = fmt.Errorf("invalid %s: %w", name, perr)
		}
	}

	set("EVALUATOR_TIMEOUT", durationVar(&p.Orchestrator.Timeout))
	set("EVALUATOR_MAX_ATTEMPTS", intVar(&p.Orchestrator.MaxAttempts))
	set("EVALUATOR_INITIAL_BACKOFF", durationVar(&p.Orchestrator.InitialBackoff))
	set("EVALUATOR_MAX_BACKOFF", durationVar(&p.Orchestrator.MaxBackoff))
	set("EVALUATOR_STRAGGLER_GRACE", durationVar(&p.Orchestrator.StragglerGrace))
	set("GRADING_QUORUM", intVar(&p.Orchestrator.Quorum))
	set("GRADING_MAX_CONCURRENT_CALLS", func(s string) error {
		n, err := strconv.ParseInt(s, 10, 64)
		p.Orchestrator.MaxConcurrent = n
		return err
	})
	set("GRADING_MAX_PARALLEL_QUESTIONS", intVar(&p.MaxParallelQuestions))
	set("OUTLIER_SIGMA", floatVar(&p.Consensus.OutlierSigma))
	set("OUTLIER_MIN_ABS_RATIO", floatVar(&p.Consensus.OutlierMinAbsRatio))
	set("MAX_VARIANCE_RATIO", floatVar(&p.Consensus.MaxVarianceRatio))
	set("CONFIDENCE_FLOOR", floatVar(&p.Consensus.ConfidenceFloor))
	set("VARIANCE_DECAY", floatVar(&p.Consensus.VarianceDecay))
	set("ESCALATE_ON_PARTIAL_ROUND", func(s string) error {
		v, err := strconv.ParseBool(s)
		p.Consensus.EscalateOnPartialRound = v
		return err
	})
	if err != nil {
		return Policy{}, err
	}
	if err := validate(p); err != nil {
		return Policy{}, err
	}
	return p.withDefaults(), nil
}

func validate(p Policy) error {
	if p.Orchestrator.Quorum < 0 {
		return fmt.Errorf("quorum must not be negative")
	}
	if p.Consensus.ConfidenceFloor < 0 || p.Consensus.ConfidenceFloor > 1 {
		return fmt.Errorf("confidence floor must be within [0, 1]")
	}
	if p.Orchestrator.MaxAttempts < 0 {
		return fmt.Errorf("max attempts must not be negative")
	}
	return nil
}

func durationVar(dst *time.Duration) func(string) error {
	return func(s string) error {
		d, err := time.ParseDuration(s)
		*dst = d
		return err
	}
}

func intVar(dst *int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(s)
		*dst = n
		return err
	}
}

func floatVar(dst *float64) func(string) error {
	return func(s string) error {
		f, err := strconv.ParseFloat(s, 64)
		*dst = f
		return err
	}
}
