package orchestrator

import "time"

const (
	DefaultTimeout        = 30 * time.Second
	DefaultMaxAttempts    = 3
	DefaultInitialBackoff = 500 * time.Millisecond
	DefaultMaxBackoff     = 5 * time.Second
	DefaultMaxConcurrent  = 8
)

type Config struct {
	// Timeout bounds a single evaluator attempt.
	Timeout        time.Duration `yaml:"timeout"`
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	// Quorum is the minimum number of successful evaluations; 0 means ceil(N/2).
	Quorum int `yaml:"quorum"`
	// MaxConcurrent caps in-flight evaluator calls across all rounds sharing the orchestrator.
	MaxConcurrent int64 `yaml:"max_concurrent"`
	// StragglerGrace, when positive, cancels evaluators still running this long after quorum was reached.
	StragglerGrace time.Duration `yaml:"straggler_grace"`
}

func DefaultConfig() Config {
	return Config{
		Timeout:        DefaultTimeout,
		MaxAttempts:    DefaultMaxAttempts,
		InitialBackoff: DefaultInitialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
		MaxConcurrent:  DefaultMaxConcurrent,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = d.MaxConcurrent
	}
	return c
}

func DefaultQuorum(n int) int {
	return (n + 1) / 2
}
