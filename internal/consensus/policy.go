package consensus

import "math"

// Policy holds the tunables of the aggregator. Zero is a valid setting for every threshold;
// negative or NaN fields fall back to the defaults below.
type Policy struct {
	// Quorum is the minimum number of results that must remain after outlier exclusion; 0 means ceil(N/2).
	// It is not read from policy files: the session copies the orchestrator's quorum here.
	Quorum int `yaml:"-"`
	// OutlierSigma is how many standard deviations of the other scores a score may stray before exclusion.
	OutlierSigma float64 `yaml:"outlier_sigma"`
	// OutlierMinAbsRatio floors the outlier threshold at this fraction of the max score.
	OutlierMinAbsRatio float64 `yaml:"outlier_min_abs_ratio"`
	// MaxVarianceRatio is the escalation threshold for variance / max².
	MaxVarianceRatio float64 `yaml:"max_variance_ratio"`
	ConfidenceFloor  float64 `yaml:"confidence_floor"`
	// VarianceDecay scales down mean confidence as exp(-decay * variance / max²).
	VarianceDecay          float64 `yaml:"variance_decay"`
	EscalateOnPartialRound bool    `yaml:"escalate_on_partial_round"`
}

const (
	DefaultOutlierSigma       = 2.0
	DefaultOutlierMinAbsRatio = 0.1
	DefaultMaxVarianceRatio   = 0.02
	DefaultConfidenceFloor    = 0.6
	DefaultVarianceDecay      = 10.0
)

func DefaultPolicy() Policy {
	return Policy{
		OutlierSigma:       DefaultOutlierSigma,
		OutlierMinAbsRatio: DefaultOutlierMinAbsRatio,
		MaxVarianceRatio:   DefaultMaxVarianceRatio,
		ConfidenceFloor:    DefaultConfidenceFloor,
		VarianceDecay:      DefaultVarianceDecay,
	}
}

// WithDefaults replaces negative or NaN fields with their defaults.
func (p Policy) WithDefaults() Policy {
	d := DefaultPolicy()
	p.OutlierSigma = orDefault(p.OutlierSigma, d.OutlierSigma)
	p.OutlierMinAbsRatio = orDefault(p.OutlierMinAbsRatio, d.OutlierMinAbsRatio)
	p.MaxVarianceRatio = orDefault(p.MaxVarianceRatio, d.MaxVarianceRatio)
	p.ConfidenceFloor = orDefault(p.ConfidenceFloor, d.ConfidenceFloor)
	p.VarianceDecay = orDefault(p.VarianceDecay, d.VarianceDecay)
	return p
}

func orDefault(v, fallback float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return fallback
	}
	return v
}

func (p Policy) quorum(total int) int {
	if p.Quorum > 0 {
		return p.Quorum
	}
	return (total + 1) / 2
}
