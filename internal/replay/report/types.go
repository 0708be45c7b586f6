package report

import (
	"runtime"
	"time"

	"github.com/DjordjeVuckovic/grade-consensus/internal/analytics"
	"github.com/DjordjeVuckovic/grade-consensus/internal/domain"
	"github.com/DjordjeVuckovic/grade-consensus/internal/replay"
)

type Report struct {
	Meta     ReplayMeta                `json:"meta"`
	Summary  Summary                   `json:"summary"`
	Grades   []replay.GradeRow         `json:"grades"`
	Totals   []domain.GradeSummary     `json:"totals"`
	Reviews  []replay.ReviewOutcome    `json:"reviews"`
	Patterns []analytics.PatternReport `json:"patterns"`
}

type ReplayMeta struct {
	Fixture     string          `json:"fixture"`
	Timestamp   time.Time       `json:"timestamp"`
	Duration    time.Duration   `json:"duration"`
	Environment EnvironmentInfo `json:"environment"`
}

type EnvironmentInfo struct {
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	NumCPU    int    `json:"num_cpu"`
}

func NewEnvironmentInfo() EnvironmentInfo {
	return EnvironmentInfo{
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		NumCPU:    runtime.NumCPU(),
	}
}

// Summary counts grades by status across the whole replay.
type Summary struct {
	Grades          int                        `json:"grades"`
	ByStatus        map[domain.GradeStatus]int `json:"by_status"`
	Escalated       int                        `json:"escalated"`
	EscalationRate  float64                    `json:"escalation_rate"`
	OutliersDropped int                        `json:"outliers_dropped"`
	BrokenChains    int                        `json:"broken_chains"`
	RejectedReviews int                        `json:"rejected_reviews"`
}
