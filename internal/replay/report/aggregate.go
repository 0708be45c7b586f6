package report

import (
	"github.com/DjordjeVuckovic/grade-consensus/internal/domain"
	"github.com/DjordjeVuckovic/grade-consensus/internal/replay"
)

func Generate(result *replay.Result) *Report {
	return &Report{
		Meta: ReplayMeta{
			Fixture:     result.Fixture,
			Timestamp:   result.StartedAt,
			Duration:    result.Duration,
			Environment: NewEnvironmentInfo(),
		},
		Summary:  summarize(result),
		Grades:   result.Grades,
		Totals:   result.Submissions,
		Reviews:  result.Reviews,
		Patterns: result.Patterns,
	}
}

func summarize(result *replay.Result) Summary {
	s := Summary{
		Grades:   len(result.Grades),
		ByStatus: make(map[domain.GradeStatus]int),
	}
	for _, row := range result.Grades {
		s.ByStatus[row.Grade.Status]++
		if len(row.EscalationReasons) > 0 {
			s.Escalated++
		}
		s.OutliersDropped += len(row.ExcludedOutliers)
		if !row.ChainValid {
			s.BrokenChains++
		}
	}
	for _, rv := range result.Reviews {
		if rv.Error != "" {
			s.RejectedReviews++
		}
	}
	if s.Grades > 0 {
		s.EscalationRate = domain.RoundScore(float64(s.Escalated)/float64(s.Grades))
	}
	return s
}
