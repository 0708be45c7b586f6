package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/DjordjeVuckovic/grade-consensus/internal/domain"
	"github.com/DjordjeVuckovic/grade-consensus/pkg/utils"
	"github.com/google/uuid"
)

var statusOrder = []domain.GradeStatus{
	domain.GradeStatusPending,
	domain.GradeStatusAutoGraded,
	domain.GradeStatusReview,
	domain.GradeStatusOverridden,
	domain.GradeStatusFinal,
}

func WriteTable(r *Report, w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "\n=== Grading Replay: %s ===\n\n", r.Meta.Fixture)
	writeGradesTable(tw, r)
	writeTotalsTable(tw, r)
	if len(r.Reviews) > 0 {
		writeReviewsTable(tw, r)
	}
	writePatterns(tw, r)
	writeSummary(tw, r)

	tw.Flush()
}

func writeHeader(tw *tabwriter.Writer, header ...string) {
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	fmt.Fprintln(tw, strings.Join(sep, "\t"))
}

func writeGradesTable(tw *tabwriter.Writer, r *Report) {
	fmt.Fprintf(tw, "Grades\n\n")
	writeHeader(tw, "Submission", "Question", "Status", "Final", "AI", "Override", "Conf", "Rounds", "Outliers", "Chain", "Escalation")

	for _, row := range r.Grades {
		g := row.Grade
		chain := "OK"
		if !row.ChainValid {
			chain = "BROKEN"
		}
		escalation := "-"
		if len(row.EscalationReasons) > 0 {
			escalation = utils.Abbreviate(strings.Join(row.EscalationReasons, "; "), 60)
		}
		fmt.Fprintln(tw, strings.Join([]string{
			row.Submission,
			row.Question,
			string(g.Status),
			fmtScore(g.FinalScore, g.MaxScore),
			fmtScore(g.AIScore, g.MaxScore),
			fmtScore(g.OverrideScore, g.MaxScore),
			fmt.Sprintf("%.2f", g.Confidence),
			fmt.Sprintf("%d", row.Rounds),
			fmtList(row.ExcludedOutliers),
			chain,
			escalation,
		}, "\t"))
	}
	fmt.Fprintln(tw)
}

func writeTotalsTable(tw *tabwriter.Writer, r *Report) {
	fmt.Fprintf(tw, "Submission Totals\n\n")
	writeHeader(tw, "Submission", "Total", "Max", "Pending", "Needs Review")

	for _, t := range r.Totals {
		fmt.Fprintln(tw, strings.Join([]string{
			submissionName(r, t),
			fmt.Sprintf("%.2f", t.TotalScore),
			fmt.Sprintf("%.2f", t.MaxScore),
			fmt.Sprintf("%d", t.Pending),
			fmt.Sprintf("%d", t.NeedsReview),
		}, "\t"))
	}
	fmt.Fprintln(tw)
}

func writeReviewsTable(tw *tabwriter.Writer, r *Report) {
	fmt.Fprintf(tw, "Reviews\n\n")
	writeHeader(tw, "Submission", "Question", "Action", "Score", "Result")

	for _, rv := range r.Reviews {
		score := "-"
		if rv.Score != nil {
			score = fmt.Sprintf("%.2f", *rv.Score)
		}
		res := string(rv.Status)
		if rv.Error != "" {
			res = "REJECTED: " + utils.Abbreviate(rv.Error, 60)
		}
		fmt.Fprintln(tw, strings.Join([]string{rv.Submission, rv.Question, string(rv.Action), score, res}, "\t"))
	}
	fmt.Fprintln(tw)
}

func writePatterns(tw *tabwriter.Writer, r *Report) {
	fmt.Fprintf(tw, "Patterns\n\n")
	writeHeader(tw, "Question", "Rounds", "Escalation", "Override", "Mean Delta", "Findings")

	for _, p := range r.Patterns {
		findings := "-"
		if len(p.Patterns) > 0 {
			findings = strings.Join(p.Patterns, "; ")
		}
		fmt.Fprintln(tw, strings.Join([]string{
			questionName(r, p.QuestionID),
			fmt.Sprintf("%d", p.Rounds),
			fmt.Sprintf("%.2f", p.EscalationRate),
			fmt.Sprintf("%.2f", p.OverrideRate),
			fmt.Sprintf("%+.2f", p.MeanOverrideDelta),
			findings,
		}, "\t"))
	}
	fmt.Fprintln(tw)
}

func writeSummary(tw *tabwriter.Writer, r *Report) {
	s := r.Summary
	fmt.Fprintf(tw, "Summary\n\n")
	writeHeader(tw, "Metric", "Value")

	fmt.Fprintf(tw, "grades\t%d\n", s.Grades)
	for _, status := range statusOrder {
		if n := s.ByStatus[status]; n > 0 {
			fmt.Fprintf(tw, "%s\t%d\n", status, n)
		}
	}
	fmt.Fprintf(tw, "escalation rate\t%.2f\n", s.EscalationRate)
	fmt.Fprintf(tw, "outliers dropped\t%d\n", s.OutliersDropped)
	fmt.Fprintf(tw, "rejected reviews\t%d\n", s.RejectedReviews)
	fmt.Fprintf(tw, "broken audit chains\t%d\n", s.BrokenChains)
	fmt.Fprintf(tw, "duration\t%s\n", r.Meta.Duration)
	fmt.Fprintln(tw)
}

func submissionName(r *Report, t domain.GradeSummary) string {
	for _, row := range r.Grades {
		if row.Grade.SubmissionID == t.SubmissionID {
			return row.Submission
		}
	}
	return t.SubmissionID.String()
}

func questionName(r *Report, id uuid.UUID) string {
	for _, row := range r.Grades {
		if row.Grade.QuestionID == id {
			return row.Question
		}
	}
	return id.String()
}

func fmtScore(score *float64, maxScore float64) string {
	if score == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f/%.0f", *score, maxScore)
}

func fmtList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ",")
}
