package reconciler

import (
	"fmt"
	"math"
	"strings"

	"github.com/DjordjeVuckovic/grade-consensus/internal/apperr"
	"github.com/DjordjeVuckovic/grade-consensus/internal/domain"
)

// The functions below decide a transition against the current grade and describe it as an
// unsealed audit entry. They never mutate g; Apply turns the entry into the next grade.

func RoundCompleted(g domain.FinalGrade, round domain.EvaluationRound) (domain.AuditEntry, error) {
	if g.IsFinal() {
		return domain.AuditEntry{}, fmt.Errorf("round %s: %w", round.ID, apperr.ErrGradeFinalized)
	}

	roundID := round.ID
	if round.Failed() {
		return domain.AuditEntry{
			Actor:        domain.ActorAI,
			Event:        domain.EventRoundFailed,
			FieldChanged: "status",
			OldValue:     string(g.Status),
			NewValue:     string(domain.GradeStatusReview),
			Reason:       round.Reasoning,
			Status:       domain.GradeStatusReview,
			RoundID:      &roundID,
		}, nil
	}

	res := round.Result
	status := domain.GradeStatusAutoGraded
	// A recorded override stays in force until a human revisits it.
	if res.ShouldEscalate || g.OverrideScore != nil {
		status = domain.GradeStatusReview
	}

	return domain.AuditEntry{
		Actor:        domain.ActorAI,
		Event:        domain.EventRoundCompleted,
		FieldChanged: "ai_score",
		OldValue:     domain.FormatOptionalScore(g.AIScore),
		NewValue:     domain.FormatScore(res.ConsensusScore),
		Reason:       res.Reasoning,
		Status:       status,
		Score:        domain.Float(res.ConsensusScore),
		MaxScore:     res.MaxScore,
		Confidence:   res.Confidence,
		RoundID:      &roundID,
	}, nil
}

func Override(g domain.FinalGrade, score float64, reason string) (domain.AuditEntry, error) {
	switch {
	case g.IsFinal():
		return domain.AuditEntry{}, apperr.ErrGradeFinalized
	case g.Status == domain.GradeStatusPending:
		return domain.AuditEntry{}, fmt.Errorf("override of a %s grade: %w", g.Status, apperr.ErrInvalidTransition)
	case strings.TrimSpace(reason) == "":
		return domain.AuditEntry{}, fmt.Errorf("%w: reason is required", apperr.ErrInvalidOverride)
	case math.IsNaN(score) || score < 0 || score > g.MaxScore:
		return domain.AuditEntry{}, fmt.Errorf("%w: score %v outside [0, %v]", apperr.ErrInvalidOverride, score, g.MaxScore)
	}

	return domain.AuditEntry{
		Actor:        domain.ActorHuman,
		Event:        domain.EventOverride,
		FieldChanged: "final_score",
		OldValue:     domain.FormatOptionalScore(g.FinalScore),
		NewValue:     domain.FormatScore(score),
		Reason:       strings.TrimSpace(reason),
		Status:       domain.GradeStatusOverridden,
		Score:        domain.Float(score),
		Confidence:   g.Confidence,
	}, nil
}

// Confirm accepts an auto-graded score as final.
func Confirm(g domain.FinalGrade, reason string) (domain.AuditEntry, error) {
	if g.IsFinal() {
		return domain.AuditEntry{}, apperr.ErrGradeFinalized
	}
	if g.Status != domain.GradeStatusAutoGraded {
		return domain.AuditEntry{}, fmt.Errorf("confirm of a %s grade: %w", g.Status, apperr.ErrInvalidTransition)
	}
	return statusEntry(g, domain.ActorHuman, domain.EventConfirm, domain.GradeStatusFinal, reason), nil
}

// Finalize locks any graded state.
func Finalize(g domain.FinalGrade, reason string) (domain.AuditEntry, error) {
	if g.IsFinal() {
		return domain.AuditEntry{}, apperr.ErrGradeFinalized
	}
	if g.FinalScore == nil {
		return domain.AuditEntry{}, fmt.Errorf("finalize of a %s grade without a score: %w", g.Status, apperr.ErrInvalidTransition)
	}
	return statusEntry(g, domain.ActorHuman, domain.EventFinalize, domain.GradeStatusFinal, reason), nil
}

func Reopen(g domain.FinalGrade, reason string) (domain.AuditEntry, error) {
	if !g.IsFinal() {
		return domain.AuditEntry{}, fmt.Errorf("reopen of a %s grade: %w", g.Status, apperr.ErrInvalidTransition)
	}
	if strings.TrimSpace(reason) == "" {
		return domain.AuditEntry{}, apperr.NewValidation("reopen reason is required")
	}
	return statusEntry(g, domain.ActorHuman, domain.EventReopen, domain.GradeStatusReview, reason), nil
}

func statusEntry(g domain.FinalGrade, actor domain.Actor, event domain.EventType, to domain.GradeStatus, reason string) domain.AuditEntry {
	return domain.AuditEntry{
		Actor:        actor,
		Event:        event,
		FieldChanged: "status",
		OldValue:     string(g.Status),
		NewValue:     string(to),
		Reason:       strings.TrimSpace(reason),
		Status:       to,
		Score:        copyScore(g.FinalScore),
		Confidence:   g.Confidence,
	}
}

// Apply folds one entry into g.
func Apply(g domain.FinalGrade, e domain.AuditEntry) domain.FinalGrade {
	switch e.Event {
	case domain.EventRoundCompleted:
		g.AIScore = copyScore(e.Score)
		g.Confidence = e.Confidence
		g.Reasoning = e.Reason
		if g.OverrideScore != nil {
			g.FinalScore = copyScore(g.OverrideScore)
		} else {
			g.FinalScore = copyScore(e.Score)
		}
	case domain.EventRoundFailed:
		g.Reasoning = e.Reason
	case domain.EventOverride:
		g.OverrideScore = copyScore(e.Score)
		g.FinalScore = copyScore(e.Score)
	}

	if e.MaxScore > 0 {
		g.MaxScore = e.MaxScore
	}
	g.Status = e.Status
	g.Version = e.Seq
	g.UpdatedAt = e.Timestamp
	return g
}

// Fold rebuilds a grade from its complete log. An empty log is a pending grade.
func Fold(key domain.GradeKey, maxScore float64, entries []domain.AuditEntry) domain.FinalGrade {
	g := domain.NewPendingGrade(key, maxScore)
	for _, e := range entries {
		g = Apply(g, e)
	}
	return g
}

func copyScore(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return domain.Float(*v)
}
