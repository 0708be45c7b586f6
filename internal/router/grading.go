package router

import (
	"context"
	"net/http"
	"strconv"

	"github.com/DjordjeVuckovic/grade-consensus/internal/apperr"
	"github.com/DjordjeVuckovic/grade-consensus/internal/domain"
	"github.com/DjordjeVuckovic/grade-consensus/internal/session"
	"github.com/DjordjeVuckovic/grade-consensus/internal/storage/es"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	defaultHistorySize = 10
	maxHistorySize     = 100
)

// HistorySearcher finds past reasoning for a question.
type HistorySearcher interface {
	SearchReasoning(ctx context.Context, questionID uuid.UUID, text string, size int) ([]es.HistoryHit, error)
}

type GradingRouter struct {
	e       *echo.Echo
	coord   *session.Coordinator
	history HistorySearcher
}

type GradingRouterOption func(*GradingRouter)

func WithHistorySearcher(h HistorySearcher) GradingRouterOption {
	return func(r *GradingRouter) {
		r.history = h
	}
}

func NewGradingRouter(e *echo.Echo, coord *session.Coordinator, opts ...GradingRouterOption) *GradingRouter {
	r := &GradingRouter{
		e:     e,
		coord: coord,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *GradingRouter) Bind() {
	r.e.PUT("/questions/:question_id", r.putQuestion)
	r.e.GET("/questions/:question_id/patterns", r.patterns)
	r.e.GET("/questions/:question_id/history", r.searchHistory)

	sub := r.e.Group("/submissions/:submission_id")
	sub.PUT("/answers", r.putAnswers)
	sub.POST("/grading", r.triggerGrading)
	sub.DELETE("/grading", r.cancelGrading)
	sub.GET("/grades", r.getGrades)

	grade := sub.Group("/questions/:question_id")
	grade.POST("/override", r.override)
	grade.POST("/confirm", r.confirm)
	grade.POST("/finalize", r.finalize)
	grade.POST("/reopen", r.reopen)
	grade.POST("/regrade", r.regrade)
	grade.GET("/audit", r.audit)
	grade.GET("/rounds", r.rounds)
}

type QuestionRequest struct {
	Text       string            `json:"text"`
	MaxScore   float64           `json:"max_score"`
	AnswerType domain.AnswerType `json:"answer_type"`
	Rubric     domain.Rubric     `json:"rubric"`
}

type AnswerRequest struct {
	QuestionID  uuid.UUID `json:"question_id"`
	Text        string    `json:"text"`
	Diagrams    []string  `json:"diagrams,omitempty"`
	PageIndices []int     `json:"page_indices,omitempty"`
}

type AnswersRequest struct {
	Answers []AnswerRequest `json:"answers"`
}

type OverrideRequest struct {
	Score  *float64 `json:"score"`
	Reason string   `json:"reason"`
}

type ReasonRequest struct {
	Reason string `json:"reason"`
}

type TriggerResponse struct {
	SubmissionID uuid.UUID                    `json:"submission_id"`
	Questions    []session.QuestionAcceptance `json:"questions"`
}

type CancelResponse struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	Cancelled    bool      `json:"cancelled"`
}

type HistoryResponse struct {
	QuestionID uuid.UUID       `json:"question_id"`
	Query      string          `json:"query"`
	Hits       []es.HistoryHit `json:"hits"`
}

// putQuestion godoc
// @Summary Register a question
// @Description Stores the question's max score, answer type and rubric. The rubric is validated first.
// @Tags questions
// @Accept json
// @Produce json
// @Param question_id path string true "Question ID"
// @Param question body QuestionRequest true "Question"
// @Success 200 {object} domain.Question
// @Failure 400 {object} map[string]string
// @Router /questions/{question_id} [put]
func (r *GradingRouter) putQuestion(c echo.Context) error {
	id, err := pathUUID(c, "question_id")
	if err != nil {
		return err
	}
	var req QuestionRequest
	if err := c.Bind(&req); err != nil {
		return apperr.NewValidationWrap("invalid question body", err)
	}
	q := domain.Question{
		ID:         id,
		Text:       req.Text,
		MaxScore:   req.MaxScore,
		AnswerType: req.AnswerType,
		Rubric:     req.Rubric,
	}
	if err := r.coord.PutQuestion(c.Request().Context(), q); err != nil {
		return err
	}
	stored, err := r.coord.Question(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stored)
}

// putAnswers godoc
// @Summary Register answers for a submission
// @Tags submissions
// @Accept json
// @Produce json
// @Param submission_id path string true "Submission ID"
// @Param answers body AnswersRequest true "Answer segments"
// @Success 204
// @Failure 400 {object} map[string]string
// @Router /submissions/{submission_id}/answers [put]
func (r *GradingRouter) putAnswers(c echo.Context) error {
	sid, err := pathUUID(c, "submission_id")
	if err != nil {
		return err
	}
	var req AnswersRequest
	if err := c.Bind(&req); err != nil {
		return apperr.NewValidationWrap("invalid answers body", err)
	}
	answers := make([]domain.AnswerSegment, 0, len(req.Answers))
	for _, a := range req.Answers {
		answers = append(answers, domain.AnswerSegment{
			SubmissionID: sid,
			QuestionID:   a.QuestionID,
			Text:         a.Text,
			Diagrams:     a.Diagrams,
			PageIndices:  a.PageIndices,
		})
	}
	if err := r.coord.PutAnswers(c.Request().Context(), sid, answers); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// triggerGrading godoc
// @Summary Start grading a submission
// @Description Accepts every answered question for grading and returns immediately. Final grades are skipped.
// @Tags grading
// @Produce json
// @Param submission_id path string true "Submission ID"
// @Success 202 {object} TriggerResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /submissions/{submission_id}/grading [post]
func (r *GradingRouter) triggerGrading(c echo.Context) error {
	sid, err := pathUUID(c, "submission_id")
	if err != nil {
		return err
	}
	accepted, err := r.coord.TriggerGrading(c.Request().Context(), sid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, TriggerResponse{SubmissionID: sid, Questions: accepted})
}

// cancelGrading godoc
// @Summary Cancel an in-flight grading job
// @Tags grading
// @Produce json
// @Param submission_id path string true "Submission ID"
// @Success 200 {object} CancelResponse
// @Router /submissions/{submission_id}/grading [delete]
func (r *GradingRouter) cancelGrading(c echo.Context) error {
	sid, err := pathUUID(c, "submission_id")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, CancelResponse{SubmissionID: sid, Cancelled: r.coord.CancelGrading(sid)})
}

// getGrades godoc
// @Summary Current grades of a submission
// @Tags grading
// @Produce json
// @Param submission_id path string true "Submission ID"
// @Success 200 {object} domain.GradeSummary
// @Failure 404 {object} map[string]string
// @Router /submissions/{submission_id}/grades [get]
func (r *GradingRouter) getGrades(c echo.Context) error {
	sid, err := pathUUID(c, "submission_id")
	if err != nil {
		return err
	}
	summary, err := r.coord.GetGrades(c.Request().Context(), sid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// override godoc
// @Summary Override a grade
// @Tags review
// @Accept json
// @Produce json
// @Param submission_id path string true "Submission ID"
// @Param question_id path string true "Question ID"
// @Param override body OverrideRequest true "Score and reason"
// @Success 200 {object} domain.FinalGrade
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /submissions/{submission_id}/questions/{question_id}/override [post]
func (r *GradingRouter) override(c echo.Context) error {
	key, err := gradeKey(c)
	if err != nil {
		return err
	}
	var req OverrideRequest
	if err := c.Bind(&req); err != nil {
		return apperr.NewValidationWrap("invalid override body", err)
	}
	if req.Score == nil {
		return apperr.NewValidation("score is required")
	}
	g, err := r.coord.Override(c.Request().Context(), key, *req.Score, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, g)
}

// confirm godoc
// @Summary Confirm an auto-graded score as final
// @Tags review
// @Accept json
// @Produce json
// @Param submission_id path string true "Submission ID"
// @Param question_id path string true "Question ID"
// @Param body body ReasonRequest false "Optional reason"
// @Success 200 {object} domain.FinalGrade
// @Failure 409 {object} map[string]string
// @Router /submissions/{submission_id}/questions/{question_id}/confirm [post]
func (r *GradingRouter) confirm(c echo.Context) error {
	return r.withReason(c, r.coord.Confirm)
}

// finalize godoc
// @Summary Finalize a grade
// @Tags review
// @Accept json
// @Produce json
// @Param submission_id path string true "Submission ID"
// @Param question_id path string true "Question ID"
// @Param body body ReasonRequest false "Optional reason"
// @Success 200 {object} domain.FinalGrade
// @Failure 409 {object} map[string]string
// @Router /submissions/{submission_id}/questions/{question_id}/finalize [post]
func (r *GradingRouter) finalize(c echo.Context) error {
	return r.withReason(c, r.coord.Finalize)
}

// reopen godoc
// @Summary Reopen a final grade for review
// @Tags review
// @Accept json
// @Produce json
// @Param submission_id path string true "Submission ID"
// @Param question_id path string true "Question ID"
// @Param body body ReasonRequest true "Reason"
// @Success 200 {object} domain.FinalGrade
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /submissions/{submission_id}/questions/{question_id}/reopen [post]
func (r *GradingRouter) reopen(c echo.Context) error {
	return r.withReason(c, r.coord.Reopen)
}

func (r *GradingRouter) withReason(c echo.Context, fn func(context.Context, domain.GradeKey, string) (domain.FinalGrade, error)) error {
	key, err := gradeKey(c)
	if err != nil {
		return err
	}
	var req ReasonRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return apperr.NewValidationWrap("invalid body", err)
		}
	}
	g, err := fn(c.Request().Context(), key, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, g)
}

// regrade godoc
// @Summary Run a new evaluation round synchronously
// @Tags grading
// @Produce json
// @Param submission_id path string true "Submission ID"
// @Param question_id path string true "Question ID"
// @Success 200 {object} domain.FinalGrade
// @Failure 409 {object} map[string]string
// @Router /submissions/{submission_id}/questions/{question_id}/regrade [post]
func (r *GradingRouter) regrade(c echo.Context) error {
	key, err := gradeKey(c)
	if err != nil {
		return err
	}
	g, err := r.coord.Regrade(c.Request().Context(), key)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, g)
}

// audit godoc
// @Summary Audit trail of a grade
// @Tags review
// @Produce json
// @Param submission_id path string true "Submission ID"
// @Param question_id path string true "Question ID"
// @Success 200 {object} session.AuditTrail
// @Router /submissions/{submission_id}/questions/{question_id}/audit [get]
func (r *GradingRouter) audit(c echo.Context) error {
	key, err := gradeKey(c)
	if err != nil {
		return err
	}
	trail, err := r.coord.Audit(c.Request().Context(), key)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, trail)
}

// rounds godoc
// @Summary Evaluation rounds of a grade
// @Tags grading
// @Produce json
// @Param submission_id path string true "Submission ID"
// @Param question_id path string true "Question ID"
// @Success 200 {array} domain.EvaluationRound
// @Router /submissions/{submission_id}/questions/{question_id}/rounds [get]
func (r *GradingRouter) rounds(c echo.Context) error {
	key, err := gradeKey(c)
	if err != nil {
		return err
	}
	rounds, err := r.coord.Rounds(c.Request().Context(), key)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rounds)
}

// patterns godoc
// @Summary Grading patterns of a question
// @Description Escalation and override rates, evaluator deviation and frequent rubric findings.
// @Tags analytics
// @Produce json
// @Param question_id path string true "Question ID"
// @Success 200 {object} analytics.PatternReport
// @Failure 404 {object} map[string]string
// @Router /questions/{question_id}/patterns [get]
func (r *GradingRouter) patterns(c echo.Context) error {
	qid, err := pathUUID(c, "question_id")
	if err != nil {
		return err
	}
	report, err := r.coord.AnalyzePatterns(c.Request().Context(), qid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// searchHistory godoc
// @Summary Search past reasoning of a question
// @Tags analytics
// @Produce json
// @Param question_id path string true "Question ID"
// @Param q query string true "Search text"
// @Param size query int false "Max hits (default 10)"
// @Success 200 {object} HistoryResponse
// @Failure 400 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /questions/{question_id}/history [get]
func (r *GradingRouter) searchHistory(c echo.Context) error {
	if r.history == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "history index is not configured")
	}
	qid, err := pathUUID(c, "question_id")
	if err != nil {
		return err
	}
	text := c.QueryParam("q")
	if text == "" {
		return apperr.NewValidation("q parameter is required")
	}

	size := defaultHistorySize
	if raw := c.QueryParam("size"); raw != "" {
		size, err = strconv.Atoi(raw)
		if err != nil || size < 1 || size > maxHistorySize {
			return apperr.NewValidation("size must be between 1 and 100")
		}
	}

	hits, err := r.history.SearchReasoning(c.Request().Context(), qid, text, size)
	if err != nil {
		return err
	}
	if hits == nil {
		hits = []es.HistoryHit{}
	}
	return c.JSON(http.StatusOK, HistoryResponse{QuestionID: qid, Query: text, Hits: hits})
}

func pathUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperr.NewValidationWrap(name+" must be a UUID", err)
	}
	return id, nil
}

func gradeKey(c echo.Context) (domain.GradeKey, error) {
	sid, err := pathUUID(c, "submission_id")
	if err != nil {
		return domain.GradeKey{}, err
	}
	qid, err := pathUUID(c, "question_id")
	if err != nil {
		return domain.GradeKey{}, err
	}
	return domain.GradeKey{SubmissionID: sid, QuestionID: qid}, nil
}
