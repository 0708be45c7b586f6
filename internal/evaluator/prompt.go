package evaluator

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"text/template"
)

//go:embed prompts/*.tmpl
var promptsFS embed.FS

var gradingTemplate = template.Must(template.ParseFS(promptsFS, "prompts/grading.tmpl"))

type promptVars struct {
	EvaluatorID  string
	Focus        string
	AnswerType   string
	MaxScore     float64
	QuestionText string
	RubricJSON   string
	AnswerText   string
	Diagrams     []string
}

func buildPrompt(p Profile, req Request) (string, error) {
	rubricJSON, err := json.MarshalIndent(req.Rubric, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal rubric: %w", err)
	}

	var buf bytes.Buffer
	err = gradingTemplate.Execute(&buf, promptVars{
		EvaluatorID:  p.ID,
		Focus:        p.Focus,
		AnswerType:   string(req.AnswerType),
		MaxScore:     req.MaxScore,
		QuestionText: req.QuestionText,
		RubricJSON:   string(rubricJSON),
		AnswerText:   req.Answer.Text,
		Diagrams:     req.Answer.Diagrams,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}
