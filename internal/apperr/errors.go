package apperr

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidOverride   = errors.New("invalid override")
	ErrGradeFinalized    = errors.New("grade is finalized")
	ErrInvalidTransition = errors.New("invalid grade transition")
	ErrVersionConflict   = errors.New("grade version conflict")
	ErrGradingInProgress = errors.New("grading already in progress")
)

type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func NewValidation(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func NewValidationWrap(msg string, err error) *ValidationError {
	return &ValidationError{Message: msg, Err: err}
}
