package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCampaignNotFound is returned when no campaign definition exists for a URN.
	ErrCampaignNotFound = errors.New("campaign not found")
	// ErrSurveyNotFound indicates a survey ID is not part of the campaign.
	ErrSurveyNotFound = errors.New("survey not found")
	// ErrPromptNotFound indicates a prompt ID is not part of the survey.
	ErrPromptNotFound = errors.New("prompt not found")
	// ErrUnskippableSkipped is returned when a SKIPPED answer targets a prompt
	// that does not allow skipping.
	ErrUnskippableSkipped = errors.New("unskippable prompt skipped")
)

// DefinitionError reports an invalid prompt or survey definition. Definitions
// that fail this check are never handed out to the rest of the system.
type DefinitionError struct {
	PromptID string
	Reason   string
}

func (e *DefinitionError) Error() string {
	if e.PromptID == "" {
		return "invalid definition: " + e.Reason
	}
	return fmt.Sprintf("invalid definition for prompt %q: %s", e.PromptID, e.Reason)
}

func definitionErrorf(promptID, format string, args ...any) error {
	return &DefinitionError{PromptID: promptID, Reason: fmt.Sprintf(format, args...)}
}

// ValidationError reports a submitted value that fails its prompt's
// constraint check. It rejects the affected answer, not the definition.
type ValidationError struct {
	PromptID string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value for prompt %q: %s", e.PromptID, e.Reason)
}

func validationErrorf(promptID, format string, args ...any) error {
	return &ValidationError{PromptID: promptID, Reason: fmt.Sprintf(format, args...)}
}

// ShapeError reports a raw value whose runtime shape does not match what the
// prompt type expects (for example a list handed to a single-choice prompt).
// It is distinct from ValidationError: the input is structurally wrong rather
// than out of range.
type ShapeError struct {
	PromptID string
	Expected string
	Got      any
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("prompt %q expects %s, got %T", e.PromptID, e.Expected, e.Got)
}

func shapeError(promptID, expected string, got any) error {
	return &ShapeError{PromptID: promptID, Expected: expected, Got: got}
}
