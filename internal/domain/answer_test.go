package domain

import (
	"errors"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestNewPromptResponseValue(t *testing.T) {
	p := validChoicePrompt()

	r, err := NewPromptResponse(p, nil, "good", nil)
	if err != nil {
		t.Fatalf("NewPromptResponse: %v", err)
	}
	if r.Answer().IsNoResponse() {
		t.Fatalf("expected a value answer")
	}
	if got := r.Answer().Value(); got != "good" {
		t.Fatalf("value = %v, want good", got)
	}
	label, ok := r.ChoiceLabel()
	if !ok || label != "Good" {
		t.Fatalf("ChoiceLabel = %q %v, want Good", label, ok)
	}
}

func TestNewPromptResponseSentinels(t *testing.T) {
	skippable := validChoicePrompt()

	r, err := NewPromptResponse(skippable, nil, "SKIPPED", nil)
	if err != nil {
		t.Fatalf("skipped answer rejected: %v", err)
	}
	if !r.Answer().IsNoResponse() || r.Answer().NoResponse() != Skipped {
		t.Fatalf("expected Skipped sentinel, got %v", r.Answer())
	}
	if _, ok := r.ChoiceLabel(); ok {
		t.Fatalf("sentinel answers have no choice label")
	}

	unskippable := validNumberPrompt()
	if _, err := NewPromptResponse(unskippable, nil, "SKIPPED", nil); !errors.Is(err, ErrUnskippableSkipped) {
		t.Fatalf("expected ErrUnskippableSkipped, got %v", err)
	}
	r, err = NewPromptResponse(unskippable, nil, "NOT_DISPLAYED", nil)
	if err != nil {
		t.Fatalf("NOT_DISPLAYED rejected: %v", err)
	}
	if r.Answer().NoResponse() != NotDisplayed {
		t.Fatalf("expected NotDisplayed sentinel")
	}
}

func TestNewPromptResponseShapeErrors(t *testing.T) {
	// A list of valid choice values is still the wrong shape for a
	// single-choice prompt.
	p := validChoicePrompt()
	_, err := NewPromptResponse(p, nil, []string{"good", "bad"}, nil)
	var shape *ShapeError
	if !errors.As(err, &shape) {
		t.Fatalf("expected ShapeError, got %v", err)
	}

	text := Prompt{ID: "notes", Type: PromptText, Text: "Notes?", TextBounds: &TextBounds{Min: 0, Max: 10}}
	if _, err := NewPromptResponse(text, nil, 42, nil); !errors.As(err, &shape) {
		t.Fatalf("expected ShapeError for non-string text, got %v", err)
	}
}

func TestNewPromptResponseIterationMatch(t *testing.T) {
	top := validNumberPrompt()
	if _, err := NewPromptResponse(top, intPtr(0), int64(8), nil); err == nil {
		t.Fatalf("iteration on a top-level prompt should be rejected")
	}

	repeated := validNumberPrompt()
	repeated.RepeatableSetID = "daily"
	if _, err := NewPromptResponse(repeated, nil, int64(8), nil); err == nil {
		t.Fatalf("missing iteration on a repeatable-set prompt should be rejected")
	}
	r, err := NewPromptResponse(repeated, intPtr(2), int64(8), nil)
	if err != nil {
		t.Fatalf("matched iteration rejected: %v", err)
	}
	if r.Iteration() == nil || *r.Iteration() != 2 {
		t.Fatalf("iteration not carried through")
	}
}

func TestNewPromptResponseMergesCustomChoices(t *testing.T) {
	p := validChoicePrompt()
	p.Type = PromptSingleChoiceCustom
	custom := ChoiceSet{{Key: 7, Value: "thrilled", Label: "Thrilled"}}

	r, err := NewPromptResponse(p, nil, "thrilled", custom)
	if err != nil {
		t.Fatalf("custom value rejected: %v", err)
	}
	if _, ok := r.Choices().ByValue("thrilled"); !ok {
		t.Fatalf("custom choice missing from resolved set")
	}
	if _, ok := r.Choices().ByValue("good"); !ok {
		t.Fatalf("static choice missing from resolved set")
	}
	label, ok := r.ChoiceLabel()
	if !ok || label != "Thrilled" {
		t.Fatalf("ChoiceLabel = %q %v, want Thrilled", label, ok)
	}
}

func TestStoredValue(t *testing.T) {
	number := validNumberPrompt()
	r, err := NewPromptResponse(number, nil, "8", nil)
	if err != nil {
		t.Fatalf("NewPromptResponse: %v", err)
	}
	if got := r.StoredValue(); got != "8" {
		t.Fatalf("number StoredValue = %q, want 8", got)
	}

	single := validChoicePrompt()
	r, err = NewPromptResponse(single, nil, "good", nil)
	if err != nil {
		t.Fatalf("NewPromptResponse: %v", err)
	}
	// Single-choice answers persist by key.
	if got := r.StoredValue(); got != "2" {
		t.Fatalf("choice StoredValue = %q, want 2", got)
	}

	multi := multiChoicePrompt()
	r, err = NewPromptResponse(multi, nil, "[cough, fatigue]", nil)
	if err != nil {
		t.Fatalf("NewPromptResponse: %v", err)
	}
	if got := r.StoredValue(); got != "[0,2]" {
		t.Fatalf("multi StoredValue = %q, want [0,2]", got)
	}

	r, err = NewPromptResponse(single, nil, Skipped, nil)
	if err != nil {
		t.Fatalf("NewPromptResponse: %v", err)
	}
	if got := r.StoredValue(); got != "SKIPPED" {
		t.Fatalf("sentinel StoredValue = %q, want SKIPPED", got)
	}
}

func TestStoredValueRemoteActivity(t *testing.T) {
	p := remoteActivityPrompt()
	raw := `[{"score": 7.5}]`
	r, err := NewPromptResponse(p, nil, raw, nil)
	if err != nil {
		t.Fatalf("NewPromptResponse: %v", err)
	}
	if got := r.StoredValue(); got != raw {
		t.Fatalf("remote activity StoredValue = %q, want the submitted JSON", got)
	}
}
