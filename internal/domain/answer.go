package domain

import (
	"encoding/json"
	"strconv"
	"time"
)

// NoResponse marks an absent answer. Skipped means the user declined a
// skippable prompt; NotDisplayed means the prompt's condition evaluated to
// false on the client. The server never re-evaluates conditions.
type NoResponse string

const (
	Skipped      NoResponse = "SKIPPED"
	NotDisplayed NoResponse = "NOT_DISPLAYED"
)

// AsNoResponse detects the sentinel forms a client may submit: the typed
// sentinel itself or its exact string spelling.
func AsNoResponse(v any) (NoResponse, bool) {
	switch s := v.(type) {
	case NoResponse:
		if s == Skipped || s == NotDisplayed {
			return s, true
		}
	case string:
		if NoResponse(s) == Skipped || NoResponse(s) == NotDisplayed {
			return NoResponse(s), true
		}
	}
	return "", false
}

// Answer is the explicit sum of the three things a prompt answer can be: a
// skipped marker, a not-displayed marker, or a validated typed value. The
// zero Answer is not valid; use the constructors.
type Answer struct {
	noResponse NoResponse
	value      any
}

func SkippedAnswer() Answer      { return Answer{noResponse: Skipped} }
func NotDisplayedAnswer() Answer { return Answer{noResponse: NotDisplayed} }
func ValueAnswer(v any) Answer   { return Answer{value: v} }

// IsNoResponse reports whether the answer carries a sentinel instead of a
// value.
func (a Answer) IsNoResponse() bool { return a.noResponse != "" }

// NoResponse returns the sentinel, or "" when a value is present.
func (a Answer) NoResponse() NoResponse { return a.noResponse }

// Value returns the validated raw value, or nil for sentinels.
func (a Answer) Value() any { return a.value }

// PromptResponse binds a validated answer to its defining prompt and, when
// the prompt lives in a repeatable set, the iteration it was answered in.
// Instances are created once at ingestion and never mutated.
type PromptResponse struct {
	prompt    Prompt
	iteration *int
	answer    Answer
	choices   ChoiceSet // static set merged with any custom choices
}

// NewPromptResponse constructs a response from a raw submitted value or
// sentinel. Construction applies, in order: the iteration/repeatable-set
// match, the uniform sentinel rules, the runtime shape check, and the
// prompt's value validation. custom extends the choice set for
// custom-choice prompts.
func NewPromptResponse(p Prompt, iteration *int, raw any, custom ChoiceSet) (PromptResponse, error) {
	if p.InRepeatableSet() != (iteration != nil) {
		if iteration == nil {
			return PromptResponse{}, definitionErrorf(p.ID, "prompt belongs to repeatable set %q but no iteration was given", p.RepeatableSetID)
		}
		return PromptResponse{}, definitionErrorf(p.ID, "prompt is not in a repeatable set but iteration %d was given", *iteration)
	}

	choices := p.Choices
	if p.Type.CustomChoice() {
		merged, err := p.Choices.Merge(custom)
		if err != nil {
			return PromptResponse{}, validationErrorf(p.ID, "%v", err)
		}
		choices = merged
	}

	if nr, ok := AsNoResponse(raw); ok {
		if nr == Skipped && !p.Skippable {
			return PromptResponse{}, ErrUnskippableSkipped
		}
		answer := NotDisplayedAnswer()
		if nr == Skipped {
			answer = SkippedAnswer()
		}
		return PromptResponse{prompt: p, iteration: iteration, answer: answer, choices: choices}, nil
	}

	if err := p.checkShape(raw); err != nil {
		return PromptResponse{}, err
	}
	if err := p.ValidateValue(raw, custom); err != nil {
		return PromptResponse{}, err
	}
	return PromptResponse{prompt: p, iteration: iteration, answer: ValueAnswer(raw), choices: choices}, nil
}

// checkShape verifies the raw value's runtime shape against what the prompt
// type expects. This is an integrity check on the submission structure,
// separate from value validation: a list handed to a single-choice prompt is
// a shape error even if its elements are valid choice values.
func (p Prompt) checkShape(raw any) error {
	switch p.Type {
	case PromptNumber, PromptHoursBeforeNow:
		switch raw.(type) {
		case int, int32, int64, float64, json.Number, string:
			return nil
		}
		return shapeError(p.ID, "an integer", raw)

	case PromptSingleChoice, PromptSingleChoiceCustom:
		switch raw.(type) {
		case string, int, int64, float64, json.Number:
			return nil
		}
		return shapeError(p.ID, "a single choice value", raw)

	case PromptMultiChoice, PromptMultiChoiceCustom:
		switch raw.(type) {
		case []string, []any, string:
			return nil
		}
		return shapeError(p.ID, "a list of choice values", raw)

	case PromptText:
		if _, ok := raw.(string); ok {
			return nil
		}
		return shapeError(p.ID, "a string", raw)

	case PromptTimestamp:
		switch raw.(type) {
		case string, time.Time:
			return nil
		}
		return shapeError(p.ID, "a timestamp", raw)

	case PromptPhoto, PromptAudio, PromptVideo, PromptDocument:
		if _, ok := raw.(string); ok {
			return nil
		}
		return shapeError(p.ID, "a media reference", raw)

	case PromptRemoteActivity:
		switch raw.(type) {
		case string, []any, []map[string]any, map[string]any:
			return nil
		}
		return shapeError(p.ID, "remote activity results", raw)
	}
	return shapeError(p.ID, "a known prompt type", raw)
}

// Prompt returns the defining prompt.
func (r PromptResponse) Prompt() Prompt { return r.prompt }

// Iteration returns the repeatable-set iteration, nil for top-level prompts.
func (r PromptResponse) Iteration() *int { return r.iteration }

// Answer returns the answer sum.
func (r PromptResponse) Answer() Answer { return r.answer }

// Choices returns the resolved choice set (static merged with custom).
func (r PromptResponse) Choices() ChoiceSet { return r.choices }

// ChoiceLabel resolves the selected choice's label for single-choice
// prompts. It reports false for sentinels, other prompt kinds, and values
// not in the resolved set.
func (r PromptResponse) ChoiceLabel() (string, bool) {
	if r.answer.IsNoResponse() || r.prompt.Type.MultiValued() || !r.prompt.Type.ChoiceBased() {
		return "", false
	}
	s, ok := scalarString(r.answer.value)
	if !ok {
		return "", false
	}
	c, ok := r.choices.ByValue(s)
	if !ok {
		return "", false
	}
	return c.Label, true
}

// StoredValue renders the answer in the form persisted to a response row:
// sentinels by name, choice answers by storage key (a JSON key array for
// multi-choice), numbers in decimal, remote-activity runs as JSON, and
// everything else as the submitted string.
func (r PromptResponse) StoredValue() string {
	if r.answer.IsNoResponse() {
		return string(r.answer.noResponse)
	}
	raw := r.answer.value

	switch r.prompt.Type {
	case PromptNumber, PromptHoursBeforeNow:
		if v, ok := coerceInt(raw); ok {
			return strconv.FormatInt(v, 10)
		}

	case PromptSingleChoice, PromptSingleChoiceCustom:
		if s, ok := scalarString(raw); ok {
			if c, found := r.choices.ByValue(s); found {
				return strconv.Itoa(c.Key)
			}
		}

	case PromptMultiChoice, PromptMultiChoiceCustom:
		values, ok := stringSlice(raw)
		if !ok {
			if s, isString := raw.(string); isString {
				values, ok = ParseBracketList(s)
			}
		}
		if ok {
			keys := make([]int, 0, len(values))
			for _, v := range values {
				if c, found := r.choices.ByValue(v); found {
					keys = append(keys, c.Key)
				}
			}
			encoded, err := json.Marshal(keys)
			if err == nil {
				return string(encoded)
			}
		}

	case PromptTimestamp:
		if t, ok := raw.(time.Time); ok {
			return t.Format(time.RFC3339)
		}

	case PromptRemoteActivity:
		if s, ok := raw.(string); ok {
			return s
		}
		if runs, err := DecodeRuns(raw); err == nil {
			if encoded, err := json.Marshal(runs); err == nil {
				return string(encoded)
			}
		}
	}

	if s, ok := scalarString(raw); ok {
		return s
	}
	encoded, _ := json.Marshal(raw)
	return string(encoded)
}
