package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// timestampLayouts are the accepted submission forms, tried in order.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the ISO-like date and date-time forms clients send.
func ParseTimestamp(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ValidateValue checks a raw submitted value against the prompt's
// constraints. Sentinels are handled uniformly first: NOT_DISPLAYED is
// always valid, SKIPPED only if the prompt allows skipping. custom is the
// per-submission choice extension for custom-choice prompts and ignored for
// every other kind.
//
// The check is pure; it never mutates the prompt and is safe to call
// concurrently across answers.
func (p Prompt) ValidateValue(raw any, custom ChoiceSet) error {
	if nr, ok := AsNoResponse(raw); ok {
		if nr == NotDisplayed {
			return nil
		}
		if !p.Skippable {
			return ErrUnskippableSkipped
		}
		return nil
	}

	switch p.Type {
	case PromptNumber, PromptHoursBeforeNow:
		v, ok := coerceInt(raw)
		if !ok {
			return validationErrorf(p.ID, "%v is not an integer", raw)
		}
		if v < p.Bounds.Min || v > p.Bounds.Max {
			return validationErrorf(p.ID, "%d outside bounds [%d,%d]", v, p.Bounds.Min, p.Bounds.Max)
		}
		return nil

	case PromptSingleChoice:
		return p.validateChoiceValue(raw, p.Choices)

	case PromptSingleChoiceCustom:
		merged, err := p.Choices.Merge(custom)
		if err != nil {
			return validationErrorf(p.ID, "%v", err)
		}
		return p.validateChoiceValue(raw, merged)

	case PromptMultiChoice:
		return p.validateMultiChoice(raw, p.Choices)

	case PromptMultiChoiceCustom:
		merged, err := p.Choices.Merge(custom)
		if err != nil {
			return validationErrorf(p.ID, "%v", err)
		}
		return p.validateMultiChoice(raw, merged)

	case PromptText:
		s, ok := raw.(string)
		if !ok {
			return validationErrorf(p.ID, "%T is not text", raw)
		}
		// Bounds are in characters, not bytes.
		if n := utf8.RuneCountInString(s); n < p.TextBounds.Min || n > p.TextBounds.Max {
			return validationErrorf(p.ID, "length %d outside bounds [%d,%d]", n, p.TextBounds.Min, p.TextBounds.Max)
		}
		return nil

	case PromptTimestamp:
		switch v := raw.(type) {
		case time.Time:
			return nil
		case string:
			if _, err := ParseTimestamp(v); err != nil {
				return validationErrorf(p.ID, "%q is not a timestamp", v)
			}
			return nil
		default:
			return validationErrorf(p.ID, "%T is not a timestamp", raw)
		}

	case PromptPhoto, PromptAudio, PromptVideo, PromptDocument:
		s, ok := raw.(string)
		if !ok {
			return validationErrorf(p.ID, "%T is not a media reference", raw)
		}
		if _, err := uuid.Parse(s); err != nil {
			return validationErrorf(p.ID, "%q is not a media UUID", s)
		}
		return nil

	case PromptRemoteActivity:
		return p.validateRemoteActivity(raw)
	}
	return validationErrorf(p.ID, "unknown prompt type %q", p.Type)
}

func (p Prompt) validateChoiceValue(raw any, set ChoiceSet) error {
	s, ok := scalarString(raw)
	if !ok {
		return validationErrorf(p.ID, "%T is not a choice value", raw)
	}
	if !set.HasValue(s) {
		return validationErrorf(p.ID, "%q is not a choice value", s)
	}
	return nil
}

func (p Prompt) validateMultiChoice(raw any, set ChoiceSet) error {
	values, ok := stringSlice(raw)
	if !ok {
		s, isString := raw.(string)
		if !isString {
			return validationErrorf(p.ID, "%T is not a choice list", raw)
		}
		values, ok = ParseBracketList(s)
		if !ok {
			return validationErrorf(p.ID, "%q is not a bracketed choice list", s)
		}
	}
	for _, v := range values {
		if !set.HasValue(v) {
			return validationErrorf(p.ID, "%q is not a choice value", v)
		}
	}
	return nil
}

func (p Prompt) validateRemoteActivity(raw any) error {
	runs, err := DecodeRuns(raw)
	if err != nil {
		return validationErrorf(p.ID, "%v", err)
	}
	ra := p.RemoteActivity
	if len(runs) > ra.Retries+1 {
		return validationErrorf(p.ID, "%d runs exceed the %d allowed", len(runs), ra.Retries+1)
	}
	if len(runs) < ra.MinRuns {
		return validationErrorf(p.ID, "%d runs below the %d required", len(runs), ra.MinRuns)
	}
	for i, run := range runs {
		if _, ok := runScore(run); !ok {
			return validationErrorf(p.ID, "run %d has no numeric score", i)
		}
	}
	return nil
}

// DecodeRuns normalizes a remote-activity result into its run objects. It
// accepts a decoded JSON array, a single run object, or the string encoding
// of either.
func DecodeRuns(raw any) ([]map[string]any, error) {
	switch v := raw.(type) {
	case string:
		var arr []map[string]any
		if err := json.Unmarshal([]byte(v), &arr); err == nil {
			return arr, nil
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(v), &obj); err == nil {
			return []map[string]any{obj}, nil
		}
		return nil, strconv.ErrSyntax
	case map[string]any:
		return []map[string]any{v}, nil
	case []map[string]any:
		return v, nil
	case []any:
		runs := make([]map[string]any, 0, len(v))
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, strconv.ErrSyntax
			}
			runs = append(runs, obj)
		}
		return runs, nil
	}
	return nil, strconv.ErrSyntax
}

// runScore extracts the numeric score of one run object.
func runScore(run map[string]any) (float64, bool) {
	v, ok := run["score"]
	if !ok {
		return 0, false
	}
	return coerceFloat(v)
}

// coerceInt attempts the integer forms a client may submit: native integers,
// integral floats, json.Number, and decimal strings.
func coerceInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n == math.Trunc(n) && !math.IsInf(n, 0) {
			return int64(n), true
		}
		return 0, false
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

func coerceFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// scalarString renders a scalar submission value in its canonical string
// form, used for choice-value membership checks.
func scalarString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case float64:
		if s == math.Trunc(s) {
			return strconv.FormatInt(int64(s), 10), true
		}
		return strconv.FormatFloat(s, 'f', -1, 64), true
	}
	return "", false
}

// stringSlice converts a native collection submission to its elements.
func stringSlice(v any) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := scalarString(item)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// ParseBracketList parses the legacy "[a,b,c]" list form. The string must
// begin with '[' and end with ']'; elements are comma-separated and trimmed,
// so labels containing commas require the native JSON array form instead.
// "[]" is an empty selection.
func ParseBracketList(s string) ([]string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, false
	}
	inner := s[1 : len(s)-1]
	if strings.TrimSpace(inner) == "" {
		return []string{}, true
	}
	parts := strings.Split(inner, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.TrimSpace(strings.Trim(strings.TrimSpace(part), `"`)))
	}
	return out, true
}
