package app

import (
	"bytes"
	"encoding/json"
	"log"
	"strconv"
	"strings"

	"mhealth-survey-service/internal/domain"
)

// DisplayValue turns a stored raw answer into the value handed to API
// consumers, dispatching on the row's prompt type. Formatting never fails:
// malformed stored data degrades to a safe default and a logged warning, so
// one bad row cannot abort a reconstruction.
func DisplayValue(pt domain.PromptType, raw string, choices domain.ChoiceSet) any {
	switch pt {
	case domain.PromptSingleChoice, domain.PromptSingleChoiceCustom:
		if pt.CustomChoice() && looksLikeObject(raw) {
			return objectValue(pt, raw)
		}
		// Stored form is the selected choice's key.
		return coerceNumber(raw)

	case domain.PromptMultiChoice, domain.PromptMultiChoiceCustom:
		if pt.CustomChoice() && looksLikeObject(raw) {
			return objectValue(pt, raw)
		}
		return multiChoiceValue(pt, raw)

	case domain.PromptRemoteActivity:
		return remoteActivityValue(raw)

	case domain.PromptNumber, domain.PromptHoursBeforeNow:
		return coerceNumber(raw)

	default:
		// Text, timestamps, and media references pass through unchanged.
		return raw
	}
}

// coerceNumber is the best-effort numeric coercion: integer parse, then
// decimal parse, then the original value unchanged.
func coerceNumber(raw string) any {
	if v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
		return f
	}
	return raw
}

// multiChoiceValue parses the stored JSON key array. Sentinels pass through
// unchanged; the legacy unquoted bracket form falls back to its elements as
// strings; anything else malformed becomes an empty selection.
func multiChoiceValue(pt domain.PromptType, raw string) any {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var elems []any
	if err := dec.Decode(&elems); err != nil {
		if nr, ok := domain.AsNoResponse(raw); ok {
			return string(nr)
		}
		if values, ok := domain.ParseBracketList(raw); ok {
			out := make([]any, 0, len(values))
			for _, v := range values {
				out = append(out, v)
			}
			return out
		}
		log.Printf("display: %s answer %q is not a choice list, substituting empty selection", pt, raw)
		return []any{}
	}
	out := make([]any, 0, len(elems))
	for _, e := range elems {
		if n, ok := e.(json.Number); ok {
			if v, err := n.Int64(); err == nil {
				out = append(out, v)
				continue
			}
			if f, err := n.Float64(); err == nil {
				out = append(out, f)
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// remoteActivityValue averages the numeric scores of the stored runs.
// Structurally bad runs are skipped individually; an empty or unreadable
// result averages to zero.
func remoteActivityValue(raw string) any {
	if nr, ok := domain.AsNoResponse(raw); ok {
		return string(nr)
	}
	var runs []map[string]any
	if err := json.Unmarshal([]byte(raw), &runs); err != nil {
		log.Printf("display: remote activity answer %q is not a run array, substituting zero score", raw)
		return 0.0
	}
	var sum float64
	var counted int
	for i, run := range runs {
		score, ok := runScoreValue(run)
		if !ok {
			log.Printf("display: remote activity run %d has no numeric score, skipping", i)
			continue
		}
		sum += score
		counted++
	}
	if counted == 0 {
		return 0.0
	}
	return sum / float64(counted)
}

func runScoreValue(run map[string]any) (float64, bool) {
	v, ok := run["score"]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// objectValue handles custom-choice answers stored as JSON objects. Parse
// failure substitutes an empty object.
func objectValue(pt domain.PromptType, raw string) any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		log.Printf("display: %s answer %q is not a JSON object, substituting empty object", pt, raw)
		return map[string]any{}
	}
	return obj
}

func looksLikeObject(raw string) bool {
	trimmed := bytes.TrimSpace([]byte(raw))
	return len(trimmed) > 0 && trimmed[0] == '{'
}
