package domain

import (
	"fmt"
	"sort"
)

// Choice is one selectable option of a choice prompt. Key is the storage
// ordinal, Value the submitted form, Label the human-readable text.
type Choice struct {
	Key   int    `json:"key" bson:"key"`
	Value string `json:"value" bson:"value"`
	Label string `json:"label" bson:"label"`
}

// ChoiceSet is the option list of a choice prompt.
type ChoiceSet []Choice

// Check verifies the structural rules shared by static and custom choice
// sets: unique non-negative keys and non-empty labels.
func (s ChoiceSet) Check() error {
	seen := make(map[int]struct{}, len(s))
	for _, c := range s {
		if c.Key < 0 {
			return fmt.Errorf("choice key %d is negative", c.Key)
		}
		if _, dup := seen[c.Key]; dup {
			return fmt.Errorf("duplicate choice key %d", c.Key)
		}
		seen[c.Key] = struct{}{}
		if c.Label == "" {
			return fmt.Errorf("choice %d has an empty label", c.Key)
		}
		if c.Value == "" {
			return fmt.Errorf("choice %d has an empty value", c.Key)
		}
	}
	return nil
}

// ByKey returns the choice with the given storage key.
func (s ChoiceSet) ByKey(key int) (Choice, bool) {
	for _, c := range s {
		if c.Key == key {
			return c, true
		}
	}
	return Choice{}, false
}

// ByValue returns the choice whose submitted value matches v.
func (s ChoiceSet) ByValue(v string) (Choice, bool) {
	for _, c := range s {
		if c.Value == v {
			return c, true
		}
	}
	return Choice{}, false
}

// HasValue reports whether v is one of the set's choice values. Membership
// is by value, never by key.
func (s ChoiceSet) HasValue(v string) bool {
	_, ok := s.ByValue(v)
	return ok
}

// Merge overlays a per-submission custom choice set on top of the static
// one. The custom set must pass Check first; a custom key colliding with a
// static key replaces that entry. The receiver is not modified.
func (s ChoiceSet) Merge(custom ChoiceSet) (ChoiceSet, error) {
	if len(custom) == 0 {
		return s, nil
	}
	if err := custom.Check(); err != nil {
		return nil, fmt.Errorf("bad custom choice set: %w", err)
	}
	merged := make(ChoiceSet, len(s), len(s)+len(custom))
	copy(merged, s)
	for _, c := range custom {
		if i := merged.indexOfKey(c.Key); i >= 0 {
			merged[i] = c
		} else {
			merged = append(merged, c)
		}
	}
	return merged, nil
}

func (s ChoiceSet) indexOfKey(key int) int {
	for i, c := range s {
		if c.Key == key {
			return i
		}
	}
	return -1
}

// Glossary is the key-to-label map handed to API consumers next to each
// choice prompt's answers.
func (s ChoiceSet) Glossary() map[int]string {
	g := make(map[int]string, len(s))
	for _, c := range s {
		g[c.Key] = c.Label
	}
	return g
}

// Sorted returns a copy ordered by key, for deterministic output.
func (s ChoiceSet) Sorted() ChoiceSet {
	out := make(ChoiceSet, len(s))
	copy(out, s)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
