package domain

import "unicode/utf8"

// PromptType is the closed set of prompt kinds the server understands.
// Validation and display formatting switch exhaustively over it; adding a
// kind means touching those switches.
type PromptType string

const (
	PromptNumber             PromptType = "number"
	PromptHoursBeforeNow     PromptType = "hours_before_now"
	PromptSingleChoice       PromptType = "single_choice"
	PromptSingleChoiceCustom PromptType = "single_choice_custom"
	PromptMultiChoice        PromptType = "multi_choice"
	PromptMultiChoiceCustom  PromptType = "multi_choice_custom"
	PromptText               PromptType = "text"
	PromptTimestamp          PromptType = "timestamp"
	PromptPhoto              PromptType = "photo"
	PromptAudio              PromptType = "audio"
	PromptVideo              PromptType = "video"
	PromptDocument           PromptType = "document"
	PromptRemoteActivity     PromptType = "remote_activity"
)

// Known reports whether t is one of the defined prompt types.
func (t PromptType) Known() bool {
	switch t {
	case PromptNumber, PromptHoursBeforeNow,
		PromptSingleChoice, PromptSingleChoiceCustom,
		PromptMultiChoice, PromptMultiChoiceCustom,
		PromptText, PromptTimestamp,
		PromptPhoto, PromptAudio, PromptVideo, PromptDocument,
		PromptRemoteActivity:
		return true
	}
	return false
}

// ChoiceBased reports whether answers are drawn from a choice set.
func (t PromptType) ChoiceBased() bool {
	switch t {
	case PromptSingleChoice, PromptSingleChoiceCustom, PromptMultiChoice, PromptMultiChoiceCustom:
		return true
	}
	return false
}

// CustomChoice reports whether submitters may extend the choice set.
func (t PromptType) CustomChoice() bool {
	return t == PromptSingleChoiceCustom || t == PromptMultiChoiceCustom
}

// MultiValued reports whether an answer selects several choices at once.
func (t PromptType) MultiValued() bool {
	return t == PromptMultiChoice || t == PromptMultiChoiceCustom
}

// Numeric reports whether answers are integers constrained by bounds.
func (t PromptType) Numeric() bool {
	return t == PromptNumber || t == PromptHoursBeforeNow
}

// Media reports whether answers reference an uploaded media object.
func (t PromptType) Media() bool {
	switch t {
	case PromptPhoto, PromptAudio, PromptVideo, PromptDocument:
		return true
	}
	return false
}

// Bounds constrains numeric prompts to an inclusive range.
type Bounds struct {
	Min int64 `json:"min" bson:"min"`
	Max int64 `json:"max" bson:"max"`
}

// TextBounds constrains the length of a text answer.
type TextBounds struct {
	Min int `json:"min" bson:"min"`
	Max int `json:"max" bson:"max"`
}

// RemoteActivityConfig describes the external application a remote-activity
// prompt launches and how many result runs it may report.
type RemoteActivityConfig struct {
	Package    string `json:"package" bson:"package"`
	Activity   string `json:"activity" bson:"activity"`
	Autolaunch bool   `json:"autolaunch,omitempty" bson:"autolaunch,omitempty"`
	Retries    int    `json:"retries" bson:"retries"`
	MinRuns    int    `json:"minRuns" bson:"minRuns"`
}

// Prompt is the static configuration of one survey question. The per-kind
// payload fields (Bounds, TextBounds, Choices, RemoteActivity) are only set
// for the kinds that use them; CheckDefinition enforces that.
//
// Prompts are built by decoding a stored campaign document and must pass
// CheckDefinition before being handed to validation or reconstruction.
// After that they are treated as immutable.
type Prompt struct {
	ID              string     `json:"id" bson:"id"`
	Condition       string     `json:"condition,omitempty" bson:"condition,omitempty"`
	RepeatableSetID string     `json:"repeatableSetId,omitempty" bson:"repeatableSetId,omitempty"`
	Type            PromptType `json:"type" bson:"type"`

	DisplayLabel    string `json:"displayLabel" bson:"displayLabel"`
	DisplayType     string `json:"displayType" bson:"displayType"`
	Unit            string `json:"unit,omitempty" bson:"unit,omitempty"`
	Text            string `json:"text" bson:"text"`
	AbbreviatedText string `json:"abbreviatedText,omitempty" bson:"abbreviatedText,omitempty"`
	ExplanationText string `json:"explanationText,omitempty" bson:"explanationText,omitempty"`

	Skippable bool   `json:"skippable" bson:"skippable"`
	SkipLabel string `json:"skipLabel,omitempty" bson:"skipLabel,omitempty"`

	// Default, when set, is the raw default value in its submitted string
	// form. It must satisfy the prompt's own constraints.
	Default *string `json:"default,omitempty" bson:"default,omitempty"`

	Bounds         *Bounds               `json:"bounds,omitempty" bson:"bounds,omitempty"`
	TextBounds     *TextBounds           `json:"textBounds,omitempty" bson:"textBounds,omitempty"`
	Choices        ChoiceSet             `json:"choices,omitempty" bson:"choices,omitempty"`
	RemoteActivity *RemoteActivityConfig `json:"remoteActivity,omitempty" bson:"remoteActivity,omitempty"`
}

// InRepeatableSet reports whether the prompt belongs to a repeatable set.
func (p Prompt) InRepeatableSet() bool {
	return p.RepeatableSetID != ""
}

// CheckDefinition verifies the prompt's constraint combination. It returns a
// *DefinitionError describing the first problem found; a prompt that fails
// must never be used.
func (p Prompt) CheckDefinition() error {
	if p.ID == "" {
		return definitionErrorf("", "prompt id is empty")
	}
	if !p.Type.Known() {
		return definitionErrorf(p.ID, "unknown prompt type %q", p.Type)
	}
	if p.Text == "" {
		return definitionErrorf(p.ID, "prompt text is empty")
	}
	if p.Skippable && p.SkipLabel == "" {
		return definitionErrorf(p.ID, "skippable prompt has no skip label")
	}

	switch {
	case p.Type.Numeric():
		if p.Bounds == nil {
			return definitionErrorf(p.ID, "%s prompt has no bounds", p.Type)
		}
		if p.Bounds.Min > p.Bounds.Max {
			return definitionErrorf(p.ID, "bounds min %d exceeds max %d", p.Bounds.Min, p.Bounds.Max)
		}
	case p.Type.ChoiceBased():
		if len(p.Choices) == 0 {
			return definitionErrorf(p.ID, "%s prompt has no choices", p.Type)
		}
		if err := p.Choices.Check(); err != nil {
			return definitionErrorf(p.ID, "bad choice set: %v", err)
		}
	case p.Type == PromptText:
		if p.TextBounds == nil {
			return definitionErrorf(p.ID, "text prompt has no length bounds")
		}
		if p.TextBounds.Min < 0 || p.TextBounds.Min > p.TextBounds.Max {
			return definitionErrorf(p.ID, "bad length bounds [%d,%d]", p.TextBounds.Min, p.TextBounds.Max)
		}
	case p.Type == PromptRemoteActivity:
		ra := p.RemoteActivity
		if ra == nil {
			return definitionErrorf(p.ID, "remote activity prompt has no activity config")
		}
		if ra.Package == "" || ra.Activity == "" {
			return definitionErrorf(p.ID, "remote activity package/activity is empty")
		}
		if ra.Retries < 0 {
			return definitionErrorf(p.ID, "negative retries %d", ra.Retries)
		}
		if ra.MinRuns < 1 {
			return definitionErrorf(p.ID, "min runs %d is below 1", ra.MinRuns)
		}
		if ra.MinRuns > ra.Retries+1 {
			return definitionErrorf(p.ID, "min runs %d exceeds retries+1 (%d)", ra.MinRuns, ra.Retries+1)
		}
	}

	if p.Default != nil {
		if err := p.checkDefault(*p.Default); err != nil {
			return err
		}
	}
	return nil
}

// checkDefault verifies that a declared default satisfies the prompt's own
// constraints, so that applying the default can never produce an invalid
// answer.
func (p Prompt) checkDefault(def string) error {
	switch {
	case p.Type.Numeric():
		v, ok := coerceInt(def)
		if !ok {
			return definitionErrorf(p.ID, "default %q is not an integer", def)
		}
		if v < p.Bounds.Min || v > p.Bounds.Max {
			return definitionErrorf(p.ID, "default %d outside bounds [%d,%d]", v, p.Bounds.Min, p.Bounds.Max)
		}
	case p.Type.ChoiceBased():
		if !p.Choices.HasValue(def) {
			return definitionErrorf(p.ID, "default %q is not a choice value", def)
		}
	case p.Type == PromptText:
		if n := utf8.RuneCountInString(def); n < p.TextBounds.Min || n > p.TextBounds.Max {
			return definitionErrorf(p.ID, "default length %d outside bounds [%d,%d]", n, p.TextBounds.Min, p.TextBounds.Max)
		}
	case p.Type == PromptTimestamp:
		if _, err := ParseTimestamp(def); err != nil {
			return definitionErrorf(p.ID, "default %q is not a timestamp", def)
		}
	default:
		// Media and remote-activity prompts have no meaningful default.
		return definitionErrorf(p.ID, "%s prompt cannot declare a default", p.Type)
	}
	return nil
}
