package domain

import "time"

// PrivacyState of one survey instance.
type PrivacyState string

const (
	PrivacyPrivate PrivacyState = "private"
	PrivacyShared  PrivacyState = "shared"
)

// Location is the device position attached to an upload, when available.
type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Provider  string    `json:"provider"`
	Timestamp time.Time `json:"timestamp"`
}

// ResponseRow is the denormalized stored record of one prompt answer. The
// storage layer emits one row per answered prompt; many rows share the same
// logical survey instance and arrive in whatever order the storage sort
// produced.
type ResponseRow struct {
	Username               string
	CampaignURN            string
	Timestamp              string // client-local wall time, as uploaded
	EpochMillis            int64
	Timezone               string
	SurveyID               string
	RepeatableSetID        string // empty for top-level prompts
	RepeatableSetIteration *int
	PromptID               string
	PromptType             PromptType
	Response               string    // raw stored answer
	CustomChoices          ChoiceSet // submission-time extension, custom-choice kinds only
	Client                 string
	LaunchContext          string
	LocationStatus         string
	Location               *Location
	PrivacyState           PrivacyState
}

// noIteration stands in for a nil iteration inside comparable keys.
const noIteration = -1

// ResultKey is the composite identity of one logical survey instance (or of
// one repeatable-set iteration within it). Rows with equal keys belong to
// the same reconstructed result. The struct is comparable so it can key a
// map directly.
type ResultKey struct {
	Username        string
	Timestamp       string
	EpochMillis     int64
	SurveyID        string
	RepeatableSetID string
	Iteration       int // noIteration when the row is not in a repeatable set
}

// Key derives the row's result key.
func (r ResponseRow) Key() ResultKey {
	iter := noIteration
	if r.RepeatableSetIteration != nil {
		iter = *r.RepeatableSetIteration
	}
	return ResultKey{
		Username:        r.Username,
		Timestamp:       r.Timestamp,
		EpochMillis:     r.EpochMillis,
		SurveyID:        r.SurveyID,
		RepeatableSetID: r.RepeatableSetID,
		Iteration:       iter,
	}
}

// HasIteration reports whether the key addresses a repeatable-set iteration.
func (k ResultKey) HasIteration() bool { return k.Iteration != noIteration }
