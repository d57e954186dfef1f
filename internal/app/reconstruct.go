package app

import (
	"context"
	"log"

	"mhealth-survey-service/internal/domain"
)

// CampaignRegistry resolves campaign definitions (from cache/backing store).
type CampaignRegistry interface {
	GetCampaign(ctx context.Context, urn string) (domain.Campaign, error)
}

// RowIterator is an ordered, possibly-paginated stream of stored response
// rows. Next reports done=true after the last row; a non-nil error aborts
// the whole read.
type RowIterator interface {
	Next(ctx context.Context) (row domain.ResponseRow, done bool, err error)
}

// PromptMetadata is the per-prompt display context merged into a result.
type PromptMetadata struct {
	DisplayLabel string            `json:"displayLabel"`
	DisplayType  string            `json:"displayType"`
	PromptText   string            `json:"promptText"`
	PromptType   domain.PromptType `json:"promptType"`
	Unit         string            `json:"unit,omitempty"`
}

// IndexedResult is one reconstructed logical survey instance: its metadata
// plus, per answered prompt, the display value, display metadata, and (for
// choice prompts) the key-to-label glossary. Results are built by the
// reconstruction fold and immutable once returned.
type IndexedResult struct {
	Key               domain.ResultKey             `json:"-"`
	SurveyID          string                       `json:"surveyId"`
	SurveyTitle       string                       `json:"surveyTitle"`
	SurveyDescription string                       `json:"surveyDescription,omitempty"`
	Username          string                       `json:"username"`
	Client            string                       `json:"client"`
	Timestamp         string                       `json:"timestamp"`
	EpochMillis       int64                        `json:"epochMillis"`
	Timezone          string                       `json:"timezone"`
	LaunchContext     string                       `json:"launchContext,omitempty"`
	LocationStatus    string                       `json:"locationStatus"`
	Location          *domain.Location             `json:"location,omitempty"`
	PrivacyState      domain.PrivacyState          `json:"privacyState"`
	Responses         map[string]any               `json:"responses"`
	Metadata          map[string]PromptMetadata    `json:"metadata"`
	ChoiceGlossaries  map[string]map[int]string    `json:"choiceGlossaries,omitempty"`
}

// resultBuilder accumulates merge state for one result key. It is owned
// exclusively by the reconstruction loop and frozen into an IndexedResult
// once the row stream ends.
type resultBuilder struct {
	result IndexedResult
}

func newResultBuilder(row domain.ResponseRow, survey domain.Survey) *resultBuilder {
	return &resultBuilder{result: IndexedResult{
		Key:               row.Key(),
		SurveyID:          row.SurveyID,
		SurveyTitle:       survey.Title,
		SurveyDescription: survey.Description,
		Username:          row.Username,
		Client:            row.Client,
		Timestamp:         row.Timestamp,
		EpochMillis:       row.EpochMillis,
		Timezone:          row.Timezone,
		LaunchContext:     row.LaunchContext,
		LocationStatus:    row.LocationStatus,
		Location:          row.Location,
		PrivacyState:      row.PrivacyState,
		Responses:         make(map[string]any),
		Metadata:          make(map[string]PromptMetadata),
	}}
}

// merge inserts one row's prompt entry into the builder's maps. Returns
// true when the prompt ID was already present (duplicate row, last write
// wins).
func (b *resultBuilder) merge(row domain.ResponseRow, meta PromptMetadata, display any, glossary map[int]string) bool {
	_, dup := b.result.Responses[row.PromptID]
	b.result.Responses[row.PromptID] = display
	b.result.Metadata[row.PromptID] = meta
	if glossary != nil {
		if b.result.ChoiceGlossaries == nil {
			b.result.ChoiceGlossaries = make(map[string]map[int]string)
		}
		b.result.ChoiceGlossaries[row.PromptID] = glossary
	}
	return dup
}

func (b *resultBuilder) build() IndexedResult { return b.result }

// Reconstructor folds flat, arbitrarily-ordered response rows into one
// IndexedResult per distinct key. The fold is single-threaded and owns all
// of its merge state; only the returned slice escapes.
type Reconstructor struct {
	registry CampaignRegistry
}

func NewReconstructor(registry CampaignRegistry) *Reconstructor {
	return &Reconstructor{registry: registry}
}

// Reconstruct consumes the row stream to completion. Output order is the
// order in which each key was first seen, so equal inputs give equal
// outputs. A row-source error is returned immediately with no partial
// result: an incomplete survey instance would be indistinguishable from a
// complete one.
func (rc *Reconstructor) Reconstruct(ctx context.Context, campaignURN string, rows RowIterator) ([]IndexedResult, error) {
	campaign, err := rc.registry.GetCampaign(ctx, campaignURN)
	if err != nil {
		return nil, err
	}

	builders := make(map[domain.ResultKey]*resultBuilder)
	var order []domain.ResultKey
	duplicates := 0

	for {
		row, done, err := rows.Next(ctx)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}

		survey, found := campaign.Survey(row.SurveyID)
		if !found {
			log.Printf("reconstruct: row for unknown survey %q in campaign %q, metadata degraded", row.SurveyID, campaignURN)
		}

		key := row.Key()
		builder, ok := builders[key]
		if !ok {
			builder = newResultBuilder(row, survey)
			builders[key] = builder
			order = append(order, key)
		}

		meta, glossary := promptContext(survey, row)
		display := DisplayValue(row.PromptType, row.Response, glossaryChoices(survey, row))
		if builder.merge(row, meta, display, glossary) {
			duplicates++
		}
	}

	if duplicates > 0 {
		log.Printf("reconstruct: campaign %q produced %d duplicate (key, prompt) rows, last write kept", campaignURN, duplicates)
	}

	results := make([]IndexedResult, 0, len(order))
	for _, key := range order {
		results = append(results, builders[key].build())
	}
	return results, nil
}

// promptContext resolves the display metadata and, for choice prompts, the
// glossary for one row. Rows whose prompt is missing from the configuration
// fall back to the row's own denormalized fields.
func promptContext(survey domain.Survey, row domain.ResponseRow) (PromptMetadata, map[int]string) {
	prompt, found := survey.Prompt(row.RepeatableSetID, row.PromptID)
	if !found {
		log.Printf("reconstruct: prompt %q not in survey %q configuration, metadata degraded", row.PromptID, row.SurveyID)
		return PromptMetadata{
			DisplayLabel: row.PromptID,
			PromptType:   row.PromptType,
		}, nil
	}
	meta := PromptMetadata{
		DisplayLabel: prompt.DisplayLabel,
		DisplayType:  prompt.DisplayType,
		PromptText:   prompt.Text,
		PromptType:   prompt.Type,
		Unit:         prompt.Unit,
	}
	if prompt.Type.ChoiceBased() {
		return meta, resolvedChoices(prompt, row).Glossary()
	}
	return meta, nil
}

func glossaryChoices(survey domain.Survey, row domain.ResponseRow) domain.ChoiceSet {
	if !row.PromptType.ChoiceBased() {
		return nil
	}
	if prompt, found := survey.Prompt(row.RepeatableSetID, row.PromptID); found {
		return resolvedChoices(prompt, row)
	}
	return nil
}

// resolvedChoices overlays the custom choices stored with the row on the
// prompt's static set, so keys a submitter minted resolve on the way back
// out. A stored extension that no longer merges cleanly degrades to the
// static set.
func resolvedChoices(prompt domain.Prompt, row domain.ResponseRow) domain.ChoiceSet {
	if len(row.CustomChoices) == 0 {
		return prompt.Choices
	}
	merged, err := prompt.Choices.Merge(row.CustomChoices)
	if err != nil {
		log.Printf("reconstruct: stored custom choices for prompt %q do not merge: %v", row.PromptID, err)
		return prompt.Choices
	}
	return merged
}
