package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mhealth-survey-service/internal/domain"
)

// ResponseStore persists accepted answers as response rows.
type ResponseStore interface {
	InsertRows(ctx context.Context, rows []domain.ResponseRow) error
}

// Submission is a decoded survey upload: one completed administration of one
// survey by one user, with each answer addressed by prompt and, for
// repeatable sets, iteration.
type Submission struct {
	CampaignURN    string
	SurveyID       string
	Username       string
	Client         string
	Timestamp      string
	EpochMillis    int64
	Timezone       string
	LaunchContext  string
	LocationStatus string
	Location       *domain.Location
	PrivacyState   domain.PrivacyState
	Answers        []SubmissionAnswer
}

// SubmissionAnswer is one raw answer within a submission. Value may be a
// typed value or a no-response sentinel string; CustomChoices extends the
// prompt's static choice set for custom-choice prompts.
type SubmissionAnswer struct {
	PromptID               string
	RepeatableSetID        string
	RepeatableSetIteration *int
	Value                  any
	CustomChoices          domain.ChoiceSet
}

// IngestService validates submissions against their campaign configuration
// and persists them. One invalid answer rejects the whole submission, the
// original uploaders' contract.
type IngestService struct {
	registry CampaignRegistry
	store    ResponseStore
	feed     *ActivityFeed
	now      func() time.Time
}

func NewIngestService(registry CampaignRegistry, store ResponseStore, feed *ActivityFeed) *IngestService {
	return &IngestService{registry: registry, store: store, feed: feed, now: time.Now}
}

// Ingest validates and stores one submission, returning its assigned ID.
func (s *IngestService) Ingest(ctx context.Context, sub Submission) (string, error) {
	if sub.Username == "" {
		return "", fmt.Errorf("submission has no username")
	}
	if len(sub.Answers) == 0 {
		return "", fmt.Errorf("submission has no answers")
	}
	if sub.Timestamp == "" {
		return "", fmt.Errorf("submission has no timestamp")
	}
	if _, err := domain.ParseTimestamp(sub.Timestamp); err != nil {
		return "", fmt.Errorf("bad submission timestamp %q: %w", sub.Timestamp, err)
	}

	campaign, err := s.registry.GetCampaign(ctx, sub.CampaignURN)
	if err != nil {
		return "", err
	}
	survey, found := campaign.Survey(sub.SurveyID)
	if !found {
		return "", fmt.Errorf("survey %q: %w", sub.SurveyID, domain.ErrSurveyNotFound)
	}

	privacy := sub.PrivacyState
	if privacy == "" {
		privacy = domain.PrivacyPrivate
	}

	rows := make([]domain.ResponseRow, 0, len(sub.Answers))
	for i, answer := range sub.Answers {
		prompt, found := survey.Prompt(answer.RepeatableSetID, answer.PromptID)
		if !found {
			return "", fmt.Errorf("answer %d, prompt %q: %w", i, answer.PromptID, domain.ErrPromptNotFound)
		}
		response, err := domain.NewPromptResponse(prompt, answer.RepeatableSetIteration, answer.Value, answer.CustomChoices)
		if err != nil {
			return "", fmt.Errorf("answer %d: %w", i, err)
		}
		var custom domain.ChoiceSet
		if prompt.Type.CustomChoice() {
			custom = answer.CustomChoices
		}
		rows = append(rows, domain.ResponseRow{
			Username:               sub.Username,
			CampaignURN:            sub.CampaignURN,
			Timestamp:              sub.Timestamp,
			EpochMillis:            sub.EpochMillis,
			Timezone:               sub.Timezone,
			SurveyID:               sub.SurveyID,
			RepeatableSetID:        answer.RepeatableSetID,
			RepeatableSetIteration: answer.RepeatableSetIteration,
			PromptID:               answer.PromptID,
			PromptType:             prompt.Type,
			Response:               response.StoredValue(),
			CustomChoices:          custom,
			Client:                 sub.Client,
			LaunchContext:          sub.LaunchContext,
			LocationStatus:         sub.LocationStatus,
			Location:               sub.Location,
			PrivacyState:           privacy,
		})
	}

	if err := s.store.InsertRows(ctx, rows); err != nil {
		return "", fmt.Errorf("store submission: %w", err)
	}

	submissionID := uuid.NewString()
	if s.feed != nil {
		s.feed.Publish(ActivityEvent{
			SubmissionID: submissionID,
			CampaignURN:  sub.CampaignURN,
			SurveyID:     sub.SurveyID,
			Username:     sub.Username,
			PromptCount:  len(rows),
			ReceivedAt:   s.now(),
		})
	}
	return submissionID, nil
}
