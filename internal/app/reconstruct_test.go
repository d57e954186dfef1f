package app

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"mhealth-survey-service/internal/domain"
)

type staticRegistry struct {
	campaign domain.Campaign
}

func (r staticRegistry) GetCampaign(_ context.Context, urn string) (domain.Campaign, error) {
	if urn != r.campaign.URN {
		return domain.Campaign{}, domain.ErrCampaignNotFound
	}
	return r.campaign, nil
}

type stubIterator struct {
	rows []domain.ResponseRow
	next int
	err  error
}

func (it *stubIterator) Next(_ context.Context) (domain.ResponseRow, bool, error) {
	if it.next >= len(it.rows) {
		if it.err != nil {
			return domain.ResponseRow{}, false, it.err
		}
		return domain.ResponseRow{}, true, nil
	}
	row := it.rows[it.next]
	it.next++
	return row, false, nil
}

func testCampaign() domain.Campaign {
	return domain.Campaign{
		URN:   "urn:campaign:checkup",
		Title: "Daily checkup",
		Surveys: []domain.Survey{{
			ID:    "morning",
			Title: "Morning survey",
			Prompts: []domain.Prompt{
				{
					ID: "mood", Type: domain.PromptSingleChoice,
					DisplayLabel: "Mood", DisplayType: "category", Text: "How is your mood?",
					Choices: domain.ChoiceSet{
						{Key: 0, Value: "low", Label: "Low"},
						{Key: 1, Value: "ok", Label: "OK"},
						{Key: 2, Value: "high", Label: "High"},
					},
				},
				{
					ID: "symptoms", Type: domain.PromptMultiChoice,
					DisplayLabel: "Symptoms", DisplayType: "category", Text: "Any symptoms?",
					Choices: domain.ChoiceSet{
						{Key: 1, Value: "cough", Label: "Cough"},
						{Key: 3, Value: "fever", Label: "Fever"},
					},
				},
				{
					ID: "hours_slept", Type: domain.PromptNumber,
					DisplayLabel: "Hours slept", DisplayType: "measurement", Unit: "hours",
					Text:   "How many hours did you sleep?",
					Bounds: &domain.Bounds{Min: 0, Max: 24},
				},
			},
		}},
	}
}

func row(username, ts string, millis int64, promptID string, pt domain.PromptType, response string) domain.ResponseRow {
	return domain.ResponseRow{
		Username:    username,
		CampaignURN: "urn:campaign:checkup",
		Timestamp:   ts,
		EpochMillis: millis,
		Timezone:    "UTC",
		SurveyID:    "morning",
		PromptID:    promptID,
		PromptType:  pt,
		Response:    response,
		Client:      "android",
	}
}

func TestReconstructGroupsRowsByInstance(t *testing.T) {
	rows := []domain.ResponseRow{
		row("ada", "2025-06-10T08:00:00Z", 1000, "mood", domain.PromptSingleChoice, "2"),
		row("ada", "2025-06-10T08:00:00Z", 1000, "symptoms", domain.PromptMultiChoice, "[1,3]"),
		row("ada", "2025-06-11T08:05:00Z", 2000, "mood", domain.PromptSingleChoice, "1"),
	}
	rc := NewReconstructor(staticRegistry{testCampaign()})

	results, err := rc.Reconstruct(context.Background(), "urn:campaign:checkup", &stubIterator{rows: rows})
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	first := results[0]
	if first.Username != "ada" || first.SurveyTitle != "Morning survey" {
		t.Fatalf("unexpected instance metadata: %+v", first)
	}
	if got := first.Responses["mood"]; got != int64(2) {
		t.Fatalf("mood = %v, want 2", got)
	}
	if got := first.Responses["symptoms"]; !reflect.DeepEqual(got, []any{int64(1), int64(3)}) {
		t.Fatalf("symptoms = %#v, want [1 3]", got)
	}
	if first.Metadata["hours_slept"] != (PromptMetadata{}) {
		t.Fatalf("unanswered prompt should not appear in metadata")
	}
	if meta := first.Metadata["mood"]; meta.DisplayLabel != "Mood" || meta.PromptType != domain.PromptSingleChoice {
		t.Fatalf("unexpected mood metadata: %+v", meta)
	}
	if g := first.ChoiceGlossaries["mood"]; g[2] != "High" {
		t.Fatalf("unexpected glossary: %v", g)
	}

	second := results[1]
	if second.EpochMillis != 2000 || len(second.Responses) != 1 {
		t.Fatalf("unexpected second instance: %+v", second)
	}
}

func TestReconstructOutputOrderFollowsFirstSeen(t *testing.T) {
	rows := []domain.ResponseRow{
		row("bo", "2025-06-12T09:00:00Z", 3000, "mood", domain.PromptSingleChoice, "0"),
		row("ada", "2025-06-10T08:00:00Z", 1000, "mood", domain.PromptSingleChoice, "2"),
		row("bo", "2025-06-12T09:00:00Z", 3000, "hours_slept", domain.PromptNumber, "6"),
	}
	rc := NewReconstructor(staticRegistry{testCampaign()})

	results, err := rc.Reconstruct(context.Background(), "urn:campaign:checkup", &stubIterator{rows: rows})
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if len(results) != 2 || results[0].Username != "bo" || results[1].Username != "ada" {
		t.Fatalf("unexpected order: %+v", results)
	}
	if len(results[0].Responses) != 2 {
		t.Fatalf("interleaved rows were not merged into the first instance")
	}
}

func TestReconstructRowOrderDoesNotChangeContent(t *testing.T) {
	base := []domain.ResponseRow{
		row("ada", "2025-06-10T08:00:00Z", 1000, "mood", domain.PromptSingleChoice, "2"),
		row("ada", "2025-06-10T08:00:00Z", 1000, "symptoms", domain.PromptMultiChoice, "[1]"),
		row("ada", "2025-06-10T08:00:00Z", 1000, "hours_slept", domain.PromptNumber, "7"),
	}
	reversed := []domain.ResponseRow{base[2], base[1], base[0]}
	rc := NewReconstructor(staticRegistry{testCampaign()})

	a, err := rc.Reconstruct(context.Background(), "urn:campaign:checkup", &stubIterator{rows: base})
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	b, err := rc.Reconstruct(context.Background(), "urn:campaign:checkup", &stubIterator{rows: reversed})
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("expected one instance each, got %d and %d", len(a), len(b))
	}
	if !reflect.DeepEqual(a[0].Responses, b[0].Responses) {
		t.Fatalf("responses differ by row order: %#v vs %#v", a[0].Responses, b[0].Responses)
	}
}

func TestReconstructDuplicateRowsLastWriteWins(t *testing.T) {
	rows := []domain.ResponseRow{
		row("ada", "2025-06-10T08:00:00Z", 1000, "mood", domain.PromptSingleChoice, "0"),
		row("ada", "2025-06-10T08:00:00Z", 1000, "mood", domain.PromptSingleChoice, "2"),
	}
	rc := NewReconstructor(staticRegistry{testCampaign()})

	results, err := rc.Reconstruct(context.Background(), "urn:campaign:checkup", &stubIterator{rows: rows})
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if got := results[0].Responses["mood"]; got != int64(2) {
		t.Fatalf("mood = %v, want the later row's 2", got)
	}
}

func TestReconstructIteratorErrorAbortsRead(t *testing.T) {
	streamErr := errors.New("cursor torn down")
	it := &stubIterator{
		rows: []domain.ResponseRow{
			row("ada", "2025-06-10T08:00:00Z", 1000, "mood", domain.PromptSingleChoice, "2"),
		},
		err: streamErr,
	}
	rc := NewReconstructor(staticRegistry{testCampaign()})

	results, err := rc.Reconstruct(context.Background(), "urn:campaign:checkup", it)
	if !errors.Is(err, streamErr) {
		t.Fatalf("expected the stream error, got %v", err)
	}
	if results != nil {
		t.Fatalf("a stream error must not leak a partial result, got %+v", results)
	}
}

func TestReconstructUnknownCampaign(t *testing.T) {
	rc := NewReconstructor(staticRegistry{testCampaign()})
	_, err := rc.Reconstruct(context.Background(), "urn:campaign:other", &stubIterator{})
	if !errors.Is(err, domain.ErrCampaignNotFound) {
		t.Fatalf("expected ErrCampaignNotFound, got %v", err)
	}
}

func TestReconstructRepeatableSetIterations(t *testing.T) {
	campaign := testCampaign()
	campaign.Surveys[0].RepeatableSets = []domain.RepeatableSet{{
		ID: "meals",
		Prompts: []domain.Prompt{{
			ID: "meal_size", RepeatableSetID: "meals", Type: domain.PromptNumber,
			DisplayLabel: "Meal size", Text: "How large was the meal?",
			Bounds: &domain.Bounds{Min: 1, Max: 5},
		}},
	}}

	one, two := 1, 2
	r1 := row("ada", "2025-06-10T08:00:00Z", 1000, "meal_size", domain.PromptNumber, "3")
	r1.RepeatableSetID = "meals"
	r1.RepeatableSetIteration = &one
	r2 := row("ada", "2025-06-10T08:00:00Z", 1000, "meal_size", domain.PromptNumber, "5")
	r2.RepeatableSetID = "meals"
	r2.RepeatableSetIteration = &two

	rc := NewReconstructor(staticRegistry{campaign})
	results, err := rc.Reconstruct(context.Background(), "urn:campaign:checkup", &stubIterator{rows: []domain.ResponseRow{r1, r2}})
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	// Each iteration is its own instance, not a duplicate.
	if len(results) != 2 {
		t.Fatalf("got %d results, want one per iteration", len(results))
	}
	if results[0].Responses["meal_size"] != int64(3) || results[1].Responses["meal_size"] != int64(5) {
		t.Fatalf("iteration answers mixed up: %+v", results)
	}
}
