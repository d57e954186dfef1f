package memory

import (
	"context"
	"testing"
	"time"

	"mhealth-survey-service/internal/app"
	"mhealth-survey-service/internal/domain"
)

func storedRow(username, surveyID string, millis int64, privacy domain.PrivacyState) domain.ResponseRow {
	return domain.ResponseRow{
		Username:     username,
		CampaignURN:  "urn:campaign:sleep",
		Timestamp:    time.UnixMilli(millis).UTC().Format(time.RFC3339),
		EpochMillis:  millis,
		SurveyID:     surveyID,
		PromptID:     "hours_slept",
		PromptType:   domain.PromptNumber,
		Response:     "7",
		PrivacyState: privacy,
	}
}

func drain(t *testing.T, it app.RowIterator) []domain.ResponseRow {
	t.Helper()
	var rows []domain.ResponseRow
	for {
		row, done, err := it.Next(context.Background())
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if done {
			return rows
		}
		rows = append(rows, row)
	}
}

func TestResponseStoreQueryFilters(t *testing.T) {
	ctx := context.Background()
	store := NewResponseStore()
	err := store.InsertRows(ctx, []domain.ResponseRow{
		storedRow("ada", "nightly", 3000, domain.PrivacyPrivate),
		storedRow("ada", "weekly", 1000, domain.PrivacyShared),
		storedRow("bo", "nightly", 2000, domain.PrivacyShared),
	})
	if err != nil {
		t.Fatalf("InsertRows: %v", err)
	}

	it, err := store.QueryRows(ctx, app.RowQuery{CampaignURN: "urn:campaign:sleep"})
	if err != nil {
		t.Fatalf("QueryRows: %v", err)
	}
	rows := drain(t, it)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	// Ordered by upload time.
	if rows[0].EpochMillis != 1000 || rows[2].EpochMillis != 3000 {
		t.Fatalf("rows not sorted by epoch: %+v", rows)
	}

	it, _ = store.QueryRows(ctx, app.RowQuery{CampaignURN: "urn:campaign:sleep", Usernames: []string{"ada"}})
	if rows = drain(t, it); len(rows) != 2 {
		t.Fatalf("username filter: got %d rows, want 2", len(rows))
	}

	it, _ = store.QueryRows(ctx, app.RowQuery{CampaignURN: "urn:campaign:sleep", SurveyIDs: []string{"weekly"}})
	if rows = drain(t, it); len(rows) != 1 || rows[0].SurveyID != "weekly" {
		t.Fatalf("survey filter: %+v", rows)
	}

	it, _ = store.QueryRows(ctx, app.RowQuery{CampaignURN: "urn:campaign:sleep", SharedOnly: true})
	if rows = drain(t, it); len(rows) != 2 {
		t.Fatalf("shared filter: got %d rows, want 2", len(rows))
	}

	it, _ = store.QueryRows(ctx, app.RowQuery{
		CampaignURN: "urn:campaign:sleep",
		Start:       time.UnixMilli(1500),
		End:         time.UnixMilli(3000), // exclusive
	})
	if rows = drain(t, it); len(rows) != 1 || rows[0].EpochMillis != 2000 {
		t.Fatalf("time filter: %+v", rows)
	}

	it, _ = store.QueryRows(ctx, app.RowQuery{CampaignURN: "urn:campaign:other"})
	if rows = drain(t, it); len(rows) != 0 {
		t.Fatalf("campaign filter leaked rows: %+v", rows)
	}
}
