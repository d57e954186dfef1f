package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"mhealth-survey-service/internal/app"
	"mhealth-survey-service/internal/domain"
)

// ResponseStore persists and streams survey response rows in Postgres.
type ResponseStore struct {
	pool *pgxpool.Pool
}

func NewResponseStore(pool *pgxpool.Pool) *ResponseStore {
	return &ResponseStore{pool: pool}
}

const insertRowSQL = `INSERT INTO survey_responses
	(username, campaign_urn, ts, epoch_millis, timezone, survey_id,
	 repeatable_set_id, repeatable_set_iteration, prompt_id, prompt_type,
	 response, custom_choices, client, launch_context, location_status, location, privacy_state)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`

// InsertRows stores one submission's rows in a single transaction so a
// survey instance is either fully present or absent.
func (s *ResponseStore) InsertRows(ctx context.Context, rows []domain.ResponseRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, row := range rows {
		var location []byte
		if row.Location != nil {
			location, err = json.Marshal(row.Location)
			if err != nil {
				return fmt.Errorf("encode location: %w", err)
			}
		}
		var custom []byte
		if len(row.CustomChoices) > 0 {
			custom, err = json.Marshal(row.CustomChoices)
			if err != nil {
				return fmt.Errorf("encode custom choices: %w", err)
			}
		}
		_, err = tx.Exec(ctx, insertRowSQL,
			row.Username, row.CampaignURN, row.Timestamp, row.EpochMillis,
			row.Timezone, row.SurveyID, row.RepeatableSetID, row.RepeatableSetIteration,
			row.PromptID, string(row.PromptType), row.Response, custom, row.Client,
			row.LaunchContext, row.LocationStatus, location, string(row.PrivacyState))
		if err != nil {
			return fmt.Errorf("insert row for prompt %q: %w", row.PromptID, err)
		}
	}
	return tx.Commit(ctx)
}

// QueryRows streams the rows matching q. The result is ordered by upload
// time for stable pagination, but consumers must not rely on rows of one
// survey instance being adjacent.
func (s *ResponseStore) QueryRows(ctx context.Context, q app.RowQuery) (app.RowIterator, error) {
	sql, args := buildRowQuery(q)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	return &pgRowIterator{rows: rows}, nil
}

func buildRowQuery(q app.RowQuery) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT username, campaign_urn, ts, epoch_millis, timezone, survey_id,
		repeatable_set_id, repeatable_set_iteration, prompt_id, prompt_type,
		response, custom_choices, client, launch_context, location_status, location, privacy_state
		FROM survey_responses WHERE campaign_urn = $1`)
	args := []any{q.CampaignURN}

	if len(q.SurveyIDs) > 0 {
		args = append(args, q.SurveyIDs)
		sb.WriteString(" AND survey_id = ANY(" + placeholder(len(args)) + ")")
	}
	if len(q.Usernames) > 0 {
		args = append(args, q.Usernames)
		sb.WriteString(" AND username = ANY(" + placeholder(len(args)) + ")")
	}
	if !q.Start.IsZero() {
		args = append(args, q.Start.UnixMilli())
		sb.WriteString(" AND epoch_millis >= " + placeholder(len(args)))
	}
	if !q.End.IsZero() {
		args = append(args, q.End.UnixMilli())
		sb.WriteString(" AND epoch_millis < " + placeholder(len(args)))
	}
	if q.SharedOnly {
		args = append(args, string(domain.PrivacyShared))
		sb.WriteString(" AND privacy_state = " + placeholder(len(args)))
	}
	sb.WriteString(" ORDER BY epoch_millis, username, survey_id, prompt_id")
	return sb.String(), args
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

type pgRowIterator struct {
	rows pgx.Rows
}

func (it *pgRowIterator) Next(_ context.Context) (domain.ResponseRow, bool, error) {
	if !it.rows.Next() {
		if err := it.rows.Err(); err != nil {
			return domain.ResponseRow{}, true, fmt.Errorf("row stream: %w", err)
		}
		it.rows.Close()
		return domain.ResponseRow{}, true, nil
	}

	var (
		row        domain.ResponseRow
		promptType string
		privacy    string
		iteration  *int
		custom     []byte
		location   []byte
	)
	err := it.rows.Scan(&row.Username, &row.CampaignURN, &row.Timestamp, &row.EpochMillis,
		&row.Timezone, &row.SurveyID, &row.RepeatableSetID, &iteration,
		&row.PromptID, &promptType, &row.Response, &custom, &row.Client,
		&row.LaunchContext, &row.LocationStatus, &location, &privacy)
	if err != nil {
		it.rows.Close()
		return domain.ResponseRow{}, true, fmt.Errorf("scan row: %w", err)
	}
	row.PromptType = domain.PromptType(promptType)
	row.PrivacyState = domain.PrivacyState(privacy)
	row.RepeatableSetIteration = iteration
	if len(custom) > 0 {
		if err := json.Unmarshal(custom, &row.CustomChoices); err != nil {
			it.rows.Close()
			return domain.ResponseRow{}, true, fmt.Errorf("decode custom choices: %w", err)
		}
	}
	if len(location) > 0 {
		var loc domain.Location
		if err := json.Unmarshal(location, &loc); err != nil {
			it.rows.Close()
			return domain.ResponseRow{}, true, fmt.Errorf("decode location: %w", err)
		}
		row.Location = &loc
	}
	return row, false, nil
}
