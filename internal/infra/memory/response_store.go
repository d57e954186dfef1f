package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"mhealth-survey-service/internal/app"
	"mhealth-survey-service/internal/domain"
)

// ResponseStore is an in-memory row store implementing both the ingestion
// sink and the read-side row source. Useful for tests and databaseless
// demos.
type ResponseStore struct {
	mu   sync.RWMutex
	rows []domain.ResponseRow
}

func NewResponseStore() *ResponseStore {
	return &ResponseStore{}
}

func (s *ResponseStore) InsertRows(_ context.Context, rows []domain.ResponseRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
	return nil
}

func (s *ResponseStore) QueryRows(_ context.Context, q app.RowQuery) (app.RowIterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []domain.ResponseRow
	for _, row := range s.rows {
		if matchesQuery(row, q) {
			matched = append(matched, row)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].EpochMillis < matched[j].EpochMillis
	})
	return &sliceIterator{rows: matched}, nil
}

func matchesQuery(row domain.ResponseRow, q app.RowQuery) bool {
	if row.CampaignURN != q.CampaignURN {
		return false
	}
	if len(q.SurveyIDs) > 0 && !contains(q.SurveyIDs, row.SurveyID) {
		return false
	}
	if len(q.Usernames) > 0 && !contains(q.Usernames, row.Username) {
		return false
	}
	uploaded := time.UnixMilli(row.EpochMillis)
	if !q.Start.IsZero() && uploaded.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && !uploaded.Before(q.End) {
		return false
	}
	if q.SharedOnly && row.PrivacyState != domain.PrivacyShared {
		return false
	}
	return true
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

type sliceIterator struct {
	rows []domain.ResponseRow
	next int
}

func (it *sliceIterator) Next(_ context.Context) (domain.ResponseRow, bool, error) {
	if it.next >= len(it.rows) {
		return domain.ResponseRow{}, true, nil
	}
	row := it.rows[it.next]
	it.next++
	return row, false, nil
}
