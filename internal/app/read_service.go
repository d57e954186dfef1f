package app

import (
	"context"
	"time"
)

// RowQuery selects stored response rows for one campaign. Zero times mean
// unbounded; empty slices mean no filter.
type RowQuery struct {
	CampaignURN string
	SurveyIDs   []string
	Usernames   []string
	Start       time.Time
	End         time.Time
	SharedOnly  bool
}

// ResponseReader produces the stored row stream for a query.
type ResponseReader interface {
	QueryRows(ctx context.Context, q RowQuery) (RowIterator, error)
}

// ReadService is the read-side use case: stored rows in, reconstructed
// survey instances out.
type ReadService struct {
	rows          ResponseReader
	reconstructor *Reconstructor
}

func NewReadService(registry CampaignRegistry, rows ResponseReader) *ReadService {
	return &ReadService{rows: rows, reconstructor: NewReconstructor(registry)}
}

// Read reconstructs every survey instance matched by the query.
func (s *ReadService) Read(ctx context.Context, q RowQuery) ([]IndexedResult, error) {
	iterator, err := s.rows.QueryRows(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.reconstructor.Reconstruct(ctx, q.CampaignURN, iterator)
}

// ReadBuckets reconstructs the matched instances and aggregates them into
// fixed UTC time buckets of the given width.
func (s *ReadService) ReadBuckets(ctx context.Context, q RowQuery, width time.Duration) ([]Bucket, error) {
	results, err := s.Read(ctx, q)
	if err != nil {
		return nil, err
	}
	return BucketResults(results, width), nil
}
