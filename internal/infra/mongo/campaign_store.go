package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mhealth-survey-service/internal/domain"
)

// CampaignStore loads campaign definitions from MongoDB, one document per
// campaign keyed by URN. Documents are definition-checked on every load so a
// bad edit in the collection can never reach validation or reconstruction.
type CampaignStore struct {
	collection *mongo.Collection
}

func NewCampaignStore(db *mongo.Database) *CampaignStore {
	return &CampaignStore{collection: db.Collection("campaigns")}
}

func (s *CampaignStore) LoadCampaign(ctx context.Context, urn string) (domain.Campaign, error) {
	var campaign domain.Campaign
	err := s.collection.FindOne(ctx, bson.M{"urn": urn}).Decode(&campaign)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Campaign{}, domain.ErrCampaignNotFound
	}
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("load campaign %q: %w", urn, err)
	}
	if err := campaign.CheckDefinition(); err != nil {
		return domain.Campaign{}, fmt.Errorf("campaign %q: %w", urn, err)
	}
	return campaign, nil
}

// SaveCampaign upserts a campaign definition. Used by seeding and the
// integration tests; campaign authoring itself lives elsewhere.
func (s *CampaignStore) SaveCampaign(ctx context.Context, campaign domain.Campaign) error {
	if err := campaign.CheckDefinition(); err != nil {
		return err
	}
	opts := options.Replace().SetUpsert(true)
	_, err := s.collection.ReplaceOne(ctx, bson.M{"urn": campaign.URN}, campaign, opts)
	if err != nil {
		return fmt.Errorf("save campaign %q: %w", campaign.URN, err)
	}
	return nil
}
