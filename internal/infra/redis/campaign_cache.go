package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"mhealth-survey-service/internal/domain"
)

// CampaignLoader fetches campaign definitions from a backing store (e.g., a
// document DB).
type CampaignLoader interface {
	LoadCampaign(ctx context.Context, urn string) (domain.Campaign, error)
}

// CampaignCache keeps campaign definitions in Redis (one JSON value per
// campaign) and falls back to a loader on cache miss. Definitions change
// rarely and are read on every upload and every reconstruction, which makes
// them the hot key of the system.
type CampaignCache struct {
	client *redis.Client
	loader CampaignLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewCampaignCache(client *redis.Client, loader CampaignLoader, ttl time.Duration) *CampaignCache {
	return &CampaignCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CampaignCache) GetCampaign(ctx context.Context, urn string) (domain.Campaign, error) {
	key := c.key(urn)

	if campaign, ok := c.cached(ctx, key); ok {
		return campaign, nil
	}

	result, err, _ := c.sf.Do(urn, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if campaign, ok := c.cached(ctx, key); ok {
			return campaign, nil
		}

		campaign, err := c.loader.LoadCampaign(ctx, urn)
		if err != nil {
			return domain.Campaign{}, err
		}

		encoded, err := json.Marshal(campaign)
		if err != nil {
			return domain.Campaign{}, err
		}
		_ = c.client.Set(ctx, key, encoded, c.ttlWithJitter()).Err()
		return campaign, nil
	})
	if err != nil {
		return domain.Campaign{}, err
	}
	return result.(domain.Campaign), nil
}

func (c *CampaignCache) cached(ctx context.Context, key string) (domain.Campaign, bool) {
	encoded, err := c.client.Get(ctx, key).Bytes()
	if err != nil || len(encoded) == 0 {
		return domain.Campaign{}, false
	}
	var campaign domain.Campaign
	if err := json.Unmarshal(encoded, &campaign); err != nil {
		return domain.Campaign{}, false
	}
	return campaign, true
}

func (c *CampaignCache) key(urn string) string {
	return "campaign:" + urn + ":def"
}

func (c *CampaignCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
