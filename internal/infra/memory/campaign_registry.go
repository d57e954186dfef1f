package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"mhealth-survey-service/internal/domain"
)

// CampaignLoader fetches campaign definitions from a backing store (e.g., a
// document DB).
type CampaignLoader interface {
	LoadCampaign(ctx context.Context, urn string) (domain.Campaign, error)
}

// CampaignRegistry caches campaign definitions with TTL to avoid repeated
// store hits. Loads for the same URN are collapsed with singleflight.
type CampaignRegistry struct {
	loader CampaignLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedCampaign
}

type cachedCampaign struct {
	campaign  domain.Campaign
	expiresAt time.Time
}

func NewCampaignRegistry(loader CampaignLoader, ttl time.Duration) *CampaignRegistry {
	return &CampaignRegistry{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedCampaign),
	}
}

func (r *CampaignRegistry) GetCampaign(ctx context.Context, urn string) (domain.Campaign, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[urn]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.campaign, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(urn, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[urn]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.campaign, nil
		}
		r.mu.RUnlock()

		campaign, err := r.loader.LoadCampaign(ctx, urn)
		if err != nil {
			return domain.Campaign{}, err
		}

		r.mu.Lock()
		r.cache[urn] = cachedCampaign{
			campaign:  campaign,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return campaign, nil
	})
	if err != nil {
		return domain.Campaign{}, err
	}
	return result.(domain.Campaign), nil
}

func (r *CampaignRegistry) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticCampaignLoader is a loader backed by an in-memory map (useful for
// tests/demos). Definitions are checked once at construction.
type StaticCampaignLoader struct {
	campaigns map[string]domain.Campaign
}

func NewStaticCampaignLoader(campaigns map[string]domain.Campaign) (*StaticCampaignLoader, error) {
	for _, c := range campaigns {
		if err := c.CheckDefinition(); err != nil {
			return nil, err
		}
	}
	return &StaticCampaignLoader{campaigns: campaigns}, nil
}

func (l *StaticCampaignLoader) LoadCampaign(_ context.Context, urn string) (domain.Campaign, error) {
	if campaign, ok := l.campaigns[urn]; ok {
		return campaign, nil
	}
	return domain.Campaign{}, domain.ErrCampaignNotFound
}
