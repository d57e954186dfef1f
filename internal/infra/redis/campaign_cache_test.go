package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"mhealth-survey-service/internal/domain"
	"mhealth-survey-service/internal/infra/memory"
)

func TestCampaignCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{CampaignLoader: newStaticLoader(t)}
	cache := NewCampaignCache(client, loader, time.Minute)

	campaign, err := cache.GetCampaign(context.Background(), "urn:campaign:sleep")
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if campaign.Title != "Sleep study" {
		t.Fatalf("unexpected campaign %+v", campaign)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("campaign:urn:campaign:sleep:def") {
		t.Fatalf("definition not written to redis")
	}

	// Second call should hit cache, loader not incremented.
	_, _ = cache.GetCampaign(context.Background(), "urn:campaign:sleep")
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
}

func TestCampaignCacheReloadsAfterExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{CampaignLoader: newStaticLoader(t)}
	cache := NewCampaignCache(newClient(mr), loader, time.Minute)

	if _, err := cache.GetCampaign(context.Background(), "urn:campaign:sleep"); err != nil {
		t.Fatalf("get campaign: %v", err)
	}

	// TTL plus the at-most-10% jitter.
	mr.FastForward(2 * time.Minute)

	if _, err := cache.GetCampaign(context.Background(), "urn:campaign:sleep"); err != nil {
		t.Fatalf("get campaign after expiry: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls=%d", loader.calls)
	}
}

func TestCampaignCachePropagatesNotFound(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{CampaignLoader: newStaticLoader(t)}
	cache := NewCampaignCache(newClient(mr), loader, time.Minute)

	_, err = cache.GetCampaign(context.Background(), "urn:campaign:missing")
	if !errors.Is(err, domain.ErrCampaignNotFound) {
		t.Fatalf("expected ErrCampaignNotFound, got %v", err)
	}
	if mr.Exists("campaign:urn:campaign:missing:def") {
		t.Fatalf("a failed load must not be cached")
	}
}

type countingLoader struct {
	CampaignLoader
	calls int
}

func (l *countingLoader) LoadCampaign(ctx context.Context, urn string) (domain.Campaign, error) {
	l.calls++
	return l.CampaignLoader.LoadCampaign(ctx, urn)
}

func newStaticLoader(t *testing.T) *memory.StaticCampaignLoader {
	t.Helper()
	campaign := domain.Campaign{
		URN:   "urn:campaign:sleep",
		Title: "Sleep study",
		Surveys: []domain.Survey{{
			ID: "nightly", Title: "Nightly",
			Prompts: []domain.Prompt{{
				ID: "hours_slept", Type: domain.PromptNumber,
				DisplayLabel: "Hours slept", Text: "How many hours did you sleep?",
				Bounds: &domain.Bounds{Min: 0, Max: 24},
			}},
		}},
	}
	loader, err := memory.NewStaticCampaignLoader(map[string]domain.Campaign{campaign.URN: campaign})
	if err != nil {
		t.Fatalf("static loader: %v", err)
	}
	return loader
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
