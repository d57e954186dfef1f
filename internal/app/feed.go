package app

import (
	"sync"
	"time"
)

// ActivityEvent summarizes one accepted submission for live consumers.
type ActivityEvent struct {
	SubmissionID string    `json:"submissionId"`
	CampaignURN  string    `json:"campaignUrn"`
	SurveyID     string    `json:"surveyId"`
	Username     string    `json:"username"`
	PromptCount  int       `json:"promptCount"`
	ReceivedAt   time.Time `json:"receivedAt"`
}

// ActivityFeed fans ingest events out to subscribers. Slow subscribers get
// their oldest pending event dropped rather than blocking the publisher.
type ActivityFeed struct {
	mu          sync.Mutex
	subscribers map[chan ActivityEvent]struct{}
}

func NewActivityFeed() *ActivityFeed {
	return &ActivityFeed{subscribers: make(map[chan ActivityEvent]struct{})}
}

// Subscribe returns a channel of future events. The caller must invoke the
// returned cancel function to avoid leaks.
func (f *ActivityFeed) Subscribe() (<-chan ActivityEvent, func()) {
	ch := make(chan ActivityEvent, 8)
	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber.
func (f *ActivityFeed) Publish(event ActivityEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}
