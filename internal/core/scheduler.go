package core

import (
	"context"
	"log"
	"time"

	"github.com/MeechYourGoals/chravel-server/internal/store"
)

type BroadcastClaimer interface {
	ClaimDueBroadcasts(now time.Time) ([]store.Broadcast, error)
}

// BroadcastScheduler polls for scheduled broadcasts that have come due and
// hands them to the chat service for delivery.
type BroadcastScheduler struct {
	store    BroadcastClaimer
	chat     *ChatService
	interval time.Duration
}

func NewBroadcastScheduler(s BroadcastClaimer, chat *ChatService, interval time.Duration) *BroadcastScheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &BroadcastScheduler{store: s, chat: chat, interval: interval}
}

// Run blocks until ctx is cancelled.
func (sch *BroadcastScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(sch.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			sch.tick(now)
		}
	}
}

func (sch *BroadcastScheduler) tick(now time.Time) {
	due, err := sch.store.ClaimDueBroadcasts(now.UTC())
	if err != nil {
		log.Printf("Error claiming due broadcasts: %v", err)
		return
	}
	for _, b := range due {
		sch.chat.DeliverBroadcast(b)
	}
}
