package core

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MeechYourGoals/chravel-server/internal/realtime"
	"github.com/MeechYourGoals/chravel-server/internal/store"
)

var errTestDB = errors.New("db unavailable")

type fakeClaimer struct {
	due []store.Broadcast
	err error
}

func (f *fakeClaimer) ClaimDueBroadcasts(now time.Time) ([]store.Broadcast, error) {
	due := f.due
	f.due = nil
	return due, f.err
}

func TestSchedulerTick_DeliversDueBroadcasts(t *testing.T) {
	svc, _, pub, notifier := newTestChatService()
	now := time.Now()
	claimer := &fakeClaimer{due: []store.Broadcast{
		{ID: "b1", TripID: "t1", AuthorID: "maya", Content: "checkout at 11", Priority: store.PriorityNormal, SentAt: &now},
		{ID: "b2", TripID: "t1", AuthorID: "maya", Content: "bus in 10", Priority: store.PriorityUrgent, SentAt: &now},
	}}
	sch := NewBroadcastScheduler(claimer, svc, time.Second)

	sch.tick(now)

	require.Len(t, pub.byEvent(realtime.EventBroadcast), 2)
	notifier.wait(t)
	notifier.wait(t)

	// A second tick has nothing left to claim.
	sch.tick(now.Add(time.Second))
	require.Len(t, pub.byEvent(realtime.EventBroadcast), 2)
}

func TestSchedulerTick_ClaimErrorIsNotFatal(t *testing.T) {
	svc, _, pub, _ := newTestChatService()
	claimer := &fakeClaimer{err: errTestDB}
	sch := NewBroadcastScheduler(claimer, svc, time.Second)

	sch.tick(time.Now())
	require.Empty(t, pub.byEvent(realtime.EventBroadcast))
}
