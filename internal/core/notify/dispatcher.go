package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/MeechYourGoals/chravel-server/internal/store"
)

// ErrSubscriptionGone is returned by a PushSender when the push service says
// the subscription no longer exists; the dispatcher prunes it.
var ErrSubscriptionGone = errors.New("push subscription gone")

type Store interface {
	ListMembers(tripID string) ([]store.TripMember, error)
	GetNotificationPref(userID, category string) (*store.NotificationPref, error)
	GetNotificationSettings(userID string) (*store.NotificationSettings, error)
	CreateNotification(n *store.Notification) error
	ListPushSubscriptions(userID string) ([]store.PushSubscription, error)
	DeletePushSubscription(endpoint string) error
}

type PushSender interface {
	Send(ctx context.Context, sub store.PushSubscription, payload []byte) error
}

type Dispatcher struct {
	store Store
	push  PushSender
	now   func() time.Time
}

func NewDispatcher(s Store, push PushSender) *Dispatcher {
	return &Dispatcher{store: s, push: push, now: time.Now}
}

// Event is one notification to fan out to a trip's members.
type Event struct {
	TripID    string
	Category  string
	ActorID   string   // excluded from delivery
	TargetIDs []string // nil: every member
	Title     string
	Body      string
	Data      map[string]interface{}
}

// Dispatch evaluates the delivery matrix per member and delivers on each
// eligible channel. Errors for individual members are logged, not returned:
// one broken subscription must not block the rest of the trip.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	members, err := d.store.ListMembers(ev.TripID)
	if err != nil {
		return err
	}

	var data json.RawMessage
	if ev.Data != nil {
		data, _ = json.Marshal(ev.Data)
	}

	targets := make(map[string]bool, len(ev.TargetIDs))
	for _, id := range ev.TargetIDs {
		targets[id] = true
	}

	for _, m := range members {
		if m.UserID == ev.ActorID {
			continue
		}
		if len(targets) > 0 && !targets[m.UserID] {
			continue
		}
		channels := d.decideFor(m.UserID, ev.Category)

		if channels.InApp {
			n := &store.Notification{
				UserID:   m.UserID,
				TripID:   ev.TripID,
				Category: ev.Category,
				Title:    ev.Title,
				Body:     ev.Body,
				Data:     data,
			}
			if err := d.store.CreateNotification(n); err != nil {
				log.Printf("notify: failed to write in-app notification for %s: %v", m.UserID, err)
			}
		}

		if channels.Push && d.push != nil {
			d.sendPush(ctx, m.UserID, ev)
		}

		// Email and SMS delivery is provider territory; log eligibility only.
		if channels.Email {
			log.Printf("notify: user %s eligible for email (%s)", m.UserID, ev.Category)
		}
		if channels.SMS {
			log.Printf("notify: user %s eligible for sms (%s)", m.UserID, ev.Category)
		}
	}
	return nil
}

func (d *Dispatcher) decideFor(userID, category string) Channels {
	prefs := DefaultPrefs()
	if pref, err := d.store.GetNotificationPref(userID, category); err != nil {
		log.Printf("notify: failed to load prefs for %s, using defaults: %v", userID, err)
	} else if pref != nil {
		prefs = Prefs{InApp: pref.InApp, Push: pref.Push, Email: pref.Email, SMS: pref.SMS}
	}

	quiet := QuietHours{}
	if set, err := d.store.GetNotificationSettings(userID); err != nil {
		log.Printf("notify: failed to load settings for %s: %v", userID, err)
	} else if set != nil {
		quiet = QuietHours{Enabled: set.QuietEnabled, StartMin: set.QuietStartMin, EndMin: set.QuietEndMin}
		if loc, err := time.LoadLocation(set.Timezone); err == nil {
			quiet.Location = loc
		}
	}

	return Decide(category, prefs, quiet, d.now())
}

func (d *Dispatcher) sendPush(ctx context.Context, userID string, ev Event) {
	subs, err := d.store.ListPushSubscriptions(userID)
	if err != nil {
		log.Printf("notify: failed to list push subscriptions for %s: %v", userID, err)
		return
	}
	if len(subs) == 0 {
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"title":    ev.Title,
		"body":     ev.Body,
		"trip_id":  ev.TripID,
		"category": ev.Category,
		"data":     ev.Data,
	})
	if err != nil {
		log.Printf("notify: failed to marshal push payload: %v", err)
		return
	}

	for _, sub := range subs {
		if err := d.push.Send(ctx, sub, payload); err != nil {
			if errors.Is(err, ErrSubscriptionGone) {
				if err := d.store.DeletePushSubscription(sub.Endpoint); err != nil {
					log.Printf("notify: failed to prune subscription: %v", err)
				}
				continue
			}
			log.Printf("notify: push to %s failed: %v", userID, err)
		}
	}
}
