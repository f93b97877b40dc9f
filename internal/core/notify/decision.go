// Package notify decides which channels carry a notification and dispatches
// it: in-app inbox rows always, Web Push when the user opted in and quiet
// hours allow it. Email and SMS eligibility is computed the same way; actual
// provider delivery is out of scope and only logged.
package notify

import "time"

// Notification categories.
const (
	CategoryMessage         = "message"
	CategoryMention         = "mention"
	CategoryBroadcast       = "broadcast"
	CategoryBroadcastUrgent = "broadcast_urgent"
	CategoryPayment         = "payment"
	CategoryTask            = "task"
	CategoryCalendar        = "calendar"
	CategoryPoll            = "poll"
)

var allCategories = map[string]bool{
	CategoryMessage:         true,
	CategoryMention:         true,
	CategoryBroadcast:       true,
	CategoryBroadcastUrgent: true,
	CategoryPayment:         true,
	CategoryTask:            true,
	CategoryCalendar:        true,
	CategoryPoll:            true,
}

// ValidCategory reports whether category is one the dispatcher knows about.
func ValidCategory(category string) bool {
	return allCategories[category]
}

// smsEligible lists the categories important enough to page someone's phone.
var smsEligible = map[string]bool{
	CategoryBroadcastUrgent: true,
	CategoryPayment:         true,
}

// Prefs are one user's channel opt-ins for a category.
type Prefs struct {
	InApp bool
	Push  bool
	Email bool
	SMS   bool
}

// DefaultPrefs apply when the user never touched the category's settings.
func DefaultPrefs() Prefs {
	return Prefs{InApp: true, Push: true}
}

// QuietHours is a daily window in minutes from local midnight. A window whose
// start is after its end wraps past midnight (22:00-07:00).
type QuietHours struct {
	Enabled  bool
	StartMin int
	EndMin   int
	Location *time.Location
}

// Channels is the delivery decision for one notification.
type Channels struct {
	InApp bool `json:"in_app"`
	Push  bool `json:"push"`
	Email bool `json:"email"`
	SMS   bool `json:"sms"`
}

// Decide maps (category, prefs, quiet hours, now) to the channel tuple.
// Quiet hours suppress push, email and SMS but never the in-app inbox.
// SMS additionally requires an SMS-eligible category.
func Decide(category string, prefs Prefs, quiet QuietHours, now time.Time) Channels {
	suppressed := inQuietWindow(quiet, now)
	return Channels{
		InApp: prefs.InApp,
		Push:  prefs.Push && !suppressed,
		Email: prefs.Email && !suppressed,
		SMS:   prefs.SMS && smsEligible[category] && !suppressed,
	}
}

func inQuietWindow(quiet QuietHours, now time.Time) bool {
	if !quiet.Enabled {
		return false
	}
	if quiet.Location != nil {
		now = now.In(quiet.Location)
	}
	minute := now.Hour()*60 + now.Minute()

	if quiet.StartMin == quiet.EndMin {
		return false // zero-length window
	}
	if quiet.StartMin < quiet.EndMin {
		return minute >= quiet.StartMin && minute < quiet.EndMin
	}
	// Window wraps midnight.
	return minute >= quiet.StartMin || minute < quiet.EndMin
}
