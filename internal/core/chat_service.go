package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MeechYourGoals/chravel-server/internal/core/notify"
	"github.com/MeechYourGoals/chravel-server/internal/realtime"
	"github.com/MeechYourGoals/chravel-server/internal/store"
)

var (
	ErrForbidden       = errors.New("not allowed")
	ErrTierRequired    = errors.New("role channels require a Pro or Enterprise trip")
	ErrChannelNotFound = errors.New("channel not found")
	ErrTripNotFound    = errors.New("trip not found")
)

type ChatStore interface {
	GetTrip(tripID string) (*store.Trip, error)
	GetMember(tripID, userID string) (*store.TripMember, error)
	ListMembers(tripID string) ([]store.TripMember, error)
	GetUserByID(id string) (*store.User, error)

	CreateMessage(msg *store.Message) error
	GetMessage(id string) (*store.Message, error)
	ListMessages(q store.MessageQuery) ([]store.Message, error)
	ListThread(rootID string) ([]store.Message, error)
	UpdateMessageContent(id, authorID, content string) error
	SoftDeleteMessage(id, authorID string) error
	PinMessage(tripID, messageID string) (string, error)
	UnpinMessage(tripID string) error
	GetPinnedMessage(tripID string) (*store.Message, error)

	ToggleReaction(messageID, userID, typ string) (bool, error)
	GetReactionGroups(messageID string) ([]store.ReactionGroup, error)

	CreateRoleChannel(tripID, name, role, createdBy string) (*store.RoleChannel, error)
	GetRoleChannel(channelID string) (*store.RoleChannel, error)
	ListRoleChannels(tripID, role string) ([]store.RoleChannel, error)

	CreateBroadcast(b *store.Broadcast) error
	ListBroadcasts(tripID string) ([]store.Broadcast, error)
}

// Publisher pushes events onto trip realtime topics; satisfied by the hub.
type Publisher interface {
	Publish(topic, event string, payload interface{})
}

// Notifier fans a notification out to trip members.
type Notifier interface {
	Dispatch(ctx context.Context, ev notify.Event) error
}

// Invalidator drops the cached concierge snapshot after writes.
type Invalidator interface {
	Invalidate(tripID string)
}

type ChatService struct {
	store    ChatStore
	rt       Publisher
	notifier Notifier
	ctxCache Invalidator
}

func NewChatService(s ChatStore, rt Publisher, notifier Notifier, ctxCache Invalidator) *ChatService {
	return &ChatService{store: s, rt: rt, notifier: notifier, ctxCache: ctxCache}
}

func topicFor(tripID string) string { return "trip:" + tripID }

func channelTopicFor(tripID, channelID string) string {
	return "trip:" + tripID + ":channel:" + channelID
}

// messageTopic routes channel messages onto a role-scoped topic so their
// content never reaches members outside the channel's role.
func messageTopic(msg *store.Message) string {
	if msg.ChannelID != nil {
		return channelTopicFor(msg.TripID, *msg.ChannelID)
	}
	return topicFor(msg.TripID)
}

// MemberStore is the slice of the store the topic authorizer needs.
type MemberStore interface {
	GetMember(tripID, userID string) (*store.TripMember, error)
	GetRoleChannel(channelID string) (*store.RoleChannel, error)
}

// TripAuthorizer implements realtime.JoinAuthorizer: a user may subscribe
// to a trip's topic only while they are a member, and to a channel topic
// only with the channel's role (organizers see every channel).
type TripAuthorizer struct {
	store MemberStore
}

func NewTripAuthorizer(s MemberStore) *TripAuthorizer {
	return &TripAuthorizer{store: s}
}

func (a *TripAuthorizer) CanJoin(userID, topic string) bool {
	rest, ok := strings.CutPrefix(topic, "trip:")
	if !ok {
		return false
	}
	tripID, channelID, scoped := strings.Cut(rest, ":channel:")
	member, err := a.store.GetMember(tripID, userID)
	if err != nil {
		log.Printf("Error checking topic membership for %s: %v", userID, err)
		return false
	}
	if member == nil {
		return false
	}
	if !scoped {
		return true
	}
	channel, err := a.store.GetRoleChannel(channelID)
	if err != nil {
		log.Printf("Error checking channel topic for %s: %v", userID, err)
		return false
	}
	if channel == nil || channel.TripID != tripID {
		return false
	}
	return member.Role == "organizer" || channel.Role == member.Role
}

type PostMessageInput struct {
	Content     string
	ChannelID   *string
	PrivacyMode string
	ReplyTo     *string
	Payload     []byte
}

func (s *ChatService) PostMessage(ctx context.Context, tripID, userID string, in PostMessageInput) (*store.Message, error) {
	member, err := s.requireMember(tripID, userID)
	if err != nil {
		return nil, err
	}
	if in.ChannelID != nil {
		if err := s.checkChannelAccess(tripID, *in.ChannelID, member); err != nil {
			return nil, err
		}
	}
	if in.PrivacyMode == "" {
		in.PrivacyMode = store.PrivacyStandard
	}
	if in.PrivacyMode != store.PrivacyStandard && in.PrivacyMode != store.PrivacyPrivate {
		return nil, fmt.Errorf("invalid privacy mode %q", in.PrivacyMode)
	}

	msg := &store.Message{
		TripID:      tripID,
		ChannelID:   in.ChannelID,
		AuthorID:    userID,
		Content:     in.Content,
		PrivacyMode: in.PrivacyMode,
		ReplyTo:     in.ReplyTo,
		Payload:     in.Payload,
	}
	if err := s.store.CreateMessage(msg); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	s.ctxCache.Invalidate(tripID)
	s.rt.Publish(messageTopic(msg), realtime.EventMessageNew, msg)

	channelRole := ""
	if in.ChannelID != nil {
		if ch, err := s.store.GetRoleChannel(*in.ChannelID); err == nil && ch != nil {
			channelRole = ch.Role
		}
	}
	s.notifyNewMessage(tripID, userID, msg, channelRole)
	return msg, nil
}

// notifyNewMessage fans the new-message notification out. Channel messages
// only reach members holding the channel's role (organizers included), and
// members mentioned by "@DisplayName" get a mention notification instead of
// the regular one.
func (s *ChatService) notifyNewMessage(tripID, authorID string, msg *store.Message, channelRole string) {
	members, err := s.store.ListMembers(tripID)
	if err != nil {
		log.Printf("Failed to list members for trip %s: %v", tripID, err)
		return
	}

	lower := strings.ToLower(msg.Content)
	var mentioned, rest []string
	for _, m := range members {
		if m.UserID == authorID {
			continue
		}
		if channelRole != "" && m.Role != channelRole && m.Role != "organizer" {
			continue
		}
		user, err := s.store.GetUserByID(m.UserID)
		if err == nil && user != nil && user.DisplayName != "" &&
			strings.Contains(lower, "@"+strings.ToLower(user.DisplayName)) {
			mentioned = append(mentioned, m.UserID)
			continue
		}
		rest = append(rest, m.UserID)
	}

	author := s.authorName(authorID)
	body := truncate(msg.Content, 140)
	data := map[string]interface{}{"message_id": msg.ID}
	if len(mentioned) > 0 {
		s.notifyAsync(notify.Event{
			TripID:    tripID,
			Category:  notify.CategoryMention,
			ActorID:   authorID,
			TargetIDs: mentioned,
			Title:     author + " mentioned you",
			Body:      body,
			Data:      data,
		})
	}
	if len(rest) > 0 {
		s.notifyAsync(notify.Event{
			TripID:    tripID,
			Category:  notify.CategoryMessage,
			ActorID:   authorID,
			TargetIDs: rest,
			Title:     author,
			Body:      body,
			Data:      data,
		})
	}
}

func (s *ChatService) ListMessages(tripID, userID string, channelID *string, before string, limit int) ([]store.Message, error) {
	member, err := s.requireMember(tripID, userID)
	if err != nil {
		return nil, err
	}
	if channelID != nil {
		if err := s.checkChannelAccess(tripID, *channelID, member); err != nil {
			return nil, err
		}
	}
	return s.store.ListMessages(store.MessageQuery{
		TripID:    tripID,
		ChannelID: channelID,
		Before:    before,
		Limit:     limit,
	})
}

func (s *ChatService) ListThread(tripID, userID, rootID string) ([]store.Message, error) {
	member, err := s.requireMember(tripID, userID)
	if err != nil {
		return nil, err
	}
	root, err := s.store.GetMessage(rootID)
	if err != nil {
		return nil, err
	}
	if root == nil || root.TripID != tripID {
		return nil, store.ErrMessageNotFound
	}
	if root.ChannelID != nil {
		if err := s.checkChannelAccess(tripID, *root.ChannelID, member); err != nil {
			return nil, err
		}
	}
	return s.store.ListThread(rootID)
}

func (s *ChatService) EditMessage(tripID, userID, messageID, content string) (*store.Message, error) {
	if _, err := s.requireMember(tripID, userID); err != nil {
		return nil, err
	}
	if err := s.store.UpdateMessageContent(messageID, userID, content); err != nil {
		return nil, err
	}
	msg, err := s.store.GetMessage(messageID)
	if err != nil {
		return nil, err
	}
	s.ctxCache.Invalidate(tripID)
	s.rt.Publish(messageTopic(msg), realtime.EventMessageEdited, msg)
	return msg, nil
}

func (s *ChatService) DeleteMessage(tripID, userID, messageID string) error {
	if _, err := s.requireMember(tripID, userID); err != nil {
		return err
	}
	msg, err := s.store.GetMessage(messageID)
	if err != nil {
		return err
	}
	if msg == nil || msg.TripID != tripID {
		return store.ErrMessageNotFound
	}
	if err := s.store.SoftDeleteMessage(messageID, userID); err != nil {
		return err
	}
	s.ctxCache.Invalidate(tripID)
	s.rt.Publish(messageTopic(msg), realtime.EventMessageDeleted, map[string]string{"id": messageID})
	return nil
}

// PinMessage pins one message for the whole trip; the previously pinned
// message, if any, is unpinned in the same store transaction.
func (s *ChatService) PinMessage(tripID, userID, messageID string) (*store.Message, error) {
	if _, err := s.requireMember(tripID, userID); err != nil {
		return nil, err
	}
	msg, err := s.store.GetMessage(messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil || msg.TripID != tripID {
		return nil, store.ErrMessageNotFound
	}

	prevID, err := s.store.PinMessage(tripID, messageID)
	if err != nil {
		return nil, err
	}
	// Re-pinning the current pin changes nothing; don't announce it.
	if prevID != messageID {
		s.rt.Publish(topicFor(tripID), realtime.EventMessagePinned, map[string]string{
			"pinned_id":   messageID,
			"unpinned_id": prevID,
		})
	}
	msg.Pinned = true
	return msg, nil
}

func (s *ChatService) UnpinMessage(tripID, userID string) error {
	if _, err := s.requireMember(tripID, userID); err != nil {
		return err
	}
	if err := s.store.UnpinMessage(tripID); err != nil {
		return err
	}
	s.rt.Publish(topicFor(tripID), realtime.EventMessageUnpinned, map[string]string{"trip_id": tripID})
	return nil
}

func (s *ChatService) PinnedMessage(tripID, userID string) (*store.Message, error) {
	if _, err := s.requireMember(tripID, userID); err != nil {
		return nil, err
	}
	return s.store.GetPinnedMessage(tripID)
}

// ToggleReaction adds or removes one user's reaction and returns the new
// grouped counts for the message.
func (s *ChatService) ToggleReaction(tripID, userID, messageID, reactionType string) ([]store.ReactionGroup, error) {
	member, err := s.requireMember(tripID, userID)
	if err != nil {
		return nil, err
	}
	msg, err := s.store.GetMessage(messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil || msg.TripID != tripID {
		return nil, store.ErrMessageNotFound
	}
	if msg.ChannelID != nil {
		if err := s.checkChannelAccess(tripID, *msg.ChannelID, member); err != nil {
			return nil, err
		}
	}

	if _, err := s.store.ToggleReaction(messageID, userID, reactionType); err != nil {
		return nil, err
	}
	groups, err := s.store.GetReactionGroups(messageID)
	if err != nil {
		return nil, err
	}
	s.rt.Publish(messageTopic(msg), realtime.EventReaction, map[string]interface{}{
		"message_id": messageID,
		"reactions":  groups,
	})
	return groups, nil
}

// CreateRoleChannel creates a permissioned sub-chat. Pro/Enterprise only;
// only organizers may create channels.
func (s *ChatService) CreateRoleChannel(tripID, userID, name, role string) (*store.RoleChannel, error) {
	member, err := s.requireMember(tripID, userID)
	if err != nil {
		return nil, err
	}
	if member.Role != "organizer" {
		return nil, ErrForbidden
	}
	trip, err := s.store.GetTrip(tripID)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, ErrTripNotFound
	}
	if trip.Tier != store.TierPro && trip.Tier != store.TierEnterprise {
		return nil, ErrTierRequired
	}
	return s.store.CreateRoleChannel(tripID, name, role, userID)
}

func (s *ChatService) ListRoleChannels(tripID, userID string) ([]store.RoleChannel, error) {
	member, err := s.requireMember(tripID, userID)
	if err != nil {
		return nil, err
	}
	return s.store.ListRoleChannels(tripID, member.Role)
}

// CreateBroadcast stores a broadcast; unscheduled ones are delivered
// immediately, scheduled ones are picked up by the scheduler when due.
func (s *ChatService) CreateBroadcast(ctx context.Context, tripID, userID, content, priority string, scheduledFor *time.Time) (*store.Broadcast, error) {
	member, err := s.requireMember(tripID, userID)
	if err != nil {
		return nil, err
	}
	if member.Role != "organizer" {
		return nil, ErrForbidden
	}
	if priority == "" {
		priority = store.PriorityNormal
	}
	if priority != store.PriorityNormal && priority != store.PriorityUrgent {
		return nil, fmt.Errorf("invalid priority %q", priority)
	}

	b := &store.Broadcast{
		TripID:       tripID,
		AuthorID:     userID,
		Content:      content,
		Priority:     priority,
		ScheduledFor: scheduledFor,
	}
	if err := s.store.CreateBroadcast(b); err != nil {
		return nil, err
	}
	if b.SentAt != nil {
		s.DeliverBroadcast(*b)
	}
	return b, nil
}

func (s *ChatService) ListBroadcasts(tripID, userID string) ([]store.Broadcast, error) {
	if _, err := s.requireMember(tripID, userID); err != nil {
		return nil, err
	}
	return s.store.ListBroadcasts(tripID)
}

// DeliverBroadcast publishes a sent broadcast and notifies the trip. Also
// called by the scheduler for broadcasts that just came due.
func (s *ChatService) DeliverBroadcast(b store.Broadcast) {
	s.ctxCache.Invalidate(b.TripID)
	s.rt.Publish(topicFor(b.TripID), realtime.EventBroadcast, b)

	category := notify.CategoryBroadcast
	if b.Priority == store.PriorityUrgent {
		category = notify.CategoryBroadcastUrgent
	}
	s.notifyAsync(notify.Event{
		TripID:   b.TripID,
		Category: category,
		ActorID:  b.AuthorID,
		Title:    "Broadcast from " + s.authorName(b.AuthorID),
		Body:     truncate(b.Content, 140),
		Data:     map[string]interface{}{"broadcast_id": b.ID, "priority": b.Priority},
	})
}

func (s *ChatService) requireMember(tripID, userID string) (*store.TripMember, error) {
	member, err := s.store.GetMember(tripID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify membership: %w", err)
	}
	if member == nil {
		return nil, ErrNotMember
	}
	return member, nil
}

func (s *ChatService) checkChannelAccess(tripID, channelID string, member *store.TripMember) error {
	channel, err := s.store.GetRoleChannel(channelID)
	if err != nil {
		return err
	}
	if channel == nil || channel.TripID != tripID {
		return ErrChannelNotFound
	}
	if member.Role != "organizer" && channel.Role != member.Role {
		return ErrForbidden
	}
	return nil
}

func (s *ChatService) notifyAsync(ev notify.Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.notifier.Dispatch(ctx, ev); err != nil {
			log.Printf("Failed to dispatch %s notification for trip %s: %v", ev.Category, ev.TripID, err)
		}
	}()
}

func (s *ChatService) authorName(userID string) string {
	user, err := s.store.GetUserByID(userID)
	if err != nil || user == nil {
		return "A trip member"
	}
	return user.DisplayName
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max - 3
	// Back up to a rune boundary so the cut never splits a multi-byte rune.
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
