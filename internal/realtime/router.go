package realtime

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oggyb/campus-connect/internal/db"
	"github.com/oggyb/campus-connect/internal/matching"
	"github.com/oggyb/campus-connect/internal/session"
)

// Refresher reloads session state from the store.
type Refresher interface {
	RefreshMatches(ctx context.Context, s *session.Session) error
	RefreshConversations(ctx context.Context, s *session.Session) error
	RefreshConversation(ctx context.Context, s *session.Session, conversationID string) error
}

// ConversationLookup resolves the participants of a message's conversation.
type ConversationLookup interface {
	Get(ctx context.Context, id string) (*db.Conversation, error)
}

// Router applies change-feed events to live sessions. Every handler is
// idempotent: replays and out-of-order delivery converge on the same state
// the optimistic RPC path produces.
type Router struct {
	sessions      *session.Registry
	notifier      *session.Notifier
	conversations ConversationLookup
	refresh       Refresher
	log           *slog.Logger
}

func NewRouter(sessions *session.Registry, notifier *session.Notifier, conversations ConversationLookup, refresh Refresher, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		sessions:      sessions,
		notifier:      notifier,
		conversations: conversations,
		refresh:       refresh,
		log:           log.With("component", "realtime_router"),
	}
}

// Handle is the bus Handler.
func (r *Router) Handle(ctx context.Context, payload []byte) error {
	ev, err := Parse(payload)
	if err != nil {
		r.log.Error("bad realtime payload", "err", err)
		return err
	}
	return r.Dispatch(ctx, ev)
}

// Dispatch routes a decoded event. Non-insert events and unknown tables are
// ignored.
func (r *Router) Dispatch(ctx context.Context, ev Event) error {
	if ev.Type != "" && ev.Type != TypeInsert {
		return nil
	}

	var err error
	switch ev.Table {
	case TableLikes:
		err = r.onLike(ctx, ev)
	case TableMatches:
		err = r.onMatch(ctx, ev)
	case TableMessages:
		err = r.onMessage(ctx, ev)
	default:
		r.log.Debug("ignoring realtime table", "table", ev.Table)
		return nil
	}
	if errors.Is(err, ErrMalformedEvent) {
		r.log.Error("bad realtime record", "table", ev.Table, "err", err)
	}
	return err
}

// onLike only informs the liked user; it never creates a match.
func (r *Router) onLike(ctx context.Context, ev Event) error {
	d, err := ev.Decision()
	if err != nil {
		return err
	}
	title := "Someone liked you!"
	if d.IsSuperLike {
		title = "Someone super liked you!"
	}
	r.notifier.Notify(ctx, d.LikedID, session.Notification{
		Kind:  session.NotifyLike,
		Key:   "like:" + d.LikerID + ":" + d.LikedID,
		Title: title,
		At:    ev.CommitTimestamp,
	})
	return nil
}

func (r *Router) onMatch(ctx context.Context, ev Event) error {
	m, err := ev.Match()
	if err != nil {
		return err
	}
	key := matching.KeyOfMatch(m)

	var errs []error
	for _, userID := range []string{key.User1, key.User2} {
		s, ok := r.sessions.Lookup(userID)
		if !ok {
			continue
		}
		if !s.AddMatch(m) {
			// already applied by the optimistic path or an earlier delivery
			continue
		}
		if err := r.refresh.RefreshMatches(ctx, s); err != nil {
			errs = append(errs, err)
		}
		if err := r.refresh.RefreshConversations(ctx, s); err != nil {
			errs = append(errs, err)
		}
		r.notifier.Notify(ctx, userID, session.Notification{
			Kind:  session.NotifyMatch,
			Key:   "match:" + key.String(),
			Title: "It's a match!",
			At:    ev.CommitTimestamp,
		})
	}
	return errors.Join(errs...)
}

func (r *Router) onMessage(ctx context.Context, ev Event) error {
	m, err := ev.Message()
	if err != nil {
		return err
	}

	var errs []error
	for _, userID := range r.participants(ctx, m) {
		s, ok := r.sessions.Lookup(userID)
		if !ok {
			continue
		}
		open := s.OpenConversationID() == m.ConversationID
		if open && !s.AppendMessage(m) {
			// replay of a message already in the list
			continue
		}
		if err := r.refresh.RefreshConversation(ctx, s, m.ConversationID); err != nil {
			errs = append(errs, err)
		}
		if m.SenderID != userID && !open {
			r.notifier.Notify(ctx, userID, session.Notification{
				Kind:  session.NotifyMessage,
				Key:   "message:" + m.ID,
				Title: "New message",
				Body:  m.Content,
				At:    ev.CommitTimestamp,
			})
		}
	}
	return errors.Join(errs...)
}

// participants falls back to the sender alone when the conversation cannot
// be loaded.
func (r *Router) participants(ctx context.Context, m db.Message) []string {
	if r.conversations != nil {
		conv, err := r.conversations.Get(ctx, m.ConversationID)
		if err == nil {
			return []string{conv.User1ID, conv.User2ID}
		}
		r.log.Warn("conversation lookup failed", "conversation_id", m.ConversationID, "err", err)
	}
	return []string{m.SenderID}
}
