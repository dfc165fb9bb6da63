package social

import (
	"context"

	"github.com/oggyb/campus-connect/internal/chat"
	"github.com/oggyb/campus-connect/internal/matching"
	"github.com/oggyb/campus-connect/internal/session"
)

// RefreshMatches reloads the session's matches from the store.
func (s *Service) RefreshMatches(ctx context.Context, sess *session.Session) error {
	ms, err := s.matches.ListForUser(ctx, sess.UserID)
	if err != nil {
		return &matching.PersistenceError{Op: "list matches", Err: err}
	}
	sess.SetMatches(ms)
	return nil
}

// RefreshConversations rebuilds every conversation view of the session with
// one query for conversations and one for their messages.
func (s *Service) RefreshConversations(ctx context.Context, sess *session.Session) error {
	convs, err := s.conversations.ListForUser(ctx, sess.UserID)
	if err != nil {
		return &matching.PersistenceError{Op: "list conversations", Err: err}
	}
	ids := make([]string, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
	}
	byConv, err := s.messages.ListByConversations(ctx, ids)
	if err != nil {
		return &matching.PersistenceError{Op: "list messages", Err: err}
	}

	views := make([]chat.View, 0, len(convs))
	for _, c := range convs {
		views = append(views, chat.Project(c, byConv[c.ID], sess.UserID))
	}
	sess.SetConversations(views)
	return nil
}

// RefreshConversation rebuilds a single conversation view.
func (s *Service) RefreshConversation(ctx context.Context, sess *session.Session, conversationID string) error {
	conv, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return &matching.PersistenceError{Op: "get conversation", Err: err}
	}
	if !conv.HasUser(sess.UserID) {
		return nil
	}
	msgs, err := s.messages.ListByConversation(ctx, conv.ID)
	if err != nil {
		return &matching.PersistenceError{Op: "list messages", Err: err}
	}
	sess.UpsertConversation(chat.Project(*conv, msgs, sess.UserID))
	return nil
}
