package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/oggyb/campus-connect/internal/db"
	"github.com/oggyb/campus-connect/internal/matching"
)

// MaxMessageLength is counted in characters after trimming.
const MaxMessageLength = 2000

var (
	ErrNotParticipant       = errors.New("user is not a participant of this conversation")
	ErrEmptyMessage         = errors.New("message content is empty")
	ErrMessageTooLong       = errors.New("message content is too long")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMissingConversation  = errors.New("conversation id is required")
)

type ConversationStore interface {
	Get(ctx context.Context, id string) (*db.Conversation, error)
	Touch(ctx context.Context, id string, at time.Time) error
}

type MessageStore interface {
	Create(ctx context.Context, m *db.Message) error
	ListByConversation(ctx context.Context, conversationID string) ([]db.Message, error)
	MarkRead(ctx context.Context, conversationID, viewerID string) (int64, error)
}

// MessageFeed announces inserted messages.
type MessageFeed interface {
	MessageCreated(ctx context.Context, m db.Message) error
}

// Messenger sends messages and serves the message list of a conversation.
type Messenger struct {
	conversations ConversationStore
	messages      MessageStore
	feed          MessageFeed
	log           *slog.Logger
}

func NewMessenger(conversations ConversationStore, messages MessageStore, feed MessageFeed, log *slog.Logger) *Messenger {
	if log == nil {
		log = slog.Default()
	}
	return &Messenger{conversations: conversations, messages: messages, feed: feed, log: log}
}

// Send stores a message from senderID and bumps the conversation's
// updated_at to the message time.
func (m *Messenger) Send(ctx context.Context, senderID, conversationID, content string) (*db.Message, error) {
	content = strings.TrimSpace(content)
	switch {
	case conversationID == "":
		return nil, ErrMissingConversation
	case content == "":
		return nil, ErrEmptyMessage
	case utf8.RuneCountInString(content) > MaxMessageLength:
		return nil, ErrMessageTooLong
	}

	conv, err := m.participantOf(ctx, senderID, conversationID)
	if err != nil {
		return nil, err
	}

	msg := &db.Message{ConversationID: conv.ID, SenderID: senderID, Content: content}
	if err := m.messages.Create(ctx, msg); err != nil {
		return nil, &matching.PersistenceError{Op: "create message", Err: err}
	}

	if err := m.conversations.Touch(ctx, conv.ID, msg.CreatedAt); err != nil {
		// the message is stored; list ordering catches up on the next send
		m.log.Warn("failed to bump conversation", "conversation_id", conv.ID, "err", err)
	}

	if m.feed != nil {
		if err := m.feed.MessageCreated(ctx, *msg); err != nil {
			m.log.Warn("failed to publish message", "message_id", msg.ID, "err", err)
		}
	}
	return msg, nil
}

// Open returns the conversation's messages oldest first and marks the
// counterpart's messages read. It is the only place read flags change.
func (m *Messenger) Open(ctx context.Context, viewerID, conversationID string) (*db.Conversation, []db.Message, error) {
	if conversationID == "" {
		return nil, nil, ErrMissingConversation
	}
	conv, err := m.participantOf(ctx, viewerID, conversationID)
	if err != nil {
		return nil, nil, err
	}

	msgs, err := m.messages.ListByConversation(ctx, conv.ID)
	if err != nil {
		return nil, nil, &matching.PersistenceError{Op: "list messages", Err: err}
	}

	if _, err := m.messages.MarkRead(ctx, conv.ID, viewerID); err != nil {
		return nil, nil, &matching.PersistenceError{Op: "mark read", Err: err}
	}
	for i := range msgs {
		if msgs[i].SenderID != viewerID {
			msgs[i].IsRead = true
		}
	}
	return conv, msgs, nil
}

func (m *Messenger) participantOf(ctx context.Context, userID, conversationID string) (*db.Conversation, error) {
	conv, err := m.conversations.Get(ctx, conversationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, &matching.PersistenceError{Op: "get conversation", Err: err}
	}
	if !conv.HasUser(userID) {
		return nil, ErrNotParticipant
	}
	return conv, nil
}
