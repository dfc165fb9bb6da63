package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/campus-connect/internal/db"
)

// MessageRepository stores chat messages.
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

func (r *MessageRepository) Create(ctx context.Context, m *db.Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// ListByConversation returns the conversation's messages oldest first.
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]db.Message, error) {
	var msgs []db.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	return msgs, err
}

// ListByConversations loads messages for many conversations in one query,
// grouped by conversation id.
func (r *MessageRepository) ListByConversations(ctx context.Context, conversationIDs []string) (map[string][]db.Message, error) {
	out := make(map[string][]db.Message, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return out, nil
	}
	var msgs []db.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id IN ?", conversationIDs).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		out[m.ConversationID] = append(out[m.ConversationID], m)
	}
	return out, nil
}

// MarkRead flips every unread message in the conversation that was not sent
// by viewerID. It never sets is_read back to false.
func (r *MessageRepository) MarkRead(ctx context.Context, conversationID, viewerID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, viewerID, false).
		UpdateColumn("is_read", true)
	return res.RowsAffected, res.Error
}
