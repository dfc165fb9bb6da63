package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/campus-connect/internal/db"
)

// ConversationRepository stores conversations, one per match.
type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(database *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: database}
}

// CreateIfAbsent inserts the conversation for a canonical pair unless one exists.
// Same semantics as MatchRepository.CreateIfAbsent.
func (r *ConversationRepository) CreateIfAbsent(ctx context.Context, matchID, user1ID, user2ID string) (*db.Conversation, bool, error) {
	c := db.Conversation{MatchID: matchID, User1ID: user1ID, User2ID: user2ID}
	res := r.db.WithContext(ctx).
		// no conflict target: both the pair and match_id are unique
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&c)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return &c, true, nil
	}

	var existing db.Conversation
	err := r.db.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ?", user1ID, user2ID).
		Take(&existing).Error
	if err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

// Get returns a conversation by id; gorm.ErrRecordNotFound if absent.
func (r *ConversationRepository) Get(ctx context.Context, id string) (*db.Conversation, error) {
	var c db.Conversation
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListForUser returns the user's conversations ordered by updated_at DESC.
func (r *ConversationRepository) ListForUser(ctx context.Context, userID string) ([]db.Conversation, error) {
	var convs []db.Conversation
	err := r.db.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("updated_at DESC, id DESC").
		Find(&convs).Error
	return convs, err
}

// Touch bumps updated_at; called on every message send.
func (r *ConversationRepository) Touch(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&db.Conversation{}).
		Where("id = ?", id).
		UpdateColumn("updated_at", at).Error
}
