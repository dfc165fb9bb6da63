package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/campus-connect/internal/db"
)

// MatchRepository stores matches keyed by their canonical (user1_id, user2_id) pair.
type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// CreateIfAbsent inserts the match for the canonical pair unless one exists.
//
// Behavior:
//   - user1ID must already be the smaller id (see db.CanonicalPair).
//   - A concurrent or repeated insert for the same pair is a no-op; the stored
//     row is returned with created=false.
func (r *MatchRepository) CreateIfAbsent(ctx context.Context, user1ID, user2ID string) (*db.Match, bool, error) {
	m := db.Match{User1ID: user1ID, User2ID: user2ID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user1_id"}, {Name: "user2_id"}},
			DoNothing: true,
		}).
		Create(&m)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return &m, true, nil
	}

	existing, err := r.GetByPair(ctx, user1ID, user2ID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetByPair returns the match for a canonical pair; gorm.ErrRecordNotFound if absent.
func (r *MatchRepository) GetByPair(ctx context.Context, user1ID, user2ID string) (*db.Match, error) {
	var m db.Match
	err := r.db.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ?", user1ID, user2ID).
		Take(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListForUser returns every match involving userID, newest first.
func (r *MatchRepository) ListForUser(ctx context.Context, userID string) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&matches).Error
	return matches, err
}
