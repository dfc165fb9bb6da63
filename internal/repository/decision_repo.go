package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/campus-connect/internal/db"
	"github.com/oggyb/campus-connect/internal/utils/pagination"
)

// DecisionRepository provides data access methods for the user_likes table.
// It encapsulates all queries related to likes between users.
type DecisionRepository struct {
	db *gorm.DB
}

// NewDecisionRepository creates a new repository bound to the given DB connection.
func NewDecisionRepository(database *gorm.DB) *DecisionRepository {
	return &DecisionRepository{db: database}
}

// CreateLike inserts a like from d.LikerID to d.LikedID if none exists yet.
//
// Behavior:
//   - Composite PK + ON CONFLICT DO NOTHING: a second insert for the same
//     directed pair is a no-op, never an error.
//   - Returns created=false when the row already existed; the caller should
//     read the stored row back with FindLike.
//
// Example:
//
//	created, err := repo.CreateLike(ctx, &db.Decision{LikerID: a, LikedID: b})
func (r *DecisionRepository) CreateLike(ctx context.Context, d *db.Decision) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "liker_id"}, {Name: "liked_id"}},
			DoNothing: true,
		}).
		Create(d)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FindLike returns the stored like from liker to liked, or nil if there is none.
func (r *DecisionRepository) FindLike(ctx context.Context, likerID, likedID string) (*db.Decision, error) {
	var d db.Decision
	err := r.db.WithContext(ctx).
		Where("liker_id = ? AND liked_id = ?", likerID, likedID).
		Take(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// HasLiked checks whether liker has liked (or super liked) liked.
//
// Used for the reciprocal-edge check in match reconciliation.
//
// Example:
//
//	repo.HasLiked(ctx, b, a) // -> true if b already liked a
func (r *DecisionRepository) HasLiked(ctx context.Context, likerID, likedID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Decision{}).
		Where("liker_id = ? AND liked_id = ?", likerID, likedID).
		Count(&count).Error
	return count > 0, err
}

// ListByLiker returns every like issued by likerID. This is the
// "decisionsByViewer" input of discovery.
func (r *DecisionRepository) ListByLiker(ctx context.Context, likerID string) ([]db.Decision, error) {
	var decisions []db.Decision
	err := r.db.WithContext(ctx).
		Where("liker_id = ?", likerID).
		Find(&decisions).Error
	return decisions, err
}

// GetLikers returns the users who liked the given recipient.
//
// Behavior:
//   - Ordered by created_at DESC, liker_id DESC.
//   - Supports cursor-based pagination via paginationToken.
//
// Example:
//
//	repo.GetLikers(ctx, "u-42", nil, 20) // first 20 people who liked u-42
func (r *DecisionRepository) GetLikers(
	ctx context.Context,
	recipientID string,
	paginationToken *string,
	limit int,
) ([]db.Decision, *string, error) {
	query := r.db.WithContext(ctx).
		Table("user_likes d").
		Where("d.liked_id = ?", recipientID)

	return r.page(query, paginationToken, limit)
}

// GetNewLikers returns users who liked the recipient but have not been liked back.
//
// Behavior:
//   - Excludes mutual likes (those are already matches).
//   - Ordered by created_at DESC, liker_id DESC with cursor pagination.
func (r *DecisionRepository) GetNewLikers(
	ctx context.Context,
	recipientID string,
	paginationToken *string,
	limit int,
) ([]db.Decision, *string, error) {
	// subquery to exclude mutual likes
	subQuery := r.db.
		Table("user_likes").
		Select("1").
		Where("liker_id = d.liked_id AND liked_id = d.liker_id")

	query := r.db.WithContext(ctx).
		Table("user_likes d").
		Where("d.liked_id = ? AND NOT EXISTS (?)", recipientID, subQuery)

	return r.page(query, paginationToken, limit)
}

// CountLikers returns how many users liked the given recipient.
// Used in conjunction with the Redis cache (DB is fallback).
func (r *DecisionRepository) CountLikers(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Decision{}).
		Where("liked_id = ?", recipientID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DecisionRepository) page(query *gorm.DB, paginationToken *string, limit int) ([]db.Decision, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	if !cursor.IsZero() {
		ts := time.UnixMilli(cursor.CreatedUnix).UTC()
		query = query.Where(
			"(d.created_at < ? OR (d.created_at = ? AND d.liker_id < ?))",
			ts, ts, cursor.LikerID,
		)
	}

	var decisions []db.Decision
	if err := query.
		Order("d.created_at DESC, d.liker_id DESC").
		Limit(limit + 1).
		Find(&decisions).Error; err != nil {
		return nil, nil, err
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(decisions) > limit {
		last := decisions[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			LikerID:     last.LikerID,
			CreatedUnix: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		decisions = decisions[:limit]
	}

	return decisions, nextToken, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
