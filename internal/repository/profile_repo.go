package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/oggyb/campus-connect/internal/db"
)

// ErrEmailTaken is returned when provisioning an email that already has an account.
var ErrEmailTaken = errors.New("email already registered")

// ProfileRepository provides data access for accounts and profiles.
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// Provision creates the account and its empty profile in one transaction.
func (r *ProfileRepository) Provision(ctx context.Context, account *db.Account, profile *db.Profile) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&db.Account{}).Where("email = ?", account.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}
		if err := tx.Create(account).Error; err != nil {
			return err
		}
		return tx.Create(profile).Error
	})
}

// Get returns a single profile; gorm.ErrRecordNotFound if absent.
func (r *ProfileRepository) Get(ctx context.Context, id string) (*db.Profile, error) {
	var p db.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Update writes the selected columns of p to the owner's row only.
// Zero values in selected columns are written too.
func (r *ProfileRepository) Update(ctx context.Context, p *db.Profile, columns []string) (*db.Profile, error) {
	if len(columns) == 0 {
		return r.Get(ctx, p.ID)
	}
	res := r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("id = ?", p.ID).
		Select(columns).
		Updates(p)
	if res.Error != nil {
		return nil, res.Error
	}
	return r.Get(ctx, p.ID)
}

// ListCandidates returns every profile other than the viewer's, newest first.
// Eligibility is decided by the caller.
func (r *ProfileRepository) ListCandidates(ctx context.Context, viewerID string) ([]db.Profile, error) {
	var profiles []db.Profile
	err := r.db.WithContext(ctx).
		Where("id <> ?", viewerID).
		Order("created_at DESC").
		Find(&profiles).Error
	return profiles, err
}

// ListByIDs resolves a set of profiles with a single in-list query.
func (r *ProfileRepository) ListByIDs(ctx context.Context, ids []string) (map[string]db.Profile, error) {
	out := make(map[string]db.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var profiles []db.Profile
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	for _, p := range profiles {
		out[p.ID] = p
	}
	return out, nil
}
