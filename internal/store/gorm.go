package store

import (
	"context"
	"fmt"

	"github.com/buildsite-dev/buildsite/internal/models"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// counterRetries bounds the retry loop around the counter transaction when it
// aborts under contention.
const counterRetries = 5

// GormStore implements the trigger pipeline's document-store contract on top
// of Postgres via gorm.
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

func New(db *gorm.DB, logger *zap.Logger) *GormStore {
	return &GormStore{db: db, logger: logger}
}

// RegisterSignup runs the counter transaction: seed the singleton row if it
// is absent, lock it, classify first-or-not from the current count and write
// the incremented count. The row lock serializes racing signups so exactly
// one of them observes a zero count.
func (s *GormStore) RegisterSignup(ctx context.Context) (bool, error) {
	var isFirstUser bool

	attempt := func() error {
		isFirstUser = false

		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			seed := models.SystemMetadata{Key: models.MetadataKey, UserCount: 0}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
				return err
			}

			var meta models.SystemMetadata
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("key = ?", models.MetadataKey).
				First(&meta).Error; err != nil {
				return err
			}

			isFirstUser = meta.UserCount == 0

			return tx.Model(&models.SystemMetadata{}).
				Where("key = ?", models.MetadataKey).
				Update("user_count", meta.UserCount+1).Error
		})
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), counterRetries)
	if err := backoff.Retry(attempt, backoff.WithContext(bo, ctx)); err != nil {
		return false, fmt.Errorf("counter transaction: %w", err)
	}

	return isFirstUser, nil
}

// SaveProfile merge-writes the profile: an insert on first contact, otherwise
// an update of the signup-owned columns that leaves created_at and any other
// pre-existing fields alone.
func (s *GormStore) SaveProfile(ctx context.Context, profile *models.UserProfile) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "uid"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"first_name",
			"last_name",
			"email",
			"role",
			"status",
			"assigned_modules",
			"assigned_projects",
			"updated_at",
		}),
	}).Create(profile).Error
}

// RemoveProfile deletes the profile and decrements the counter in a single
// transaction. The decrement is conditional on a positive count, so the
// counter never goes negative; an attempted underflow is logged rather than
// silently absorbed.
func (s *GormStore) RemoveProfile(ctx context.Context, uid string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("uid = ?", uid).Delete(&models.UserProfile{}).Error; err != nil {
			return err
		}

		res := tx.Model(&models.SystemMetadata{}).
			Where("key = ? AND user_count > 0", models.MetadataKey).
			Update("user_count", gorm.Expr("user_count - 1"))

		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			s.logger.Warn("user counter decrement skipped, count already zero",
				zap.String("uid", uid))
		}

		return nil
	})
}

// Profiles lists every user profile.
func (s *GormStore) Profiles(ctx context.Context) ([]models.UserProfile, error) {
	var profiles []models.UserProfile
	if err := s.db.WithContext(ctx).Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// Profile fetches one profile by UID.
func (s *GormStore) Profile(ctx context.Context, uid string) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := s.db.WithContext(ctx).Where("uid = ?", uid).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}
