package repository

import (
	"context"
	"fmt"
	"time"

	"stock-forecast/internal/model"
	"stock-forecast/pkg/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubscriptionRepository interface {
	// GetOrCreate returns the user's subscription, inserting a free one when absent.
	GetOrCreate(ctx context.Context, userID uint, opts ...utils.DBOption) (*model.Subscription, error)
	// LockByUserID reads the subscription row with a row lock; it must run in a transaction.
	LockByUserID(ctx context.Context, userID uint, opts ...utils.DBOption) (*model.Subscription, error)
	MarkPaid(ctx context.Context, userID uint, paidAt time.Time, opts ...utils.DBOption) error
	CountByUserID(ctx context.Context, userID uint, opts ...utils.DBOption) (int64, error)
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) GetOrCreate(ctx context.Context, userID uint, opts ...utils.DBOption) (*model.Subscription, error) {
	tx := utils.ApplyOptions(r.db.WithContext(ctx), opts...)

	sub := model.Subscription{UserID: userID}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&sub).Error
	if err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	var existing model.Subscription
	if err := tx.Where("user_id = ?", userID).First(&existing).Error; err != nil {
		return nil, fmt.Errorf("find subscription: %w", err)
	}
	return &existing, nil
}

func (r *subscriptionRepository) LockByUserID(ctx context.Context, userID uint, opts ...utils.DBOption) (*model.Subscription, error) {
	opts = append(opts, utils.WithLockForUpdate())
	tx := utils.ApplyOptions(r.db.WithContext(ctx), opts...)

	var sub model.Subscription
	if err := tx.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// MarkPaid upserts the paid flag. The first paid_at is kept on repeats.
func (r *subscriptionRepository) MarkPaid(ctx context.Context, userID uint, paidAt time.Time, opts ...utils.DBOption) error {
	tx := utils.ApplyOptions(r.db.WithContext(ctx), opts...)

	sub := model.Subscription{UserID: userID, IsPaid: true, PaidAt: &paidAt}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"is_paid":    true,
			"paid_at":    gorm.Expr("COALESCE(subscriptions.paid_at, ?)", paidAt),
			"updated_at": paidAt,
		}),
	}).Create(&sub).Error
}

func (r *subscriptionRepository) CountByUserID(ctx context.Context, userID uint, opts ...utils.DBOption) (int64, error) {
	var count int64
	tx := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	err := tx.Model(&model.Subscription{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
