package repository

import (
	"context"
	"errors"
	"time"

	"stock-forecast/internal/model"
	"stock-forecast/pkg/utils"

	"gorm.io/gorm"
)

type ChatLinkTokenRepository interface {
	Create(ctx context.Context, token *model.ChatLinkToken, opts ...utils.DBOption) error
	Get(ctx context.Context, token string, opts ...utils.DBOption) (*model.ChatLinkToken, error)
	// MarkUsed flags an unused token as redeemed. It reports false when the
	// token was already used.
	MarkUsed(ctx context.Context, token string, usedAt time.Time, opts ...utils.DBOption) (bool, error)
	DeleteExpired(ctx context.Context, before time.Time, opts ...utils.DBOption) (int64, error)
}

type chatLinkTokenRepository struct {
	db *gorm.DB
}

func NewChatLinkTokenRepository(db *gorm.DB) ChatLinkTokenRepository {
	return &chatLinkTokenRepository{db: db}
}

func (r *chatLinkTokenRepository) Create(ctx context.Context, token *model.ChatLinkToken, opts ...utils.DBOption) error {
	tx := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	token.ExpiresAt = token.ExpiresAt.UTC()
	return tx.Omit("User").Create(token).Error
}

// Get returns nil, nil for an unknown token.
func (r *chatLinkTokenRepository) Get(ctx context.Context, token string, opts ...utils.DBOption) (*model.ChatLinkToken, error) {
	var t model.ChatLinkToken
	tx := utils.ApplyOptions(r.db.WithContext(ctx), opts...)

	if err := tx.Where("token = ?", token).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *chatLinkTokenRepository) MarkUsed(ctx context.Context, token string, usedAt time.Time, opts ...utils.DBOption) (bool, error) {
	tx := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	res := tx.Model(&model.ChatLinkToken{}).
		Where("token = ? AND used_at IS NULL", token).
		Update("used_at", usedAt.UTC())
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DeleteExpired removes tokens past their expiry and tokens already redeemed.
func (r *chatLinkTokenRepository) DeleteExpired(ctx context.Context, before time.Time, opts ...utils.DBOption) (int64, error) {
	tx := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	res := tx.Where("expires_at < ? OR used_at IS NOT NULL", before.UTC()).Delete(&model.ChatLinkToken{})
	return res.RowsAffected, res.Error
}
