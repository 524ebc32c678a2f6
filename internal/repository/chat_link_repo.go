package repository

import (
	"context"
	"errors"

	"stock-forecast/internal/model"
	"stock-forecast/pkg/utils"

	"gorm.io/gorm"
)

type ChatLinkRepository interface {
	GetByChatID(ctx context.Context, chatID int64, opts ...utils.DBOption) (*model.ChatLink, error)
	GetByUserID(ctx context.Context, userID uint, opts ...utils.DBOption) (*model.ChatLink, error)
	Create(ctx context.Context, link *model.ChatLink, opts ...utils.DBOption) error
	Update(ctx context.Context, link *model.ChatLink, opts ...utils.DBOption) error
	Delete(ctx context.Context, id uint, opts ...utils.DBOption) error
}

type chatLinkRepository struct {
	db *gorm.DB
}

func NewChatLinkRepository(db *gorm.DB) ChatLinkRepository {
	return &chatLinkRepository{db: db}
}

// GetByChatID returns nil, nil when the chat is not linked.
func (r *chatLinkRepository) GetByChatID(ctx context.Context, chatID int64, opts ...utils.DBOption) (*model.ChatLink, error) {
	var link model.ChatLink
	tx := utils.ApplyOptions(r.db.WithContext(ctx), opts...)

	if err := tx.Preload("User").Where("chat_id = ?", chatID).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// GetByUserID returns nil, nil when the user has no chat.
func (r *chatLinkRepository) GetByUserID(ctx context.Context, userID uint, opts ...utils.DBOption) (*model.ChatLink, error) {
	var link model.ChatLink
	tx := utils.ApplyOptions(r.db.WithContext(ctx), opts...)

	if err := tx.Where("user_id = ?", userID).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

func (r *chatLinkRepository) Create(ctx context.Context, link *model.ChatLink, opts ...utils.DBOption) error {
	tx := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	return tx.Omit("User").Create(link).Error
}

func (r *chatLinkRepository) Update(ctx context.Context, link *model.ChatLink, opts ...utils.DBOption) error {
	tx := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	return tx.Model(&model.ChatLink{}).
		Where("id = ?", link.ID).
		Updates(map[string]interface{}{
			"user_id":      link.UserID,
			"display_name": link.DisplayName,
		}).Error
}

func (r *chatLinkRepository) Delete(ctx context.Context, id uint, opts ...utils.DBOption) error {
	tx := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	return tx.Delete(&model.ChatLink{}, id).Error
}
