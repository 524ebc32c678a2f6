package repository

import (
	"context"
	"errors"
	"time"

	"stock-forecast/internal/model"
	"stock-forecast/pkg/utils"

	"gorm.io/gorm"
)

type PredictionRepository interface {
	Create(ctx context.Context, prediction *model.Prediction, opts ...utils.DBOption) error
	// CountSince counts the user's records created at or after since.
	CountSince(ctx context.Context, userID uint, since time.Time, opts ...utils.DBOption) (int64, error)
	List(ctx context.Context, param model.GetPredictionsParam, opts ...utils.DBOption) ([]model.Prediction, error)
	Latest(ctx context.Context, userID uint, opts ...utils.DBOption) (*model.Prediction, error)
}

type predictionRepository struct {
	db *gorm.DB
}

func NewPredictionRepository(db *gorm.DB) PredictionRepository {
	return &predictionRepository{db: db}
}

// Create stores created_at in UTC so range queries compare the same way on
// every dialect.
func (r *predictionRepository) Create(ctx context.Context, prediction *model.Prediction, opts ...utils.DBOption) error {
	tx := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	if prediction.CreatedAt.IsZero() {
		prediction.CreatedAt = time.Now()
	}
	prediction.CreatedAt = prediction.CreatedAt.UTC()
	return tx.Omit("User").Create(prediction).Error
}

func (r *predictionRepository) CountSince(ctx context.Context, userID uint, since time.Time, opts ...utils.DBOption) (int64, error) {
	var count int64
	tx := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	err := tx.Model(&model.Prediction{}).
		Where("user_id = ? AND created_at >= ?", userID, since.UTC()).
		Count(&count).Error
	return count, err
}

func (r *predictionRepository) List(ctx context.Context, param model.GetPredictionsParam, opts ...utils.DBOption) ([]model.Prediction, error) {
	var predictions []model.Prediction
	tx := utils.ApplyOptions(r.db.WithContext(ctx), opts...)

	query := tx.Model(&model.Prediction{}).Where("user_id = ?", param.UserID)
	if param.Ticker != nil && *param.Ticker != "" {
		query = query.Where("ticker = ?", *param.Ticker)
	}
	if param.Limit != nil && *param.Limit > 0 {
		query = query.Limit(*param.Limit)
	}

	if err := query.Order("created_at DESC").Order("id DESC").Find(&predictions).Error; err != nil {
		return nil, err
	}
	return predictions, nil
}

// Latest returns nil, nil when the user has no records.
func (r *predictionRepository) Latest(ctx context.Context, userID uint, opts ...utils.DBOption) (*model.Prediction, error) {
	var prediction model.Prediction
	tx := utils.ApplyOptions(r.db.WithContext(ctx), opts...)

	err := tx.Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		First(&prediction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &prediction, nil
}
