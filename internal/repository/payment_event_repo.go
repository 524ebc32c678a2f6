package repository

import (
	"context"

	"stock-forecast/internal/model"
	"stock-forecast/pkg/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentEventRepository interface {
	// Record stores the event and reports whether it was new.
	Record(ctx context.Context, event *model.PaymentEvent, opts ...utils.DBOption) (bool, error)
}

type paymentEventRepository struct {
	db *gorm.DB
}

func NewPaymentEventRepository(db *gorm.DB) PaymentEventRepository {
	return &paymentEventRepository{db: db}
}

func (r *paymentEventRepository) Record(ctx context.Context, event *model.PaymentEvent, opts ...utils.DBOption) (bool, error) {
	tx := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	res := tx.Omit("User").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(event)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
