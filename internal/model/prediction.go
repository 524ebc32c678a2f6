package model

import (
	"time"

	"gorm.io/datatypes"
)

// Prediction is written once per successful prediction request and never
// updated afterwards.
type Prediction struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	UserID            uint           `gorm:"not null;index:idx_predictions_user_created,priority:1;index:idx_predictions_user_ticker,priority:1" json:"user_id"`
	Ticker            string         `gorm:"type:varchar(16);not null;index:idx_predictions_user_ticker,priority:2" json:"ticker"`
	PredictedPrice    float64        `gorm:"not null" json:"predicted_price"`
	Metrics           datatypes.JSON `gorm:"not null" json:"metrics"`
	HistoryChartPath  string         `gorm:"type:varchar(255);not null" json:"history_chart_path"`
	ForecastChartPath string         `gorm:"type:varchar(255);not null" json:"forecast_chart_path"`
	CreatedAt         time.Time      `gorm:"not null;index:idx_predictions_user_created,priority:2" json:"created_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Prediction) TableName() string {
	return "predictions"
}

type GetPredictionsParam struct {
	UserID uint
	Ticker *string
	Limit  *int
}
