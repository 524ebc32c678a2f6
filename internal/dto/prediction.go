package dto

import "time"

type PredictionRequest struct {
	Ticker string `json:"ticker" form:"ticker"`
}

type ListPredictionsQuery struct {
	Ticker string `query:"ticker"`
}

// PredictionResult is what every entry point receives from a successful
// prediction request.
type PredictionResult struct {
	ID             uint      `json:"id"`
	Ticker         string    `json:"ticker"`
	PredictedPrice float64   `json:"predicted_price"`
	HistoryChart   string    `json:"history_chart"`
	ForecastChart  string    `json:"forecast_chart"`
	CreatedAt      time.Time `json:"created_at"`
}

type PredictionResponse struct {
	ID               uint                   `json:"id"`
	Ticker           string                 `json:"ticker"`
	PredictedPrice   float64                `json:"predicted_price"`
	Metrics          map[string]interface{} `json:"metrics"`
	HistoryChartURL  string                 `json:"history_chart_url"`
	ForecastChartURL string                 `json:"forecast_chart_url"`
	CreatedAt        time.Time              `json:"created_at"`
}

type QuotaUsage struct {
	IsPaid    bool `json:"is_paid"`
	UsedToday int  `json:"used_today"`
	// Limit and Remaining are -1 for paid users.
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}
