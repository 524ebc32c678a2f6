package dto

import "time"

type ChartRequest struct {
	Ticker      string
	Series      []StockOHLCV
	Predicted   float64
	Window      int
	GeneratedAt time.Time
}

// ChartArtifacts holds locations relative to the chart output directory.
type ChartArtifacts struct {
	HistoryPath  string `json:"history_path"`
	ForecastPath string `json:"forecast_path"`
}
