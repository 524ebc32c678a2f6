package repository

import (
	"context"
	"errors"
	"fmt"
	"math"

	"stock-forecast/config"
	"stock-forecast/internal/dto"
	"stock-forecast/pkg/httpclient"
	"stock-forecast/pkg/logger"
)

var ErrInsufficientHistory = errors.New("not enough price history")

type ForecastEngine interface {
	// Predict returns the next-day closing price for the given close series.
	Predict(ctx context.Context, closes []float64) (float64, error)
}

// modelServerForecastEngine calls a model server speaking the
// `/v1/models/{name}:predict` REST format. The model expects the last
// `window` closes scaled to [0,1] with the min/max of the whole series.
type modelServerForecastEngine struct {
	httpClient httpclient.HTTPClient
	cfg        *config.Config
	logger     *logger.Logger
}

func NewForecastEngine(cfg *config.Config, log *logger.Logger) ForecastEngine {
	return newModelServerForecastEngine(cfg, log,
		httpclient.New(cfg.Forecast.BaseURL, cfg.Forecast.Timeout, httpclient.WithBearerToken(cfg.Forecast.APIKey)))
}

func newModelServerForecastEngine(cfg *config.Config, log *logger.Logger, client httpclient.HTTPClient) *modelServerForecastEngine {
	return &modelServerForecastEngine{
		httpClient: client,
		cfg:        cfg,
		logger:     log,
	}
}

type minMaxScaler struct {
	min, max float64
}

func fitMinMax(values []float64) minMaxScaler {
	s := minMaxScaler{min: math.Inf(1), max: math.Inf(-1)}
	for _, v := range values {
		s.min = math.Min(s.min, v)
		s.max = math.Max(s.max, v)
	}
	return s
}

func (s minMaxScaler) transform(v float64) float64 {
	if s.max == s.min {
		return 0
	}
	return (v - s.min) / (s.max - s.min)
}

func (s minMaxScaler) inverse(v float64) float64 {
	return v*(s.max-s.min) + s.min
}

func (e *modelServerForecastEngine) Predict(ctx context.Context, closes []float64) (float64, error) {
	window := e.cfg.Forecast.Window
	if len(closes) < window {
		return 0, fmt.Errorf("%w: need %d closes, got %d", ErrInsufficientHistory, window, len(closes))
	}

	scaler := fitMinMax(closes)
	instance := make([][]float64, 0, window)
	for _, c := range closes[len(closes)-window:] {
		instance = append(instance, []float64{scaler.transform(c)})
	}

	endpoint := fmt.Sprintf("/v1/models/%s:predict", e.cfg.Forecast.ModelName)
	body := dto.ForecastEngineRequest{Instances: [][][]float64{instance}}

	var out dto.ForecastEngineResponse
	resp, err := e.httpClient.Post(ctx, endpoint, body, nil, &out)
	if err != nil {
		return 0, fmt.Errorf("forecast engine request failed: %w", err)
	}

	if !resp.OK() {
		e.logger.ErrorContext(ctx, "Forecast engine returned Non-OK status",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("body", resp.Snippet(512)))
		return 0, fmt.Errorf("forecast engine returned status: %d", resp.StatusCode)
	}

	if out.Error != "" {
		return 0, fmt.Errorf("forecast engine error: %s", out.Error)
	}
	if len(out.Predictions) == 0 || len(out.Predictions[0]) == 0 {
		return 0, errors.New("forecast engine returned no prediction")
	}

	predicted := scaler.inverse(out.Predictions[0][0])
	if math.IsNaN(predicted) || math.IsInf(predicted, 0) {
		return 0, errors.New("forecast engine returned a non-finite prediction")
	}
	return predicted, nil
}
