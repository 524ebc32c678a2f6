package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"stock-forecast/config"
	"stock-forecast/internal/dto"
	"stock-forecast/internal/model"
	"stock-forecast/internal/repository"
	"stock-forecast/pkg/logger"
	"stock-forecast/pkg/utils"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PredictionService interface {
	RequestPrediction(ctx context.Context, userID uint, ticker string) (*dto.PredictionResult, error)
	// ListPredictions returns the user's records newest first. An empty ticker
	// means no filter; limit <= 0 means no limit.
	ListPredictions(ctx context.Context, userID uint, ticker string, limit int) ([]model.Prediction, error)
	LatestPrediction(ctx context.Context, userID uint) (*model.Prediction, error)
	Usage(ctx context.Context, userID uint) (*dto.QuotaUsage, error)
}

var tickerPattern = regexp.MustCompile(`^[A-Z0-9^][A-Z0-9.\-=^]*$`)

type predictionService struct {
	cfg              *config.Config
	log              *logger.Logger
	now              func() time.Time
	validate         *goValidator.Validate
	uow              repository.UnitOfWork
	subscriptionRepo repository.SubscriptionRepository
	predictionRepo   repository.PredictionRepository
	marketDataRepo   repository.MarketDataRepository
	forecastEngine   repository.ForecastEngine
	chartRenderer    repository.ChartRenderer
}

func NewPredictionService(
	cfg *config.Config,
	log *logger.Logger,
	now func() time.Time,
	uow repository.UnitOfWork,
	subscriptionRepo repository.SubscriptionRepository,
	predictionRepo repository.PredictionRepository,
	marketDataRepo repository.MarketDataRepository,
	forecastEngine repository.ForecastEngine,
	chartRenderer repository.ChartRenderer,
) PredictionService {
	return &predictionService{
		cfg:              cfg,
		log:              log,
		now:              now,
		validate:         goValidator.New(),
		uow:              uow,
		subscriptionRepo: subscriptionRepo,
		predictionRepo:   predictionRepo,
		marketDataRepo:   marketDataRepo,
		forecastEngine:   forecastEngine,
		chartRenderer:    chartRenderer,
	}
}

// NormalizeTicker trims and upper-cases raw input and checks it looks like
// an exchange symbol.
func NormalizeTicker(validate *goValidator.Validate, raw string) (string, error) {
	ticker := strings.ToUpper(strings.TrimSpace(raw))
	if err := validate.Var(ticker, "required,max=16"); err != nil || !tickerPattern.MatchString(ticker) {
		if ticker == "" {
			return "", newError(ErrValidation, "ticker is required")
		}
		return "", newError(ErrValidation, "invalid ticker %q", raw)
	}
	return ticker, nil
}

func roundPrice(price float64) float64 {
	return decimal.NewFromFloat(price).Round(2).InexactFloat64()
}

func (s *predictionService) dayStart(t time.Time) time.Time {
	return utils.StartOfDay(t, s.cfg.QuotaLocation())
}

func (s *predictionService) quotaExceeded() error {
	return newError(ErrQuotaExceeded, "daily limit of %d free predictions reached, subscribe for unlimited predictions", s.cfg.Quota.FreeDailyLimit)
}

func (s *predictionService) RequestPrediction(ctx context.Context, userID uint, rawTicker string) (*dto.PredictionResult, error) {
	ticker, err := NormalizeTicker(s.validate, rawTicker)
	if err != nil {
		return nil, err
	}
	log := s.log.FromContext(ctx).With(logger.UintField("user_id", userID), logger.StringField("ticker", ticker))

	sub, err := s.subscriptionRepo.GetOrCreate(ctx, userID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to resolve subscription", logger.ErrorField(err))
		return nil, errInternal
	}

	if !sub.IsPaid {
		used, err := s.predictionRepo.CountSince(ctx, userID, s.dayStart(s.now()))
		if err != nil {
			log.ErrorContext(ctx, "Failed to count today's predictions", logger.ErrorField(err))
			return nil, errInternal
		}
		if used >= int64(s.cfg.Quota.FreeDailyLimit) {
			log.InfoContext(ctx, "Free quota exhausted", logger.Int64Field("used_today", used))
			return nil, s.quotaExceeded()
		}
	}

	series, err := s.fetchSeries(ctx, ticker)
	if err != nil {
		log.WarnContext(ctx, "Market data failed", logger.ErrorField(err))
		return nil, err
	}

	predicted, err := s.predict(ctx, dto.Closes(series))
	if err != nil {
		log.WarnContext(ctx, "Forecast failed", logger.ErrorField(err))
		return nil, err
	}
	predicted = roundPrice(predicted)

	artifacts, err := s.render(ctx, dto.ChartRequest{
		Ticker:      ticker,
		Series:      series,
		Predicted:   predicted,
		Window:      s.cfg.Forecast.Window,
		GeneratedAt: s.now(),
	})
	if err != nil {
		log.WarnContext(ctx, "Chart rendering failed", logger.ErrorField(err))
		return nil, err
	}

	record := &model.Prediction{
		UserID:            userID,
		Ticker:            ticker,
		PredictedPrice:    predicted,
		Metrics:           datatypes.JSON(`{}`),
		HistoryChartPath:  artifacts.HistoryPath,
		ForecastChartPath: artifacts.ForecastPath,
	}

	// the pre-check above is advisory; the row lock makes the count and the
	// insert atomic per user
	err = s.uow.Run(ctx, func(opts ...utils.DBOption) error {
		locked, err := s.subscriptionRepo.LockByUserID(ctx, userID, opts...)
		if err != nil {
			return fmt.Errorf("lock subscription: %w", err)
		}

		record.CreatedAt = s.now()
		if !locked.IsPaid {
			used, err := s.predictionRepo.CountSince(ctx, userID, s.dayStart(record.CreatedAt), opts...)
			if err != nil {
				return fmt.Errorf("count predictions: %w", err)
			}
			if used >= int64(s.cfg.Quota.FreeDailyLimit) {
				return s.quotaExceeded()
			}
		}

		return s.predictionRepo.Create(ctx, record, opts...)
	})
	if err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			log.InfoContext(ctx, "Free quota exhausted by a concurrent request")
			return nil, err
		}
		log.ErrorContext(ctx, "Failed to store prediction", logger.ErrorField(err))
		return nil, errInternal
	}

	log.InfoContext(ctx, "Prediction stored",
		logger.UintField("prediction_id", record.ID),
		logger.Field("predicted_price", predicted))

	return &dto.PredictionResult{
		ID:             record.ID,
		Ticker:         ticker,
		PredictedPrice: predicted,
		HistoryChart:   artifacts.HistoryPath,
		ForecastChart:  artifacts.ForecastPath,
		CreatedAt:      record.CreatedAt,
	}, nil
}

func (s *predictionService) fetchSeries(ctx context.Context, ticker string) ([]dto.StockOHLCV, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.MarketData.Timeout)
	defer cancel()

	end := s.now()
	series, err := s.marketDataRepo.Fetch(ctx, ticker, utils.YearsBack(end, s.cfg.MarketData.LookbackYears), end)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, newError(ErrUpstream, "market data provider timed out")
		}
		return nil, newError(ErrUpstream, "market data unavailable: %v", err)
	}
	if len(series) == 0 {
		return nil, newError(ErrUpstream, "no data for ticker %s", ticker)
	}
	return series, nil
}

func (s *predictionService) predict(ctx context.Context, closes []float64) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Forecast.Timeout)
	defer cancel()

	predicted, err := s.forecastEngine.Predict(ctx, closes)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, newError(ErrUpstream, "forecast engine timed out")
		}
		return 0, newError(ErrUpstream, "%v", err)
	}
	return predicted, nil
}

func (s *predictionService) render(ctx context.Context, req dto.ChartRequest) (*dto.ChartArtifacts, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Chart.Timeout)
	defer cancel()

	artifacts, err := s.chartRenderer.Render(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, newError(ErrUpstream, "chart rendering timed out")
		}
		return nil, newError(ErrUpstream, "%v", err)
	}
	return artifacts, nil
}

func (s *predictionService) ListPredictions(ctx context.Context, userID uint, rawTicker string, limit int) ([]model.Prediction, error) {
	param := model.GetPredictionsParam{UserID: userID}

	if strings.TrimSpace(rawTicker) != "" {
		ticker, err := NormalizeTicker(s.validate, rawTicker)
		if err != nil {
			return nil, err
		}
		param.Ticker = &ticker
	}
	if limit > 0 {
		param.Limit = &limit
	}

	predictions, err := s.predictionRepo.List(ctx, param)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to list predictions", logger.ErrorField(err), logger.UintField("user_id", userID))
		return nil, errInternal
	}
	return predictions, nil
}

func (s *predictionService) LatestPrediction(ctx context.Context, userID uint) (*model.Prediction, error) {
	prediction, err := s.predictionRepo.Latest(ctx, userID)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to load latest prediction", logger.ErrorField(err), logger.UintField("user_id", userID))
		return nil, errInternal
	}
	if prediction == nil {
		return nil, newError(ErrNotFound, "no predictions yet")
	}
	return prediction, nil
}

func (s *predictionService) Usage(ctx context.Context, userID uint) (*dto.QuotaUsage, error) {
	sub, err := s.subscriptionRepo.GetOrCreate(ctx, userID)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to resolve subscription", logger.ErrorField(err), logger.UintField("user_id", userID))
		return nil, errInternal
	}

	used, err := s.predictionRepo.CountSince(ctx, userID, s.dayStart(s.now()))
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to count today's predictions", logger.ErrorField(err), logger.UintField("user_id", userID))
		return nil, errInternal
	}

	usage := &dto.QuotaUsage{
		IsPaid:    sub.IsPaid,
		UsedToday: int(used),
		Limit:     -1,
		Remaining: -1,
	}
	if !sub.IsPaid {
		usage.Limit = s.cfg.Quota.FreeDailyLimit
		usage.Remaining = s.cfg.Quota.FreeDailyLimit - int(used)
		if usage.Remaining < 0 {
			usage.Remaining = 0
		}
	}
	return usage, nil
}
