package repository

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"stock-forecast/config"
	"stock-forecast/internal/dto"
	"stock-forecast/pkg/cache"
	"stock-forecast/pkg/common"
	"stock-forecast/pkg/httpclient"
	"stock-forecast/pkg/logger"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

type MarketDataRepository interface {
	// Fetch returns daily bars for ticker between start and end, oldest first.
	// An unknown ticker yields an empty series and no error.
	Fetch(ctx context.Context, ticker string, start, end time.Time) ([]dto.StockOHLCV, error)
}

// Yahoo rejects requests without a browser-like user agent.
var yahooHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "en-US,en;q=0.9",
	"Referer":         "https://finance.yahoo.com/",
}

// yahooFinanceRepository reads daily bars from the Yahoo Finance chart API.
type yahooFinanceRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	series         *cache.Typed[[]dto.StockOHLCV]
	group          singleflight.Group
	requestLimiter *rate.Limiter
	mu             sync.Mutex
}

func NewYahooFinanceRepository(cfg *config.Config, log *logger.Logger, inMemoryCache cache.Cache) MarketDataRepository {
	return newYahooFinanceRepository(cfg, log, inMemoryCache,
		httpclient.New(cfg.MarketData.BaseURL, cfg.MarketData.Timeout, httpclient.WithHeaders(yahooHeaders)))
}

func newYahooFinanceRepository(cfg *config.Config, log *logger.Logger, inMemoryCache cache.Cache, client httpclient.HTTPClient) *yahooFinanceRepository {
	perRequest := time.Minute / time.Duration(cfg.MarketData.MaxRequestPerMinute)

	return &yahooFinanceRepository{
		httpClient:     client,
		cfg:            cfg,
		logger:         log,
		series:         cache.NewTyped[[]dto.StockOHLCV](inMemoryCache, common.KEY_MARKET_DATA_PREFIX, cfg.MarketData.CacheExpiration),
		requestLimiter: rate.NewLimiter(rate.Every(perRequest), 1),
	}
}

func (r *yahooFinanceRepository) Fetch(ctx context.Context, ticker string, start, end time.Time) ([]dto.StockOHLCV, error) {
	param := dto.GetStockDataParam{
		Ticker:   ticker,
		Start:    start,
		End:      end,
		Interval: "1d",
	}
	key := ticker + ":" + end.UTC().Format("2006-01-02")

	if series, ok := r.series.Get(key); ok {
		return series, nil
	}

	// The shared fetch outlives any single caller; each caller still stops
	// waiting when its own context ends.
	ch := r.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.MarketData.Timeout)
		defer cancel()

		series, err := r.get(fetchCtx, param)
		if err != nil {
			return nil, err
		}
		if len(series) > 0 {
			r.series.Set(key, series)
		}
		return series, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("market data for %s: %w", ticker, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]dto.StockOHLCV), nil
	}
}

func (r *yahooFinanceRepository) wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.requestLimiter.Allow() {
		r.logger.WarnContext(ctx, "Yahoo Finance API request limit reached, waiting",
			logger.IntField("max_request_per_minute", r.cfg.MarketData.MaxRequestPerMinute),
		)
		return r.requestLimiter.Wait(ctx)
	}
	return nil
}

func (r *yahooFinanceRepository) get(ctx context.Context, param dto.GetStockDataParam) ([]dto.StockOHLCV, error) {
	if err := r.wait(ctx); err != nil {
		return nil, fmt.Errorf("market data rate limit: %w", err)
	}

	endpoint := "/" + param.Ticker
	queryParams := map[string]string{
		"period1":        fmt.Sprintf("%d", param.Start.Unix()),
		"period2":        fmt.Sprintf("%d", param.End.Unix()),
		"interval":       param.Interval,
		"includePrePost": "false",
		"events":         "div,split",
	}

	var yahooResp dto.YahooFinanceResponse
	resp, err := r.httpClient.Get(ctx, endpoint, queryParams, nil, &yahooResp)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch data from yahoo finance: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		r.logger.InfoContext(ctx, "Yahoo Finance has no data for ticker",
			logger.StringField("ticker", param.Ticker))
		return []dto.StockOHLCV{}, nil
	}

	if !resp.OK() {
		r.logger.ErrorContext(ctx, "Yahoo Finance API returned Non-OK status",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("body", resp.Snippet(512)))
		return nil, fmt.Errorf("yahoo finance api returned status: %d", resp.StatusCode)
	}

	if yahooResp.Chart.Error != nil {
		if strings.EqualFold(yahooResp.Chart.Error.Code, "Not Found") {
			return []dto.StockOHLCV{}, nil
		}
		return nil, fmt.Errorf("yahoo finance api error: %s", yahooResp.Chart.Error.Description)
	}

	if len(yahooResp.Chart.Result) == 0 || len(yahooResp.Chart.Result[0].Indicators.Quote) == 0 {
		return []dto.StockOHLCV{}, nil
	}

	result := yahooResp.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	ohlcvData := make([]dto.StockOHLCV, 0, len(result.Timestamp))
	for i, timestamp := range result.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) ||
			i >= len(quote.Close) || i >= len(quote.Volume) {
			continue
		}

		// null bars decode as zero
		if quote.Close[i] <= 0 {
			continue
		}

		ohlcvData = append(ohlcvData, dto.StockOHLCV{
			Timestamp: timestamp,
			Open:      quote.Open[i],
			High:      quote.High[i],
			Low:       quote.Low[i],
			Close:     quote.Close[i],
			Volume:    quote.Volume[i],
		})
	}

	return ohlcvData, nil
}
