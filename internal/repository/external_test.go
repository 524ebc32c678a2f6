package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"stock-forecast/config"
	"stock-forecast/internal/dto"
	"stock-forecast/pkg/cache"
	"stock-forecast/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, baseURL string) *config.Config {
	return &config.Config{
		MarketData: config.MarketData{
			BaseURL:             baseURL,
			Timeout:             5 * time.Second,
			LookbackYears:       10,
			MaxRequestPerMinute: 6000,
			CacheExpiration:     time.Minute,
		},
		Forecast: config.Forecast{
			BaseURL:   baseURL,
			ModelName: "stock_prediction_model",
			Window:    3,
			Timeout:   5 * time.Second,
		},
		Chart: config.Chart{
			OutputDir: t.TempDir(),
			URLPrefix: "/charts",
			Width:     640,
			Height:    320,
			Timeout:   5 * time.Second,
		},
	}
}

const yahooBody = `{"chart":{"result":[{"meta":{"symbol":"AAPL","currency":"USD","regularMarketPrice":12},
"timestamp":[1760000000,1760086400,1760172800],
"indicators":{"quote":[{"open":[10,11,12],"high":[10,11,12],"low":[10,11,12],"close":[10,null,12],"volume":[100,200,300]}]}}],"error":null}}`

func TestYahooFinanceRepository_Fetch(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/AAPL", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(yahooBody))
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	repo := NewYahooFinanceRepository(cfg, logger.NewNop(), cache.NewCache(time.Minute, time.Minute))

	end := time.Now()
	series, err := repo.Fetch(context.Background(), "AAPL", end.AddDate(-10, 0, 0), end)
	require.NoError(t, err)
	require.Len(t, series, 2, "null closes are skipped")
	assert.Equal(t, []float64{10, 12}, dto.Closes(series))

	_, err = repo.Fetch(context.Background(), "AAPL", end.AddDate(-10, 0, 0), end)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "second fetch is served from cache")
}

func TestYahooFinanceRepository_SharedFetchSurvivesCancelledCaller(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(yahooBody))
	}))
	defer srv.Close()

	repo := NewYahooFinanceRepository(testConfig(t, srv.URL), logger.NewNop(), cache.NewCache(time.Minute, time.Minute))
	end := time.Now()
	start := end.AddDate(-10, 0, 0)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := repo.Fetch(firstCtx, "AAPL", start, end)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 5*time.Millisecond)

	type result struct {
		series []dto.StockOHLCV
		err    error
	}
	second := make(chan result, 1)
	go func() {
		series, err := repo.Fetch(context.Background(), "AAPL", start, end)
		second <- result{series: series, err: err}
	}()

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		require.Fail(t, "cancelled caller kept waiting")
	}

	close(release)
	select {
	case res := <-second:
		require.NoError(t, res.err)
		assert.Len(t, res.series, 2)
	case <-time.After(2 * time.Second):
		require.Fail(t, "second caller never got the shared result")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestYahooFinanceRepository_UnknownTicker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer srv.Close()

	repo := NewYahooFinanceRepository(testConfig(t, srv.URL), logger.NewNop(), cache.NewCache(time.Minute, time.Minute))

	end := time.Now()
	series, err := repo.Fetch(context.Background(), "ZZZZ", end.AddDate(-1, 0, 0), end)
	require.NoError(t, err)
	assert.Empty(t, series)
}

func TestYahooFinanceRepository_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	repo := NewYahooFinanceRepository(testConfig(t, srv.URL), logger.NewNop(), cache.NewCache(time.Minute, time.Minute))

	end := time.Now()
	_, err := repo.Fetch(context.Background(), "AAPL", end.AddDate(-1, 0, 0), end)
	assert.ErrorContains(t, err, "502")
}

func TestForecastEngine_Predict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models/stock_prediction_model:predict", r.URL.Path)

		var req dto.ForecastEngineRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Instances, 1)
		assert.Equal(t, [][]float64{{0.5}, {0.75}, {1}}, req.Instances[0])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"predictions":[[0.5]]}`))
	}))
	defer srv.Close()

	engine := NewForecastEngine(testConfig(t, srv.URL), logger.NewNop())

	// min 100, max 140: the window [120 130 140] scales to [.5 .75 1]
	got, err := engine.Predict(context.Background(), []float64{100, 110, 120, 130, 140})
	require.NoError(t, err)
	assert.InDelta(t, 120.0, got, 1e-9)
}

func TestForecastEngine_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	engine := NewForecastEngine(testConfig(t, srv.URL), logger.NewNop())

	_, err := engine.Predict(context.Background(), []float64{1, 2})
	assert.ErrorIs(t, err, ErrInsufficientHistory)

	_, err = engine.Predict(context.Background(), []float64{1, 2, 3})
	assert.ErrorContains(t, err, "500")
}

func TestChartRenderer_Render(t *testing.T) {
	cfg := testConfig(t, "http://unused")
	renderer := NewChartRenderer(cfg, logger.NewNop())

	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	series := make([]dto.StockOHLCV, 0, 30)
	for i := 0; i < 30; i++ {
		series = append(series, dto.StockOHLCV{
			Timestamp: start.AddDate(0, 0, i).Unix(),
			Close:     100 + float64(i%7),
		})
	}

	at := time.Date(2026, 10, 19, 10, 15, 0, 0, time.UTC)
	req := dto.ChartRequest{
		Ticker:      "BRK.B",
		Series:      series,
		Predicted:   104.5,
		Window:      10,
		GeneratedAt: at,
	}
	artifacts, err := renderer.Render(context.Background(), req)
	require.NoError(t, err)
	assert.Regexp(t, `^BRK_B_20261019T101500_[0-9a-f]{8}_history\.png$`, artifacts.HistoryPath)
	assert.Equal(t,
		strings.TrimSuffix(artifacts.HistoryPath, "history.png"),
		strings.TrimSuffix(artifacts.ForecastPath, "forecast.png"),
		"both charts of one render share a name stem")

	for _, name := range []string{artifacts.HistoryPath, artifacts.ForecastPath} {
		info, err := os.Stat(filepath.Join(cfg.Chart.OutputDir, name))
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}

	again, err := renderer.Render(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, artifacts.HistoryPath, again.HistoryPath, "same ticker and second must not overwrite")
	assert.NotEqual(t, artifacts.ForecastPath, again.ForecastPath)
}

func TestChartRenderer_CancelledContext(t *testing.T) {
	renderer := NewChartRenderer(testConfig(t, "http://unused"), logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := renderer.Render(ctx, dto.ChartRequest{
		Ticker: "AAPL",
		Series: []dto.StockOHLCV{{Timestamp: 1, Close: 1}, {Timestamp: 86401, Close: 2}},
	})
	assert.ErrorIs(t, err, context.Canceled)
}
