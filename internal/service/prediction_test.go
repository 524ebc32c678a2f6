package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestPrediction_FreeUserFirstRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")

	result, err := env.svc.PredictionService.RequestPrediction(ctx, alice.ID, " aapl ")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", result.Ticker)
	assert.Equal(t, 189.12, result.PredictedPrice)
	assert.Equal(t, "AAPL_20261019T101500_history.png", result.HistoryChart)
	assert.Equal(t, "AAPL_20261019T101500_forecast.png", result.ForecastChart)
	assert.True(t, env.clock.Now().Equal(result.CreatedAt))
	assert.Equal(t, int64(1), env.countPredictions(t, alice.ID))

	latest, err := env.svc.PredictionService.LatestPrediction(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, result.ID, latest.ID)
	assert.JSONEq(t, `{}`, string(latest.Metrics))

	paid, err := env.svc.SubscriptionService.IsPaid(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, paid, "subscription is created lazily as free")
}

func TestRequestPrediction_RoundsHalfAwayFromZero(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	env.forecast.price = 2.675

	result, err := env.svc.PredictionService.RequestPrediction(context.Background(), alice.ID, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 2.68, result.PredictedPrice)
}

func TestRequestPrediction_FreeQuota(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")

	for i := 0; i < 5; i++ {
		_, err := env.svc.PredictionService.RequestPrediction(ctx, alice.ID, "AAPL")
		require.NoError(t, err, "request %d", i+1)
		env.clock.Advance(time.Minute)
	}
	callsBefore := env.marketData.Calls()

	_, err := env.svc.PredictionService.RequestPrediction(ctx, alice.ID, "MSFT")
	require.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, callsBefore, env.marketData.Calls(), "no external call once the quota is spent")
	assert.Equal(t, int64(5), env.countPredictions(t, alice.ID))

	usage, err := env.svc.PredictionService.Usage(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, usage.UsedToday)
	assert.Equal(t, 0, usage.Remaining)

	// the quota resets at the start of the next day
	env.clock.Advance(24 * time.Hour)
	_, err = env.svc.PredictionService.RequestPrediction(ctx, alice.ID, "MSFT")
	require.NoError(t, err)
	assert.Equal(t, int64(6), env.countPredictions(t, alice.ID))
}

func TestRequestPrediction_QuotaDayBoundary(t *testing.T) {
	// 23:50 and 00:05 in Asia/Kolkata (UTC+05:30) straddle its midnight but
	// fall on the same UTC day.
	beforeMidnightIST := time.Date(2026, 10, 19, 18, 20, 0, 0, time.UTC)
	lastMinuteIST := time.Date(2026, 10, 19, 18, 29, 0, 0, time.UTC)
	afterMidnightIST := time.Date(2026, 10, 19, 18, 35, 0, 0, time.UTC)

	tests := []struct {
		name     string
		timeZone string
		firstAt  time.Time
		sixthAt  time.Time
		wantErr  error
	}{
		{
			name:     "kolkata before midnight is rejected",
			timeZone: "Asia/Kolkata",
			firstAt:  beforeMidnightIST,
			sixthAt:  lastMinuteIST,
			wantErr:  ErrQuotaExceeded,
		},
		{
			name:     "kolkata after midnight is allowed",
			timeZone: "Asia/Kolkata",
			firstAt:  beforeMidnightIST,
			sixthAt:  afterMidnightIST,
		},
		{
			name:     "same instants in utc stay on one day",
			timeZone: "UTC",
			firstAt:  beforeMidnightIST,
			sixthAt:  afterMidnightIST,
			wantErr:  ErrQuotaExceeded,
		},
		{
			name:     "new york after midnight is allowed",
			timeZone: "America/New_York",
			firstAt:  time.Date(2026, 10, 20, 3, 50, 0, 0, time.UTC),
			sixthAt:  time.Date(2026, 10, 20, 4, 5, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.cfg.Quota.TimeZone = tt.timeZone
			ctx := context.Background()
			alice := env.createUser(t, "alice")

			env.clock.Set(tt.firstAt)
			for i := 0; i < 5; i++ {
				_, err := env.svc.PredictionService.RequestPrediction(ctx, alice.ID, "AAPL")
				require.NoError(t, err, "request %d", i+1)
			}

			env.clock.Set(tt.sixthAt)
			_, err := env.svc.PredictionService.RequestPrediction(ctx, alice.ID, "AAPL")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, int64(5), env.countPredictions(t, alice.ID))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(6), env.countPredictions(t, alice.ID))
		})
	}
}

func TestRequestPrediction_PaidUserIsUnlimited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bob := env.createUser(t, "bob")
	require.NoError(t, env.svc.SubscriptionService.ActivateSubscription(ctx, bob.ID))

	for i := 0; i < 8; i++ {
		_, err := env.svc.PredictionService.RequestPrediction(ctx, bob.ID, "AAPL")
		require.NoError(t, err)
	}
	assert.Equal(t, int64(8), env.countPredictions(t, bob.ID))

	usage, err := env.svc.PredictionService.Usage(ctx, bob.ID)
	require.NoError(t, err)
	assert.True(t, usage.IsPaid)
	assert.Equal(t, 8, usage.UsedToday)
	assert.Equal(t, -1, usage.Limit)
	assert.Equal(t, -1, usage.Remaining)
}

func TestRequestPrediction_ConcurrentRequestsNeverExceedQuota(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.PredictionService.RequestPrediction(context.Background(), alice.ID, "AAPL")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrQuotaExceeded):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 5, rejected)
	assert.Equal(t, int64(5), env.countPredictions(t, alice.ID))
}

func TestRequestPrediction_Validation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")

	tests := []struct {
		name  string
		input string
		msg   string
	}{
		{name: "empty", input: "   ", msg: "ticker is required"},
		{name: "bad characters", input: "AA PL", msg: `invalid ticker "AA PL"`},
		{name: "too long", input: "ABCDEFGHIJKLMNOPQ", msg: `invalid ticker "ABCDEFGHIJKLMNOPQ"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.PredictionService.RequestPrediction(context.Background(), alice.ID, tt.input)
			require.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, tt.msg, Message(err))
		})
	}
	assert.Zero(t, env.marketData.Calls())
	assert.Equal(t, int64(0), env.countPredictions(t, alice.ID))
}

func TestRequestPrediction_UpstreamFailures(t *testing.T) {
	tests := []struct {
		name   string
		ticker string
		setup  func(env *testEnv)
		msg    string
	}{
		{
			name:   "unknown ticker",
			ticker: "ZZZZ",
			setup:  func(env *testEnv) {},
			msg:    "no data for ticker ZZZZ",
		},
		{
			name:   "market data error",
			ticker: "AAPL",
			setup:  func(env *testEnv) { env.marketData.err = errors.New("yahoo finance api returned status: 503") },
			msg:    "market data unavailable: yahoo finance api returned status: 503",
		},
		{
			name:   "market data timeout",
			ticker: "AAPL",
			setup:  func(env *testEnv) { env.marketData.err = context.DeadlineExceeded },
			msg:    "market data provider timed out",
		},
		{
			name:   "forecast error",
			ticker: "AAPL",
			setup:  func(env *testEnv) { env.forecast.err = errors.New("forecast engine returned status: 500") },
			msg:    "forecast engine returned status: 500",
		},
		{
			name:   "chart error",
			ticker: "AAPL",
			setup:  func(env *testEnv) { env.charts.err = errors.New("disk full") },
			msg:    "disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			alice := env.createUser(t, "alice")
			tt.setup(env)

			_, err := env.svc.PredictionService.RequestPrediction(context.Background(), alice.ID, tt.ticker)
			require.ErrorIs(t, err, ErrUpstream)
			assert.Equal(t, tt.msg, Message(err))
			assert.Equal(t, int64(0), env.countPredictions(t, alice.ID))
		})
	}
}

func TestListPredictions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	for _, ticker := range []string{"AAPL", "MSFT", "AAPL"} {
		_, err := env.svc.PredictionService.RequestPrediction(ctx, alice.ID, ticker)
		require.NoError(t, err)
		env.clock.Advance(time.Minute)
	}
	_, err := env.svc.PredictionService.RequestPrediction(ctx, bob.ID, "AAPL")
	require.NoError(t, err)

	all, err := env.svc.PredictionService.ListPredictions(ctx, alice.ID, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.True(t, all[i-1].CreatedAt.After(all[i].CreatedAt), "newest first")
	}

	aapl, err := env.svc.PredictionService.ListPredictions(ctx, alice.ID, "aapl", 0)
	require.NoError(t, err)
	require.Len(t, aapl, 2)
	for _, p := range aapl {
		assert.Equal(t, "AAPL", p.Ticker)
		assert.Equal(t, alice.ID, p.UserID)
	}

	limited, err := env.svc.PredictionService.ListPredictions(ctx, alice.ID, "", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	_, err = env.svc.PredictionService.ListPredictions(ctx, alice.ID, "A B", 0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLatestPrediction_NotFound(t *testing.T) {
	env := newTestEnv(t)
	carol := env.createUser(t, "carol")

	_, err := env.svc.PredictionService.LatestPrediction(context.Background(), carol.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUsage_FreeUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")

	_, err := env.svc.PredictionService.RequestPrediction(ctx, alice.ID, "AAPL")
	require.NoError(t, err)

	usage, err := env.svc.PredictionService.Usage(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, usage.IsPaid)
	assert.Equal(t, 1, usage.UsedToday)
	assert.Equal(t, 5, usage.Limit)
	assert.Equal(t, 4, usage.Remaining)
}
