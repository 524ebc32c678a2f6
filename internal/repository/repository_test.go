package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"stock-forecast/internal/model"
	"stock-forecast/pkg/dbtest"
	"stock-forecast/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func createUser(t *testing.T, db *gorm.DB, username string) *model.User {
	t.Helper()
	user := &model.User{Username: username}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}

func newPrediction(userID uint, ticker string, at time.Time) *model.Prediction {
	return &model.Prediction{
		UserID:            userID,
		Ticker:            ticker,
		PredictedPrice:    101.25,
		Metrics:           datatypes.JSON(`{}`),
		HistoryChartPath:  ticker + "_history.png",
		ForecastChartPath: ticker + "_forecast.png",
		CreatedAt:         at,
	}
}

func TestUserRepository(t *testing.T) {
	db := dbtest.New(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	assert.NotZero(t, alice.ID)

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, alice.ID, got.ID)
	assert.False(t, got.HasPassword())

	missing, err := repo.GetByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	err = repo.Create(ctx, &model.User{Username: "alice"})
	assert.Error(t, err, "usernames are unique")
}

func TestSubscriptionRepository_GetOrCreateAndMarkPaid(t *testing.T) {
	db := dbtest.New(t)
	repo := NewSubscriptionRepository(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")

	sub, err := repo.GetOrCreate(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, sub.IsPaid)

	again, err := repo.GetOrCreate(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, again.ID)

	first := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkPaid(ctx, alice.ID, first))
	require.NoError(t, repo.MarkPaid(ctx, alice.ID, first.Add(time.Hour)))

	paid, err := repo.GetOrCreate(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	require.NotNil(t, paid.PaidAt)
	assert.True(t, first.Equal(*paid.PaidAt), "first activation time is kept")

	count, err := repo.CountByUserID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSubscriptionRepository_MarkPaidCreatesRow(t *testing.T) {
	db := dbtest.New(t)
	repo := NewSubscriptionRepository(db)
	ctx := context.Background()
	bob := createUser(t, db, "bob")

	require.NoError(t, repo.MarkPaid(ctx, bob.ID, time.Now()))

	sub, err := repo.GetOrCreate(ctx, bob.ID)
	require.NoError(t, err)
	assert.True(t, sub.IsPaid)
}

func TestPredictionRepository_CountListLatest(t *testing.T) {
	db := dbtest.New(t)
	repo := NewPredictionRepository(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	base := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, newPrediction(alice.ID, "AAPL", base.Add(-24*time.Hour))))
	require.NoError(t, repo.Create(ctx, newPrediction(alice.ID, "MSFT", base)))
	require.NoError(t, repo.Create(ctx, newPrediction(alice.ID, "AAPL", base.Add(time.Hour))))
	require.NoError(t, repo.Create(ctx, newPrediction(bob.ID, "AAPL", base.Add(2*time.Hour))))

	count, err := repo.CountSince(ctx, alice.ID, base)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	all, err := repo.List(ctx, model.GetPredictionsParam{UserID: alice.ID})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "AAPL", all[0].Ticker)
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt))
	assert.True(t, all[1].CreatedAt.After(all[2].CreatedAt))

	aapl, err := repo.List(ctx, model.GetPredictionsParam{UserID: alice.ID, Ticker: utils.ToPointer("AAPL")})
	require.NoError(t, err)
	assert.Len(t, aapl, 2)
	for _, p := range aapl {
		assert.Equal(t, alice.ID, p.UserID)
	}

	limited, err := repo.List(ctx, model.GetPredictionsParam{UserID: alice.ID, Limit: utils.ToPointer(1)})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	latest, err := repo.Latest(ctx, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, all[0].ID, latest.ID)

	carol := createUser(t, db, "carol")
	none, err := repo.Latest(ctx, carol.ID)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestChatLinkRepository(t *testing.T) {
	db := dbtest.New(t)
	repo := NewChatLinkRepository(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	link := &model.ChatLink{UserID: &alice.ID, ChatID: 42, DisplayName: "alice"}
	require.NoError(t, repo.Create(ctx, link))

	got, err := repo.GetByChatID(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.User)
	assert.Equal(t, "alice", got.User.Username)

	err = repo.Create(ctx, &model.ChatLink{UserID: &bob.ID, ChatID: 42})
	assert.Error(t, err, "chat ids are unique")

	got.UserID = &bob.ID
	got.DisplayName = "bobby"
	require.NoError(t, repo.Update(ctx, got))

	byUser, err := repo.GetByUserID(ctx, bob.ID)
	require.NoError(t, err)
	require.NotNil(t, byUser)
	assert.Equal(t, int64(42), byUser.ChatID)
	assert.Equal(t, "bobby", byUser.DisplayName)

	none, err := repo.GetByChatID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, repo.Delete(ctx, got.ID))
	gone, err := repo.GetByUserID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestChatLinkTokenRepository(t *testing.T) {
	db := dbtest.New(t)
	repo := NewChatLinkTokenRepository(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	now := time.Now()

	require.NoError(t, repo.Create(ctx, &model.ChatLinkToken{Token: "live", UserID: alice.ID, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.Create(ctx, &model.ChatLinkToken{Token: "stale", UserID: alice.ID, ExpiresAt: now.Add(-time.Hour)}))

	tok, err := repo.Get(ctx, "live")
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, alice.ID, tok.UserID)
	assert.Nil(t, tok.UsedAt)

	ok, err := repo.MarkUsed(ctx, "live", now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkUsed(ctx, "live", now)
	require.NoError(t, err)
	assert.False(t, ok, "a token is redeemed once")

	deleted, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	missing, err := repo.Get(ctx, "stale")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPaymentEventRepository_Dedupes(t *testing.T) {
	db := dbtest.New(t)
	repo := NewPaymentEventRepository(db)
	ctx := context.Background()
	alice := createUser(t, db, "alice")

	event := func() *model.PaymentEvent {
		return &model.PaymentEvent{EventID: "evt_1", UserID: alice.ID, Source: "web", Amount: 49900, Currency: "INR"}
	}

	created, err := repo.Record(ctx, event())
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Record(ctx, event())
	require.NoError(t, err)
	assert.False(t, created)
}

func TestUnitOfWork_RollsBackOnError(t *testing.T) {
	db := dbtest.New(t)
	uow := NewUnitOfWork(db)
	users := NewUserRepository(db)
	ctx := context.Background()

	boom := errors.New("boom")
	err := uow.Run(ctx, func(opts ...utils.DBOption) error {
		if err := users.Create(ctx, &model.User{Username: "ghost"}, opts...); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	ghost, err := users.GetByUsername(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, ghost)

	err = uow.Run(ctx, func(opts ...utils.DBOption) error {
		return users.Create(ctx, &model.User{Username: "kept"}, opts...)
	})
	require.NoError(t, err)

	kept, err := users.GetByUsername(ctx, "kept")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}
