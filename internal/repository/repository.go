package repository

import (
	"stock-forecast/config"
	"stock-forecast/pkg/cache"
	"stock-forecast/pkg/logger"

	"gorm.io/gorm"
)

type Repository struct {
	UserRepo          UserRepository
	SubscriptionRepo  SubscriptionRepository
	ChatLinkRepo      ChatLinkRepository
	ChatLinkTokenRepo ChatLinkTokenRepository
	PredictionRepo    PredictionRepository
	PaymentEventRepo  PaymentEventRepository
	MarketDataRepo    MarketDataRepository
	ForecastEngine    ForecastEngine
	ChartRenderer     ChartRenderer
	UnitOfWork        UnitOfWork
}

func NewRepository(cfg *config.Config, db *gorm.DB, inMemoryCache cache.Cache, log *logger.Logger) *Repository {
	return &Repository{
		UserRepo:          NewUserRepository(db),
		SubscriptionRepo:  NewSubscriptionRepository(db),
		ChatLinkRepo:      NewChatLinkRepository(db),
		ChatLinkTokenRepo: NewChatLinkTokenRepository(db),
		PredictionRepo:    NewPredictionRepository(db),
		PaymentEventRepo:  NewPaymentEventRepository(db),
		MarketDataRepo:    NewYahooFinanceRepository(cfg, log, inMemoryCache),
		ForecastEngine:    NewForecastEngine(cfg, log),
		ChartRenderer:     NewChartRenderer(cfg, log),
		UnitOfWork:        NewUnitOfWork(db),
	}
}
