package service

import (
	"time"

	"stock-forecast/config"
	"stock-forecast/internal/repository"
	"stock-forecast/pkg/logger"
)

type Service struct {
	PredictionService   PredictionService
	IdentityService     IdentityService
	SubscriptionService SubscriptionService
	AuthService         AuthService
	HousekeepingService HousekeepingService
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
) *Service {
	clock := time.Now

	return &Service{
		PredictionService:   NewPredictionService(cfg, log, clock, repo.UnitOfWork, repo.SubscriptionRepo, repo.PredictionRepo, repo.MarketDataRepo, repo.ForecastEngine, repo.ChartRenderer),
		IdentityService:     NewIdentityService(cfg, log, clock, repo.UnitOfWork, repo.UserRepo, repo.ChatLinkRepo, repo.ChatLinkTokenRepo),
		SubscriptionService: NewSubscriptionService(log, clock, repo.UnitOfWork, repo.UserRepo, repo.SubscriptionRepo, repo.PaymentEventRepo),
		AuthService:         NewAuthService(cfg, log, clock, repo.UserRepo),
		HousekeepingService: NewHousekeepingService(cfg, log, clock, repo.ChatLinkTokenRepo),
	}
}
