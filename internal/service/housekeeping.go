package service

import (
	"context"
	"fmt"
	"time"

	"stock-forecast/config"
	"stock-forecast/internal/repository"
	"stock-forecast/pkg/logger"

	"github.com/robfig/cron/v3"
)

type HousekeepingService interface {
	// Start schedules the periodic jobs. They run until Stop is called.
	Start(ctx context.Context) error
	Stop() context.Context
	PurgeExpiredLinkTokens(ctx context.Context) (int64, error)
}

type housekeepingService struct {
	cfg               *config.Config
	log               *logger.Logger
	now               func() time.Time
	cron              *cron.Cron
	chatLinkTokenRepo repository.ChatLinkTokenRepository
}

func NewHousekeepingService(cfg *config.Config, log *logger.Logger, now func() time.Time, chatLinkTokenRepo repository.ChatLinkTokenRepository) HousekeepingService {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &housekeepingService{
		cfg:               cfg,
		log:               log,
		now:               now,
		cron:              cron.New(cron.WithParser(parser)),
		chatLinkTokenRepo: chatLinkTokenRepo,
	}
}

func (s *housekeepingService) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.cfg.ChatLink.CleanupCron, func() {
		if _, err := s.PurgeExpiredLinkTokens(ctx); err != nil {
			s.log.ErrorContextWithAlert(ctx, "Failed to purge link tokens", logger.ErrorField(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid chat_link.cleanup_cron %q: %w", s.cfg.ChatLink.CleanupCron, err)
	}

	s.cron.Start()
	s.log.InfoContext(ctx, "Housekeeping scheduled", logger.StringField("cleanup_cron", s.cfg.ChatLink.CleanupCron))
	return nil
}

func (s *housekeepingService) Stop() context.Context {
	return s.cron.Stop()
}

func (s *housekeepingService) PurgeExpiredLinkTokens(ctx context.Context) (int64, error) {
	deleted, err := s.chatLinkTokenRepo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("delete expired link tokens: %w", err)
	}
	if deleted > 0 {
		s.log.InfoContext(ctx, "Purged link tokens", logger.Int64Field("deleted", deleted))
	}
	return deleted, nil
}
