package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stock-forecast/internal/dto"
	"stock-forecast/internal/model"
	"stock-forecast/internal/repository"
	"stock-forecast/pkg/logger"
	"stock-forecast/pkg/utils"
)

type SubscriptionService interface {
	// ActivateSubscription marks the user as paid. Repeats are no-ops.
	ActivateSubscription(ctx context.Context, userID uint) error
	// ConfirmPayment records a verified payment and activates the payer.
	// Redelivered events are accepted without side effects.
	ConfirmPayment(ctx context.Context, payment dto.PaymentConfirmation) error
	IsPaid(ctx context.Context, userID uint) (bool, error)
}

type subscriptionService struct {
	log              *logger.Logger
	now              func() time.Time
	uow              repository.UnitOfWork
	userRepo         repository.UserRepository
	subscriptionRepo repository.SubscriptionRepository
	paymentEventRepo repository.PaymentEventRepository
}

func NewSubscriptionService(
	log *logger.Logger,
	now func() time.Time,
	uow repository.UnitOfWork,
	userRepo repository.UserRepository,
	subscriptionRepo repository.SubscriptionRepository,
	paymentEventRepo repository.PaymentEventRepository,
) SubscriptionService {
	return &subscriptionService{
		log:              log,
		now:              now,
		uow:              uow,
		userRepo:         userRepo,
		subscriptionRepo: subscriptionRepo,
		paymentEventRepo: paymentEventRepo,
	}
}

func (s *subscriptionService) ensureUser(ctx context.Context, userID uint, opts ...utils.DBOption) error {
	user, err := s.userRepo.GetByID(ctx, userID, opts...)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return newError(ErrNotFound, "user %d not found", userID)
	}
	return nil
}

func (s *subscriptionService) ActivateSubscription(ctx context.Context, userID uint) error {
	err := s.uow.Run(ctx, func(opts ...utils.DBOption) error {
		if err := s.ensureUser(ctx, userID, opts...); err != nil {
			return err
		}
		return s.subscriptionRepo.MarkPaid(ctx, userID, s.now(), opts...)
	})
	if err != nil {
		return s.wrap(ctx, "Failed to activate subscription", userID, err)
	}

	s.log.InfoContext(ctx, "Subscription activated", logger.UintField("user_id", userID))
	return nil
}

func (s *subscriptionService) ConfirmPayment(ctx context.Context, payment dto.PaymentConfirmation) error {
	if payment.EventID == "" {
		return newError(ErrValidation, "payment event id is required")
	}

	var duplicate bool
	err := s.uow.Run(ctx, func(opts ...utils.DBOption) error {
		if err := s.ensureUser(ctx, payment.UserID, opts...); err != nil {
			return err
		}

		created, err := s.paymentEventRepo.Record(ctx, &model.PaymentEvent{
			EventID:  payment.EventID,
			UserID:   payment.UserID,
			Source:   payment.Source,
			Amount:   payment.Amount,
			Currency: payment.Currency,
		}, opts...)
		if err != nil {
			return fmt.Errorf("record payment event: %w", err)
		}
		duplicate = !created

		return s.subscriptionRepo.MarkPaid(ctx, payment.UserID, s.now(), opts...)
	})
	if err != nil {
		return s.wrap(ctx, "Failed to confirm payment", payment.UserID, err)
	}

	s.log.InfoContext(ctx, "Payment confirmed",
		logger.StringField("event_id", payment.EventID),
		logger.StringField("source", payment.Source),
		logger.UintField("user_id", payment.UserID),
		logger.Field("duplicate", duplicate))
	return nil
}

func (s *subscriptionService) IsPaid(ctx context.Context, userID uint) (bool, error) {
	sub, err := s.subscriptionRepo.GetOrCreate(ctx, userID)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to resolve subscription", logger.ErrorField(err), logger.UintField("user_id", userID))
		return false, errInternal
	}
	return sub.IsPaid, nil
}

func (s *subscriptionService) wrap(ctx context.Context, msg string, userID uint, err error) error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	s.log.ErrorContextWithAlert(ctx, msg, logger.ErrorField(err), logger.UintField("user_id", userID))
	return errInternal
}
