package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"stock-forecast/config"
	"stock-forecast/internal/model"
	"stock-forecast/internal/repository"
	"stock-forecast/pkg/logger"
	"stock-forecast/pkg/utils"

	"github.com/google/uuid"
)

type IdentityService interface {
	// LinkChatIdentity returns the user behind chatID, creating a bot-only
	// user on first contact. A display name already owned by another user
	// is never joined implicitly.
	LinkChatIdentity(ctx context.Context, chatID int64, displayName string) (*model.User, error)
	IssueLinkToken(ctx context.Context, userID uint) (*model.ChatLinkToken, error)
	// ConfirmChatLink redeems a link token and points chatID at its owner.
	ConfirmChatLink(ctx context.Context, chatID int64, displayName string, token string) (*model.User, error)
	ResolveUserByChat(ctx context.Context, chatID int64) (*model.User, error)
}

var unsafeUsernameChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

type identityService struct {
	cfg               *config.Config
	log               *logger.Logger
	now               func() time.Time
	uow               repository.UnitOfWork
	userRepo          repository.UserRepository
	chatLinkRepo      repository.ChatLinkRepository
	chatLinkTokenRepo repository.ChatLinkTokenRepository
}

func NewIdentityService(
	cfg *config.Config,
	log *logger.Logger,
	now func() time.Time,
	uow repository.UnitOfWork,
	userRepo repository.UserRepository,
	chatLinkRepo repository.ChatLinkRepository,
	chatLinkTokenRepo repository.ChatLinkTokenRepository,
) IdentityService {
	return &identityService{
		cfg:               cfg,
		log:               log,
		now:               now,
		uow:               uow,
		userRepo:          userRepo,
		chatLinkRepo:      chatLinkRepo,
		chatLinkTokenRepo: chatLinkTokenRepo,
	}
}

// botUsername derives a username from a chat display name.
func botUsername(chatID int64, displayName string) string {
	name := unsafeUsernameChars.ReplaceAllString(strings.TrimSpace(displayName), "")
	if len(name) > 150 {
		name = name[:150]
	}
	if name == "" {
		return fmt.Sprintf("tg_%d", chatID)
	}
	return name
}

func (s *identityService) LinkChatIdentity(ctx context.Context, chatID int64, displayName string) (*model.User, error) {
	var linked *model.User

	err := s.uow.Run(ctx, func(opts ...utils.DBOption) error {
		link, err := s.chatLinkRepo.GetByChatID(ctx, chatID, opts...)
		if err != nil {
			return fmt.Errorf("get chat link: %w", err)
		}

		if link != nil && link.UserID != nil && link.User != nil {
			if displayName != "" && link.DisplayName != displayName {
				link.DisplayName = displayName
				if err := s.chatLinkRepo.Update(ctx, link, opts...); err != nil {
					return fmt.Errorf("refresh display name: %w", err)
				}
			}
			linked = link.User
			return nil
		}

		username := botUsername(chatID, displayName)
		existing, err := s.userRepo.GetByUsername(ctx, username, opts...)
		if err != nil {
			return fmt.Errorf("get user by username: %w", err)
		}
		if existing != nil {
			return newError(ErrLinkConfirmationRequired,
				"an account named %q already exists; sign in on the web and use a link token to connect this chat", username)
		}

		user := &model.User{Username: username}
		if err := s.userRepo.Create(ctx, user, opts...); err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		if link == nil {
			err = s.chatLinkRepo.Create(ctx, &model.ChatLink{UserID: &user.ID, ChatID: chatID, DisplayName: displayName}, opts...)
		} else {
			link.UserID = &user.ID
			link.DisplayName = displayName
			err = s.chatLinkRepo.Update(ctx, link, opts...)
		}
		if err != nil {
			return fmt.Errorf("save chat link: %w", err)
		}

		linked = user
		return nil
	})
	if err == nil {
		return linked, nil
	}

	if errors.Is(err, ErrLinkConfirmationRequired) {
		return nil, err
	}

	// a concurrent first contact from the same chat may have won the insert
	if user, resolveErr := s.ResolveUserByChat(ctx, chatID); resolveErr == nil {
		return user, nil
	}

	s.log.ErrorContext(ctx, "Failed to link chat", logger.ErrorField(err), logger.Int64Field("chat_id", chatID))
	return nil, errInternal
}

func (s *identityService) IssueLinkToken(ctx context.Context, userID uint) (*model.ChatLinkToken, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to load user", logger.ErrorField(err), logger.UintField("user_id", userID))
		return nil, errInternal
	}
	if user == nil {
		return nil, newError(ErrNotFound, "user not found")
	}

	token := &model.ChatLinkToken{
		Token:     strings.ReplaceAll(uuid.NewString(), "-", ""),
		UserID:    userID,
		ExpiresAt: s.now().Add(s.cfg.ChatLink.TokenTTL),
	}
	if err := s.chatLinkTokenRepo.Create(ctx, token); err != nil {
		s.log.ErrorContext(ctx, "Failed to create link token", logger.ErrorField(err), logger.UintField("user_id", userID))
		return nil, errInternal
	}
	return token, nil
}

func (s *identityService) ConfirmChatLink(ctx context.Context, chatID int64, displayName string, token string) (*model.User, error) {
	var linked *model.User
	now := s.now()

	err := s.uow.Run(ctx, func(opts ...utils.DBOption) error {
		tok, err := s.chatLinkTokenRepo.Get(ctx, token, opts...)
		if err != nil {
			return fmt.Errorf("get link token: %w", err)
		}
		if tok == nil || tok.UsedAt != nil || !now.Before(tok.ExpiresAt) {
			return newError(ErrInvalidLinkToken, "link token is invalid or expired")
		}

		redeemed, err := s.chatLinkTokenRepo.MarkUsed(ctx, token, now, opts...)
		if err != nil {
			return fmt.Errorf("mark link token used: %w", err)
		}
		if !redeemed {
			return newError(ErrInvalidLinkToken, "link token is invalid or expired")
		}

		user, err := s.userRepo.GetByID(ctx, tok.UserID, opts...)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		if user == nil {
			return newError(ErrInvalidLinkToken, "link token is invalid or expired")
		}

		link, err := s.chatLinkRepo.GetByChatID(ctx, chatID, opts...)
		if err != nil {
			return fmt.Errorf("get chat link: %w", err)
		}

		// a user owns at most one chat; moving to this chat drops the old one
		previous, err := s.chatLinkRepo.GetByUserID(ctx, user.ID, opts...)
		if err != nil {
			return fmt.Errorf("get user chat link: %w", err)
		}
		if previous != nil && previous.ChatID != chatID {
			if err := s.chatLinkRepo.Delete(ctx, previous.ID, opts...); err != nil {
				return fmt.Errorf("drop previous chat link: %w", err)
			}
		}

		if link == nil {
			err = s.chatLinkRepo.Create(ctx, &model.ChatLink{UserID: &user.ID, ChatID: chatID, DisplayName: displayName}, opts...)
		} else {
			link.UserID = &user.ID
			if displayName != "" {
				link.DisplayName = displayName
			}
			err = s.chatLinkRepo.Update(ctx, link, opts...)
		}
		if err != nil {
			return fmt.Errorf("save chat link: %w", err)
		}

		linked = user
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidLinkToken) {
			return nil, err
		}
		s.log.ErrorContext(ctx, "Failed to confirm chat link", logger.ErrorField(err), logger.Int64Field("chat_id", chatID))
		return nil, errInternal
	}

	s.log.InfoContext(ctx, "Chat linked with token",
		logger.Int64Field("chat_id", chatID),
		logger.UintField("user_id", linked.ID))
	return linked, nil
}

func (s *identityService) ResolveUserByChat(ctx context.Context, chatID int64) (*model.User, error) {
	link, err := s.chatLinkRepo.GetByChatID(ctx, chatID)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to resolve chat", logger.ErrorField(err), logger.Int64Field("chat_id", chatID))
		return nil, errInternal
	}
	if link == nil || link.UserID == nil || link.User == nil {
		return nil, newError(ErrNotLinked, "this chat is not linked yet, send /start first")
	}
	return link.User, nil
}
