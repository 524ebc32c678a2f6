package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stock-forecast/config"
	"stock-forecast/internal/dto"
	"stock-forecast/internal/model"
	"stock-forecast/internal/repository"
	"stock-forecast/pkg/logger"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*model.User, error)
	Authenticate(ctx context.Context, username, password string) (*model.User, error)
	IssueToken(user *model.User) (*dto.TokenResponse, error)
	// ParseToken validates a bearer token and returns the user id it was issued for.
	ParseToken(token string) (uint, error)
	GetUser(ctx context.Context, userID uint) (*model.User, error)
}

type authService struct {
	cfg      *config.Config
	log      *logger.Logger
	now      func() time.Time
	validate *goValidator.Validate
	userRepo repository.UserRepository
}

func NewAuthService(cfg *config.Config, log *logger.Logger, now func() time.Time, userRepo repository.UserRepository) AuthService {
	return &authService{
		cfg:      cfg,
		log:      log,
		now:      now,
		validate: goValidator.New(),
		userRepo: userRepo,
	}
}

func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (*model.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validate.Struct(req); err != nil {
		return nil, newError(ErrValidation, "%s", validationMessage(err))
	}

	existing, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to look up username", logger.ErrorField(err))
		return nil, errInternal
	}
	if existing != nil {
		return nil, newError(ErrConflict, "username %q is already taken", req.Username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to hash password", logger.ErrorField(err))
		return nil, errInternal
	}
	hashed := string(hash)

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: &hashed,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// lost a race on the unique username index
		if taken, _ := s.userRepo.GetByUsername(ctx, req.Username); taken != nil {
			return nil, newError(ErrConflict, "username %q is already taken", req.Username)
		}
		s.log.ErrorContext(ctx, "Failed to create user", logger.ErrorField(err))
		return nil, errInternal
	}

	s.log.InfoContext(ctx, "User registered", logger.UintField("user_id", user.ID), logger.StringField("username", user.Username))
	return user, nil
}

func (s *authService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	invalid := newError(ErrUnauthorized, "invalid username or password")

	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to look up username", logger.ErrorField(err))
		return nil, errInternal
	}
	if user == nil || !user.HasPassword() {
		return nil, invalid
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, invalid
	}
	return user, nil
}

func (s *authService) IssueToken(user *model.User) (*dto.TokenResponse, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(user.ID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.API.TokenTTL)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.API.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &dto.TokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.cfg.API.TokenTTL.Seconds()),
	}, nil
}

func (s *authService) ParseToken(token string) (uint, error) {
	invalid := newError(ErrUnauthorized, "invalid or expired token")

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.API.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, invalid
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, invalid
	}
	return uint(id), nil
}

func (s *authService) GetUser(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to load user", logger.ErrorField(err), logger.UintField("user_id", userID))
		return nil, errInternal
	}
	if user == nil {
		return nil, newError(ErrNotFound, "user not found")
	}
	return user, nil
}

// validationMessage turns validator errors into one readable line.
func validationMessage(err error) string {
	var verrs goValidator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		case "email":
			msgs = append(msgs, field+" must be a valid email address")
		case "alphanum":
			msgs = append(msgs, field+" may only contain letters and digits")
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
