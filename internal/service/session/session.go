package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/passgate/internal/apperrors"
	"github.com/nkiryanov/passgate/internal/logger"
	"github.com/nkiryanov/passgate/internal/models"
	"github.com/nkiryanov/passgate/internal/repository"
	"github.com/nkiryanov/passgate/internal/tokencodec"
)

const (
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Directory is where users are stored
// It may be local directory service or remote one behind the bridge
type Directory interface {
	Create(ctx context.Context, name string, username string, password string) (models.PublicUser, error)
	FindByID(ctx context.Context, id uuid.UUID) (models.PublicUser, error)
	ValidateLogin(ctx context.Context, username string, password string) (models.PublicUser, error)
}

// Token lifetimes, defaults are used if not set
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Service issues and verifies user sessions (token pairs)
type Service struct {
	codec     *tokencodec.Codec
	directory Directory
	logger    logger.Logger

	accessTTL  time.Duration
	refreshTTL time.Duration

	// Optional: refresh token is accepted once only if set
	ledger repository.RefreshLedger
}

type Option func(*Service)

// WithReuseDetection makes refresh tokens single use
func WithReuseDetection(ledger repository.RefreshLedger) Option {
	return func(s *Service) {
		s.ledger = ledger
	}
}

func NewService(cfg Config, codec *tokencodec.Codec, directory Directory, l logger.Logger, opts ...Option) (*Service, error) {
	if codec == nil || directory == nil {
		return nil, errors.New("codec and directory must not be nil")
	}

	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = defaultAccessTokenTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = defaultRefreshTokenTTL
	}
	if cfg.AccessTTL < tokencodec.MinTTL || cfg.RefreshTTL < tokencodec.MinTTL {
		return nil, fmt.Errorf("token lifetimes must be at least %s, got access=%s refresh=%s", tokencodec.MinTTL, cfg.AccessTTL, cfg.RefreshTTL)
	}

	s := &Service{
		codec:      codec,
		directory:  directory,
		logger:     l.With("component", "session"),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Register creates user in the directory
// Tokens are not issued, user has to login
func (s *Service) Register(ctx context.Context, name string, username string, password string) (models.PublicUser, error) {
	user, err := s.directory.Create(ctx, name, username, password)
	if err != nil {
		return models.PublicUser{}, hideTransport(err)
	}

	return user, nil
}

// ValidateCredentials returns user if password matches
// Unknown user and wrong password are the same "Invalid credentials" error
func (s *Service) ValidateCredentials(ctx context.Context, username string, password string) (models.PublicUser, error) {
	user, err := s.directory.ValidateLogin(ctx, username, password)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, apperrors.ErrUnauthorized),
		errors.Is(err, apperrors.ErrNotFound),
		errors.Is(err, apperrors.ErrBadRequest):
		return models.PublicUser{}, apperrors.Unauthorized("Invalid credentials").WithCause(err)
	default:
		return models.PublicUser{}, apperrors.Internal(fmt.Errorf("credentials lookup failed: %w", err))
	}
}

func (s *Service) Login(ctx context.Context, username string, password string) (models.TokenPair, error) {
	user, err := s.ValidateCredentials(ctx, username, password)
	if err != nil {
		return models.TokenPair{}, err
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return models.TokenPair{}, err
	}

	s.logger.Info("User logged in", "user_id", user.ID)
	return pair, nil
}

// Refresh exchanges valid refresh token for a new pair
// Whatever goes wrong the error is "Invalid refresh token"
func (s *Service) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	invalid := func(cause error) (models.TokenPair, error) {
		return models.TokenPair{}, apperrors.Unauthorized("Invalid refresh token").WithCause(cause)
	}

	claims, err := s.codec.Verify(refreshToken, tokencodec.KindRefresh)
	if err != nil {
		return invalid(err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return invalid(fmt.Errorf("subject is not user id: %w", err))
	}

	user, err := s.directory.FindByID(ctx, userID)
	if err != nil {
		return invalid(err)
	}

	// Token is spent only once the new pair can be issued to its owner
	if s.ledger != nil {
		err := s.ledger.Use(ctx, claims.ID, userID, claims.ExpiresAt)
		if err != nil {
			if errors.Is(err, apperrors.ErrRefreshTokenIsUsed) {
				s.logger.Warn("Refresh token reused", "user_id", userID, "token_id", claims.ID)
			} else {
				s.logger.Error("Refresh ledger failed", "error", err)
			}
			return invalid(err)
		}
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return invalid(err)
	}

	return pair, nil
}

// ValidateToken tells whether the access token is valid now
func (s *Service) ValidateToken(_ context.Context, accessToken string) bool {
	_, err := s.codec.Verify(accessToken, tokencodec.KindAccess)
	return err == nil
}

func (s *Service) issuePair(user models.PublicUser) (models.TokenPair, error) {
	claims := tokencodec.Claims{Subject: user.ID.String(), Username: user.Username}

	claims.Kind = tokencodec.KindAccess
	access, accessExp, err := s.codec.Sign(claims, s.accessTTL)
	if err != nil {
		return models.TokenPair{}, apperrors.Internal(err)
	}

	claims.Kind = tokencodec.KindRefresh
	refresh, refreshExp, err := s.codec.Sign(claims, s.refreshTTL)
	if err != nil {
		return models.TokenPair{}, apperrors.Internal(err)
	}

	return models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Bridge failures are internal for callers of the session service
func hideTransport(err error) error {
	if errors.Is(err, apperrors.ErrTransport) {
		return apperrors.Internal(err)
	}
	return err
}
