package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventhub/internal/data/entity"
	"eventhub/internal/data/repository"
	"eventhub/pkg/token"
	"eventhub/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ClientMeta describes the client a session is issued to.
type ClientMeta struct {
	UserAgent string
	IPAddress string
}

// IssuedSession is a signed session token ready to be set as a cookie.
type IssuedSession struct {
	Token     string
	SessionID uuid.UUID
	ExpiresAt time.Time
	User      *entity.User
}

type SessionService interface {
	// Materialize signs a session token for user. Bookkeeping rows are
	// written best-effort and never fail the call.
	Materialize(ctx context.Context, user *entity.User, provider string, meta ClientMeta) (*IssuedSession, error)
	// Authenticate verifies a session token. It returns nil, nil for tokens
	// that are malformed, expired or revoked.
	Authenticate(ctx context.Context, raw string) (*utils.SessionIdentity, error)
	Revoke(ctx context.Context, sessionID uuid.UUID) error
	// Sweep deletes companion rows of sessions that expired over a week ago.
	Sweep(ctx context.Context) (int64, error)
}

type sessionService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	accountRepo repository.AccountRepository
	signer      *token.Signer
	now         func() time.Time
	log         *zap.Logger
}

func NewSessionService(deps Deps) SessionService {
	return &sessionService{
		userRepo:    deps.Repo.User,
		sessionRepo: deps.Repo.Session,
		accountRepo: deps.Repo.Account,
		signer:      deps.Signer,
		now:         deps.Now,
		log:         deps.Log.With(zap.String("service", "session")),
	}
}

func (s *sessionService) Materialize(ctx context.Context, user *entity.User, provider string, meta ClientMeta) (*IssuedSession, error) {
	signed, claims, err := s.signer.Sign(token.Subject{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   string(user.Role),
	})
	if err != nil {
		s.log.Error("Failed to sign session token", zap.Error(err), zap.String("user_id", user.ID.String()))
		return nil, fmt.Errorf("sign session: %w", err)
	}

	issued := &IssuedSession{
		Token:     signed,
		SessionID: claims.SessionID(),
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user,
	}

	s.persistBookkeeping(ctx, issued, provider, meta)

	s.log.Info("Session issued",
		zap.String("user_id", user.ID.String()),
		zap.String("session_id", issued.SessionID.String()),
		zap.String("provider", provider),
	)
	return issued, nil
}

func (s *sessionService) Authenticate(ctx context.Context, raw string) (*utils.SessionIdentity, error) {
	claims, err := s.signer.Verify(raw)
	if err != nil {
		s.log.Debug("Session token rejected", zap.Error(err))
		return nil, nil
	}

	sessionID := claims.SessionID()
	if sessionID != uuid.Nil {
		revoked, err := s.sessionRepo.IsRevoked(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("check session: %w", err)
		}
		if revoked {
			s.log.Warn("Revoked session presented", zap.String("session_id", sessionID.String()))
			return nil, nil
		}
	}

	return &utils.SessionIdentity{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Role:      claims.Role,
		SessionID: sessionID,
	}, nil
}

func (s *sessionService) Revoke(ctx context.Context, sessionID uuid.UUID) error {
	if sessionID == uuid.Nil {
		return nil
	}
	if err := s.sessionRepo.Revoke(ctx, sessionID); err != nil {
		return fmt.Errorf("revoke session %s: %w", sessionID, err)
	}
	s.log.Info("Session revoked", zap.String("session_id", sessionID.String()))
	return nil
}

func (s *sessionService) Sweep(ctx context.Context) (int64, error) {
	deleted, err := s.sessionRepo.CleanExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	return deleted, nil
}

// persistBookkeeping logs and swallows every failure: the signed token alone
// authenticates the immediate request.
func (s *sessionService) persistBookkeeping(ctx context.Context, issued *IssuedSession, provider string, meta ClientMeta) {
	now := s.now()
	user := issued.User

	var errs []error

	if err := s.accountRepo.Ensure(ctx, &entity.Account{
		BaseSimple:        entity.NewBaseSimple(now),
		UserID:            user.ID,
		Provider:          provider,
		ProviderAccountID: user.Email,
	}); err != nil {
		errs = append(errs, fmt.Errorf("account: %w", err))
	}

	if err := s.sessionRepo.Create(ctx, &entity.Session{
		BaseSimple: entity.NewBaseSimple(now),
		UserID:     user.ID,
		Token:      issued.SessionID,
		UserAgent:  optional(meta.UserAgent),
		IPAddress:  optional(meta.IPAddress),
		ExpiresAt:  issued.ExpiresAt,
	}); err != nil {
		errs = append(errs, fmt.Errorf("session: %w", err))
	}

	if err := s.userRepo.TouchLastLogin(ctx, user.ID, now); err != nil {
		errs = append(errs, fmt.Errorf("last login: %w", err))
	} else {
		user.LastLogin = &now
	}

	if err := errors.Join(errs...); err != nil {
		s.log.Warn("Session bookkeeping incomplete",
			zap.Error(err),
			zap.String("user_id", user.ID.String()),
		)
	}
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
