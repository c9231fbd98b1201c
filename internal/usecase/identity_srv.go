package usecase

import (
	"context"
	"fmt"
	"time"

	"eventhub/internal/data/entity"
	"eventhub/internal/data/repository"
	"eventhub/pkg/utils"

	"go.uber.org/zap"
)

type IdentityService interface {
	// Resolve returns the identity for a verified registrant email, creating
	// it as a participant on first login. Existing roles are kept.
	Resolve(ctx context.Context, email string) (*entity.User, error)
	// UpsertCredential creates or promotes an identity with a password.
	UpsertCredential(ctx context.Context, email, name, password string, role entity.UserRole) (*entity.User, error)
}

type identityService struct {
	userRepo repository.UserRepository
	regRepo  repository.RegistrationRepository
	now      func() time.Time
	log      *zap.Logger
}

func NewIdentityService(deps Deps) IdentityService {
	return &identityService{
		userRepo: deps.Repo.User,
		regRepo:  deps.Repo.Registration,
		now:      deps.Now,
		log:      deps.Log.With(zap.String("service", "identity")),
	}
}

func (s *identityService) Resolve(ctx context.Context, email string) (*entity.User, error) {
	email = utils.NormalizeEmail(email)

	reg, err := s.regRepo.FindLatestByEmail(ctx, email)
	if err != nil {
		s.log.Error("Failed to look up registrant", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("look up registrant: %w", err)
	}
	if reg == nil {
		s.log.Warn("Verified email has no registration", zap.String("email", email))
		return nil, fmt.Errorf("participant not found: %w", ErrNotFound)
	}

	now := s.now()
	user, err := s.userRepo.UpsertVerified(ctx, &entity.User{
		BaseNoDelete:  entity.NewBaseNoDelete(now),
		Email:         email,
		Name:          reg.FullName(),
		FirstName:     reg.FirstName,
		LastName:      reg.LastName,
		Role:          entity.RoleParticipant,
		EmailVerified: &now,
		LastLogin:     &now,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}

	s.log.Info("Identity resolved",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email),
		zap.String("role", string(user.Role)),
	)
	return user, nil
}

func (s *identityService) UpsertCredential(ctx context.Context, email, name, password string, role entity.UserRole) (*entity.User, error) {
	email = utils.NormalizeEmail(email)

	hash, err := utils.HashPassword(password)
	if err != nil {
		s.log.Error("Failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user, err := s.userRepo.UpsertCredential(ctx, &entity.User{
		BaseNoDelete: entity.NewBaseNoDelete(now),
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: &hash,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert credential: %w", err)
	}

	s.log.Info("Credential saved",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
	)
	return user, nil
}
