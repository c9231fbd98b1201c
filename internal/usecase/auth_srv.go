package usecase

import (
	"context"
	"fmt"

	"eventhub/internal/data/entity"
	"eventhub/internal/data/repository"
	"eventhub/internal/dto/request"
	"eventhub/internal/dto/response"
	"eventhub/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ProviderPassword  = "password"
	ProviderAutoLogin = "auto-login"
)

type AuthService interface {
	IssueCode(ctx context.Context, req *request.IssueCodeRequest) (*response.IssueCodeResponse, error)
	// VerifyCode consumes the code and resolves the identity in one
	// transaction, then materializes a session.
	VerifyCode(ctx context.Context, req *request.VerifyCodeRequest, meta ClientMeta) (*response.LoginResponse, *IssuedSession, error)
	CreateSession(ctx context.Context, req *request.CreateSessionRequest, current *utils.SessionIdentity, meta ClientMeta) (*response.SessionResponse, *IssuedSession, error)
	PasswordLogin(ctx context.Context, req *request.PasswordLoginRequest, meta ClientMeta) (*response.LoginResponse, *IssuedSession, error)
	Logout(ctx context.Context, current *utils.SessionIdentity) error
	Me(ctx context.Context, current *utils.SessionIdentity) (*response.SessionResponse, error)
	IssueAutoLogin(ctx context.Context, req *request.AutoLoginRequest) (*response.AutoLoginResponse, error)
	CleanupCodes(ctx context.Context) (*response.CleanupResponse, error)
	CreateAdmin(ctx context.Context, req *request.CreateAdminRequest) (*response.UserResponse, error)
}

type authService struct {
	repo     *repository.Repository
	otp      OTPService
	identity IdentityService
	session  SessionService
	config   *utils.Config
	log      *zap.Logger
}

func NewAuthService(deps Deps, otp OTPService, identity IdentityService, session SessionService) AuthService {
	return &authService{
		repo:     deps.Repo,
		otp:      otp,
		identity: identity,
		session:  session,
		config:   deps.Config,
		log:      deps.Log.With(zap.String("service", "auth")),
	}
}

func (s *authService) IssueCode(ctx context.Context, req *request.IssueCodeRequest) (*response.IssueCodeResponse, error) {
	issued, err := s.otp.Issue(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	return &response.IssueCodeResponse{
		Success:   true,
		EventName: issued.EventName,
		ExpiresAt: issued.ExpiresAt,
	}, nil
}

func (s *authService) VerifyCode(ctx context.Context, req *request.VerifyCodeRequest, meta ClientMeta) (*response.LoginResponse, *IssuedSession, error) {
	user, err := s.consumeAndResolve(ctx, req.Email, func(ctx context.Context, email string) error {
		_, err := s.otp.Verify(ctx, email, req.Code)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	issued, err := s.session.Materialize(ctx, user, entity.ProviderEmailOTP, meta)
	if err != nil {
		return nil, nil, err
	}

	return s.loginResponse(issued), issued, nil
}

func (s *authService) CreateSession(ctx context.Context, req *request.CreateSessionRequest, current *utils.SessionIdentity, meta ClientMeta) (*response.SessionResponse, *IssuedSession, error) {
	req.Email = utils.NormalizeEmail(req.Email)
	if err := validate(req); err != nil {
		return nil, nil, err
	}

	var (
		user     *entity.User
		provider string
		err      error
	)

	if req.UserID != "" {
		user, err = s.refreshTarget(ctx, req, current)
		provider = entity.ProviderEmailOTP
	} else {
		user, err = s.consumeAndResolve(ctx, req.Email, func(ctx context.Context, email string) error {
			_, err := s.otp.ConsumeAutoLogin(ctx, email, req.Token)
			return err
		})
		provider = ProviderAutoLogin
	}
	if err != nil {
		return nil, nil, err
	}

	issued, err := s.session.Materialize(ctx, user, provider, meta)
	if err != nil {
		return nil, nil, err
	}

	return &response.SessionResponse{
		Success:   true,
		User:      response.UserToResponse(issued.User),
		ExpiresAt: issued.ExpiresAt,
	}, issued, nil
}

func (s *authService) PasswordLogin(ctx context.Context, req *request.PasswordLoginRequest, meta ClientMeta) (*response.LoginResponse, *IssuedSession, error) {
	req.Email = utils.NormalizeEmail(req.Email)
	if err := validate(req); err != nil {
		return nil, nil, err
	}

	user, err := s.repo.User.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("find user: %w", err)
	}

	// OTP-only identities have no credential and cannot log in this way.
	if user == nil || !user.HasPassword() || !utils.CheckPasswordHash(req.Password, *user.PasswordHash) {
		s.log.Warn("Password login rejected", zap.String("email", req.Email))
		return nil, nil, ErrInvalidCredentials
	}

	issued, err := s.session.Materialize(ctx, user, ProviderPassword, meta)
	if err != nil {
		return nil, nil, err
	}

	return s.loginResponse(issued), issued, nil
}

func (s *authService) Logout(ctx context.Context, current *utils.SessionIdentity) error {
	if current == nil {
		return fmt.Errorf("authentication required: %w", ErrUnauthorized)
	}

	// The cookie is cleared regardless; a missing bookkeeping row is not an error.
	if err := s.session.Revoke(ctx, current.SessionID); err != nil {
		s.log.Warn("Failed to revoke session", zap.Error(err), zap.String("user_id", current.UserID.String()))
	}

	s.log.Info("User logged out", zap.String("user_id", current.UserID.String()))
	return nil
}

func (s *authService) Me(ctx context.Context, current *utils.SessionIdentity) (*response.SessionResponse, error) {
	if current == nil {
		return nil, fmt.Errorf("authentication required: %w", ErrUnauthorized)
	}

	user, err := s.repo.User.FindByID(ctx, current.UserID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found: %w", ErrNotFound)
	}

	return &response.SessionResponse{Success: true, User: response.UserToResponse(user)}, nil
}

func (s *authService) IssueAutoLogin(ctx context.Context, req *request.AutoLoginRequest) (*response.AutoLoginResponse, error) {
	issued, err := s.otp.IssueAutoLogin(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	return &response.AutoLoginResponse{
		Email:     issued.Email,
		Token:     issued.Code,
		ExpiresAt: issued.ExpiresAt,
	}, nil
}

func (s *authService) CleanupCodes(ctx context.Context) (*response.CleanupResponse, error) {
	deleted, err := s.otp.Cleanup(ctx)
	if err != nil {
		return nil, err
	}

	// Session rows are bookkeeping; a failed sweep does not fail the cleanup.
	sessions, err := s.session.Sweep(ctx)
	if err != nil {
		s.log.Warn("Session sweep failed", zap.Error(err))
	}

	return &response.CleanupResponse{Success: true, Deleted: deleted, SessionsDeleted: sessions}, nil
}

func (s *authService) CreateAdmin(ctx context.Context, req *request.CreateAdminRequest) (*response.UserResponse, error) {
	req.Email = utils.NormalizeEmail(req.Email)
	if err := validate(req); err != nil {
		return nil, err
	}

	user, err := s.identity.UpsertCredential(ctx, req.Email, req.Name, req.Password, entity.UserRole(req.Role))
	if err != nil {
		return nil, err
	}

	resp := response.UserToResponse(user)
	return &resp, nil
}

// ==================== HELPER METHODS ====================

// consumeAndResolve runs consume and identity resolution in one transaction
// so a failed resolution leaves the code unconsumed.
func (s *authService) consumeAndResolve(ctx context.Context, email string, consume func(ctx context.Context, email string) error) (*entity.User, error) {
	email = utils.NormalizeEmail(email)

	var user *entity.User
	err := s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := consume(ctx, email); err != nil {
			return err
		}
		u, err := s.identity.Resolve(ctx, email)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// refreshTarget checks that the caller is re-issuing their own session.
func (s *authService) refreshTarget(ctx context.Context, req *request.CreateSessionRequest, current *utils.SessionIdentity) (*entity.User, error) {
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, &ValidationError{Fields: map[string]string{"userId": "Must be a valid UUID"}}
	}

	if current == nil {
		return nil, fmt.Errorf("authentication required: %w", ErrUnauthorized)
	}
	if current.UserID != userID {
		s.log.Warn("Session create for another user",
			zap.String("caller", current.UserID.String()),
			zap.String("target", userID.String()),
		)
		return nil, fmt.Errorf("cannot create a session for another user: %w", ErrForbidden)
	}

	user, err := s.repo.User.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found: %w", ErrNotFound)
	}
	if user.Email != req.Email {
		return nil, fmt.Errorf("email does not match user: %w", ErrForbidden)
	}

	return user, nil
}

func (s *authService) loginResponse(issued *IssuedSession) *response.LoginResponse {
	return &response.LoginResponse{
		Success:     true,
		User:        response.UserToResponse(issued.User),
		RedirectURL: s.redirectFor(issued.User.Role),
		ExpiresAt:   issued.ExpiresAt,
	}
}

func (s *authService) redirectFor(role entity.UserRole) string {
	switch {
	case role.Elevated():
		return "/admin"
	case role == entity.RoleStaff:
		return "/staff/check-in"
	default:
		return s.config.App.PostLoginURL
	}
}
