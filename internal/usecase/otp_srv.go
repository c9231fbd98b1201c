package usecase

import (
	"context"
	"fmt"
	"time"

	"eventhub/internal/data/entity"
	"eventhub/internal/data/repository"
	"eventhub/internal/notify"
	"eventhub/pkg/utils"

	"go.uber.org/zap"
)

const autoLoginTokenBytes = 24

// IssuedCode describes a freshly stored code. Code is only set for
// auto-login tokens, which are returned to the caller instead of mailed.
type IssuedCode struct {
	Email     string
	EventName string
	Code      string
	ExpiresAt time.Time
}

type OTPService interface {
	// Issue mails a fresh login code to a known registrant.
	Issue(ctx context.Context, email string) (*IssuedCode, error)
	// Verify consumes a live login code for email. Every failure is the same
	// ErrUnauthorized.
	Verify(ctx context.Context, email, code string) (*entity.OneTimeCode, error)
	IssueAutoLogin(ctx context.Context, email string) (*IssuedCode, error)
	ConsumeAutoLogin(ctx context.Context, email, token string) (*entity.OneTimeCode, error)
	// Cleanup deletes expired codes and used codes past the retention window.
	Cleanup(ctx context.Context) (int64, error)
}

type otpService struct {
	otpRepo  repository.OTPRepository
	regRepo  repository.RegistrationRepository
	sender   notify.Sender
	renderer *notify.Renderer
	config   *utils.Config
	now      func() time.Time
	log      *zap.Logger
}

func NewOTPService(deps Deps) OTPService {
	return &otpService{
		otpRepo:  deps.Repo.OTP,
		regRepo:  deps.Repo.Registration,
		sender:   deps.Sender,
		renderer: deps.Renderer,
		config:   deps.Config,
		now:      deps.Now,
		log:      deps.Log.With(zap.String("service", "otp")),
	}
}

func (s *otpService) Issue(ctx context.Context, email string) (*IssuedCode, error) {
	email = utils.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	reg, err := s.findRegistrant(ctx, email)
	if err != nil {
		return nil, err
	}

	code, err := utils.GenerateOTP(s.config.OTP.Length)
	if err != nil {
		s.log.Error("Failed to generate code", zap.Error(err))
		return nil, fmt.Errorf("generate code: %w", err)
	}

	otp, err := s.store(ctx, email, code, entity.OTPPurposeLogin, s.config.OTP.Expiry())
	if err != nil {
		return nil, err
	}

	msg, err := s.renderer.Render(email, notify.CodeParams{
		AppName:          s.config.App.Name,
		FirstName:        reg.FirstName,
		EventName:        reg.EventName,
		Code:             code,
		ExpiresInMinutes: s.config.OTP.ExpiryMinutes,
	})
	if err != nil {
		s.log.Error("Failed to render code email", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("render code email: %w", err)
	}

	if err := s.sender.Send(ctx, msg); err != nil {
		s.log.Error("Failed to deliver code", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("deliver code: %w", err)
	}

	s.log.Info("Login code issued",
		zap.String("email", email),
		zap.String("event", reg.EventName),
		zap.Time("expires_at", otp.ExpiresAt),
	)
	s.log.Debug("Login code value", zap.String("email", email), zap.String("code", code))

	return &IssuedCode{Email: email, EventName: reg.EventName, ExpiresAt: otp.ExpiresAt}, nil
}

func (s *otpService) Verify(ctx context.Context, email, code string) (*entity.OneTimeCode, error) {
	return s.consume(ctx, email, code, entity.OTPPurposeLogin)
}

func (s *otpService) IssueAutoLogin(ctx context.Context, email string) (*IssuedCode, error) {
	email = utils.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	reg, err := s.findRegistrant(ctx, email)
	if err != nil {
		return nil, err
	}

	tok, err := utils.GenerateURLToken(autoLoginTokenBytes)
	if err != nil {
		s.log.Error("Failed to generate auto-login token", zap.Error(err))
		return nil, err
	}

	otp, err := s.store(ctx, email, tok, entity.OTPPurposeAutoLogin, s.config.OTP.AutoLoginExpiry())
	if err != nil {
		return nil, err
	}

	s.log.Info("Auto-login token issued", zap.String("email", email), zap.Time("expires_at", otp.ExpiresAt))

	return &IssuedCode{Email: email, EventName: reg.EventName, Code: tok, ExpiresAt: otp.ExpiresAt}, nil
}

func (s *otpService) ConsumeAutoLogin(ctx context.Context, email, token string) (*entity.OneTimeCode, error) {
	return s.consume(ctx, email, token, entity.OTPPurposeAutoLogin)
}

func (s *otpService) Cleanup(ctx context.Context) (int64, error) {
	deleted, err := s.otpRepo.DeleteStale(ctx, s.now(), s.config.OTP.Retention())
	if err != nil {
		return 0, fmt.Errorf("cleanup codes: %w", err)
	}

	s.log.Info("Stale codes deleted", zap.Int64("deleted", deleted))
	return deleted, nil
}

// ==================== HELPER METHODS ====================

func (s *otpService) findRegistrant(ctx context.Context, email string) (*entity.Registration, error) {
	reg, err := s.regRepo.FindLatestByEmail(ctx, email)
	if err != nil {
		s.log.Error("Failed to look up registrant", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("look up registrant: %w", err)
	}
	if reg == nil {
		s.log.Warn("No registrant for email", zap.String("email", email))
		return nil, fmt.Errorf("no registration found for this email: %w", ErrNotFound)
	}
	return reg, nil
}

func (s *otpService) store(ctx context.Context, email, code string, purpose entity.OTPPurpose, ttl time.Duration) (*entity.OneTimeCode, error) {
	now := s.now()

	if s.config.OTP.InvalidatePrevious {
		n, err := s.otpRepo.InvalidateActive(ctx, email, purpose, now)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			s.log.Debug("Previous codes invalidated", zap.String("email", email), zap.Int64("count", n))
		}
	}

	otp := &entity.OneTimeCode{
		BaseSimple: entity.NewBaseSimple(now),
		Email:     email,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: now.Add(ttl),
		Used:      false,
	}

	if err := s.otpRepo.Create(ctx, otp); err != nil {
		return nil, err
	}
	return otp, nil
}

func (s *otpService) consume(ctx context.Context, email, code string, purpose entity.OTPPurpose) (*entity.OneTimeCode, error) {
	email = utils.NormalizeEmail(email)
	missing := map[string]string{}
	if email == "" {
		missing["email"] = "This field is required"
	}
	if code == "" {
		missing["code"] = "This field is required"
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Fields: missing}
	}

	otp, err := s.otpRepo.Consume(ctx, email, code, purpose, s.now())
	if err != nil {
		return nil, fmt.Errorf("consume code: %w", err)
	}
	if otp == nil {
		s.log.Warn("Code rejected", zap.String("email", email), zap.String("purpose", string(purpose)))
		return nil, invalidCode()
	}

	return otp, nil
}

func validateEmail(email string) error {
	if email == "" {
		return &ValidationError{Fields: map[string]string{"email": "This field is required"}}
	}
	if !utils.ValidateEmail(email) {
		return &ValidationError{Fields: map[string]string{"email": "Invalid email format"}}
	}
	return nil
}
