package usecase

import (
	"time"

	"eventhub/internal/data/repository"
	"eventhub/internal/notify"
	"eventhub/pkg/token"
	"eventhub/pkg/utils"

	"go.uber.org/zap"
)

// Deps are the collaborators shared by every service.
type Deps struct {
	Repo     *repository.Repository
	Config   *utils.Config
	Sender   notify.Sender
	Renderer *notify.Renderer
	Signer   *token.Signer
	Log      *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type Service struct {
	OTP      OTPService
	Identity IdentityService
	Session  SessionService
	Auth     AuthService
}

func NewService(deps Deps) *Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Renderer == nil {
		deps.Renderer = notify.MustDefaultRenderer()
	}

	otp := NewOTPService(deps)
	identity := NewIdentityService(deps)
	session := NewSessionService(deps)

	return &Service{
		OTP:      otp,
		Identity: identity,
		Session:  session,
		Auth:     NewAuthService(deps, otp, identity, session),
	}
}
