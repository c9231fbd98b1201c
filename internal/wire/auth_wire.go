package wire

import (
	"eventhub/internal/adaptor"
	"eventhub/pkg/middleware"
	"eventhub/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireAuth(
	r chi.Router,
	authHandler *adaptor.AuthHandler,
	sessions middleware.Authenticator,
	limiter *middleware.RateLimiter,
	config *utils.Config,
	log *zap.Logger,
) {
	cookie := config.Session.CookieName

	r.Route("/auth", func(r chi.Router) {
		// ==================== PUBLIC ROUTES ====================
		r.Group(func(r chi.Router) {
			r.Use(limiter.Limit)
			r.Post("/otp/issue", authHandler.IssueCode)
			r.Post("/otp/verify", authHandler.VerifyCode)
			r.Post("/login", authHandler.PasswordLogin)
		})

		// ==================== SESSION-AWARE ROUTES ====================
		// The handler decides what an absent session means.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalSession(sessions, cookie, log))
			r.Post("/session/create", authHandler.CreateSession)
			r.Post("/logout", authHandler.Logout)
		})

		// ==================== PROTECTED ROUTES ====================
		r.With(middleware.AuthSession(sessions, cookie, log)).Get("/session", authHandler.Me)
	})
}
