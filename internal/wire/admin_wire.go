package wire

import (
	"eventhub/internal/adaptor"
	"eventhub/internal/data/entity"
	"eventhub/internal/data/repository"
	"eventhub/pkg/middleware"
	"eventhub/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireAdmin(
	r chi.Router,
	adminHandler *adaptor.AdminHandler,
	sessions middleware.Authenticator,
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.AuthSession(sessions, config.Session.CookieName, log))
		r.Use(middleware.RequireRole(repo.User, log, entity.RoleAdmin, entity.RoleOrganizer))

		r.Post("/otp/cleanup", adminHandler.CleanupCodes)
		r.Post("/auto-login", adminHandler.IssueAutoLogin)
	})
}
