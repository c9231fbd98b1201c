package wire

import (
	"context"
	"net/http"
	"time"

	"eventhub/internal/adaptor"
	"eventhub/internal/data/repository"
	"eventhub/internal/usecase"
	"eventhub/pkg/middleware"
	"eventhub/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// App holds the wired router
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Wiring builds handlers and routes on top of an assembled service. ctx
// bounds background work such as the rate limiter sweep.
func Wiring(ctx context.Context, service *usecase.Service, repo *repository.Repository, config *utils.Config, logger *zap.Logger) *App {
	handler := adaptor.NewHandler(service, config, logger)

	router := setupRouter(ctx, handler, service, repo, config, logger)

	return &App{
		Router:  router,
		Service: service,
	}
}

func setupRouter(
	ctx context.Context,
	handler *adaptor.Handler,
	service *usecase.Service,
	repo *repository.Repository,
	config *utils.Config,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(config.App.AllowedOrigins))

	limiter := middleware.NewRateLimiter(ctx, rate.Limit(config.RateLimit.RPS), config.RateLimit.Burst)

	wireAuth(r, handler.Auth, service.Session, limiter, config, logger)
	wireAdmin(r, handler.Admin, service.Session, repo, config, logger)

	r.Get("/health", health(repo, logger))

	return r
}

func health(repo *repository.Repository, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo.DB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := repo.DB.Ping(ctx); err != nil {
				logger.Error("Health check: database unreachable", zap.Error(err))
				utils.ResponseUnavailable(w, "Database unavailable")
				return
			}
		}
		utils.ResponseSuccess(w, "OK", nil)
	}
}
