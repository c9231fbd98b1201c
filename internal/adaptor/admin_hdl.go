package adaptor

import (
	"net/http"

	"eventhub/internal/dto/request"
	"eventhub/internal/usecase"
	"eventhub/pkg/utils"

	"go.uber.org/zap"
)

type AdminHandler struct {
	service usecase.AuthService
	log     *zap.Logger
}

func NewAdminHandler(service usecase.AuthService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		log:     log.With(zap.String("handler", "admin")),
	}
}

// CleanupCodes handles POST /admin/otp/cleanup
func (h *AdminHandler) CleanupCodes(w http.ResponseWriter, r *http.Request) {
	response, err := h.service.CleanupCodes(r.Context())
	if err != nil {
		handleServiceError(w, h.log, err, "cleanup codes")
		return
	}

	if userID, ok := utils.GetUserIDFromContext(r.Context()); ok {
		h.log.Info("Code cleanup triggered",
			zap.String("user_id", userID.String()),
			zap.Int64("deleted", response.Deleted),
		)
	}

	utils.ResponseSuccess(w, "Cleanup completed", response)
}

// IssueAutoLogin handles POST /admin/auto-login
func (h *AdminHandler) IssueAutoLogin(w http.ResponseWriter, r *http.Request) {
	var req request.AutoLoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	response, err := h.service.IssueAutoLogin(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "issue auto-login")
		return
	}

	utils.ResponseCreated(w, "Auto-login token created", response)
}
