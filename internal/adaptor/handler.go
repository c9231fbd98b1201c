package adaptor

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"eventhub/internal/usecase"
	"eventhub/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Auth  *AuthHandler
	Admin *AdminHandler
}

func NewHandler(service *usecase.Service, config *utils.Config, log *zap.Logger) *Handler {
	cookies := newSessionCookies(config)
	return &Handler{
		Auth:  NewAuthHandler(service.Auth, cookies, log),
		Admin: NewAdminHandler(service.Auth, log),
	}
}

// decodeAndValidate writes a 400 and returns false when the body is not
// valid JSON or fails struct validation.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return false
	}

	if validationErrors := utils.ValidateStruct(dst); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return false
	}
	return true
}

// handleServiceError maps service errors to responses. Unknown errors are
// dependency failures and never reach the client verbatim.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	var validationErr *usecase.ValidationError

	switch {
	case errors.As(err, &validationErr):
		log.Warn(operation+" validation failed", zap.Error(err))
		utils.ResponseBadRequest(w, "Validation failed", validationErr.Fields)

	case errors.Is(err, usecase.ErrValidation):
		log.Warn(operation+" validation failed", zap.Error(err))
		utils.ResponseBadRequest(w, publicMessage(err, usecase.ErrValidation), nil)

	case errors.Is(err, usecase.ErrInvalidCode):
		log.Warn(operation+" failed - invalid code")
		utils.ResponseUnauthorized(w, usecase.MsgInvalidCode)

	case errors.Is(err, usecase.ErrUnauthorized):
		log.Warn(operation+" failed - unauthorized", zap.Error(err))
		utils.ResponseUnauthorized(w, publicMessage(err, usecase.ErrUnauthorized))

	case errors.Is(err, usecase.ErrForbidden):
		log.Warn(operation+" failed - forbidden", zap.Error(err))
		utils.ResponseForbidden(w, publicMessage(err, usecase.ErrForbidden))

	case errors.Is(err, usecase.ErrNotFound):
		log.Warn(operation+" failed - not found", zap.Error(err))
		utils.ResponseNotFound(w, publicMessage(err, usecase.ErrNotFound))

	default:
		log.Error("Failed to "+operation, zap.Error(err), zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}

// publicMessage strips the trailing sentinel from a service error so
// "no registration found for this email: not found" reads as its prefix.
func publicMessage(err, sentinel error) string {
	msg := strings.TrimSuffix(err.Error(), ": "+sentinel.Error())
	return strings.ToUpper(msg[:1]) + msg[1:]
}

func clientMeta(r *http.Request) usecase.ClientMeta {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	return usecase.ClientMeta{UserAgent: r.UserAgent(), IPAddress: ip}
}

func currentIdentity(r *http.Request) *utils.SessionIdentity {
	identity, ok := utils.GetIdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	return &identity
}
