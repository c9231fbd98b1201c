package adaptor

import (
	"net/http"
	"time"

	"eventhub/internal/dto/request"
	"eventhub/internal/usecase"
	"eventhub/pkg/utils"

	"go.uber.org/zap"
)

type AuthHandler struct {
	service usecase.AuthService
	cookies sessionCookies
	log     *zap.Logger
}

func NewAuthHandler(service usecase.AuthService, cookies sessionCookies, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		cookies: cookies,
		log:     log.With(zap.String("handler", "auth")),
	}
}

// IssueCode handles POST /auth/otp/issue
func (h *AuthHandler) IssueCode(w http.ResponseWriter, r *http.Request) {
	var req request.IssueCodeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	response, err := h.service.IssueCode(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "issue code")
		return
	}

	utils.ResponseSuccess(w, "Login code sent", response)
}

// VerifyCode handles POST /auth/otp/verify
func (h *AuthHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req request.VerifyCodeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	response, issued, err := h.service.VerifyCode(r.Context(), &req, clientMeta(r))
	if err != nil {
		handleServiceError(w, h.log, err, "verify code")
		return
	}

	h.cookies.set(w, issued, time.Now())
	utils.ResponseSuccess(w, "Login successful", response)
}

// CreateSession handles POST /auth/session/create
func (h *AuthHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req request.CreateSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	response, issued, err := h.service.CreateSession(r.Context(), &req, currentIdentity(r), clientMeta(r))
	if err != nil {
		handleServiceError(w, h.log, err, "create session")
		return
	}

	h.cookies.set(w, issued, time.Now())
	utils.ResponseSuccess(w, "Session created", response)
}

// PasswordLogin handles POST /auth/login
func (h *AuthHandler) PasswordLogin(w http.ResponseWriter, r *http.Request) {
	var req request.PasswordLoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	response, issued, err := h.service.PasswordLogin(r.Context(), &req, clientMeta(r))
	if err != nil {
		handleServiceError(w, h.log, err, "password login")
		return
	}

	h.cookies.set(w, issued, time.Now())
	utils.ResponseSuccess(w, "Login successful", response)
}

// Logout handles POST /auth/logout. The cookie is cleared even when the
// presented session is already invalid.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.clear(w)

	current := currentIdentity(r)
	if current == nil {
		utils.ResponseSuccess(w, "Logout successful", nil)
		return
	}

	if err := h.service.Logout(r.Context(), current); err != nil {
		handleServiceError(w, h.log, err, "logout")
		return
	}

	utils.ResponseSuccess(w, "Logout successful", nil)
}

// Me handles GET /auth/session
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	response, err := h.service.Me(r.Context(), currentIdentity(r))
	if err != nil {
		handleServiceError(w, h.log, err, "get session")
		return
	}

	utils.ResponseSuccess(w, "Session retrieved", response)
}
