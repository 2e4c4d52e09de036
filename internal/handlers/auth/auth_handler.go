// internal/handlers/auth/auth_handler.go
package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"secureauth-service/internal/audit"
	"secureauth-service/internal/biometric"
	"secureauth-service/internal/domain/auth"
	"secureauth-service/internal/domain/security"
	xerrors "secureauth-service/internal/pkg/errors"
	"secureauth-service/internal/pkg/response"
	"secureauth-service/internal/service/login"
)

// Pusher broadcasts session-wide events to connected clients.
type Pusher interface {
	ForceLogout(reason string)
}

type AuthHandler struct {
	loginService *login.Service
	provider     *biometric.Provider
	trail        *audit.Trail
	pusher       Pusher
	logger       *zap.Logger
}

func NewAuthHandler(loginService *login.Service, provider *biometric.Provider, trail *audit.Trail, pusher Pusher, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		loginService: loginService,
		provider:     provider,
		trail:        trail,
		pusher:       pusher,
		logger:       logger,
	}
}

// SubmitCredentials handles the step 1 submit.
func (h *AuthHandler) SubmitCredentials(c *gin.Context) {
	var req auth.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	h.loginService.SetField(login.FieldEmail, req.Email)
	h.loginService.SetField(login.FieldPassword, req.Password)

	if errs := h.fieldErrors(login.FieldEmail, login.FieldPassword); len(errs) > 0 {
		response.Error(c, http.StatusBadRequest, "invalid input", nil, errs)
		return
	}

	snap, submitErr := h.loginService.Submit(c.Request.Context())
	h.respond(c, snap, submitErr)
}

// SubmitMethod handles the step 2 submit: channel choice plus the first
// code dispatch.
func (h *AuthHandler) SubmitMethod(c *gin.Context) {
	var req auth.SendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	h.loginService.SetField(login.FieldMethod, string(req.Method))
	fields := []login.Field{login.FieldMethod}
	if req.Method == auth.VerifyBySMS {
		h.loginService.SetField(login.FieldPhone, req.Phone)
		fields = append(fields, login.FieldPhone)
	}

	if errs := h.fieldErrors(fields...); len(errs) > 0 {
		response.Error(c, http.StatusBadRequest, "invalid input", nil, errs)
		return
	}

	snap, submitErr := h.loginService.Submit(c.Request.Context())
	h.respond(c, snap, submitErr)
}

// SubmitCode handles the step 3 submit.
func (h *AuthHandler) SubmitCode(c *gin.Context) {
	var req auth.VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	h.loginService.SetField(login.FieldCode, req.Code)
	if errs := h.fieldErrors(login.FieldCode); len(errs) > 0 {
		response.Error(c, http.StatusBadRequest, "invalid input", nil, errs)
		return
	}

	snap, submitErr := h.loginService.Submit(c.Request.Context())
	h.respond(c, snap, submitErr)
}

// ResendCode re-dispatches the verification code.
func (h *AuthHandler) ResendCode(c *gin.Context) {
	snap, err := h.loginService.Resend(c.Request.Context())
	h.respond(c, snap, err)
}

// GoBack steps the flow towards step 1.
func (h *AuthHandler) GoBack(c *gin.Context) {
	if !h.loginService.CanGoBack() {
		response.ValidationError(c, "nothing to go back to", nil)
		return
	}
	response.Success(c, http.StatusOK, "went back", h.loginService.GoBack())
}

// State returns the current flow snapshot plus the form affordances.
func (h *AuthHandler) State(c *gin.Context) {
	snap := h.loginService.State()
	response.Success(c, http.StatusOK, "current state", gin.H{
		"state":           snap,
		"can_go_back":     h.loginService.CanGoBack(),
		"loading":         h.loginService.Loading(),
		"biometric_ready": h.loginService.BiometricReady(c.Request.Context()),
	})
}

// Logout ends the session, clears persisted credentials and tells every
// connected client the session is over.
func (h *AuthHandler) Logout(c *gin.Context) {
	snap := h.loginService.Logout(c.Request.Context())
	if h.pusher != nil {
		h.pusher.ForceLogout("signed out")
	}
	response.Success(c, http.StatusOK, "logout successful", snap)
}

// BiometricLogin runs the biometric shortcut.
func (h *AuthHandler) BiometricLogin(c *gin.Context) {
	snap, err := h.loginService.BiometricLogin(c.Request.Context())
	h.respond(c, snap, err)
}

// BiometricRegister enrolls this device for the authenticated user.
func (h *AuthHandler) BiometricRegister(c *gin.Context) {
	descriptor, err := h.loginService.RegisterBiometric(c.Request.Context())
	if err != nil {
		h.logger.Warn("biometric registration failed", zap.Error(err))
		response.Error(c, http.StatusBadRequest, "biometric registration failed", err)
		return
	}

	response.Success(c, http.StatusCreated, "biometric credential registered", gin.H{
		"credential_id": descriptor.ID,
		"created_at":    descriptor.CreatedAt,
	})
}

// BiometricRemove clears the stored credential. Idempotent.
func (h *AuthHandler) BiometricRemove(c *gin.Context) {
	if err := h.provider.RemoveCredential(c.Request.Context()); err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to remove credential", err)
		return
	}
	response.Success(c, http.StatusOK, "biometric credential removed", nil)
}

// Device reports the local authenticator capabilities and trust status.
func (h *AuthHandler) Device(c *gin.Context) {
	ctx := c.Request.Context()
	response.Success(c, http.StatusOK, "device info", gin.H{
		"device":      h.provider.DeviceInfo(ctx),
		"fingerprint": h.provider.DeviceFingerprint(),
		"trusted":     h.provider.IsTrustedDevice(ctx),
	})
}

// TrustDevice flags this device as trusted for the authenticated user.
func (h *AuthHandler) TrustDevice(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.provider.TrustDevice(ctx); err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to trust device", err)
		return
	}

	h.trail.Record(security.EventDeviceTrusted, map[string]interface{}{
		"fingerprint": h.provider.DeviceFingerprint(),
		"ip_address":  c.ClientIP(),
	}, "")
	response.Success(c, http.StatusOK, "device trusted", nil)
}

// respond renders a flow outcome: 400 when the input was refused, 409
// when another submit is in flight, 401 when the attempt was rejected,
// 200 on progress.
func (h *AuthHandler) respond(c *gin.Context, snap auth.StateSnapshot, err error) {
	if err != nil {
		if xerrors.Is(err, xerrors.ErrRequestInFlight) {
			response.Conflict(c, "another request is already in flight", err)
			return
		}
		response.ValidationError(c, "invalid input", err)
		return
	}
	if snap.Error != "" {
		response.Error(c, http.StatusUnauthorized, "authentication failed", errors.New(snap.Error), snap)
		return
	}
	response.Success(c, http.StatusOK, "ok", snap)
}

func (h *AuthHandler) fieldErrors(fields ...login.Field) map[string]string {
	errs := map[string]string{}
	for _, field := range fields {
		if msg := h.loginService.FieldError(field); msg != "" {
			errs[string(field)] = msg
		}
	}
	return errs
}
