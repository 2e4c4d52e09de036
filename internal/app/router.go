// internal/app/router.go
package app

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	authHandler "secureauth-service/internal/handlers/auth"
	securityHandler "secureauth-service/internal/handlers/security"
	wsHandler "secureauth-service/internal/handlers/websocket"
	"secureauth-service/internal/middleware"
)

type Handlers struct {
	AuthHandler     *authHandler.AuthHandler
	SecurityHandler *securityHandler.SecurityHandler
	WSHandler       *wsHandler.WebSocketHandler
	AuthMiddleware  *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)

	// ==================== Login Flow (public) ====================
	auth := api.Group("/auth")
	{
		auth.GET("/state", h.AuthHandler.State)
		auth.POST("/login/credentials", h.AuthHandler.SubmitCredentials)
		auth.POST("/login/method", h.AuthHandler.SubmitMethod)
		auth.POST("/login/code", h.AuthHandler.SubmitCode)
		auth.POST("/login/resend", h.AuthHandler.ResendCode)
		auth.POST("/login/back", h.AuthHandler.GoBack)
		auth.POST("/login/biometric", h.AuthHandler.BiometricLogin)
		auth.POST("/logout", h.AuthHandler.Logout)
		auth.GET("/device", h.AuthHandler.Device)
	}

	// ==================== Authenticated Routes ====================
	authProtected := api.Group("/auth")
	authProtected.Use(h.AuthMiddleware.Auth())
	{
		authProtected.POST("/biometric/register", h.AuthHandler.BiometricRegister)
		authProtected.DELETE("/biometric", h.AuthHandler.BiometricRemove)
		authProtected.POST("/device/trust", h.AuthHandler.TrustDevice)
	}

	// ==================== Security Audit ====================
	securityRoutes := api.Group("/security")
	securityRoutes.Use(h.AuthMiddleware.Auth())
	{
		securityRoutes.GET("/events", h.SecurityHandler.ListEvents)
	}
}
