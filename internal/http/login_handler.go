package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"accounts-api/internal/service"
)

// LoginHandler mantiene dependencias para login y recuperación de contraseña.
type LoginHandler struct {
	logger   *zap.Logger
	userServ *service.UserService
	tokens   *service.TokenService
}

func NewLoginHandler(logger *zap.Logger, userServ *service.UserService, tokens *service.TokenService) *LoginHandler {
	return &LoginHandler{
		logger:   logger,
		userServ: userServ,
		tokens:   tokens,
	}
}

// AccessToken maneja POST /login/access-token (form OAuth2 password).
func (h *LoginHandler) AccessToken(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	user, err := h.userServ.Authenticate(c.Request.Context(), username, password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "incorrect email or password"})
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not login"})
		return
	}

	token, err := h.tokens.CreateAccessToken(user.ID)
	if err != nil {
		h.logger.Error("token issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// RecoverPassword maneja POST /password-recovery/:email.
func (h *LoginHandler) RecoverPassword(c *gin.Context) {
	emailAddr := c.Param("email")

	err := h.userServ.RecoverPassword(c.Request.Context(), emailAddr)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "the user with this email does not exist in the system"})
		case errors.Is(err, service.ErrInvalidEmail):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
		case errors.Is(err, service.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
		case errors.Is(err, service.ErrEmailSendFailure):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "email delivery unavailable"})
		default:
			h.logger.Error("password recovery failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start password recovery"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password recovery email sent"})
}

// ResetPassword maneja POST /reset-password/.
func (h *LoginHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"new_password" binding:"required,min=8,max=40"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid reset password request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	emailAddr, err := h.tokens.VerifyResetToken(req.Token)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token"})
		return
	}

	if err := h.userServ.ResetPassword(c.Request.Context(), emailAddr, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "the user with this email does not exist in the system"})
			return
		}
		h.logger.Error("reset password failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not reset password"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated successfully"})
}
