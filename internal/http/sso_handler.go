package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"accounts-api/internal/sso"
)

// SSOHandler expone los endpoints de redirección del login federado.
type SSOHandler struct {
	logger  *zap.Logger
	ssoServ *sso.Service
}

func NewSSOHandler(logger *zap.Logger, ssoServ *sso.Service) *SSOHandler {
	return &SSOHandler{
		logger:  logger,
		ssoServ: ssoServ,
	}
}

// Login maneja GET /sso/:provider/login.
func (h *SSOHandler) Login(c *gin.Context) {
	provider := c.Param("provider")
	next := c.Query("next")

	redirectURL, err := h.ssoServ.Initiate(provider, next)
	if err != nil {
		if errors.Is(err, sso.ErrUnknownProvider) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
			return
		}
		h.logger.Error("sso login failed", zap.String("provider", provider), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start sso login"})
		return
	}
	c.Redirect(http.StatusFound, redirectURL)
}

// Callback maneja GET /sso/:provider/callback. Siempre responde con una
// redirección; las fallas del intercambio quedan en el log.
func (h *SSOHandler) Callback(c *gin.Context) {
	provider := c.Param("provider")
	code := c.Query("code")
	state := c.Query("state")

	redirectURL := h.ssoServ.Callback(c.Request.Context(), provider, code, state)
	c.Redirect(http.StatusFound, redirectURL)
}
