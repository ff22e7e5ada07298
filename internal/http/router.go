package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	loginH *LoginHandler,
	userH *UserHandler,
	ssoH *SSOHandler,
	authRequired gin.HandlerFunc,
	corsOrigins []string,
	dbPing func(ctx context.Context) error,
) *gin.Engine {
	r := gin.New()

	// Middlewares básicos: logging, recovery y CORS.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), corsMiddleware(corsOrigins))

	r.GET("/healthz", func(c *gin.Context) {
		if err := dbPing(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/login/access-token", loginH.AccessToken)
	r.POST("/password-recovery/:email", loginH.RecoverPassword)
	r.POST("/reset-password/", loginH.ResetPassword)

	users := r.Group("/users")
	users.POST("/signup", userH.Signup)

	me := users.Group("/me", authRequired)
	me.GET("", userH.Me)
	me.PATCH("", userH.UpdateMe)
	me.DELETE("", userH.DeleteMe)
	me.PATCH("/password", userH.UpdatePasswordMe)

	byID := users.Group("/:id", authRequired)
	byID.GET("", userH.GetByID)
	byID.PATCH("", userH.UpdateByID)
	byID.DELETE("", userH.DeleteByID)

	// Endpoints de redirección SSO; las respuestas son 302, no JSON.
	ssoRoutes := r.Group("/sso/:provider")
	ssoRoutes.GET("/login", ssoH.Login)
	ssoRoutes.GET("/callback", ssoH.Callback)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// corsMiddleware habilita CORS para los orígenes configurados.
func corsMiddleware(origins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		allowed[origin] = struct{}{}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if _, ok := allowed[origin]; ok {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
