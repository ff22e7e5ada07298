package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"accounts-api/internal/domain"
	"accounts-api/internal/service"
)

const currentUserKey = "current_user"

// JWTAuthMiddleware valida el bearer token y carga el usuario en el contexto.
func JWTAuthMiddleware(tokenSvc *service.TokenService, userSvc *service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			c.JSON(http.StatusForbidden, gin.H{"error": "could not validate credentials"})
			c.Abort()
			return
		}

		token := strings.TrimSpace(header[len("Bearer "):])
		userID, err := tokenSvc.VerifyAccessToken(token)
		if err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "could not validate credentials"})
			c.Abort()
			return
		}

		user, err := userSvc.GetByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, service.ErrUserNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load user"})
			}
			c.Abort()
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// CurrentUser obtiene el usuario autenticado desde el contexto.
func CurrentUser(c *gin.Context) (domain.User, bool) {
	val, ok := c.Get(currentUserKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := val.(domain.User)
	return user, ok
}
