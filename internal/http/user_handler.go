package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"accounts-api/internal/domain"
	"accounts-api/internal/service"
)

// UserHandler mantiene dependencias para endpoints de usuarios.
type UserHandler struct {
	logger   *zap.Logger
	userServ *service.UserService
}

func NewUserHandler(logger *zap.Logger, userServ *service.UserService) *UserHandler {
	return &UserHandler{
		logger:   logger,
		userServ: userServ,
	}
}

type updateUserRequest struct {
	Email       *string `json:"email" binding:"omitempty,email"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	PhoneNumber *string `json:"phone_number"`
	Status      *string `json:"status"`
	Password    *string `json:"password" binding:"omitempty,min=8,max=40"`
}

func (r updateUserRequest) toInput() service.UpdateInput {
	input := service.UpdateInput{
		Email:       r.Email,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		PhoneNumber: r.PhoneNumber,
		Password:    r.Password,
	}
	if r.Status != nil {
		status := domain.UserStatus(*r.Status)
		input.Status = &status
	}
	return input
}

// Signup maneja POST /users/signup.
func (h *UserHandler) Signup(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required,email"`
		Password    string `json:"password" binding:"required,min=8,max=40"`
		FirstName   string `json:"first_name"`
		LastName    string `json:"last_name"`
		PhoneNumber string `json:"phone_number"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid signup request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.userServ.Register(c.Request.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "the user with this email already exists in the system"})
			return
		}
		h.logger.Error("signup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create user"})
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Me maneja GET /users/me.
func (h *UserHandler) Me(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "could not validate credentials"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMe maneja PATCH /users/me.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "could not validate credentials"})
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid update request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	updated, err := h.userServ.Update(c.Request.Context(), user, req.toInput())
	if err != nil {
		h.respondUpdateError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteMe maneja DELETE /users/me.
func (h *UserHandler) DeleteMe(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "could not validate credentials"})
		return
	}
	if err := h.userServ.Delete(c.Request.Context(), user.ID); err != nil {
		h.logger.Error("delete user failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted successfully"})
}

// UpdatePasswordMe maneja PATCH /users/me/password.
func (h *UserHandler) UpdatePasswordMe(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "could not validate credentials"})
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password" binding:"required,min=8,max=40"`
		NewPassword     string `json:"new_password" binding:"required,min=8,max=40"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid password update request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	err := h.userServ.UpdatePassword(c.Request.Context(), user, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusBadRequest, gin.H{"error": "incorrect password"})
		case errors.Is(err, service.ErrSamePassword):
			c.JSON(http.StatusBadRequest, gin.H{"error": "new password cannot be the same as the current one"})
		default:
			h.logger.Error("update password failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update password"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated successfully"})
}

// GetByID maneja GET /users/:id.
func (h *UserHandler) GetByID(c *gin.Context) {
	user, err := h.userServ.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.logger.Error("get user failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not get user"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateByID maneja PATCH /users/:id.
func (h *UserHandler) UpdateByID(c *gin.Context) {
	target, err := h.userServ.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "the user with this id does not exist in the system"})
			return
		}
		h.logger.Error("get user failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not get user"})
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid update request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	updated, err := h.userServ.Update(c.Request.Context(), target, req.toInput())
	if err != nil {
		h.respondUpdateError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteByID maneja DELETE /users/:id. El usuario autenticado no puede
// borrarse a sí mismo por esta vía.
func (h *UserHandler) DeleteByID(c *gin.Context) {
	acting, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "could not validate credentials"})
		return
	}

	err := h.userServ.DeleteByAdmin(c.Request.Context(), acting.ID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSelfDelete):
			c.JSON(http.StatusForbidden, gin.H{"error": "users are not allowed to delete themselves"})
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			h.logger.Error("delete user failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete user"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted successfully"})
}

func (h *UserHandler) respondUpdateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "user with this email already exists"})
	case errors.Is(err, service.ErrInvalidEmail):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	default:
		h.logger.Error("update user failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update user"})
	}
}
