package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"authguard/internal/authz"
	"authguard/internal/middleware"
	"authguard/internal/models"
	"authguard/internal/services"
)

type UserHandler struct {
	service services.AuthService
	logger  *slog.Logger
}

func NewUserHandler(service services.AuthService, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: service, logger: logger}
}

// @Summary      Current user
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /me [get]
func (h *UserHandler) Me(c *gin.Context) {
	claims, ok := middleware.ClaimsFromGin(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	user, err := h.service.GetUser(c.Request.Context(), claims.Subject)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":       user,
		"role":       claims.Role,
		"expires_at": claims.ExpiresAt.Time,
	})
}

// @Summary      Change password
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      models.ChangePasswordRequest  true  "Current and new password"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /me/password [put]
func (h *UserHandler) ChangePassword(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		if statusFromError(err) == http.StatusInternalServerError {
			h.logger.ErrorContext(c.Request.Context(), "change password failed", "user_id", userID, "error", err)
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

// @Summary      List users
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page (1-based)"
// @Param        limit  query     int  false  "Page size (max 100)"
// @Success      200    {array}   models.User
// @Failure      401    {object}  map[string]string
// @Router       /admin/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	page := queryInt(c, "page", 1, 1, 1<<20)
	limit := queryInt(c, "limit", 10, 1, 100)

	users, err := h.service.ListUsers(c.Request.Context(), limit, (page-1)*limit)
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "list users failed", "error", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// @Summary      Create user
// @Description  Admin-only account creation with an explicit role
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      models.CreateUserRequest  true  "New user"
// @Success      201   {object}  models.User
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /admin/users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role, err := authz.ParseRole(req.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.service.CreateUser(c.Request.Context(), req.Email, req.Password, role)
	if err != nil {
		if statusFromError(err) == http.StatusInternalServerError {
			h.logger.ErrorContext(c.Request.Context(), "create user failed", "error", err)
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}
