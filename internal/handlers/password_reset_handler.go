package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"authguard/internal/models"
	"authguard/internal/services"
)

type PasswordResetHandler struct {
	service services.PasswordResetService
	logger  *slog.Logger
}

func NewPasswordResetHandler(service services.PasswordResetService, logger *slog.Logger) *PasswordResetHandler {
	return &PasswordResetHandler{service: service, logger: logger}
}

// @Summary      Forgot password
// @Description  Emails a one-hour reset token. Always answers 200 for a well-formed email.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.ForgotPasswordRequest  true  "Email"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Router       /password/forgot [post]
func (h *PasswordResetHandler) Forgot(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.RequestReset(c.Request.Context(), req.Email); err != nil {
		if statusFromError(err) == http.StatusInternalServerError {
			h.logger.ErrorContext(c.Request.Context(), "password reset request failed", "error", err)
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "if the account exists, a reset email has been sent"})
}

// @Summary      Reset password
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.ResetPasswordRequest  true  "Token and new password"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Router       /password/reset [post]
func (h *PasswordResetHandler) Reset(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		if statusFromError(err) == http.StatusInternalServerError {
			h.logger.ErrorContext(c.Request.Context(), "password reset failed", "error", err)
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}
