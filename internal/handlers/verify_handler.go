package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"authguard/internal/models"
	"authguard/internal/services"
)

type VerifyHandler struct {
	verification services.VerificationService
	logger       *slog.Logger
}

func NewVerifyHandler(verification services.VerificationService, logger *slog.Logger) *VerifyHandler {
	return &VerifyHandler{verification: verification, logger: logger}
}

// @Summary      Confirm email
// @Description  Confirms the account with the outstanding verification code
// @Tags         Verification
// @Accept       json
// @Produce      json
// @Param        confirm  body      models.ConfirmRequest  true  "Email and code"
// @Success      200      {object}  map[string]string
// @Failure      400      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Router       /register/confirm [post]
func (h *VerifyHandler) Confirm(c *gin.Context) {
	var req models.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.verification.ConfirmCode(c.Request.Context(), req.Email, req.Code); err != nil {
		if statusFromError(err) == http.StatusInternalServerError {
			h.logger.ErrorContext(c.Request.Context(), "confirm failed", "error", err)
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "email verified"})
}

// @Summary      Resend code
// @Description  Issues a fresh verification code for an unverified account
// @Tags         Verification
// @Accept       json
// @Produce      json
// @Param        resend  body      models.ResendRequest  true  "Email"
// @Success      200     {object}  map[string]string
// @Failure      404     {object}  map[string]string
// @Failure      409     {object}  map[string]string
// @Router       /register/resend [post]
func (h *VerifyHandler) Resend(c *gin.Context) {
	var req models.ResendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.verification.Resend(c.Request.Context(), req.Email); err != nil {
		if statusFromError(err) == http.StatusInternalServerError {
			h.logger.ErrorContext(c.Request.Context(), "resend failed", "error", err)
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "verification code sent"})
}
