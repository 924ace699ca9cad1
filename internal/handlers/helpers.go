package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"authguard/internal/middleware"
	"authguard/internal/services"
)

// statusFromError maps service errors to HTTP statuses.
func statusFromError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrInvalidCode), errors.Is(err, services.ErrInvalidResetToken),
		errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrAlreadyExists), errors.Is(err, services.ErrAlreadyVerified):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError writes the error envelope; internal errors are not echoed.
func respondError(c *gin.Context, err error) {
	status := statusFromError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}

// callerID returns the subject of the guard-verified token.
func callerID(c *gin.Context) (string, bool) {
	claims, ok := middleware.ClaimsFromGin(c)
	if !ok || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

func queryInt(c *gin.Context, key string, def, min, max int) int {
	n, err := strconv.Atoi(c.DefaultQuery(key, strconv.Itoa(def)))
	if err != nil || n < min {
		return def
	}
	if n > max {
		return max
	}
	return n
}
