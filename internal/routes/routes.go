package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"authguard/internal/authz"
	"authguard/internal/handlers"
	"authguard/internal/middleware"
)

// SetupRoutes registers the public and role-guarded routes. loginLimit may be
// nil, in which case /login is not rate limited.
func SetupRoutes(
	r *gin.Engine,
	guard *middleware.Guard,
	loginLimit gin.HandlerFunc,
	authHandler *handlers.AuthHandler,
	verifyHandler *handlers.VerifyHandler,
	userHandler *handlers.UserHandler,
	resetHandler *handlers.PasswordResetHandler,
) *gin.Engine {
	// ---- public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if loginLimit != nil {
		r.POST("/login", loginLimit, authHandler.Login)
	} else {
		r.POST("/login", authHandler.Login)
	}
	r.POST("/register", authHandler.Register)
	r.POST("/register/confirm", verifyHandler.Confirm)
	r.POST("/register/resend", verifyHandler.Resend)
	r.POST("/password/forgot", resetHandler.Forgot)
	r.POST("/password/reset", resetHandler.Reset)

	// ---- both roles
	me := r.Group("/me", guard.RequireRole(authz.RequireBoth))
	{
		me.GET("", userHandler.Me)
		me.PUT("/password", userHandler.ChangePassword)
	}

	// ---- admin
	admin := r.Group("/admin", guard.RequireRole(authz.RequireAdmin))
	{
		admin.GET("/users", userHandler.ListUsers)
		admin.POST("/users", userHandler.CreateUser)
	}

	return r
}
