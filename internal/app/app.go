package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "authguard/docs"
	"authguard/internal/config"
	"authguard/internal/handlers"
	"authguard/internal/infra"
	"authguard/internal/logging"
	"authguard/internal/middleware"
	"authguard/internal/repositories"
	"authguard/internal/routes"
	"authguard/internal/services"
)

// Deps are the external resources the router is built on. DB and Cache may
// be nil: users then live in memory and login is not rate limited.
type Deps struct {
	DB       *sql.DB
	Cache    *redis.Client
	Notifier services.Notifier
	Logger   *slog.Logger
}

// Run loads configuration, connects to backing services and serves HTTP until
// SIGINT/SIGTERM.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(cfg.LogLevel)
	ctx := context.Background()

	deps := Deps{Logger: logger}

	// === DB ===
	if cfg.Database.DSN != "" {
		db, err := infra.OpenPostgres(ctx, cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Warn("close postgres", "error", err)
			}
		}()
		if err := repositories.EnsureSchema(ctx, db); err != nil {
			return err
		}
		deps.DB = db
	} else {
		logger.Warn("database.url is empty, users are kept in memory")
	}

	// === Redis ===
	if cfg.Redis.URL != "" {
		cache, err := infra.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
		deps.Cache = cache
	}

	// === Notifications ===
	deps.Notifier = buildNotifier(cfg, logger)

	router, err := NewRouter(cfg, deps)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    cfg.Address(),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server exited cleanly")
	return nil
}

// NewRouter wires repositories, services, guard and handlers into a gin
// engine. The only fatal configuration error is a missing signing secret.
func NewRouter(cfg *config.Config, deps Deps) (*gin.Engine, error) {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	// === Repos ===
	var (
		userRepo  repositories.UserRepository
		resetRepo repositories.PasswordResetRepository
	)
	if deps.DB != nil {
		userRepo = repositories.NewUserRepository(deps.DB)
		resetRepo = repositories.NewPasswordResetRepository(deps.DB)
	} else {
		userRepo = repositories.NewMemoryUserRepository()
		resetRepo = repositories.NewMemoryPasswordResetRepository()
	}

	// === Services ===
	tokens, err := services.NewTokenService([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("token service: %w", err)
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = services.NewLogNotifier(logger)
	}
	verification := services.NewVerificationService(userRepo, notifier, logger,
		services.WithNotifyTimeout(cfg.NotifyTimeout))
	authService := services.NewAuthService(userRepo, tokens, verification, logger, cfg.Auth.BcryptCost)
	resetService := services.NewPasswordResetService(userRepo, resetRepo, notifier, authService, logger,
		services.WithResetNotifyTimeout(cfg.NotifyTimeout))

	// === Handlers ===
	authHandler := handlers.NewAuthHandler(authService, logger)
	verifyHandler := handlers.NewVerifyHandler(verification, logger)
	userHandler := handlers.NewUserHandler(authService, logger)
	resetHandler := handlers.NewPasswordResetHandler(resetService, logger)

	guard := middleware.NewGuard(tokens, logger,
		middleware.WithDistinctForbidden(cfg.Auth.DistinctForbidden))

	var loginLimit gin.HandlerFunc
	if deps.Cache != nil {
		loginLimit = middleware.LoginRateLimit(deps.Cache, cfg.RateLimit.LoginPerMinute, logger)
	}

	// === Gin ===
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	if cfg.Server.Swagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	routes.SetupRoutes(router, guard, loginLimit, authHandler, verifyHandler, userHandler, resetHandler)
	return router, nil
}

// buildNotifier picks SMTP or a log sink and mirrors into Telegram when a bot
// is configured. A Telegram failure at startup only disables the mirror.
func buildNotifier(cfg *config.Config, logger *slog.Logger) services.Notifier {
	var primary services.Notifier
	if cfg.Email.DryRun || cfg.Email.SMTPHost == "" {
		logger.Info("email dry run, notifications are logged")
		primary = services.NewLogNotifier(logger)
	} else {
		primary = services.NewEmailNotifier(
			cfg.Email.SMTPHost,
			cfg.Email.SMTPPort,
			cfg.Email.SMTPUser,
			cfg.Email.SMTPPassword,
			cfg.Email.FromEmail,
		)
	}

	if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == 0 {
		return primary
	}
	tg, err := services.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if err != nil {
		logger.Warn("telegram notifier disabled", "error", err)
		return primary
	}
	return services.MultiNotifier(logger, primary, tg)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
