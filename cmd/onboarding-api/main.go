package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"launchpad/student-portal/onboarding-backend/internal/auth"
	"launchpad/student-portal/onboarding-backend/internal/config"
	"launchpad/student-portal/onboarding-backend/internal/connections"
	"launchpad/student-portal/onboarding-backend/internal/events"
	"launchpad/student-portal/onboarding-backend/internal/wizard"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load .env before the config reads the environment
	if err := godotenv.Load(); err == nil {
		logger.Info("Loaded environment from .env")
	}

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.Auth.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	// Connect to database
	db, err := sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxConnections)
	}
	if cfg.Database.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}

	// Initialize the onboarding core
	hub := events.NewHub(logger, cfg.Onboarding.AllowedOrigins)
	defer hub.Close()

	repo := wizard.NewPostgresRepository(db)
	store := wizard.NewStore(repo, logger)
	nav := wizard.NewNavigator(store, logger,
		wizard.WithAdvanceDelay(cfg.Onboarding.AdvanceDelay()),
		wizard.WithEvents(hub),
	)

	providers := []connections.Provider{
		connections.NewGitHubProvider(cfg.Providers.GitHubClientID, cfg.Providers.GitHubRedirectURI),
		connections.NewLinkedInProvider(cfg.Providers.LinkedInClientID, cfg.Providers.LinkedInRedirectURI),
	}

	wizardHandler := wizard.NewHandler(nav, providers, logger)

	// Setup Router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(cfg.Onboarding.AllowedOrigins))

	// Register Routes
	api := router.Group("/api/v1")
	api.Use(auth.Middleware(cfg.Auth.JWTSecret))
	{
		wizardHandler.RegisterRoutes(api)

		api.GET("/onboarding/ws", func(c *gin.Context) {
			session, ok := auth.SessionFromContext(c)
			if !ok {
				c.AbortWithStatus(http.StatusUnauthorized)
				return
			}
			if err := hub.Handle(c.Writer, c.Request, session.UserID); err != nil {
				logger.Warn("WebSocket upgrade failed", zap.Error(err))
			}
		})
	}

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	// Start Server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	logger.Info("Onboarding API started", zap.Int("port", cfg.Server.Port))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

// corsMiddleware allows the student portal front end to call the API.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		for _, allowed := range allowedOrigins {
			if origin == allowed {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
				c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
				break
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
