package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	authHTTP "github.com/crystallogic/accounts/internal/auth/http"
	authUseCase "github.com/crystallogic/accounts/internal/auth/usecase"
	"github.com/crystallogic/accounts/internal/config"
	userHTTP "github.com/crystallogic/accounts/internal/user/http"
)

// Server is the API HTTP server. Routes are wired in SetupRouter; Start and
// Shutdown manage the listener lifecycle.
type Server struct {
	config      *config.Config
	server      *http.Server
	router      *gin.Engine
	logger      *slog.Logger
	db          *sql.DB
	redisClient *redis.Client

	authUseCase       authUseCase.AuthUseCase
	authHandler       *authHTTP.AuthHandler
	userHandler       *userHTTP.UserHandler
	metricsMiddleware gin.HandlerFunc
}

// NewServer creates a new API server. The database and redis client are only
// used by the readiness probe; nil values report as unavailable components.
func NewServer(
	cfg *config.Config,
	db *sql.DB,
	redisClient *redis.Client,
	logger *slog.Logger,
	useCase authUseCase.AuthUseCase,
	authHandler *authHTTP.AuthHandler,
	userHandler *userHTTP.UserHandler,
	metricsMiddleware gin.HandlerFunc,
) *Server {
	return &Server{
		config:            cfg,
		logger:            logger,
		db:                db,
		redisClient:       redisClient,
		authUseCase:       useCase,
		authHandler:       authHandler,
		userHandler:       userHandler,
		metricsMiddleware: metricsMiddleware,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter builds the gin engine with all middleware and routes.
func (s *Server) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if s.metricsMiddleware != nil {
		router.Use(s.metricsMiddleware)
	}

	if corsMiddleware := createCORSMiddleware(
		s.config.CORSEnabled, s.config.CORSAllowOrigins, s.logger,
	); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	// Service endpoints
	router.GET("/", s.indexHandler)
	router.GET("/robots.txt", s.robotsHandler)
	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	// Token endpoint, unauthenticated, limited per source IP
	tokenHandlers := []gin.HandlerFunc{}
	if s.config.RateLimitTokenEnabled {
		tokenHandlers = append(tokenHandlers, authHTTP.TokenRateLimitMiddleware(
			s.config.RateLimitTokenRequestsPerSec,
			s.config.RateLimitTokenBurst,
			s.logger,
		))
	}
	tokenHandlers = append(tokenHandlers, s.authHandler.LoginHandler)
	router.POST("/v1/auth/token", tokenHandlers...)

	// Registration, unauthenticated
	router.POST("/v1/users", s.userHandler.CreateUserHandler)

	// Everything else requires a valid token for an active account
	protected := router.Group("/")
	protected.Use(authHTTP.AuthenticationMiddleware(s.authUseCase, s.logger))
	protected.Use(authHTTP.RequireActiveMiddleware(s.logger))
	if s.config.RateLimitEnabled {
		protected.Use(authHTTP.RateLimitMiddleware(
			s.config.RateLimitRequestsPerSec,
			s.config.RateLimitBurst,
			s.logger,
		))
	}

	protected.POST("/v1/auth/logout", s.authHandler.LogoutHandler)
	protected.GET("/v1/users", s.userHandler.ListUsersHandler)
	protected.GET("/v1/users/:user_id", s.userHandler.GetUserHandler)
	protected.GET("/v1/users/:user_id/ips", s.userHandler.ListUserIPsHandler)
	protected.PUT("/v1/users/:user_id", s.userHandler.UpdateUserHandler)
	protected.DELETE("/v1/users/:user_id", s.userHandler.DeleteUserHandler)

	return router
}

// Start starts the API server. Blocks until the listener stops.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		s.router = s.SetupRouter()
	}
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

func (s *Server) indexHandler(c *gin.Context) {
	c.String(http.StatusOK, "accounts service\n")
}

func (s *Server) robotsHandler(c *gin.Context) {
	c.String(http.StatusOK, "User-agent: *\nDisallow: /\n")
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the backing services answer. The database
// must be reachable; redis is reported but does not fail readiness, the
// service degrades without it rather than stopping.
func (s *Server) readinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	ready := true
	components := gin.H{}

	if s.db == nil {
		ready = false
		components["database"] = "error"
	} else if err := s.db.PingContext(ctx); err != nil {
		ready = false
		components["database"] = "error"
	} else {
		components["database"] = "ok"
	}

	if s.redisClient == nil {
		components["redis"] = "error"
	} else if err := s.redisClient.Ping(ctx).Err(); err != nil {
		components["redis"] = "error"
	} else {
		components["redis"] = "ok"
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": components,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": components,
	})
}
