// Package router assembles the gin engine for the HTTP API.
package router

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/yukikurage/taskpick-api/internal/auth"
	"github.com/yukikurage/taskpick-api/internal/config"
	"github.com/yukikurage/taskpick-api/internal/constants"
	"github.com/yukikurage/taskpick-api/internal/handlers"
	"github.com/yukikurage/taskpick-api/internal/metrics"
	"github.com/yukikurage/taskpick-api/internal/middleware"
	"github.com/yukikurage/taskpick-api/internal/repository"
	"github.com/yukikurage/taskpick-api/internal/services"
	"github.com/yukikurage/taskpick-api/internal/utils"
)

// Dependencies are the pieces the router wires together.
type Dependencies struct {
	Config   *config.Config
	Users    repository.UserRepository
	Tasks    repository.TaskRepository
	Reasoner services.Reasoner
	Registry *prometheus.Registry
	Logger   *slog.Logger
}

// Server is the assembled engine plus the background work it owns.
type Server struct {
	Engine  *gin.Engine
	limiter *middleware.RateLimiter
}

// Close stops background work started by New.
func (s *Server) Close() {
	s.limiter.Stop()
}

// NewResolver builds the identity resolver for the configured auth mode.
func NewResolver(cfg *config.Config, issuer *auth.TokenIssuer) (auth.IdentityResolver, error) {
	switch cfg.AuthMode {
	case config.AuthModeToken:
		return auth.NewTokenResolver(issuer), nil
	case config.AuthModeHeader:
		return auth.NewHeaderResolver(), nil
	case config.AuthModeSession:
		return auth.NewSessionResolver(), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.AuthMode)
	}
}

// NewReasoner returns the OpenAI reasoner when an API key is configured and the mock otherwise.
func NewReasoner(cfg *config.Config) services.Reasoner {
	if cfg.OpenAIAPIKey == "" {
		return services.NewMockReasoner(cfg.AssistantMockDelay)
	}
	return services.NewOpenAIReasoner(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
}

func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	var store sessions.Store
	if cfg.RedisHost != "" {
		redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
		rs, err := redisStore.NewStore(
			10,    // Redis pool size
			"tcp", // network type
			redisAddr,
			"", // username (empty for default user)
			"", // password (empty = no password)
			[]byte(cfg.SessionSecret),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis store: %w", err)
		}
		store = rs
	} else {
		store = cookie.NewStore([]byte(cfg.SessionSecret))
	}

	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}

// New wires services, handlers and middleware into a gin engine.
func New(deps Dependencies) (*Server, error) {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	reasoner := deps.Reasoner
	if reasoner == nil {
		reasoner = NewReasoner(cfg)
	}

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	resolver, err := NewResolver(cfg, issuer)
	if err != nil {
		return nil, err
	}
	if cfg.AuthMode == config.AuthModeHeader {
		logger.Warn("AUTH_MODE=header trusts the user-id header without verification")
	}

	limiter, err := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.APIRatePerMin, cfg.AssistantRatePerMin),
	)
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector(registry)
	locks := utils.NewKeyedMutex()

	authService := services.NewAuthService(deps.Users, issuer, locks)
	userService := services.NewUserService(deps.Users, locks)
	taskService := services.NewTaskService(deps.Users, deps.Tasks, locks, cfg.PaginationMode)
	assistantService := services.NewAssistantService(taskService, reasoner, cfg.AssistantTimeout, collector)

	authHandler := handlers.NewAuthHandler(authService, resolver)
	userHandler := handlers.NewUserHandler(userService, resolver)
	taskHandler := handlers.NewTaskHandler(taskService)
	assistantHandler := handlers.NewAssistantHandler(assistantService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(collector.Middleware())
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	if cfg.AuthMode == config.AuthModeSession {
		store, err := newSessionStore(cfg)
		if err != nil {
			limiter.Stop()
			return nil, err
		}
		r.Use(sessions.Sessions(constants.SessionCookieName, store))
	}

	requireAuth := middleware.RequireAuth(resolver)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "taskpick API is running",
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler(registry)))

	// Auth routes
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/signup", authHandler.Signup)
		authGroup.POST("/signin", authHandler.Signin)

		protected := authGroup.Group("", requireAuth, limiter.General())
		protected.GET("/validate", authHandler.Validate)
		protected.GET("/authorize", authHandler.Authorize)
		protected.POST("/assistant", authHandler.RequestAssistant)
	}

	// Profile routes (protected)
	user := r.Group("/user", requireAuth, limiter.General())
	{
		user.GET("/me", userHandler.GetMe)
		user.PATCH("/me", userHandler.UpdateMe)
		user.DELETE("/me", userHandler.DeleteMe)
	}

	// Task routes (protected)
	tasks := r.Group("/tasks", requireAuth, limiter.General())
	{
		tasks.GET("", taskHandler.ListTasks)
		tasks.POST("", taskHandler.CreateTask)
		tasks.GET("/:id", taskHandler.GetTask)
		tasks.PATCH("/:id", taskHandler.UpdateTask)
		tasks.DELETE("/:id", taskHandler.DeleteTask)
	}

	// Assistant reports a missing identity as a bad request
	r.POST("/assistant", middleware.RequireIdentity(resolver), limiter.Assistant(), assistantHandler.Pick)

	return &Server{Engine: r, limiter: limiter}, nil
}
