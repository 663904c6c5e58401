package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"confluence-engine/internal/auth"
	"confluence-engine/internal/cache"
	"confluence-engine/internal/database"
	"confluence-engine/internal/events"
	"confluence-engine/internal/logging"
	"confluence-engine/internal/report"
	"confluence-engine/internal/service"
)

// RateLimiter provides simple in-memory rate limiting per endpoint
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int           // max requests
	window   time.Duration // time window
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	repo        *database.Repository
	evaluator   *service.Evaluator
	reports     *report.Generator
	cache       *cache.CacheService
	eventBus    *events.EventBus
	authService *auth.Service
	authEnabled bool
	rateLimiter *RateLimiter // evaluation endpoints hit the exchange, keep them bounded
	wsHub       *WSHub
	config      ServerConfig
	log         *logging.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	AllowedOrigins string
	ProductionMode bool
}

// NewServer creates a new API server
func NewServer(
	config ServerConfig,
	repo *database.Repository,
	evaluator *service.Evaluator,
	reports *report.Generator,
	cacheService *cache.CacheService, // Can be nil if Redis is disabled
	eventBus *events.EventBus,
	authService *auth.Service, // Can be nil if auth is disabled
) *Server {
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(traceMiddleware())

	corsConfig := cors.DefaultConfig()
	origins := allowedOrigins(config.AllowedOrigins)
	if len(origins) == 1 && origins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length"}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:      router,
		repo:        repo,
		evaluator:   evaluator,
		reports:     reports,
		cache:       cacheService,
		eventBus:    eventBus,
		authService: authService,
		authEnabled: authService != nil,
		rateLimiter: NewRateLimiter(60, time.Minute),
		config:      config,
		log:         logging.WithComponent("api"),
	}

	server.wsHub = NewWSHub(eventBus)
	server.setupRoutes()

	return server
}

func allowedOrigins(raw string) []string {
	if raw == "" {
		return []string{"http://localhost:5173", "http://localhost:8080"}
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// traceMiddleware stamps each request with a trace ID so downstream log
// lines of one request can be correlated
func traceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, _ := logging.WithTraceContext(c.Request.Context())
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Trace-ID", logging.TraceIDFromContext(ctx))
		c.Next()
	}
}

// rateLimitMiddleware limits requests per endpoint path
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		if !s.rateLimiter.Allow(path) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "Rate limit exceeded",
				"message": "Too many requests to this endpoint. Please slow down.",
				"path":    path,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	// Auth routes (public, no authentication required)
	if s.authEnabled {
		authGroup := s.router.Group("/api/auth")
		authGroup.POST("/login", s.handleLogin)
		authGroup.POST("/register", s.handleRegister)
	}

	// Auth status endpoint (always available, returns whether auth is enabled)
	s.router.GET("/api/auth/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"auth_enabled": s.authEnabled,
		})
	})

	// API routes (protected when auth is enabled)
	api := s.router.Group("/api")
	if s.authEnabled {
		api.Use(auth.Middleware(s.authService.JWT()))
	}

	{
		// Evaluation endpoints; these trigger exchange fetches
		evaluate := api.Group("/evaluate")
		evaluate.Use(s.rateLimitMiddleware())
		evaluate.POST("/:symbol", s.handleEvaluate)

		// Recommendation endpoints
		api.GET("/recommendations", s.handleGetRecommendations)
		api.GET("/recommendations/:symbol", s.handleGetRecommendation)

		// Evaluation detail and history
		api.GET("/evaluations/:symbol", s.handleGetEvaluation)
		api.GET("/evaluations/:symbol/history", s.handleGetEvaluationHistory)

		// Calibration profile endpoints
		api.GET("/profiles", s.handleGetProfiles)
		api.GET("/profiles/versions", s.handleListProfileVersions)
		if s.authEnabled {
			api.PUT("/profiles", auth.RequireAdmin(), s.handleUpdateProfiles)
		} else {
			api.PUT("/profiles", s.handleUpdateProfiles)
		}

		// Report endpoint
		api.GET("/report/:symbol", s.handleGetReport)

		// Watchlist endpoints
		api.GET("/watchlist", s.handleGetWatchlist)
		api.POST("/watchlist", s.handleAddToWatchlist)
		api.DELETE("/watchlist/:symbol", s.handleRemoveFromWatchlist)
	}

	// WebSocket endpoint for live evaluation events
	s.router.GET("/ws", s.handleWebSocket)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.log.Info("Starting HTTP server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// handleHealth returns server health status
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	status := gin.H{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}

	if s.repo != nil {
		if err := s.repo.HealthCheck(ctx); err != nil {
			status["status"] = "unhealthy"
			status["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		status["database"] = "healthy"
	} else {
		status["database"] = "disabled"
	}

	if s.cache != nil {
		if s.cache.IsHealthy() {
			status["cache"] = "healthy"
		} else {
			status["cache"] = "degraded"
		}
	} else {
		status["cache"] = "disabled"
	}

	status["ws_clients"] = s.wsHub.ClientCount()

	c.JSON(http.StatusOK, status)
}

// errorResponse is a helper to send error responses
func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}

// successResponse is a helper to send success responses
func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
