package main

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/BrainStation-23/learnathon-leaderboard/internal/adapters"
	"github.com/BrainStation-23/learnathon-leaderboard/internal/cache"
	"github.com/BrainStation-23/learnathon-leaderboard/internal/cohort"
	"github.com/BrainStation-23/learnathon-leaderboard/internal/config"
	"github.com/BrainStation-23/learnathon-leaderboard/internal/dashboard"
	"github.com/BrainStation-23/learnathon-leaderboard/internal/database"
	"github.com/BrainStation-23/learnathon-leaderboard/internal/errors"
	"github.com/BrainStation-23/learnathon-leaderboard/internal/export"
	"github.com/BrainStation-23/learnathon-leaderboard/internal/ratelimit"
	"github.com/BrainStation-23/learnathon-leaderboard/internal/security"
)

// dashboardService is the service surface the HTTP handlers use
type dashboardService interface {
	Refresh(ctx context.Context) (*cohort.Snapshot, error)
	Snapshot(ctx context.Context) (*cohort.Snapshot, error)
	ApplyWebhook(deliveryID, repositoryID string, commits int) (bool, error)
}

// server bundles the handler dependencies
type server struct {
	svc     dashboardService
	cache   *cache.Cache
	limiter *ratelimit.RateLimiter
	db      *database.DB
	origins []string
}

// pushPayload is the subset of the GitHub push event the webhook needs
type pushPayload struct {
	Repository struct {
		Name string `json:"name"`
	} `json:"repository"`
	Commits []struct {
		ID string `json:"id"`
	} `json:"commits"`
}

func main() {
	// Structured logging setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("LEADERBOARD_CONFIG"))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.NewDB(cfg.Server.DataDir)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	redisClient, err := ratelimit.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		// The client degrades to in-memory limiting when Redis is unreachable
		slog.Warn("Redis unavailable, rate limiting uses in-memory fallback", "error", err)
	}
	defer redisClient.Close()

	limiter := ratelimit.NewRateLimiter(redisClient, ratelimit.Config{
		WebhookLimitPerMin: cfg.RateLimit.WebhookPerMin,
		IPLimitPerMin:      cfg.RateLimit.IPPerMin,
		BurstMultiplier:    2,
	})

	githubAdapter := adapters.NewGitHubAdapter(cfg.GitHub.Token)
	sonarAdapter := adapters.NewSonarAdapter(cfg.Sonar.Token, cfg.Sonar.Organization)

	aggregator := cohort.New(cohort.Config{
		ExcludedLogins: cfg.GitHub.ExcludedLogins,
	})

	svc := dashboard.NewService(dashboard.Config{
		Organization:      cfg.GitHub.Organization,
		SonarOrganization: cfg.Sonar.Organization,
	}, githubAdapter, sonarAdapter, repo, aggregator)

	srv := &server{
		svc:     svc,
		cache:   cache.NewCache(cfg.Cache.TTL),
		limiter: limiter,
		db:      db,
		origins: cfg.Server.AllowedOrigins,
	}

	r := setupRouter(srv)

	httpServer := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Server.Port),
		Handler: r,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}

// setupRouter wires middleware and routes onto a fresh engine
func setupRouter(s *server) *gin.Engine {
	r := gin.New()

	corsConfig := cors.DefaultConfig()
	if len(s.origins) == 1 && s.origins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = s.origins
	}
	r.Use(cors.New(corsConfig))

	r.Use(security.SecurityHeadersMiddleware())
	r.Use(security.RequestTimeoutMiddleware(30 * time.Second))
	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())
	r.Use(s.limiter.IPRateLimitMiddleware())
	r.Use(s.cache.Middleware("/leaderboard", "/stats", "/halloffame"))

	r.GET("/health", s.handleHealth)
	r.GET("/leaderboard", s.handleLeaderboard)
	r.GET("/leaderboard/export.csv", s.handleExportCSV)
	r.GET("/stats", s.handleStats)
	r.GET("/halloffame", s.handleHallOfFame)
	r.POST("/refresh", s.handleRefresh)
	r.POST("/webhook/github", s.limiter.WebhookRateLimitMiddleware(), s.handleWebhook)
	r.GET("/cache/stats", s.handleCacheStats)

	return r
}

func (s *server) handleHealth(c *gin.Context) {
	response := gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}
	if s.db != nil {
		response["database"] = s.db.GetPoolStats()
	}

	c.JSON(http.StatusOK, response)
}

func (s *server) handleLeaderboard(c *gin.Context) {
	snapshot, err := s.svc.Snapshot(c.Request.Context())
	if err != nil {
		appErr := errors.ToAppError(err)
		errors.LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard":  snapshot.Leaderboard,
		"total":        len(snapshot.Leaderboard),
		"generated_at": snapshot.GeneratedAt,
	})
}

func (s *server) handleExportCSV(c *gin.Context) {
	snapshot, err := s.svc.Snapshot(c.Request.Context())
	if err != nil {
		appErr := errors.ToAppError(err)
		errors.LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="leaderboard.csv"`)
	c.Status(http.StatusOK)

	if err := export.WriteLeaderboard(c.Writer, snapshot.Leaderboard); err != nil {
		slog.Error("CSV export failed mid-stream", "error", err)
	}
}

func (s *server) handleStats(c *gin.Context) {
	snapshot, err := s.svc.Snapshot(c.Request.Context())
	if err != nil {
		appErr := errors.ToAppError(err)
		errors.LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":        snapshot.Stats,
		"generated_at": snapshot.GeneratedAt,
	})
}

func (s *server) handleHallOfFame(c *gin.Context) {
	snapshot, err := s.svc.Snapshot(c.Request.Context())
	if err != nil {
		appErr := errors.ToAppError(err)
		errors.LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"hall_of_fame": snapshot.HallOfFame,
		"generated_at": snapshot.GeneratedAt,
	})
}

func (s *server) handleRefresh(c *gin.Context) {
	// A full cohort refresh outlives the per-request deadline
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	snapshot, err := s.svc.Refresh(ctx)
	if err != nil {
		appErr := errors.ToAppError(err)
		errors.LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	// Cached dashboard reads must not outlive the data they were built from
	s.cache.Clear()

	c.JSON(http.StatusOK, gin.H{
		"message":      "cohort refreshed",
		"repositories": len(snapshot.Leaderboard),
		"generated_at": snapshot.GeneratedAt,
	})
}

func (s *server) handleWebhook(c *gin.Context) {
	if event := c.GetHeader("X-GitHub-Event"); event != "push" {
		c.JSON(http.StatusOK, gin.H{"ignored": true, "event": event})
		return
	}

	deliveryID := c.GetHeader("X-GitHub-Delivery")
	if deliveryID == "" {
		appErr := errors.NewValidationError("missing X-GitHub-Delivery header")
		errors.LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	var payload pushPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		appErr := errors.NewValidationError("invalid push payload")
		errors.LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}
	if payload.Repository.Name == "" {
		appErr := errors.NewValidationError("push payload missing repository name")
		errors.LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	applied, err := s.svc.ApplyWebhook(deliveryID, payload.Repository.Name, len(payload.Commits))
	if err != nil {
		appErr := errors.ToAppError(err)
		if stderrors.Is(err, database.ErrRepositoryNotFound) {
			appErr = errors.NewNotFoundError("repository not tracked: " + payload.Repository.Name)
		}
		errors.LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	if applied {
		s.cache.Clear()
	}

	c.JSON(http.StatusOK, gin.H{
		"applied":  applied,
		"commits":  len(payload.Commits),
		"delivery": deliveryID,
	})
}

func (s *server) handleCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"response_cache": s.cache.Stats(),
		"rate_limiter":   s.limiter.GetStats(),
	})
}
