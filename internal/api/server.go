// Package api exposes the risk engine over HTTP and streams alerts over
// websockets.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/postop-risk-server/internal/domain"
	"github.com/postop-risk-server/internal/middleware"
	"github.com/postop-risk-server/internal/review"
	"github.com/postop-risk-server/internal/service"
)

// Server is the HTTP front end. The assessment repository and review store
// are optional; endpoints that need them return 503 when absent.
type Server struct {
	configManager domain.ConfigManager
	engine        *service.RiskEngine
	repo          domain.AssessmentRepository
	reviews       review.Store
	notifier      domain.AlertNotifier
	hub           *AlertHub
	log           *logrus.Logger
	router        *gin.Engine
	server        *http.Server
}

// Deps bundles the server's collaborators.
type Deps struct {
	ConfigManager domain.ConfigManager
	Engine        *service.RiskEngine
	Repository    domain.AssessmentRepository
	Reviews       review.Store
	Notifier      domain.AlertNotifier
	Logger        *logrus.Logger
}

// NewServer wires routes and middleware around the engine.
func NewServer(deps Deps) *Server {
	cfg := deps.ConfigManager.GetConfig()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.RateLimit(cfg.Server.RatePerSecond, cfg.Server.RateBurst))
	router.Use(corsMiddleware())

	s := &Server{
		configManager: deps.ConfigManager,
		engine:        deps.Engine,
		repo:          deps.Repository,
		reviews:       deps.Reviews,
		notifier:      deps.Notifier,
		hub:           NewAlertHub(deps.Logger),
		log:           deps.Logger,
		router:        router,
	}
	if s.notifier == nil {
		s.notifier = noopNotifier{}
	}

	s.setupRoutes()
	return s
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, *domain.RiskAlert) error { return nil }
func (noopNotifier) Close() error                                    { return nil }

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.log.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ws/alerts", s.hub.handleAlertStream)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/assessments", s.handleAssess)
		v1.GET("/assessments/:id", s.handleGetAssessment)

		v1.GET("/patients/:id/assessments", s.handleListAssessments)
		v1.GET("/patients/:id/alerts", s.handleListAlerts)
		v1.GET("/patients/:id/trend", s.handleTrend)
		v1.GET("/patients/:id/count", s.handleAssessmentCount)
		v1.POST("/patients/:id/reset-priors", s.handleResetPriors)
		v1.DELETE("/patients/:id", s.handleClearPatient)

		v1.POST("/alerts/:id/acknowledge", s.handleAcknowledgeAlert)

		v1.GET("/population/compare", s.handlePopulationCompare)
		v1.GET("/population/stats", s.handlePopulationStats)
		v1.GET("/population/profiles", s.handleBaselineProfiles)

		v1.GET("/thresholds", s.handleListThresholds)
		v1.POST("/thresholds", s.handleAddThreshold)
		v1.PUT("/thresholds/:metric", s.handleUpdateThreshold)
		v1.DELETE("/thresholds/:metric", s.handleRemoveThreshold)

		v1.POST("/indices/charlson", s.handleCharlson)
		v1.POST("/indices/lace", s.handleLACE)

		v1.POST("/reviews", s.handleSaveReview)
		v1.GET("/reviews", s.handleListReviews)
		v1.GET("/reviews/export", s.handleExportReviews)
		v1.POST("/reviews/import", s.handleImportReviews)
		v1.GET("/reviews/:alertID", s.handleGetReview)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"timestamp":    time.Now().UTC(),
		"ws_clients":   s.hub.ClientCount(),
		"cohort_size":  len(s.engine.BaselineProfiles()),
		"persistence":  s.repo != nil,
		"review_store": s.reviews != nil,
	})
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Correlation-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length, X-Correlation-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
