// Package api exposes scan results, history and cache state as JSON over
// HTTP for the dashboard.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rewired-gh/gescout/internal/cache"
	"github.com/rewired-gh/gescout/internal/ge"
	"github.com/rewired-gh/gescout/internal/logger"
	"github.com/rewired-gh/gescout/internal/models"
	"github.com/rewired-gh/gescout/internal/pipeline"
	"github.com/rewired-gh/gescout/internal/storage"
)

// Service is the scan backend the handlers call into.
type Service interface {
	Scan(ctx context.Context, opts pipeline.Options) (pipeline.Result, error)
	Names(ctx context.Context) (map[int64]string, error)
	Timeseries(ctx context.Context, itemID int64, step string) ([]models.TimeseriesPoint, error)
}

type Server struct {
	svc      Service
	cache    *cache.Cache
	store    *storage.Storage
	limits   *ge.BuyLimits
	defaults pipeline.Options
	custom   pipeline.Thresholds

	engine     *gin.Engine
	httpServer *http.Server
	started    time.Time
}

// NewServer builds the router. custom holds the configured Custom mode
// thresholds. store may be nil, in which case the alert and run endpoints
// return empty lists.
func NewServer(svc Service, c *cache.Cache, store *storage.Storage, limits *ge.BuyLimits, defaults pipeline.Options, custom pipeline.Thresholds, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	s := &Server{
		svc:      svc,
		cache:    c,
		store:    store,
		limits:   limits,
		defaults: defaults,
		custom:   custom,
		engine:   engine,
		started:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/presets", s.getPresets)
	api.GET("/items", s.getItems)
	api.GET("/items/:id/timeseries", s.getTimeseries)
	api.GET("/items/:id/backtest", s.getBacktest)
	api.GET("/correlation", s.getCorrelation)
	api.GET("/cache/stats", s.getCacheStats)
	api.DELETE("/cache", s.clearCache)
	api.GET("/alerts", s.getAlerts)
	api.GET("/runs", s.getRuns)
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("API server shutdown: %v", err)
		}
	}()

	logger.Info("Starting API server on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s -> %d (%v)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func (s *Server) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) getPresets(c *gin.Context) {
	presets := make([]gin.H, 0, len(pipeline.Presets))
	for _, mode := range pipeline.Modes() {
		presets = append(presets, gin.H{
			"mode":       mode,
			"thresholds": pipeline.Presets[mode],
		})
	}
	c.JSON(http.StatusOK, gin.H{"presets": presets})
}

func (s *Server) getCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.cache.Stats())
}

func (s *Server) clearCache(c *gin.Context) {
	pattern := c.Query("pattern")
	removed := s.cache.Clear(pattern)
	logger.Info("Cleared %d cache entries (pattern=%q)", removed, pattern)
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (s *Server) getAlerts(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return
	}
	if s.store == nil {
		c.JSON(http.StatusOK, gin.H{"alerts": []models.AlertRecord{}})
		return
	}
	alerts, err := s.store.RecentAlerts(limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

func (s *Server) getRuns(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return
	}
	if s.store == nil {
		c.JSON(http.StatusOK, gin.H{"runs": []models.ScanRun{}})
		return
	}
	runs, err := s.store.RecentRuns(limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func respondError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}
