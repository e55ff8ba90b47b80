// Package api exposes a thin read-only HTTP surface over the engine:
// signal, streak and metrics snapshots, plus a JWT-guarded admin
// endpoint to pause and resume ingestion. The engine itself never
// depends on this package.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"trading-core/internal/ingestion"
	"trading-core/internal/model"
	"trading-core/internal/monitor"
	"trading-core/internal/outcome"
	"trading-core/internal/streak"
)

// SignalReader serves historical signal rows; the sqlite store
// implements it.
type SignalReader interface {
	RecentSignals(ctx context.Context, limit int) ([]model.Signal, error)
}

// Server bundles the snapshot providers behind the HTTP surface.
type Server struct {
	engine   *gin.Engine
	pipeline *ingestion.Pipeline
	outcomes *outcome.Tracker
	streaks  *streak.Tracker
	metrics  *monitor.EngineMetrics
	signals  SignalReader
}

// NewServer builds the router. jwtSecret guards the admin group.
func NewServer(pipeline *ingestion.Pipeline, outcomes *outcome.Tracker, streaks *streak.Tracker,
	metrics *monitor.EngineMetrics, signals SignalReader, jwtSecret string) *Server {

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), CORSMiddleware(), RequestIDMiddleware(), RateLimitMiddleware())

	s := &Server{
		engine:   engine,
		pipeline: pipeline,
		outcomes: outcomes,
		streaks:  streaks,
		metrics:  metrics,
		signals:  signals,
	}

	apiGroup := engine.Group("/api")
	{
		apiGroup.GET("/status", s.getStatus)
		apiGroup.GET("/signals/active", s.getActiveSignals)
		apiGroup.GET("/signals/recent", s.getRecentSignals)
		apiGroup.GET("/streaks", s.getStreaks)
		apiGroup.GET("/stats", s.getStats)
		apiGroup.GET("/metrics", s.getMetrics)
	}

	admin := engine.Group("/api/admin", AuthMiddleware(jwtSecret))
	{
		admin.POST("/pause", s.postPause)
		admin.POST("/resume", s.postResume)
	}

	return s
}

// Run serves on the given port, blocking.
func (s *Server) Run(port string) error {
	return s.engine.Run(":" + port)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"phase":          s.pipeline.Phase(),
		"buffered_bars":  s.pipeline.Buffered(),
		"active_signals": s.outcomes.ActiveCount(),
	})
}

func (s *Server) getActiveSignals(c *gin.Context) {
	c.JSON(http.StatusOK, s.outcomes.Active())
}

func (s *Server) getRecentSignals(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	signals, err := s.signals.RecentSignals(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, signals)
}

func (s *Server) getStreaks(c *gin.Context) {
	c.JSON(http.StatusOK, s.streaks.All())
}

func (s *Server) getStats(c *gin.Context) {
	signals, err := s.signals.RecentSignals(c.Request.Context(), 500)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, outcome.Summarize(signals))
}

func (s *Server) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.metrics.GetSnapshot())
}

func (s *Server) postPause(c *gin.Context) {
	s.pipeline.Pause()
	c.JSON(http.StatusOK, gin.H{"phase": s.pipeline.Phase()})
}

func (s *Server) postResume(c *gin.Context) {
	if err := s.pipeline.Resume(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"phase": s.pipeline.Phase()})
}
