// Package api exposes the investigation engine over HTTP: starting and
// steering investigations, reading status, results, and metrics, and
// browsing the PostgreSQL archive when one is configured.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fraudsight/crosscheck/pkg/orchestrator"
	"github.com/fraudsight/crosscheck/pkg/store"
	"github.com/fraudsight/crosscheck/pkg/version"
)

// Server wires the HTTP routes to the orchestrator and optional archive.
type Server struct {
	orch    *orchestrator.Orchestrator
	archive *store.Store // nil when no database is configured
}

// NewServer creates the API server. archive may be nil.
func NewServer(orch *orchestrator.Orchestrator, archive *store.Store) *Server {
	return &Server{orch: orch, archive: archive}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), identityMiddleware())

	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/investigations", s.startInvestigation)
		v1.GET("/investigations", s.listInvestigations)
		v1.GET("/investigations/:id/status", s.getStatus)
		v1.GET("/investigations/:id/results", s.getResults)
		v1.POST("/investigations/:id/cancel", s.cancelInvestigation)
		v1.PUT("/investigations/:id/relationships", s.updateRelationships)
		v1.GET("/metrics", s.getMetrics)

		v1.GET("/archive", s.listArchive)
		v1.GET("/archive/:id", s.getArchived)
	}

	return router
}

// health reports process and archive health.
func (s *Server) health(c *gin.Context) {
	body := gin.H{
		"status":  "healthy",
		"version": version.Version,
	}

	if s.archive != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		dbHealth, err := s.archive.Health(ctx)
		body["database"] = dbHealth
		if err != nil {
			body["status"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
	}

	c.JSON(http.StatusOK, body)
}
