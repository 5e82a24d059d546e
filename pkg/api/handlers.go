package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fraudsight/crosscheck/pkg/models"
	"github.com/fraudsight/crosscheck/pkg/validate"
)

// updateRelationshipsRequest is the body of PUT .../relationships. The new
// set replaces the declared relationships wholesale.
type updateRelationshipsRequest struct {
	Relationships []models.EntityRelationship `json:"relationships"`
}

// startInvestigation accepts an investigation request, validates it, and
// returns 202 with the new investigation id. Validation failures return 400
// and create nothing.
func (s *Server) startInvestigation(c *gin.Context) {
	var req models.InvestigationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body: " + err.Error()})
		return
	}

	inv, err := s.orch.Start(&req, author(c))
	if err != nil {
		status, msg := mapError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"investigation_id": inv.ID,
		"state":            inv.State(),
	})
}

// listInvestigations returns status views of every in-memory investigation.
func (s *Server) listInvestigations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"investigations": s.orch.List()})
}

// getStatus returns state, per-pair progress, and the trailing timeline.
func (s *Server) getStatus(c *gin.Context) {
	status, err := s.orch.Status(c.Param("id"))
	if err != nil {
		code, msg := mapError(err)
		c.JSON(code, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, status)
}

// getResults returns the final assessment; 409 while it is not ready.
func (s *Server) getResults(c *gin.Context) {
	assessment, err := s.orch.Results(c.Param("id"))
	if err != nil {
		code, msg := mapError(err)
		c.JSON(code, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, assessment)
}

// cancelInvestigation stops a running investigation; collected results are
// preserved and the investigation finishes PARTIAL.
func (s *Server) cancelInvestigation(c *gin.Context) {
	if err := s.orch.Cancel(c.Param("id"), author(c)); err != nil {
		code, msg := mapError(err)
		c.JSON(code, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"investigation_id": c.Param("id"), "cancelling": true})
}

// updateRelationships replaces the declared relationship set; rejected with
// 409 once relationship analysis has started.
func (s *Server) updateRelationships(c *gin.Context) {
	var req updateRelationshipsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body: " + err.Error()})
		return
	}

	id := c.Param("id")
	if err := s.orch.UpdateRelationships(id, req.Relationships, author(c)); err != nil {
		code, msg := mapError(err)
		c.JSON(code, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"investigation_id": id,
		"relationships":    len(req.Relationships),
	})
}

// getMetrics returns aggregate counters across all investigations.
func (s *Server) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.orch.Metrics())
}

// listArchive returns recently archived investigations, 503 when no archive
// is configured.
func (s *Server) listArchive(c *gin.Context) {
	if s.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no archive configured"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			code, msg := mapError(validate.NewValidationError("limit", "must be a positive integer"))
			c.JSON(code, gin.H{"error": msg})
			return
		}
		limit = parsed
	}

	records, err := s.archive.ListRecent(c.Request.Context(), limit)
	if err != nil {
		code, msg := mapError(err)
		c.JSON(code, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// getArchived returns one archived investigation.
func (s *Server) getArchived(c *gin.Context) {
	if s.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no archive configured"})
		return
	}

	record, err := s.archive.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		code, msg := mapError(err)
		c.JSON(code, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, record)
}
