package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraudsight/crosscheck/pkg/agent"
	"github.com/fraudsight/crosscheck/pkg/config"
	"github.com/fraudsight/crosscheck/pkg/models"
	"github.com/fraudsight/crosscheck/pkg/orchestrator"
	"github.com/fraudsight/crosscheck/pkg/timeline"
)

// fixedAgent scores every entity the same, with an optional delay.
type fixedAgent struct {
	domain string
	score  float64
	delay  time.Duration
}

func (a *fixedAgent) Domain() string { return a.domain }

func (a *fixedAgent) Investigate(ctx context.Context, entity models.Entity, _ agent.InvestigationContext) (*models.InvestigationResult, error) {
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &models.InvestigationResult{
		EntityID:  entity.ID,
		Domain:    a.domain,
		Status:    models.ResultStatusSucceeded,
		RiskScore: a.score,
	}, nil
}

func newTestRouter(t *testing.T, agents ...agent.DomainAgent) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := agent.NewRegistry()
	for _, a := range agents {
		require.NoError(t, reg.Register(a))
	}

	cfg := config.Default()
	cfg.Orchestrator.InvestigationTimeout = config.Duration(5 * time.Second)
	cfg.Coordinator.AgentTimeout = config.Duration(time.Second)
	cfg.Coordinator.PhaseTimeout = config.Duration(2 * time.Second)

	orch := orchestrator.New(cfg, reg, timeline.NewRecorder())
	return NewServer(orch, nil).Router()
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func startRequestBody() map[string]any {
	return map[string]any{
		"entities": []map[string]any{
			{"id": "U1", "type": "user", "raw_value": "alice@example.com"},
			{"id": "D1", "type": "device", "raw_value": "fp-9921"},
		},
		"relationships": []map[string]any{
			{"source_id": "U1", "target_id": "D1", "relationship_type": "same_device", "strength": 0.9, "confidence": 0.95},
		},
		"boolean_logic":       "U1 AND D1",
		"investigation_scope": []string{"device"},
		"priority":            "high",
	}
}

func startInvestigation(t *testing.T, router *gin.Engine) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/v1/investigations", startRequestBody(),
		map[string]string{"X-Author": "analyst-7"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp struct {
		InvestigationID string `json:"investigation_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.InvestigationID)
	return resp.InvestigationID
}

func awaitState(t *testing.T, router *gin.Engine, id string, want models.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/investigations/"+id+"/status", nil, nil)
		if rec.Code != http.StatusOK {
			return false
		}
		var st struct {
			State models.State `json:"state"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
			return false
		}
		return st.State == want
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStartStatusResultsFlow(t *testing.T) {
	router := newTestRouter(t, &fixedAgent{domain: "device", score: 0.8})

	id := startInvestigation(t, router)
	awaitState(t, router, id, models.StateCompleted)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/investigations/"+id+"/results", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out models.MultiEntityRiskAssessment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, id, out.InvestigationID)
	assert.InDelta(t, 0.8, out.PerEntityScores["U1"], 1e-9)
	require.NotNil(t, out.Boolean)
	assert.True(t, out.Boolean.Value)

	// The accepting author is recorded on the timeline.
	rec = doJSON(t, router, http.MethodGet, "/api/v1/investigations/"+id+"/status", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "analyst-7")
}

func TestStartRejectsInvalidRequest(t *testing.T) {
	router := newTestRouter(t, &fixedAgent{domain: "device", score: 0.8})

	body := startRequestBody()
	body["boolean_logic"] = "U1 AND ghost"
	rec := doJSON(t, router, http.MethodPost, "/api/v1/investigations", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "undeclared entity")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/investigations", bytes.NewBufferString("{not json"))
	mal := httptest.NewRecorder()
	router.ServeHTTP(mal, req)
	assert.Equal(t, http.StatusBadRequest, mal.Code)
}

func TestStatusUnknownInvestigation(t *testing.T) {
	router := newTestRouter(t, &fixedAgent{domain: "device", score: 0.8})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/investigations/no-such-id/status", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResultsNotReadyConflicts(t *testing.T) {
	router := newTestRouter(t, &fixedAgent{domain: "device", score: 0.8, delay: 300 * time.Millisecond})

	id := startInvestigation(t, router)
	rec := doJSON(t, router, http.MethodGet, "/api/v1/investigations/"+id+"/results", nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCancelInvestigation(t *testing.T) {
	router := newTestRouter(t, &fixedAgent{domain: "device", score: 0.8, delay: time.Second})

	id := startInvestigation(t, router)
	rec := doJSON(t, router, http.MethodPost, "/api/v1/investigations/"+id+"/cancel", nil,
		map[string]string{"X-Author": "analyst-7"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	awaitState(t, router, id, models.StatePartial)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/investigations/"+id+"/cancel", nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateRelationshipsValidation(t *testing.T) {
	router := newTestRouter(t, &fixedAgent{domain: "device", score: 0.8})

	id := startInvestigation(t, router)
	awaitState(t, router, id, models.StateCompleted)

	// Referential integrity first: 400.
	rec := doJSON(t, router, http.MethodPut, "/api/v1/investigations/"+id+"/relationships",
		map[string]any{"relationships": []map[string]any{
			{"source_id": "U1", "target_id": "ghost", "relationship_type": "same_device", "strength": 0.5, "confidence": 0.5},
		}}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Valid set, but the investigation is already past relationship
	// analysis: 409.
	rec = doJSON(t, router, http.MethodPut, "/api/v1/investigations/"+id+"/relationships",
		map[string]any{"relationships": []map[string]any{}}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListInvestigationsAndMetrics(t *testing.T) {
	router := newTestRouter(t, &fixedAgent{domain: "device", score: 0.8})

	id := startInvestigation(t, router)
	awaitState(t, router, id, models.StateCompleted)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/investigations", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), id)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap models.MetricsSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 1, snap.StartedTotal)
	assert.Equal(t, 1, snap.CompletedTotal)
}

func TestArchiveEndpointsWithoutDatabase(t *testing.T) {
	router := newTestRouter(t, &fixedAgent{domain: "device", score: 0.8})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/archive", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/archive/some-id", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthWithoutDatabase(t *testing.T) {
	router := newTestRouter(t, &fixedAgent{domain: "device", score: 0.8})

	rec := doJSON(t, router, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestPrometheusEndpoint(t *testing.T) {
	router := newTestRouter(t, &fixedAgent{domain: "device", score: 0.8})

	rec := doJSON(t, router, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), fmt.Sprintf("%s_", "crosscheck"))
}
