package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/mealplan/internal/domain"
	"github.com/timmy/mealplan/internal/orchestrator"
	"github.com/timmy/mealplan/internal/repository"
	"github.com/timmy/mealplan/internal/service"
	"github.com/timmy/mealplan/internal/source"
)

const secret = "s3cret"

type stubProcessor struct {
	result *orchestrator.BatchResult
	err    error
	calls  int
}

func (p *stubProcessor) ProcessBatch(context.Context) (*orchestrator.BatchResult, error) {
	p.calls++
	return p.result, p.err
}

type stubJobs map[string]*domain.MealPlanJob

func (s stubJobs) GetByID(_ context.Context, id string) (*domain.MealPlanJob, error) {
	if j, ok := s[id]; ok {
		return j, nil
	}
	return nil, repository.ErrJobNotFound
}

type stubImporter struct {
	stats *service.ImportStats
	src   source.Source
	opts  *service.ImportOptions
}

func (i *stubImporter) Import(_ context.Context, src source.Source, opts *service.ImportOptions) (*service.ImportStats, error) {
	i.src, i.opts = src, opts
	return i.stats, nil
}

type namedSource string

func (n namedSource) GetSourceID() string { return string(n) }

func (n namedSource) FetchBatch(context.Context, string, int) ([]source.RecipeItem, string, error) {
	return nil, "", nil
}

func newTestRouter(p *stubProcessor, jobs stubJobs, imp *stubImporter) http.Handler {
	deps := RouterDeps{Processor: p, Jobs: jobs}
	if imp != nil {
		deps.Importer = imp
		deps.Sources = map[string]source.Source{"seed": namedSource("jsonl:seed")}
	}
	return SetupRouter(deps, RouterConfig{Mode: "test", TriggerSecret: secret})
}

func do(t *testing.T, h http.Handler, method, path, auth, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestProcessJobs_Unauthorized(t *testing.T) {
	p := &stubProcessor{result: &orchestrator.BatchResult{}}
	h := newTestRouter(p, nil, nil)

	for _, auth := range []string{"", "Bearer wrong", "Basic " + secret, "Bearer "} {
		w := do(t, h, http.MethodGet, "/api/cron/process-jobs", auth, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, "auth=%q", auth)
	}
	assert.Zero(t, p.calls)
}

func TestProcessJobs_EmptySecretRejectsEverything(t *testing.T) {
	p := &stubProcessor{result: &orchestrator.BatchResult{}}
	h := SetupRouter(RouterDeps{Processor: p}, RouterConfig{Mode: "test"})

	w := do(t, h, http.MethodGet, "/api/cron/process-jobs", "Bearer ", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, p.calls)
}

func TestProcessJobs_Summary(t *testing.T) {
	p := &stubProcessor{result: &orchestrator.BatchResult{
		Processed: 2, Succeeded: 1, Failed: 1, Errors: []string{"job j2: boom"},
	}}
	h := newTestRouter(p, nil, nil)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		w := do(t, h, method, "/api/cron/process-jobs", "Bearer "+secret, "")
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, true, body["success"])
		assert.Equal(t, 2.0, body["processed"])
		assert.Equal(t, 1.0, body["succeeded"])
		assert.Equal(t, 1.0, body["failed"])
		assert.Equal(t, []interface{}{"job j2: boom"}, body["errors"])
		assert.Contains(t, body["duration"], "ms")
		assert.NotContains(t, body, "message")
	}
	assert.NotEmpty(t, do(t, h, http.MethodGet, "/api/cron/process-jobs", "Bearer "+secret, "").Header().Get("X-Request-ID"))
}

func TestProcessJobs_NoJobs(t *testing.T) {
	p := &stubProcessor{result: &orchestrator.BatchResult{}}
	w := do(t, newTestRouter(p, nil, nil), http.MethodGet, "/api/cron/process-jobs", "Bearer "+secret, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, 0.0, resp["processed"])
	assert.Equal(t, []interface{}{}, resp["errors"])
	assert.Equal(t, "No jobs to process", resp["message"])
}

func TestProcessJobs_TopLevelError(t *testing.T) {
	p := &stubProcessor{err: errors.New("database unreachable")}
	w := do(t, newTestRouter(p, nil, nil), http.MethodPost, "/api/cron/process-jobs", "Bearer "+secret, "")
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "database unreachable", resp["error"])
	assert.NotEmpty(t, resp["duration"])
}

func TestGetJob(t *testing.T) {
	jobs := stubJobs{"j1": {
		ID:              "j1",
		Status:          domain.JobStatusProcessing,
		CurrentPhase:    domain.PhaseBreakfasts,
		ProgressMessage: "Dinners part 2: 9 of 9 dinner recipes ready",
		Accumulated:     domain.RecipeList{{ID: "a"}, {ID: "b"}},
	}}
	h := newTestRouter(&stubProcessor{}, jobs, nil)

	w := do(t, h, http.MethodGet, "/api/v1/jobs/j1", "Bearer "+secret, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "processing", resp["status"])
	assert.Equal(t, 3.0, resp["current_phase"])
	assert.Equal(t, 2.0, resp["accumulated_recipes"])

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/jobs/missing", "Bearer "+secret, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/v1/jobs/j1", "", "").Code)
}

func TestImportEndpoints(t *testing.T) {
	imp := &stubImporter{stats: &service.ImportStats{TotalItems: 3, ImportedItems: 3}}
	h := newTestRouter(&stubProcessor{}, nil, imp)

	w := do(t, h, http.MethodPost, "/api/v1/admin/import", "Bearer "+secret, `{"source":"seed","limit":10,"force":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, imp.opts)
	assert.Equal(t, "jsonl:seed", imp.src.GetSourceID())
	assert.Equal(t, 10, imp.opts.Limit)
	assert.True(t, imp.opts.Force)

	w = do(t, h, http.MethodPost, "/api/v1/admin/import", "Bearer "+secret, `{"source":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/api/v1/admin/import/status", "Bearer "+secret, "")
	require.Equal(t, http.StatusOK, w.Code)
	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, false, status["is_running"])
	assert.Equal(t, "success", status["last_run_status"])
}

func TestHealth(t *testing.T) {
	w := do(t, newTestRouter(&stubProcessor{}, nil, nil), http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	h := SetupRouter(RouterDeps{
		Processor: &stubProcessor{},
		DBPing:    func(context.Context) error { return errors.New("no db") },
	}, RouterConfig{Mode: "test", TriggerSecret: secret})
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/health", "", "").Code)
}
