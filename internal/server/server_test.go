package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/lorekeeper/internal/config"
	"github.com/agenthands/lorekeeper/internal/core"
	"github.com/agenthands/lorekeeper/internal/core/model"
	"github.com/agenthands/lorekeeper/internal/core/scan"
	"github.com/agenthands/lorekeeper/internal/store"
)

type MockJudge struct {
	Verdict string
}

func (m *MockJudge) JudgeContradiction(ctx context.Context, factA, factB string) (string, error) {
	return m.Verdict, nil
}

func newTestServer(t *testing.T) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	cfg := config.Default()
	cfg.Detection.JudgeDelayMS = 1
	srv := NewServer(core.NewDetector(st, &MockJudge{Verdict: "NO"}, cfg), st)
	return srv, srv.SetupRouter()
}

func do(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type ingestResponse struct {
	Fact  model.Fact                `json:"fact"`
	Group *model.ContradictionGroup `json:"group"`
}

func ingest(t *testing.T, r *gin.Engine, body string) ingestResponse {
	t.Helper()
	w := do(t, r, http.MethodPost, "/profiles/p1/facts", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp ingestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthz(t *testing.T) {
	_, r := newTestServer(t)
	w := do(t, r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestIngestFact(t *testing.T) {
	_, r := newTestServer(t)

	first := ingest(t, r, `{"content":"Nicky mains Hillbilly","confidence":75}`)
	assert.Nil(t, first.Group)
	assert.Equal(t, model.StatusActive, first.Fact.Status)
	assert.Equal(t, 75, first.Fact.Confidence)

	second := ingest(t, r, `{"content":"Nicky mains Ghostface","confidence":80,"source":"stream-7"}`)
	require.NotNil(t, second.Group)
	assert.Equal(t, second.Fact.ID, second.Group.PrimaryFact.ID)
	assert.Equal(t, model.StatusActive, second.Fact.Status)

	w := do(t, r, http.MethodGet, "/profiles/p1/facts?status=AMBIGUOUS", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Facts []model.Fact `json:"facts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Facts, 1)
	assert.Equal(t, first.Fact.ID, list.Facts[0].ID)
}

func TestIngestFact_DefaultConfidence(t *testing.T) {
	_, r := newTestServer(t)
	resp := ingest(t, r, `{"content":"Nicky grew up in Newark"}`)
	assert.Equal(t, model.DefaultConfidence, resp.Fact.Confidence)
}

func TestIngestFact_BadRequest(t *testing.T) {
	_, r := newTestServer(t)
	w := do(t, r, http.MethodPost, "/profiles/p1/facts", `{"confidence":80}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListFacts_BadQuery(t *testing.T) {
	_, r := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodGet, "/profiles/p1/facts?status=GONE", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodGet, "/profiles/p1/facts?limit=-1", "").Code)

	w := do(t, r, http.MethodGet, "/profiles/p1/facts", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"facts":[]}`, w.Body.String())
}

func TestCheckFact(t *testing.T) {
	srv, r := newTestServer(t)
	ctx := context.Background()
	a := &model.Fact{ProfileID: "p1", Content: "The stream starts at 8 PM", Confidence: 60}
	b := &model.Fact{ProfileID: "p1", Content: "The stream starts at 9 PM", Confidence: 60}
	require.NoError(t, srv.Store.InsertFact(ctx, a))
	require.NoError(t, srv.Store.InsertFact(ctx, b))

	w := do(t, r, http.MethodPost, "/profiles/p1/facts/"+b.ID+"/check", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Result        model.DetectionResult     `json:"result"`
		ProposedGroup *model.ContradictionGroup `json:"proposed_group"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Result.IsContradiction)
	require.NotNil(t, resp.ProposedGroup)

	// dry run: nothing grouped
	stored, err := srv.Store.GetFact(ctx, "p1", a.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ContradictionGroupID)

	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodPost, "/profiles/p1/facts/missing/check", "").Code)
}

func TestScanLifecycle(t *testing.T) {
	_, r := newTestServer(t)
	ingest(t, r, `{"content":"Nicky mains Nurse","confidence":70}`)

	w := do(t, r, http.MethodPost, "/profiles/p1/scans", "")
	require.Equal(t, http.StatusAccepted, w.Code)

	var job scan.Job
	require.Eventually(t, func() bool {
		w := do(t, r, http.MethodGet, "/profiles/p1/scans", "")
		return json.Unmarshal(w.Body.Bytes(), &job) == nil && job.Status == scan.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)
	require.NotNil(t, job.Result)
	assert.Equal(t, 1, job.Result.FactsScanned)

	assert.Equal(t, http.StatusConflict, do(t, r, http.MethodPost, "/profiles/p1/scans", "").Code)

	w = do(t, r, http.MethodDelete, "/profiles/p1/scans", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusConflict, do(t, r, http.MethodDelete, "/profiles/p1/scans", "").Code)

	w = do(t, r, http.MethodGet, "/profiles/p1/scans", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.Equal(t, scan.StatusIdle, job.Status)
}

func TestExport(t *testing.T) {
	_, r := newTestServer(t)
	ingest(t, r, `{"content":"Nicky's nonna makes Sunday gravy","importance":4,"type":"LORE"}`)

	w := do(t, r, http.MethodGet, "/profiles/p1/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Body.String(), "Nicky's nonna makes Sunday gravy")

	w = do(t, r, http.MethodGet, "/profiles/p1/export?format=text", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "TOTAL MEMORIES: 1")
	assert.Contains(t, w.Body.String(), "Type: LORE")

	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodGet, "/profiles/p1/export?format=xml", "").Code)
}
