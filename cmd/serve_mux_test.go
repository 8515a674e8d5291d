//go:build !integration

package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/finresearch/internal/company"
	"github.com/sells-group/finresearch/internal/model"
	"github.com/sells-group/finresearch/internal/research"
	"github.com/sells-group/finresearch/internal/store"
)

// stubSelector returns full results for every period except the listed
// empty companies, and counts calls.
type stubSelector struct {
	mu    sync.Mutex
	calls int
	empty map[string]bool
	gate  chan struct{}
}

func (s *stubSelector) Select(_ context.Context, p model.Period) *model.ExtractionResult {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.gate != nil {
		<-s.gate
	}
	if s.empty[p.Company] {
		res := model.NewResult(p, model.SourceNone)
		res.Error = "No data available from any source"
		return res
	}
	ind := func(v float64) model.Indicator { return model.Indicator{Value: v, Confidence: 0.9} }
	res := model.NewResult(p, model.SourceAI)
	res.ExtractedData = model.IndicatorSet{
		model.TotalIncome:         ind(5000),
		model.PurchaseTradedGoods: ind(100),
		model.StockChange:         ind(50),
		model.EmployeeCost:        ind(3000),
		model.OtherExpenses:       ind(500),
		model.Depreciation:        ind(200),
		model.Interest:            ind(100),
		model.OtherIncome:         ind(150),
		model.PBT:                 ind(1200),
		model.Tax:                 ind(300),
		model.PAT:                 ind(900),
	}
	return res
}

type testServer struct {
	mux  *chi.Mux
	jobs *jobRegistry
	st   store.Store
	sel  *stubSelector
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	st, err := store.NewFile(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() }) //nolint:errcheck

	reg, err := company.NewRegistry("")
	require.NoError(t, err)

	sel := &stubSelector{empty: map[string]bool{"Wipro": true}}
	orch := research.New(st, sel, nil, research.WithDelay(0))
	mux, jobs := buildMux(context.Background(), orch, st, reg)
	return &testServer{mux: mux, jobs: jobs, st: st, sel: sel}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)
	return rr
}

func TestBuildMux_HealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rr := srv.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestBuildMux_Companies(t *testing.T) {
	srv := newTestServer(t)

	rr := srv.do(t, http.MethodGet, "/companies", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var got []company.Company
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 14)
	assert.Equal(t, "TCS", got[0].Name)
}

func TestBuildMux_ResearchOne(t *testing.T) {
	srv := newTestServer(t)

	rr := srv.do(t, http.MethodPost, "/research", researchRequest{Company: "tcs", Quarter: "q1", Year: 2025})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var rec model.ResearchRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, "TCS", rec.Company)
	assert.Equal(t, model.Q1, rec.Quarter)
	assert.Equal(t, model.StatusSuccess, rec.Status)
	require.NotNil(t, rec.Derived)
	require.NotNil(t, rec.Derived.OpEBITDA)
	assert.InDelta(t, 1350, *rec.Derived.OpEBITDA, 1e-9)

	// second call is served from storage
	rr = srv.do(t, http.MethodPost, "/research", researchRequest{Company: "TCS", Quarter: "Q1", Year: 2025})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, srv.sel.calls)
}

func TestBuildMux_ResearchOne_BadRequests(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body any
	}{
		{"bad quarter", researchRequest{Company: "TCS", Quarter: "Q5", Year: 2025}},
		{"missing company", researchRequest{Quarter: "Q1", Year: 2025}},
		{"not json", "{"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			var rr *httptest.ResponseRecorder
			if s, ok := tt.body.(string); ok {
				req := httptest.NewRequest(http.MethodPost, "/research", bytes.NewBufferString(s))
				rr = httptest.NewRecorder()
				srv.mux.ServeHTTP(rr, req)
			} else {
				rr = srv.do(t, http.MethodPost, "/research", tt.body)
			}
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestBuildMux_GetAndDeleteResearch(t *testing.T) {
	srv := newTestServer(t)

	rr := srv.do(t, http.MethodGet, "/research/TCS/Q2/2025", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = srv.do(t, http.MethodPost, "/research", researchRequest{Company: "TCS", Quarter: "Q2", Year: 2025})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = srv.do(t, http.MethodGet, "/research/tcs/Q2/2025", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = srv.do(t, http.MethodGet, "/research/TCS/Q2/2025/derived", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var q model.QuarterlyRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &q))
	require.NotNil(t, q.PAT)
	assert.InDelta(t, 900, *q.PAT, 1e-9)

	rr = srv.do(t, http.MethodDelete, "/research/TCS/Q2/2025", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = srv.do(t, http.MethodDelete, "/research/TCS/Q2/2025", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = srv.do(t, http.MethodDelete, "/research/TCS/Q2/twenty", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBuildMux_BatchLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rr := srv.do(t, http.MethodPost, "/batch", batchRequest{
		Companies: []string{"tcs", "Wipro"},
		Quarters:  []string{"Q1", "Q2"},
		Year:      2025,
	})
	require.Equal(t, http.StatusAccepted, rr.Code)

	var accepted map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &accepted))
	assert.Equal(t, "accepted", accepted["status"])
	id := accepted["id"]
	require.NotEmpty(t, id)

	srv.jobs.Wait()

	rr = srv.do(t, http.MethodGet, "/batch/"+id, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var view batchJobView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Equal(t, "completed", view.Status)
	assert.Equal(t, 4, view.Progress.Total)
	assert.Equal(t, 2, view.Progress.Completed)
	assert.Equal(t, 2, view.Progress.Failed)
	assert.Equal(t, 100.0, view.Progress.Percent)
	require.NotNil(t, view.Result)
	assert.Len(t, view.Result.Outcomes, 4)
	assert.Equal(t, "TCS", view.Result.Outcomes[0].Period.Company)
	assert.Equal(t, model.StatusNoData, view.Result.Outcomes[2].Status)
}

func TestJobRegistry_WaitBlocksUntilBatchStored(t *testing.T) {
	srv := newTestServer(t)
	srv.sel.gate = make(chan struct{})

	rr := srv.do(t, http.MethodPost, "/batch", batchRequest{
		Companies: []string{"TCS"},
		Quarters:  []string{"Q3"},
		Year:      2025,
	})
	require.Equal(t, http.StatusAccepted, rr.Code)

	done := make(chan struct{})
	go func() {
		srv.jobs.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned while a batch job was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(srv.sel.gate)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after the batch job finished")
	}

	rr = srv.do(t, http.MethodGet, "/research/TCS/Q3/2025", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestBuildMux_BatchInvalidRequest(t *testing.T) {
	srv := newTestServer(t)

	rr := srv.do(t, http.MethodPost, "/batch", batchRequest{Quarters: []string{"Q9"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = srv.do(t, http.MethodPost, "/batch", batchRequest{Companies: []string{"TCS"}, Year: 1999})
	require.Equal(t, http.StatusAccepted, rr.Code)
	srv.jobs.Wait()

	var accepted map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &accepted))
	rr = srv.do(t, http.MethodGet, "/batch/"+accepted["id"], nil)
	var view batchJobView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Equal(t, "failed", view.Status)
	assert.Contains(t, view.Error, "invalid batch request")
}

func TestBuildMux_BatchUnknownID(t *testing.T) {
	srv := newTestServer(t)
	rr := srv.do(t, http.MethodGet, "/batch/nope", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestBuildMux_Stats(t *testing.T) {
	srv := newTestServer(t)

	for _, q := range []string{"Q1", "Q2"} {
		rr := srv.do(t, http.MethodPost, "/research", researchRequest{Company: "Infosys", Quarter: q, Year: 2025})
		require.Equal(t, http.StatusOK, rr.Code)
	}

	rr := srv.do(t, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var s research.Statistics
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &s))
	assert.Equal(t, 2, s.TotalRecords)
	assert.Equal(t, []string{"Infosys"}, s.Companies)
	assert.Nil(t, s.Progress)
}

func TestBuildMux_CORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/research", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	srv.mux.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
