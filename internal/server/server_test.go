package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SmartPortfolio/internal/calculator"
	"SmartPortfolio/internal/holdings"
	"SmartPortfolio/internal/model"
	"SmartPortfolio/internal/recorder"
	"SmartPortfolio/internal/scheduler"
	"SmartPortfolio/internal/strategy"
)

type stubService struct {
	book       *holdings.Book
	latest     *scheduler.Snapshot
	refreshErr error
	refreshes  int
}

func records() []model.FundamentalRecord {
	return []model.FundamentalRecord{
		{Ticker: "AAPL", Name: "Apple", Sector: "Technology", PERatio: model.Float(10), ROE: model.Float(0.3), Price: model.Float(100)},
		{Ticker: "XOM", Name: "Exxon", Sector: "Energy", PERatio: model.Float(20), ROE: model.Float(0.1), Price: model.Float(50)},
	}
}

func (s *stubService) Latest() *scheduler.Snapshot { return s.latest }

func (s *stubService) Refresh(context.Context) (*scheduler.Snapshot, error) {
	if s.refreshErr != nil {
		return nil, s.refreshErr
	}
	s.refreshes++
	p := strategy.Params{Allocation: strategy.DefaultAllocationParams(1000), Holdings: s.book.Snapshot()}
	p.Allocation.Threshold = 0
	res := strategy.Evaluate(records(), p)
	s.latest = &scheduler.Snapshot{RunID: "run-1", Pool: "US", At: time.Unix(1_700_000_000, 0).UTC(), Tickers: 3, Skipped: []string{"NONE"}, Result: res, State: res.State()}
	return s.latest, nil
}

func (s *stubService) SetHolding(ticker string, shares int) (*strategy.Result, error) {
	if err := s.book.Set(ticker, shares); err != nil {
		return nil, err
	}
	if s.latest == nil {
		return nil, nil
	}
	s.latest.Result = s.latest.Result.WithHoldings(s.book.Snapshot())
	return s.latest.Result, nil
}

func (s *stubService) Holdings() map[string]int { return s.book.Snapshot() }

type stubRuns struct{}

func (stubRuns) RecentRuns(limit int) ([]recorder.RunSummary, error) {
	return []recorder.RunSummary{{ID: "run-1", Pool: "US", State: "READY"}}, nil
}

func newTestServer() (*Server, *stubService) {
	svc := &stubService{book: holdings.NewBook(map[string]int{"AAPL": 1})}
	srv := New(Config{
		Addr:       ":0",
		Log:        zerolog.Nop(),
		Service:    svc,
		Runs:       stubRuns{},
		Projection: calculator.ProjectionParams{LumpSum: 1000, Contribution: 0, AnnualRate: 0, Years: 2},
	})
	return srv, svc
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer()
	rec := do(t, srv.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestSignalsBeforeRefresh(t *testing.T) {
	srv, _ := newTestServer()
	for _, path := range []string{"/api/signals", "/api/signals.csv", "/api/scores", "/api/rebalance", "/api/rebalance.csv"} {
		rec := do(t, srv.Handler(), http.MethodGet, path, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestRefreshThenSignals(t *testing.T) {
	srv, svc := newTestServer()
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, svc.refreshes)
	assert.Contains(t, rec.Body.String(), `"state":"READY"`)

	rec = do(t, h, http.MethodGet, "/api/signals", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		RunID       string           `json:"run_id"`
		State       string           `json:"state"`
		Skipped     []string         `json:"skipped"`
		Allocations []map[string]any `json:"allocations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-1", body.RunID)
	assert.Equal(t, "READY", body.State)
	assert.Equal(t, []string{"NONE"}, body.Skipped)
	require.Len(t, body.Allocations, 2)
	assert.Equal(t, "AAPL", body.Allocations[0]["ticker"])
	assert.Equal(t, 70.0, body.Allocations[0]["score"])

	rec = do(t, h, http.MethodGet, "/api/signals.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Ticker,Name,Score,Price,Investment($),Est.Shares,Sector,Allocation%\nAAPL,Apple,70.00,100.00,700.00,7,Technology,70.00\n"))

	rec = do(t, h, http.MethodGet, "/api/rebalance.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "AAPL,Apple,1,7,BUY 6\n")
}

func TestScores(t *testing.T) {
	srv, svc := newTestServer()
	_, _ = svc.Refresh(context.Background())

	rec := do(t, srv.Handler(), http.MethodGet, "/api/scores", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		State   string   `json:"state"`
		Skipped []string `json:"skipped"`
		Scores  []struct {
			Ticker  string     `json:"ticker"`
			PERatio *float64   `json:"pe_ratio"`
			PBRatio *float64   `json:"pb_ratio"`
			Ratios  [5]float64 `json:"ratios"`
			Imputed [5]bool    `json:"imputed"`
			Score   float64    `json:"score"`
		} `json:"scores"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "READY", body.State)
	assert.Equal(t, []string{"NONE"}, body.Skipped)
	require.Len(t, body.Scores, 2)

	aapl := body.Scores[0]
	assert.Equal(t, "AAPL", aapl.Ticker)
	require.NotNil(t, aapl.PERatio)
	assert.Equal(t, 10.0, *aapl.PERatio)
	assert.Nil(t, aapl.PBRatio)
	assert.InDelta(t, 0.1, aapl.Ratios[0], 1e-12, "PE is inverted")
	assert.Equal(t, [5]bool{false, true, false, true, true}, aapl.Imputed)
	assert.Equal(t, 70.0, aapl.Score)
}

func TestRefreshFailure(t *testing.T) {
	srv, svc := newTestServer()
	svc.refreshErr = errors.New("providers down")
	rec := do(t, srv.Handler(), http.MethodPost, "/api/refresh", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "providers down")
}

func TestSetHolding(t *testing.T) {
	srv, svc := newTestServer()
	h := srv.Handler()
	_, _ = svc.Refresh(context.Background())

	rec := do(t, h, http.MethodPut, "/api/holdings/aapl", `{"shares": 10}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"AAPL":10`)

	rec = do(t, h, http.MethodGet, "/api/rebalance", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"SELL","shares":3`)

	rec = do(t, h, http.MethodPut, "/api/holdings/AAPL", `{"shares": -1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodPut, "/api/holdings/AAPL", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodPut, "/api/holdings/AAPL", `nope`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/holdings", "")
	assert.JSONEq(t, `{"AAPL":10}`, rec.Body.String())
}

func TestProjection(t *testing.T) {
	srv, _ := newTestServer()
	h := srv.Handler()

	rec := do(t, h, http.MethodGet, "/api/projection", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Points []model.ProjectionPoint `json:"points"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Points, 2)
	assert.Equal(t, 1000.0, body.Points[1].Value)

	rec = do(t, h, http.MethodGet, "/api/projection?lump_sum=0&contribution=100&rate=0&years=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2600.0, body.Points[0].Value)

	for _, q := range []string{"years=x", "rate=abc", "contribution=-5", "rate=NaN", "lump_sum=Inf", "years=101", "years=2000000000", "rate=100000&years=80"} {
		rec = do(t, h, http.MethodGet, "/api/projection?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestRuns(t *testing.T) {
	srv, _ := newTestServer()
	rec := do(t, srv.Handler(), http.MethodGet, "/api/runs?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"run-1"`)
}

func TestCORS(t *testing.T) {
	srv, _ := newTestServer()
	req := httptest.NewRequest(http.MethodOptions, "/api/signals", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
