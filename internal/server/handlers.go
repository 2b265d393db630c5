package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"SmartPortfolio/internal/calculator"
	"SmartPortfolio/internal/export"
	"SmartPortfolio/internal/model"
	"SmartPortfolio/internal/scheduler"
	"SmartPortfolio/internal/strategy"
)

type signalsResponse struct {
	RunID       string             `json:"run_id"`
	Pool        string             `json:"pool"`
	At          time.Time          `json:"at"`
	State       strategy.State     `json:"state"`
	Skipped     []string           `json:"skipped,omitempty"`
	Allocations []model.Allocation `json:"allocations"`
}

type scoresResponse struct {
	State   strategy.State    `json:"state"`
	Skipped []string          `json:"skipped,omitempty"` // no provider data or no usable ratio
	Scores  []model.ScoredRow `json:"scores"`
}

type rebalanceResponse struct {
	State     strategy.State       `json:"state"`
	Rebalance []model.RebalanceRow `json:"rebalance"`
}

type holdingRequest struct {
	Shares *int `json:"shares"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := map[string]any{"status": "ok"}
	if snap := s.svc.Latest(); snap != nil {
		status["last_refresh"] = snap.At
		status["state"] = snap.State
	}
	writeJSON(w, http.StatusOK, status)
}

// latest writes 503 and returns nil before the first refresh.
func (s *Server) latest(w http.ResponseWriter) *scheduler.Snapshot {
	snap := s.svc.Latest()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, scheduler.ErrNoResult)
	}
	return snap
}

func (s *Server) handleSignals(w http.ResponseWriter, _ *http.Request) {
	snap := s.latest(w)
	if snap == nil {
		return
	}
	allocs := snap.Result.Allocations
	if allocs == nil {
		allocs = []model.Allocation{}
	}
	writeJSON(w, http.StatusOK, signalsResponse{
		RunID:       snap.RunID,
		Pool:        snap.Pool,
		At:          snap.At,
		State:       snap.Result.State(),
		Skipped:     snap.Skipped,
		Allocations: allocs,
	})
}

// handleScores returns every scored row with its raw fields, cleaned ratios
// and imputation flags, allocated or not.
func (s *Server) handleScores(w http.ResponseWriter, _ *http.Request) {
	snap := s.latest(w)
	if snap == nil {
		return
	}
	rows := snap.Result.Scored
	if rows == nil {
		rows = []model.ScoredRow{}
	}
	skipped := append([]string{}, snap.Skipped...)
	if snap.Result.Cleaned != nil {
		skipped = append(skipped, snap.Result.Cleaned.Skipped...)
	}
	writeJSON(w, http.StatusOK, scoresResponse{State: snap.Result.State(), Skipped: skipped, Scores: rows})
}

func (s *Server) handleSignalsCSV(w http.ResponseWriter, _ *http.Request) {
	snap := s.latest(w)
	if snap == nil {
		return
	}
	data, err := export.AllocationsCSV(snap.Result.Allocations)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeCSV(w, "allocation.csv", data)
}

func (s *Server) handleRebalance(w http.ResponseWriter, _ *http.Request) {
	snap := s.latest(w)
	if snap == nil {
		return
	}
	rows := snap.Result.Rebalance
	if rows == nil {
		rows = []model.RebalanceRow{}
	}
	writeJSON(w, http.StatusOK, rebalanceResponse{State: snap.Result.State(), Rebalance: rows})
}

func (s *Server) handleRebalanceCSV(w http.ResponseWriter, _ *http.Request) {
	snap := s.latest(w)
	if snap == nil {
		return
	}
	data, err := export.RebalanceCSV(snap.Result.Rebalance)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeCSV(w, "rebalance.csv", data)
}

func (s *Server) handleHoldings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Holdings())
}

func (s *Server) handleSetHolding(w http.ResponseWriter, r *http.Request) {
	var req holdingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	if req.Shares == nil {
		writeError(w, http.StatusBadRequest, errors.New("shares is required"))
		return
	}
	res, err := s.svc.SetHolding(chi.URLParam(r, "ticker"), *req.Shares)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp := map[string]any{"holdings": s.svc.Holdings()}
	if res != nil {
		resp["rebalance"] = res.Rebalance
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Refresh(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":    snap.RunID,
		"state":     snap.State,
		"tickers":   snap.Tickers,
		"scored":    len(snap.Result.Scored),
		"allocated": len(snap.Result.Allocations),
		"skipped":   snap.Skipped,
		"issues":    len(snap.Issues),
	})
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	p := s.projection
	q := r.URL.Query()
	var err error
	if p.LumpSum, err = floatParam(q.Get("lump_sum"), p.LumpSum); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if p.Contribution, err = floatParam(q.Get("contribution"), p.Contribution); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if p.AnnualRate, err = floatParam(q.Get("rate"), p.AnnualRate); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if v := q.Get("years"); v != "" {
		if p.Years, err = strconv.Atoi(v); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("years: %w", err))
			return
		}
	}

	points, err := calculator.Project(p)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"params": p, "points": points})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.runs.RecentRuns(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func floatParam(v string, def float64) (float64, error) {
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", v)
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeCSV(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
