package webui

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"nftgen/core"
	"nftgen/history"
	"nftgen/metrics"
	"nftgen/styles"

	"go.uber.org/zap"
)

// StyleInfo is one entry of GET /api/styles.
type StyleInfo struct {
	Name   string   `json:"name"`
	Prompt string   `json:"prompt"`
	Steps  []string `json:"filters"`
}

// StylesResponse is the body of GET /api/styles.
type StylesResponse struct {
	Styles []StyleInfo `json:"styles"`
	Count  int         `json:"count"`
}

func (s *Server) handleStyles(w http.ResponseWriter, r *http.Request) {
	names := styles.Names()
	out := make([]StyleInfo, 0, len(names))
	for _, name := range names {
		st, _ := styles.Parse(name)
		out = append(out, StyleInfo{
			Name:   name,
			Prompt: s.prompts.Prompt(name),
			Steps:  styles.Steps(st),
		})
	}
	writeJSON(w, http.StatusOK, StylesResponse{Styles: out, Count: len(out)})
}

// GenerationsResponse is the body of GET /api/generations.
type GenerationsResponse struct {
	Generations []history.Generation `json:"generations"`
	Count       int                  `json:"count"`
	Total       int64                `json:"total"`
	Limit       int                  `json:"limit"`
}

func (s *Server) handleGenerations(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "generation history is disabled")
		return
	}

	limit := s.config.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > s.config.MaxLimit {
		limit = s.config.MaxLimit
	}

	gens, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("list generations", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not read history")
		return
	}
	total, err := s.store.Count(r.Context())
	if err != nil {
		s.logger.Error("count generations", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not read history")
		return
	}
	writeJSON(w, http.StatusOK, GenerationsResponse{
		Generations: gens,
		Count:       len(gens),
		Total:       total,
		Limit:       limit,
	})
}

func (s *Server) handleGeneration(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "generation history is disabled")
		return
	}
	g, err := s.store.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, "generation not found")
		return
	}
	if err != nil {
		s.logger.Error("get generation", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not read history")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// StatsResponse is GET /api/stats.
type StatsResponse struct {
	metrics.GenerationStats
	SuccessRate float64                    `json:"success_rate"`
	Recent      []metrics.GenerationRecord `json:"recent"`
	GPU         *metrics.GPUMetrics        `json:"gpu,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeError(w, http.StatusServiceUnavailable, "statistics are disabled")
		return
	}
	st := s.stats.Stats()
	resp := StatsResponse{
		GenerationStats: st,
		Recent:          s.stats.Recent(s.config.DefaultLimit),
	}
	if st.TotalProcessed > 0 {
		resp.SuccessRate = float64(st.TotalSuccess) / float64(st.TotalProcessed) * 100
	}
	if gpu, ok := s.stats.GPU(); ok {
		resp.GPU = &gpu
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthResponse is GET /health.
type HealthResponse struct {
	Status         string  `json:"status"`
	Version        string  `json:"version"`
	Provider       string  `json:"provider"`
	Uptime         string  `json:"uptime"`
	UptimeSecs     float64 `json:"uptime_secs"`
	DiffusionReady bool    `json:"diffusion_ready"`
	GPUAvailable   bool    `json:"gpu_available"`
	Clients        int     `json:"ws_clients"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "ok",
		Version:  core.Version,
		Provider: s.config.Provider,
		Clients:  s.broadcaster.ClientCount(),
	}
	uptime := time.Since(s.started)
	if s.stats != nil {
		st := s.stats.SystemStatus()
		uptime = st.Uptime
		if st.Health == metrics.SystemHealthDegraded {
			resp.Status = st.Health
		}
	}
	resp.Uptime = FormatDuration(uptime)
	resp.UptimeSecs = uptime.Seconds()
	if l, ok := s.diffuser.(interface{ Loaded() bool }); ok {
		resp.DiffusionReady = l.Loaded()
	}
	if s.gpu != nil {
		resp.GPUAvailable = s.gpu.IsAvailable()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
