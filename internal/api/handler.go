// Package api serves a read-mostly HTTP view of the vault, alerts and scan
// history, plus Prometheus metrics and a scan trigger.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shield-go/internal/model"
	"shield-go/internal/shield"
)

// Deps are the engine components exposed by the API.
type Deps struct {
	Service *shield.Service
	Alerts  *shield.AlertStore
	Scanner *shield.Scanner
	Logger  shield.Logger

	// ScanContext bounds scans started asynchronously. Defaults to context.Background().
	ScanContext context.Context
}

// Handler implements the HTTP endpoints.
type Handler struct {
	deps  Deps
	scans sync.WaitGroup
}

// NewHandler creates a Handler.
func NewHandler(deps Deps) *Handler {
	if deps.ScanContext == nil {
		deps.ScanContext = context.Background()
	}
	return &Handler{deps: deps}
}

// Routes returns the router with every endpoint mounted.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(instrument(h.deps.Logger))

	r.Get("/healthz", h.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/assets", h.listAssets)
		r.Get("/assets/{id}", h.getAsset)
		r.Get("/targets", h.listTargets)
		r.Get("/alerts", h.listAlerts)
		r.Delete("/alerts", h.clearAlerts)
		r.Post("/alerts/{id}/read", h.markAlertRead)
		r.Get("/sessions", h.listSessions)
		r.Get("/scans/current", h.currentScan)
		r.Post("/scans", h.startScan)
	})
	return r
}

// Wait blocks until scans started asynchronously have finished.
func (h *Handler) Wait() {
	h.scans.Wait()
}

type errorResponse struct {
	Error string `json:"error"`
}

type alertsResponse struct {
	Alerts []*model.ContentAlert `json:"alerts"`
	Unread int                   `json:"unread"`
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) listAssets(w http.ResponseWriter, _ *http.Request) {
	assets, err := h.deps.Service.ListAssets()
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

func (h *Handler) getAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := h.deps.Service.GetAsset(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

type targetResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	RiskLevel model.RiskLevel `json:"riskLevel"`
	URL       string          `json:"url,omitempty"`
	Enabled   bool            `json:"enabled"`
}

func (h *Handler) listTargets(w http.ResponseWriter, _ *http.Request) {
	targets, err := h.deps.Service.ListTargets()
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]targetResponse, 0, len(targets))
	for _, t := range targets {
		out = append(out, targetResponse{
			ID:        t.ID,
			Name:      t.Name,
			Category:  t.Category,
			RiskLevel: t.RiskLevel,
			URL:       t.URL,
			Enabled:   t.Enabled,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	alerts, err := h.deps.Alerts.List(unreadOnly)
	if err != nil {
		h.writeError(w, err)
		return
	}
	unread, err := h.deps.Alerts.UnreadCount()
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alertsResponse{Alerts: alerts, Unread: unread})
}

func (h *Handler) clearAlerts(w http.ResponseWriter, _ *http.Request) {
	if err := h.deps.Alerts.ClearAll(); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) markAlertRead(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Alerts.MarkRead(chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	sessions, err := h.deps.Service.GetHistory(limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *Handler) currentScan(w http.ResponseWriter, _ *http.Request) {
	session := h.deps.Scanner.Current()
	if session == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// startScan runs a scan. With ?wait=true the finished session is returned;
// otherwise the scan runs in the background and 202 is returned.
func (h *Handler) startScan(w http.ResponseWriter, r *http.Request) {
	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))

	if wait {
		session, err := h.deps.Scanner.Run(r.Context(), nil)
		if err != nil && session == nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, session)
		return
	}

	if h.deps.Scanner.Current() != nil {
		h.writeError(w, shield.ErrScanInProgress)
		return
	}
	h.scans.Add(1)
	go func() {
		defer h.scans.Done()
		if _, err := h.deps.Scanner.Run(h.deps.ScanContext, nil); err != nil {
			h.deps.Logger.Error("background scan failed", "error", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": string(model.SessionScanning)})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, shield.ErrAssetNotFound), errors.Is(err, shield.ErrAlertNotFound),
		errors.Is(err, shield.ErrTargetNotFound):
		status = http.StatusNotFound
	case errors.Is(err, shield.ErrScanInProgress):
		status = http.StatusConflict
	default:
		h.deps.Logger.Error("api request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
