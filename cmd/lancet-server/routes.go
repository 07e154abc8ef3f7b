package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bobmcallan/lancet/internal/app"
	"github.com/bobmcallan/lancet/internal/common"
)

// errorResponse is the standard error format for REST API responses.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{Error: message})
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// healthHandler responds to GET /api/health with {"status":"ok"}.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// versionHandler responds to GET /api/version with version info.
func versionHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// handleAdminJobs handles GET /api/admin/jobs — list recent jobs, optionally
// filtered to a single task via ?task_id=.
func handleAdminJobs(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}

		limit := 100
		if l := r.URL.Query().Get("limit"); l != "" {
			if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 1000 {
				limit = v
			}
		}

		taskID := r.URL.Query().Get("task_id")
		jobs, err := a.Store.Jobs().ListByTask(r.Context(), taskID, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list jobs: "+err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
	}
}

// handleAdminJobsCancel handles POST /api/admin/jobs/cancel?task_id= — cancels
// every pending (not yet running) job for a task, the operator-facing escape
// hatch for a task stuck behind a misbehaving target.
func handleAdminJobsCancel(a *app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		taskID := r.URL.Query().Get("task_id")
		if taskID == "" {
			writeError(w, http.StatusBadRequest, "task_id is required")
			return
		}
		count, err := a.Store.Jobs().CancelPendingByTask(r.Context(), taskID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to cancel jobs: "+err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"cancelled": count})
	}
}

// buildMux assembles the HTTP mux: MCP over Streamable HTTP, the REST admin
// surface, the live job-event WebSocket feed, health/version, and
// Prometheus metrics.
func buildMux(a *app.App, mcpHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpHandler)
	mux.HandleFunc("/api/health", healthHandler)
	mux.HandleFunc("/api/version", versionHandler)
	mux.HandleFunc("/api/admin/jobs", handleAdminJobs(a))
	mux.HandleFunc("/api/admin/jobs/cancel", handleAdminJobsCancel(a))
	mux.HandleFunc("/api/admin/ws/jobs", a.AdminWSHub.ServeWS)
	mux.Handle("/metrics", promhttp.HandlerFor(a.Metrics.Registerer, promhttp.HandlerOpts{}))
	return mux
}
