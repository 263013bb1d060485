// internal/httpserver/server.go
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"agency-workspace/internal/audit"
	"agency-workspace/internal/common/logger"
	"agency-workspace/internal/records"
	"agency-workspace/internal/workspace"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the classified workspace over HTTP: the three tab views,
// the overdue timeline, health and metrics, plus a manual refresh trigger.
type Server struct {
	httpServer *http.Server
	logger     logger.Logger
	workspace  *workspace.Workspace
	journal    *audit.Journal
}

// New creates an HTTP server listening on addr. journal may be nil.
func New(addr string, log logger.Logger, ws *workspace.Workspace, journal *audit.Journal) *Server {
	server := &Server{
		logger:    log.WithFields(map[string]interface{}{"component": "http"}),
		workspace: ws,
		journal:   journal,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/records/leads", server.handleLeads)
	mux.HandleFunc("/records/tasks", server.handleTasks)
	mux.HandleFunc("/records/loans", server.handleLoans)
	mux.HandleFunc("/followups/overdue", server.handleOverdue)
	mux.HandleFunc("/admin/refresh", server.handleRefresh)
	mux.HandleFunc("/admin/history", server.handleHistory)

	server.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return server
}

// Start begins listening for incoming HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server listening", map[string]interface{}{
		"addr": s.httpServer.Addr,
	})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server", nil)
	return s.httpServer.Shutdown(ctx)
}

func criteriaFromQuery(r *http.Request) records.Criteria {
	q := r.URL.Query()
	return records.Criteria{
		Search:    q.Get("q"),
		Status:    q.Get("status"),
		BranchID:  q.Get("branch"),
		TodayOnly: q.Get("today") == "1" || q.Get("today") == "true",
	}
}

func (s *Server) handleLeads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	leads := s.workspace.FilterLeads(criteriaFromQuery(r))
	writeJSON(w, map[string]interface{}{"count": len(leads), "items": leads})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tasks := s.workspace.FilterTasks(criteriaFromQuery(r))
	writeJSON(w, map[string]interface{}{"count": len(tasks), "items": tasks})
}

func (s *Server) handleLoans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	loans := s.workspace.FilterLoans(criteriaFromQuery(r))
	writeJSON(w, map[string]interface{}{"count": len(loans), "items": loans})
}

func (s *Server) handleOverdue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	items := s.workspace.OverdueFollowUps()
	writeJSON(w, map[string]interface{}{"count": len(items), "items": items})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.workspace.Refresh(r.Context()); err != nil {
		s.logger.Error("manual refresh failed", map[string]interface{}{
			"error": err.Error(),
		})
		http.Error(w, "refresh failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.journal == nil {
		http.Error(w, "journal unavailable", http.StatusServiceUnavailable)
		return
	}

	recordID := r.URL.Query().Get("record_id")
	if recordID == "" {
		http.Error(w, "record_id required", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := s.journal.History(r.Context(), recordID, limit)
	if err != nil {
		s.logger.Error("history lookup failed", map[string]interface{}{
			"record_id": recordID,
			"error":     err.Error(),
		})
		http.Error(w, "history lookup failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{"count": len(entries), "items": entries})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode json", http.StatusInternalServerError)
	}
}
