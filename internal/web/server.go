// Package web provides the HTTP status and control server for the sentinel
// daemon.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/hallam/sentinel/internal/control"
	"github.com/hallam/sentinel/internal/history"
	"github.com/hallam/sentinel/internal/status"
)

// defaultHistoryLimit bounds /history.json responses when no limit is given.
const defaultHistoryLimit = 100

// Controller is the subset of the mode controller the API handlers need.
type Controller interface {
	SetMode(mode control.Mode) error
	ManualControl(channel int, action control.Action) error
}

// Server serves the status page, JSON endpoints, and the control API.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	hist       *history.Log
	ctrl       Controller
	log        *zap.Logger
}

// New creates a Server that reads state from the given tracker and history
// log and drives the given controller. hist and ctrl may be nil; the matching
// endpoints then respond 404 and 503.
func New(addr string, tracker *status.Tracker, hist *history.Log, ctrl Controller, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{tracker: tracker, hist: hist, ctrl: ctrl, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/status.json", s.handleStatus)
	mux.HandleFunc("/history.json", s.handleHistory)
	mux.HandleFunc("/api/relay", s.handleRelay)
	mux.HandleFunc("/api/mode", s.handleMode)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.hist == nil {
		http.NotFound(w, r)
		return
	}
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(formatHistory(s.hist.LastN(limit)))
}

type relayRequest struct {
	Channel int    `json:"channel"`
	Action  string `json:"action"`
}

func (s *Server) handleRelay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	if s.ctrl == nil {
		writeError(w, http.StatusServiceUnavailable, "controller unavailable")
		return
	}

	var req relayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.ctrl.ManualControl(req.Channel, control.Action(req.Action)); err != nil {
		s.log.Warn("manual relay command rejected",
			zap.Int("channel", req.Channel),
			zap.String("action", req.Action),
			zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.log.Info("manual relay command",
		zap.Int("channel", req.Channel),
		zap.String("action", req.Action))
	writeOK(w)
}

type modeRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	if s.ctrl == nil {
		writeError(w, http.StatusServiceUnavailable, "controller unavailable")
		return
	}

	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.ctrl.SetMode(control.Mode(req.Mode)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.tracker.SetMode(req.Mode)
	s.log.Info("mode changed via API", zap.String("mode", req.Mode))
	writeOK(w)
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"ok":true}` + "\n"))
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": msg})
}
