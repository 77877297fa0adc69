// Package httpdebug exposes an optional local HTTP surface (/healthz,
// /metrics) for operators running the viewer headless or under a
// process supervisor. Off by default; the CLI turns it on with a flag.
// Grounded on onideus-gaming-capture's gorilla/mux-based debug server:
// one *mux.Router, one handler per route, wrapped in a *http.Server with
// explicit read/write timeouts.
package httpdebug

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nordlyslabs/camviewer/internal/session"
)

// HealthStatus is the JSON body served at /healthz.
type HealthStatus struct {
	State          string `json:"state"`
	Epoch          uint64 `json:"epoch"`
	ConnID         string `json:"conn_id"`
	AutoReconnect  bool   `json:"auto_reconnect"`
}

// Server is the optional debug HTTP surface.
type Server struct {
	httpSrv *http.Server
	sess    *session.Session
}

// New builds a Server bound to addr (e.g. "127.0.0.1:9090"), reporting
// health for sess and exposing Prometheus metrics at /metrics.
func New(addr string, sess *session.Session) *Server {
	r := mux.NewRouter()
	s := &Server{sess: sess}

	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		State:         s.sess.State().String(),
		Epoch:         s.sess.Epoch(),
		ConnID:        s.sess.ConnID,
		AutoReconnect: s.sess.AutoReconnectEnabled(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}

// ListenAndServe starts serving and blocks until the server is shut down
// or a non-shutdown error occurs.
func (s *Server) ListenAndServe() error {
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server. Idempotent: a second call on an
// already-shut-down server returns nil immediately.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
