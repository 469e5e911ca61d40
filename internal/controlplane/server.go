package controlplane

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"git.home.luguber.info/inful/hotbuild/internal/logfields"
)

// Server is the host-side control-plane service started by `hotbuild agent`.
// It exposes resource listing and restart over authenticated HTTP.
type Server struct {
	host    Host
	addr    string
	apiKey  string
	logger  *slog.Logger
	httpSrv *http.Server
	ln      net.Listener
}

// NewServer builds the control-plane service. addr is host:port; apiKey is
// the shared bearer token every non-preflight request must carry.
func NewServer(addr, apiKey string, host Host, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		host:   host,
		addr:   addr,
		apiKey: apiKey,
		logger: logger,
	}
}

// Start binds the listen address and begins serving. Binding happens up
// front so a taken port fails startup instead of surfacing later as a
// background log line.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("control-plane bind %s: %w", s.addr, err)
	}
	s.ln = ln

	s.httpSrv = &http.Server{
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("control-plane server error", logfields.Error(err))
		}
	}()

	s.logger.Info("control-plane service started",
		slog.String("addr", ln.Addr().String()),
		logfields.Resource(s.host.SelfName()))
	return nil
}

// Stop gracefully shuts the service down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("control-plane shutdown: %w", err)
	}
	s.logger.Info("control-plane service stopped")
	return nil
}

// Addr returns the bound listen address. Valid after Start; lets tests bind
// port 0.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

// routes assembles the handler tree. Order matters: logging and recovery
// outermost, then CORS (preflights answered before auth), then the bearer
// check guarding every real handler.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/resources", s.handleResources)
	mux.HandleFunc("/restart", s.handleRestart)

	var handler http.Handler = mux
	handler = authMiddleware(s.apiKey, s.logger, handler)
	handler = corsMiddleware(handler)
	return Chain(s.logger)(handler)
}

// handleRoot serves the liveness probe on the exact root path and the JSON
// 404 for everything the mux has no better match for.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, s.logger, http.StatusNotFound, msgNotFound)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, s.logger, http.StatusMethodNotAllowed, msgMethodError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(msgLivenessReply))
}

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, s.logger, http.StatusMethodNotAllowed, msgMethodError)
		return
	}

	names, err := s.host.ListResources(r.Context())
	if err != nil {
		s.logger.Error("resource listing failed", logfields.Error(err))
		writeError(w, s.logger, http.StatusInternalServerError, "failed to list resources")
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, s.logger, http.StatusOK, ListResponse{
		Success:   true,
		Resources: names,
		Count:     len(names),
	})
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, s.logger, http.StatusMethodNotAllowed, msgMethodError)
		return
	}

	if name := r.URL.Query().Get("resource"); name != "" {
		s.restartOne(w, r, name)
		return
	}
	s.restartAll(w, r)
}

// restartOne restarts a single named resource. Unknown names are a 404, a
// failing restart command a 500.
func (s *Server) restartOne(w http.ResponseWriter, r *http.Request, name string) {
	known, err := s.host.ListResources(r.Context())
	if err != nil {
		s.logger.Error("resource listing failed", logfields.Error(err))
		writeError(w, s.logger, http.StatusInternalServerError, "failed to list resources")
		return
	}
	if !contains(known, name) {
		writeError(w, s.logger, http.StatusNotFound, msgResourceMiss)
		return
	}

	if err := s.host.RestartResource(r.Context(), name); err != nil {
		s.logger.Error("resource restart failed",
			logfields.Resource(name), logfields.Error(err))
		writeError(w, s.logger, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, s.logger, http.StatusOK, RestartResponse{
		Success:  true,
		Resource: name,
		Message:  fmt.Sprintf("Resource %s restarted", name),
	})
}

// restartAll restarts every known resource except the agent's own. The self
// resource stays up and reports success; stopping it would take the service
// down mid-reply.
func (s *Server) restartAll(w http.ResponseWriter, r *http.Request) {
	known, err := s.host.ListResources(r.Context())
	if err != nil {
		s.logger.Error("resource listing failed", logfields.Error(err))
		writeError(w, s.logger, http.StatusInternalServerError, "failed to list resources")
		return
	}

	self := s.host.SelfName()
	results := make(map[string]bool, len(known))
	restarted := 0
	for _, name := range known {
		if name == self {
			results[name] = true
			continue
		}
		if err := s.host.RestartResource(r.Context(), name); err != nil {
			s.logger.Warn("resource restart failed",
				logfields.Resource(name), logfields.Error(err))
			results[name] = false
			continue
		}
		results[name] = true
		restarted++
	}

	success := true
	for _, ok := range results {
		if !ok {
			success = false
			break
		}
	}
	writeJSON(w, s.logger, http.StatusOK, RestartAllResponse{
		Success: success,
		Message: fmt.Sprintf("Restarted %d of %d resources", restarted, len(known)),
		Results: results,
	})
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
