package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"git.home.luguber.info/inful/hotbuild/internal/catalog"
	"git.home.luguber.info/inful/hotbuild/internal/controlplane"
	hberrors "git.home.luguber.info/inful/hotbuild/internal/errors"
	"git.home.luguber.info/inful/hotbuild/internal/eventstore"
	"git.home.luguber.info/inful/hotbuild/internal/logfields"
	"git.home.luguber.info/inful/hotbuild/internal/metrics"
	"git.home.luguber.info/inful/hotbuild/internal/vcsinfo"
)

const recentRunLimit = 25

// AdminServer serves the orchestrator's own status surface: health, status
// JSON, Prometheus metrics, and an HTML overview of the plugin catalog. It is
// unauthenticated and meant for the developer's loopback only.
type AdminServer struct {
	daemon   *Daemon
	server   *http.Server
	listener net.Listener
	logger   *slog.Logger
}

// Status is the /status payload.
type Status struct {
	Version      string                  `json:"version"`
	VCS          *vcsinfo.Info           `json:"vcs,omitempty"`
	UptimeSec    int64                   `json:"uptime_sec"`
	BuildRunning bool                    `json:"build_running"`
	WatchedRoots []string                `json:"watched_roots"`
	RecentRuns   []eventstore.RunSummary `json:"recent_runs"`
}

// NewAdminServer binds the admin listener. Binding eagerly surfaces a taken
// port at startup instead of on first request.
func NewAdminServer(d *Daemon) (*AdminServer, error) {
	addr := fmt.Sprintf("%s:%d", d.cfg.Admin.Host, d.cfg.Admin.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, hberrors.NetworkError("bind admin listener", err)
	}

	a := &AdminServer{daemon: d, listener: listener, logger: d.logger}
	a.server = &http.Server{
		Handler:           controlplane.Chain(d.logger)(a.routes()),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return a, nil
}

// Start serves in the background.
func (a *AdminServer) Start(ctx context.Context) error {
	a.logger.Info("admin server listening",
		logfields.Host(a.listener.Addr().String()))
	go func() {
		if err := a.server.Serve(a.listener); err != nil && err != http.ErrServerClosed {
			a.logger.Error("admin server failed", logfields.Error(err))
		}
	}()
	return nil
}

// Stop shuts the server down gracefully.
func (a *AdminServer) Stop(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

// Addr returns the bound address.
func (a *AdminServer) Addr() string {
	return a.listener.Addr().String()
}

func (a *AdminServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", a.handleHealth)
	mux.HandleFunc("GET /status", a.handleStatus)
	mux.Handle("GET /metrics", metrics.Handler(a.daemon.registry))
	mux.HandleFunc("GET /{$}", a.handleIndex)
	return mux
}

func (a *AdminServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

func (a *AdminServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := a.status(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		a.logger.Warn("status encode failed", logfields.Error(err))
	}
}

func (a *AdminServer) status(ctx context.Context) Status {
	d := a.daemon
	status := Status{
		Version:      d.opts.Version,
		UptimeSec:    int64(time.Since(d.startTime).Seconds()),
		BuildRunning: d.coordinator.InProgress(),
	}
	if d.vcsKnown {
		info := d.vcs
		status.VCS = &info
	}
	if d.watcher != nil {
		for _, root := range d.watcher.Roots() {
			status.WatchedRoots = append(status.WatchedRoots, root.Dir)
		}
	}
	runs, err := d.store.RecentRuns(ctx, recentRunLimit)
	if err != nil {
		a.logger.Warn("recent runs query failed", logfields.Error(err))
	} else {
		status.RecentRuns = runs
	}
	return status
}

var indexTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>hotbuild</title>
<style>
body { font-family: sans-serif; margin: 2rem; max-width: 60rem; }
.card { border: 1px solid #ccc; border-radius: 6px; padding: 0.75rem 1rem; margin: 0.5rem 0; }
.card h2 { margin: 0 0 0.25rem; font-size: 1.1rem; }
.meta { color: #666; font-size: 0.85rem; }
</style>
</head>
<body>
<h1>hotbuild</h1>
<p class="meta">version {{.Version}}{{if .Commit}} · {{.Commit}}{{end}} · {{.PluginCount}} plugins</p>
{{range .Entries}}<div class="card">
<h2>{{.Title}}</h2>
<p class="meta">{{.Path}}{{if .HasUI}} · ui{{end}}</p>
{{if .Summary}}<p>{{.Summary}}</p>{{end}}
</div>
{{end}}
</body>
</html>
`))

func (a *AdminServer) handleIndex(w http.ResponseWriter, _ *http.Request) {
	d := a.daemon
	plugins, err := d.service.Scanner().Scan(d.cfg.Paths.PluginsDir)
	if err != nil {
		http.Error(w, "plugin scan failed", http.StatusInternalServerError)
		return
	}

	data := struct {
		Version     string
		Commit      string
		PluginCount int
		Entries     []catalog.Entry
	}{
		Version:     d.opts.Version,
		PluginCount: len(plugins),
		Entries:     d.catalog.Entries(plugins),
	}
	if d.vcsKnown {
		data.Commit = d.vcs.Short()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		a.logger.Warn("index render failed", logfields.Error(err))
	}
}
