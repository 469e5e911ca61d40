// Package notify publishes build lifecycle events to NATS for external
// consumers (editor plugins, CI dashboards). Publishing is strictly optional:
// with no NATS URL configured the publisher is nil, and every method on a nil
// publisher is a no-op.
package notify

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/hotbuild/internal/config"
	hberrors "git.home.luguber.info/inful/hotbuild/internal/errors"
	"git.home.luguber.info/inful/hotbuild/internal/logfields"
)

const publishTimeout = 5 * time.Second

// Subject suffixes under the configured prefix.
const (
	SubjectRunStarted   = "run.started"
	SubjectRunCompleted = "run.completed"
	SubjectRunFailed    = "run.failed"
	SubjectDeploy       = "deploy"
	SubjectRestart      = "restart"
)

// RunEvent is the payload for run lifecycle subjects.
type RunEvent struct {
	RunID      string    `json:"run_id"`
	Trigger    string    `json:"trigger"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// DeployEvent is the payload for deploy completions.
type DeployEvent struct {
	RunID     string    `json:"run_id"`
	Target    string    `json:"target"`
	Timestamp time.Time `json:"timestamp"`
}

// RestartEvent is the payload for restart outcomes. RunID is empty for
// restarts issued outside a pipeline run.
type RestartEvent struct {
	RunID     string    `json:"run_id,omitempty"`
	Resource  string    `json:"resource"`
	OK        bool      `json:"ok"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher sends events to NATS. The zero-value-nil publisher is valid and
// silent.
type Publisher struct {
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
}

// Connect builds a publisher from the events config. Returns (nil, nil) when
// no NATS URL is configured.
func Connect(cfg config.EventsConfig, logger *slog.Logger) (*Publisher, error) {
	if cfg.NATSURL == "" {
		return nil, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name("hotbuild"),
		nats.Timeout(publishTimeout),
		nats.MaxReconnects(-1))
	if err != nil {
		return nil, hberrors.NetworkError("nats connect", err)
	}

	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = "hotbuild"
	}

	logger.Info("event publishing enabled",
		slog.String("url", cfg.NATSURL),
		slog.String("subject_prefix", prefix))
	return &Publisher{conn: conn, prefix: prefix, logger: logger}, nil
}

// Publish sends one event. Failures are logged and swallowed; event delivery
// is best-effort and must never stall a build.
func (p *Publisher) Publish(suffix string, payload any) {
	if p == nil || p.conn == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Warn("event payload marshal failed",
			logfields.Key(suffix), logfields.Error(err))
		return
	}

	subject := p.prefix + "." + suffix
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn("event publish failed",
			logfields.Key(subject), logfields.Error(err))
	}
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
