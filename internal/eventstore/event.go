package eventstore

import "time"

// Event types recorded by the orchestrator.
const (
	TypeRunStarted   = "run_started"
	TypeRunCompleted = "run_completed"
	TypeRunFailed    = "run_failed"
	TypeDeploy       = "deploy"
	TypeRestart      = "restart"
)

// Event is one history row. Name carries the type-specific subject: the
// trigger kind for run events, the deploy target for deploys, the resource
// name for restarts. Detail is free-form (error text, result summary).
type Event struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
