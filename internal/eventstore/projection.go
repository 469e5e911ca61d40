package eventstore

import (
	"sort"
	"time"
)

// Run status values.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// RunSummary is the read model of one pipeline run, folded from its events.
type RunSummary struct {
	RunID       string     `json:"run_id"`
	Trigger     string     `json:"trigger"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Duration    string     `json:"duration,omitempty"`
	Error       string     `json:"error,omitempty"`
	Deploys     int        `json:"deploys"`
	Restarts    []string   `json:"restarts,omitempty"`
}

// summarize folds a flat event list (oldest first) into per-run summaries,
// newest run first.
func summarize(events []Event) []RunSummary {
	byRun := make(map[string]*RunSummary)
	order := make([]string, 0)

	for _, e := range events {
		if e.RunID == "" {
			continue
		}
		summary, ok := byRun[e.RunID]
		if !ok {
			summary = &RunSummary{
				RunID:     e.RunID,
				Status:    RunStatusRunning,
				StartedAt: e.CreatedAt,
			}
			byRun[e.RunID] = summary
			order = append(order, e.RunID)
		}

		switch e.Type {
		case TypeRunStarted:
			summary.Trigger = e.Name
			summary.StartedAt = e.CreatedAt
		case TypeRunCompleted:
			at := e.CreatedAt
			summary.CompletedAt = &at
			summary.Status = RunStatusCompleted
			summary.Duration = e.Detail
			if summary.Trigger == "" {
				summary.Trigger = e.Name
			}
		case TypeRunFailed:
			at := e.CreatedAt
			summary.CompletedAt = &at
			summary.Status = RunStatusFailed
			summary.Error = e.Detail
			if summary.Trigger == "" {
				summary.Trigger = e.Name
			}
		case TypeDeploy:
			summary.Deploys++
		case TypeRestart:
			summary.Restarts = append(summary.Restarts, e.Name)
		}
	}

	summaries := make([]RunSummary, 0, len(order))
	for _, runID := range order {
		summaries = append(summaries, *byRun[runID])
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].StartedAt.After(summaries[j].StartedAt)
	})
	return summaries
}
