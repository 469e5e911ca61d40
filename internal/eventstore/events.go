package eventstore

import "time"

// RunStarted marks the beginning of a pipeline run for a trigger kind.
func RunStarted(runID, trigger string) Event {
	return Event{RunID: runID, Type: TypeRunStarted, Name: trigger, CreatedAt: time.Now()}
}

// RunCompleted marks a successful run.
func RunCompleted(runID, trigger string, d time.Duration) Event {
	return Event{
		RunID:     runID,
		Type:      TypeRunCompleted,
		Name:      trigger,
		Detail:    d.Round(time.Millisecond).String(),
		CreatedAt: time.Now(),
	}
}

// RunFailed marks an aborted run with the failure text.
func RunFailed(runID, trigger string, err error) Event {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return Event{
		RunID:     runID,
		Type:      TypeRunFailed,
		Name:      trigger,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
}

// DeployCompleted records a deployment into target.
func DeployCompleted(runID, target string) Event {
	return Event{RunID: runID, Type: TypeDeploy, Name: target, CreatedAt: time.Now()}
}

// RestartOutcome records a restart request and how it went.
func RestartOutcome(runID, resource string, ok bool, detail string) Event {
	name := resource
	status := "ok"
	if !ok {
		status = "failed"
	}
	return Event{
		RunID:     runID,
		Type:      TypeRestart,
		Name:      name,
		Detail:    status + ": " + detail,
		CreatedAt: time.Now(),
	}
}
