// Package pipeline provides the ordered stage runner used for every build.
// Stages execute strictly in insertion order, each completing before the next
// starts; the first failure aborts the run with the stage name attached.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	hberrors "git.home.luguber.info/inful/hotbuild/internal/errors"
	"git.home.luguber.info/inful/hotbuild/internal/logfields"
	"git.home.luguber.info/inful/hotbuild/internal/metrics"
)

// StageFunc is one unit of pipeline work operating on the run state.
type StageFunc[T any] func(ctx context.Context, state T) error

// Stage pairs a diagnostic name with its handler.
type Stage[T any] struct {
	Name string
	fn   StageFunc[T]
}

// Pipeline executes stages sequentially. It carries no retry policy; retrying
// belongs to individual stages or the caller.
type Pipeline[T any] struct {
	name     string
	stages   []Stage[T]
	logger   *slog.Logger
	recorder metrics.Recorder
}

// New returns an empty pipeline logging through logger.
func New[T any](name string, logger *slog.Logger) *Pipeline[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline[T]{
		name:     name,
		logger:   logger,
		recorder: metrics.NewNoopRecorder(),
	}
}

// WithRecorder attaches a metrics recorder for stage timings.
func (p *Pipeline[T]) WithRecorder(recorder metrics.Recorder) *Pipeline[T] {
	if recorder != nil {
		p.recorder = recorder
	}
	return p
}

// AddStage appends a stage. Returns the pipeline for chaining.
func (p *Pipeline[T]) AddStage(name string, fn StageFunc[T]) *Pipeline[T] {
	p.stages = append(p.stages, Stage[T]{Name: name, fn: fn})
	return p
}

// StageNames returns the stage names in execution order.
func (p *Pipeline[T]) StageNames() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	return names
}

// Len returns the number of stages.
func (p *Pipeline[T]) Len() int {
	return len(p.stages)
}

// Run executes all stages in insertion order against state. The first stage
// error aborts the run; later stages do not execute.
func (p *Pipeline[T]) Run(ctx context.Context, state T) error {
	for i, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return hberrors.StageFailed(stage.Name, err)
		}

		p.logger.Info("stage starting",
			logfields.Stage(stage.Name),
			slog.String("pipeline", p.name),
			slog.Int("position", i+1),
			logfields.Count(len(p.stages)))

		start := time.Now()
		if err := stage.fn(ctx, state); err != nil {
			duration := time.Since(start)
			p.recorder.RecordStage(stage.Name, metrics.OutcomeFailed, duration)
			p.logger.Error("stage failed",
				logfields.Stage(stage.Name),
				slog.String("pipeline", p.name),
				logfields.DurationMS(float64(duration.Milliseconds())),
				logfields.Error(err))
			return hberrors.StageFailed(stage.Name, err)
		}

		duration := time.Since(start)
		p.recorder.RecordStage(stage.Name, metrics.OutcomeSuccess, duration)
		p.logger.Info("stage complete",
			logfields.Stage(stage.Name),
			slog.String("pipeline", p.name),
			logfields.DurationMS(float64(duration.Milliseconds())))
	}
	return nil
}
