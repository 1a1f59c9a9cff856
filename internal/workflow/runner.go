package workflow

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/rahul/kadam/internal/agent"
	"github.com/rahul/kadam/internal/observability"
)

// Run statuses recorded in the archive.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunRecord is what the archive keeps about one finished run.
type RunRecord struct {
	ID         string
	Objective  string
	Status     string
	Error      string
	Plan       []string
	Results    []string
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunArchive persists finished runs for later inspection. Archived data is
// write-only from the engine's point of view; a run never resumes from it.
type RunArchive interface {
	SaveRun(ctx context.Context, rec RunRecord) error
}

// Runner is the single entry point of the engine: one call, one run.
// A Runner is immutable after construction and reusable across runs,
// though each run itself is strictly sequential.
type Runner struct {
	graph   *CompiledGraph
	archive RunArchive
	events  *observability.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithArchive persists every finished run into the given archive.
func WithArchive(a RunArchive) RunnerOption {
	return func(r *Runner) { r.archive = a }
}

// WithRunEvents routes run lifecycle and engine events through the logger.
func WithRunEvents(l *observability.Logger) RunnerOption {
	return func(r *Runner) { r.events = l }
}

// NewRunner compiles the workflow graph around the two roles.
func NewRunner(planner Planner, executor Executor, opts ...RunnerOption) (*Runner, error) {
	r := &Runner{}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	graph, err := New(planner, executor, WithEvents(r.events)).Compile()
	if err != nil {
		return nil, err
	}
	r.graph = graph
	return r, nil
}

// Run plans and executes the objective, returning one report per task in
// plan order. On failure the reports gathered so far come back alongside
// the error.
func (r *Runner) Run(ctx context.Context, objective string) ([]string, error) {
	st, err := r.RunState(ctx, objective)
	return st.Results, err
}

// RunState is Run with the whole final state exposed, for callers that want
// the plan and conversation as well as the reports.
func (r *Runner) RunState(ctx context.Context, objective string) (*agent.State, error) {
	runID := uuid.NewString()
	ctx = observability.WithRunID(ctx, runID)

	st := agent.NewState(objective)
	started := time.Now()
	log.Printf("[Runner] run %s started: %s", runID, objective)
	r.events.LogRunStarted(runID, objective)

	err := r.graph.Invoke(ctx, st)
	observability.SetStatus(observability.StageIdle, "")

	status := StatusCompleted
	errText := ""
	if err != nil {
		status = StatusFailed
		errText = err.Error()
		log.Printf("[Runner] run %s failed after %d/%d tasks: %v", runID, st.CurrentStep, len(st.Plan), err)
	} else {
		log.Printf("[Runner] run %s completed: %d tasks", runID, len(st.Results))
	}
	r.events.LogRunFinished(runID, status, len(st.Results))

	if r.archive != nil {
		rec := RunRecord{
			ID:         runID,
			Objective:  objective,
			Status:     status,
			Error:      errText,
			Plan:       st.Plan,
			Results:    st.Results,
			StartedAt:  started,
			FinishedAt: time.Now(),
		}
		if aerr := r.archive.SaveRun(ctx, rec); aerr != nil {
			// Archival is best effort and never masks the run outcome.
			log.Printf("[Runner] archive save for run %s failed: %v", runID, aerr)
		}
	}
	return st, err
}
