package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/tmc/langchaingo/llms"

	"github.com/rahul/kadam/internal/agent"
	"github.com/rahul/kadam/internal/observability"
)

// Phase names one state of the engine.
type Phase string

const (
	PhaseStart     Phase = "start"
	PhasePlanning  Phase = "planning"
	PhaseExecuting Phase = "executing"
	PhaseDecision  Phase = "decision"
	PhaseEnd       Phase = "end"
)

// Terminal reports whether the phase ends the run.
func (p Phase) Terminal() bool { return p == PhaseEnd }

// Planner produces an ordered task list for an objective.
type Planner interface {
	Plan(ctx context.Context, objective string, history []llms.MessageContent) ([]string, error)
}

// Executor turns one task into a report.
type Executor interface {
	Execute(ctx context.Context, task string, sc agent.StepContext) (string, error)
}

// node performs the work bound to one phase and names the phase after it.
type node func(ctx context.Context, st *agent.State) (Phase, error)

// Graph wires a planner and an executor into the fixed control-flow graph
//
//	start -> planning -> executing -> decision -> executing | end
//
// Planning is a single-shot prefix: the graph never re-enters it within a
// run. The executing/decision pair loops until every task in the plan has
// produced a report.
type Graph struct {
	planner  Planner
	executor Executor
	events   *observability.Logger
}

// Option configures a Graph before compilation.
type Option func(*Graph)

// WithEvents routes plan/step/report events through the given logger.
func WithEvents(l *observability.Logger) Option {
	return func(g *Graph) { g.events = l }
}

// New builds an uncompiled graph around the two roles.
func New(planner Planner, executor Executor, opts ...Option) *Graph {
	g := &Graph{planner: planner, executor: executor}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Compile validates the wiring and freezes the phase transition table.
// The returned graph is immutable and safe to reuse across runs.
func (g *Graph) Compile() (*CompiledGraph, error) {
	if g.planner == nil {
		return nil, errors.New("workflow: compile: planner is required")
	}
	if g.executor == nil {
		return nil, errors.New("workflow: compile: executor is required")
	}
	return &CompiledGraph{
		nodes: map[Phase]node{
			PhaseStart:     g.start,
			PhasePlanning:  g.plan,
			PhaseExecuting: g.execute,
			PhaseDecision:  g.decide,
		},
	}, nil
}

// CompiledGraph drives a state through the fixed transition table until the
// terminal phase. The table is set once at Compile time and never mutated.
type CompiledGraph struct {
	nodes map[Phase]node
}

// Invoke runs the state machine to completion. Any node error aborts the run
// and is returned unchanged; the state keeps whatever had accumulated.
func (cg *CompiledGraph) Invoke(ctx context.Context, st *agent.State) error {
	phase := PhaseStart
	for !phase.Terminal() {
		n, ok := cg.nodes[phase]
		if !ok {
			return fmt.Errorf("workflow: no node wired for phase %q", phase)
		}
		next, err := n(ctx, st)
		if err != nil {
			return err
		}
		phase = next
	}
	return nil
}

func (g *Graph) start(_ context.Context, _ *agent.State) (Phase, error) {
	return PhasePlanning, nil
}

func (g *Graph) plan(ctx context.Context, st *agent.State) (Phase, error) {
	observability.SetStatus(observability.StagePlanning, st.Objective)
	tasks, err := g.planner.Plan(ctx, st.Objective, st.Messages)
	if err != nil {
		return PhasePlanning, err
	}
	st.Plan = tasks
	st.AppendTurn(llms.ChatMessageTypeHuman, fmt.Sprintf("Created plan with %d tasks", len(tasks)))
	log.Printf("[Workflow] plan ready with %d tasks", len(tasks))
	g.events.LogPlan(observability.RunID(ctx), tasks)
	return PhaseExecuting, nil
}

func (g *Graph) execute(ctx context.Context, st *agent.State) (Phase, error) {
	if st.Done() {
		return PhaseDecision, nil
	}

	task := st.Plan[st.CurrentStep]
	step := st.CurrentStep + 1
	observability.SetStatus(observability.StageExecuting, task)
	log.Printf("[Workflow] executing step %d/%d: %s", step, len(st.Plan), task)
	g.events.LogStep(observability.RunID(ctx), step, task)

	report, err := g.executor.Execute(ctx, task, agent.StepContext{
		Objective: st.Objective,
		Messages:  st.Messages,
		Results:   st.Results,
	})
	if err != nil {
		return PhaseExecuting, err
	}

	st.AppendTurn(llms.ChatMessageTypeHuman, fmt.Sprintf("Step %d: %s", step, task))
	st.AppendTurn(llms.ChatMessageTypeAI, report)
	st.Results = append(st.Results, report)
	st.CurrentStep++

	g.events.LogReport(observability.RunID(ctx), step, report)
	return PhaseDecision, nil
}

func (g *Graph) decide(_ context.Context, st *agent.State) (Phase, error) {
	if st.CurrentStep < len(st.Plan) {
		return PhaseExecuting, nil
	}
	return PhaseEnd, nil
}
