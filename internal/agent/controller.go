package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/rahul/kadam/internal/observability"
)

// Actions the controller model may choose between iterations.
const (
	ActionPlan     = "plan"
	ActionExecute  = "execute"
	ActionReflect  = "reflect"
	ActionReplan   = "replan"
	ActionComplete = "complete"
)

// Summary statuses.
const (
	StatusCompleted     = "completed"
	StatusMaxIterations = "max_iterations_reached"
	StatusFailed        = "failed"
)

const (
	controllerTemperature = 0.3
	defaultMaxIterations  = 10
)

var (
	fenceOpen  = regexp.MustCompile("^```(?:json)?\\s*")
	fenceClose = regexp.MustCompile("```$")
)

// Decision is the controller model's choice of what to do next.
type Decision struct {
	Action     string  `json:"action"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
	Urgency    string  `json:"urgency"`
}

// CompletedTask records one executed task with the model's own account of
// how it went.
type CompletedTask struct {
	Task            string  `json:"task"`
	Process         string  `json:"execution_process,omitempty"`
	Results         string  `json:"results"`
	Challenges      string  `json:"challenges,omitempty"`
	QualityScore    float64 `json:"quality_score"`
	Recommendations string  `json:"recommendations,omitempty"`
}

// Reflection is the model's assessment of recent execution history.
type Reflection struct {
	Assessment           string   `json:"assessment"`
	Strengths            []string `json:"strengths"`
	Weaknesses           []string `json:"weaknesses"`
	Patterns             []string `json:"patterns"`
	Recommendations      []string `json:"recommendations"`
	ConfidenceAdjustment float64  `json:"confidence_adjustment"`
	ShouldReplan         bool     `json:"should_replan"`
}

// Summary is what a controller run hands back. Status is one of
// StatusCompleted, StatusMaxIterations or StatusFailed.
type Summary struct {
	Objective   string          `json:"objective"`
	Completed   []CompletedTask `json:"completed_tasks"`
	Reflections []Reflection    `json:"reflections"`
	Confidence  float64         `json:"final_confidence"`
	Iterations  int             `json:"iterations_used"`
	Status      string          `json:"status"`
}

// Controller runs the autonomous mode: instead of walking a fixed plan, the
// model itself chooses each iteration between planning, executing the next
// task, reflecting on recent work, replanning or declaring the objective
// complete. It is a looser sibling of the plan-then-execute engine and keeps
// its own bookkeeping, separate from State.
type Controller struct {
	Model         llms.Model
	Prompts       *PromptManager
	Events        *observability.Logger
	MaxIterations int
}

// NewController returns a controller with the default iteration cap.
func NewController(model llms.Model, prompts *PromptManager) *Controller {
	return &Controller{Model: model, Prompts: prompts, MaxIterations: defaultMaxIterations}
}

// controllerState is the controller's private run bookkeeping.
type controllerState struct {
	objective   string
	plan        []string
	completed   []CompletedTask
	reflections []Reflection
	replanCount int
	confidence  float64
	status      string
}

// snapshot renders the state as the JSON document the decision prompt sees.
func (st *controllerState) snapshot() map[string]any {
	progress := "0/0"
	if len(st.plan) > 0 {
		progress = fmt.Sprintf("%d/%d", len(st.completed), len(st.plan))
	}
	return map[string]any{
		"objective":        st.objective,
		"plan":             st.plan,
		"completed_tasks":  st.completed,
		"reflections":      st.reflections,
		"replan_count":     st.replanCount,
		"confidence_score": st.confidence,
		"status":           st.status,
		"progress":         progress,
	}
}

// recentHistory picks the last few tasks and reflections for the decision
// prompt, keeping the context small.
func (st *controllerState) recentHistory() []any {
	var recent []any
	tasks := st.completed
	if len(tasks) > 3 {
		tasks = tasks[len(tasks)-3:]
	}
	for _, t := range tasks {
		recent = append(recent, t)
	}
	refs := st.reflections
	if len(refs) > 2 {
		refs = refs[len(refs)-2:]
	}
	for _, r := range refs {
		recent = append(recent, r)
	}
	return recent
}

// Run loops until the model declares the objective complete or the iteration
// cap is hit. Model transport failures abort the run; the summary built so
// far comes back alongside the error.
func (c *Controller) Run(ctx context.Context, objective string) (*Summary, error) {
	maxIter := c.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}

	st := &controllerState{objective: objective, status: "initializing"}
	runID := observability.RunID(ctx)
	log.Printf("[Controller] starting autonomous run: %s", truncate(objective, 80))

	status := StatusMaxIterations
	iterations := 0

loop:
	for iterations < maxIter {
		iterations++

		dec, err := c.decide(ctx, st)
		if err != nil {
			return c.summary(st, iterations, StatusFailed), err
		}
		st.confidence = dec.Confidence
		st.status = dec.Action

		log.Printf("[Controller] iteration %d: %s (confidence %.2f): %s",
			iterations, dec.Action, dec.Confidence, truncate(dec.Reasoning, 120))
		c.Events.LogDecision(runID, dec.Action, dec.Reasoning, dec.Confidence)

		switch dec.Action {
		case ActionPlan:
			err = c.planStep(ctx, st, false)
		case ActionReplan:
			err = c.planStep(ctx, st, true)
		case ActionExecute:
			err = c.executeStep(ctx, st)
		case ActionComplete:
			log.Printf("[Controller] model declared objective complete")
			status = StatusCompleted
			break loop
		case ActionReflect:
			err = c.reflectStep(ctx, st)
		default:
			log.Printf("[Controller] unknown action %q, reflecting instead", dec.Action)
			err = c.reflectStep(ctx, st)
		}
		if err != nil {
			return c.summary(st, iterations, StatusFailed), err
		}
	}

	observability.SetStatus(observability.StageIdle, "")
	return c.summary(st, iterations, status), nil
}

func (c *Controller) summary(st *controllerState, iterations int, status string) *Summary {
	return &Summary{
		Objective:   st.objective,
		Completed:   st.completed,
		Reflections: st.reflections,
		Confidence:  st.confidence,
		Iterations:  iterations,
		Status:      status,
	}
}

// decide asks the model for the next action. A response that is not valid
// JSON degrades to a low-confidence reflect action rather than failing the
// run.
func (c *Controller) decide(ctx context.Context, st *controllerState) (Decision, error) {
	stateJSON, _ := json.MarshalIndent(st.snapshot(), "", "  ")
	historyJSON, _ := json.MarshalIndent(st.recentHistory(), "", "  ")

	text, err := c.generate(ctx, c.Prompts.ControllerPrompt(),
		fmt.Sprintf("Current State: %s\nRecent History: %s", stateJSON, historyJSON))
	if err != nil {
		return Decision{}, err
	}

	var dec Decision
	if uerr := json.Unmarshal([]byte(text), &dec); uerr != nil || dec.Action == "" {
		log.Printf("[Controller] decision did not parse, falling back to reflection")
		return Decision{
			Action:     ActionReflect,
			Reasoning:  "Failed to parse decision, defaulting to reflection",
			Confidence: 0.3,
			Urgency:    "medium",
		}, nil
	}
	return dec, nil
}

func (c *Controller) planStep(ctx context.Context, st *controllerState, replan bool) error {
	label := "plan"
	if replan {
		label = "replan"
	}
	observability.SetStatus(observability.StagePlanning, st.objective)

	planContext, _ := json.Marshal(map[string]any{
		"completed_tasks": st.completed,
		"reflections":     st.reflections,
		"replan_count":    st.replanCount,
	})
	text, err := c.generate(ctx, c.Prompts.AutoPlannerPrompt(),
		fmt.Sprintf("Objective: %s\nCurrent Context: %s", st.objective, planContext))
	if err != nil {
		return err
	}

	var parsed struct {
		Plan       []string `json:"plan"`
		Reasoning  string   `json:"reasoning"`
		Difficulty string   `json:"estimated_difficulty"`
	}
	if uerr := json.Unmarshal([]byte(text), &parsed); uerr != nil {
		log.Printf("[Controller] %s response did not parse, keeping current plan", label)
		return nil
	}

	st.plan = parsed.Plan
	if replan {
		st.replanCount++
	}
	log.Printf("[Controller] %s produced %d tasks", label, len(st.plan))
	c.Events.LogPlan(observability.RunID(ctx), st.plan)
	return nil
}

func (c *Controller) executeStep(ctx context.Context, st *controllerState) error {
	if len(st.plan) == 0 {
		log.Printf("[Controller] no plan to execute, planning first")
		return c.planStep(ctx, st, false)
	}
	next := len(st.completed)
	if next >= len(st.plan) {
		log.Printf("[Controller] all %d planned tasks already executed", len(st.plan))
		return nil
	}

	task := st.plan[next]
	observability.SetStatus(observability.StageExecuting, task)
	log.Printf("[Controller] executing task %d: %s", next+1, truncate(task, 80))
	c.Events.LogStep(observability.RunID(ctx), next+1, task)

	execContext, _ := json.Marshal(map[string]any{
		"completed_tasks": st.completed,
		"remaining_tasks": st.plan[next+1:],
		"objective":       st.objective,
	})
	text, err := c.generate(ctx, c.Prompts.AutoExecutorPrompt(),
		fmt.Sprintf("Task: %s\nContext: %s", task, execContext))
	if err != nil {
		return err
	}

	rec := CompletedTask{QualityScore: 0.5}
	if uerr := json.Unmarshal([]byte(text), &rec); uerr != nil {
		// Keep the raw text rather than losing the work.
		rec = CompletedTask{Results: text, QualityScore: 0.3}
	}
	rec.Task = task
	st.completed = append(st.completed, rec)

	log.Printf("[Controller] task done, quality %.2f", rec.QualityScore)
	c.Events.LogReport(observability.RunID(ctx), next+1, rec.Results)
	return nil
}

func (c *Controller) reflectStep(ctx context.Context, st *controllerState) error {
	if len(st.completed) == 0 {
		log.Printf("[Controller] nothing executed yet, skipping reflection")
		return nil
	}
	observability.SetStatus(observability.StageReflecting, st.objective)

	historyJSON, _ := json.Marshal(st.completed)
	planJSON, _ := json.Marshal(st.plan)
	text, err := c.generate(ctx, c.Prompts.ReflectionPrompt(),
		fmt.Sprintf("Recent Execution History: %s\nCurrent Plan: %s\nObjective: %s", historyJSON, planJSON, st.objective))
	if err != nil {
		return err
	}

	var ref Reflection
	if uerr := json.Unmarshal([]byte(text), &ref); uerr != nil {
		log.Printf("[Controller] reflection did not parse, skipping")
		return nil
	}

	st.reflections = append(st.reflections, ref)
	st.confidence = clamp01(st.confidence + ref.ConfidenceAdjustment)
	if ref.ShouldReplan {
		log.Printf("[Controller] reflection suggests replanning")
	}
	c.Events.LogReflection(observability.RunID(ctx), ref.Assessment, ref.ShouldReplan)
	return nil
}

// generate makes one model call and returns the response with any markdown
// code fences stripped.
func (c *Controller) generate(ctx context.Context, system, human string) (string, error) {
	messages := []llms.MessageContent{
		{Role: llms.ChatMessageTypeSystem, Parts: []llms.ContentPart{llms.TextPart(system)}},
		{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextPart(human)}},
	}
	resp, err := c.Model.GenerateContent(ctx, messages, llms.WithTemperature(controllerTemperature))
	if err != nil {
		return "", &ClientError{Err: err}
	}
	text := ""
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Content
	}
	c.Events.LogLLM(observability.RunID(ctx), "controller", human, text)
	return stripFences(text), nil
}

// stripFences removes a wrapping markdown code block, which chat models add
// around JSON output even when told not to.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = fenceOpen.ReplaceAllString(s, "")
	s = fenceClose.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
