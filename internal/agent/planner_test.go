package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"github.com/rahul/kadam/internal/observability"
)

// fakeModel scripts model replies and records what each call asked for.
type fakeModel struct {
	replies []string
	failAt  int // 1-based call number that fails, 0 for never
	err     error

	calls    int
	temps    []float64
	messages [][]llms.MessageContent
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	var opts llms.CallOptions
	for _, opt := range options {
		opt(&opts)
	}
	f.temps = append(f.temps, opts.Temperature)
	f.messages = append(f.messages, messages)

	if f.failAt > 0 && f.calls == f.failAt {
		err := f.err
		if err == nil {
			err = errors.New("scripted failure")
		}
		return nil, err
	}

	reply := ""
	if n := f.calls - 1; n < len(f.replies) {
		reply = f.replies[n]
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply}}}, nil
}

func (f *fakeModel) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return "", errors.New("Call is not scripted, use GenerateContent")
}

func partText(mc llms.MessageContent) string {
	if len(mc.Parts) == 0 {
		return ""
	}
	if tc, ok := mc.Parts[0].(llms.TextContent); ok {
		return tc.Text
	}
	return ""
}

func TestPlannerPlan(t *testing.T) {
	model := &fakeModel{replies: []string{
		"1. Research the target audience\n2. Draft the content calendar\n3. Schedule the posts",
	}}
	planner := NewPlanner(model, NewPromptManager(""))

	tasks, err := planner.Plan(context.Background(), "launch a product campaign", nil)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	want := []string{
		"Research the target audience",
		"Draft the content calendar",
		"Schedule the posts",
	}
	if len(tasks) != len(want) {
		t.Fatalf("Expected %d tasks, got %d: %v", len(want), len(tasks), tasks)
	}
	for i := range want {
		if tasks[i] != want[i] {
			t.Errorf("Task %d: expected %q, got %q", i, want[i], tasks[i])
		}
	}

	if model.calls != 1 {
		t.Errorf("Expected exactly 1 model call, got %d", model.calls)
	}
	if model.temps[0] != 0 {
		t.Errorf("Expected temperature 0, got %v", model.temps[0])
	}

	sent := model.messages[0]
	if sent[0].Role != llms.ChatMessageTypeSystem {
		t.Errorf("Expected system role first, got %s", sent[0].Role)
	}
	last := sent[len(sent)-1]
	if last.Role != llms.ChatMessageTypeHuman || partText(last) != "launch a product campaign" {
		t.Errorf("Expected objective as final human turn, got %s %q", last.Role, partText(last))
	}
}

func TestPlannerForwardsHistory(t *testing.T) {
	model := &fakeModel{replies: []string{"1. Do the thing"}}
	planner := NewPlanner(model, NewPromptManager(""))

	history := []llms.MessageContent{
		{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextPart("earlier question")}},
		{Role: llms.ChatMessageTypeAI, Parts: []llms.ContentPart{llms.TextPart("earlier answer")}},
	}
	if _, err := planner.Plan(context.Background(), "objective", history); err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	sent := model.messages[0]
	if len(sent) != 4 {
		t.Fatalf("Expected system + 2 history + human = 4 messages, got %d", len(sent))
	}
	if partText(sent[1]) != "earlier question" || partText(sent[2]) != "earlier answer" {
		t.Error("History turns not forwarded in order")
	}
}

func TestPlannerMirrorsModelExchange(t *testing.T) {
	var buf bytes.Buffer
	model := &fakeModel{replies: []string{"1. Do the thing"}}
	planner := NewPlanner(model, NewPromptManager(""))
	planner.Events = observability.NewLoggerTo(&buf, t.TempDir())

	ctx := observability.WithRunID(context.Background(), "run-42")
	if _, err := planner.Plan(ctx, "objective", nil); err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"type":"llm"`) {
		t.Errorf("Expected an llm event for the model call, got %q", out)
	}
	if !strings.Contains(out, `"run_id":"run-42"`) {
		t.Errorf("Expected the run ID carried onto the event, got %q", out)
	}
	if !strings.Contains(out, `"role":"planner"`) {
		t.Errorf("Expected the planner role on the event, got %q", out)
	}
}

func TestPlannerNoTasks(t *testing.T) {
	model := &fakeModel{replies: []string{"I am sorry, I cannot help with planning this."}}
	planner := NewPlanner(model, NewPromptManager(""))

	_, err := planner.Plan(context.Background(), "objective", nil)
	var parseErr *PlanParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Expected PlanParseError, got %v", err)
	}
	if parseErr.Response == "" {
		t.Error("Expected raw response preserved in error")
	}
}

func TestPlannerEmptyResponse(t *testing.T) {
	model := &fakeModel{replies: []string{""}}
	planner := NewPlanner(model, NewPromptManager(""))

	_, err := planner.Plan(context.Background(), "objective", nil)
	var parseErr *PlanParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Expected PlanParseError for empty response, got %v", err)
	}
}

func TestPlannerClientError(t *testing.T) {
	boom := errors.New("connection refused")
	model := &fakeModel{failAt: 1, err: boom}
	planner := NewPlanner(model, NewPromptManager(""))

	_, err := planner.Plan(context.Background(), "objective", nil)
	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("Expected ClientError, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Error("Expected the transport error to be preserved in the chain")
	}
}

func TestParsePlan(t *testing.T) {
	text := `Here is the plan:

1. First task
2) Second task
some prose in between that is not a task
- Third task as a bullet
3.   Fourth task with extra spaces
`
	tasks := ParsePlan(text)
	want := []string{"First task", "Second task", "Third task as a bullet", "Fourth task with extra spaces"}
	if len(tasks) != len(want) {
		t.Fatalf("Expected %d tasks, got %d: %v", len(want), len(tasks), tasks)
	}
	for i := range want {
		if tasks[i] != want[i] {
			t.Errorf("Task %d: expected %q, got %q", i, want[i], tasks[i])
		}
	}
}

func TestParsePlanIdempotent(t *testing.T) {
	tasks := ParsePlan("1. Alpha\n2. Beta\n3. Gamma")

	var rendered strings.Builder
	for i, task := range tasks {
		fmt.Fprintf(&rendered, "%d. %s\n", i+1, task)
	}
	again := ParsePlan(rendered.String())

	if len(again) != len(tasks) {
		t.Fatalf("Reparse changed task count: %d vs %d", len(again), len(tasks))
	}
	for i := range tasks {
		if again[i] != tasks[i] {
			t.Errorf("Reparse changed task %d: %q vs %q", i, again[i], tasks[i])
		}
	}
}

func TestParsePlanProseOnly(t *testing.T) {
	if tasks := ParsePlan("This response contains no task list at all."); len(tasks) != 0 {
		t.Errorf("Expected no tasks from prose, got %v", tasks)
	}
}
