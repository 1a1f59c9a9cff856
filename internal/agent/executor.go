package agent

import (
	"context"
	"log"

	"github.com/tmc/langchaingo/llms"

	"github.com/rahul/kadam/internal/observability"
)

// executorTemperature leaves the model some room while executing.
const executorTemperature = 0.5

// StepContext carries everything one execution step may ground itself on.
type StepContext struct {
	Objective string
	Messages  []llms.MessageContent
	Results   []string
}

// Executor turns one task into a thought/action/result report.
// It issues exactly one model call per Execute invocation and returns the
// model text verbatim; nothing in the report is validated semantically.
type Executor struct {
	Model   llms.Model
	Prompts *PromptManager
	Events  *observability.Logger
}

func NewExecutor(model llms.Model, prompts *PromptManager) *Executor {
	return &Executor{Model: model, Prompts: prompts}
}

// Execute runs a single task against the model. A failed call or an empty
// reply fails with *ExecutionError; the cause is preserved for unwrapping.
func (e *Executor) Execute(ctx context.Context, task string, sc StepContext) (string, error) {
	messages := make([]llms.MessageContent, 0, len(sc.Messages)+2)
	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeSystem,
		Parts: []llms.ContentPart{llms.TextPart(e.Prompts.ExecutorPrompt())},
	})
	messages = append(messages, sc.Messages...)
	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(task)},
	})

	log.Printf("[Executor] working on task: %s", truncate(task, 80))
	resp, err := e.Model.GenerateContent(ctx, messages, llms.WithTemperature(executorTemperature))
	if err != nil {
		return "", &ExecutionError{Task: task, Err: &ClientError{Err: err}}
	}

	report := ""
	if len(resp.Choices) > 0 {
		report = resp.Choices[0].Content
	}
	e.Events.LogLLM(observability.RunID(ctx), "executor", task, report)
	if report == "" {
		return "", &ExecutionError{Task: task, Err: ErrEmptyResponse}
	}
	return report, nil
}
