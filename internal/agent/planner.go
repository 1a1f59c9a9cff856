package agent

import (
	"context"
	"log"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/rahul/kadam/internal/observability"
)

// plannerTemperature keeps planning output stable across runs.
const plannerTemperature = 0.0

var taskLine = regexp.MustCompile(`^\d+[.)]\s*(.+)$`)

// Planner breaks a high-level objective into an ordered list of tasks.
// It issues exactly one model call per Plan invocation.
type Planner struct {
	Model   llms.Model
	Prompts *PromptManager
	Events  *observability.Logger
}

func NewPlanner(model llms.Model, prompts *PromptManager) *Planner {
	return &Planner{Model: model, Prompts: prompts}
}

// Plan asks the model for a numbered task list and parses it. The history
// turns are forwarded as conversation context. It fails with *ClientError
// when the call fails and *PlanParseError when no task lines come back.
func (p *Planner) Plan(ctx context.Context, objective string, history []llms.MessageContent) ([]string, error) {
	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeSystem,
		Parts: []llms.ContentPart{llms.TextPart(p.Prompts.PlannerPrompt())},
	})
	messages = append(messages, history...)
	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(objective)},
	})

	log.Printf("[Planner] requesting plan for objective: %s", truncate(objective, 80))
	resp, err := p.Model.GenerateContent(ctx, messages, llms.WithTemperature(plannerTemperature))
	if err != nil {
		return nil, &ClientError{Err: err}
	}

	text := ""
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Content
	}
	p.Events.LogLLM(observability.RunID(ctx), "planner", objective, text)

	tasks := ParsePlan(text)
	if len(tasks) == 0 {
		return nil, &PlanParseError{Response: text}
	}
	log.Printf("[Planner] parsed %d tasks", len(tasks))
	return tasks, nil
}

// ParsePlan extracts task descriptions from a numbered list. A task line
// starts with an ordinal marker ("1.", "2)") or a dash bullet; everything
// else is ignored. Order is preserved.
func ParsePlan(text string) []string {
	var tasks []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := taskLine.FindStringSubmatch(line); m != nil {
			if task := strings.TrimSpace(m[1]); task != "" {
				tasks = append(tasks, task)
			}
			continue
		}
		if strings.HasPrefix(line, "- ") {
			if task := strings.TrimSpace(line[2:]); task != "" {
				tasks = append(tasks, task)
			}
		}
	}
	return tasks
}
