package agent

import (
	"github.com/tmc/langchaingo/llms"
)

// State is the single mutable record threaded through a run. It is created
// once per run with only the objective set; the workflow engine owns every
// mutation after that.
type State struct {
	// Objective is the user's original goal. Never changes after creation.
	Objective string `json:"objective"`

	// Plan is the ordered task list produced by the planner. Empty until
	// planning completes, immutable afterwards.
	Plan []string `json:"plan"`

	// CurrentStep indexes the next task to execute.
	// Always 0 <= CurrentStep <= len(Plan).
	CurrentStep int `json:"current_step"`

	// Messages is the append-only conversation history used as model context.
	Messages []llms.MessageContent `json:"messages"`

	// Results holds one report per executed task, in plan order.
	// len(Results) == CurrentStep between executions.
	Results []string `json:"results"`
}

// NewState builds the initial state for one run.
func NewState(objective string) *State {
	return &State{
		Objective:   objective,
		Plan:        []string{},
		CurrentStep: 0,
		Messages:    []llms.MessageContent{},
		Results:     []string{},
	}
}

// Done reports whether every planned task has been executed.
func (s *State) Done() bool {
	return s.CurrentStep >= len(s.Plan)
}

// AppendTurn records one conversation turn.
func (s *State) AppendTurn(role llms.ChatMessageType, text string) {
	s.Messages = append(s.Messages, llms.MessageContent{
		Role:  role,
		Parts: []llms.ContentPart{llms.TextPart(text)},
	})
}
