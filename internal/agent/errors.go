package agent

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse marks a model reply with no text content.
var ErrEmptyResponse = errors.New("empty model response")

// ClientError wraps a failed model call (network, auth, rate limit).
type ClientError struct {
	Err error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("llm client: %v", e.Err)
}

func (e *ClientError) Unwrap() error { return e.Err }

// PlanParseError means the planner response contained no usable task lines.
type PlanParseError struct {
	// Response is the raw model text that failed to parse.
	Response string
}

func (e *PlanParseError) Error() string {
	return fmt.Sprintf("plan parse: no numbered tasks in %d-byte response", len(e.Response))
}

// ExecutionError means one task execution failed or produced nothing.
type ExecutionError struct {
	Task string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute %q: %v", truncate(e.Task, 60), e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
