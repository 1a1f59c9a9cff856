package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypeRun         EventType = "run"
	EventTypePlan        EventType = "plan"
	EventTypeStep        EventType = "step"
	EventTypeReport      EventType = "report"
	EventTypeDecision    EventType = "decision"
	EventTypeReflection  EventType = "reflection"
	EventTypePolicyCheck EventType = "policy_check"
	EventTypeHeartbeat   EventType = "heartbeat"
	EventTypeLLM         EventType = "llm"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger handles structured logging.
type Logger struct {
	out        io.Writer
	llmLogPath string
	maxSize    int64
}

func NewLogger() *Logger {
	return NewLoggerTo(os.Stdout, "logs")
}

// NewLoggerTo routes events to out and keeps the LLM mirror under dir.
func NewLoggerTo(out io.Writer, dir string) *Logger {
	return &Logger{
		out:        out,
		llmLogPath: filepath.Join(dir, "llm.jsonl"),
		maxSize:    10 * 1024 * 1024, // 10MB
	}
}

// Log emits a structured JSON event to stdout. A nil logger drops events,
// so callers can leave observability unwired.
func (l *Logger) Log(evt Event) {
	if l == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		fmt.Fprintf(l.out, "{\"error\": \"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Fprintln(l.out, string(data))

	if evt.Type == EventTypeLLM {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	// Check size before writing
	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

func (l *Logger) rotateLogs() {
	// Simple rotation: keep one .old file
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

// Helper methods for common events

func (l *Logger) LogRunStarted(runID, objective string) {
	l.Log(Event{
		Type:  EventTypeRun,
		RunID: runID,
		Data:  map[string]string{"phase": "started", "objective": objective},
	})
}

func (l *Logger) LogRunFinished(runID, status string, reports int) {
	l.Log(Event{
		Type:  EventTypeRun,
		RunID: runID,
		Data: map[string]any{
			"phase":   "finished",
			"status":  status,
			"reports": reports,
		},
	})
}

func (l *Logger) LogPlan(runID string, tasks []string) {
	l.Log(Event{
		Type:  EventTypePlan,
		RunID: runID,
		Data: map[string]any{
			"tasks": tasks,
			"count": len(tasks),
		},
	})
}

func (l *Logger) LogStep(runID string, step int, task string) {
	l.Log(Event{
		Type:  EventTypeStep,
		RunID: runID,
		Data: map[string]any{
			"step": step,
			"task": task,
		},
	})
}

func (l *Logger) LogReport(runID string, step int, report string) {
	l.Log(Event{
		Type:  EventTypeReport,
		RunID: runID,
		Data: map[string]any{
			"step":   step,
			"report": report,
		},
	})
}

func (l *Logger) LogDecision(runID, action, reasoning string, confidence float64) {
	l.Log(Event{
		Type:  EventTypeDecision,
		RunID: runID,
		Data: map[string]any{
			"action":     action,
			"reasoning":  reasoning,
			"confidence": confidence,
		},
	})
}

func (l *Logger) LogReflection(runID, assessment string, shouldReplan bool) {
	l.Log(Event{
		Type:  EventTypeReflection,
		RunID: runID,
		Data: map[string]any{
			"assessment":    assessment,
			"should_replan": shouldReplan,
		},
	})
}

func (l *Logger) LogPolicyCheck(runID, objective, effect, reason string) {
	l.Log(Event{
		Type:  EventTypePolicyCheck,
		RunID: runID,
		Data: map[string]string{
			"objective": objective,
			"effect":    effect,
			"reason":    reason,
		},
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}

func (l *Logger) LogLLM(runID, role string, prompt any, response string) {
	l.Log(Event{
		Type:  EventTypeLLM,
		RunID: runID,
		Data: map[string]any{
			"role":     role,
			"prompt":   prompt,
			"response": response,
		},
	})
}

// runIDKey is the context key carrying the current run ID down to nodes.
type runIDKey struct{}

// WithRunID stamps the run ID onto the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunID extracts the run ID from the context, or "" when absent.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
