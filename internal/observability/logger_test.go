package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogWritesEventJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, t.TempDir())

	l.LogPlan("run-1", []string{"a", "b"})

	var evt Event
	if err := json.Unmarshal(buf.Bytes(), &evt); err != nil {
		t.Fatalf("Event is not valid JSON: %v (%q)", err, buf.String())
	}
	if evt.Type != EventTypePlan || evt.RunID != "run-1" {
		t.Errorf("Unexpected event: %+v", evt)
	}
	if evt.Timestamp.IsZero() {
		t.Error("Expected a timestamp stamped on the event")
	}
}

func TestLLMEventMirroredToFile(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, dir)

	l.LogLLM("run-1", "planner", "the objective", "1. the task")

	if !strings.Contains(buf.String(), `"type":"llm"`) {
		t.Errorf("Expected the llm event on the main stream, got %q", buf.String())
	}
	data, err := os.ReadFile(filepath.Join(dir, "llm.jsonl"))
	if err != nil {
		t.Fatalf("LLM mirror file missing: %v", err)
	}
	if !strings.Contains(string(data), `"role":"planner"`) {
		t.Errorf("Mirror file missing the event payload: %q", data)
	}
}

func TestNonLLMEventsNotMirrored(t *testing.T) {
	dir := t.TempDir()
	l := NewLoggerTo(&bytes.Buffer{}, dir)

	l.LogStep("run-1", 1, "task")

	if _, err := os.Stat(filepath.Join(dir, "llm.jsonl")); !os.IsNotExist(err) {
		t.Error("Only llm events should reach the mirror file")
	}
}

func TestLLMLogRotation(t *testing.T) {
	dir := t.TempDir()
	l := NewLoggerTo(&bytes.Buffer{}, dir)
	l.maxSize = 10

	l.LogLLM("run-1", "planner", "p", "first response")
	l.LogLLM("run-1", "planner", "p", "second response")

	if _, err := os.Stat(filepath.Join(dir, "llm.jsonl.old")); err != nil {
		t.Errorf("Expected the oversized file rotated away: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "llm.jsonl"))
	if err != nil {
		t.Fatalf("Current mirror file missing: %v", err)
	}
	if !strings.Contains(string(data), "second response") {
		t.Errorf("Current file should hold the latest event, got %q", data)
	}
}

func TestNilLoggerDropsEvents(t *testing.T) {
	var l *Logger
	l.Log(Event{Type: EventTypeStep})
	l.LogLLM("run-1", "planner", "p", "response")
	l.LogHeartbeat()
}
