package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rahul/kadam/internal/agent"
	"github.com/rahul/kadam/internal/governance"
)

type scriptDirector struct {
	calls      int
	objectives []string
	err        error
}

func (d *scriptDirector) RunState(_ context.Context, objective string) (*agent.State, error) {
	d.calls++
	d.objectives = append(d.objectives, objective)
	st := agent.NewState(objective)
	st.Plan = []string{"t1"}
	st.Results = []string{"report 1"}
	st.CurrentStep = 1
	return st, d.err
}

func TestServeDeniedObjectiveNeverRuns(t *testing.T) {
	policy := governance.NewDefaultPolicyEngine()
	if err := policy.DenyObjective(`(?i)wipe the database`); err != nil {
		t.Fatalf("DenyObjective failed: %v", err)
	}
	director := &scriptDirector{}
	tg := &TelegramGateway{Director: director, Policy: policy}

	st, res, err := tg.serve(context.Background(), "wipe the database tonight")
	if err != nil {
		t.Fatalf("serve failed: %v", err)
	}
	if res.Effect != governance.EffectDeny {
		t.Errorf("Expected EffectDeny, got %s", res.Effect)
	}
	if st != nil {
		t.Error("A denied objective must not produce a run state")
	}
	if director.calls != 0 {
		t.Errorf("A denied objective must never reach the director, ran %d times", director.calls)
	}
}

func TestServeAllowedObjectiveRuns(t *testing.T) {
	director := &scriptDirector{}
	tg := &TelegramGateway{Director: director, Policy: governance.NewDefaultPolicyEngine()}

	st, res, err := tg.serve(context.Background(), "summarize the meeting notes")
	if err != nil {
		t.Fatalf("serve failed: %v", err)
	}
	if res.Effect != governance.EffectAllow {
		t.Errorf("Expected EffectAllow, got %s", res.Effect)
	}
	if director.calls != 1 || director.objectives[0] != "summarize the meeting notes" {
		t.Errorf("Expected exactly one run of the objective, got %v", director.objectives)
	}
	if st == nil || len(st.Results) != 1 {
		t.Errorf("Expected the final state handed back, got %+v", st)
	}
}

func TestServeWithoutPolicy(t *testing.T) {
	director := &scriptDirector{}
	tg := &TelegramGateway{Director: director}

	st, res, err := tg.serve(context.Background(), "objective")
	if err != nil {
		t.Fatalf("serve failed: %v", err)
	}
	if res.Effect != governance.EffectAllow || director.calls != 1 || st == nil {
		t.Errorf("Unpoliced gateway must run every objective, got effect=%s calls=%d", res.Effect, director.calls)
	}
}

func TestServeKeepsPartialStateOnRunError(t *testing.T) {
	boom := errors.New("quota exceeded")
	director := &scriptDirector{err: boom}
	tg := &TelegramGateway{Director: director}

	st, _, err := tg.serve(context.Background(), "objective")
	if !errors.Is(err, boom) {
		t.Fatalf("Expected the run error unchanged, got %v", err)
	}
	if st == nil || len(st.Results) != 1 {
		t.Errorf("Expected the partial state alongside the error, got %+v", st)
	}
}

func TestSendRejectsBadChatID(t *testing.T) {
	tg := &TelegramGateway{}
	if err := tg.Send("not-a-number", "hello"); err == nil {
		t.Error("Expected an error for a malformed chat ID")
	}
}

func TestClipForChat(t *testing.T) {
	if got := clipForChat("short"); got != "short" {
		t.Errorf("Short text must pass through, got %q", got)
	}
	long := strings.Repeat("执行任务", maxChatChars)
	got := clipForChat(long)
	if utf8.RuneCountInString(got) != maxChatChars+3 || !strings.HasSuffix(got, "...") {
		t.Errorf("Expected the text clipped to the chat cap, got %d runes", utf8.RuneCountInString(got))
	}
	if !utf8.ValidString(got) {
		t.Errorf("Clipping broke a rune mid-sequence")
	}
}
