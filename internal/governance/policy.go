package governance

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request contains the context of an objective to be evaluated before a run
// is admitted.
type Request struct {
	Objective string
	Source    string
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
}

// PolicyEngine evaluates objectives against a set of rules.
type PolicyEngine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// DefaultPolicyEngine is a basic implementation of PolicyEngine.
type DefaultPolicyEngine struct {
	DeniedPatterns    []*regexp.Regexp
	MaxObjectiveChars int
}

func NewDefaultPolicyEngine() *DefaultPolicyEngine {
	return &DefaultPolicyEngine{
		DeniedPatterns: make([]*regexp.Regexp, 0),
	}
}

func (e *DefaultPolicyEngine) DenyObjective(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	e.DeniedPatterns = append(e.DeniedPatterns, re)
	return nil
}

func (e *DefaultPolicyEngine) Evaluate(ctx context.Context, req Request) (Result, error) {
	objective := strings.TrimSpace(req.Objective)
	if objective == "" {
		return Result{
			Effect: EffectDeny,
			Reason: "Objective is empty",
		}, nil
	}

	if e.MaxObjectiveChars > 0 && len(objective) > e.MaxObjectiveChars {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("Objective exceeds %d characters", e.MaxObjectiveChars),
		}, nil
	}

	for _, re := range e.DeniedPatterns {
		if re.MatchString(objective) {
			return Result{
				Effect: EffectDeny,
				Reason: fmt.Sprintf("Objective matches restricted pattern: %s", re.String()),
			}, nil
		}
	}

	return Result{
		Effect: EffectAllow,
		Reason: "Approved by default policy",
	}, nil
}
