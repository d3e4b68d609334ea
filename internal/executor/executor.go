// Package executor turns a stack and a request payload into a structured
// advisory result attributed to the stack's primary agent.
package executor

import (
	"fmt"
	"time"

	"github.com/metamegacodex/codex/internal/policy"
	"github.com/metamegacodex/codex/internal/stack"
)

// Advisory is the generated advice block of a result.
type Advisory struct {
	Summary            string   `json:"summary"`
	RecommendedActions []string `json:"recommended_actions"`
	Confidence         string   `json:"confidence"`
	RiskLevel          string   `json:"risk_level"`
}

// Meta records which agent produced a result and when.
type Meta struct {
	AgentName   string    `json:"agent_name"`
	Model       string    `json:"model"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Result is the full executor output persisted under a run's outputs dir.
type Result struct {
	Meta       Meta           `json:"meta"`
	Routing    stack.Routing  `json:"routing"`
	Invariants map[string]any `json:"cfms_invariants"`
	Payload    map[string]any `json:"payload"`
	Advice     Advisory       `json:"advice"`
}

// Executor generates advisories for one stack.
type Executor struct {
	stack  *stack.Stack
	agent  stack.Agent
	policy policy.Executor
	now    func() time.Time
}

// New validates the stack and builds an executor. The stack must be
// non-empty and declare at least one agent.
func New(s *stack.Stack, pol policy.Executor) (*Executor, error) {
	if s == nil || s.IsEmpty() {
		return nil, fmt.Errorf("stack configuration cannot be empty")
	}
	agent, err := s.PrimaryAgent()
	if err != nil {
		return nil, err
	}
	return &Executor{stack: s, agent: agent, policy: pol, now: time.Now}, nil
}

// SetClock overrides the timestamp source. Test hook.
func (e *Executor) SetClock(now func() time.Time) { e.now = now }

// Run generates an advisory for payload. A nil payload is treated as empty.
func (e *Executor) Run(payload map[string]any) (*Result, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	return &Result{
		Meta: Meta{
			AgentName:   e.agent.Name,
			Model:       e.agent.Model,
			GeneratedAt: e.now().UTC(),
		},
		Routing:    e.stack.Routing,
		Invariants: e.stack.Invariants,
		Payload:    payload,
		Advice:     e.generateAdvisory(payload),
	}, nil
}

func (e *Executor) generateAdvisory(payload map[string]any) Advisory {
	prefix := e.policy.SummaryPrefix
	if prefix == "" {
		prefix = "Advisor Insight"
	}

	objectives := stringList(payload["objectives"])
	blockers := stringList(payload["blockers"])

	context, _ := payload["context"].(string)
	if context == "" {
		context = "No additional context supplied."
	}

	summary := prefix + " — " + context
	if len(objectives) > 0 {
		summary += " — Core objective: " + objectives[0]
	}

	actions := append([]string{}, e.policy.DefaultActions...)
	if len(blockers) > 0 {
		actions = append(actions, "Resolve blocker: "+blockers[0])
	}
	if len(objectives) > 0 {
		actions = append(actions, "Advance objective: "+objectives[0])
	}
	if len(actions) == 0 {
		actions = append(actions, "Document a concrete next step.")
	}

	risk, _ := payload["risk_level"].(string)
	if risk == "" {
		if len(blockers) > 0 {
			risk = "medium"
		} else {
			risk = "low"
		}
	}

	confidence := "high"
	if len(blockers) > 0 {
		confidence = "balanced"
	}

	return Advisory{
		Summary:            summary,
		RecommendedActions: actions,
		Confidence:         confidence,
		RiskLevel:          risk,
	}
}

// stringList coerces a payload value into a string slice: nil becomes
// empty, a list stringifies each element, anything else becomes a
// single-element slice.
func stringList(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case []string:
		return val
	default:
		return []string{fmt.Sprint(val)}
	}
}
