package playback

import (
	"testing"

	"github.com/mverkaik/stagehand/internal/model"
	"github.com/mverkaik/stagehand/internal/pubsub"
)

func varsWith(t *testing.T, values map[string]interface{}) *VariableStore {
	t.Helper()
	vars := NewVariableStore(pubsub.New(), testLog)
	for name, v := range values {
		vars.Apply(model.VariableModifier{ID: name, Operation: model.OpSet, Value: v})
	}
	return vars
}

func TestEvalConditionBasics(t *testing.T) {
	vars := varsWith(t, map[string]interface{}{"x": 1, "name": "intro"})

	cases := []struct {
		cond string
		want bool
	}{
		{"", true},
		{"   ", true},
		{"{{x}} == 1", true},
		{"{{x}} == 2", false},
		{"{{x}} >= 1 && {{x}} < 5", true},
		{"{{name}} == 'intro'", true},
		{"{{missing}} == 1", false}, // undefined variable fails closed
		{"{{x}} ==", false},         // malformed expression
		{"{{x}} + 1", false},        // non-boolean result
	}

	for _, tc := range cases {
		if got := EvalCondition(tc.cond, vars, testLog); got != tc.want {
			t.Errorf("EvalCondition(%q) = %v, want %v", tc.cond, got, tc.want)
		}
	}
}

func TestResolveLeadsToConditionalBeatsDefault(t *testing.T) {
	rules := []model.LeadsTo{
		{Subject: "A"},
		{Subject: "B", Condition: "{{x}} == 1"},
	}

	// Conditional matches: it wins even though the default is declared
	// first.
	vars := varsWith(t, map[string]interface{}{"x": 1})
	if target, ok := ResolveLeadsTo(rules, vars, testLog); !ok || target != "B" {
		t.Errorf("x=1: resolved (%q, %v), want (B, true)", target, ok)
	}

	// Conditional fails: the default applies.
	vars = varsWith(t, map[string]interface{}{"x": 2})
	if target, ok := ResolveLeadsTo(rules, vars, testLog); !ok || target != "A" {
		t.Errorf("x=2: resolved (%q, %v), want (A, true)", target, ok)
	}

	// Undefined variable fails closed: the default applies.
	vars = NewVariableStore(pubsub.New(), testLog)
	if target, ok := ResolveLeadsTo(rules, vars, testLog); !ok || target != "A" {
		t.Errorf("x undefined: resolved (%q, %v), want (A, true)", target, ok)
	}
}

func TestResolveLeadsToFirstSatisfiedConditionalWins(t *testing.T) {
	rules := []model.LeadsTo{
		{Subject: "A", Condition: "{{x}} > 0"},
		{Subject: "B", Condition: "{{x}} > 0"},
	}
	vars := varsWith(t, map[string]interface{}{"x": 5})

	if target, ok := ResolveLeadsTo(rules, vars, testLog); !ok || target != "A" {
		t.Errorf("resolved (%q, %v), want (A, true)", target, ok)
	}
}

func TestResolveLeadsToNoApplicableRule(t *testing.T) {
	rules := []model.LeadsTo{
		{Subject: "A", Condition: "{{x}} == 1"},
	}
	vars := varsWith(t, map[string]interface{}{"x": 2})

	if target, ok := ResolveLeadsTo(rules, vars, testLog); ok {
		t.Errorf("resolved (%q, %v), want no target", target, ok)
	}

	if target, ok := ResolveLeadsTo(nil, vars, testLog); ok {
		t.Errorf("empty rules resolved (%q, %v), want no target", target, ok)
	}
}
