package playback

import (
	"testing"

	"github.com/mverkaik/stagehand/internal/model"
	"github.com/mverkaik/stagehand/internal/pubsub"
)

func TestVariableArithmeticFromUndefined(t *testing.T) {
	vars := NewVariableStore(pubsub.New(), testLog)

	vars.Apply(model.VariableModifier{ID: "score", Operation: model.OpAdd, Value: 5})
	vars.Apply(model.VariableModifier{ID: "score", Operation: model.OpMultiply, Value: 3})
	vars.Apply(model.VariableModifier{ID: "score", Operation: model.OpSubtract, Value: 2})

	v, ok := vars.Get("score")
	if !ok {
		t.Fatal("score should be defined")
	}
	if v != float64(13) {
		t.Errorf("score = %v, want 13", v)
	}
}

func TestVariableSetDiscardsPriorValue(t *testing.T) {
	vars := NewVariableStore(pubsub.New(), testLog)

	vars.Apply(model.VariableModifier{ID: "x", Operation: model.OpAdd, Value: 100})
	vars.Apply(model.VariableModifier{ID: "x", Operation: model.OpSet, Value: 7})

	if v, _ := vars.Get("x"); v != 7 {
		t.Errorf("x = %v, want 7", v)
	}
}

func TestVariablePowerAndDivide(t *testing.T) {
	vars := NewVariableStore(pubsub.New(), testLog)

	vars.Apply(model.VariableModifier{ID: "x", Operation: model.OpSet, Value: 2})
	vars.Apply(model.VariableModifier{ID: "x", Operation: model.OpPower, Value: 10})
	if v, _ := vars.Get("x"); v != float64(1024) {
		t.Errorf("2^10 = %v, want 1024", v)
	}

	vars.Apply(model.VariableModifier{ID: "x", Operation: model.OpDivide, Value: 4})
	if v, _ := vars.Get("x"); v != float64(256) {
		t.Errorf("1024/4 = %v, want 256", v)
	}
}

func TestVariableDivideByZeroIsIgnored(t *testing.T) {
	vars := NewVariableStore(pubsub.New(), testLog)

	vars.Apply(model.VariableModifier{ID: "x", Operation: model.OpSet, Value: 9})
	vars.Apply(model.VariableModifier{ID: "x", Operation: model.OpDivide, Value: 0})

	if v, _ := vars.Get("x"); v != 9 {
		t.Errorf("x = %v, want 9 after ignored division by zero", v)
	}
}

func TestVariableUpdatePublished(t *testing.T) {
	bus := pubsub.New()
	vars := NewVariableStore(bus, testLog)

	var updated []string
	bus.Subscribe(TopicVariableUpdated, func(data interface{}) {
		if id, ok := data.(string); ok {
			updated = append(updated, id)
		}
	})

	vars.Apply(model.VariableModifier{ID: "a", Operation: model.OpSet, Value: 1})
	vars.Apply(model.VariableModifier{ID: "b", Operation: model.OpAdd, Value: 2})

	if len(updated) != 2 || updated[0] != "a" || updated[1] != "b" {
		t.Errorf("published updates = %v, want [a b]", updated)
	}
}

func TestVariableRestoreIsSilent(t *testing.T) {
	bus := pubsub.New()
	vars := NewVariableStore(bus, testLog)

	published := 0
	bus.Subscribe(TopicVariableUpdated, func(interface{}) { published++ })

	vars.Restore(map[string]interface{}{"x": float64(4), "name": "intro"})

	if published != 0 {
		t.Errorf("restore published %d updates, want 0", published)
	}
	if v, _ := vars.Get("x"); v != float64(4) {
		t.Errorf("x = %v, want 4", v)
	}
}

func TestVariableSnapshotIsACopy(t *testing.T) {
	vars := NewVariableStore(pubsub.New(), testLog)
	vars.Apply(model.VariableModifier{ID: "x", Operation: model.OpSet, Value: 1})

	snap := vars.Snapshot()
	snap["x"] = 99

	if v, _ := vars.Get("x"); v != 1 {
		t.Errorf("mutating snapshot leaked into store: x = %v", v)
	}
}
