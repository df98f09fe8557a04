package playback

import (
	"math"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/mverkaik/stagehand/internal/events"
	"github.com/mverkaik/stagehand/internal/model"
	"github.com/mverkaik/stagehand/internal/pubsub"
)

// TopicVariableUpdated is published on the owning player's bus after a
// variable modifier is applied. Data: the variable id (string).
const TopicVariableUpdated = "variable.updated"

// VariableStore is the single flat mapping of variable name to
// numeric-or-string value. It is owned by the Player and passed down to
// the components that apply modifiers; it is never reset except by a full
// player reset.
type VariableStore struct {
	bus    *pubsub.Bus
	log    zerolog.Logger
	values map[string]interface{}
}

// NewVariableStore creates an empty store that publishes updates on bus.
func NewVariableStore(bus *pubsub.Bus, log zerolog.Logger) *VariableStore {
	return &VariableStore{
		bus:    bus,
		log:    log.With().Str("component", "variables").Logger(),
		values: make(map[string]interface{}),
	}
}

// Get returns the current value of a variable.
func (s *VariableStore) Get(name string) (interface{}, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Apply performs one modifier operation. Unknown variables default to 0
// before the operation is applied. After applying, the update is
// published on the owner's bus and recorded in the journal.
func (s *VariableStore) Apply(m model.VariableModifier) {
	if m.ID == "" {
		s.log.Warn().Msg("variable modifier without id ignored")
		return
	}

	switch m.Operation {
	case model.OpSet, "":
		s.values[m.ID] = m.Value
	case model.OpAdd:
		s.values[m.ID] = s.number(m.ID) + toNumber(m.Value)
	case model.OpSubtract:
		s.values[m.ID] = s.number(m.ID) - toNumber(m.Value)
	case model.OpMultiply:
		s.values[m.ID] = s.number(m.ID) * toNumber(m.Value)
	case model.OpDivide:
		operand := toNumber(m.Value)
		if operand == 0 {
			s.log.Warn().Str("variable", m.ID).Msg("division by zero ignored")
			return
		}
		s.values[m.ID] = s.number(m.ID) / operand
	case model.OpPower:
		s.values[m.ID] = math.Pow(s.number(m.ID), toNumber(m.Value))
	default:
		s.log.Warn().Str("variable", m.ID).Str("operation", m.Operation).Msg("unknown variable operation ignored")
		return
	}

	events.Emit("info", "variable.updated", "", map[string]interface{}{
		"id":    m.ID,
		"value": s.values[m.ID],
	})
	s.bus.Publish(TopicVariableUpdated, m.ID)
}

// ApplyAll applies modifiers in declaration order.
func (s *VariableStore) ApplyAll(mods []model.VariableModifier) {
	for _, m := range mods {
		s.Apply(m)
	}
}

// Snapshot returns a copy of all current values.
func (s *VariableStore) Snapshot() map[string]interface{} {
	out := make(map[string]interface{}, len(s.values))
	for name, v := range s.values {
		out[name] = v
	}
	return out
}

// Reset discards every variable.
func (s *VariableStore) Reset() {
	s.values = make(map[string]interface{})
}

// Restore installs values without publishing updates. Used by session
// restore, where the journal already contains the update events.
func (s *VariableStore) Restore(values map[string]interface{}) {
	for name, v := range values {
		s.values[name] = v
	}
}

func (s *VariableStore) number(name string) float64 {
	v, ok := s.values[name]
	if !ok {
		return 0
	}
	return toNumber(v)
}

func toNumber(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
