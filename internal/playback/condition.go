package playback

import (
	"regexp"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/rs/zerolog"

	"github.com/mverkaik/stagehand/internal/model"
)

// placeholderRe matches {{variableName}} tokens in condition expressions.
var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// EvalCondition evaluates a branch condition. Each {{name}} placeholder is
// substituted with the current variable value and the remainder is
// evaluated as a boolean expression. The evaluation fails closed: an
// undefined variable, a malformed expression, or a non-boolean result all
// yield false.
func EvalCondition(cond string, vars *VariableStore, log zerolog.Logger) bool {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return true
	}

	params := make(map[string]interface{})
	undefined := ""
	expr := placeholderRe.ReplaceAllStringFunc(cond, func(tok string) string {
		name := placeholderRe.FindStringSubmatch(tok)[1]
		v, ok := vars.Get(name)
		if !ok {
			undefined = name
			return tok
		}
		params[name] = toConditionValue(v)
		return name
	})

	if undefined != "" {
		log.Warn().Str("condition", cond).Str("variable", undefined).
			Msg("condition references undefined variable, treated as unsatisfied")
		return false
	}

	ee, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		log.Warn().Str("condition", cond).Err(err).Msg("malformed condition treated as unsatisfied")
		return false
	}
	result, err := ee.Evaluate(params)
	if err != nil {
		log.Warn().Str("condition", cond).Err(err).Msg("condition evaluation failed, treated as unsatisfied")
		return false
	}

	b, ok := result.(bool)
	if !ok {
		log.Warn().Str("condition", cond).Msg("condition did not evaluate to a boolean, treated as unsatisfied")
		return false
	}
	return b
}

// toConditionValue normalizes stored variable values for comparison:
// numeric kinds become float64 so {{x}}==1 matches whether x was set as
// an int or computed as a float; everything else passes through.
func toConditionValue(v interface{}) interface{} {
	switch v.(type) {
	case float64, float32, int, int64:
		return toNumber(v)
	default:
		return v
	}
}

// ResolveLeadsTo picks the branch target from an ordered rule list. The
// first rule with a satisfied condition wins. A rule without a condition
// is the remembered default and is returned only when no conditional rule
// matched, regardless of its position in the list.
func ResolveLeadsTo(rules []model.LeadsTo, vars *VariableStore, log zerolog.Logger) (string, bool) {
	fallback := ""
	haveFallback := false

	for _, rule := range rules {
		if strings.TrimSpace(rule.Condition) == "" {
			fallback = rule.Subject
			haveFallback = true
			continue
		}
		if EvalCondition(rule.Condition, vars, log) {
			return rule.Subject, true
		}
	}
	return fallback, haveFallback
}
