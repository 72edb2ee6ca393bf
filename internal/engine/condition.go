package engine

import (
	"strconv"
	"strings"

	"github.com/yuiseki/data-gather/internal/model"
)

// ConditionEvaluator decides whether a conditional action's condition
// holds against the accumulated responses. Evaluation is total: every
// (operator, response type) pairing yields a boolean, never an error, so
// flow resolution cannot fail mid-run. A condition referencing an
// unanswered entry never matches.
type ConditionEvaluator struct {
	entries map[string]model.Entry // entry id -> entry
}

// NewConditionEvaluator creates an evaluator over the given entry index
func NewConditionEvaluator(entries map[string]model.Entry) *ConditionEvaluator {
	return &ConditionEvaluator{entries: entries}
}

// Matches evaluates a single conditional action's condition
func (c *ConditionEvaluator) Matches(action model.ConditionalAction, acc *ResponseAccumulator) bool {
	entry, ok := c.entries[action.EntryID]
	if !ok {
		return false
	}
	resp, ok := acc.Get(entry.ResponseKey)
	if !ok {
		// Unanswered entries cannot satisfy any condition; the branch
		// simply does not apply.
		return false
	}

	answer := resp.Value.Field(action.ResponseFieldKey)

	switch action.Operator {
	case model.OperatorAnswered:
		return !resp.Value.IsZero()
	case model.OperatorEquals:
		return valuesEqual(answer, action.Value)
	case model.OperatorNotEquals:
		return !valuesEqual(answer, action.Value)
	case model.OperatorContains:
		return valueContains(resp.Value, action.ResponseFieldKey, action.Value)
	case model.OperatorNotContains:
		return !valueContains(resp.Value, action.ResponseFieldKey, action.Value)
	case model.OperatorGreaterThan:
		return compareValues(answer, action.Value) > 0
	case model.OperatorLessThan:
		return compareValues(answer, action.Value) < 0
	default:
		// Unknown operators never match
		return false
	}
}

// valuesEqual compares numerically when both sides parse as numbers, so
// "7" and "7.0" agree, and falls back to string equality
func valuesEqual(a, b string) bool {
	if an, bn, ok := parseNumbers(a, b); ok {
		return an == bn
	}
	return a == b
}

// valueContains checks set membership for multi-valued answers and
// substring containment for everything else. A field key projects into a
// record answer's sub-field before testing.
func valueContains(v model.ResponseValue, fieldKey, target string) bool {
	if fieldKey == "" && len(v.SelectedOptions) > 0 {
		for _, opt := range v.Values() {
			if opt == target {
				return true
			}
		}
		return false
	}
	return strings.Contains(v.Field(fieldKey), target)
}

// compareValues orders numerically when possible, lexicographically
// otherwise
func compareValues(a, b string) int {
	if an, bn, ok := parseNumbers(a, b); ok {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

func parseNumbers(a, b string) (float64, float64, bool) {
	an, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
	if err != nil {
		return 0, 0, false
	}
	bn, err := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if err != nil {
		return 0, 0, false
	}
	return an, bn, true
}
