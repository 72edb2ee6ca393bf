package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yuiseki/data-gather/internal/model"
)

func evalCondition(t *testing.T, entry model.Entry, value model.ResponseValue, op model.ConditionalOperator, target, fieldKey string) bool {
	t.Helper()
	evaluator := NewConditionEvaluator(map[string]model.Entry{entry.ID: entry})
	acc := NewResponseAccumulator()
	acc.Record(entry, value)
	return evaluator.Matches(model.ConditionalAction{
		EntryID:          entry.ID,
		ResponseFieldKey: fieldKey,
		Operator:         op,
		Value:            target,
	}, acc)
}

func TestConditionOperators(t *testing.T) {
	text := textEntry("e1", "k1")
	multi := model.Entry{ID: "e2", ResponseKey: "k2", ResponseType: model.ResponseTypeMultiSelect}

	tests := []struct {
		name  string
		entry model.Entry
		value model.ResponseValue
		op    model.ConditionalOperator
		arg   string
		field string
		want  bool
	}{
		{"eq text match", text, textValue("Ada"), model.OperatorEquals, "Ada", "", true},
		{"eq text mismatch", text, textValue("Ada"), model.OperatorEquals, "Grace", "", false},
		{"eq numeric normalizes", text, textValue("7.0"), model.OperatorEquals, "7", "", true},
		{"neq", text, textValue("Ada"), model.OperatorNotEquals, "Grace", "", true},
		{"contains substring", text, textValue("Ada Lovelace"), model.OperatorContains, "Love", "", true},
		{"contains membership", multi, model.ResponseValue{SelectedOptions: []string{"red", "blue"}}, model.OperatorContains, "blue", "", true},
		{"contains membership is exact", multi, model.ResponseValue{SelectedOptions: []string{"redder"}}, model.OperatorContains, "red", "", false},
		{"not_contains", multi, model.ResponseValue{SelectedOptions: []string{"red"}}, model.OperatorNotContains, "blue", "", true},
		{"gt numeric", text, textValue("10"), model.OperatorGreaterThan, "9", "", true},
		{"gt lexicographic", text, textValue("beta"), model.OperatorGreaterThan, "alpha", "", true},
		{"lt numeric", text, textValue("3"), model.OperatorLessThan, "12", "", true},
		{"answered", text, textValue("x"), model.OperatorAnswered, "", "", true},
		{"answered but empty payload", text, model.ResponseValue{}, model.OperatorAnswered, "", "", false},
		{"unknown operator never matches", text, textValue("x"), model.ConditionalOperator("between"), "x", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalCondition(t, tt.entry, tt.value, tt.op, tt.arg, tt.field)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConditionRecordFieldProjection(t *testing.T) {
	entry := model.Entry{ID: "e1", ResponseKey: "k1", ResponseType: model.ResponseTypeAirtable}
	value := model.ResponseValue{Record: &model.RecordValue{
		ID:     "rec123",
		Fields: map[string]string{"Status": "open"},
	}}

	// Empty field key compares the record id.
	assert.True(t, evalCondition(t, entry, value, model.OperatorEquals, "rec123", ""))
	// A field key compares that record field.
	assert.True(t, evalCondition(t, entry, value, model.OperatorEquals, "open", "Status"))
	assert.False(t, evalCondition(t, entry, value, model.OperatorEquals, "closed", "Status"))
}

func TestConditionContainsProjectsRecordField(t *testing.T) {
	entry := model.Entry{ID: "e1", ResponseKey: "k1", ResponseType: model.ResponseTypeAirtable}
	value := model.ResponseValue{Record: &model.RecordValue{
		ID:     "rec123",
		Fields: map[string]string{"Tags": "urgent, follow-up"},
	}}

	// contains/not_contains honor the field key, not the record id.
	assert.True(t, evalCondition(t, entry, value, model.OperatorContains, "urgent", "Tags"))
	assert.False(t, evalCondition(t, entry, value, model.OperatorContains, "rec123", "Tags"))
	assert.True(t, evalCondition(t, entry, value, model.OperatorNotContains, "stale", "Tags"))
	// Empty field key still tests the identity value.
	assert.True(t, evalCondition(t, entry, value, model.OperatorContains, "rec12", ""))
}

func TestConditionUnknownEntryNeverMatches(t *testing.T) {
	evaluator := NewConditionEvaluator(map[string]model.Entry{})
	matched := evaluator.Matches(model.ConditionalAction{
		EntryID:  "ghost",
		Operator: model.OperatorEquals,
		Value:    "x",
	}, NewResponseAccumulator())
	assert.False(t, matched)
}
