package model

// ConditionalOperator is the comparison applied between an entry's recorded
// answer and the action's value
type ConditionalOperator string

const (
	OperatorEquals      ConditionalOperator = "eq"
	OperatorNotEquals   ConditionalOperator = "neq"
	OperatorContains    ConditionalOperator = "contains"
	OperatorNotContains ConditionalOperator = "not_contains"
	OperatorGreaterThan ConditionalOperator = "gt"
	OperatorLessThan    ConditionalOperator = "lt"
	OperatorAnswered    ConditionalOperator = "answered"
)

// ActionType is what happens when a conditional action's condition matches
type ActionType string

const (
	ActionGotoScreen   ActionType = "goto"
	ActionEndInterview ActionType = "end"
)

// ConditionalAction is a branching rule attached to a screen. Actions on a
// screen are evaluated in Order; at most one fires per transition.
type ConditionalAction struct {
	ID    string `json:"id" bson:"id"`
	Order int    `json:"order" bson:"order"`

	// Condition: compare the answer recorded for EntryID against Value.
	// ResponseFieldKey selects a sub-field of a structured answer (an
	// Airtable record field); empty means the answer's identity value.
	EntryID          string              `json:"entryId" bson:"entryId"`
	ResponseFieldKey string              `json:"responseFieldKey,omitempty" bson:"responseFieldKey,omitempty"`
	Operator         ConditionalOperator `json:"operator" bson:"operator"`
	Value            string              `json:"value" bson:"value"`

	// Target
	Action         ActionType `json:"action" bson:"action"`
	TargetScreenID string     `json:"targetScreenId,omitempty" bson:"targetScreenId,omitempty"` // required for goto
}
