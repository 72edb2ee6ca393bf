package model

import (
	"strconv"
	"strings"
)

// RecordValue is a structured answer referencing an external record,
// produced by airtable-backed entries
type RecordValue struct {
	ID     string            `json:"id" bson:"id"`
	Fields map[string]string `json:"fields,omitempty" bson:"fields,omitempty"`
}

// ResponseValue is one recorded answer. Which members are set depends on
// the entry's response type.
type ResponseValue struct {
	Text            string       `json:"text,omitempty" bson:"text,omitempty"`                       // text, email
	Number          *float64     `json:"number,omitempty" bson:"number,omitempty"`                   // number
	Boolean         *bool        `json:"boolean,omitempty" bson:"boolean,omitempty"`                 // boolean
	SelectedOption  string       `json:"selectedOption,omitempty" bson:"selectedOption,omitempty"`   // single_select
	SelectedOptions []string     `json:"selectedOptions,omitempty" bson:"selectedOptions,omitempty"` // multi_select
	Record          *RecordValue `json:"record,omitempty" bson:"record,omitempty"`                   // airtable
}

// IsZero reports whether no answer payload was provided at all
func (v ResponseValue) IsZero() bool {
	return v.Text == "" && v.Number == nil && v.Boolean == nil &&
		v.SelectedOption == "" && len(v.SelectedOptions) == 0 && v.Record == nil
}

// Identity returns the canonical string form of the answer: the record id
// for record references, the formatted number, "true"/"false" for
// booleans, the selection (comma-joined for multi-select), or the text.
func (v ResponseValue) Identity() string {
	switch {
	case v.Record != nil:
		return v.Record.ID
	case v.Number != nil:
		return strconv.FormatFloat(*v.Number, 'f', -1, 64)
	case v.Boolean != nil:
		return strconv.FormatBool(*v.Boolean)
	case v.SelectedOption != "":
		return v.SelectedOption
	case len(v.SelectedOptions) > 0:
		return strings.Join(v.SelectedOptions, ",")
	default:
		return v.Text
	}
}

// Field projects a sub-field out of the answer. For record-backed answers
// a non-empty key selects that record field; for every other response
// type, and for an empty key, this is the identity projection.
func (v ResponseValue) Field(key string) string {
	if key == "" {
		return v.Identity()
	}
	if v.Record != nil {
		if val, ok := v.Record.Fields[key]; ok {
			return val
		}
		if key == "id" {
			return v.Record.ID
		}
		return ""
	}
	return v.Identity()
}

// Values returns every individual value carried by the answer, used for
// set-membership checks
func (v ResponseValue) Values() []string {
	if len(v.SelectedOptions) > 0 {
		return v.SelectedOptions
	}
	if id := v.Identity(); id != "" {
		return []string{id}
	}
	return nil
}
