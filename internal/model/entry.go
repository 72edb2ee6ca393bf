package model

// ResponseType defines the kind of answer an entry collects
type ResponseType string

const (
	ResponseTypeText         ResponseType = "text"
	ResponseTypeNumber       ResponseType = "number"
	ResponseTypeBoolean      ResponseType = "boolean"
	ResponseTypeEmail        ResponseType = "email"
	ResponseTypeSingleSelect ResponseType = "single_select"
	ResponseTypeMultiSelect  ResponseType = "multi_select"
	ResponseTypeAirtable     ResponseType = "airtable" // answer references an Airtable record
)

// SelectOptions configures single_select / multi_select entries
type SelectOptions struct {
	Options []string `json:"options" bson:"options"`
}

// AirtableOptions configures airtable-backed entries: which base, table and
// fields the respondent picks a record from
type AirtableOptions struct {
	SelectedBase   string   `json:"selectedBase" bson:"selectedBase"`
	SelectedTable  string   `json:"selectedTable" bson:"selectedTable"`
	SelectedFields []string `json:"selectedFields" bson:"selectedFields"`
}

// ResponseTypeOptions is the variant payload attached to an entry; which
// member is set depends on the entry's ResponseType
type ResponseTypeOptions struct {
	Select   *SelectOptions   `json:"select,omitempty" bson:"select,omitempty"`
	Airtable *AirtableOptions `json:"airtable,omitempty" bson:"airtable,omitempty"`
}

// Entry is a single question within a screen
type Entry struct {
	ID           string              `json:"id" bson:"id"`
	Order        int                 `json:"order" bson:"order"`
	Name         string              `json:"name" bson:"name"`
	Prompt       string              `json:"prompt" bson:"prompt"`
	Text         string              `json:"text,omitempty" bson:"text,omitempty"` // helper text shown under the prompt
	Required     bool                `json:"required" bson:"required"`
	ResponseKey  string              `json:"responseKey" bson:"responseKey"` // stable key answers are indexed by, distinct from ID
	ResponseType ResponseType        `json:"responseType" bson:"responseType"`
	Options      ResponseTypeOptions `json:"responseTypeOptions" bson:"responseTypeOptions"`
}
