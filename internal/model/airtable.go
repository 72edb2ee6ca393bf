package model

import "time"

// AirtableField describes one field of an Airtable table, as surfaced to
// the field pickers in the editor
type AirtableField struct {
	ID          string         `json:"id" bson:"id"`
	Name        string         `json:"name" bson:"name"`
	Description string         `json:"description,omitempty" bson:"description,omitempty"`
	Type        string         `json:"type,omitempty" bson:"type,omitempty"`
	Options     map[string]any `json:"options,omitempty" bson:"options,omitempty"`
}

// AirtableTable describes one table of an Airtable base
type AirtableTable struct {
	ID          string          `json:"id" bson:"id"`
	Name        string          `json:"name,omitempty" bson:"name,omitempty"`
	Description string          `json:"description,omitempty" bson:"description,omitempty"`
	Fields      []AirtableField `json:"fields,omitempty" bson:"fields,omitempty"`
}

// AirtableBase describes one Airtable base available to an interview
type AirtableBase struct {
	ID     string          `json:"id" bson:"id"`
	Name   string          `json:"name,omitempty" bson:"name,omitempty"`
	Tables []AirtableTable `json:"tables,omitempty" bson:"tables,omitempty"`
}

// AirtableSettings is the cached Airtable schema an interview's editors
// pick bases/tables/fields from
type AirtableSettings struct {
	Bases []AirtableBase `json:"bases,omitempty" bson:"bases,omitempty"`
}

// InterviewSettingType discriminates setting payloads; airtable is the
// only kind today
type InterviewSettingType string

const (
	InterviewSettingAirtable InterviewSettingType = "airtable"
)

// InterviewSetting is the per-interview external-store configuration
// document
type InterviewSetting struct {
	ID          string               `json:"id" bson:"_id,omitempty"`
	InterviewID string               `json:"interviewId" bson:"interviewId"`
	Type        InterviewSettingType `json:"type" bson:"type"`
	Settings    AirtableSettings     `json:"settings" bson:"settings"`
	UpdatedAt   time.Time            `json:"updatedAt" bson:"updatedAt"`
}
