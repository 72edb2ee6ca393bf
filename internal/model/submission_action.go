package model

// SubmissionActionType is the kind of external write performed at
// interview completion
type SubmissionActionType string

const (
	SubmissionInsertRow SubmissionActionType = "INSERT_ROW"
	SubmissionEditRow   SubmissionActionType = "EDIT_ROW"
)

// SpecialValueType names a computed value usable in field mappings
type SpecialValueType string

const (
	SpecialValueNowDate SpecialValueType = "NOW_DATE" // current instant, RFC 3339 UTC
)

// FieldLookup tells the submission resolver where a payload value comes
// from: either a sub-field of another entry's recorded answer, or a
// computed special value. Exactly one of EntryID / SpecialValueType is set.
type FieldLookup struct {
	EntryID          string           `json:"entryId,omitempty" bson:"entryId,omitempty"`
	ResponseFieldKey string           `json:"responseFieldKey,omitempty" bson:"responseFieldKey,omitempty"`
	SpecialValueType SpecialValueType `json:"specialValueType,omitempty" bson:"specialValueType,omitempty"`
}

// SubmissionAction maps collected answers into one external write, run
// once after flow termination. Actions are independent of each other.
type SubmissionAction struct {
	ID    string               `json:"id" bson:"id"`
	Order int                  `json:"order" bson:"order"`
	Type  SubmissionActionType `json:"type" bson:"type"`

	// INSERT_ROW target
	BaseTarget  string `json:"baseTarget,omitempty" bson:"baseTarget,omitempty"`
	TableTarget string `json:"tableTarget,omitempty" bson:"tableTarget,omitempty"`

	// EDIT_ROW target: the entry whose answer is itself a record
	// reference. PrimaryKeyField selects the answer field holding the row
	// id; empty means the record reference's own id.
	EntryID         string `json:"entryId,omitempty" bson:"entryId,omitempty"`
	PrimaryKeyField string `json:"primaryKeyField,omitempty" bson:"primaryKeyField,omitempty"`

	// External field id -> where its value comes from
	FieldMappings map[string]FieldLookup `json:"fieldMappings" bson:"fieldMappings"`
}
