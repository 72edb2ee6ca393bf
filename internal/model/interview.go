package model

import "time"

// Interview is a persistent multi-screen questionnaire definition created
// by an operator. Screens are embedded in the interview document; their
// slice order is the natural sequence the flow engine falls back to when
// no conditional action matches.
type Interview struct {
	ID                string             `json:"id" bson:"_id,omitempty"`
	Name              string             `json:"name" bson:"name"`
	Description       string             `json:"description" bson:"description"`
	Notes             string             `json:"notes,omitempty" bson:"notes,omitempty"`
	Published         bool               `json:"published" bson:"published"`
	Screens           []Screen           `json:"screens" bson:"screens"`
	SubmissionActions []SubmissionAction `json:"submissionActions" bson:"submissionActions"`
	CreatedAt         time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// ScreenByID returns the embedded screen with the given id.
func (iv *Interview) ScreenByID(id string) (*Screen, bool) {
	for i := range iv.Screens {
		if iv.Screens[i].ID == id {
			return &iv.Screens[i], true
		}
	}
	return nil, false
}

// EntryByID searches every screen for the entry with the given id.
func (iv *Interview) EntryByID(id string) (*Entry, bool) {
	for i := range iv.Screens {
		for j := range iv.Screens[i].Entries {
			if iv.Screens[i].Entries[j].ID == id {
				return &iv.Screens[i].Entries[j], true
			}
		}
	}
	return nil, false
}
