package model

// Screen is one page of the interview flow graph. Entries and actions keep
// their own 1-based order within the screen; actions are evaluated in that
// order and the first match wins.
type Screen struct {
	ID                 string              `json:"id" bson:"id"`
	Title              string              `json:"title" bson:"title"`
	HeaderText         string              `json:"headerText,omitempty" bson:"headerText,omitempty"`
	Order              int                 `json:"order" bson:"order"`
	IsInStartingState  bool                `json:"isInStartingState" bson:"isInStartingState"`
	StartingStateOrder *int                `json:"startingStateOrder,omitempty" bson:"startingStateOrder,omitempty"`
	Entries            []Entry             `json:"entries" bson:"entries"`
	Actions            []ConditionalAction `json:"actions" bson:"actions"`
}
