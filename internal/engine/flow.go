package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/yuiseki/data-gather/internal/model"
)

var (
	// ErrNoStartingScreen means no screen is flagged as a starting state,
	// so the flow has no valid entry point
	ErrNoStartingScreen = errors.New("interview has no starting screen")
)

// FlowResolver is the state machine over an interview's screens. It is a
// pure function of the screen set it was built with and the accumulator
// contents passed to Next: identical inputs always resolve to the same
// screen, which is what makes replaying a run after a UI refresh safe.
type FlowResolver struct {
	screens    []model.Screen
	indexByID  map[string]int
	entries    map[string]model.Entry
	conditions *ConditionEvaluator
	initial    int
}

// NewFlowResolver validates the screen set and builds a resolver.
// Configuration problems (no starting screen, an action referencing an
// unknown entry or screen) are fatal here, before any flow starts.
func NewFlowResolver(screens []model.Screen) (*FlowResolver, error) {
	screens = sortedScreens(screens)

	indexByID := make(map[string]int, len(screens))
	entries := make(map[string]model.Entry)
	for i, screen := range screens {
		if _, dup := indexByID[screen.ID]; dup {
			return nil, fmt.Errorf("duplicate screen id %q", screen.ID)
		}
		indexByID[screen.ID] = i
		for _, entry := range screen.Entries {
			entries[entry.ID] = entry
		}
	}

	for _, screen := range screens {
		for _, action := range screen.Actions {
			if _, ok := entries[action.EntryID]; !ok {
				return nil, fmt.Errorf("conditional action %q on screen %q references unknown entry %q",
					action.ID, screen.ID, action.EntryID)
			}
			if action.Action == model.ActionGotoScreen {
				if _, ok := indexByID[action.TargetScreenID]; !ok {
					return nil, fmt.Errorf("conditional action %q on screen %q targets unknown screen %q",
						action.ID, screen.ID, action.TargetScreenID)
				}
			}
		}
	}

	initial := -1
	bestOrder := 0
	for i, screen := range screens {
		if !screen.IsInStartingState {
			continue
		}
		order := 0
		if screen.StartingStateOrder != nil {
			order = *screen.StartingStateOrder
		}
		if initial == -1 || order > bestOrder {
			initial = i
			bestOrder = order
		}
	}
	if initial == -1 {
		return nil, ErrNoStartingScreen
	}

	return &FlowResolver{
		screens:    screens,
		indexByID:  indexByID,
		entries:    entries,
		conditions: NewConditionEvaluator(entries),
		initial:    initial,
	}, nil
}

// Initial returns the first screen of the flow: among screens flagged as
// starting states, the one with the highest starting-state order
func (f *FlowResolver) Initial() model.Screen {
	return f.screens[f.initial]
}

// Entries returns the entry index built from the screen set
func (f *FlowResolver) Entries() map[string]model.Entry {
	return f.entries
}

// sortedScreens copies the screen set and puts screens, entries, and
// conditional actions into their Order-field sequence. Priority is the
// Order value, not the position a definition happened to list things in.
func sortedScreens(screens []model.Screen) []model.Screen {
	out := append([]model.Screen(nil), screens...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	for i := range out {
		entries := append([]model.Entry(nil), out[i].Entries...)
		sort.SliceStable(entries, func(a, b int) bool {
			return entries[a].Order < entries[b].Order
		})
		out[i].Entries = entries

		actions := append([]model.ConditionalAction(nil), out[i].Actions...)
		sort.SliceStable(actions, func(a, b int) bool {
			return actions[a].Order < actions[b].Order
		})
		out[i].Actions = actions
	}
	return out
}

// Next resolves the transition out of the current screen. The screen's
// conditional actions are evaluated in order against the accumulator; the
// first match decides the target. With no match the flow falls through to
// the next screen in sequence. The second return value is false when the
// flow terminates.
func (f *FlowResolver) Next(current model.Screen, acc *ResponseAccumulator) (model.Screen, bool) {
	// Work from the resolver's own copy of the screen, whose actions are
	// already in priority order.
	if idx, ok := f.indexByID[current.ID]; ok {
		current = f.screens[idx]
	}

	for _, action := range current.Actions {
		if !f.conditions.Matches(action, acc) {
			continue
		}
		switch action.Action {
		case model.ActionGotoScreen:
			return f.screens[f.indexByID[action.TargetScreenID]], true
		case model.ActionEndInterview:
			return model.Screen{}, false
		}
	}

	idx, ok := f.indexByID[current.ID]
	if !ok || idx+1 >= len(f.screens) {
		return model.Screen{}, false
	}
	return f.screens[idx+1], true
}
