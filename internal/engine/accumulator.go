package engine

import "github.com/yuiseki/data-gather/internal/model"

// Response pairs an entry with the value the respondent gave for it
type Response struct {
	Entry model.Entry         `json:"entry"`
	Value model.ResponseValue `json:"value"`
}

// ResponseAccumulator stores every answer given during one engine run,
// keyed by the entry's response key. Submitting a screen writes or
// replaces answers for that screen's entries; nothing is ever removed.
// The accumulator is owned by exactly one run and never shared.
type ResponseAccumulator struct {
	responses map[string]Response
}

// NewResponseAccumulator creates an empty accumulator
func NewResponseAccumulator() *ResponseAccumulator {
	return &ResponseAccumulator{
		responses: make(map[string]Response),
	}
}

// Record stores or replaces the answer for the entry's response key
func (a *ResponseAccumulator) Record(entry model.Entry, value model.ResponseValue) {
	a.responses[entry.ResponseKey] = Response{Entry: entry, Value: value}
}

// Get returns the recorded answer for a response key
func (a *ResponseAccumulator) Get(responseKey string) (Response, bool) {
	resp, ok := a.responses[responseKey]
	return resp, ok
}

// Len returns the number of recorded answers
func (a *ResponseAccumulator) Len() int {
	return len(a.responses)
}

// Snapshot returns a copy of the recorded answers, safe to hand to
// completion callbacks after the run has moved on
func (a *ResponseAccumulator) Snapshot() map[string]Response {
	snap := make(map[string]Response, len(a.responses))
	for key, resp := range a.responses {
		snap[key] = resp
	}
	return snap
}
