package engine

import (
	"context"
	"log"

	"github.com/yuiseki/data-gather/internal/model"
)

// Moderator is the presentation boundary. The engine calls Ask each time
// a new screen must be shown; the UI signals completion of that screen by
// calling Submit on the consumer it was handed.
type Moderator interface {
	Ask(consumer ResponseConsumer, screen model.Screen)
}

// ResponseConsumer receives the respondent's answers for the screen
// currently awaiting a response, keyed by entry id
type ResponseConsumer interface {
	Submit(responses map[string]model.ResponseValue)
}

// Config assembles everything one engine run needs. The screen and action
// snapshots are read-only; the engine never mutates them.
type Config struct {
	Screens           []model.Screen
	SubmissionActions []model.SubmissionAction
	Sink              RecordSink
	Moderator         Moderator
	// OnComplete, if set, receives the final accumulator snapshot when the
	// flow terminates, before submission actions are dispatched
	OnComplete func(map[string]Response)
}

// Engine drives one interview run: present a screen, wait for its
// responses, advance, and on termination resolve the submission actions.
// Flow traversal is strictly sequential; waiting for the respondent is
// the only suspension point.
type Engine struct {
	flow       *FlowResolver
	submitter  *SubmissionResolver
	moderator  Moderator
	onComplete func(map[string]Response)
	entries    map[string]model.Entry

	acc      *ResponseAccumulator
	submitCh chan map[string]model.ResponseValue
	resetCh  chan struct{}
}

// NewEngine validates the configuration and builds a run. All reference
// integrity problems surface here, before the first screen is shown.
func NewEngine(cfg Config) (*Engine, error) {
	flow, err := NewFlowResolver(cfg.Screens)
	if err != nil {
		return nil, err
	}
	submitter, err := NewSubmissionResolver(flow.Entries(), cfg.SubmissionActions, cfg.Sink)
	if err != nil {
		return nil, err
	}
	return &Engine{
		flow:       flow,
		submitter:  submitter,
		moderator:  cfg.Moderator,
		onComplete: cfg.OnComplete,
		entries:    flow.Entries(),
		acc:        NewResponseAccumulator(),
		submitCh:   make(chan map[string]model.ResponseValue, 1),
		resetCh:    make(chan struct{}, 1),
	}, nil
}

// Submit signals the answers for the screen currently awaiting a
// response. Exactly one screen awaits at a time; a second signal before
// the engine advances is dropped.
func (e *Engine) Submit(responses map[string]model.ResponseValue) {
	select {
	case e.submitCh <- responses:
	default:
		log.Println("submission dropped: no screen awaiting a response")
	}
}

// Reset discards the accumulator and restarts the flow from its initial
// screen. Any submission pending when the reset lands is ignored. This is
// the only way to re-run; there is no partial rewind.
func (e *Engine) Reset() {
	select {
	case e.resetCh <- struct{}{}:
	default:
	}
}

// Run executes the interview until the flow terminates or the context is
// cancelled, then resolves the submission actions and returns their
// per-action results. Run blocks; callers drive it from a goroutine and
// interact through Submit and Reset.
func (e *Engine) Run(ctx context.Context) ([]SubmissionResult, error) {
	current := e.flow.Initial()
	for {
		e.moderator.Ask(e, current)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-e.resetCh:
			// Drop whatever was signalled before the reset arrived.
			select {
			case <-e.submitCh:
			default:
			}
			e.acc = NewResponseAccumulator()
			current = e.flow.Initial()

		case responses := <-e.submitCh:
			e.record(responses)
			next, ok := e.flow.Next(current, e.acc)
			if !ok {
				if e.onComplete != nil {
					e.onComplete(e.acc.Snapshot())
				}
				return e.submitter.Resolve(ctx, e.acc), nil
			}
			current = next
		}
	}
}

func (e *Engine) record(responses map[string]model.ResponseValue) {
	for entryID, value := range responses {
		entry, ok := e.entries[entryID]
		if !ok {
			log.Printf("response for unknown entry %s ignored", entryID)
			continue
		}
		e.acc.Record(entry, value)
	}
}
