package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yuiseki/data-gather/internal/cache"
	"github.com/yuiseki/data-gather/internal/engine"
	"github.com/yuiseki/data-gather/internal/model"
	"github.com/yuiseki/data-gather/internal/repository"
)

var (
	ErrRunNotFound    = errors.New("run not found")
	ErrRunCompleted   = errors.New("run already completed")
	ErrScreenMismatch = errors.New("submission targets a stale screen")
	ErrAdvanceTimeout = errors.New("timed out waiting for the run to advance")
)

// advanceWait bounds how long a submission waits for the engine to move
// to the next screen. Flow resolution is in-memory, so anything near this
// limit indicates a stuck run rather than a slow one.
const advanceWait = 5 * time.Second

// RunService owns the live interview runs: it starts engines, forwards
// respondent submissions to them, snapshots state to Redis, and rebuilds
// evicted runs by replaying their recorded submissions.
type RunService struct {
	interviews  repository.InterviewRepo
	runCache    cache.RunCache
	sink        engine.RecordSink
	broadcaster Broadcaster

	mu   sync.Mutex
	runs map[string]*activeRun
}

// NewRunService creates a new run service
func NewRunService(interviews repository.InterviewRepo, runCache cache.RunCache, sink engine.RecordSink) *RunService {
	return &RunService{
		interviews: interviews,
		runCache:   runCache,
		sink:       sink,
		runs:       make(map[string]*activeRun),
	}
}

// SetBroadcaster wires the WebSocket hub (called after hub creation to
// avoid circular dependency)
func (s *RunService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// activeRun is one live run and its engine. It implements the engine's
// moderator boundary: Ask lands here each time a new screen is due.
type activeRun struct {
	id          string
	interviewID string
	engine      *engine.Engine
	cancel      context.CancelFunc
	svc         *RunService

	mu          sync.Mutex
	status      model.RunStatus
	current     model.Screen
	hasScreen   bool
	stateCh     chan struct{} // closed on every advance, then replaced
	submissions []model.ScreenSubmission
	outcomes    []model.SubmissionOutcome
	startedAt   time.Time
}

// Ask implements engine.Moderator. The engine hands over the next screen;
// we publish it and wake anyone waiting on the previous state.
func (r *activeRun) Ask(_ engine.ResponseConsumer, screen model.Screen) {
	r.mu.Lock()
	r.current = screen
	r.hasScreen = true
	r.advanceLocked()
	r.mu.Unlock()

	if r.svc.broadcaster != nil {
		r.svc.broadcaster.BroadcastToRun(r.id, "screen_changed", screen)
	}
}

// advanceLocked wakes waiters and arms the next wait. Callers hold r.mu.
func (r *activeRun) advanceLocked() {
	close(r.stateCh)
	r.stateCh = make(chan struct{})
}

func (r *activeRun) finish(results []engine.SubmissionResult) {
	r.mu.Lock()
	r.status = model.RunStatusCompleted
	r.hasScreen = false
	r.outcomes = make([]model.SubmissionOutcome, len(results))
	for i, res := range results {
		r.outcomes[i] = model.SubmissionOutcome{
			ActionID: res.ActionID,
			Skipped:  res.Skipped,
			RecordID: res.RecordID,
			Error:    res.Error,
		}
	}
	r.advanceLocked()
	r.mu.Unlock()

	if r.svc.broadcaster != nil {
		r.svc.broadcaster.BroadcastToRun(r.id, "run_completed", r.snapshot())
		// The flow is over; nothing further will be pushed on this run.
		r.svc.broadcaster.DisconnectRun(r.id)
	}
}

// snapshot builds the cacheable state of this run
func (r *activeRun) snapshot() *model.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := &model.RunState{
		ID:          r.id,
		InterviewID: r.interviewID,
		Status:      r.status,
		Submissions: append([]model.ScreenSubmission(nil), r.submissions...),
		Outcomes:    append([]model.SubmissionOutcome(nil), r.outcomes...),
		StartedAt:   r.startedAt,
	}
	if r.hasScreen {
		state.CurrentScreenID = r.current.ID
	}
	return state
}

// StartRun launches a new run of the given interview and returns its
// initial state, with the first screen already resolved
func (s *RunService) StartRun(ctx context.Context, interviewID string) (*model.RunState, *model.Screen, error) {
	interview, err := s.interviews.GetByID(ctx, interviewID)
	if err != nil {
		return nil, nil, err
	}
	if interview == nil {
		return nil, nil, ErrInterviewNotFound
	}

	run, err := s.launch(uuid.NewString(), interview, nil)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	s.runs[run.id] = run
	s.mu.Unlock()

	state := run.snapshot()
	if err := s.runCache.Set(ctx, state); err != nil {
		log.Printf("failed to cache run %s: %v", run.id, err)
	}

	screen, _ := run.currentScreen()
	return state, screen, nil
}

// launch builds the engine for one run and starts it. When prior
// submissions are given they are replayed first, restoring the run to the
// screen the respondent last saw.
func (s *RunService) launch(runID string, interview *model.Interview, prior []model.ScreenSubmission) (*activeRun, error) {
	run := &activeRun{
		id:          runID,
		interviewID: interview.ID,
		svc:         s,
		status:      model.RunStatusInProgress,
		stateCh:     make(chan struct{}),
		startedAt:   time.Now(),
	}

	eng, err := engine.NewEngine(engine.Config{
		Screens:           interview.Screens,
		SubmissionActions: interview.SubmissionActions,
		Sink:              s.sink,
		Moderator:         run,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid interview %s: %w", interview.ID, err)
	}
	run.engine = eng

	runCtx, cancel := context.WithCancel(context.Background())
	run.cancel = cancel

	go func() {
		results, err := eng.Run(runCtx)
		if err != nil {
			log.Printf("run %s stopped: %v", runID, err)
			return
		}
		run.finish(results)
		if err := s.runCache.Set(context.Background(), run.snapshot()); err != nil {
			log.Printf("failed to cache run %s: %v", runID, err)
		}
	}()

	// The engine presents the initial screen as soon as it starts; wait
	// for that before accepting or replaying submissions so every submit
	// observes a real advance, not the first Ask.
	run.mu.Lock()
	ch := run.stateCh
	started := run.hasScreen
	run.mu.Unlock()
	if !started {
		select {
		case <-ch:
		case <-time.After(advanceWait):
			cancel()
			return nil, ErrAdvanceTimeout
		}
	}

	for _, sub := range prior {
		if err := run.submit(sub); err != nil {
			cancel()
			return nil, fmt.Errorf("replaying run %s: %w", runID, err)
		}
	}
	return run, nil
}

// submit forwards one screen's answers to the engine and waits for the
// run to advance (next screen or completion)
func (r *activeRun) submit(sub model.ScreenSubmission) error {
	r.mu.Lock()
	if r.status == model.RunStatusCompleted {
		r.mu.Unlock()
		return ErrRunCompleted
	}
	if sub.ScreenID != "" && r.hasScreen && sub.ScreenID != r.current.ID {
		r.mu.Unlock()
		return fmt.Errorf("%w: got %s, awaiting %s", ErrScreenMismatch, sub.ScreenID, r.current.ID)
	}
	r.submissions = append(r.submissions, sub)
	ch := r.stateCh
	r.mu.Unlock()

	r.engine.Submit(sub.Responses)

	select {
	case <-ch:
		return nil
	case <-time.After(advanceWait):
		// Keep the replay log consistent with what the engine consumed.
		r.mu.Lock()
		if n := len(r.submissions); n > 0 {
			r.submissions = r.submissions[:n-1]
		}
		r.mu.Unlock()
		return ErrAdvanceTimeout
	}
}

func (r *activeRun) currentScreen() (*model.Screen, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasScreen {
		return nil, false
	}
	screen := r.current
	return &screen, true
}

// get returns the live run, rebuilding it from its Redis snapshot when it
// is not in memory (server restart, memory eviction)
func (s *RunService) get(ctx context.Context, runID string) (*activeRun, error) {
	s.mu.Lock()
	if run, ok := s.runs[runID]; ok {
		s.mu.Unlock()
		return run, nil
	}
	s.mu.Unlock()

	state, err := s.runCache.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, ErrRunNotFound
	}

	interview, err := s.interviews.GetByID(ctx, state.InterviewID)
	if err != nil {
		return nil, err
	}
	if interview == nil {
		return nil, fmt.Errorf("%w: interview %s behind run %s is gone", ErrInterviewNotFound, state.InterviewID, runID)
	}

	var run *activeRun
	if state.Status == model.RunStatusCompleted {
		// No engine to revive; keep the recorded outcome readable.
		run = &activeRun{
			id:          state.ID,
			interviewID: state.InterviewID,
			svc:         s,
			status:      model.RunStatusCompleted,
			stateCh:     make(chan struct{}),
			submissions: state.Submissions,
			outcomes:    state.Outcomes,
			startedAt:   state.StartedAt,
		}
	} else {
		run, err = s.launch(state.ID, interview, state.Submissions)
		if err != nil {
			// A snapshot that cannot be replayed (the interview changed
			// under it) will never become a live run again; drop it.
			if cacheErr := s.runCache.Delete(ctx, state.ID); cacheErr != nil {
				log.Printf("failed to drop stale run %s: %v", state.ID, cacheErr)
			}
			return nil, err
		}
		run.mu.Lock()
		run.startedAt = state.StartedAt
		run.mu.Unlock()
	}

	s.mu.Lock()
	if existing, ok := s.runs[runID]; ok {
		// Lost the race with a concurrent rebuild; keep theirs.
		s.mu.Unlock()
		if run.cancel != nil {
			run.cancel()
		}
		return existing, nil
	}
	s.runs[runID] = run
	s.mu.Unlock()
	return run, nil
}

// GetState returns the run's snapshot plus its current screen if the run
// is still awaiting one
func (s *RunService) GetState(ctx context.Context, runID string) (*model.RunState, *model.Screen, error) {
	run, err := s.get(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	screen, _ := run.currentScreen()
	return run.snapshot(), screen, nil
}

// SubmitResponses records the answers for the run's current screen,
// advances the flow, and returns the resulting state. Responses are keyed
// by entry id. On the final screen the returned state carries the
// per-action submission outcomes.
func (s *RunService) SubmitResponses(ctx context.Context, runID, screenID string, responses map[string]model.ResponseValue) (*model.RunState, *model.Screen, error) {
	run, err := s.get(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	if run.engine == nil {
		return nil, nil, ErrRunCompleted
	}

	if err := run.submit(model.ScreenSubmission{ScreenID: screenID, Responses: responses}); err != nil {
		return nil, nil, err
	}

	state := run.snapshot()
	if err := s.runCache.Set(ctx, state); err != nil {
		log.Printf("failed to cache run %s: %v", runID, err)
	}

	screen, _ := run.currentScreen()
	return state, screen, nil
}

// ResetRun discards everything the respondent answered and restarts the
// run from the interview's initial screen. A completed run gets a fresh
// engine under the same run id.
func (s *RunService) ResetRun(ctx context.Context, runID string) (*model.RunState, *model.Screen, error) {
	run, err := s.get(ctx, runID)
	if err != nil {
		return nil, nil, err
	}

	run.mu.Lock()
	completed := run.status == model.RunStatusCompleted
	run.mu.Unlock()

	if completed {
		interview, err := s.interviews.GetByID(ctx, run.interviewID)
		if err != nil {
			return nil, nil, err
		}
		if interview == nil {
			return nil, nil, ErrInterviewNotFound
		}
		fresh, err := s.launch(runID, interview, nil)
		if err != nil {
			return nil, nil, err
		}
		run.mu.Lock()
		started := run.startedAt
		run.mu.Unlock()
		fresh.mu.Lock()
		fresh.startedAt = started
		fresh.mu.Unlock()
		s.mu.Lock()
		s.runs[runID] = fresh
		s.mu.Unlock()
		run = fresh
	} else {
		run.mu.Lock()
		run.submissions = nil
		ch := run.stateCh
		run.mu.Unlock()

		run.engine.Reset()

		select {
		case <-ch:
		case <-time.After(advanceWait):
			return nil, nil, ErrAdvanceTimeout
		}
	}

	state := run.snapshot()
	if err := s.runCache.Set(ctx, state); err != nil {
		log.Printf("failed to cache run %s: %v", runID, err)
	}

	screen, _ := run.currentScreen()
	return state, screen, nil
}

// Shutdown cancels every live engine. Snapshots stay in Redis, so runs
// survive a restart via replay.
func (s *RunService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, run := range s.runs {
		if run.cancel != nil {
			run.cancel()
		}
	}
}
