package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuiseki/data-gather/internal/model"
)

// recordingBroadcaster captures hub calls for assertions
type recordingBroadcaster struct {
	mu           sync.Mutex
	messages     []string // "<runID>:<msgType>"
	disconnected []string
}

func (b *recordingBroadcaster) BroadcastToRun(runID string, msgType string, _ interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, runID+":"+msgType)
}

func (b *recordingBroadcaster) DisconnectRun(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnected = append(b.disconnected, runID)
}

func (b *recordingBroadcaster) disconnects() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.disconnected...)
}

func (b *recordingBroadcaster) sent() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.messages...)
}

// memRunCache is an in-memory RunCache for service tests
type memRunCache struct {
	mu    sync.Mutex
	items map[string]*model.RunState
}

func newMemRunCache() *memRunCache {
	return &memRunCache{items: make(map[string]*model.RunState)}
}

func (c *memRunCache) Set(_ context.Context, state *model.RunState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clone := *state
	clone.Submissions = append([]model.ScreenSubmission(nil), state.Submissions...)
	clone.Outcomes = append([]model.SubmissionOutcome(nil), state.Outcomes...)
	c.items[state.ID] = &clone
	return nil
}

func (c *memRunCache) Get(_ context.Context, runID string) (*model.RunState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.items[runID]
	if !ok {
		return nil, nil
	}
	clone := *state
	return &clone, nil
}

func (c *memRunCache) Delete(_ context.Context, runID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, runID)
	return nil
}

// colorFlow is a three-screen flow: answering "red" on the first screen
// jumps straight to the last one, anything else walks through the middle.
func colorFlow(t *testing.T, repo *memInterviewRepo) string {
	t.Helper()
	one := 1
	id, err := repo.Create(context.Background(), &model.Interview{
		Name: "colors",
		Screens: []model.Screen{
			{
				ID:                 "pick",
				Order:              1,
				IsInStartingState:  true,
				StartingStateOrder: &one,
				Entries: []model.Entry{
					{ID: "color", Order: 1, ResponseKey: "color", ResponseType: model.ResponseTypeText},
				},
				Actions: []model.ConditionalAction{
					{ID: "shortcut", Order: 1, EntryID: "color", Operator: model.OperatorEquals, Value: "red", Action: model.ActionGotoScreen, TargetScreenID: "done"},
				},
			},
			{
				ID:    "middle",
				Order: 2,
				Entries: []model.Entry{
					{ID: "why", Order: 1, ResponseKey: "why", ResponseType: model.ResponseTypeText},
				},
			},
			{
				ID:    "done",
				Order: 3,
			},
		},
	})
	require.NoError(t, err)
	return id
}

func newTestRunService(repo *memInterviewRepo, runCache *memRunCache) *RunService {
	return NewRunService(repo, runCache, LoggingSink{})
}

func TestStartRunPresentsInitialScreen(t *testing.T) {
	repo := newMemInterviewRepo()
	svc := newTestRunService(repo, newMemRunCache())
	interviewID := colorFlow(t, repo)

	state, screen, err := svc.StartRun(context.Background(), interviewID)
	require.NoError(t, err)
	require.NotNil(t, screen)
	assert.Equal(t, "pick", screen.ID)
	assert.Equal(t, model.RunStatusInProgress, state.Status)
	assert.Equal(t, "pick", state.CurrentScreenID)
}

func TestSubmitResponsesFollowsBranch(t *testing.T) {
	repo := newMemInterviewRepo()
	svc := newTestRunService(repo, newMemRunCache())
	interviewID := colorFlow(t, repo)

	state, _, err := svc.StartRun(context.Background(), interviewID)
	require.NoError(t, err)

	_, screen, err := svc.SubmitResponses(context.Background(), state.ID, "pick", map[string]model.ResponseValue{
		"color": {Text: "red"},
	})
	require.NoError(t, err)
	require.NotNil(t, screen)
	assert.Equal(t, "done", screen.ID)
}

func TestSubmitResponsesRejectsStaleScreen(t *testing.T) {
	repo := newMemInterviewRepo()
	svc := newTestRunService(repo, newMemRunCache())
	interviewID := colorFlow(t, repo)

	state, _, err := svc.StartRun(context.Background(), interviewID)
	require.NoError(t, err)

	_, _, err = svc.SubmitResponses(context.Background(), state.ID, "middle", map[string]model.ResponseValue{})
	assert.ErrorIs(t, err, ErrScreenMismatch)
}

func TestRunCompletion(t *testing.T) {
	repo := newMemInterviewRepo()
	svc := newTestRunService(repo, newMemRunCache())
	interviewID := colorFlow(t, repo)

	state, _, err := svc.StartRun(context.Background(), interviewID)
	require.NoError(t, err)
	runID := state.ID

	_, screen, err := svc.SubmitResponses(context.Background(), runID, "pick", map[string]model.ResponseValue{
		"color": {Text: "blue"},
	})
	require.NoError(t, err)
	assert.Equal(t, "middle", screen.ID)

	_, screen, err = svc.SubmitResponses(context.Background(), runID, "middle", map[string]model.ResponseValue{
		"why": {Text: "calm"},
	})
	require.NoError(t, err)
	assert.Equal(t, "done", screen.ID)

	final, screen, err := svc.SubmitResponses(context.Background(), runID, "done", map[string]model.ResponseValue{})
	require.NoError(t, err)
	assert.Nil(t, screen)
	assert.Equal(t, model.RunStatusCompleted, final.Status)

	// A completed run takes no more submissions.
	_, _, err = svc.SubmitResponses(context.Background(), runID, "done", map[string]model.ResponseValue{})
	assert.ErrorIs(t, err, ErrRunCompleted)
}

func TestRunRebuiltFromCacheByReplay(t *testing.T) {
	repo := newMemInterviewRepo()
	runCache := newMemRunCache()
	svc := newTestRunService(repo, runCache)
	interviewID := colorFlow(t, repo)

	state, _, err := svc.StartRun(context.Background(), interviewID)
	require.NoError(t, err)
	runID := state.ID

	_, _, err = svc.SubmitResponses(context.Background(), runID, "pick", map[string]model.ResponseValue{
		"color": {Text: "red"},
	})
	require.NoError(t, err)

	// A second service sharing only the cache stands in for a restarted
	// server: the run must come back on the same screen.
	restarted := newTestRunService(repo, runCache)
	rebuilt, screen, err := restarted.GetState(context.Background(), runID)
	require.NoError(t, err)
	require.NotNil(t, screen)
	assert.Equal(t, "done", screen.ID)
	assert.Equal(t, model.RunStatusInProgress, rebuilt.Status)
	require.Len(t, rebuilt.Submissions, 1)
	assert.Equal(t, "pick", rebuilt.Submissions[0].ScreenID)
	// The original start time survives the rebuild.
	assert.True(t, rebuilt.StartedAt.Equal(state.StartedAt))
}

func TestUnreplayableSnapshotIsDropped(t *testing.T) {
	repo := newMemInterviewRepo()
	runCache := newMemRunCache()
	svc := newTestRunService(repo, runCache)
	interviewID := colorFlow(t, repo)

	// A snapshot whose recorded submission no longer lines up with the
	// flow (the interview was edited underneath it) cannot be replayed.
	stale := &model.RunState{
		ID:          "stale-run",
		InterviewID: interviewID,
		Status:      model.RunStatusInProgress,
		Submissions: []model.ScreenSubmission{
			{ScreenID: "removed-screen", Responses: map[string]model.ResponseValue{}},
		},
		StartedAt: time.Now(),
	}
	require.NoError(t, runCache.Set(context.Background(), stale))

	_, _, err := svc.GetState(context.Background(), "stale-run")
	require.Error(t, err)

	cached, err := runCache.Get(context.Background(), "stale-run")
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestCompletionNotifiesAndDisconnectsWatchers(t *testing.T) {
	repo := newMemInterviewRepo()
	svc := newTestRunService(repo, newMemRunCache())
	broadcaster := &recordingBroadcaster{}
	svc.SetBroadcaster(broadcaster)
	interviewID := colorFlow(t, repo)

	state, _, err := svc.StartRun(context.Background(), interviewID)
	require.NoError(t, err)
	runID := state.ID

	_, _, err = svc.SubmitResponses(context.Background(), runID, "pick", map[string]model.ResponseValue{
		"color": {Text: "red"},
	})
	require.NoError(t, err)
	_, _, err = svc.SubmitResponses(context.Background(), runID, "done", map[string]model.ResponseValue{})
	require.NoError(t, err)

	// Completion is announced and the run's watchers are released.
	require.Eventually(t, func() bool {
		for _, id := range broadcaster.disconnects() {
			if id == runID {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, broadcaster.sent(), runID+":run_completed")
}

func TestResetRunRestartsFlow(t *testing.T) {
	repo := newMemInterviewRepo()
	svc := newTestRunService(repo, newMemRunCache())
	interviewID := colorFlow(t, repo)

	state, _, err := svc.StartRun(context.Background(), interviewID)
	require.NoError(t, err)
	runID := state.ID

	_, _, err = svc.SubmitResponses(context.Background(), runID, "pick", map[string]model.ResponseValue{
		"color": {Text: "blue"},
	})
	require.NoError(t, err)

	reset, screen, err := svc.ResetRun(context.Background(), runID)
	require.NoError(t, err)
	require.NotNil(t, screen)
	assert.Equal(t, "pick", screen.ID)
	assert.Empty(t, reset.Submissions)
	assert.Equal(t, model.RunStatusInProgress, reset.Status)
}

func TestResetCompletedRunStartsFreshEngine(t *testing.T) {
	repo := newMemInterviewRepo()
	svc := newTestRunService(repo, newMemRunCache())
	interviewID := colorFlow(t, repo)

	state, _, err := svc.StartRun(context.Background(), interviewID)
	require.NoError(t, err)
	runID := state.ID

	_, _, err = svc.SubmitResponses(context.Background(), runID, "pick", map[string]model.ResponseValue{
		"color": {Text: "red"},
	})
	require.NoError(t, err)
	_, _, err = svc.SubmitResponses(context.Background(), runID, "done", map[string]model.ResponseValue{})
	require.NoError(t, err)

	reset, screen, err := svc.ResetRun(context.Background(), runID)
	require.NoError(t, err)
	require.NotNil(t, screen)
	assert.Equal(t, "pick", screen.ID)
	assert.Equal(t, model.RunStatusInProgress, reset.Status)
	assert.Empty(t, reset.Submissions)
}
