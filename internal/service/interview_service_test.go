package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuiseki/data-gather/internal/model"
)

// memInterviewRepo is an in-memory InterviewRepo for service tests
type memInterviewRepo struct {
	mu    sync.Mutex
	items map[string]*model.Interview
}

func newMemInterviewRepo() *memInterviewRepo {
	return &memInterviewRepo{items: make(map[string]*model.Interview)}
}

func (r *memInterviewRepo) Create(_ context.Context, interview *model.Interview) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if interview.ID == "" {
		interview.ID = uuid.NewString()
	}
	clone := *interview
	r.items[interview.ID] = &clone
	return interview.ID, nil
}

func (r *memInterviewRepo) GetByID(_ context.Context, id string) (*model.Interview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	interview, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	clone := *interview
	clone.Screens = append([]model.Screen(nil), interview.Screens...)
	return &clone, nil
}

func (r *memInterviewRepo) List(_ context.Context, _ int64) ([]*model.Interview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Interview, 0, len(r.items))
	for _, interview := range r.items {
		clone := *interview
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memInterviewRepo) Update(_ context.Context, interview *model.Interview) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *interview
	clone.Screens = append([]model.Screen(nil), interview.Screens...)
	r.items[interview.ID] = &clone
	return nil
}

func (r *memInterviewRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

// memSettingRepo is an in-memory SettingRepo for service tests
type memSettingRepo struct {
	mu    sync.Mutex
	items map[string]*model.InterviewSetting
}

func newMemSettingRepo() *memSettingRepo {
	return &memSettingRepo{items: make(map[string]*model.InterviewSetting)}
}

func (r *memSettingRepo) GetByInterviewID(_ context.Context, interviewID string) (*model.InterviewSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	setting, ok := r.items[interviewID]
	if !ok {
		return nil, nil
	}
	clone := *setting
	return &clone, nil
}

func (r *memSettingRepo) Upsert(_ context.Context, setting *model.InterviewSetting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *setting
	r.items[setting.InterviewID] = &clone
	return nil
}

func orderedScreen(id string, order int) model.Screen {
	return model.Screen{ID: id, Title: id, Order: order}
}

func newTestInterviewService(repo *memInterviewRepo) *InterviewService {
	return NewInterviewService(repo, newMemSettingRepo(), nil)
}

func seedInterview(t *testing.T, repo *memInterviewRepo, screens ...model.Screen) string {
	t.Helper()
	id, err := repo.Create(context.Background(), &model.Interview{
		Name:    "ordering",
		Screens: screens,
	})
	require.NoError(t, err)
	return id
}

func TestAddScreenAppendsWhenOrderOmitted(t *testing.T) {
	repo := newMemInterviewRepo()
	svc := newTestInterviewService(repo)
	id := seedInterview(t, repo, orderedScreen("a", 1), orderedScreen("b", 2))

	created, err := svc.AddScreen(context.Background(), id, model.Screen{Title: "tail"})
	require.NoError(t, err)
	assert.Equal(t, 3, created.Order)
	assert.NotEmpty(t, created.ID)
}

func TestAddScreenInsertShiftsLaterScreens(t *testing.T) {
	repo := newMemInterviewRepo()
	svc := newTestInterviewService(repo)
	id := seedInterview(t, repo, orderedScreen("a", 1), orderedScreen("b", 2), orderedScreen("c", 3))

	created, err := svc.AddScreen(context.Background(), id, model.Screen{ID: "d", Order: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, created.Order)

	interview, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)

	orders := map[string]int{}
	for _, screen := range interview.Screens {
		orders[screen.ID] = screen.Order
	}
	assert.Equal(t, map[string]int{"a": 1, "d": 2, "b": 3, "c": 4}, orders)
}

func TestAddScreenRejectsOrderBeyondRange(t *testing.T) {
	repo := newMemInterviewRepo()
	svc := newTestInterviewService(repo)
	id := seedInterview(t, repo, orderedScreen("a", 1), orderedScreen("b", 2))

	_, err := svc.AddScreen(context.Background(), id, model.Screen{Order: 5})
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestAddScreenStoresChildrenByOrder(t *testing.T) {
	repo := newMemInterviewRepo()
	svc := newTestInterviewService(repo)
	id := seedInterview(t, repo, orderedScreen("a", 1))

	// Entries and actions arrive out of their priority sequence.
	created, err := svc.AddScreen(context.Background(), id, model.Screen{
		ID: "b",
		Entries: []model.Entry{
			{ID: "e2", Order: 2, ResponseKey: "second", ResponseType: model.ResponseTypeText},
			{ID: "e1", Order: 1, ResponseKey: "first", ResponseType: model.ResponseTypeText},
		},
		Actions: []model.ConditionalAction{
			{ID: "c2", Order: 2, EntryID: "e1", Operator: model.OperatorAnswered, Action: model.ActionEndInterview},
			{ID: "c1", Order: 1, EntryID: "e2", Operator: model.OperatorAnswered, Action: model.ActionEndInterview},
		},
	})
	require.NoError(t, err)

	require.Len(t, created.Entries, 2)
	assert.Equal(t, "e1", created.Entries[0].ID)
	require.Len(t, created.Actions, 2)
	assert.Equal(t, "c1", created.Actions[0].ID)
}

func TestValidateScreenChildrenSequentialOrders(t *testing.T) {
	screen := model.Screen{
		ID: "s",
		Entries: []model.Entry{
			{ID: "e1", Order: 1, ResponseKey: "a", ResponseType: model.ResponseTypeText},
			{ID: "e2", Order: 2, ResponseKey: "b", ResponseType: model.ResponseTypeText},
		},
		Actions: []model.ConditionalAction{
			{ID: "c1", Order: 1, EntryID: "e1", Operator: model.OperatorAnswered, Action: model.ActionEndInterview},
		},
	}
	assert.NoError(t, ValidateScreenChildren(&screen))

	screen.Entries[1].Order = 3 // gap
	assert.ErrorIs(t, ValidateScreenChildren(&screen), ErrInvalidOrder)
}

func TestSetStartingStateReordersFlags(t *testing.T) {
	repo := newMemInterviewRepo()
	svc := newTestInterviewService(repo)

	old := 0
	screens := []model.Screen{
		orderedScreen("a", 1),
		orderedScreen("b", 2),
		orderedScreen("c", 3),
	}
	screens[2].IsInStartingState = true
	screens[2].StartingStateOrder = &old
	id := seedInterview(t, repo, screens...)

	interview, err := svc.SetStartingState(context.Background(), id, []string{"b", "a"})
	require.NoError(t, err)

	byID := map[string]model.Screen{}
	for _, screen := range interview.Screens {
		byID[screen.ID] = screen
	}

	// First requested screen carries the highest priority, which is what
	// the flow's initial-screen pick keys on.
	assert.True(t, byID["b"].IsInStartingState)
	require.NotNil(t, byID["b"].StartingStateOrder)
	assert.Equal(t, 1, *byID["b"].StartingStateOrder)

	assert.True(t, byID["a"].IsInStartingState)
	require.NotNil(t, byID["a"].StartingStateOrder)
	assert.Equal(t, 0, *byID["a"].StartingStateOrder)

	// Previous starting screen is cleared.
	assert.False(t, byID["c"].IsInStartingState)
	assert.Nil(t, byID["c"].StartingStateOrder)
}

func TestSetStartingStateUnknownScreen(t *testing.T) {
	repo := newMemInterviewRepo()
	svc := newTestInterviewService(repo)
	id := seedInterview(t, repo, orderedScreen("a", 1))

	_, err := svc.SetStartingState(context.Background(), id, []string{"missing"})
	assert.ErrorIs(t, err, ErrScreenNotFound)
}
