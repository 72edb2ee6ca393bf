package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/yuiseki/data-gather/internal/model"
	"github.com/yuiseki/data-gather/internal/repository"
)

var (
	ErrInterviewNotFound = errors.New("interview not found")
	ErrScreenNotFound    = errors.New("screen not found")
	ErrInvalidOrder      = errors.New("invalid order")
)

// InterviewService handles interview definition CRUD, screen ordering
// rules, and Airtable settings
type InterviewService struct {
	interviews repository.InterviewRepo
	settings   repository.SettingRepo
	airtable   *AirtableClient
}

// NewInterviewService creates a new interview service
func NewInterviewService(interviews repository.InterviewRepo, settings repository.SettingRepo, airtable *AirtableClient) *InterviewService {
	return &InterviewService{
		interviews: interviews,
		settings:   settings,
		airtable:   airtable,
	}
}

// Create persists a new interview. Missing screen/entry/action ids are
// assigned; screens are normalized into sequential order.
func (s *InterviewService) Create(ctx context.Context, interview *model.Interview) (string, error) {
	for i := range interview.Screens {
		assignScreenIDs(&interview.Screens[i])
		if err := ValidateScreenChildren(&interview.Screens[i]); err != nil {
			return "", err
		}
	}
	normalizeScreenOrder(interview)
	return s.interviews.Create(ctx, interview)
}

// GetByID returns one interview with its screens
func (s *InterviewService) GetByID(ctx context.Context, id string) (*model.Interview, error) {
	return s.interviews.GetByID(ctx, id)
}

// List returns up to 100 interviews
func (s *InterviewService) List(ctx context.Context) ([]*model.Interview, error) {
	return s.interviews.List(ctx, 100)
}

// Update replaces the interview's top-level fields, leaving screens alone
func (s *InterviewService) Update(ctx context.Context, interview *model.Interview) (*model.Interview, error) {
	existing, err := s.interviews.GetByID(ctx, interview.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrInterviewNotFound
	}

	existing.Name = interview.Name
	existing.Description = interview.Description
	existing.Notes = interview.Notes
	existing.Published = interview.Published
	if interview.SubmissionActions != nil {
		existing.SubmissionActions = interview.SubmissionActions
	}

	if err := s.interviews.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// Delete removes an interview definition
func (s *InterviewService) Delete(ctx context.Context, id string) error {
	return s.interviews.Delete(ctx, id)
}

// AddScreen inserts a screen into the interview sequence, re-ordering
// later screens. A zero order appends; otherwise the order must fall
// within or directly after the existing range.
func (s *InterviewService) AddScreen(ctx context.Context, interviewID string, screen model.Screen) (*model.Screen, error) {
	interview, err := s.interviews.GetByID(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if interview == nil {
		return nil, ErrInterviewNotFound
	}

	assignScreenIDs(&screen)
	if err := ValidateScreenChildren(&screen); err != nil {
		return nil, err
	}

	if err := AdjustScreenOrder(interview, &screen); err != nil {
		return nil, err
	}

	if err := s.interviews.Update(ctx, interview); err != nil {
		return nil, err
	}
	return &screen, nil
}

// UpdateScreen replaces one embedded screen, including its entries and
// conditional actions
func (s *InterviewService) UpdateScreen(ctx context.Context, interviewID, screenID string, screen model.Screen) (*model.Screen, error) {
	interview, err := s.interviews.GetByID(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if interview == nil {
		return nil, ErrInterviewNotFound
	}

	existing, ok := interview.ScreenByID(screenID)
	if !ok {
		return nil, ErrScreenNotFound
	}

	screen.ID = screenID
	screen.Order = existing.Order
	assignScreenIDs(&screen)
	if err := ValidateScreenChildren(&screen); err != nil {
		return nil, err
	}

	*existing = screen
	if err := s.interviews.Update(ctx, interview); err != nil {
		return nil, err
	}
	return existing, nil
}

// SetStartingState flags the given screens as starting states in the
// given priority order and clears the flag everywhere else
func (s *InterviewService) SetStartingState(ctx context.Context, interviewID string, screenIDs []string) (*model.Interview, error) {
	interview, err := s.interviews.GetByID(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if interview == nil {
		return nil, ErrInterviewNotFound
	}

	// The flow starts on the screen with the highest starting-state
	// order, so the first id in the request gets the top priority.
	orderByID := make(map[string]int, len(screenIDs))
	for i, id := range screenIDs {
		if _, ok := interview.ScreenByID(id); !ok {
			return nil, fmt.Errorf("%w: screen %s", ErrScreenNotFound, id)
		}
		orderByID[id] = len(screenIDs) - 1 - i
	}

	for i := range interview.Screens {
		screen := &interview.Screens[i]
		if order, ok := orderByID[screen.ID]; ok {
			screen.IsInStartingState = true
			o := order
			screen.StartingStateOrder = &o
		} else {
			screen.IsInStartingState = false
			screen.StartingStateOrder = nil
		}
	}

	if err := s.interviews.Update(ctx, interview); err != nil {
		return nil, err
	}
	return interview, nil
}

// GetSettings returns the interview's Airtable settings; with refresh the
// schema is re-pulled from the Airtable metadata API and stored
func (s *InterviewService) GetSettings(ctx context.Context, interviewID string, refresh bool) (*model.InterviewSetting, error) {
	setting, err := s.settings.GetByInterviewID(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if setting == nil {
		setting = &model.InterviewSetting{
			InterviewID: interviewID,
			Type:        model.InterviewSettingAirtable,
		}
	}

	if refresh && s.airtable != nil {
		bases, err := s.airtable.ListBases(ctx)
		if err != nil {
			return nil, fmt.Errorf("refresh bases: %w", err)
		}
		for i := range bases {
			tables, err := s.airtable.BaseSchema(ctx, bases[i].ID)
			if err != nil {
				return nil, fmt.Errorf("refresh schema for base %s: %w", bases[i].ID, err)
			}
			bases[i].Tables = tables
		}
		setting.Settings.Bases = bases
		if err := s.settings.Upsert(ctx, setting); err != nil {
			return nil, err
		}
	}
	return setting, nil
}

// PutSettings replaces the interview's Airtable settings
func (s *InterviewService) PutSettings(ctx context.Context, interviewID string, settings model.AirtableSettings) (*model.InterviewSetting, error) {
	setting := &model.InterviewSetting{
		InterviewID: interviewID,
		Type:        model.InterviewSettingAirtable,
		Settings:    settings,
	}
	if err := s.settings.Upsert(ctx, setting); err != nil {
		return nil, err
	}
	return setting, nil
}

// AdjustScreenOrder places a new screen into the interview's sequence.
// Order zero appends; an explicit order must be inside or directly after
// the current range, and screens at or after it shift up by one.
func AdjustScreenOrder(interview *model.Interview, screen *model.Screen) error {
	if len(interview.Screens) == 0 {
		if screen.Order == 0 {
			screen.Order = 1
		}
		interview.Screens = []model.Screen{*screen}
		return nil
	}

	sort.Slice(interview.Screens, func(i, j int) bool {
		return interview.Screens[i].Order < interview.Screens[j].Order
	})
	maxOrder := interview.Screens[len(interview.Screens)-1].Order

	if screen.Order == 0 {
		screen.Order = maxOrder + 1
	} else if screen.Order < 1 || screen.Order > maxOrder+1 {
		return fmt.Errorf("%w: %d not in or adjacent to [1, %d]", ErrInvalidOrder, screen.Order, maxOrder)
	} else {
		for i := range interview.Screens {
			if interview.Screens[i].Order >= screen.Order {
				interview.Screens[i].Order++
			}
		}
	}

	interview.Screens = append(interview.Screens, *screen)
	sort.Slice(interview.Screens, func(i, j int) bool {
		return interview.Screens[i].Order < interview.Screens[j].Order
	})
	return nil
}

// ValidateScreenChildren checks that the screen's entries and actions
// carry sequential 1-based orders
func ValidateScreenChildren(screen *model.Screen) error {
	entryOrders := make([]int, len(screen.Entries))
	for i, entry := range screen.Entries {
		entryOrders[i] = entry.Order
	}
	if err := validateSequentialOrder(entryOrders); err != nil {
		return fmt.Errorf("entries on screen %s: %w", screen.ID, err)
	}

	actionOrders := make([]int, len(screen.Actions))
	for i, action := range screen.Actions {
		actionOrders[i] = action.Order
	}
	if err := validateSequentialOrder(actionOrders); err != nil {
		return fmt.Errorf("actions on screen %s: %w", screen.ID, err)
	}
	return nil
}

// validateSequentialOrder requires orders to be exactly 1..n
func validateSequentialOrder(orders []int) error {
	if len(orders) == 0 {
		return nil
	}
	sorted := append([]int(nil), orders...)
	sort.Ints(sorted)
	for i, order := range sorted {
		if order != i+1 {
			return fmt.Errorf("%w: %v", ErrInvalidOrder, sorted)
		}
	}
	return nil
}

func assignScreenIDs(screen *model.Screen) {
	if screen.ID == "" {
		screen.ID = uuid.NewString()
	}
	for i := range screen.Entries {
		if screen.Entries[i].ID == "" {
			screen.Entries[i].ID = uuid.NewString()
		}
		if screen.Entries[i].ResponseKey == "" {
			screen.Entries[i].ResponseKey = screen.Entries[i].ID
		}
	}
	for i := range screen.Actions {
		if screen.Actions[i].ID == "" {
			screen.Actions[i].ID = uuid.NewString()
		}
	}

	// Store entries and actions in their Order sequence; Order is the
	// priority, not the position the request happened to list them in.
	sort.SliceStable(screen.Entries, func(i, j int) bool {
		return screen.Entries[i].Order < screen.Entries[j].Order
	})
	sort.SliceStable(screen.Actions, func(i, j int) bool {
		return screen.Actions[i].Order < screen.Actions[j].Order
	})
}

func normalizeScreenOrder(interview *model.Interview) {
	sort.SliceStable(interview.Screens, func(i, j int) bool {
		return interview.Screens[i].Order < interview.Screens[j].Order
	})
	for i := range interview.Screens {
		interview.Screens[i].Order = i + 1
	}
}
