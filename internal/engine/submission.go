package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/yuiseki/data-gather/internal/model"
)

// RecordSink is the external record store submission actions write to.
// The resolver does not know which service backs it.
type RecordSink interface {
	CreateRecord(ctx context.Context, baseID, tableID string, fields map[string]string) (string, error)
	UpdateRecord(ctx context.Context, baseID, tableID, recordID string, fields map[string]string) error
}

// SubmissionResult reports the outcome of one submission action
type SubmissionResult struct {
	ActionID string `json:"actionId"`
	Skipped  bool   `json:"skipped"`           // EDIT_ROW whose target entry was never answered
	RecordID string `json:"recordId,omitempty"` // created or edited row
	Err      error  `json:"-"`
	Error    string `json:"error,omitempty"`
}

// SubmissionResolver turns submission actions plus the completed
// accumulator into concrete writes against the record sink. Actions are
// independent: they run concurrently, share nothing, and one failing
// neither blocks nor rolls back its siblings.
type SubmissionResolver struct {
	entries map[string]model.Entry
	actions []model.SubmissionAction
	sink    RecordSink
	now     func() time.Time
}

// NewSubmissionResolver validates the actions against the entry index and
// builds a resolver. A mapping or target referencing an unknown entry is
// a configuration error.
func NewSubmissionResolver(entries map[string]model.Entry, actions []model.SubmissionAction, sink RecordSink) (*SubmissionResolver, error) {
	for _, action := range actions {
		if action.Type == model.SubmissionEditRow {
			if _, ok := entries[action.EntryID]; !ok {
				return nil, fmt.Errorf("submission action %q references unknown target entry %q", action.ID, action.EntryID)
			}
		}
		for fieldID, lookup := range action.FieldMappings {
			if lookup.EntryID == "" {
				continue
			}
			if _, ok := entries[lookup.EntryID]; !ok {
				return nil, fmt.Errorf("submission action %q maps field %q to unknown entry %q", action.ID, fieldID, lookup.EntryID)
			}
		}
	}
	return &SubmissionResolver{
		entries: entries,
		actions: actions,
		sink:    sink,
		now:     time.Now,
	}, nil
}

// Resolve executes every submission action against the sink and returns
// one result per action, in action order. Dispatches run concurrently;
// the join exists only so failures can be reported per action.
func (r *SubmissionResolver) Resolve(ctx context.Context, acc *ResponseAccumulator) []SubmissionResult {
	results := make([]SubmissionResult, len(r.actions))

	var wg sync.WaitGroup
	for i, action := range r.actions {
		wg.Add(1)
		go func(i int, action model.SubmissionAction) {
			defer wg.Done()
			results[i] = r.resolveAction(ctx, action, acc)
		}(i, action)
	}
	wg.Wait()

	for i := range results {
		if results[i].Err != nil {
			results[i].Error = results[i].Err.Error()
		}
	}
	return results
}

func (r *SubmissionResolver) resolveAction(ctx context.Context, action model.SubmissionAction, acc *ResponseAccumulator) SubmissionResult {
	result := SubmissionResult{ActionID: action.ID}
	fields := r.resolveFields(action, acc)

	switch action.Type {
	case model.SubmissionInsertRow:
		recordID, err := r.sink.CreateRecord(ctx, action.BaseTarget, action.TableTarget, fields)
		if err != nil {
			result.Err = fmt.Errorf("insert into %s/%s: %w", action.BaseTarget, action.TableTarget, err)
			return result
		}
		result.RecordID = recordID

	case model.SubmissionEditRow:
		entry := r.entries[action.EntryID]
		resp, ok := acc.Get(entry.ResponseKey)
		if !ok || resp.Value.Record == nil {
			// The respondent never reached or answered the entry holding
			// the target row; the action does not apply.
			log.Printf("submission action %s skipped: entry %s has no record answer", action.ID, action.EntryID)
			result.Skipped = true
			return result
		}
		recordID := resp.Value.Field(action.PrimaryKeyField)
		if recordID == "" {
			log.Printf("submission action %s skipped: no row id in answer for entry %s", action.ID, action.EntryID)
			result.Skipped = true
			return result
		}
		baseID, tableID := editTarget(entry)
		if err := r.sink.UpdateRecord(ctx, baseID, tableID, recordID, fields); err != nil {
			result.Err = fmt.Errorf("update %s/%s/%s: %w", baseID, tableID, recordID, err)
			return result
		}
		result.RecordID = recordID

	default:
		result.Err = fmt.Errorf("unknown submission action type %q", action.Type)
	}
	return result
}

// resolveFields builds the key -> value payload for an action. Values that
// resolve to the empty string are dropped rather than sent, so an
// unanswered entry never blanks an external field.
func (r *SubmissionResolver) resolveFields(action model.SubmissionAction, acc *ResponseAccumulator) map[string]string {
	fields := make(map[string]string, len(action.FieldMappings))
	for fieldID, lookup := range action.FieldMappings {
		var value string
		if lookup.EntryID != "" {
			entry := r.entries[lookup.EntryID]
			if resp, ok := acc.Get(entry.ResponseKey); ok {
				value = resp.Value.Field(lookup.ResponseFieldKey)
			}
		} else {
			value = r.specialValue(lookup.SpecialValueType)
		}
		if value == "" {
			continue
		}
		fields[fieldID] = value
	}
	return fields
}

func (r *SubmissionResolver) specialValue(t model.SpecialValueType) string {
	switch t {
	case model.SpecialValueNowDate:
		return r.now().UTC().Format(time.RFC3339)
	default:
		log.Printf("unknown special value type %q", t)
		return ""
	}
}

// editTarget derives the base/table an EDIT_ROW writes to from the
// airtable options of the entry whose answer holds the row reference
func editTarget(entry model.Entry) (string, string) {
	if entry.Options.Airtable == nil {
		return "", ""
	}
	return entry.Options.Airtable.SelectedBase, entry.Options.Airtable.SelectedTable
}
