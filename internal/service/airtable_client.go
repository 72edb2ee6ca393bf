package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yuiseki/data-gather/internal/config"
	"github.com/yuiseki/data-gather/internal/model"
)

// AirtableClient wraps Airtable REST and metadata API calls. It is the
// concrete record sink behind submission actions and also serves the
// editor's base/table/field pickers and record search.
type AirtableClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
}

// NewAirtableClient creates a new Airtable API client
func NewAirtableClient(cfg config.AirtableConfig) *AirtableClient {
	if !cfg.IsEnabled() {
		log.Println("Warning: AIRTABLE_API_KEY not set")
	}

	return &AirtableClient{
		baseURL: cfg.BaseURL,
		token:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 5,
	}
}

// AirtableRecord is one row of an Airtable table
type AirtableRecord struct {
	ID          string         `json:"id,omitempty"`
	CreatedTime string         `json:"createdTime,omitempty"`
	Fields      map[string]any `json:"fields"`
}

type airtableRecordList struct {
	Records []AirtableRecord `json:"records"`
	Offset  string           `json:"offset,omitempty"`
}

type airtableBaseList struct {
	Bases  []model.AirtableBase `json:"bases"`
	Offset string               `json:"offset,omitempty"`
}

type airtableTableList struct {
	Tables []model.AirtableTable `json:"tables"`
}

// doRequest performs an HTTP request with retry/backoff on rate limits
// and server errors
func (c *AirtableClient) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	fullURL := c.baseURL + path
	log.Printf("[Airtable] %s %s", method, path)

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			log.Printf("[Airtable] Retry %d/%d for %s %s in %v", attempt, c.maxRetries, method, path, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("airtable API %d: %s", resp.StatusCode, string(respBody))
			continue
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("airtable API %d: %s", resp.StatusCode, string(respBody))
		}
		return respBody, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// SearchRecords lists records of a table, optionally filtered by exact
// field values (combined with AND)
func (c *AirtableClient) SearchRecords(ctx context.Context, baseID, tableID string, query map[string]string) ([]AirtableRecord, error) {
	path := fmt.Sprintf("/%s/%s", baseID, tableID)
	if formula := buildFilterFormula(query); formula != "" {
		path += "?filterByFormula=" + url.QueryEscape(formula)
	}

	respBody, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var list airtableRecordList
	if err := json.Unmarshal(respBody, &list); err != nil {
		return nil, fmt.Errorf("failed to parse record list: %w", err)
	}
	return list.Records, nil
}

// FetchRecord fetches one record by id
func (c *AirtableClient) FetchRecord(ctx context.Context, baseID, tableID, recordID string) (*AirtableRecord, error) {
	path := fmt.Sprintf("/%s/%s/%s", baseID, tableID, recordID)
	respBody, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var record AirtableRecord
	if err := json.Unmarshal(respBody, &record); err != nil {
		return nil, fmt.Errorf("failed to parse record: %w", err)
	}
	return &record, nil
}

// InsertRecord creates a record with arbitrary field values
func (c *AirtableClient) InsertRecord(ctx context.Context, baseID, tableID string, fields map[string]any) (*AirtableRecord, error) {
	payload, err := json.Marshal(map[string]any{"fields": fields})
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/%s/%s", baseID, tableID)
	respBody, err := c.doRequest(ctx, http.MethodPost, path, payload)
	if err != nil {
		return nil, err
	}

	var record AirtableRecord
	if err := json.Unmarshal(respBody, &record); err != nil {
		return nil, fmt.Errorf("failed to parse created record: %w", err)
	}
	return &record, nil
}

// PatchRecord updates some fields of a record, leaving the rest untouched
func (c *AirtableClient) PatchRecord(ctx context.Context, baseID, tableID, recordID string, fields map[string]any) (*AirtableRecord, error) {
	payload, err := json.Marshal(map[string]any{"fields": fields})
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/%s/%s/%s", baseID, tableID, recordID)
	respBody, err := c.doRequest(ctx, http.MethodPatch, path, payload)
	if err != nil {
		return nil, err
	}

	var record AirtableRecord
	if err := json.Unmarshal(respBody, &record); err != nil {
		return nil, fmt.Errorf("failed to parse updated record: %w", err)
	}
	return &record, nil
}

// ListBases lists the bases the token can access (metadata API)
func (c *AirtableClient) ListBases(ctx context.Context) ([]model.AirtableBase, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, "/meta/bases", nil)
	if err != nil {
		return nil, err
	}

	var list airtableBaseList
	if err := json.Unmarshal(respBody, &list); err != nil {
		return nil, fmt.Errorf("failed to parse base list: %w", err)
	}
	return list.Bases, nil
}

// BaseSchema fetches the tables and fields of one base (metadata API)
func (c *AirtableClient) BaseSchema(ctx context.Context, baseID string) ([]model.AirtableTable, error) {
	path := fmt.Sprintf("/meta/bases/%s/tables", baseID)
	respBody, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var list airtableTableList
	if err := json.Unmarshal(respBody, &list); err != nil {
		return nil, fmt.Errorf("failed to parse base schema: %w", err)
	}
	return list.Tables, nil
}

// CreateRecord implements the engine's record sink
func (c *AirtableClient) CreateRecord(ctx context.Context, baseID, tableID string, fields map[string]string) (string, error) {
	record, err := c.InsertRecord(ctx, baseID, tableID, anyFields(fields))
	if err != nil {
		return "", err
	}
	return record.ID, nil
}

// UpdateRecord implements the engine's record sink
func (c *AirtableClient) UpdateRecord(ctx context.Context, baseID, tableID, recordID string, fields map[string]string) error {
	_, err := c.PatchRecord(ctx, baseID, tableID, recordID, anyFields(fields))
	return err
}

func anyFields(fields map[string]string) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func buildFilterFormula(query map[string]string) string {
	if len(query) == 0 {
		return ""
	}
	clauses := make([]string, 0, len(query))
	for field, value := range query {
		clauses = append(clauses, fmt.Sprintf("{%s}='%s'", field, strings.ReplaceAll(value, "'", "\\'")))
	}
	if len(clauses) == 1 {
		return clauses[0]
	}
	return "AND(" + strings.Join(clauses, ",") + ")"
}

// LoggingSink is the record sink used when no Airtable token is
// configured: writes are logged and acknowledged but go nowhere.
type LoggingSink struct{}

// CreateRecord implements the engine's record sink
func (LoggingSink) CreateRecord(_ context.Context, baseID, tableID string, fields map[string]string) (string, error) {
	log.Printf("[sink] create %s/%s: %v", baseID, tableID, fields)
	return "rec_dryrun", nil
}

// UpdateRecord implements the engine's record sink
func (LoggingSink) UpdateRecord(_ context.Context, baseID, tableID, recordID string, fields map[string]string) error {
	log.Printf("[sink] update %s/%s/%s: %v", baseID, tableID, recordID, fields)
	return nil
}
