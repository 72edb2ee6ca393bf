package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/yuiseki/data-gather/internal/service"
)

// AirtableHandler proxies record reads and writes to Airtable so the
// editor and interview UI never hold the API token
type AirtableHandler struct {
	client *service.AirtableClient
}

// NewAirtableHandler creates a new Airtable passthrough handler
func NewAirtableHandler(client *service.AirtableClient) *AirtableHandler {
	return &AirtableHandler{client: client}
}

// RecordRequest is the request body for creating or patching a record
type RecordRequest struct {
	Fields map[string]interface{} `json:"fields"`
}

// Search handles GET /v1/airtable/bases/{baseId}/tables/{tableId}/records.
// Query params become exact field filters.
func (h *AirtableHandler) Search(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	query := make(map[string]string)
	for field, values := range r.URL.Query() {
		if len(values) > 0 {
			query[field] = values[0]
		}
	}

	records, err := h.client.SearchRecords(r.Context(), vars["baseId"], vars["tableId"], query)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"records": records})
}

// Get handles GET /v1/airtable/bases/{baseId}/tables/{tableId}/records/{recordId}
func (h *AirtableHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	record, err := h.client.FetchRecord(r.Context(), vars["baseId"], vars["tableId"], vars["recordId"])
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// Create handles POST /v1/airtable/bases/{baseId}/tables/{tableId}/records
func (h *AirtableHandler) Create(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.client.InsertRecord(r.Context(), vars["baseId"], vars["tableId"], req.Fields)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// Patch handles PATCH /v1/airtable/bases/{baseId}/tables/{tableId}/records/{recordId}
func (h *AirtableHandler) Patch(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.client.PatchRecord(r.Context(), vars["baseId"], vars["tableId"], vars["recordId"], req.Fields)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// ListBases handles GET /v1/airtable/bases
func (h *AirtableHandler) ListBases(w http.ResponseWriter, r *http.Request) {
	bases, err := h.client.ListBases(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bases": bases})
}
