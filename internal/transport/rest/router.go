package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/yuiseki/data-gather/internal/service"
	"github.com/yuiseki/data-gather/internal/transport/rest/handler"
	"github.com/yuiseki/data-gather/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	InterviewService *service.InterviewService
	RunService       *service.RunService
	Airtable         *service.AirtableClient
	WSHub            *ws.Hub
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	interviewHandler := handler.NewInterviewHandler(c.InterviewService)
	runHandler := handler.NewRunHandler(c.RunService)
	airtableHandler := handler.NewAirtableHandler(c.Airtable)
	wsHandler := ws.NewHandler(c.WSHub, c.RunService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Interview editing
	v1.HandleFunc("/interviews", interviewHandler.Create).Methods("POST", "OPTIONS")
	v1.HandleFunc("/interviews", interviewHandler.List).Methods("GET", "OPTIONS")
	v1.HandleFunc("/interviews/{interviewId}", interviewHandler.Get).Methods("GET", "OPTIONS")
	v1.HandleFunc("/interviews/{interviewId}", interviewHandler.Update).Methods("PUT", "OPTIONS")
	v1.HandleFunc("/interviews/{interviewId}", interviewHandler.Delete).Methods("DELETE", "OPTIONS")
	v1.HandleFunc("/interviews/{interviewId}/screens", interviewHandler.AddScreen).Methods("POST", "OPTIONS")
	v1.HandleFunc("/interviews/{interviewId}/screens/{screenId}", interviewHandler.UpdateScreen).Methods("PUT", "OPTIONS")
	v1.HandleFunc("/interviews/{interviewId}/starting-state", interviewHandler.SetStartingState).Methods("POST", "OPTIONS")
	v1.HandleFunc("/interviews/{interviewId}/settings", interviewHandler.GetSettings).Methods("GET", "OPTIONS")
	v1.HandleFunc("/interviews/{interviewId}/settings", interviewHandler.PutSettings).Methods("PUT", "OPTIONS")

	// Airtable passthrough (token stays server-side)
	v1.HandleFunc("/airtable/bases", airtableHandler.ListBases).Methods("GET", "OPTIONS")
	v1.HandleFunc("/airtable/bases/{baseId}/tables/{tableId}/records", airtableHandler.Search).Methods("GET", "OPTIONS")
	v1.HandleFunc("/airtable/bases/{baseId}/tables/{tableId}/records", airtableHandler.Create).Methods("POST", "OPTIONS")
	v1.HandleFunc("/airtable/bases/{baseId}/tables/{tableId}/records/{recordId}", airtableHandler.Get).Methods("GET", "OPTIONS")
	v1.HandleFunc("/airtable/bases/{baseId}/tables/{tableId}/records/{recordId}", airtableHandler.Patch).Methods("PATCH", "OPTIONS")

	// Run lifecycle
	v1.HandleFunc("/runs", runHandler.Start).Methods("POST", "OPTIONS")
	v1.HandleFunc("/runs/{runId}/screen", runHandler.GetScreen).Methods("GET", "OPTIONS")
	v1.HandleFunc("/runs/{runId}/responses", runHandler.SubmitResponses).Methods("POST", "OPTIONS")
	v1.HandleFunc("/runs/{runId}/reset", runHandler.Reset).Methods("POST", "OPTIONS")

	// WebSocket route
	v1.HandleFunc("/ws/runs/{runId}", wsHandler.RunWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
