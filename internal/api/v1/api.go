// Package v1 implements the native REST API.
package v1

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vmunix/catarr/internal/events"
	"github.com/vmunix/catarr/internal/history"
	"github.com/vmunix/catarr/internal/queue"
	"github.com/vmunix/catarr/pkg/match"
)

// Server is the v1 API server.
type Server struct {
	store   *queue.Store
	history *history.Store
	bus     *events.Bus
	version string
	log     *slog.Logger
}

// New creates a new v1 API server.
func New(store *queue.Store, hist *history.Store, bus *events.Bus, version string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		store:   store,
		history: hist,
		bus:     bus,
		version: version,
		log:     log.With("component", "api"),
	}
}

// RegisterRoutes registers API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Enqueue trigger
	mux.HandleFunc("POST /api/v1/catalogs", s.enqueueCatalog)

	// Queue observability
	mux.HandleFunc("GET /api/v1/queue", s.listQueue)
	mux.HandleFunc("GET /api/v1/queue/{id}", s.getCatalog)
	mux.HandleFunc("DELETE /api/v1/queue/{id}", s.cancelCatalog)

	// History
	mux.HandleFunc("GET /api/v1/history", s.listHistory)

	// System
	mux.HandleFunc("GET /api/v1/system/status", s.getStatus)
}

// Error response
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message, Code: errCode})
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) enqueueCatalog(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}

	if req.CatalogID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_CATALOG_ID", "catalog_id is required")
		return
	}
	mediaType := queue.MediaType(req.MediaType)
	if !mediaType.Valid() {
		writeError(w, http.StatusBadRequest, "INVALID_MEDIA_TYPE", "media_type must be movie or series")
		return
	}
	if len(req.ItemIDs) == 0 {
		writeError(w, http.StatusBadRequest, "NO_ITEMS", "item_ids must not be empty")
		return
	}

	s.store.Enqueue(req.CatalogID, req.CollectionID, req.ItemIDs, mediaType, req.CatalogName)
	if s.bus != nil {
		s.bus.Publish(events.NewCatalogEnqueued(req.CatalogID, req.MediaType, len(req.ItemIDs)))
	}

	writeJSON(w, http.StatusCreated, catalogToResponse(s.store.Get(req.CatalogID)))
}

func (s *Server) listQueue(w http.ResponseWriter, r *http.Request) {
	nameFilter := r.URL.Query().Get("name")

	all := s.store.All()
	resp := listQueueResponse{Items: make([]catalogResponse, 0, len(all))}
	for _, c := range all {
		if nameFilter != "" && !match.Matches(nameFilter, c.CatalogName) {
			continue
		}
		resp.Items = append(resp.Items, catalogToResponse(c))
	}
	resp.Total = len(resp.Items)

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getCatalog(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	c := s.store.Get(id)
	if c == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Catalog not queued")
		return
	}
	writeJSON(w, http.StatusOK, catalogToResponse(c))
}

func (s *Server) cancelCatalog(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	// MarkComplete is idempotent, so cancelling an absent catalog is fine.
	s.store.MarkComplete(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	filter := history.Filter{Limit: queryInt(r, "limit", 100)}
	if catalogID := r.URL.Query().Get("catalog_id"); catalogID != "" {
		filter.CatalogID = &catalogID
	}
	if failed := r.URL.Query().Get("failed"); failed == "true" {
		success := false
		filter.Success = &success
	}

	entries, err := s.history.List(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}

	resp := listHistoryResponse{Items: make([]historyEntryResponse, len(entries)), Total: len(entries)}
	for i, e := range entries {
		resp.Items[i] = historyEntryResponse{
			ID:         e.ID,
			RunID:      e.RunID,
			CatalogID:  e.CatalogID,
			ItemID:     e.ItemID,
			MediaType:  e.MediaType,
			Success:    e.Success,
			Error:      e.Error,
			DurationMs: e.Duration.Milliseconds(),
			CreatedAt:  e.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:       "ok",
		Version:      s.version,
		HasPending:   s.store.HasPending(),
		PendingCount: s.store.PendingCount(),
	})
}

// queryInt extracts an optional integer from query string.
func queryInt(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}
