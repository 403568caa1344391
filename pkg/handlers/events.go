package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/venezuelawatch/entity-engine/pkg/models"
	"github.com/venezuelawatch/entity-engine/pkg/services"
)

// EventsHandler serves event ingestion.
type EventsHandler struct {
	ingest services.IngestService
	logger *zap.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(ingest services.IngestService, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{ingest: ingest, logger: logger}
}

// HygieneReportResponse carries the cumulative injection-pattern counts
// observed in ingest payloads since process start.
type HygieneReportResponse struct {
	SQLiFindings int64 `json:"sqli_findings"`
	XSSFindings  int64 `json:"xss_findings"`
}

// RegisterRoutes registers the events handler's routes on the given mux.
func (h *EventsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/events", h.Ingest)
	mux.HandleFunc("GET /api/events/hygiene", h.Hygiene)
}

// Ingest handles POST /api/events. The body is one raw event; the response
// carries the persisted event with its settled themes and resolved mentions.
func (h *EventsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var raw models.RawEvent
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	event, err := h.ingest.IngestEvent(r.Context(), &raw)
	if err != nil {
		h.logger.Error("Failed to ingest event",
			zap.String("source", raw.Source),
			zap.Error(err))
		ServiceErrorResponse(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: event}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Hygiene handles GET /api/events/hygiene. Reports how many injection
// patterns the ingest audit has flagged; ingestion itself is never blocked,
// so a non-zero count means a feed is sending poisoned content.
func (h *EventsHandler) Hygiene(w http.ResponseWriter, r *http.Request) {
	sqli, xss := h.ingest.HygieneReport()

	response := HygieneReportResponse{SQLiFindings: sqli, XSSFindings: xss}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
