package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/venezuelawatch/entity-engine/pkg/services"
)

// LineageHandler serves interaction lineages between entity pairs.
type LineageHandler struct {
	lineage services.LineageService
	logger  *zap.Logger
}

// NewLineageHandler creates a new lineage handler.
func NewLineageHandler(lineage services.LineageService, logger *zap.Logger) *LineageHandler {
	return &LineageHandler{lineage: lineage, logger: logger}
}

// RegisterRoutes registers the lineage handler's routes on the given mux.
func (h *LineageHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/lineage", h.Get)
}

// Get handles GET /api/lineage. Query parameters: entity_a and entity_b
// (entity UUIDs), from and to (RFC 3339, half-open window).
func (h *LineageHandler) Get(w http.ResponseWriter, r *http.Request) {
	entityA, ok := ParseUUIDQuery(w, r, "entity_a", h.logger)
	if !ok {
		return
	}
	entityB, ok := ParseUUIDQuery(w, r, "entity_b", h.logger)
	if !ok {
		return
	}
	from, to, ok := ParseWindow(w, r, h.logger)
	if !ok {
		return
	}

	lineage, err := h.lineage.BuildLineage(r.Context(), services.LineageRequest{
		EntityA: entityA,
		EntityB: entityB,
		From:    from,
		To:      to,
	})
	if err != nil {
		h.logger.Error("Failed to build lineage",
			zap.String("entity_a", entityA.String()),
			zap.String("entity_b", entityB.String()),
			zap.Error(err))
		ServiceErrorResponse(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: lineage}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
