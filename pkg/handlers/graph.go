package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/venezuelawatch/entity-engine/pkg/models"
	"github.com/venezuelawatch/entity-engine/pkg/services"
)

// GraphHandler serves the entity co-occurrence graph.
type GraphHandler struct {
	graph  services.GraphService
	logger *zap.Logger
}

// NewGraphHandler creates a new graph handler.
func NewGraphHandler(graph services.GraphService, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{graph: graph, logger: logger}
}

// RegisterRoutes registers the graph handler's routes on the given mux.
func (h *GraphHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/graph", h.Get)
}

// Get handles GET /api/graph. Query parameters: from and to (RFC 3339,
// half-open window), min_cooccurrence (edge floor, defaults from config),
// categories (comma-separated theme filter applied before counting).
func (h *GraphHandler) Get(w http.ResponseWriter, r *http.Request) {
	from, to, ok := ParseWindow(w, r, h.logger)
	if !ok {
		return
	}

	minCooccurrence := 0
	if raw := r.URL.Query().Get("min_cooccurrence"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_min_cooccurrence", "min_cooccurrence must be an integer"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		minCooccurrence = n
	}

	var categories []models.ThemeCategory
	if raw := r.URL.Query().Get("categories"); raw != "" {
		for _, c := range strings.Split(raw, ",") {
			categories = append(categories, models.ThemeCategory(strings.TrimSpace(c)))
		}
	}

	graph, err := h.graph.BuildGraph(r.Context(), services.GraphRequest{
		From:            from,
		To:              to,
		MinCooccurrence: minCooccurrence,
		Categories:      categories,
	})
	if err != nil {
		h.logger.Error("Failed to build graph", zap.Error(err))
		ServiceErrorResponse(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: graph}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
