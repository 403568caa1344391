package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/venezuelawatch/entity-engine/pkg/models"
	"github.com/venezuelawatch/entity-engine/pkg/repositories"
	"github.com/venezuelawatch/entity-engine/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// EntityPage for GET /api/entities
type EntityPage struct {
	Entities []*models.CanonicalEntity `json:"entities"`
	Limit    int                       `json:"limit"`
	Offset   int                       `json:"offset"`
	Count    int                       `json:"count"`
}

// EntityDetail for GET /api/entities/{eid}
type EntityDetail struct {
	Entity  *models.CanonicalEntity `json:"entity"`
	Aliases []*models.EntityAlias   `json:"aliases"`
}

// ============================================================================
// Handler
// ============================================================================

// EntitiesHandler serves mention resolution and registry browsing.
type EntitiesHandler struct {
	resolver   services.ResolverService
	entityRepo repositories.EntityRepository
	logger     *zap.Logger
}

// NewEntitiesHandler creates a new entities handler.
func NewEntitiesHandler(
	resolver services.ResolverService,
	entityRepo repositories.EntityRepository,
	logger *zap.Logger,
) *EntitiesHandler {
	return &EntitiesHandler{
		resolver:   resolver,
		entityRepo: entityRepo,
		logger:     logger,
	}
}

// RegisterRoutes registers the entities handler's routes on the given mux.
func (h *EntitiesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/entities/resolve", h.Resolve)
	mux.HandleFunc("GET /api/entities", h.List)
	mux.HandleFunc("GET /api/entities/{eid}", h.Get)
}

// Resolve handles POST /api/entities/resolve. The body is one mention; the
// response carries the binding plus how it was reached. A freshly minted
// entity answers 201.
func (h *EntitiesHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var mention models.Mention
	if err := json.NewDecoder(r.Body).Decode(&mention); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	resolution, err := h.resolver.Resolve(r.Context(), mention)
	if err != nil {
		h.logger.Error("Failed to resolve mention",
			zap.String("source", mention.Source),
			zap.Error(err))
		ServiceErrorResponse(w, h.logger, err)
		return
	}

	status := http.StatusOK
	if resolution.Created {
		status = http.StatusCreated
	}
	if err := WriteJSON(w, status, ApiResponse{Success: true, Data: resolution}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/entities with limit/offset paging.
func (h *EntitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.parseIntQuery(w, r, "limit")
	if !ok {
		return
	}
	offset, ok := h.parseIntQuery(w, r, "offset")
	if !ok {
		return
	}

	entities, err := h.entityRepo.ListEntities(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list entities", zap.Error(err))
		ServiceErrorResponse(w, h.logger, err)
		return
	}

	response := EntityPage{
		Entities: entities,
		Limit:    limit,
		Offset:   offset,
		Count:    len(entities),
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/entities/{eid}, returning the entity with every alias
// bound to it.
func (h *EntitiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	entityID, ok := ParseEntityID(w, r, h.logger)
	if !ok {
		return
	}

	entity, err := h.entityRepo.GetEntityByID(r.Context(), entityID)
	if err != nil {
		h.logger.Error("Failed to get entity",
			zap.String("entity_id", entityID.String()),
			zap.Error(err))
		ServiceErrorResponse(w, h.logger, err)
		return
	}
	if entity == nil {
		if err := ErrorResponse(w, http.StatusNotFound, "entity_not_found", "Entity not found"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	aliases, err := h.entityRepo.ListAliasesByEntity(r.Context(), entityID)
	if err != nil {
		h.logger.Error("Failed to list aliases",
			zap.String("entity_id", entityID.String()),
			zap.Error(err))
		ServiceErrorResponse(w, h.logger, err)
		return
	}

	response := EntityDetail{Entity: entity, Aliases: aliases}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ============================================================================
// Helper Methods
// ============================================================================

func (h *EntitiesHandler) parseIntQuery(w http.ResponseWriter, r *http.Request, param string) (int, bool) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_"+param, param+" must be a non-negative integer"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return 0, false
	}
	return n, true
}
