package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ParseEntityID extracts and validates the entity ID from the request path.
// Returns the parsed UUID and true on success, or uuid.Nil and false on error
// (after writing an error response).
// Expects path parameter: eid
func ParseEntityID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "eid", "invalid_entity_id", "Invalid entity ID format", logger)
}

// parseUUID is the internal helper that does the actual parsing work.
func parseUUID(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (uuid.UUID, bool) {
	idStr := r.PathValue(pathParam)
	id, err := uuid.Parse(idStr)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, errorCode, errorMessage); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}

// ParseUUIDQuery extracts and validates a UUID query parameter. Returns the
// parsed UUID and true on success, or uuid.Nil and false on error (after
// writing an error response).
func ParseUUIDQuery(w http.ResponseWriter, r *http.Request, param string, logger *zap.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.URL.Query().Get(param))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_"+param, "Invalid or missing "+param); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}

// ParseWindow extracts the from/to query parameters as RFC 3339 timestamps.
// Missing parameters come back as zero times so the service layer can apply
// its window validation; a present but malformed timestamp is rejected here.
func ParseWindow(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (time.Time, time.Time, bool) {
	from, ok := parseTimeQuery(w, r, "from", logger)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	to, ok := parseTimeQuery(w, r, "to", logger)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func parseTimeQuery(w http.ResponseWriter, r *http.Request, param string, logger *zap.Logger) (time.Time, bool) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_"+param, param+" must be an RFC 3339 timestamp"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return time.Time{}, false
	}
	return t, true
}
