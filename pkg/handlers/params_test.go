package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestParseEntityID(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name       string
		pathValue  string
		wantOK     bool
		wantStatus int
		wantError  string
	}{
		{
			name:      "valid UUID",
			pathValue: "550e8400-e29b-41d4-a716-446655440000",
			wantOK:    true,
		},
		{
			name:       "invalid UUID",
			pathValue:  "not-a-uuid",
			wantOK:     false,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid_entity_id",
		},
		{
			name:       "empty UUID",
			pathValue:  "",
			wantOK:     false,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid_entity_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.SetPathValue("eid", tt.pathValue)
			rec := httptest.NewRecorder()

			id, ok := ParseEntityID(rec, req, logger)

			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if tt.wantOK {
				if id == uuid.Nil {
					t.Error("expected a parsed UUID, got uuid.Nil")
				}
				return
			}

			if id != uuid.Nil {
				t.Errorf("expected uuid.Nil on failure, got %s", id)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode error body: %v", err)
			}
			if body["error"] != tt.wantError {
				t.Errorf("error code = %q, want %q", body["error"], tt.wantError)
			}
		})
	}
}

func TestParseUUIDQuery(t *testing.T) {
	logger := zap.NewNop()
	valid := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/test?entity_a="+valid.String(), nil)
	rec := httptest.NewRecorder()

	id, ok := ParseUUIDQuery(rec, req, "entity_a", logger)
	if !ok {
		t.Fatal("expected ok for a valid UUID")
	}
	if id != valid {
		t.Errorf("id = %s, want %s", id, valid)
	}

	// Missing parameter is rejected with a parameter-specific code.
	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	rec = httptest.NewRecorder()

	_, ok = ParseUUIDQuery(rec, req, "entity_a", logger)
	if ok {
		t.Fatal("expected failure for a missing parameter")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body["error"] != "invalid_entity_a" {
		t.Errorf("error code = %q, want %q", body["error"], "invalid_entity_a")
	}
}

func TestParseWindow(t *testing.T) {
	logger := zap.NewNop()

	t.Run("both bounds present", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test?from=2025-06-01T00:00:00Z&to=2025-07-01T00:00:00Z", nil)
		rec := httptest.NewRecorder()

		from, to, ok := ParseWindow(rec, req, logger)
		if !ok {
			t.Fatal("expected ok")
		}
		if want := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC); !from.Equal(want) {
			t.Errorf("from = %v, want %v", from, want)
		}
		if want := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC); !to.Equal(want) {
			t.Errorf("to = %v, want %v", to, want)
		}
	})

	t.Run("missing bounds pass through as zero", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		rec := httptest.NewRecorder()

		from, to, ok := ParseWindow(rec, req, logger)
		if !ok {
			t.Fatal("expected ok, window validation belongs to the service")
		}
		if !from.IsZero() || !to.IsZero() {
			t.Errorf("expected zero times, got %v and %v", from, to)
		}
	})

	t.Run("malformed bound is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test?from=2025-06-01&to=2025-07-01T00:00:00Z", nil)
		rec := httptest.NewRecorder()

		_, _, ok := ParseWindow(rec, req, logger)
		if ok {
			t.Fatal("expected failure for a date-only from")
		}
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}

		var body map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode error body: %v", err)
		}
		if body["error"] != "invalid_from" {
			t.Errorf("error code = %q, want %q", body["error"], "invalid_from")
		}
	})
}
