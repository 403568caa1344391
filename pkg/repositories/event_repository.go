package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/venezuelawatch/entity-engine/pkg/database"
	"github.com/venezuelawatch/entity-engine/pkg/models"
)

// EventRepository provides data access for the append-only event store.
// Events are inserted once, together with their theme tags and resolved
// mentions, and never updated or deleted.
type EventRepository interface {
	// CreateEvent persists an event with its themes and mentions in one
	// transaction. When two mentions of the same event resolved to the same
	// entity, the first one wins and the rest are dropped.
	CreateEvent(ctx context.Context, event *models.Event) error

	// GetEventByID returns the event with themes and mentions loaded, or
	// nil when no such event exists.
	GetEventByID(ctx context.Context, eventID uuid.UUID) (*models.Event, error)

	// ListEventsInWindow returns events with occurred_at in [from, to),
	// themes loaded, ordered chronologically. A non-empty categories slice
	// keeps only events tagged with at least one of the given categories.
	ListEventsInWindow(ctx context.Context, from, to time.Time, categories []models.ThemeCategory) ([]*models.Event, error)

	// ListEventsForEntities returns events in [from, to) that mention both
	// entities, themes loaded, ordered chronologically.
	ListEventsForEntities(ctx context.Context, entityA, entityB uuid.UUID, from, to time.Time) ([]*models.Event, error)

	// ListMentionsByEvents returns the mentions of the given events keyed
	// by event id.
	ListMentionsByEvents(ctx context.Context, eventIDs []uuid.UUID) (map[uuid.UUID][]models.EventMention, error)

	// CountSharedEvents counts events in [from, to) mentioning both entities.
	CountSharedEvents(ctx context.Context, entityA, entityB uuid.UUID, from, to time.Time) (int, error)
}

// eventRepository implements EventRepository using PostgreSQL.
type eventRepository struct {
	db *database.DB
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *database.DB) EventRepository {
	return &eventRepository{db: db}
}

var _ EventRepository = (*eventRepository)(nil)

func (r *eventRepository) CreateEvent(ctx context.Context, event *models.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = time.Now()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	query := `
		INSERT INTO events (id, title, body, source, occurred_at, risk_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = tx.Exec(ctx, query,
		event.ID, event.Title, event.Body, event.Source, event.OccurredAt, event.RiskScore, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	themeQuery := `
		INSERT INTO event_themes (event_id, category)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	for _, category := range event.Themes {
		if _, err := tx.Exec(ctx, themeQuery, event.ID, category); err != nil {
			return fmt.Errorf("failed to create event theme: %w", err)
		}
	}

	mentionQuery := `
		INSERT INTO event_mentions (id, event_id, entity_id, mention, confidence)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id, entity_id) DO NOTHING`

	for i := range event.Mentions {
		m := &event.Mentions[i]
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		m.EventID = event.ID

		if _, err := tx.Exec(ctx, mentionQuery, m.ID, m.EventID, m.EntityID, m.Mention, m.Confidence); err != nil {
			return fmt.Errorf("failed to create event mention: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *eventRepository) GetEventByID(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	query := `
		SELECT id, title, body, source, occurred_at, risk_score, created_at
		FROM events
		WHERE id = $1`

	event, err := scanEvent(r.db.QueryRow(ctx, query, eventID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if err := r.attachThemes(ctx, []*models.Event{event}); err != nil {
		return nil, err
	}

	mentions, err := r.ListMentionsByEvents(ctx, []uuid.UUID{event.ID})
	if err != nil {
		return nil, err
	}
	event.Mentions = mentions[event.ID]

	return event, nil
}

func (r *eventRepository) ListEventsInWindow(ctx context.Context, from, to time.Time, categories []models.ThemeCategory) ([]*models.Event, error) {
	query := `
		SELECT id, title, body, source, occurred_at, risk_score, created_at
		FROM events
		WHERE occurred_at >= $1 AND occurred_at < $2
		ORDER BY occurred_at, id`
	args := []any{from, to}

	if len(categories) > 0 {
		query = `
			SELECT id, title, body, source, occurred_at, risk_score, created_at
			FROM events
			WHERE occurred_at >= $1 AND occurred_at < $2
			  AND EXISTS (
				SELECT 1 FROM event_themes t
				WHERE t.event_id = events.id AND t.category = ANY($3)
			  )
			ORDER BY occurred_at, id`
		args = append(args, themeCategoryStrings(categories))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events in window: %w", err)
	}
	defer rows.Close()

	events, err := collectEvents(rows)
	if err != nil {
		return nil, err
	}

	if err := r.attachThemes(ctx, events); err != nil {
		return nil, err
	}

	return events, nil
}

func (r *eventRepository) ListEventsForEntities(ctx context.Context, entityA, entityB uuid.UUID, from, to time.Time) ([]*models.Event, error) {
	query := `
		SELECT e.id, e.title, e.body, e.source, e.occurred_at, e.risk_score, e.created_at
		FROM events e
		JOIN event_mentions ma ON ma.event_id = e.id AND ma.entity_id = $1
		JOIN event_mentions mb ON mb.event_id = e.id AND mb.entity_id = $2
		WHERE e.occurred_at >= $3 AND e.occurred_at < $4
		ORDER BY e.occurred_at, e.id`

	rows, err := r.db.Query(ctx, query, entityA, entityB, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for entity pair: %w", err)
	}
	defer rows.Close()

	events, err := collectEvents(rows)
	if err != nil {
		return nil, err
	}

	if err := r.attachThemes(ctx, events); err != nil {
		return nil, err
	}

	return events, nil
}

func (r *eventRepository) ListMentionsByEvents(ctx context.Context, eventIDs []uuid.UUID) (map[uuid.UUID][]models.EventMention, error) {
	if len(eventIDs) == 0 {
		return map[uuid.UUID][]models.EventMention{}, nil
	}

	query := `
		SELECT id, event_id, entity_id, mention, confidence
		FROM event_mentions
		WHERE event_id = ANY($1)
		ORDER BY event_id, entity_id`

	rows, err := r.db.Query(ctx, query, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query event mentions: %w", err)
	}
	defer rows.Close()

	mentions := make(map[uuid.UUID][]models.EventMention, len(eventIDs))
	for rows.Next() {
		var m models.EventMention
		if err := rows.Scan(&m.ID, &m.EventID, &m.EntityID, &m.Mention, &m.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan event mention: %w", err)
		}
		mentions[m.EventID] = append(mentions[m.EventID], m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event mentions: %w", err)
	}

	return mentions, nil
}

func (r *eventRepository) CountSharedEvents(ctx context.Context, entityA, entityB uuid.UUID, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM events e
		JOIN event_mentions ma ON ma.event_id = e.id AND ma.entity_id = $1
		JOIN event_mentions mb ON mb.event_id = e.id AND mb.entity_id = $2
		WHERE e.occurred_at >= $3 AND e.occurred_at < $4`

	var count int
	err := r.db.QueryRow(ctx, query, entityA, entityB, from, to).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count shared events: %w", err)
	}

	return count, nil
}

// attachThemes batch-loads theme tags for the given events.
func (r *eventRepository) attachThemes(ctx context.Context, events []*models.Event) error {
	if len(events) == 0 {
		return nil
	}

	eventIDs := make([]uuid.UUID, len(events))
	byID := make(map[uuid.UUID]*models.Event, len(events))
	for i, e := range events {
		eventIDs[i] = e.ID
		byID[e.ID] = e
	}

	query := `
		SELECT event_id, category
		FROM event_themes
		WHERE event_id = ANY($1)
		ORDER BY event_id, category`

	rows, err := r.db.Query(ctx, query, eventIDs)
	if err != nil {
		return fmt.Errorf("failed to query event themes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var eventID uuid.UUID
		var category models.ThemeCategory
		if err := rows.Scan(&eventID, &category); err != nil {
			return fmt.Errorf("failed to scan event theme: %w", err)
		}
		if e, ok := byID[eventID]; ok {
			e.Themes = append(e.Themes, category)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating event themes: %w", err)
	}

	return nil
}

func collectEvents(rows pgx.Rows) ([]*models.Event, error) {
	var events []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	var body *string

	err := row.Scan(&e.ID, &e.Title, &body, &e.Source, &e.OccurredAt, &e.RiskScore, &e.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	if body != nil {
		e.Body = *body
	}

	return &e, nil
}

func themeCategoryStrings(categories []models.ThemeCategory) []string {
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = string(c)
	}
	return out
}
