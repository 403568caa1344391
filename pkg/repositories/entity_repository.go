package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/venezuelawatch/entity-engine/pkg/apperrors"
	"github.com/venezuelawatch/entity-engine/pkg/database"
	"github.com/venezuelawatch/entity-engine/pkg/models"
)

// EntityRepository provides data access for canonical entities and the
// aliases that resolve to them.
type EntityRepository interface {
	// Entity operations
	CreateEntity(ctx context.Context, entity *models.CanonicalEntity) error
	GetEntityByID(ctx context.Context, entityID uuid.UUID) (*models.CanonicalEntity, error)
	GetEntitiesByIDs(ctx context.Context, entityIDs []uuid.UUID) ([]*models.CanonicalEntity, error)
	ListEntities(ctx context.Context, limit, offset int) ([]*models.CanonicalEntity, error)
	UpdateRiskScore(ctx context.Context, entityID uuid.UUID, riskScore float64) error

	// Alias operations
	//
	// CreateAlias inserts a binding for (normalized_alias, source). When a
	// concurrent writer already bound the same pair, the insert is a no-op
	// and the winning row is returned instead, which may point at a
	// different entity than the caller intended.
	CreateAlias(ctx context.Context, alias *models.EntityAlias) (*models.EntityAlias, error)
	GetAliasBySourceForm(ctx context.Context, normalizedAlias, source string) (*models.EntityAlias, error)
	GetAliasByNormalizedForm(ctx context.Context, normalizedAlias string) (*models.EntityAlias, error)
	ListAliasesByEntity(ctx context.Context, entityID uuid.UUID) ([]*models.EntityAlias, error)
	ListAllAliases(ctx context.Context) ([]*models.EntityAlias, error)
}

// entityRepository implements EntityRepository using PostgreSQL.
type entityRepository struct {
	db *database.DB
}

// NewEntityRepository creates a new EntityRepository.
func NewEntityRepository(db *database.DB) EntityRepository {
	return &entityRepository{db: db}
}

var _ EntityRepository = (*entityRepository)(nil)

// ============================================================================
// Entity Operations
// ============================================================================

func (r *entityRepository) CreateEntity(ctx context.Context, entity *models.CanonicalEntity) error {
	now := time.Now()
	entity.CreatedAt = now
	entity.UpdatedAt = now

	if entity.ID == uuid.Nil {
		entity.ID = uuid.New()
	}

	query := `
		INSERT INTO canonical_entities (
			id, name, entity_type, country_code, risk_score, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		entity.ID, entity.Name, entity.EntityType, entity.CountryCode, entity.RiskScore,
		entity.CreatedAt, entity.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create canonical entity: %w", err)
	}

	return nil
}

func (r *entityRepository) GetEntityByID(ctx context.Context, entityID uuid.UUID) (*models.CanonicalEntity, error) {
	query := `
		SELECT id, name, entity_type, country_code, risk_score, created_at, updated_at
		FROM canonical_entities
		WHERE id = $1`

	entity, err := scanCanonicalEntity(r.db.QueryRow(ctx, query, entityID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return entity, nil
}

func (r *entityRepository) GetEntitiesByIDs(ctx context.Context, entityIDs []uuid.UUID) ([]*models.CanonicalEntity, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, name, entity_type, country_code, risk_score, created_at, updated_at
		FROM canonical_entities
		WHERE id = ANY($1)
		ORDER BY id`

	rows, err := r.db.Query(ctx, query, entityIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query canonical entities: %w", err)
	}
	defer rows.Close()

	var entities []*models.CanonicalEntity
	for rows.Next() {
		entity, err := scanCanonicalEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating canonical entities: %w", err)
	}

	return entities, nil
}

func (r *entityRepository) ListEntities(ctx context.Context, limit, offset int) ([]*models.CanonicalEntity, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, name, entity_type, country_code, risk_score, created_at, updated_at
		FROM canonical_entities
		ORDER BY name, id
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list canonical entities: %w", err)
	}
	defer rows.Close()

	var entities []*models.CanonicalEntity
	for rows.Next() {
		entity, err := scanCanonicalEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating canonical entities: %w", err)
	}

	return entities, nil
}

func (r *entityRepository) UpdateRiskScore(ctx context.Context, entityID uuid.UUID, riskScore float64) error {
	query := `
		UPDATE canonical_entities
		SET risk_score = $2
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, entityID, riskScore)
	if err != nil {
		return fmt.Errorf("failed to update entity risk score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("entity %s: %w", entityID, apperrors.ErrNotFound)
	}

	return nil
}

// ============================================================================
// Alias Operations
// ============================================================================

func (r *entityRepository) CreateAlias(ctx context.Context, alias *models.EntityAlias) (*models.EntityAlias, error) {
	if alias.ID == uuid.Nil {
		alias.ID = uuid.New()
	}
	alias.CreatedAt = time.Now()

	query := `
		INSERT INTO entity_aliases (
			id, entity_id, alias, normalized_alias, source, resolution_method, confidence, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT ON CONSTRAINT entity_aliases_normalized_source_unique DO NOTHING
		RETURNING id`

	var insertedID uuid.UUID
	err := r.db.QueryRow(ctx, query,
		alias.ID, alias.EntityID, alias.Alias, alias.NormalizedAlias, alias.Source,
		alias.ResolutionMethod, alias.Confidence, alias.CreatedAt,
	).Scan(&insertedID)
	if err == nil {
		return alias, nil
	}
	if err != pgx.ErrNoRows {
		return nil, fmt.Errorf("failed to create entity alias: %w", err)
	}

	// Lost the race on (normalized_alias, source): re-read the winner.
	winner, err := r.GetAliasBySourceForm(ctx, alias.NormalizedAlias, alias.Source)
	if err != nil {
		return nil, err
	}
	if winner == nil {
		return nil, fmt.Errorf("alias %q/%q vanished after conflicting insert", alias.NormalizedAlias, alias.Source)
	}

	return winner, nil
}

func (r *entityRepository) GetAliasBySourceForm(ctx context.Context, normalizedAlias, source string) (*models.EntityAlias, error) {
	query := `
		SELECT id, entity_id, alias, normalized_alias, source, resolution_method, confidence, created_at
		FROM entity_aliases
		WHERE normalized_alias = $1 AND source = $2`

	alias, err := scanEntityAlias(r.db.QueryRow(ctx, query, normalizedAlias, source))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return alias, nil
}

func (r *entityRepository) GetAliasByNormalizedForm(ctx context.Context, normalizedAlias string) (*models.EntityAlias, error) {
	// Multiple sources can bind the same surface form; the earliest binding
	// is the canonical answer for source-agnostic lookups.
	query := `
		SELECT id, entity_id, alias, normalized_alias, source, resolution_method, confidence, created_at
		FROM entity_aliases
		WHERE normalized_alias = $1
		ORDER BY created_at, id
		LIMIT 1`

	alias, err := scanEntityAlias(r.db.QueryRow(ctx, query, normalizedAlias))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return alias, nil
}

func (r *entityRepository) ListAliasesByEntity(ctx context.Context, entityID uuid.UUID) ([]*models.EntityAlias, error) {
	query := `
		SELECT id, entity_id, alias, normalized_alias, source, resolution_method, confidence, created_at
		FROM entity_aliases
		WHERE entity_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entity aliases: %w", err)
	}
	defer rows.Close()

	var aliases []*models.EntityAlias
	for rows.Next() {
		alias, err := scanEntityAlias(rows)
		if err != nil {
			return nil, err
		}
		aliases = append(aliases, alias)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entity aliases: %w", err)
	}

	return aliases, nil
}

func (r *entityRepository) ListAllAliases(ctx context.Context) ([]*models.EntityAlias, error) {
	query := `
		SELECT id, entity_id, alias, normalized_alias, source, resolution_method, confidence, created_at
		FROM entity_aliases
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query entity aliases: %w", err)
	}
	defer rows.Close()

	var aliases []*models.EntityAlias
	for rows.Next() {
		alias, err := scanEntityAlias(rows)
		if err != nil {
			return nil, err
		}
		aliases = append(aliases, alias)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entity aliases: %w", err)
	}

	return aliases, nil
}

// ============================================================================
// Scan Helpers
// ============================================================================

func scanCanonicalEntity(row pgx.Row) (*models.CanonicalEntity, error) {
	var e models.CanonicalEntity

	err := row.Scan(
		&e.ID, &e.Name, &e.EntityType, &e.CountryCode, &e.RiskScore,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan canonical entity: %w", err)
	}

	return &e, nil
}

func scanEntityAlias(row pgx.Row) (*models.EntityAlias, error) {
	var a models.EntityAlias

	err := row.Scan(
		&a.ID, &a.EntityID, &a.Alias, &a.NormalizedAlias, &a.Source,
		&a.ResolutionMethod, &a.Confidence, &a.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan entity alias: %w", err)
	}

	return &a, nil
}
