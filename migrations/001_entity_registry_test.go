//go:build integration

package migrations

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venezuelawatch/entity-engine/pkg/testhelpers"
)

// Test_001_EntityRegistry verifies migration 001 creates the entity registry
// tables with the shapes the resolver depends on.
func Test_001_EntityRegistry(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	ctx := context.Background()

	for _, table := range []string{"canonical_entities", "entity_aliases"} {
		var exists bool
		err := engineDB.DB.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT FROM information_schema.tables
				WHERE table_schema = 'public' AND table_name = $1
			)
		`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "%s table should exist", table)
	}

	entityColumns := map[string]string{
		"id":           "uuid",
		"name":         "text",
		"entity_type":  "text",
		"country_code": "text",
		"risk_score":   "real",
		"created_at":   "timestamp with time zone",
		"updated_at":   "timestamp with time zone",
	}
	for colName, expectedType := range entityColumns {
		var dataType string
		err := engineDB.DB.QueryRow(ctx, `
			SELECT data_type
			FROM information_schema.columns
			WHERE table_name = 'canonical_entities' AND column_name = $1
		`, colName).Scan(&dataType)
		require.NoError(t, err, "column %s should exist", colName)
		assert.Equal(t, expectedType, dataType, "column %s type", colName)
	}

	aliasColumns := map[string]string{
		"id":                "uuid",
		"entity_id":         "uuid",
		"alias":             "text",
		"normalized_alias":  "text",
		"source":            "text",
		"resolution_method": "text",
		"confidence":        "real",
		"created_at":        "timestamp with time zone",
	}
	for colName, expectedType := range aliasColumns {
		var dataType string
		err := engineDB.DB.QueryRow(ctx, `
			SELECT data_type
			FROM information_schema.columns
			WHERE table_name = 'entity_aliases' AND column_name = $1
		`, colName).Scan(&dataType)
		require.NoError(t, err, "column %s should exist", colName)
		assert.Equal(t, expectedType, dataType, "column %s type", colName)
	}

	// The binding uniqueness the whole resolution pipeline leans on.
	var uniqueExists bool
	err := engineDB.DB.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM pg_constraint
			WHERE conname = 'entity_aliases_normalized_source_unique' AND contype = 'u'
		)
	`).Scan(&uniqueExists)
	require.NoError(t, err)
	assert.True(t, uniqueExists, "UNIQUE (normalized_alias, source) should exist")

	for _, index := range []string{"idx_canonical_entities_type", "idx_canonical_entities_name", "idx_entity_aliases_entity", "idx_entity_aliases_normalized"} {
		var exists bool
		err := engineDB.DB.QueryRow(ctx, `
			SELECT EXISTS (SELECT FROM pg_indexes WHERE indexname = $1)
		`, index).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "index %s should exist", index)
	}

	var triggerExists bool
	err = engineDB.DB.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM pg_trigger WHERE tgname = 'update_canonical_entities_updated_at'
		)
	`).Scan(&triggerExists)
	require.NoError(t, err)
	assert.True(t, triggerExists, "updated_at trigger should exist")
}

// Test_001_AliasBindingUniquePerSource exercises the (normalized_alias,
// source) constraint behaviorally: one binding per surface form per feed,
// while the same surface form from another feed is fine.
func Test_001_AliasBindingUniquePerSource(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	ctx := context.Background()

	tx, err := engineDB.DB.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	var entityID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO canonical_entities (name, entity_type)
		VALUES ('Petroleos de Venezuela', 'organization')
		RETURNING id
	`).Scan(&entityID)
	require.NoError(t, err)

	_, err = tx.Exec(ctx, `
		INSERT INTO entity_aliases (entity_id, alias, normalized_alias, source, resolution_method)
		VALUES ($1, 'PDVSA', 'pdvsa', 'reuters', 'exact')
	`, entityID)
	require.NoError(t, err)

	// Same surface form from a different feed binds independently.
	_, err = tx.Exec(ctx, `
		INSERT INTO entity_aliases (entity_id, alias, normalized_alias, source, resolution_method)
		VALUES ($1, 'PDVSA', 'pdvsa', 'afp', 'exact')
	`, entityID)
	require.NoError(t, err)

	// The same (normalized_alias, source) pair must not bind twice.
	_, err = tx.Exec(ctx, `
		INSERT INTO entity_aliases (entity_id, alias, normalized_alias, source, resolution_method)
		VALUES ($1, 'pdvsa', 'pdvsa', 'reuters', 'probabilistic')
	`, entityID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entity_aliases_normalized_source_unique")
}

// Test_001_RegistryCheckConstraints probes the vocabulary and range checks.
// Each probe runs in its own transaction since a violation aborts it.
func Test_001_RegistryCheckConstraints(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	ctx := context.Background()

	probes := []struct {
		name       string
		sql        string
		constraint string
	}{
		{
			name:       "unknown entity type",
			sql:        `INSERT INTO canonical_entities (name, entity_type) VALUES ('X', 'vessel')`,
			constraint: "canonical_entities_type_check",
		},
		{
			name:       "risk score above 100",
			sql:        `INSERT INTO canonical_entities (name, entity_type, risk_score) VALUES ('X', 'person', 150)`,
			constraint: "canonical_entities_risk_check",
		},
		{
			name:       "negative risk score",
			sql:        `INSERT INTO canonical_entities (name, entity_type, risk_score) VALUES ('X', 'person', -1)`,
			constraint: "canonical_entities_risk_check",
		},
	}

	for _, probe := range probes {
		t.Run(probe.name, func(t *testing.T) {
			tx, err := engineDB.DB.Begin(ctx)
			require.NoError(t, err)
			defer tx.Rollback(ctx)

			_, err = tx.Exec(ctx, probe.sql)
			require.Error(t, err)
			assert.Contains(t, err.Error(), probe.constraint)
		})
	}

	t.Run("alias method vocabulary", func(t *testing.T) {
		tx, err := engineDB.DB.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback(ctx)

		var entityID uuid.UUID
		err = tx.QueryRow(ctx, `
			INSERT INTO canonical_entities (name, entity_type)
			VALUES ('Corpoelec', 'organization')
			RETURNING id
		`).Scan(&entityID)
		require.NoError(t, err)

		_, err = tx.Exec(ctx, `
			INSERT INTO entity_aliases (entity_id, alias, normalized_alias, source, resolution_method)
			VALUES ($1, 'Corpoelec', 'corpoelec', 'reuters', 'guessed')
		`, entityID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "entity_aliases_method_check")
	})

	t.Run("alias confidence range", func(t *testing.T) {
		tx, err := engineDB.DB.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback(ctx)

		var entityID uuid.UUID
		err = tx.QueryRow(ctx, `
			INSERT INTO canonical_entities (name, entity_type)
			VALUES ('Corpoelec', 'organization')
			RETURNING id
		`).Scan(&entityID)
		require.NoError(t, err)

		_, err = tx.Exec(ctx, `
			INSERT INTO entity_aliases (entity_id, alias, normalized_alias, source, resolution_method, confidence)
			VALUES ($1, 'Corpoelec', 'corpoelec', 'reuters', 'exact', 1.5)
		`, entityID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "entity_aliases_confidence_check")
	})
}

// Test_001_UpdatedAtTriggerFires verifies risk score updates move updated_at
// forward. Insert and update run as separate transactions so now() differs.
func Test_001_UpdatedAtTriggerFires(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	ctx := context.Background()

	var entityID uuid.UUID
	err := engineDB.DB.QueryRow(ctx, `
		INSERT INTO canonical_entities (name, entity_type)
		VALUES ('Trigger Probe Entity', 'organization')
		RETURNING id
	`).Scan(&entityID)
	require.NoError(t, err)
	defer engineDB.DB.Exec(ctx, `DELETE FROM canonical_entities WHERE id = $1`, entityID)

	_, err = engineDB.DB.Exec(ctx, `
		UPDATE canonical_entities SET risk_score = 42 WHERE id = $1
	`, entityID)
	require.NoError(t, err)

	var movedForward bool
	err = engineDB.DB.QueryRow(ctx, `
		SELECT updated_at > created_at FROM canonical_entities WHERE id = $1
	`, entityID).Scan(&movedForward)
	require.NoError(t, err)
	assert.True(t, movedForward, "updated_at should advance on update")
}

// Test_001_EntityDeleteCascadesAliases verifies aliases disappear with their
// canonical entity.
func Test_001_EntityDeleteCascadesAliases(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	ctx := context.Background()

	var entityID uuid.UUID
	err := engineDB.DB.QueryRow(ctx, `
		INSERT INTO canonical_entities (name, entity_type)
		VALUES ('Cascade Probe Entity', 'person')
		RETURNING id
	`).Scan(&entityID)
	require.NoError(t, err)

	_, err = engineDB.DB.Exec(ctx, `
		INSERT INTO entity_aliases (entity_id, alias, normalized_alias, source, resolution_method)
		VALUES ($1, 'Cascade Probe', 'cascade probe', 'test-feed', 'escalated')
	`, entityID)
	require.NoError(t, err)

	_, err = engineDB.DB.Exec(ctx, `DELETE FROM canonical_entities WHERE id = $1`, entityID)
	require.NoError(t, err)

	var aliasCount int
	err = engineDB.DB.QueryRow(ctx, `
		SELECT count(*) FROM entity_aliases WHERE entity_id = $1
	`, entityID).Scan(&aliasCount)
	require.NoError(t, err)
	assert.Zero(t, aliasCount, "aliases should cascade with their entity")
}
