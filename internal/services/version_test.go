package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuckdb/fuckdb-backend/internal/apierr"
	"github.com/fuckdb/fuckdb-backend/internal/services"
	"github.com/fuckdb/fuckdb-backend/internal/types"
)

func TestEnsureInitialVersion(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.versions.EnsureInitialVersion(env.ctx, env.projectID)
	require.NoError(t, err)
	require.NotNil(t, result.Version)
	require.NotNil(t, result.Dictionary)
	assert.Equal(t, 1, result.Version.Version)
	assert.True(t, result.Version.IsLatest)
	assert.Equal(t, "Initial Version", result.Version.Name)
	require.Len(t, result.Dictionary.Schemas.Tables, 1)
	assert.Equal(t, "sample_table", result.Dictionary.Schemas.Tables[0].Name)

	// Idempotent: a second call returns the existing version.
	again, err := env.versions.EnsureInitialVersion(env.ctx, env.projectID)
	require.NoError(t, err)
	assert.Equal(t, result.Version.ID, again.Version.ID)

	rows, err := env.versions.List(env.ctx, env.projectID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 1, env.dicts.count())
}

func TestCreateVersionSequence(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.versions.EnsureInitialVersion(env.ctx, env.projectID)
	require.NoError(t, err)
	v2, err := env.versions.Create(env.ctx, env.projectID, "v2", "second")
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version.Version)
	v3, err := env.versions.Create(env.ctx, env.projectID, "v3", "third")
	require.NoError(t, err)
	assert.Equal(t, 3, v3.Version.Version)

	rows, err := env.versions.List(env.ctx, env.projectID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 3, rows[0].Version)
	assert.Equal(t, 2, rows[1].Version)
	assert.Equal(t, 1, rows[2].Version)

	latestCount := 0
	for _, row := range rows {
		if row.IsLatest {
			latestCount++
			assert.Equal(t, 3, row.Version)
		}
	}
	assert.Equal(t, 1, latestCount)

	latest, err := env.versions.GetLatest(env.ctx, env.projectID)
	require.NoError(t, err)
	assert.Equal(t, 3, latest.Version.Version)
	assert.Equal(t, 3, env.dicts.count())
}

func TestCreateVersionClonesPriorLatest(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.versions.EnsureInitialVersion(env.ctx, env.projectID)
	require.NoError(t, err)

	_, err = env.tables.CreateTable(env.ctx, env.projectID, 1, types.Table{
		Name:    "orders",
		Columns: []types.Column{{Name: "id", DataType: "bigint", IsPK: true}},
	})
	require.NoError(t, err)

	v2, err := env.versions.Create(env.ctx, env.projectID, "v2", "")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, v2.Dictionary.FindTable(types.DefaultSchemaName, "orders"), 0)

	// Edits to the new version must not leak back into the prior one.
	_, err = env.tables.CreateTable(env.ctx, env.projectID, 2, types.Table{
		Name:    "customers",
		Columns: []types.Column{{Name: "id", DataType: "bigint", IsPK: true}},
	})
	require.NoError(t, err)

	v1, err := env.versions.Get(env.ctx, env.projectID, 1)
	require.NoError(t, err)
	assert.Equal(t, -1, v1.Dictionary.FindTable(types.DefaultSchemaName, "customers"))
	assert.Len(t, v1.Dictionary.Schemas.Tables, 2)
}

func TestGetLatestWithoutVersions(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.versions.GetLatest(env.ctx, env.projectID)
	require.Error(t, err)
	assert.True(t, apierr.IsNotFound(err))
}

func TestGetMissingVersion(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.versions.EnsureInitialVersion(env.ctx, env.projectID)
	require.NoError(t, err)

	_, err = env.versions.Get(env.ctx, env.projectID, 42)
	require.Error(t, err)
	assert.True(t, apierr.IsNotFound(err))
}

func TestVersionAccessControl(t *testing.T) {
	env := newTestEnv(t)

	// Unknown project reads as absent, not forbidden.
	_, err := env.versions.List(env.ctx, uuid.New())
	assert.True(t, apierr.IsNotFound(err))

	// A different owner is rejected without leaking existence details.
	_, err = env.versions.List(ctxForUser(uuid.New()), env.projectID)
	assert.Equal(t, 403, apierr.Status(err))

	// No caller at all.
	_, err = env.versions.List(context.Background(), env.projectID)
	assert.Equal(t, 401, apierr.Status(err))
}

func TestUpdateVersion(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.versions.EnsureInitialVersion(env.ctx, env.projectID)
	require.NoError(t, err)

	name := "Renamed"
	desc := "new description"
	row, err := env.versions.Update(env.ctx, env.projectID, 1, services.UpdateVersionInput{
		Name:        &name,
		Description: &desc,
		Metadata:    map[string]interface{}{"reviewed": true},
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", row.Name)
	assert.Equal(t, "new description", row.Description)

	reloaded, err := env.versions.Get(env.ctx, env.projectID, 1)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", reloaded.Version.Name)
	assert.Equal(t, "Renamed", reloaded.Dictionary.Name)
	assert.Equal(t, true, reloaded.Dictionary.Metadata["reviewed"])
}

func TestUpdateVersionRejectsInvalidSchemas(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.versions.EnsureInitialVersion(env.ctx, env.projectID)
	require.NoError(t, err)

	bad := &types.SchemaSet{Tables: []types.Table{{
		Name: "dup",
		Columns: []types.Column{
			{Name: "id", DataType: "bigint"},
			{Name: "id", DataType: "text"},
		},
	}}}
	_, err = env.versions.Update(env.ctx, env.projectID, 1, services.UpdateVersionInput{Schemas: bad})
	require.Error(t, err)
	assert.Equal(t, 400, apierr.Status(err))
}

func TestUpdateMissingVersion(t *testing.T) {
	env := newTestEnv(t)

	name := "x"
	_, err := env.versions.Update(env.ctx, env.projectID, 7, services.UpdateVersionInput{Name: &name})
	assert.True(t, apierr.IsNotFound(err))
}

func TestDeleteLatestPromotesPredecessor(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.versions.EnsureInitialVersion(env.ctx, env.projectID)
	require.NoError(t, err)
	_, err = env.versions.Create(env.ctx, env.projectID, "v2", "")
	require.NoError(t, err)
	_, err = env.versions.Create(env.ctx, env.projectID, "v3", "")
	require.NoError(t, err)

	require.NoError(t, env.versions.Delete(env.ctx, env.projectID, 3))

	latest, err := env.versions.GetLatest(env.ctx, env.projectID)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version.Version)
	assert.Equal(t, 2, env.dicts.count())

	// Deleting a non-latest version leaves the latest flag alone.
	require.NoError(t, env.versions.Delete(env.ctx, env.projectID, 1))
	latest, err = env.versions.GetLatest(env.ctx, env.projectID)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version.Version)
}

func TestDeleteOnlyVersion(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.versions.EnsureInitialVersion(env.ctx, env.projectID)
	require.NoError(t, err)

	require.NoError(t, env.versions.Delete(env.ctx, env.projectID, 1))

	rows, err := env.versions.List(env.ctx, env.projectID)
	require.NoError(t, err)
	assert.Empty(t, rows)
	_, err = env.versions.GetLatest(env.ctx, env.projectID)
	assert.True(t, apierr.IsNotFound(err))
	assert.Equal(t, 0, env.dicts.count())
}

func TestDeleteMissingVersion(t *testing.T) {
	env := newTestEnv(t)

	err := env.versions.Delete(env.ctx, env.projectID, 5)
	assert.True(t, apierr.IsNotFound(err))
}

func TestStaleDocumentWriteConflict(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.versions.EnsureInitialVersion(env.ctx, env.projectID)
	require.NoError(t, err)

	// Two editors load the same revision.
	idA, docA, err := env.versions.ResolveDocument(env.ctx, env.projectID, 1)
	require.NoError(t, err)
	idB, docB, err := env.versions.ResolveDocument(env.ctx, env.projectID, 1)
	require.NoError(t, err)
	require.Equal(t, idA, idB)

	docA.Name = "first writer"
	require.NoError(t, env.versions.SaveDocument(env.ctx, idA, docA))

	docB.Name = "second writer"
	err = env.versions.SaveDocument(env.ctx, idB, docB)
	require.Error(t, err)
	assert.True(t, apierr.IsConflict(err))

	// The first write wins.
	_, current, err := env.versions.ResolveDocument(env.ctx, env.projectID, 1)
	require.NoError(t, err)
	assert.Equal(t, "first writer", current.Name)
}
