package repos_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fuckdb/fuckdb-backend/internal/logger"
	"github.com/fuckdb/fuckdb-backend/internal/repos"
	"github.com/fuckdb/fuckdb-backend/internal/types"
)

func seedProject(t *testing.T, db *gorm.DB, ownerID uuid.UUID) uuid.UUID {
	t.Helper()
	project := &types.Project{
		ID:      uuid.New(),
		OwnerID: ownerID,
		Name:    "test project",
	}
	require.NoError(t, db.Create(project).Error)
	return project.ID
}

func newVersionRow(projectID uuid.UUID, version int, latest bool) *types.DictionaryVersion {
	return &types.DictionaryVersion{
		ID:        uuid.New(),
		ProjectID: projectID,
		Version:   version,
		MongoID:   fmt.Sprintf("mongo-%s-%d", projectID, version),
		Name:      fmt.Sprintf("v%d", version),
		IsLatest:  latest,
		Metadata:  datatypes.JSON([]byte(`{}`)),
		CreatedAt: time.Now().UTC(),
	}
}

func TestDictionaryVersionRepoListOrdering(t *testing.T) {
	db := openTestDB(t)
	repo := repos.NewDictionaryVersionRepo(db, logger.NewNop())
	ctx := context.Background()
	projectID := seedProject(t, db, uuid.New())

	// Insert out of order; List must come back newest-first.
	for _, n := range []int{2, 1, 3} {
		_, err := repo.Create(ctx, nil, []*types.DictionaryVersion{newVersionRow(projectID, n, n == 3)})
		require.NoError(t, err)
	}

	rows, err := repo.ListByProject(ctx, nil, projectID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 3, rows[0].Version)
	assert.Equal(t, 2, rows[1].Version)
	assert.Equal(t, 1, rows[2].Version)
}

func TestDictionaryVersionRepoLatestFlow(t *testing.T) {
	db := openTestDB(t)
	repo := repos.NewDictionaryVersionRepo(db, logger.NewNop())
	ctx := context.Background()
	projectID := seedProject(t, db, uuid.New())

	_, err := repo.Create(ctx, nil, []*types.DictionaryVersion{newVersionRow(projectID, 1, true)})
	require.NoError(t, err)

	require.NoError(t, repo.ClearLatest(ctx, nil, projectID))
	_, err = repo.Create(ctx, nil, []*types.DictionaryVersion{newVersionRow(projectID, 2, true)})
	require.NoError(t, err)

	latest, err := repo.GetLatest(ctx, nil, projectID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 2, latest.Version)

	var latestCount int64
	require.NoError(t, db.Model(&types.DictionaryVersion{}).
		Where("project_id = ? AND is_latest = ?", projectID, true).
		Count(&latestCount).Error)
	assert.EqualValues(t, 1, latestCount)

	// Promote an older version back.
	require.NoError(t, repo.ClearLatest(ctx, nil, projectID))
	require.NoError(t, repo.SetLatest(ctx, nil, projectID, 1))
	latest, err = repo.GetLatest(ctx, nil, projectID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 1, latest.Version)
}

func TestDictionaryVersionRepoGetLatestEmpty(t *testing.T) {
	db := openTestDB(t)
	repo := repos.NewDictionaryVersionRepo(db, logger.NewNop())

	latest, err := repo.GetLatest(context.Background(), nil, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestDictionaryVersionRepoMaxVersion(t *testing.T) {
	db := openTestDB(t)
	repo := repos.NewDictionaryVersionRepo(db, logger.NewNop())
	ctx := context.Background()
	projectID := seedProject(t, db, uuid.New())

	max, err := repo.MaxVersion(ctx, nil, projectID)
	require.NoError(t, err)
	assert.Equal(t, 0, max)

	for _, n := range []int{1, 4, 2} {
		_, err := repo.Create(ctx, nil, []*types.DictionaryVersion{newVersionRow(projectID, n, false)})
		require.NoError(t, err)
	}
	max, err = repo.MaxVersion(ctx, nil, projectID)
	require.NoError(t, err)
	assert.Equal(t, 4, max)
}

func TestDictionaryVersionRepoGetByVersion(t *testing.T) {
	db := openTestDB(t)
	repo := repos.NewDictionaryVersionRepo(db, logger.NewNop())
	ctx := context.Background()
	projectID := seedProject(t, db, uuid.New())

	_, err := repo.Create(ctx, nil, []*types.DictionaryVersion{newVersionRow(projectID, 1, true)})
	require.NoError(t, err)

	row, err := repo.GetByVersion(ctx, nil, projectID, 1)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, projectID, row.ProjectID)

	missing, err := repo.GetByVersion(ctx, nil, projectID, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDictionaryVersionRepoDuplicateVersionRejected(t *testing.T) {
	db := openTestDB(t)
	repo := repos.NewDictionaryVersionRepo(db, logger.NewNop())
	ctx := context.Background()
	projectID := seedProject(t, db, uuid.New())

	_, err := repo.Create(ctx, nil, []*types.DictionaryVersion{newVersionRow(projectID, 1, true)})
	require.NoError(t, err)
	_, err = repo.Create(ctx, nil, []*types.DictionaryVersion{newVersionRow(projectID, 1, false)})
	assert.Error(t, err)
}

func TestDictionaryVersionRepoDelete(t *testing.T) {
	db := openTestDB(t)
	repo := repos.NewDictionaryVersionRepo(db, logger.NewNop())
	ctx := context.Background()
	projectID := seedProject(t, db, uuid.New())

	for n := 1; n <= 3; n++ {
		_, err := repo.Create(ctx, nil, []*types.DictionaryVersion{newVersionRow(projectID, n, n == 3)})
		require.NoError(t, err)
	}

	require.NoError(t, repo.DeleteByVersion(ctx, nil, projectID, 2))
	rows, err := repo.ListByProject(ctx, nil, projectID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, repo.DeleteByProject(ctx, nil, projectID))
	rows, err = repo.ListByProject(ctx, nil, projectID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
