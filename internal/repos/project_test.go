package repos_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuckdb/fuckdb-backend/internal/logger"
	"github.com/fuckdb/fuckdb-backend/internal/repos"
	"github.com/fuckdb/fuckdb-backend/internal/types"
)

func TestProjectRepoCreateAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := repos.NewProjectRepo(db, logger.NewNop())
	ctx := context.Background()

	project := &types.Project{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		Name:        "warehouse",
		Description: "analytics warehouse",
	}
	_, err := repo.Create(ctx, nil, []*types.Project{project})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, nil, project.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "warehouse", got.Name)
	assert.Equal(t, project.OwnerID, got.OwnerID)

	missing, err := repo.GetByID(ctx, nil, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProjectRepoListByOwner(t *testing.T) {
	db := openTestDB(t)
	repo := repos.NewProjectRepo(db, logger.NewNop())
	ctx := context.Background()

	ownerID := uuid.New()
	otherID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, nil, []*types.Project{{
			ID:        uuid.New(),
			OwnerID:   ownerID,
			Name:      fmt.Sprintf("project-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}})
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, nil, []*types.Project{{ID: uuid.New(), OwnerID: otherID, Name: "foreign"}})
	require.NoError(t, err)

	// Newest first, scoped to the owner.
	projects, err := repo.ListByOwner(ctx, nil, ownerID, 100, 0)
	require.NoError(t, err)
	require.Len(t, projects, 3)
	assert.Equal(t, "project-2", projects[0].Name)
	assert.Equal(t, "project-0", projects[2].Name)

	paged, err := repo.ListByOwner(ctx, nil, ownerID, 1, 1)
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "project-1", paged[0].Name)
}

func TestProjectRepoUpdateAndDelete(t *testing.T) {
	db := openTestDB(t)
	repo := repos.NewProjectRepo(db, logger.NewNop())
	ctx := context.Background()

	project := &types.Project{ID: uuid.New(), OwnerID: uuid.New(), Name: "before"}
	_, err := repo.Create(ctx, nil, []*types.Project{project})
	require.NoError(t, err)

	project.Name = "after"
	_, err = repo.Update(ctx, nil, project)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, nil, project.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "after", got.Name)

	require.NoError(t, repo.Delete(ctx, nil, project.ID))
	got, err = repo.GetByID(ctx, nil, project.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
