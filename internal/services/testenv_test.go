package services_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fuckdb/fuckdb-backend/internal/apierr"
	"github.com/fuckdb/fuckdb-backend/internal/logger"
	"github.com/fuckdb/fuckdb-backend/internal/repos"
	"github.com/fuckdb/fuckdb-backend/internal/requestdata"
	"github.com/fuckdb/fuckdb-backend/internal/services"
	"github.com/fuckdb/fuckdb-backend/internal/types"
)

var testSchema = []string{
	`CREATE TABLE "user" (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		full_name TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE user_token (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		access_token TEXT NOT NULL UNIQUE,
		refresh_token TEXT NOT NULL UNIQUE,
		expires_at DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE projects (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE dictionary_versions (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		version INTEGER NOT NULL,
		mongo_id TEXT NOT NULL,
		name TEXT,
		description TEXT,
		is_latest BOOLEAN NOT NULL DEFAULT 0,
		metadata TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		created_by TEXT,
		UNIQUE (project_id, version)
	)`,
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	for _, stmt := range testSchema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

// fakeDictRepo is an in-memory stand-in for the mongo-backed repo with the
// same revision-checked replace semantics.
type fakeDictRepo struct {
	mu   sync.Mutex
	docs map[string]*types.Dictionary
	seq  int
}

func newFakeDictRepo() *fakeDictRepo {
	return &fakeDictRepo{docs: map[string]*types.Dictionary{}}
}

func copyDict(d *types.Dictionary) *types.Dictionary {
	out := d.Clone()
	out.ID = d.ID
	out.Version = d.Version
	out.Revision = d.Revision
	out.CreatedAt = d.CreatedAt
	out.UpdatedAt = d.UpdatedAt
	return out
}

func (f *fakeDictRepo) Insert(_ context.Context, d *types.Dictionary) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("doc-%d", f.seq)
	stored := copyDict(d)
	stored.ID = id
	f.docs[id] = stored
	return id, nil
}

func (f *fakeDictRepo) GetByID(_ context.Context, id string) (*types.Dictionary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.docs[id]
	if !ok {
		return nil, apierr.NotFound("dictionary %q not found", id)
	}
	return copyDict(stored), nil
}

func (f *fakeDictRepo) Replace(_ context.Context, id string, d *types.Dictionary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.docs[id]
	if !ok {
		return apierr.NotFound("dictionary %q not found", id)
	}
	if stored.Revision != d.Revision {
		return apierr.Conflict("dictionary %q was modified concurrently", id)
	}
	next := copyDict(d)
	next.ID = id
	next.Revision = d.Revision + 1
	next.UpdatedAt = time.Now().UTC()
	f.docs[id] = next
	d.Revision = next.Revision
	d.UpdatedAt = next.UpdatedAt
	return nil
}

func (f *fakeDictRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	return nil
}

func (f *fakeDictRepo) DeleteByIDs(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.docs, id)
	}
	return nil
}

func (f *fakeDictRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs)
}

// testEnv wires the relational repos against sqlite and the dictionary repo
// against the in-memory fake, mirroring the production wiring in cmd/main.go.
type testEnv struct {
	db       *gorm.DB
	dicts    *fakeDictRepo
	projects repos.ProjectRepo
	versions services.VersionService
	tables   services.TableService
	projSvc  services.ProjectService

	userID    uuid.UUID
	projectID uuid.UUID
	ctx       context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := openTestDB(t)
	log := logger.NewNop()

	projectRepo := repos.NewProjectRepo(db, log)
	versionRepo := repos.NewDictionaryVersionRepo(db, log)
	dicts := newFakeDictRepo()

	versionService := services.NewVersionService(db, log, projectRepo, versionRepo, dicts, nil)
	tableService := services.NewTableService(log, versionService)
	projectService := services.NewProjectService(db, log, projectRepo, versionService)

	userID := uuid.New()
	projectID := uuid.New()
	require.NoError(t, db.Create(&types.Project{
		ID:      projectID,
		OwnerID: userID,
		Name:    "analytics",
	}).Error)

	return &testEnv{
		db:        db,
		dicts:     dicts,
		projects:  projectRepo,
		versions:  versionService,
		tables:    tableService,
		projSvc:   projectService,
		userID:    userID,
		projectID: projectID,
		ctx:       ctxForUser(userID),
	}
}

func ctxForUser(userID uuid.UUID) context.Context {
	return requestdata.WithRequestData(context.Background(), &requestdata.RequestData{
		UserID: userID,
		Email:  "owner@example.com",
	})
}
