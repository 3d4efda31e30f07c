package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fuckdb/fuckdb-backend/internal/apierr"
	"github.com/fuckdb/fuckdb-backend/internal/clients/redis"
	"github.com/fuckdb/fuckdb-backend/internal/logger"
	"github.com/fuckdb/fuckdb-backend/internal/repos"
	"github.com/fuckdb/fuckdb-backend/internal/requestdata"
	"github.com/fuckdb/fuckdb-backend/internal/types"
)

// VersionWithDictionary pairs a version row with its resolved document.
type VersionWithDictionary struct {
	Version    *types.DictionaryVersion `json:"version"`
	Dictionary *types.Dictionary        `json:"dictionary"`
}

// UpdateVersionInput is the patchable surface of a version. Version number
// and latest-ness are deliberately absent: latest only moves via Create or
// the promotion on Delete.
type UpdateVersionInput struct {
	Name          *string                `json:"name"`
	Description   *string                `json:"description"`
	Metadata      map[string]interface{} `json:"metadata"`
	Schemas       *types.SchemaSet       `json:"schemas"`
	Relationships []types.Relationship   `json:"relationships"`
	ERD           *types.ERDLayout       `json:"erd"`
}

type VersionService interface {
	List(ctx context.Context, projectID uuid.UUID) ([]*types.DictionaryVersion, error)
	GetLatest(ctx context.Context, projectID uuid.UUID) (*VersionWithDictionary, error)
	Get(ctx context.Context, projectID uuid.UUID, version int) (*VersionWithDictionary, error)
	Create(ctx context.Context, projectID uuid.UUID, name, description string) (*VersionWithDictionary, error)
	Update(ctx context.Context, projectID uuid.UUID, version int, patch UpdateVersionInput) (*types.DictionaryVersion, error)
	Delete(ctx context.Context, projectID uuid.UUID, version int) error
	// EnsureInitialVersion bootstraps version 1 from the skeleton document
	// iff the project has no versions yet. Idempotent.
	EnsureInitialVersion(ctx context.Context, projectID uuid.UUID) (*VersionWithDictionary, error)

	// ResolveDocument verifies project access and loads the document behind
	// {project, version}. Used by the table mutation path.
	ResolveDocument(ctx context.Context, projectID uuid.UUID, version int) (string, *types.Dictionary, error)
	// SaveDocument writes a mutated document back under its id.
	SaveDocument(ctx context.Context, mongoID string, dict *types.Dictionary) error

	// DeleteAllForProject removes every version row and document of a
	// project. Called from the project delete cascade.
	DeleteAllForProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) error
}

type versionService struct {
	db          *gorm.DB
	log         *logger.Logger
	projectRepo repos.ProjectRepo
	versionRepo repos.DictionaryVersionRepo
	dictRepo    repos.DictionaryRepo
	cache       redis.VersionCache
}

func NewVersionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	projectRepo repos.ProjectRepo,
	versionRepo repos.DictionaryVersionRepo,
	dictRepo repos.DictionaryRepo,
	cache redis.VersionCache,
) VersionService {
	return &versionService{
		db:          db,
		log:         baseLog.With("service", "VersionService"),
		projectRepo: projectRepo,
		versionRepo: versionRepo,
		dictRepo:    dictRepo,
		cache:       cache,
	}
}

// verifyProjectAccess resolves the project and checks the caller owns it.
// Absent project -> NotFound, foreign project -> Forbidden.
func (vs *versionService) verifyProjectAccess(ctx context.Context, projectID uuid.UUID) (*types.Project, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.Unauthorized("no authenticated caller")
	}
	project, err := vs.projectRepo.GetByID(ctx, nil, projectID)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return nil, apierr.NotFound("project %s not found", projectID)
	}
	if project.OwnerID != rd.UserID {
		return nil, apierr.Forbidden("access denied to project %s", projectID)
	}
	return project, nil
}

func (vs *versionService) List(ctx context.Context, projectID uuid.UUID) ([]*types.DictionaryVersion, error) {
	if _, err := vs.verifyProjectAccess(ctx, projectID); err != nil {
		return nil, err
	}
	return vs.versionRepo.ListByProject(ctx, nil, projectID)
}

func (vs *versionService) GetLatest(ctx context.Context, projectID uuid.UUID) (*VersionWithDictionary, error) {
	if _, err := vs.verifyProjectAccess(ctx, projectID); err != nil {
		return nil, err
	}
	row, err := vs.versionRepo.GetLatest(ctx, nil, projectID)
	if err != nil {
		return nil, fmt.Errorf("load latest version: %w", err)
	}
	if row == nil {
		// Normal for a project with no versions: callers bootstrap.
		return nil, apierr.NotFound("project %s has no versions", projectID)
	}
	dict, err := vs.dictRepo.GetByID(ctx, row.MongoID)
	if err != nil {
		return nil, err
	}
	return &VersionWithDictionary{Version: row, Dictionary: dict}, nil
}

func (vs *versionService) Get(ctx context.Context, projectID uuid.UUID, version int) (*VersionWithDictionary, error) {
	if _, err := vs.verifyProjectAccess(ctx, projectID); err != nil {
		return nil, err
	}
	row, err := vs.versionRepo.GetByVersion(ctx, nil, projectID, version)
	if err != nil {
		return nil, fmt.Errorf("load version: %w", err)
	}
	if row == nil {
		return nil, apierr.NotFound("version %d not found for project %s", version, projectID)
	}
	dict, err := vs.dictRepo.GetByID(ctx, row.MongoID)
	if err != nil {
		return nil, err
	}
	return &VersionWithDictionary{Version: row, Dictionary: dict}, nil
}

func (vs *versionService) Create(ctx context.Context, projectID uuid.UUID, name, description string) (*VersionWithDictionary, error) {
	if _, err := vs.verifyProjectAccess(ctx, projectID); err != nil {
		return nil, err
	}
	return vs.createVersion(ctx, projectID, name, description)
}

// createVersion clones the prior latest document (or starts from the
// skeleton), inserts the new document, then flips the latest flag and inserts
// the version row in one relational transaction. If the transaction fails the
// freshly inserted document is removed again, so no half-created version is
// ever observable.
func (vs *versionService) createVersion(ctx context.Context, projectID uuid.UUID, name, description string) (*VersionWithDictionary, error) {
	rd := requestdata.GetRequestData(ctx)

	prior, err := vs.versionRepo.GetLatest(ctx, nil, projectID)
	if err != nil {
		return nil, fmt.Errorf("load latest version: %w", err)
	}

	var doc *types.Dictionary
	if prior != nil {
		base, err := vs.dictRepo.GetByID(ctx, prior.MongoID)
		if err != nil {
			return nil, err
		}
		doc = base.Clone()
	} else {
		doc = types.NewSkeletonDictionary(projectID)
	}

	maxVersion, err := vs.versionRepo.MaxVersion(ctx, nil, projectID)
	if err != nil {
		return nil, fmt.Errorf("resolve max version: %w", err)
	}
	nextVersion := maxVersion + 1

	now := time.Now().UTC()
	doc.ProjectID = projectID.String()
	doc.Version = nextVersion
	doc.Name = name
	doc.Description = description
	doc.Revision = 0
	doc.CreatedAt = now
	doc.UpdatedAt = now

	mongoID, err := vs.dictRepo.Insert(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert dictionary document: %w", err)
	}
	doc.ID = mongoID

	record := &types.DictionaryVersion{
		ID:          uuid.New(),
		ProjectID:   projectID,
		Version:     nextVersion,
		MongoID:     mongoID,
		Name:        name,
		Description: description,
		IsLatest:    true,
		Metadata:    datatypes.JSON([]byte(`{}`)),
		CreatedAt:   now,
	}
	if rd != nil {
		record.CreatedBy = rd.UserID
	}

	if err := vs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := vs.versionRepo.ClearLatest(ctx, tx, projectID); err != nil {
			return fmt.Errorf("clear latest flag: %w", err)
		}
		if _, err := vs.versionRepo.Create(ctx, tx, []*types.DictionaryVersion{record}); err != nil {
			return fmt.Errorf("create version record: %w", err)
		}
		return nil
	}); err != nil {
		if delErr := vs.dictRepo.Delete(ctx, mongoID); delErr != nil {
			vs.log.Error("Orphaned dictionary document after failed version create", "mongo_id", mongoID, "error", delErr)
		}
		return nil, err
	}

	if vs.cache != nil {
		vs.cache.SetMongoID(ctx, projectID.String(), nextVersion, mongoID)
	}
	vs.log.Info("Dictionary version created", "project_id", projectID, "version", nextVersion)
	return &VersionWithDictionary{Version: record, Dictionary: doc}, nil
}

func (vs *versionService) EnsureInitialVersion(ctx context.Context, projectID uuid.UUID) (*VersionWithDictionary, error) {
	if _, err := vs.verifyProjectAccess(ctx, projectID); err != nil {
		return nil, err
	}
	existing, err := vs.versionRepo.GetLatest(ctx, nil, projectID)
	if err != nil {
		return nil, fmt.Errorf("load latest version: %w", err)
	}
	if existing != nil {
		dict, err := vs.dictRepo.GetByID(ctx, existing.MongoID)
		if err != nil {
			return nil, err
		}
		return &VersionWithDictionary{Version: existing, Dictionary: dict}, nil
	}
	return vs.createVersion(ctx, projectID, "Initial Version", "Automatically created initial version")
}

func (vs *versionService) Update(ctx context.Context, projectID uuid.UUID, version int, patch UpdateVersionInput) (*types.DictionaryVersion, error) {
	if _, err := vs.verifyProjectAccess(ctx, projectID); err != nil {
		return nil, err
	}
	row, err := vs.versionRepo.GetByVersion(ctx, nil, projectID, version)
	if err != nil {
		return nil, fmt.Errorf("load version: %w", err)
	}
	if row == nil {
		return nil, apierr.NotFound("version %d not found for project %s", version, projectID)
	}

	rowChanged := false
	if patch.Name != nil {
		row.Name = *patch.Name
		rowChanged = true
	}
	if patch.Description != nil {
		row.Description = *patch.Description
		rowChanged = true
	}
	if patch.Metadata != nil {
		raw, err := json.Marshal(patch.Metadata)
		if err != nil {
			return nil, apierr.Validation("metadata is not serializable: %v", err)
		}
		row.Metadata = datatypes.JSON(raw)
		rowChanged = true
	}
	if rowChanged {
		if _, err := vs.versionRepo.Update(ctx, nil, row); err != nil {
			return nil, fmt.Errorf("update version record: %w", err)
		}
	}

	docChanged := patch.Name != nil || patch.Description != nil || patch.Metadata != nil ||
		patch.Schemas != nil || patch.Relationships != nil || patch.ERD != nil
	if docChanged {
		dict, err := vs.dictRepo.GetByID(ctx, row.MongoID)
		if err != nil {
			return nil, err
		}
		if patch.Name != nil {
			dict.Name = *patch.Name
		}
		if patch.Description != nil {
			dict.Description = *patch.Description
		}
		if patch.Metadata != nil {
			dict.Metadata = patch.Metadata
		}
		if patch.Schemas != nil {
			for i := range patch.Schemas.Tables {
				if err := patch.Schemas.Tables[i].ValidateAndNormalize(); err != nil {
					return nil, err
				}
			}
			dict.Schemas = *patch.Schemas
		}
		if patch.Relationships != nil {
			dict.Relationships = patch.Relationships
		}
		if patch.ERD != nil {
			dict.ERD = *patch.ERD
		}
		if err := vs.dictRepo.Replace(ctx, row.MongoID, dict); err != nil {
			return nil, err
		}
	}
	return row, nil
}

func (vs *versionService) Delete(ctx context.Context, projectID uuid.UUID, version int) error {
	if _, err := vs.verifyProjectAccess(ctx, projectID); err != nil {
		return err
	}
	row, err := vs.versionRepo.GetByVersion(ctx, nil, projectID, version)
	if err != nil {
		return fmt.Errorf("load version: %w", err)
	}
	if row == nil {
		return apierr.NotFound("version %d not found for project %s", version, projectID)
	}

	if err := vs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := vs.versionRepo.DeleteByVersion(ctx, tx, projectID, version); err != nil {
			return fmt.Errorf("delete version record: %w", err)
		}
		if row.IsLatest {
			// Promote the highest remaining version, if any.
			next, err := vs.versionRepo.MaxVersion(ctx, tx, projectID)
			if err != nil {
				return fmt.Errorf("resolve next latest: %w", err)
			}
			if next > 0 {
				if err := vs.versionRepo.SetLatest(ctx, tx, projectID, next); err != nil {
					return fmt.Errorf("promote version %d: %w", next, err)
				}
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := vs.dictRepo.Delete(ctx, row.MongoID); err != nil {
		vs.log.Warn("Failed to delete dictionary document", "mongo_id", row.MongoID, "error", err)
	}
	if vs.cache != nil {
		vs.cache.Invalidate(ctx, projectID.String(), version)
	}
	vs.log.Info("Dictionary version deleted", "project_id", projectID, "version", version)
	return nil
}

func (vs *versionService) ResolveDocument(ctx context.Context, projectID uuid.UUID, version int) (string, *types.Dictionary, error) {
	if _, err := vs.verifyProjectAccess(ctx, projectID); err != nil {
		return "", nil, err
	}

	var mongoID string
	if vs.cache != nil {
		if id, ok := vs.cache.GetMongoID(ctx, projectID.String(), version); ok {
			mongoID = id
		}
	}
	if mongoID == "" {
		row, err := vs.versionRepo.GetByVersion(ctx, nil, projectID, version)
		if err != nil {
			return "", nil, fmt.Errorf("load version: %w", err)
		}
		if row == nil {
			return "", nil, apierr.NotFound("version %d not found for project %s", version, projectID)
		}
		mongoID = row.MongoID
		if vs.cache != nil {
			vs.cache.SetMongoID(ctx, projectID.String(), version, mongoID)
		}
	}

	dict, err := vs.dictRepo.GetByID(ctx, mongoID)
	if err != nil {
		return "", nil, err
	}
	return mongoID, dict, nil
}

func (vs *versionService) SaveDocument(ctx context.Context, mongoID string, dict *types.Dictionary) error {
	return vs.dictRepo.Replace(ctx, mongoID, dict)
}

func (vs *versionService) DeleteAllForProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) error {
	rows, err := vs.versionRepo.ListByProject(ctx, tx, projectID)
	if err != nil {
		return fmt.Errorf("list versions: %w", err)
	}
	if err := vs.versionRepo.DeleteByProject(ctx, tx, projectID); err != nil {
		return fmt.Errorf("delete version records: %w", err)
	}
	mongoIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		mongoIDs = append(mongoIDs, row.MongoID)
		if vs.cache != nil {
			vs.cache.Invalidate(ctx, projectID.String(), row.Version)
		}
	}
	if err := vs.dictRepo.DeleteByIDs(ctx, mongoIDs); err != nil {
		vs.log.Warn("Failed to delete dictionary documents", "project_id", projectID, "error", err)
	}
	return nil
}
