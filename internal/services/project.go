package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fuckdb/fuckdb-backend/internal/apierr"
	"github.com/fuckdb/fuckdb-backend/internal/logger"
	"github.com/fuckdb/fuckdb-backend/internal/repos"
	"github.com/fuckdb/fuckdb-backend/internal/requestdata"
	"github.com/fuckdb/fuckdb-backend/internal/types"
)

type UpdateProjectInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type ProjectService interface {
	Create(ctx context.Context, name, description string) (*types.Project, error)
	List(ctx context.Context, limit, offset int) ([]*types.Project, error)
	Get(ctx context.Context, projectID uuid.UUID) (*types.Project, error)
	Update(ctx context.Context, projectID uuid.UUID, patch UpdateProjectInput) (*types.Project, error)
	// Delete removes the project, every dictionary version row and every
	// dictionary document.
	Delete(ctx context.Context, projectID uuid.UUID) error
}

type projectService struct {
	db             *gorm.DB
	log            *logger.Logger
	projectRepo    repos.ProjectRepo
	versionService VersionService
}

func NewProjectService(
	db *gorm.DB,
	baseLog *logger.Logger,
	projectRepo repos.ProjectRepo,
	versionService VersionService,
) ProjectService {
	return &projectService{
		db:             db,
		log:            baseLog.With("service", "ProjectService"),
		projectRepo:    projectRepo,
		versionService: versionService,
	}
}

func (ps *projectService) caller(ctx context.Context) (uuid.UUID, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return uuid.Nil, apierr.Unauthorized("no authenticated caller")
	}
	return rd.UserID, nil
}

// resolveOwned loads the project and checks ownership: absent -> NotFound,
// foreign -> Forbidden.
func (ps *projectService) resolveOwned(ctx context.Context, projectID uuid.UUID) (*types.Project, error) {
	ownerID, err := ps.caller(ctx)
	if err != nil {
		return nil, err
	}
	project, err := ps.projectRepo.GetByID(ctx, nil, projectID)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return nil, apierr.NotFound("project %s not found", projectID)
	}
	if project.OwnerID != ownerID {
		return nil, apierr.Forbidden("access denied to project %s", projectID)
	}
	return project, nil
}

func (ps *projectService) Create(ctx context.Context, name, description string) (*types.Project, error) {
	ownerID, err := ps.caller(ctx)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apierr.Validation("project name is required")
	}
	if len(name) > 100 {
		return nil, apierr.Validation("project name must be at most 100 characters")
	}
	if len(description) > 500 {
		return nil, apierr.Validation("project description must be at most 500 characters")
	}

	project := &types.Project{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Name:        name,
		Description: strings.TrimSpace(description),
	}
	if _, err := ps.projectRepo.Create(ctx, nil, []*types.Project{project}); err != nil {
		ps.log.Error("Create project failed", "error", err, "owner_id", ownerID)
		return nil, fmt.Errorf("create project: %w", err)
	}

	// Seed version 1 so the editor never opens on an empty project. The
	// project itself survives a failed bootstrap; the next read path calls
	// EnsureInitialVersion again.
	if _, err := ps.versionService.EnsureInitialVersion(ctx, project.ID); err != nil {
		ps.log.Warn("Initial dictionary bootstrap failed", "error", err, "project_id", project.ID)
	}

	ps.log.Info("Project created", "project_id", project.ID, "owner_id", ownerID)
	return project, nil
}

func (ps *projectService) List(ctx context.Context, limit, offset int) ([]*types.Project, error) {
	ownerID, err := ps.caller(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return ps.projectRepo.ListByOwner(ctx, nil, ownerID, limit, offset)
}

func (ps *projectService) Get(ctx context.Context, projectID uuid.UUID) (*types.Project, error) {
	return ps.resolveOwned(ctx, projectID)
}

func (ps *projectService) Update(ctx context.Context, projectID uuid.UUID, patch UpdateProjectInput) (*types.Project, error) {
	project, err := ps.resolveOwned(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if patch.Name == nil && patch.Description == nil {
		return nil, apierr.Validation("no fields to update")
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apierr.Validation("project name cannot be empty")
		}
		project.Name = name
	}
	if patch.Description != nil {
		project.Description = strings.TrimSpace(*patch.Description)
	}
	if _, err := ps.projectRepo.Update(ctx, nil, project); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return project, nil
}

func (ps *projectService) Delete(ctx context.Context, projectID uuid.UUID) error {
	if _, err := ps.resolveOwned(ctx, projectID); err != nil {
		return err
	}
	if err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ps.versionService.DeleteAllForProject(ctx, tx, projectID); err != nil {
			return err
		}
		if err := ps.projectRepo.Delete(ctx, tx, projectID); err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		return nil
	}); err != nil {
		ps.log.Error("Delete project failed", "error", err, "project_id", projectID)
		return err
	}
	ps.log.Info("Project deleted", "project_id", projectID)
	return nil
}
