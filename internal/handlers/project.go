package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fuckdb/fuckdb-backend/internal/apierr"
	"github.com/fuckdb/fuckdb-backend/internal/logger"
	"github.com/fuckdb/fuckdb-backend/internal/services"
)

type ProjectHandler struct {
	log            *logger.Logger
	projectService services.ProjectService
}

func NewProjectHandler(log *logger.Logger, projectService services.ProjectService) *ProjectHandler {
	return &ProjectHandler{
		log:            log.With("handler", "ProjectHandler"),
		projectService: projectService,
	}
}

func parseProjectID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		return uuid.Nil, apierr.Validation("malformed project id %q", c.Param("project_id"))
	}
	return id, nil
}

func (h *ProjectHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	projects, err := h.projectService.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.log.Error("List projects failed", "error", err)
		RespondError(c, err)
		return
	}
	RespondOK(c, "", gin.H{"projects": projects, "total": len(projects)})
}

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid project payload: %v", err))
		return
	}
	project, err := h.projectService.Create(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		h.log.Error("Create project failed", "error", err)
		RespondError(c, err)
		return
	}
	RespondCreated(c, "project created", gin.H{"project": project})
}

func (h *ProjectHandler) Get(c *gin.Context) {
	projectID, err := parseProjectID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	project, err := h.projectService.Get(c.Request.Context(), projectID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, "", gin.H{"project": project})
}

func (h *ProjectHandler) Update(c *gin.Context) {
	projectID, err := parseProjectID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var patch services.UpdateProjectInput
	if err := c.ShouldBindJSON(&patch); err != nil {
		RespondError(c, apierr.Validation("invalid project payload: %v", err))
		return
	}
	project, err := h.projectService.Update(c.Request.Context(), projectID, patch)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, "project updated", gin.H{"project": project})
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	projectID, err := parseProjectID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	if err := h.projectService.Delete(c.Request.Context(), projectID); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, "project deleted", gin.H{"deleted_project": projectID})
}
