package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fuckdb/fuckdb-backend/internal/apierr"
	"github.com/fuckdb/fuckdb-backend/internal/logger"
	"github.com/fuckdb/fuckdb-backend/internal/services"
)

type VersionHandler struct {
	log            *logger.Logger
	versionService services.VersionService
}

func NewVersionHandler(log *logger.Logger, versionService services.VersionService) *VersionHandler {
	return &VersionHandler{
		log:            log.With("handler", "VersionHandler"),
		versionService: versionService,
	}
}

func parseVersionNumber(c *gin.Context) (int, error) {
	n, err := strconv.Atoi(c.Param("version"))
	if err != nil || n < 1 {
		return 0, apierr.Validation("malformed version number %q", c.Param("version"))
	}
	return n, nil
}

func (h *VersionHandler) List(c *gin.Context) {
	projectID, err := parseProjectID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	versions, err := h.versionService.List(c.Request.Context(), projectID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, "", gin.H{"versions": versions, "count": len(versions)})
}

type createVersionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *VersionHandler) Create(c *gin.Context) {
	projectID, err := parseProjectID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var req createVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Validation("invalid version payload: %v", err))
		return
	}
	result, err := h.versionService.Create(c.Request.Context(), projectID, req.Name, req.Description)
	if err != nil {
		h.log.Error("Create version failed", "error", err, "project_id", projectID)
		RespondError(c, err)
		return
	}
	RespondCreated(c, "version created", result)
}

func (h *VersionHandler) GetLatest(c *gin.Context) {
	projectID, err := parseProjectID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	result, err := h.versionService.GetLatest(c.Request.Context(), projectID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, "", result)
}

func (h *VersionHandler) Get(c *gin.Context) {
	projectID, err := parseProjectID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	version, err := parseVersionNumber(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	result, err := h.versionService.Get(c.Request.Context(), projectID, version)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, "", result)
}

func (h *VersionHandler) Update(c *gin.Context) {
	projectID, err := parseProjectID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	version, err := parseVersionNumber(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	var patch services.UpdateVersionInput
	if err := c.ShouldBindJSON(&patch); err != nil {
		RespondError(c, apierr.Validation("invalid version payload: %v", err))
		return
	}
	record, err := h.versionService.Update(c.Request.Context(), projectID, version, patch)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, "version updated", gin.H{"version": record})
}

func (h *VersionHandler) Delete(c *gin.Context) {
	projectID, err := parseProjectID(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	version, err := parseVersionNumber(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	if err := h.versionService.Delete(c.Request.Context(), projectID, version); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, "version deleted", gin.H{"deleted_version": version})
}
