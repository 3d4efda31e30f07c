package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/fuckdb/fuckdb-backend/internal/apierr"
	"github.com/fuckdb/fuckdb-backend/internal/logger"
	"github.com/fuckdb/fuckdb-backend/internal/services"
	"github.com/fuckdb/fuckdb-backend/internal/types"
)

type TableHandler struct {
	log          *logger.Logger
	tableService services.TableService
}

func NewTableHandler(log *logger.Logger, tableService services.TableService) *TableHandler {
	return &TableHandler{
		log:          log.With("handler", "TableHandler"),
		tableService: tableService,
	}
}

func schemaNameQuery(c *gin.Context) string {
	return c.DefaultQuery("schema_name", types.DefaultSchemaName)
}

func (h *TableHandler) List(c *gin.Context) {
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
	schemaName := schemaNameQuery(c)
	tables, err := h.tableService.ListTables(c.Request.Context(), projectID, version, schemaName)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, "", gin.H{"tables": tables, "schema": schemaName, "count": len(tables)})
}

func (h *TableHandler) Create(c *gin.Context) {
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
	var table types.Table
	if err := c.ShouldBindJSON(&table); err != nil {
		RespondError(c, apierr.Validation("invalid table payload: %v", err))
		return
	}
	created, err := h.tableService.CreateTable(c.Request.Context(), projectID, version, table)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, "table created", gin.H{"table": created})
}

func (h *TableHandler) Get(c *gin.Context) {
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
	table, err := h.tableService.GetTable(c.Request.Context(), projectID, version, schemaNameQuery(c), c.Param("table_name"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, "", gin.H{"table": table})
}

func (h *TableHandler) Patch(c *gin.Context) {
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
	var patch services.TablePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		RespondError(c, apierr.Validation("invalid table payload: %v", err))
		return
	}
	updated, err := h.tableService.PatchTable(c.Request.Context(), projectID, version, schemaNameQuery(c), c.Param("table_name"), patch)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, "table updated", gin.H{"table": updated})
}

func (h *TableHandler) Delete(c *gin.Context) {
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
	tableName := c.Param("table_name")
	if err := h.tableService.DeleteTable(c.Request.Context(), projectID, version, schemaNameQuery(c), tableName); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, "table deleted", gin.H{"deleted_table": tableName})
}

func (h *TableHandler) DeleteColumn(c *gin.Context) {
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
	tableName := c.Param("table_name")
	columnName := c.Param("column_name")
	if err := h.tableService.DeleteColumn(c.Request.Context(), projectID, version, schemaNameQuery(c), tableName, columnName); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, "column deleted", gin.H{"deleted_column": columnName})
}
