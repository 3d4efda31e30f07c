package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/fuckdb/fuckdb-backend/internal/apierr"
	"github.com/fuckdb/fuckdb-backend/internal/logger"
	"github.com/fuckdb/fuckdb-backend/internal/types"
)

// TablePatch is the partial-update surface of a table. Nil fields keep their
// current value; a non-nil Columns slice replaces the column list wholesale.
type TablePatch struct {
	Name        *string        `json:"name"`
	TableType   *string        `json:"table_type"`
	Description *string        `json:"description"`
	Columns     []types.Column `json:"columns"`
}

// TableService applies one semantic edit per call as a full-document
// read-modify-write against the version's dictionary document.
type TableService interface {
	ListTables(ctx context.Context, projectID uuid.UUID, version int, schemaName string) ([]types.Table, error)
	CreateTable(ctx context.Context, projectID uuid.UUID, version int, table types.Table) (*types.Table, error)
	GetTable(ctx context.Context, projectID uuid.UUID, version int, schemaName, tableName string) (*types.Table, error)
	PatchTable(ctx context.Context, projectID uuid.UUID, version int, schemaName, tableName string, patch TablePatch) (*types.Table, error)
	DeleteTable(ctx context.Context, projectID uuid.UUID, version int, schemaName, tableName string) error
	DeleteColumn(ctx context.Context, projectID uuid.UUID, version int, schemaName, tableName, columnName string) error
}

type tableService struct {
	log            *logger.Logger
	versionService VersionService
}

func NewTableService(baseLog *logger.Logger, versionService VersionService) TableService {
	return &tableService{
		log:            baseLog.With("service", "TableService"),
		versionService: versionService,
	}
}

func normalizeSchemaName(schemaName string) string {
	schemaName = strings.TrimSpace(schemaName)
	if schemaName == "" {
		return types.DefaultSchemaName
	}
	return schemaName
}

func (ts *tableService) ListTables(ctx context.Context, projectID uuid.UUID, version int, schemaName string) ([]types.Table, error) {
	_, dict, err := ts.versionService.ResolveDocument(ctx, projectID, version)
	if err != nil {
		return nil, err
	}
	return dict.TablesInSchema(normalizeSchemaName(schemaName)), nil
}

func (ts *tableService) CreateTable(ctx context.Context, projectID uuid.UUID, version int, table types.Table) (*types.Table, error) {
	table.SchemaName = normalizeSchemaName(table.SchemaName)
	if err := table.ValidateAndNormalize(); err != nil {
		return nil, err
	}
	if len(table.Columns) == 0 {
		table.Columns = []types.Column{types.DefaultIdentityColumn()}
	}

	mongoID, dict, err := ts.versionService.ResolveDocument(ctx, projectID, version)
	if err != nil {
		return nil, err
	}
	if dict.FindTable(table.SchemaName, table.Name) >= 0 {
		return nil, apierr.Conflict("table %q already exists in schema %q", table.Name, table.SchemaName)
	}

	dict.Schemas.Tables = append(dict.Schemas.Tables, table)
	if err := ts.versionService.SaveDocument(ctx, mongoID, dict); err != nil {
		return nil, err
	}
	ts.log.Info("Table created", "project_id", projectID, "version", version, "table", table.String())
	return &table, nil
}

func (ts *tableService) GetTable(ctx context.Context, projectID uuid.UUID, version int, schemaName, tableName string) (*types.Table, error) {
	schemaName = normalizeSchemaName(schemaName)
	_, dict, err := ts.versionService.ResolveDocument(ctx, projectID, version)
	if err != nil {
		return nil, err
	}
	idx := dict.FindTable(schemaName, tableName)
	if idx < 0 {
		return nil, apierr.NotFound("table %q not found in schema %q", tableName, schemaName)
	}
	table := dict.Schemas.Tables[idx]
	return &table, nil
}

func (ts *tableService) PatchTable(ctx context.Context, projectID uuid.UUID, version int, schemaName, tableName string, patch TablePatch) (*types.Table, error) {
	schemaName = normalizeSchemaName(schemaName)
	mongoID, dict, err := ts.versionService.ResolveDocument(ctx, projectID, version)
	if err != nil {
		return nil, err
	}
	idx := dict.FindTable(schemaName, tableName)
	if idx < 0 {
		return nil, apierr.NotFound("table %q not found in schema %q", tableName, schemaName)
	}

	updated := dict.Schemas.Tables[idx]
	if patch.Name != nil && *patch.Name != updated.Name {
		if dict.FindTable(schemaName, *patch.Name) >= 0 {
			return nil, apierr.Conflict("table %q already exists in schema %q", *patch.Name, schemaName)
		}
		oldName := updated.Name
		updated.Name = *patch.Name
		renameTableRefs(dict, oldName, updated.Name)
	}
	if patch.TableType != nil {
		updated.TableType = *patch.TableType
	}
	if patch.Description != nil {
		updated.Description = *patch.Description
	}
	if patch.Columns != nil {
		updated.Columns = patch.Columns
	}
	if err := updated.ValidateAndNormalize(); err != nil {
		return nil, err
	}

	dict.Schemas.Tables[idx] = updated
	if err := ts.versionService.SaveDocument(ctx, mongoID, dict); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (ts *tableService) DeleteTable(ctx context.Context, projectID uuid.UUID, version int, schemaName, tableName string) error {
	schemaName = normalizeSchemaName(schemaName)
	mongoID, dict, err := ts.versionService.ResolveDocument(ctx, projectID, version)
	if err != nil {
		return err
	}
	idx := dict.FindTable(schemaName, tableName)
	if idx < 0 {
		return apierr.NotFound("table %q not found in schema %q", tableName, schemaName)
	}

	dict.Schemas.Tables = append(dict.Schemas.Tables[:idx], dict.Schemas.Tables[idx+1:]...)
	dict.Relationships = dropTableRelationships(dict.Relationships, tableName)
	dict.Schemas.Relationships = dropTableRelationships(dict.Schemas.Relationships, tableName)

	if err := ts.versionService.SaveDocument(ctx, mongoID, dict); err != nil {
		return err
	}
	ts.log.Info("Table deleted", "project_id", projectID, "version", version, "schema", schemaName, "table", tableName)
	return nil
}

func (ts *tableService) DeleteColumn(ctx context.Context, projectID uuid.UUID, version int, schemaName, tableName, columnName string) error {
	schemaName = normalizeSchemaName(schemaName)
	mongoID, dict, err := ts.versionService.ResolveDocument(ctx, projectID, version)
	if err != nil {
		return err
	}
	idx := dict.FindTable(schemaName, tableName)
	if idx < 0 {
		return apierr.NotFound("table %q not found in schema %q", tableName, schemaName)
	}
	table := &dict.Schemas.Tables[idx]

	colIdx := -1
	for i, c := range table.Columns {
		if c.Name == columnName {
			colIdx = i
			break
		}
	}
	if colIdx < 0 {
		return apierr.NotFound("column %q not found in table %q", columnName, tableName)
	}
	// A table always keeps at least one column, and its only primary key
	// cannot be removed.
	if len(table.Columns) == 1 {
		return apierr.Validation("cannot delete the last column in a table")
	}
	if table.Columns[colIdx].IsPK && countPrimaryKeys(table.Columns) == 1 {
		return apierr.Validation("cannot delete the only primary key column")
	}

	table.Columns = append(table.Columns[:colIdx], table.Columns[colIdx+1:]...)
	dict.Relationships = dropColumnRelationships(dict.Relationships, tableName, columnName)
	dict.Schemas.Relationships = dropColumnRelationships(dict.Schemas.Relationships, tableName, columnName)

	if err := ts.versionService.SaveDocument(ctx, mongoID, dict); err != nil {
		return err
	}
	ts.log.Info("Column deleted", "project_id", projectID, "version", version, "table", tableName, "column", columnName)
	return nil
}

func countPrimaryKeys(columns []types.Column) int {
	n := 0
	for _, c := range columns {
		if c.IsPK {
			n++
		}
	}
	return n
}

func dropTableRelationships(rels []types.Relationship, tableName string) []types.Relationship {
	out := rels[:0]
	for _, rel := range rels {
		if rel.SourceTable == tableName || rel.TargetTable == tableName {
			continue
		}
		out = append(out, rel)
	}
	return out
}

func dropColumnRelationships(rels []types.Relationship, tableName, columnName string) []types.Relationship {
	out := rels[:0]
	for _, rel := range rels {
		if (rel.SourceTable == tableName && rel.SourceColumn == columnName) ||
			(rel.TargetTable == tableName && rel.TargetColumn == columnName) {
			continue
		}
		out = append(out, rel)
	}
	return out
}

// renameTableRefs keeps relationship endpoints pointing at a renamed table.
// Relationship endpoints are schema-unqualified, matching the editor's model.
func renameTableRefs(dict *types.Dictionary, oldName, newName string) {
	rename := func(rels []types.Relationship) {
		for i := range rels {
			if rels[i].SourceTable == oldName {
				rels[i].SourceTable = newName
			}
			if rels[i].TargetTable == oldName {
				rels[i].TargetTable = newName
			}
		}
	}
	rename(dict.Relationships)
	rename(dict.Schemas.Relationships)
}
