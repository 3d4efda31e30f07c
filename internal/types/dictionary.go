package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fuckdb/fuckdb-backend/internal/apierr"
)

// Table classification used by the visual editor.
const (
	TableTypeFact      = "fact"
	TableTypeDimension = "dimension"
	TableTypeBridge    = "bridge"
	TableTypeStaging   = "staging"
)

// Column key markers.
const (
	ColumnKeyPrimary = "PK"
	ColumnKeyForeign = "FK"
	ColumnKeyUnique  = "UK"
	ColumnKeyIndex   = "IX"
	ColumnKeyNone    = ""
)

// DefaultSchemaName is used whenever a request does not name a schema.
const DefaultSchemaName = "public"

func ValidTableType(t string) bool {
	switch t {
	case TableTypeFact, TableTypeDimension, TableTypeBridge, TableTypeStaging:
		return true
	}
	return false
}

type Column struct {
	Name         string `bson:"name" json:"name"`
	DataType     string `bson:"data_type" json:"data_type"`
	Key          string `bson:"key,omitempty" json:"key,omitempty"`
	IsPK         bool   `bson:"isPK" json:"isPK"`
	IsFK         bool   `bson:"isFK" json:"isFK"`
	Nullable     bool   `bson:"nullable" json:"nullable"`
	DefaultValue string `bson:"default_value,omitempty" json:"default_value,omitempty"`
	Description  string `bson:"description,omitempty" json:"description,omitempty"`
	Length       int    `bson:"length,omitempty" json:"length,omitempty"`
	Precision    int    `bson:"precision,omitempty" json:"precision,omitempty"`
	Scale        int    `bson:"scale,omitempty" json:"scale,omitempty"`
	IsUnique     bool   `bson:"is_unique,omitempty" json:"is_unique,omitempty"`
	IsIndexed    bool   `bson:"is_indexed,omitempty" json:"is_indexed,omitempty"`
	RefTable     string `bson:"refTable,omitempty" json:"refTable,omitempty"`
	RefColumn    string `bson:"refColumn,omitempty" json:"refColumn,omitempty"`
}

type Table struct {
	Name        string   `bson:"name" json:"name"`
	SchemaName  string   `bson:"schema_name" json:"schema_name"`
	TableType   string   `bson:"table_type" json:"table_type"`
	Description string   `bson:"description,omitempty" json:"description,omitempty"`
	Columns     []Column `bson:"columns" json:"columns"`
	UIColor     string   `bson:"ui_color,omitempty" json:"ui_color,omitempty"`
	UIOrder     int      `bson:"ui_order,omitempty" json:"ui_order,omitempty"`
}

type Relationship struct {
	ID           string `bson:"id" json:"id"`
	Name         string `bson:"name,omitempty" json:"name,omitempty"`
	SourceTable  string `bson:"fromTable" json:"fromTable"`
	SourceColumn string `bson:"fromColumn" json:"fromColumn"`
	TargetTable  string `bson:"toTable" json:"toTable"`
	TargetColumn string `bson:"toColumn" json:"toColumn"`
	Cardinality  string `bson:"type,omitempty" json:"type,omitempty"`
	OnDelete     string `bson:"on_delete,omitempty" json:"on_delete,omitempty"`
	OnUpdate     string `bson:"on_update,omitempty" json:"on_update,omitempty"`
	Description  string `bson:"description,omitempty" json:"description,omitempty"`
}

type ERDNode struct {
	ID     string  `bson:"id" json:"id"`
	X      float64 `bson:"x" json:"x"`
	Y      float64 `bson:"y" json:"y"`
	Width  float64 `bson:"width,omitempty" json:"width,omitempty"`
	Height float64 `bson:"height,omitempty" json:"height,omitempty"`
}

type ERDEdge struct {
	ID     string `bson:"id" json:"id"`
	Source string `bson:"from" json:"from"`
	Target string `bson:"to" json:"to"`
	Label  string `bson:"label,omitempty" json:"label,omitempty"`
}

type ERDLayout struct {
	Nodes []ERDNode `bson:"nodes" json:"nodes"`
	Edges []ERDEdge `bson:"edges" json:"edges"`
}

// SchemaSet is the flat table collection stored on the document. Tables carry
// their own schema_name, so one set covers every schema of the dictionary.
type SchemaSet struct {
	Tables        []Table        `bson:"tables" json:"tables"`
	Relationships []Relationship `bson:"relationships" json:"relationships"`
}

// Dictionary is the full schema payload for one version of a project, stored
// as a single document. Revision is a monotonic counter bumped on every
// write; replacing a document checks it so that concurrent editors surface a
// conflict instead of silently overwriting each other.
type Dictionary struct {
	ID            string                 `bson:"-" json:"_id,omitempty"`
	ProjectID     string                 `bson:"project_id" json:"project_id"`
	Version       int                    `bson:"version" json:"version"`
	Name          string                 `bson:"name,omitempty" json:"name,omitempty"`
	Description   string                 `bson:"description,omitempty" json:"description,omitempty"`
	Schemas       SchemaSet              `bson:"schemas" json:"schemas"`
	Relationships []Relationship         `bson:"relationships" json:"relationships"`
	ERD           ERDLayout              `bson:"erd" json:"erd"`
	Metadata      map[string]interface{} `bson:"metadata" json:"metadata"`
	Revision      int64                  `bson:"revision" json:"revision"`
	CreatedAt     time.Time              `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time              `bson:"updated_at" json:"updated_at"`
}

// FindTable returns the index of the named table within schemaName, or -1.
func (d *Dictionary) FindTable(schemaName, tableName string) int {
	for i, t := range d.Schemas.Tables {
		if t.Name == tableName && t.SchemaName == schemaName {
			return i
		}
	}
	return -1
}

// TablesInSchema returns the document's tables filtered to one schema, in
// insertion order.
func (d *Dictionary) TablesInSchema(schemaName string) []Table {
	out := []Table{}
	for _, t := range d.Schemas.Tables {
		if t.SchemaName == schemaName {
			out = append(out, t)
		}
	}
	return out
}

// Clone deep-copies the schema payload so a new version starts from the prior
// latest without sharing slices with it. Identity and bookkeeping fields are
// left for the caller to fill in.
func (d *Dictionary) Clone() *Dictionary {
	out := &Dictionary{
		ProjectID:   d.ProjectID,
		Name:        d.Name,
		Description: d.Description,
		Schemas: SchemaSet{
			Tables:        make([]Table, len(d.Schemas.Tables)),
			Relationships: append([]Relationship{}, d.Schemas.Relationships...),
		},
		Relationships: append([]Relationship{}, d.Relationships...),
		ERD: ERDLayout{
			Nodes: append([]ERDNode{}, d.ERD.Nodes...),
			Edges: append([]ERDEdge{}, d.ERD.Edges...),
		},
		Metadata: map[string]interface{}{},
	}
	for i, t := range d.Schemas.Tables {
		t.Columns = append([]Column{}, t.Columns...)
		out.Schemas.Tables[i] = t
	}
	for k, v := range d.Metadata {
		out.Metadata[k] = v
	}
	return out
}

// Normalize reconciles the redundant key markers on a column: a primary key
// is never nullable, and the Key field mirrors the booleans.
func (c *Column) Normalize() {
	switch c.Key {
	case ColumnKeyPrimary:
		c.IsPK = true
	case ColumnKeyForeign:
		c.IsFK = true
	}
	if c.IsPK {
		c.Key = ColumnKeyPrimary
		c.Nullable = false
	} else if c.IsFK && c.Key == ColumnKeyNone {
		c.Key = ColumnKeyForeign
	}
}

func (c *Column) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return apierr.Validation("column name is required")
	}
	if strings.TrimSpace(c.DataType) == "" {
		return apierr.Validation("column %q: data_type is required", c.Name)
	}
	if c.IsPK && c.IsFK {
		return apierr.Validation("column %q: cannot be both primary and foreign key", c.Name)
	}
	return nil
}

// ValidateAndNormalize checks the table payload before it is persisted and
// normalizes its columns. Rejects unknown table types, empty names and
// duplicate column names.
func (t *Table) ValidateAndNormalize() error {
	if strings.TrimSpace(t.Name) == "" {
		return apierr.Validation("table name is required")
	}
	if t.SchemaName == "" {
		t.SchemaName = DefaultSchemaName
	}
	if t.TableType == "" {
		t.TableType = TableTypeDimension
	}
	if !ValidTableType(t.TableType) {
		return apierr.Validation("table %q: unknown table_type %q", t.Name, t.TableType)
	}
	seen := map[string]bool{}
	for i := range t.Columns {
		t.Columns[i].Normalize()
		if err := t.Columns[i].Validate(); err != nil {
			return err
		}
		if seen[t.Columns[i].Name] {
			return apierr.Validation("table %q: duplicate column %q", t.Name, t.Columns[i].Name)
		}
		seen[t.Columns[i].Name] = true
	}
	return nil
}

// DefaultIdentityColumn is appended to a new table created without columns.
func DefaultIdentityColumn() Column {
	return Column{
		Name:        "id",
		DataType:    "bigint",
		Key:         ColumnKeyPrimary,
		IsPK:        true,
		Nullable:    false,
		Description: "Primary key",
		IsUnique:    true,
		IsIndexed:   true,
	}
}

// NewSkeletonDictionary builds the bootstrap document for a project with no
// versions yet: one public schema with a sample table, so a brand-new project
// is never visually empty.
func NewSkeletonDictionary(projectID uuid.UUID) *Dictionary {
	now := time.Now().UTC()
	sample := Table{
		Name:        "sample_table",
		SchemaName:  DefaultSchemaName,
		TableType:   TableTypeDimension,
		Description: "Sample table - you can modify or delete this",
		Columns: []Column{
			{
				Name:        "id",
				DataType:    "bigint",
				Key:         ColumnKeyPrimary,
				IsPK:        true,
				Nullable:    false,
				Description: "Primary key",
			},
			{
				Name:        "name",
				DataType:    "varchar",
				Length:      255,
				Nullable:    true,
				Description: "Name field",
			},
			{
				Name:         "created_at",
				DataType:     "timestamp",
				Nullable:     false,
				DefaultValue: "CURRENT_TIMESTAMP",
				Description:  "Record creation timestamp",
			},
		},
	}
	return &Dictionary{
		ProjectID: projectID.String(),
		Version:   1,
		Schemas: SchemaSet{
			Tables:        []Table{sample},
			Relationships: []Relationship{},
		},
		Relationships: []Relationship{},
		ERD:           ERDLayout{Nodes: []ERDNode{}, Edges: []ERDEdge{}},
		Metadata:      map[string]interface{}{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// String implements fmt.Stringer for log lines.
func (t Table) String() string {
	return fmt.Sprintf("%s.%s", t.SchemaName, t.Name)
}
