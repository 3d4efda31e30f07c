package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DictionaryVersion is the relational record for one version of a project's
// dictionary. The schema payload itself lives in the document store under
// MongoID. For a given ProjectID the version numbers form a strictly
// increasing sequence starting at 1, and exactly one row has IsLatest set.
type DictionaryVersion struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProjectID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_dictionary_versions_project_version,unique;column:project_id" json:"project_id"`
	Project     *Project       `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"project,omitempty"`
	Version     int            `gorm:"not null;index:idx_dictionary_versions_project_version,unique;column:version" json:"version"`
	MongoID     string         `gorm:"not null;column:mongo_id" json:"mongo_id"`
	Name        string         `gorm:"column:name" json:"name"`
	Description string         `gorm:"column:description" json:"description"`
	IsLatest    bool           `gorm:"not null;default:false;column:is_latest" json:"is_latest"`
	Metadata    datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	CreatedBy   uuid.UUID      `gorm:"type:uuid;column:created_by" json:"created_by"`
}

func (DictionaryVersion) TableName() string {
	return "dictionary_versions"
}
