package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fuckdb/fuckdb-backend/internal/logger"
	"github.com/fuckdb/fuckdb-backend/internal/types"
)

type DictionaryVersionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, versions []*types.DictionaryVersion) ([]*types.DictionaryVersion, error)
	ListByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.DictionaryVersion, error)
	GetLatest(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (*types.DictionaryVersion, error)
	GetByVersion(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, version int) (*types.DictionaryVersion, error)
	MaxVersion(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (int, error)
	ClearLatest(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) error
	SetLatest(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, version int) error
	Update(ctx context.Context, tx *gorm.DB, record *types.DictionaryVersion) (*types.DictionaryVersion, error)
	DeleteByVersion(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, version int) error
	DeleteByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) error
}

type dictionaryVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDictionaryVersionRepo(db *gorm.DB, baseLog *logger.Logger) DictionaryVersionRepo {
	return &dictionaryVersionRepo{db: db, log: baseLog.With("repo", "DictionaryVersionRepo")}
}

func (vr *dictionaryVersionRepo) resolve(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return vr.db
}

func (vr *dictionaryVersionRepo) Create(ctx context.Context, tx *gorm.DB, versions []*types.DictionaryVersion) ([]*types.DictionaryVersion, error) {
	if len(versions) == 0 {
		return []*types.DictionaryVersion{}, nil
	}
	if err := vr.resolve(tx).WithContext(ctx).Create(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}

func (vr *dictionaryVersionRepo) ListByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.DictionaryVersion, error) {
	results := []*types.DictionaryVersion{}
	if err := vr.resolve(tx).WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("version DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (vr *dictionaryVersionRepo) GetLatest(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (*types.DictionaryVersion, error) {
	var result types.DictionaryVersion
	if err := vr.resolve(tx).WithContext(ctx).
		Where("project_id = ? AND is_latest = ?", projectID, true).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (vr *dictionaryVersionRepo) GetByVersion(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, version int) (*types.DictionaryVersion, error) {
	var result types.DictionaryVersion
	if err := vr.resolve(tx).WithContext(ctx).
		Where("project_id = ? AND version = ?", projectID, version).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (vr *dictionaryVersionRepo) MaxVersion(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (int, error) {
	var max *int
	if err := vr.resolve(tx).WithContext(ctx).
		Model(&types.DictionaryVersion{}).
		Where("project_id = ?", projectID).
		Select("MAX(version)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

func (vr *dictionaryVersionRepo) ClearLatest(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) error {
	return vr.resolve(tx).WithContext(ctx).
		Model(&types.DictionaryVersion{}).
		Where("project_id = ? AND is_latest = ?", projectID, true).
		Update("is_latest", false).Error
}

func (vr *dictionaryVersionRepo) SetLatest(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, version int) error {
	return vr.resolve(tx).WithContext(ctx).
		Model(&types.DictionaryVersion{}).
		Where("project_id = ? AND version = ?", projectID, version).
		Update("is_latest", true).Error
}

func (vr *dictionaryVersionRepo) Update(ctx context.Context, tx *gorm.DB, record *types.DictionaryVersion) (*types.DictionaryVersion, error) {
	if err := vr.resolve(tx).WithContext(ctx).Save(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (vr *dictionaryVersionRepo) DeleteByVersion(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, version int) error {
	return vr.resolve(tx).WithContext(ctx).
		Where("project_id = ? AND version = ?", projectID, version).
		Delete(&types.DictionaryVersion{}).Error
}

func (vr *dictionaryVersionRepo) DeleteByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) error {
	return vr.resolve(tx).WithContext(ctx).
		Where("project_id = ?", projectID).
		Delete(&types.DictionaryVersion{}).Error
}
