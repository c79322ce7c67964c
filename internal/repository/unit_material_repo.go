package repository

import (
	"context"

	"gorm.io/gorm"

	"classpad/internal/model"
)

// UnitMaterialRepository 单元资料数据访问接口
type UnitMaterialRepository interface {
	Create(ctx context.Context, m *model.UnitMaterial) error
	GetByID(ctx context.Context, materialID string) (*model.UnitMaterial, error)
	ListByUnit(ctx context.Context, unitID string) ([]model.UnitMaterial, error)
	NextOrderIndex(ctx context.Context, unitID string) (int, error)
	Delete(ctx context.Context, materialID string) error
}

type unitMaterialRepo struct {
	db *gorm.DB
}

// NewUnitMaterialRepo 创建 UnitMaterialRepository 实例
func NewUnitMaterialRepo(db *gorm.DB) UnitMaterialRepository {
	return &unitMaterialRepo{db: db}
}

func (r *unitMaterialRepo) Create(ctx context.Context, m *model.UnitMaterial) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *unitMaterialRepo) GetByID(ctx context.Context, materialID string) (*model.UnitMaterial, error) {
	var m model.UnitMaterial
	err := r.db.WithContext(ctx).
		Where("material_id = ?", materialID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *unitMaterialRepo) ListByUnit(ctx context.Context, unitID string) ([]model.UnitMaterial, error) {
	var list []model.UnitMaterial
	err := r.db.WithContext(ctx).
		Where("unit_id = ?", unitID).
		Order("order_index ASC, created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *unitMaterialRepo) NextOrderIndex(ctx context.Context, unitID string) (int, error) {
	var max *int
	err := r.db.WithContext(ctx).
		Model(&model.UnitMaterial{}).
		Where("unit_id = ?", unitID).
		Select("MAX(order_index)").
		Scan(&max).Error
	if err != nil || max == nil {
		return 0, err
	}
	return *max + 1, nil
}

func (r *unitMaterialRepo) Delete(ctx context.Context, materialID string) error {
	return r.db.WithContext(ctx).
		Where("material_id = ?", materialID).
		Delete(&model.UnitMaterial{}).Error
}
