package repository

import (
	"context"

	"gorm.io/gorm"

	"classpad/internal/model"
	"classpad/pkg/ident"
)

// UnitRepository 课程单元数据访问接口
type UnitRepository interface {
	Create(ctx context.Context, unit *model.Unit) error
	GetByID(ctx context.Context, id ident.ID) (*model.Unit, error)
	ListByCourse(ctx context.Context, courseID string, publishedOnly bool) ([]model.Unit, error)
	NextOrderIndex(ctx context.Context, courseID string) (int, error)
	Update(ctx context.Context, unit *model.Unit) error
	SetPublished(ctx context.Context, unitID string, published bool) error
	// Reorder 按给定顺序重写 order_index，需在事务中调用
	Reorder(ctx context.Context, courseID string, unitIDs []string) error
	Delete(ctx context.Context, unitID string) error
}

type unitRepo struct {
	db *gorm.DB
}

// NewUnitRepo 创建 UnitRepository 实例
func NewUnitRepo(db *gorm.DB) UnitRepository {
	return &unitRepo{db: db}
}

func (r *unitRepo) Create(ctx context.Context, unit *model.Unit) error {
	return r.db.WithContext(ctx).Create(unit).Error
}

func (r *unitRepo) GetByID(ctx context.Context, id ident.ID) (*model.Unit, error) {
	var unit model.Unit
	query, arg := id.Where("unit_id")
	err := r.db.WithContext(ctx).
		Where(query, arg).
		First(&unit).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *unitRepo) ListByCourse(ctx context.Context, courseID string, publishedOnly bool) ([]model.Unit, error) {
	var units []model.Unit
	db := r.db.WithContext(ctx).Where("course_id = ?", courseID)
	if publishedOnly {
		db = db.Where("is_published = ?", true)
	}
	err := db.Order("order_index ASC, created_at ASC").Find(&units).Error
	return units, err
}

func (r *unitRepo) NextOrderIndex(ctx context.Context, courseID string) (int, error) {
	var max *int
	err := r.db.WithContext(ctx).
		Model(&model.Unit{}).
		Where("course_id = ?", courseID).
		Select("MAX(order_index)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max + 1, nil
}

func (r *unitRepo) Update(ctx context.Context, unit *model.Unit) error {
	return r.db.WithContext(ctx).
		Model(&model.Unit{}).
		Where("unit_id = ?", unit.UnitID).
		Updates(map[string]interface{}{
			"title":       unit.Title,
			"description": unit.Description,
			"order_index": unit.OrderIndex,
			"updated_at":  gorm.Expr("NOW()"),
		}).Error
}

func (r *unitRepo) SetPublished(ctx context.Context, unitID string, published bool) error {
	return r.db.WithContext(ctx).
		Model(&model.Unit{}).
		Where("unit_id = ?", unitID).
		Updates(map[string]interface{}{
			"is_published": published,
			"updated_at":   gorm.Expr("NOW()"),
		}).Error
}

func (r *unitRepo) Reorder(ctx context.Context, courseID string, unitIDs []string) error {
	for i, id := range unitIDs {
		result := r.db.WithContext(ctx).
			Model(&model.Unit{}).
			Where("unit_id = ? AND course_id = ?", id, courseID).
			Updates(map[string]interface{}{
				"order_index": i,
				"updated_at":  gorm.Expr("NOW()"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
	}
	return nil
}

func (r *unitRepo) Delete(ctx context.Context, unitID string) error {
	return r.db.WithContext(ctx).
		Where("unit_id = ?", unitID).
		Delete(&model.Unit{}).Error
}
