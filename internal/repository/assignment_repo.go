package repository

import (
	"context"

	"gorm.io/gorm"

	"classpad/internal/model"
	"classpad/pkg/ident"
)

// AssignmentFilter 作业列表筛选条件
type AssignmentFilter struct {
	UnitID        *string
	PublishedOnly bool
}

// AssignmentRepository 作业数据访问接口
type AssignmentRepository interface {
	Create(ctx context.Context, a *model.Assignment) error
	GetByID(ctx context.Context, id ident.ID) (*model.Assignment, error)
	ListByCourse(ctx context.Context, courseID string, filter AssignmentFilter) ([]model.Assignment, error)
	Update(ctx context.Context, a *model.Assignment) error
	SetPublished(ctx context.Context, assignmentID string, published bool) error
	Delete(ctx context.Context, assignmentID string) error
}

type assignmentRepo struct {
	db *gorm.DB
}

// NewAssignmentRepo 创建 AssignmentRepository 实例
func NewAssignmentRepo(db *gorm.DB) AssignmentRepository {
	return &assignmentRepo{db: db}
}

func (r *assignmentRepo) Create(ctx context.Context, a *model.Assignment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *assignmentRepo) GetByID(ctx context.Context, id ident.ID) (*model.Assignment, error) {
	var a model.Assignment
	query, arg := id.Where("assignment_id")
	err := r.db.WithContext(ctx).
		Where(query, arg).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepo) ListByCourse(ctx context.Context, courseID string, filter AssignmentFilter) ([]model.Assignment, error) {
	var list []model.Assignment
	db := r.db.WithContext(ctx).Where("course_id = ?", courseID)
	if filter.UnitID != nil {
		db = db.Where("unit_id = ?", *filter.UnitID)
	}
	if filter.PublishedOnly {
		db = db.Where("is_published = ?", true)
	}
	err := db.Order("due_at ASC NULLS LAST, created_at ASC").Find(&list).Error
	return list, err
}

func (r *assignmentRepo) Update(ctx context.Context, a *model.Assignment) error {
	return r.db.WithContext(ctx).
		Model(&model.Assignment{}).
		Where("assignment_id = ?", a.AssignmentID).
		Updates(map[string]interface{}{
			"unit_id":               a.UnitID,
			"title":                 a.Title,
			"description":           a.Description,
			"instructions":          a.Instructions,
			"due_at":                a.DueAt,
			"max_points":            a.MaxPoints,
			"allow_late_submission": a.AllowLateSubmission,
			"late_penalty_percent":  a.LatePenaltyPercent,
			"rubric":                a.Rubric,
			"updated_at":            gorm.Expr("NOW()"),
		}).Error
}

func (r *assignmentRepo) SetPublished(ctx context.Context, assignmentID string, published bool) error {
	return r.db.WithContext(ctx).
		Model(&model.Assignment{}).
		Where("assignment_id = ?", assignmentID).
		Updates(map[string]interface{}{
			"is_published": published,
			"updated_at":   gorm.Expr("NOW()"),
		}).Error
}

func (r *assignmentRepo) Delete(ctx context.Context, assignmentID string) error {
	return r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Delete(&model.Assignment{}).Error
}
