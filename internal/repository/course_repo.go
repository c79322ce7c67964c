package repository

import (
	"context"

	"gorm.io/gorm"

	"classpad/internal/model"
	"classpad/pkg/ident"
)

// CourseRepository 课程数据访问接口
type CourseRepository interface {
	Create(ctx context.Context, course *model.Course) error
	GetByID(ctx context.Context, id ident.ID) (*model.Course, error)
	GetByCode(ctx context.Context, code string) (*model.Course, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.Course, error)
	Update(ctx context.Context, course *model.Course) error
	UpdateCode(ctx context.Context, courseID, code string) error
	Delete(ctx context.Context, courseID string) error
}

type courseRepo struct {
	db *gorm.DB
}

// NewCourseRepo 创建 CourseRepository 实例
func NewCourseRepo(db *gorm.DB) CourseRepository {
	return &courseRepo{db: db}
}

func (r *courseRepo) Create(ctx context.Context, course *model.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepo) GetByID(ctx context.Context, id ident.ID) (*model.Course, error) {
	var course model.Course
	query, arg := id.Where("course_id")
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Where(query, arg).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) GetByCode(ctx context.Context, code string) (*model.Course, error) {
	var course model.Course
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Course{}).
		Where("code = ?", code).
		Count(&count).Error
	return count > 0, err
}

func (r *courseRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Course, error) {
	var courses []model.Course
	if len(ids) == 0 {
		return courses, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Where("course_id IN ?", ids).
		Order("created_at DESC").
		Find(&courses).Error
	return courses, err
}

func (r *courseRepo) Update(ctx context.Context, course *model.Course) error {
	return r.db.WithContext(ctx).
		Model(&model.Course{}).
		Where("course_id = ?", course.CourseID).
		Updates(map[string]interface{}{
			"name":        course.Name,
			"description": course.Description,
			"turn":        course.Turn,
			"grade":       course.Grade,
			"color":       course.Color,
			"is_archived": course.IsArchived,
			"updated_at":  gorm.Expr("NOW()"),
		}).Error
}

func (r *courseRepo) UpdateCode(ctx context.Context, courseID, code string) error {
	return r.db.WithContext(ctx).
		Model(&model.Course{}).
		Where("course_id = ?", courseID).
		Updates(map[string]interface{}{
			"code":       code,
			"updated_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *courseRepo) Delete(ctx context.Context, courseID string) error {
	return r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Delete(&model.Course{}).Error
}
