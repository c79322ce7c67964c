package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"classpad/internal/model"
)

// CourseTeacherRepository 课程教师数据访问接口
type CourseTeacherRepository interface {
	// Create 写入教师关系；已存在时返回 false
	Create(ctx context.Context, ct *model.CourseTeacher) (bool, error)
	Get(ctx context.Context, courseID, teacherID string) (*model.CourseTeacher, error)
	ListByCourse(ctx context.Context, courseID string) ([]model.CourseTeacher, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]model.CourseTeacher, error)
	Delete(ctx context.Context, courseID, teacherID string) error
}

type courseTeacherRepo struct {
	db *gorm.DB
}

// NewCourseTeacherRepo 创建 CourseTeacherRepository 实例
func NewCourseTeacherRepo(db *gorm.DB) CourseTeacherRepository {
	return &courseTeacherRepo{db: db}
}

func (r *courseTeacherRepo) Create(ctx context.Context, ct *model.CourseTeacher) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "course_id"}, {Name: "teacher_id"}},
			DoNothing: true,
		}).
		Create(ct)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *courseTeacherRepo) Get(ctx context.Context, courseID, teacherID string) (*model.CourseTeacher, error) {
	var ct model.CourseTeacher
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND teacher_id = ?", courseID, teacherID).
		First(&ct).Error
	if err != nil {
		return nil, err
	}
	return &ct, nil
}

func (r *courseTeacherRepo) ListByCourse(ctx context.Context, courseID string) ([]model.CourseTeacher, error) {
	var list []model.CourseTeacher
	err := r.db.WithContext(ctx).
		Preload("Teacher").
		Where("course_id = ?", courseID).
		Order("CASE role WHEN 'owner' THEN 0 ELSE 1 END, created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *courseTeacherRepo) ListByTeacher(ctx context.Context, teacherID string) ([]model.CourseTeacher, error) {
	var list []model.CourseTeacher
	err := r.db.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Find(&list).Error
	return list, err
}

func (r *courseTeacherRepo) Delete(ctx context.Context, courseID, teacherID string) error {
	result := r.db.WithContext(ctx).
		Where("course_id = ? AND teacher_id = ? AND role <> ?", courseID, teacherID, model.CourseRoleOwner).
		Delete(&model.CourseTeacher{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
