package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"classpad/internal/model"
)

// EnrollmentRepository 选课数据访问接口（enrollments 为唯一权威表）
type EnrollmentRepository interface {
	// Activate 插入或重新激活选课记录；已是 active 时返回 false
	Activate(ctx context.Context, courseID, studentID string) (bool, error)
	Get(ctx context.Context, courseID, studentID string) (*model.Enrollment, error)
	IsActive(ctx context.Context, courseID, studentID string) (bool, error)
	Deactivate(ctx context.Context, courseID, studentID string) error
	ListActiveByCourse(ctx context.Context, courseID string) ([]model.Enrollment, error)
	ListActiveByStudent(ctx context.Context, studentID string) ([]model.Enrollment, error)
}

type enrollmentRepo struct {
	db *gorm.DB
}

// NewEnrollmentRepo 创建 EnrollmentRepository 实例
func NewEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

// Activate INSERT ... ON CONFLICT (course_id, student_id) DO UPDATE ... WHERE status <> 'active'
// 唯一约束保证并发加入不会产生重复行
func (r *enrollmentRepo) Activate(ctx context.Context, courseID, studentID string) (bool, error) {
	e := &model.Enrollment{
		CourseID:  courseID,
		StudentID: studentID,
		Status:    model.EnrollmentActive,
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "course_id"}, {Name: "student_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"status":     model.EnrollmentActive,
				"updated_at": gorm.Expr("NOW()"),
			}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Neq{Column: clause.Column{Table: "enrollments", Name: "status"}, Value: model.EnrollmentActive},
			}},
		}).
		Create(e)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *enrollmentRepo) Get(ctx context.Context, courseID, studentID string) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND student_id = ?", courseID, studentID).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *enrollmentRepo) IsActive(ctx context.Context, courseID, studentID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("course_id = ? AND student_id = ? AND status = ?", courseID, studentID, model.EnrollmentActive).
		Count(&count).Error
	return count > 0, err
}

func (r *enrollmentRepo) Deactivate(ctx context.Context, courseID, studentID string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("course_id = ? AND student_id = ? AND status = ?", courseID, studentID, model.EnrollmentActive).
		Updates(map[string]interface{}{
			"status":     model.EnrollmentInactive,
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *enrollmentRepo) ListActiveByCourse(ctx context.Context, courseID string) ([]model.Enrollment, error) {
	var list []model.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("course_id = ? AND status = ?", courseID, model.EnrollmentActive).
		Order("enrolled_at ASC").
		Find(&list).Error
	return list, err
}

func (r *enrollmentRepo) ListActiveByStudent(ctx context.Context, studentID string) ([]model.Enrollment, error) {
	var list []model.Enrollment
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND status = ?", studentID, model.EnrollmentActive).
		Find(&list).Error
	return list, err
}
