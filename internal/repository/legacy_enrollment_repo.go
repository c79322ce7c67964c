package repository

import (
	"context"

	"gorm.io/gorm"

	"classpad/internal/model"
)

// LegacyEnrollmentRepository 旧版 course_students 访问
// 仅在 membership.legacy_enrollment_fallback 开启时使用
type LegacyEnrollmentRepository interface {
	IsActive(ctx context.Context, courseID, studentID string) (bool, error)
	// Deactivate 将 active 记录置为 inactive，返回受影响行数
	Deactivate(ctx context.Context, courseID, studentID string) (int64, error)
	ListActiveStudentIDs(ctx context.Context, courseID string) ([]string, error)
	ListActiveCourseIDs(ctx context.Context, studentID string) ([]string, error)
}

type legacyEnrollmentRepo struct {
	db *gorm.DB
}

// NewLegacyEnrollmentRepo 创建 LegacyEnrollmentRepository 实例
func NewLegacyEnrollmentRepo(db *gorm.DB) LegacyEnrollmentRepository {
	return &legacyEnrollmentRepo{db: db}
}

func (r *legacyEnrollmentRepo) IsActive(ctx context.Context, courseID, studentID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.LegacyCourseStudent{}).
		Where("course_id = ? AND student_id = ? AND status = ?", courseID, studentID, model.EnrollmentActive).
		Count(&count).Error
	return count > 0, err
}

func (r *legacyEnrollmentRepo) ListActiveStudentIDs(ctx context.Context, courseID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.LegacyCourseStudent{}).
		Where("course_id = ? AND status = ?", courseID, model.EnrollmentActive).
		Pluck("student_id", &ids).Error
	return ids, err
}

func (r *legacyEnrollmentRepo) ListActiveCourseIDs(ctx context.Context, studentID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.LegacyCourseStudent{}).
		Where("student_id = ? AND status = ?", studentID, model.EnrollmentActive).
		Pluck("course_id", &ids).Error
	return ids, err
}

func (r *legacyEnrollmentRepo) Deactivate(ctx context.Context, courseID, studentID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.LegacyCourseStudent{}).
		Where("course_id = ? AND student_id = ? AND status = ?", courseID, studentID, model.EnrollmentActive).
		Update("status", model.EnrollmentInactive)
	return result.RowsAffected, result.Error
}
