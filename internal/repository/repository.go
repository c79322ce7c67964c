package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User             UserRepository
	Course           CourseRepository
	CourseTeacher    CourseTeacherRepository
	Enrollment       EnrollmentRepository
	LegacyEnrollment LegacyEnrollmentRepository
	Unit             UnitRepository
	UnitMaterial     UnitMaterialRepository
	Assignment       AssignmentRepository
	Attachment       AttachmentRepository
	Submission       SubmissionRepository
	Attendance       AttendanceRepository
	Message          MessageRepository
	Comment          CommentRepository
	Notification     NotificationRepository
	Statistics       StatisticsRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:               db,
		User:             NewUserRepo(db),
		Course:           NewCourseRepo(db),
		CourseTeacher:    NewCourseTeacherRepo(db),
		Enrollment:       NewEnrollmentRepo(db),
		LegacyEnrollment: NewLegacyEnrollmentRepo(db),
		Unit:             NewUnitRepo(db),
		UnitMaterial:     NewUnitMaterialRepo(db),
		Assignment:       NewAssignmentRepo(db),
		Attachment:       NewAttachmentRepo(db),
		Submission:       NewSubmissionRepo(db),
		Attendance:       NewAttendanceRepo(db),
		Message:          NewMessageRepo(db),
		Comment:          NewCommentRepo(db),
		Notification:     NewNotificationRepo(db),
		Statistics:       NewStatisticsRepo(db),
	}
}

// BeginTx 开启事务
// 单元测试中 Repository 由 mock 组装、db 为 nil，此时返回 nil 事务，调用方需判空
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到事务连接的 Repository；tx 为 nil 时返回自身
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// Ping 检查数据库连通性（健康检查使用）
func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
