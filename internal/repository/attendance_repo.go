package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"classpad/internal/model"
	"classpad/pkg/ident"
)

// AttendanceRepository 签到场次与签到记录数据访问接口
type AttendanceRepository interface {
	CreateSession(ctx context.Context, s *model.AttendanceSession) error
	GetSessionByID(ctx context.Context, id ident.ID) (*model.AttendanceSession, error)
	// GetOpenSessionByToken 查询 token 对应的、激活且未过期的场次
	GetOpenSessionByToken(ctx context.Context, token string, now time.Time) (*model.AttendanceSession, error)
	ListSessionsByCourse(ctx context.Context, courseID string) ([]model.AttendanceSession, error)
	DeactivateSession(ctx context.Context, sessionID string) error
	// ExpireSessions 关闭 end_time 已过的场次，返回关闭数量
	ExpireSessions(ctx context.Context, now time.Time) (int64, error)

	GetRecord(ctx context.Context, sessionID, studentID string) (*model.AttendanceRecord, error)
	// InsertRecord INSERT ... ON CONFLICT DO NOTHING；已存在返回 false
	InsertRecord(ctx context.Context, rec *model.AttendanceRecord) (bool, error)
	// UpsertRecord 手动签到覆盖写入
	UpsertRecord(ctx context.Context, rec *model.AttendanceRecord) error
	ListRecordsBySession(ctx context.Context, sessionID string) ([]model.AttendanceRecord, error)
	ListRecordsByCourse(ctx context.Context, courseID string) ([]model.AttendanceRecord, error)
	ListStudentRecordsInCourse(ctx context.Context, courseID, studentID string) ([]model.AttendanceRecord, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

// ────────────────────── 场次 ──────────────────────

func (r *attendanceRepo) CreateSession(ctx context.Context, s *model.AttendanceSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *attendanceRepo) GetSessionByID(ctx context.Context, id ident.ID) (*model.AttendanceSession, error) {
	var s model.AttendanceSession
	query, arg := id.Where("session_id")
	err := r.db.WithContext(ctx).
		Where(query, arg).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *attendanceRepo) GetOpenSessionByToken(ctx context.Context, token string, now time.Time) (*model.AttendanceSession, error) {
	var s model.AttendanceSession
	err := r.db.WithContext(ctx).
		Where("token = ? AND is_active = ? AND (end_time IS NULL OR end_time > ?)", token, true, now).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *attendanceRepo) ListSessionsByCourse(ctx context.Context, courseID string) ([]model.AttendanceSession, error) {
	var list []model.AttendanceSession
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("start_time DESC").
		Find(&list).Error
	return list, err
}

func (r *attendanceRepo) DeactivateSession(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).
		Model(&model.AttendanceSession{}).
		Where("session_id = ?", sessionID).
		Update("is_active", false).Error
}

func (r *attendanceRepo) ExpireSessions(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.AttendanceSession{}).
		Where("is_active = ? AND end_time IS NOT NULL AND end_time <= ?", true, now).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}

// ────────────────────── 记录 ──────────────────────

func (r *attendanceRepo) GetRecord(ctx context.Context, sessionID, studentID string) (*model.AttendanceRecord, error) {
	var rec model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND student_id = ?", sessionID, studentID).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *attendanceRepo) InsertRecord(ctx context.Context, rec *model.AttendanceRecord) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "student_id"}},
			DoNothing: true,
		}).
		Create(rec)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *attendanceRepo) UpsertRecord(ctx context.Context, rec *model.AttendanceRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "origin", "notes", "recorded_at", "recorded_by"}),
		}).
		Create(rec).Error
}

func (r *attendanceRepo) ListRecordsBySession(ctx context.Context, sessionID string) ([]model.AttendanceRecord, error) {
	var list []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("session_id = ?", sessionID).
		Order("recorded_at ASC").
		Find(&list).Error
	return list, err
}

func (r *attendanceRepo) ListRecordsByCourse(ctx context.Context, courseID string) ([]model.AttendanceRecord, error) {
	var list []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Joins("JOIN attendance_sessions s ON s.session_id = attendance_records.session_id").
		Where("s.course_id = ?", courseID).
		Find(&list).Error
	return list, err
}

func (r *attendanceRepo) ListStudentRecordsInCourse(ctx context.Context, courseID, studentID string) ([]model.AttendanceRecord, error) {
	var list []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Joins("JOIN attendance_sessions s ON s.session_id = attendance_records.session_id").
		Where("s.course_id = ? AND attendance_records.student_id = ?", courseID, studentID).
		Order("attendance_records.recorded_at DESC").
		Find(&list).Error
	return list, err
}
