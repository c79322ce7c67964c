package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"classpad/internal/model"
	"classpad/pkg/ident"
)

// SubmissionRepository 作业提交数据访问接口
//
// 草稿保存与提交均为 INSERT ... ON CONFLICT (assignment_id, student_id) DO UPDATE ... WHERE status='draft'，
// 由唯一约束保证每个 (作业, 学生) 至多一行；已提交的行不会被覆盖，此时返回 false。
type SubmissionRepository interface {
	SaveDraft(ctx context.Context, s *model.Submission) (bool, error)
	Submit(ctx context.Context, s *model.Submission, withContent bool) (bool, error)
	GetByID(ctx context.Context, id ident.ID) (*model.Submission, error)
	GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*model.Submission, error)
	ListByAssignment(ctx context.Context, assignmentID string) ([]model.Submission, error)
	ListByCourse(ctx context.Context, courseID string) ([]model.Submission, error)
	// Grade 仅对 submitted/graded 状态生效，返回受影响行数
	Grade(ctx context.Context, submissionID string, grade float64, feedback, gradedBy string, at time.Time) (int64, error)

	AddFile(ctx context.Context, f *model.SubmissionFile) error
	GetFile(ctx context.Context, fileID string) (*model.SubmissionFile, error)
	DeleteFile(ctx context.Context, fileID string) error
}

type submissionRepo struct {
	db *gorm.DB
}

// NewSubmissionRepo 创建 SubmissionRepository 实例
func NewSubmissionRepo(db *gorm.DB) SubmissionRepository {
	return &submissionRepo{db: db}
}

var submissionConflictColumns = []clause.Column{{Name: "assignment_id"}, {Name: "student_id"}}

// onlyDraft 冲突更新仅在现有行仍为草稿时执行
var onlyDraft = clause.Where{Exprs: []clause.Expression{
	clause.Eq{Column: clause.Column{Table: "submissions", Name: "status"}, Value: model.SubmissionDraft},
}}

func (r *submissionRepo) SaveDraft(ctx context.Context, s *model.Submission) (bool, error) {
	s.Status = model.SubmissionDraft
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   submissionConflictColumns,
			DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
			Where:     onlyDraft,
		}).
		Create(s)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *submissionRepo) Submit(ctx context.Context, s *model.Submission, withContent bool) (bool, error) {
	s.Status = model.SubmissionSubmitted
	cols := []string{"status", "submitted_at", "submitted_late", "updated_at"}
	if withContent {
		cols = append(cols, "content")
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   submissionConflictColumns,
			DoUpdates: clause.AssignmentColumns(cols),
			Where:     onlyDraft,
		}).
		Create(s)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *submissionRepo) GetByID(ctx context.Context, id ident.ID) (*model.Submission, error) {
	var s model.Submission
	query, arg := id.Where("submission_id")
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Files", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where(query, arg).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *submissionRepo) GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID string) (*model.Submission, error) {
	var s model.Submission
	err := r.db.WithContext(ctx).
		Preload("Files", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *submissionRepo) ListByAssignment(ctx context.Context, assignmentID string) ([]model.Submission, error) {
	var list []model.Submission
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Files").
		Where("assignment_id = ?", assignmentID).
		Order("submitted_at ASC NULLS LAST").
		Find(&list).Error
	return list, err
}

func (r *submissionRepo) ListByCourse(ctx context.Context, courseID string) ([]model.Submission, error) {
	var list []model.Submission
	err := r.db.WithContext(ctx).
		Joins("JOIN assignments a ON a.assignment_id = submissions.assignment_id").
		Where("a.course_id = ?", courseID).
		Find(&list).Error
	return list, err
}

func (r *submissionRepo) Grade(ctx context.Context, submissionID string, grade float64, feedback, gradedBy string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Submission{}).
		Where("submission_id = ? AND status IN ?", submissionID,
			[]string{model.SubmissionSubmitted, model.SubmissionGraded}).
		Updates(map[string]interface{}{
			"status":     model.SubmissionGraded,
			"grade":      grade,
			"feedback":   feedback,
			"graded_by":  gradedBy,
			"graded_at":  at,
			"updated_at": at,
		})
	return result.RowsAffected, result.Error
}

func (r *submissionRepo) AddFile(ctx context.Context, f *model.SubmissionFile) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *submissionRepo) GetFile(ctx context.Context, fileID string) (*model.SubmissionFile, error) {
	var f model.SubmissionFile
	err := r.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		First(&f).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *submissionRepo) DeleteFile(ctx context.Context, fileID string) error {
	return r.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		Delete(&model.SubmissionFile{}).Error
}
