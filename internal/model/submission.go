package model

import "time"

// 提交状态：draft → submitted → graded
const (
	SubmissionDraft     = "draft"
	SubmissionSubmitted = "submitted"
	SubmissionGraded    = "graded"
)

// Submission 作业提交表 — 对应 submissions
// (assignment_id, student_id) 唯一
type Submission struct {
	SubmissionID  string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"submission_id"`
	LegacyID      *int64     `gorm:"uniqueIndex"                                    json:"legacy_id,omitempty"`
	AssignmentID  string     `gorm:"type:uuid;not null"                             json:"assignment_id"`
	StudentID     string     `gorm:"type:uuid;not null"                             json:"student_id"`
	Content       string     `gorm:"type:text;not null;default:''"                  json:"content"`
	Status        string     `gorm:"type:varchar(20);not null;default:'draft'"      json:"status"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
	SubmittedLate bool       `gorm:"not null;default:false"                         json:"submitted_late"`
	Grade         *float64   `gorm:"type:numeric(7,2)"                              json:"grade,omitempty"`
	Feedback      string     `gorm:"type:text;not null;default:''"                  json:"feedback"`
	GradedBy      *string    `gorm:"type:uuid"                                      json:"graded_by,omitempty"`
	GradedAt      *time.Time `json:"graded_at,omitempty"`
	Timestamps

	// 关联
	Student *User            `gorm:"foreignKey:StudentID;references:UserID"        json:"student,omitempty"`
	Files   []SubmissionFile `gorm:"foreignKey:SubmissionID;references:SubmissionID" json:"files,omitempty"`
}

// TableName 指定表名
func (Submission) TableName() string { return "submissions" }

// IsEditable 仅草稿状态允许学生修改
func (s *Submission) IsEditable() bool {
	return s.Status == SubmissionDraft
}

// SubmissionFile 提交文件表 — 对应 submission_files
type SubmissionFile struct {
	FileID       string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"file_id"`
	SubmissionID string    `gorm:"type:uuid;not null"                             json:"submission_id"`
	FileName     string    `gorm:"type:varchar(255);not null"                     json:"file_name"`
	URL          string    `gorm:"column:url;type:varchar(1000);not null"         json:"url"`
	FileSize     int64     `gorm:"not null;default:0"                             json:"file_size"`
	MimeType     string    `gorm:"type:varchar(150);not null;default:''"          json:"mime_type"`
	StorageKey   string    `gorm:"type:varchar(500);not null;default:''"          json:"-"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (SubmissionFile) TableName() string { return "submission_files" }
