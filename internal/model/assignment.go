package model

import (
	"time"

	"gorm.io/datatypes"
)

// Assignment 作业表 — 对应 assignments
// UnitID 可为空：作业可以直接挂在课程下
type Assignment struct {
	AssignmentID        string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"assignment_id"`
	LegacyID            *int64         `gorm:"uniqueIndex"                                    json:"legacy_id,omitempty"`
	CourseID            string         `gorm:"type:uuid;not null"                             json:"course_id"`
	UnitID              *string        `gorm:"type:uuid"                                      json:"unit_id,omitempty"`
	Title               string         `gorm:"type:varchar(200);not null"                     json:"title"`
	Description         string         `gorm:"type:text;not null;default:''"                  json:"description"`
	Instructions        string         `gorm:"type:text;not null;default:''"                  json:"instructions"`
	DueAt               *time.Time     `json:"due_at,omitempty"`
	MaxPoints           float64        `gorm:"type:numeric(7,2);not null;default:100"         json:"max_points"`
	AllowLateSubmission bool           `gorm:"not null;default:false"                         json:"allow_late_submission"`
	LatePenaltyPercent  int            `gorm:"not null;default:0"                             json:"late_penalty_percent"`
	Rubric              datatypes.JSON `gorm:"type:jsonb"                                     json:"rubric,omitempty"`
	IsPublished         bool           `gorm:"not null;default:false"                         json:"is_published"`
	CreatedBy           *string        `gorm:"type:uuid"                                      json:"created_by,omitempty"`
	Timestamps
}

// TableName 指定表名
func (Assignment) TableName() string { return "assignments" }

// IsLateAt 在 t 时刻提交是否记为迟交
// 未设置截止时间永不迟交；允许迟交的作业不标记迟交
func (a *Assignment) IsLateAt(t time.Time) bool {
	return a.DueAt != nil && t.After(*a.DueAt) && !a.AllowLateSubmission
}

// AssignmentAttachment 作业附件表 — 对应 assignment_attachments
type AssignmentAttachment struct {
	AttachmentID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"attachment_id"`
	AssignmentID string    `gorm:"type:uuid;not null"                             json:"assignment_id"`
	Kind         string    `gorm:"type:varchar(10);not null"                      json:"kind"` // file | link
	Title        string    `gorm:"type:varchar(200);not null;default:''"          json:"title"`
	URL          string    `gorm:"column:url;type:varchar(1000);not null"         json:"url"`
	FileName     string    `gorm:"type:varchar(255);not null;default:''"          json:"file_name"`
	FileSize     int64     `gorm:"not null;default:0"                             json:"file_size"`
	MimeType     string    `gorm:"type:varchar(150);not null;default:''"          json:"mime_type"`
	StorageKey   string    `gorm:"type:varchar(500);not null;default:''"          json:"-"`
	OrderIndex   int       `gorm:"not null;default:0"                             json:"order_index"`
	CreatedBy    *string   `gorm:"type:uuid"                                      json:"created_by,omitempty"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (AssignmentAttachment) TableName() string { return "assignment_attachments" }
