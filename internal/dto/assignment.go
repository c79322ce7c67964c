package dto

import "encoding/json"

// ── 作业模块 DTO ──

// CreateAssignmentRequest 创建作业
type CreateAssignmentRequest struct {
	Title               string          `json:"title"                 binding:"required,notblank,max=200"`
	Description         string          `json:"description"           binding:"omitempty,max=10000"`
	Instructions        string          `json:"instructions"          binding:"omitempty,max=10000"`
	UnitID              *string         `json:"unit_id"               binding:"omitempty"`
	DueAt               *string         `json:"due_at"                binding:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	MaxPoints           *float64        `json:"max_points"            binding:"omitempty,gt=0,lte=10000"`
	AllowLateSubmission bool            `json:"allow_late_submission"`
	LatePenaltyPercent  int             `json:"late_penalty_percent"  binding:"omitempty,min=0,max=100"`
	Rubric              json.RawMessage `json:"rubric"`
}

// UpdateAssignmentRequest 更新作业；ClearDueAt 为 true 时清空截止时间
type UpdateAssignmentRequest struct {
	Title               *string         `json:"title"                 binding:"omitempty,notblank,max=200"`
	Description         *string         `json:"description"           binding:"omitempty,max=10000"`
	Instructions        *string         `json:"instructions"          binding:"omitempty,max=10000"`
	UnitID              *string         `json:"unit_id"`
	DueAt               *string         `json:"due_at"                binding:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	ClearDueAt          bool            `json:"clear_due_at"`
	MaxPoints           *float64        `json:"max_points"            binding:"omitempty,gt=0,lte=10000"`
	AllowLateSubmission *bool           `json:"allow_late_submission"`
	LatePenaltyPercent  *int            `json:"late_penalty_percent"  binding:"omitempty,min=0,max=100"`
	Rubric              json.RawMessage `json:"rubric"`
}

// AssignmentListRequest 作业列表筛选
type AssignmentListRequest struct {
	UnitID string `form:"unit_id"`
}

// AssignmentResponse 作业响应
type AssignmentResponse struct {
	ID                  string          `json:"id"`
	LegacyID            *int64          `json:"legacy_id,omitempty"`
	CourseID            string          `json:"course_id"`
	UnitID              *string         `json:"unit_id,omitempty"`
	Title               string          `json:"title"`
	Description         string          `json:"description"`
	Instructions        string          `json:"instructions"`
	DueAt               *string         `json:"due_at,omitempty"`
	MaxPoints           float64         `json:"max_points"`
	AllowLateSubmission bool            `json:"allow_late_submission"`
	LatePenaltyPercent  int             `json:"late_penalty_percent"`
	Rubric              json.RawMessage `json:"rubric,omitempty"`
	IsPublished         bool            `json:"is_published"`
	Attachments         []FileResponse  `json:"attachments,omitempty"`
	CreatedAt           string          `json:"created_at"`
}
