package dto

// ── 提交与评分 DTO ──

// SaveDraftRequest 保存草稿
type SaveDraftRequest struct {
	Content string `json:"content" binding:"max=100000"`
}

// SubmitRequest 提交作业；Content 为 nil 时沿用草稿内容
type SubmitRequest struct {
	Content *string `json:"content" binding:"omitempty,max=100000"`
}

// GradeRequest 评分
type GradeRequest struct {
	Grade    *float64 `json:"grade"    binding:"required,gte=0"`
	Feedback string   `json:"feedback" binding:"omitempty,max=10000"`
}

// SubmissionResponse 提交响应
type SubmissionResponse struct {
	ID            string         `json:"id"`
	AssignmentID  string         `json:"assignment_id"`
	Student       *UserBrief     `json:"student,omitempty"`
	StudentID     string         `json:"student_id"`
	Content       string         `json:"content"`
	Status        string         `json:"status"`
	SubmittedAt   *string        `json:"submitted_at,omitempty"`
	SubmittedLate bool           `json:"submitted_late"`
	Grade         *float64       `json:"grade,omitempty"`
	Feedback      string         `json:"feedback,omitempty"`
	GradedBy      *string        `json:"graded_by,omitempty"`
	GradedAt      *string        `json:"graded_at,omitempty"`
	Files         []FileResponse `json:"files"`
	UpdatedAt     string         `json:"updated_at"`
}
