package dto

// ── 消息与评论 DTO ──

// CreateMessageRequest 发布课程消息
type CreateMessageRequest struct {
	Title   string `json:"title"   binding:"omitempty,max=200"`
	Content string `json:"content" binding:"required,notblank,max=10000"`
}

// CreateCommentRequest 发表评论
type CreateCommentRequest struct {
	Content string `json:"content" binding:"required,notblank,max=5000"`
}

// MessageResponse 消息响应
type MessageResponse struct {
	ID        string     `json:"id"`
	CourseID  string     `json:"course_id"`
	Author    *UserBrief `json:"author,omitempty"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	CreatedAt string     `json:"created_at"`
}

// CommentResponse 评论响应
type CommentResponse struct {
	ID        string     `json:"id"`
	MessageID string     `json:"message_id"`
	Author    *UserBrief `json:"author,omitempty"`
	Content   string     `json:"content"`
	CreatedAt string     `json:"created_at"`
}
