package dto

import "time"

// TimeLayout 响应中的时间统一使用 UTC RFC3339
const TimeLayout = "2006-01-02T15:04:05Z"

// FormatTime 格式化时间
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// FormatTimePtr 格式化可空时间
func FormatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTime(*t)
	return &s
}

// ── 分页请求 ──

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页数量（含默认值）
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	return p.PageSize
}

// GetOffset 计算偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// ── 通用响应 ──

// FileResponse 文件/链接类附件
type FileResponse struct {
	ID         string `json:"id"`
	Kind       string `json:"kind,omitempty"`
	Title      string `json:"title,omitempty"`
	URL        string `json:"url"`
	FileName   string `json:"file_name,omitempty"`
	FileSize   int64  `json:"file_size,omitempty"`
	MimeType   string `json:"mime_type,omitempty"`
	OrderIndex int    `json:"order_index"`
	CreatedAt  string `json:"created_at"`
}

// UserBrief 用户简要信息（嵌入其他响应）
type UserBrief struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// LinkRequest 添加外部链接
type LinkRequest struct {
	Title string `json:"title" binding:"omitempty,max=200"`
	URL   string `json:"url"   binding:"required,url,max=1000"`
}

// ImportResult 批量导入结果
type ImportResult struct {
	Total   int           `json:"total"`
	Success int           `json:"success"`
	Failed  int           `json:"failed"`
	Errors  []ImportError `json:"errors,omitempty"`
}

// ImportError 导入错误详情
type ImportError struct {
	Row    int    `json:"row"`
	Email  string `json:"email,omitempty"`
	Reason string `json:"reason"`
}
