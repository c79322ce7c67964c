package dto

// ── 用户模块 DTO ──

// UserListRequest 用户列表查询参数（管理员）
type UserListRequest struct {
	PaginationRequest
	Role     string `form:"role"      binding:"omitempty,oneof=student teacher admin"`
	Keyword  string `form:"keyword"   binding:"omitempty,max=50"`
	IsActive *bool  `form:"is_active"`
}

// UpdateProfileRequest 更新个人资料；字段为 nil 表示不修改
type UpdateProfileRequest struct {
	Name      *string `json:"name"       binding:"omitempty,notblank,min=2,max=100"`
	AvatarURL *string `json:"avatar_url" binding:"omitempty,url,max=500"`
	Location  *string `json:"location"   binding:"omitempty,max=200"`
	BirthDate *string `json:"birth_date" binding:"omitempty,datetime=2006-01-02"`
	Gender    *string `json:"gender"     binding:"omitempty,max=20"`
	Phone     *string `json:"phone"      binding:"omitempty,max=30"`
}

// SetActiveRequest 启用/停用账号
type SetActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// UserResponse 用户信息响应（脱敏）
type UserResponse struct {
	ID          string  `json:"id"`
	LegacyID    *int64  `json:"legacy_id,omitempty"`
	Email       string  `json:"email"`
	Name        string  `json:"name"`
	Role        string  `json:"role"`
	Provider    string  `json:"provider"`
	IsActive    bool    `json:"is_active"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	Location    *string `json:"location,omitempty"`
	BirthDate   *string `json:"birth_date,omitempty"`
	Gender      *string `json:"gender,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	LastLoginAt *string `json:"last_login_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
}
