package dto

// ── 课程模块 DTO ──

// CreateCourseRequest 创建课程
type CreateCourseRequest struct {
	Name        string `json:"name"        binding:"required,notblank,max=200"`
	Description string `json:"description" binding:"omitempty,max=5000"`
	Turn        string `json:"turn"        binding:"omitempty,max=50"`
	Grade       string `json:"grade"       binding:"omitempty,max=50"`
	Color       string `json:"color"       binding:"omitempty,max=20"`
}

// UpdateCourseRequest 更新课程；字段为 nil 表示不修改
type UpdateCourseRequest struct {
	Name        *string `json:"name"        binding:"omitempty,notblank,max=200"`
	Description *string `json:"description" binding:"omitempty,max=5000"`
	Turn        *string `json:"turn"        binding:"omitempty,max=50"`
	Grade       *string `json:"grade"       binding:"omitempty,max=50"`
	Color       *string `json:"color"       binding:"omitempty,max=20"`
	IsArchived  *bool   `json:"is_archived"`
}

// JoinCourseRequest 通过课程码加入
type JoinCourseRequest struct {
	Code string `json:"code" binding:"required,min=4,max=16"`
}

// AddTeacherRequest 添加协同教师
type AddTeacherRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// CourseResponse 课程响应
type CourseResponse struct {
	ID          string     `json:"id"`
	LegacyID    *int64     `json:"legacy_id,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Code        string     `json:"code,omitempty"` // 仅教师可见
	Turn        string     `json:"turn"`
	Grade       string     `json:"grade"`
	Color       string     `json:"color"`
	IsArchived  bool       `json:"is_archived"`
	Owner       *UserBrief `json:"owner,omitempty"`
	Membership  string     `json:"membership"` // owner | teacher | student
	CreatedAt   string     `json:"created_at"`
}

// CourseTeacherResponse 课程教师
type CourseTeacherResponse struct {
	UserBrief
	Role string `json:"role"`
}

// CourseStudentResponse 课程学生
type CourseStudentResponse struct {
	UserBrief
	EnrolledAt string `json:"enrolled_at"`
}

// CourseMembersResponse 课程成员
type CourseMembersResponse struct {
	Teachers []CourseTeacherResponse `json:"teachers"`
	Students []CourseStudentResponse `json:"students"`
}

// CourseDetailResponse 课程详情：课程 + 教师 + 学生 + 单元 + 作业 + 最近消息
type CourseDetailResponse struct {
	CourseResponse
	Teachers       []CourseTeacherResponse `json:"teachers"`
	Students       []CourseStudentResponse `json:"students"`
	Units          []UnitResponse          `json:"units"`
	Assignments    []AssignmentResponse    `json:"assignments"`
	RecentMessages []MessageResponse       `json:"recent_messages"`
}
