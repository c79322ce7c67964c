package model

import "time"

// Timestamps 通用时间戳字段
type Timestamps struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// 用户角色
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// 登录凭证提供方
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// 课程教师角色
const (
	CourseRoleOwner   = "owner"
	CourseRoleTeacher = "teacher"
)

// 选课状态
const (
	EnrollmentActive   = "active"
	EnrollmentInactive = "inactive"
)

// 附件类型
const (
	AttachmentFile = "file"
	AttachmentLink = "link"
)
