package model

import "time"

// User 用户表 — 对应 users
type User struct {
	UserID       string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	LegacyID     *int64     `gorm:"uniqueIndex"                                    json:"legacy_id,omitempty"`
	Email        string     `gorm:"type:varchar(255);not null;uniqueIndex"         json:"email"`
	Name         string     `gorm:"type:varchar(100);not null"                     json:"name"`
	PasswordHash *string    `gorm:"type:varchar(255)"                              json:"-"`
	Provider     string     `gorm:"type:varchar(20);not null;default:'local'"      json:"provider"`
	Role         string     `gorm:"type:varchar(20);not null;default:'student'"    json:"role"`
	IsActive     bool       `gorm:"not null;default:true"                          json:"is_active"`
	AvatarURL    *string    `gorm:"type:varchar(500)"                              json:"avatar_url,omitempty"`
	Location     *string    `gorm:"type:varchar(200)"                              json:"location,omitempty"`
	BirthDate    *time.Time `gorm:"type:date"                                      json:"birth_date,omitempty"`
	Gender       *string    `gorm:"type:varchar(20)"                               json:"gender,omitempty"`
	Phone        *string    `gorm:"type:varchar(30)"                               json:"phone,omitempty"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	Timestamps
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// CanCreateCourse 教师与管理员可以创建课程
func (u *User) CanCreateCourse() bool {
	return u.Role == RoleTeacher || u.Role == RoleAdmin
}
