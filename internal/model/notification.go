package model

import "time"

// 通知类型
const (
	NotifyMessage             = "message"
	NotifyComment             = "comment"
	NotifyAssignmentPublished = "assignment_published"
	NotifyUnitPublished       = "unit_published"
	NotifySubmissionGraded    = "submission_graded"
	NotifyAttendanceOpened    = "attendance_opened"
	NotifyCourseJoined        = "course_joined"
)

// Notification 通知消息表 — 对应 notifications
type Notification struct {
	NotificationID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"notification_id"`
	UserID         string     `gorm:"type:uuid;not null"                             json:"user_id"`
	Type           string     `gorm:"type:varchar(50);not null"                      json:"type"`
	Title          string     `gorm:"type:varchar(200);not null"                     json:"title"`
	Body           string     `gorm:"type:text;not null;default:''"                  json:"body"`
	CourseID       *string    `gorm:"type:uuid"                                      json:"course_id,omitempty"`
	RelatedType    string     `gorm:"type:varchar(50);not null;default:''"           json:"related_type,omitempty"` // assignment | unit | message | submission | attendance_session
	RelatedID      *string    `gorm:"type:uuid"                                      json:"related_id,omitempty"`
	IsRead         bool       `gorm:"not null;default:false"                         json:"is_read"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }
