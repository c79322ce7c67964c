package model

import "time"

// Message 课程消息表 — 对应 messages
type Message struct {
	MessageID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"message_id"`
	LegacyID  *int64 `gorm:"uniqueIndex"                                    json:"legacy_id,omitempty"`
	CourseID  string `gorm:"type:uuid;not null"                             json:"course_id"`
	AuthorID  string `gorm:"type:uuid;not null"                             json:"author_id"`
	Title     string `gorm:"type:varchar(200);not null;default:''"          json:"title"`
	Content   string `gorm:"type:text;not null"                             json:"content"`
	Timestamps

	// 关联
	Author *User `gorm:"foreignKey:AuthorID;references:UserID" json:"author,omitempty"`
}

// TableName 指定表名
func (Message) TableName() string { return "messages" }

// Comment 消息评论表 — 对应 comments
type Comment struct {
	CommentID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"comment_id"`
	MessageID string    `gorm:"type:uuid;not null"                             json:"message_id"`
	AuthorID  string    `gorm:"type:uuid;not null"                             json:"author_id"`
	Content   string    `gorm:"type:text;not null"                             json:"content"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`

	// 关联
	Author *User `gorm:"foreignKey:AuthorID;references:UserID" json:"author,omitempty"`
}

// TableName 指定表名
func (Comment) TableName() string { return "comments" }
