package model

import "time"

// Course 课程表 — 对应 courses
type Course struct {
	CourseID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"course_id"`
	LegacyID    *int64 `gorm:"uniqueIndex"                                    json:"legacy_id,omitempty"`
	Name        string `gorm:"type:varchar(200);not null"                     json:"name"`
	Description string `gorm:"type:text;not null;default:''"                  json:"description"`
	Code        string `gorm:"type:varchar(16);not null;uniqueIndex"          json:"code"`
	OwnerID     string `gorm:"type:uuid;not null"                             json:"owner_id"`
	Turn        string `gorm:"type:varchar(50);not null;default:''"           json:"turn"`
	Grade       string `gorm:"type:varchar(50);not null;default:''"           json:"grade"`
	Color       string `gorm:"type:varchar(20);not null;default:''"           json:"color"`
	IsArchived  bool   `gorm:"not null;default:false"                         json:"is_archived"`
	Timestamps

	// 关联
	Owner *User `gorm:"foreignKey:OwnerID;references:UserID" json:"owner,omitempty"`
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }

// CourseTeacher 课程教师表 — 对应 course_teachers
// 课程创建时为创建者写入一条 role=owner 的记录
type CourseTeacher struct {
	ID        string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CourseID  string    `gorm:"type:uuid;not null"                             json:"course_id"`
	TeacherID string    `gorm:"type:uuid;not null"                             json:"teacher_id"`
	Role      string    `gorm:"type:varchar(20);not null;default:'teacher'"    json:"role"` // owner | teacher
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`

	// 关联
	Teacher *User `gorm:"foreignKey:TeacherID;references:UserID" json:"teacher,omitempty"`
}

// TableName 指定表名
func (CourseTeacher) TableName() string { return "course_teachers" }

// Enrollment 选课表 — 对应 enrollments（唯一权威来源）
type Enrollment struct {
	ID         string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CourseID   string    `gorm:"type:uuid;not null"                             json:"course_id"`
	StudentID  string    `gorm:"type:uuid;not null"                             json:"student_id"`
	Status     string    `gorm:"type:varchar(20);not null;default:'active'"     json:"status"` // active | inactive
	EnrolledAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"enrolled_at"`
	UpdatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`

	// 关联
	Student *User   `gorm:"foreignKey:StudentID;references:UserID" json:"student,omitempty"`
	Course  *Course `gorm:"foreignKey:CourseID;references:CourseID" json:"course,omitempty"`
}

// TableName 指定表名
func (Enrollment) TableName() string { return "enrollments" }

// LegacyCourseStudent 旧版选课表 — 对应 course_students
// 只读：由 000002 迁移合并，开启 legacy_enrollment_fallback 时参与成员判定
type LegacyCourseStudent struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID  string    `gorm:"type:uuid;not null"   json:"course_id"`
	StudentID string    `gorm:"type:uuid;not null"   json:"student_id"`
	Status    string    `gorm:"type:varchar(20)"     json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (LegacyCourseStudent) TableName() string { return "course_students" }
