package model

import "time"

// 签到状态
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLate    = "late"
)

// 签到来源
const (
	OriginQR     = "qr"
	OriginManual = "manual"
)

// AttendanceSession 签到场次表 — 对应 attendance_sessions
type AttendanceSession struct {
	SessionID       string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"session_id"`
	LegacyID        *int64     `gorm:"uniqueIndex"                                    json:"legacy_id,omitempty"`
	CourseID        string     `gorm:"type:uuid;not null"                             json:"course_id"`
	Title           string     `gorm:"type:varchar(200);not null;default:''"          json:"title"`
	Token           string     `gorm:"type:varchar(128);not null;uniqueIndex"         json:"token"`
	Latitude        *float64   `json:"latitude,omitempty"`
	Longitude       *float64   `json:"longitude,omitempty"`
	RadiusM         float64    `gorm:"column:radius_m;not null;default:50"            json:"radius_m"`
	RequireLocation bool       `gorm:"not null;default:false"                         json:"require_location"`
	StartTime       time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	IsActive        bool       `gorm:"not null;default:true"                          json:"is_active"`
	CreatedBy       *string    `gorm:"type:uuid"                                      json:"created_by,omitempty"`
	CreatedAt       time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (AttendanceSession) TableName() string { return "attendance_sessions" }

// OpenAt 在 t 时刻是否仍可扫码：已激活且未过结束时间
func (s *AttendanceSession) OpenAt(t time.Time) bool {
	if !s.IsActive {
		return false
	}
	return s.EndTime == nil || t.Before(*s.EndTime)
}

// HasGeofence 是否配置了围栏中心
func (s *AttendanceSession) HasGeofence() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// AttendanceRecord 签到记录表 — 对应 attendance_records
// (session_id, student_id) 唯一
type AttendanceRecord struct {
	RecordID   string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"record_id"`
	SessionID  string    `gorm:"type:uuid;not null"                             json:"session_id"`
	StudentID  string    `gorm:"type:uuid;not null"                             json:"student_id"`
	Status     string    `gorm:"type:varchar(20);not null;default:'present'"    json:"status"` // present | absent | late
	Origin     string    `gorm:"type:varchar(10);not null;default:'qr'"         json:"origin"` // qr | manual
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
	DistanceM  *float64  `gorm:"column:distance_m"                              json:"distance_m,omitempty"`
	Notes      string    `gorm:"type:text;not null;default:''"                  json:"notes"`
	RecordedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"recorded_at"`
	RecordedBy *string   `gorm:"type:uuid"                                      json:"recorded_by,omitempty"`

	// 关联
	Student *User `gorm:"foreignKey:StudentID;references:UserID" json:"student,omitempty"`
}

// TableName 指定表名
func (AttendanceRecord) TableName() string { return "attendance_records" }
