package dto

// ── 签到模块 DTO ──

// CreateSessionRequest 创建签到场次
// 提供 latitude/longitude 时启用地理围栏；DurationMinutes 为空表示手动结束
type CreateSessionRequest struct {
	Title           string   `json:"title"            binding:"omitempty,max=200"`
	Latitude        *float64 `json:"latitude"         binding:"omitempty,latitude"`
	Longitude       *float64 `json:"longitude"        binding:"omitempty,longitude"`
	RadiusM         *float64 `json:"radius_m"         binding:"omitempty,gt=0,lte=100000"`
	RequireLocation *bool    `json:"require_location"`
	DurationMinutes *int     `json:"duration_minutes" binding:"omitempty,min=1,max=1440"`
}

// ScanRequest 学生扫码签到
type ScanRequest struct {
	Token     string   `json:"token"     binding:"required,max=128"`
	Latitude  *float64 `json:"latitude"  binding:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" binding:"omitempty,longitude"`
}

// ManualRecordRequest 教师手动登记
type ManualRecordRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	Status    string `json:"status"     binding:"required,attendance_status"`
	Notes     string `json:"notes"      binding:"omitempty,max=1000"`
}

// SessionResponse 签到场次响应
type SessionResponse struct {
	ID              string   `json:"id"`
	LegacyID        *int64   `json:"legacy_id,omitempty"`
	CourseID        string   `json:"course_id"`
	Title           string   `json:"title"`
	Token           string   `json:"token,omitempty"` // 仅教师可见
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	RadiusM         float64  `json:"radius_m"`
	RequireLocation bool     `json:"require_location"`
	StartTime       string   `json:"start_time"`
	EndTime         *string  `json:"end_time,omitempty"`
	IsActive        bool     `json:"is_active"`
}

// RecordResponse 签到记录响应
type RecordResponse struct {
	ID         string     `json:"id"`
	SessionID  string     `json:"session_id"`
	StudentID  string     `json:"student_id"`
	Student    *UserBrief `json:"student,omitempty"`
	Status     string     `json:"status"`
	Origin     string     `json:"origin"`
	DistanceM  *float64   `json:"distance_m,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	RecordedAt string     `json:"recorded_at"`
}
