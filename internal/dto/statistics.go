package dto

// StatisticsResponse 个人统计；按角色只填充其中一项
type StatisticsResponse struct {
	Role    string             `json:"role"`
	Student *StudentStatistics `json:"student,omitempty"`
	Teacher *TeacherStatistics `json:"teacher,omitempty"`
}

// StudentStatistics 学生统计
type StudentStatistics struct {
	Courses             int64    `json:"courses"`
	Assignments         int64    `json:"assignments"`
	Submitted           int64    `json:"submitted"`
	Graded              int64    `json:"graded"`
	Pending             int64    `json:"pending"`
	AverageGradePercent *float64 `json:"average_grade_percent,omitempty"`
	AttendancePresent   int64    `json:"attendance_present"`
	AttendanceLate      int64    `json:"attendance_late"`
	AttendanceAbsent    int64    `json:"attendance_absent"`
	AttendanceRate      *float64 `json:"attendance_rate,omitempty"`
}

// TeacherStatistics 教师统计
type TeacherStatistics struct {
	CoursesOwned     int64 `json:"courses_owned"`
	CoursesTaught    int64 `json:"courses_taught"`
	DistinctStudents int64 `json:"distinct_students"`
	Assignments      int64 `json:"assignments"`
	PendingGrading   int64 `json:"pending_grading"`
	SessionsCreated  int64 `json:"sessions_created"`
}
