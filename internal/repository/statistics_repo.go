package repository

import (
	"context"

	"gorm.io/gorm"
)

// StudentStats 学生维度的原始统计
type StudentStats struct {
	Courses              int64
	PublishedAssignments int64
	Submitted            int64
	Graded               int64
	GradeSum             float64 // 已评分作业的 grade / max_points 之和
	AttendancePresent    int64
	AttendanceLate       int64
	AttendanceAbsent     int64
	AttendanceSessions   int64 // 所在课程的签到场次总数
}

// TeacherStats 教师维度的原始统计
type TeacherStats struct {
	CoursesOwned     int64
	CoursesTaught    int64
	DistinctStudents int64
	PendingGrading   int64
	SessionsCreated  int64
	Assignments      int64
}

// StatisticsRepository 个人统计聚合查询
// 所有查询基于迁移定义的表结构，不在运行期探测列是否存在
type StatisticsRepository interface {
	Student(ctx context.Context, studentID string) (*StudentStats, error)
	Teacher(ctx context.Context, teacherID string) (*TeacherStats, error)
}

type statisticsRepo struct {
	db *gorm.DB
}

// NewStatisticsRepo 创建 StatisticsRepository 实例
func NewStatisticsRepo(db *gorm.DB) StatisticsRepository {
	return &statisticsRepo{db: db}
}

const studentStatsSQL = `
WITH my_courses AS (
    SELECT course_id FROM enrollments WHERE student_id = @uid AND status = 'active'
)
SELECT
    (SELECT COUNT(*) FROM my_courses) AS courses,
    (SELECT COUNT(*) FROM assignments a
        WHERE a.course_id IN (SELECT course_id FROM my_courses) AND a.is_published) AS published_assignments,
    (SELECT COUNT(*) FROM submissions s
        JOIN assignments a ON a.assignment_id = s.assignment_id
        WHERE s.student_id = @uid AND s.status IN ('submitted', 'graded')
          AND a.course_id IN (SELECT course_id FROM my_courses)) AS submitted,
    (SELECT COUNT(*) FROM submissions s
        JOIN assignments a ON a.assignment_id = s.assignment_id
        WHERE s.student_id = @uid AND s.status = 'graded'
          AND a.course_id IN (SELECT course_id FROM my_courses)) AS graded,
    (SELECT COALESCE(SUM(s.grade / NULLIF(a.max_points, 0)), 0) FROM submissions s
        JOIN assignments a ON a.assignment_id = s.assignment_id
        WHERE s.student_id = @uid AND s.status = 'graded' AND s.grade IS NOT NULL
          AND a.course_id IN (SELECT course_id FROM my_courses)) AS grade_sum,
    (SELECT COUNT(*) FROM attendance_records r
        WHERE r.student_id = @uid AND r.status = 'present') AS attendance_present,
    (SELECT COUNT(*) FROM attendance_records r
        WHERE r.student_id = @uid AND r.status = 'late') AS attendance_late,
    (SELECT COUNT(*) FROM attendance_records r
        WHERE r.student_id = @uid AND r.status = 'absent') AS attendance_absent,
    (SELECT COUNT(*) FROM attendance_sessions se
        WHERE se.course_id IN (SELECT course_id FROM my_courses)) AS attendance_sessions
`

const teacherStatsSQL = `
WITH my_courses AS (
    SELECT course_id FROM course_teachers WHERE teacher_id = @uid
    UNION
    SELECT course_id FROM courses WHERE owner_id = @uid
)
SELECT
    (SELECT COUNT(*) FROM courses WHERE owner_id = @uid) AS courses_owned,
    (SELECT COUNT(*) FROM my_courses) AS courses_taught,
    (SELECT COUNT(DISTINCT e.student_id) FROM enrollments e
        WHERE e.status = 'active' AND e.course_id IN (SELECT course_id FROM my_courses)) AS distinct_students,
    (SELECT COUNT(*) FROM submissions s
        JOIN assignments a ON a.assignment_id = s.assignment_id
        WHERE s.status = 'submitted' AND a.course_id IN (SELECT course_id FROM my_courses)) AS pending_grading,
    (SELECT COUNT(*) FROM attendance_sessions WHERE created_by = @uid) AS sessions_created,
    (SELECT COUNT(*) FROM assignments a WHERE a.course_id IN (SELECT course_id FROM my_courses)) AS assignments
`

func (r *statisticsRepo) Student(ctx context.Context, studentID string) (*StudentStats, error) {
	var stats StudentStats
	err := r.db.WithContext(ctx).
		Raw(studentStatsSQL, map[string]interface{}{"uid": studentID}).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *statisticsRepo) Teacher(ctx context.Context, teacherID string) (*TeacherStats, error) {
	var stats TeacherStats
	err := r.db.WithContext(ctx).
		Raw(teacherStatsSQL, map[string]interface{}{"uid": teacherID}).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
