package service

import (
	"context"
	"math"

	"go.uber.org/zap"

	"classpad/internal/dto"
	"classpad/internal/model"
	"classpad/internal/repository"
)

// StatisticsService 个人统计
type StatisticsService interface {
	Get(ctx context.Context, userID, role string) (*dto.StatisticsResponse, error)
}

type statisticsService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewStatisticsService 创建 StatisticsService 实例
func NewStatisticsService(repo *repository.Repository, logger *zap.Logger) StatisticsService {
	return &statisticsService{repo: repo, logger: logger}
}

// Get 学生返回学习统计，教师与管理员返回教学统计
func (s *statisticsService) Get(ctx context.Context, userID, role string) (*dto.StatisticsResponse, error) {
	if role == model.RoleStudent {
		st, err := s.repo.Statistics.Student(ctx, userID)
		if err != nil {
			s.logger.Error("查询学生统计失败", zap.String("user_id", userID), zap.Error(err))
			return nil, err
		}
		return &dto.StatisticsResponse{Role: role, Student: toStudentStatistics(st)}, nil
	}

	st, err := s.repo.Statistics.Teacher(ctx, userID)
	if err != nil {
		s.logger.Error("查询教师统计失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return &dto.StatisticsResponse{
		Role: role,
		Teacher: &dto.TeacherStatistics{
			CoursesOwned:     st.CoursesOwned,
			CoursesTaught:    st.CoursesTaught,
			DistinctStudents: st.DistinctStudents,
			Assignments:      st.Assignments,
			PendingGrading:   st.PendingGrading,
			SessionsCreated:  st.SessionsCreated,
		},
	}, nil
}

func toStudentStatistics(st *repository.StudentStats) *dto.StudentStatistics {
	out := &dto.StudentStatistics{
		Courses:           st.Courses,
		Assignments:       st.PublishedAssignments,
		Submitted:         st.Submitted,
		Graded:            st.Graded,
		AttendancePresent: st.AttendancePresent,
		AttendanceLate:    st.AttendanceLate,
		AttendanceAbsent:  st.AttendanceAbsent,
	}

	if pending := st.PublishedAssignments - st.Submitted; pending > 0 {
		out.Pending = pending
	}
	if st.Graded > 0 {
		avg := round2(st.GradeSum / float64(st.Graded) * 100)
		out.AverageGradePercent = &avg
	}
	if st.AttendanceSessions > 0 {
		rate := round2(float64(st.AttendancePresent+st.AttendanceLate) / float64(st.AttendanceSessions) * 100)
		out.AttendanceRate = &rate
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
