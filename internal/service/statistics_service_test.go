package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"classpad/internal/model"
	"classpad/internal/repository"
)

func TestStatistics_Student(t *testing.T) {
	mocks, repo := newMockRepos()
	mocks.stats.student = repository.StudentStats{
		Courses:              2,
		PublishedAssignments: 5,
		Submitted:            3,
		Graded:               2,
		GradeSum:             1.7, // 0.9 + 0.8
		AttendancePresent:    6,
		AttendanceLate:       1,
		AttendanceAbsent:     2,
		AttendanceSessions:   9,
	}
	svc := NewStatisticsService(repo, zap.NewNop())

	resp, err := svc.Get(context.Background(), "u1", model.RoleStudent)
	require.NoError(t, err)
	require.NotNil(t, resp.Student)
	assert.Nil(t, resp.Teacher)

	st := resp.Student
	assert.Equal(t, int64(2), st.Pending)
	require.NotNil(t, st.AverageGradePercent)
	assert.Equal(t, 85.0, *st.AverageGradePercent)
	require.NotNil(t, st.AttendanceRate)
	assert.Equal(t, 77.78, *st.AttendanceRate)
}

func TestStatistics_StudentEmpty(t *testing.T) {
	_, repo := newMockRepos()
	svc := NewStatisticsService(repo, zap.NewNop())

	resp, err := svc.Get(context.Background(), "u1", model.RoleStudent)
	require.NoError(t, err)
	assert.Zero(t, resp.Student.Pending)
	assert.Nil(t, resp.Student.AverageGradePercent)
	assert.Nil(t, resp.Student.AttendanceRate)
}

func TestStatistics_Teacher(t *testing.T) {
	mocks, repo := newMockRepos()
	mocks.stats.teacher = repository.TeacherStats{CoursesOwned: 1, CoursesTaught: 3, PendingGrading: 4}
	svc := NewStatisticsService(repo, zap.NewNop())

	for _, role := range []string{model.RoleTeacher, model.RoleAdmin} {
		resp, err := svc.Get(context.Background(), "t1", role)
		require.NoError(t, err)
		assert.Nil(t, resp.Student)
		require.NotNil(t, resp.Teacher)
		assert.Equal(t, int64(3), resp.Teacher.CoursesTaught)
		assert.Equal(t, int64(4), resp.Teacher.PendingGrading)
	}
}
