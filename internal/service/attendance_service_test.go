package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"classpad/config"
	"classpad/internal/dto"
	"classpad/internal/model"
	"classpad/pkg/geo"
	"classpad/pkg/metrics"
)

type attendanceFixture struct {
	svc     AttendanceService
	mocks   *mockRepos
	notify  *recordingNotifier
	metrics *metrics.Metrics
	teacher *model.User
	student *model.User
	course  *model.Course
}

func setupTestAttendanceService() *attendanceFixture {
	mocks, repo := newMockRepos()
	notify := &recordingNotifier{}
	m := metrics.NewNop()
	access := NewAccessService(repo, false, zap.NewNop())
	cfg := config.AttendanceConfig{DefaultRadiusM: 100, TokenBytes: 16, TokenMaxRetries: 5}

	f := &attendanceFixture{
		svc:     NewAttendanceService(cfg, repo, access, notify, m, zap.NewNop()),
		mocks:   mocks,
		notify:  notify,
		metrics: m,
	}
	f.teacher = mocks.addUser("Teacher", model.RoleTeacher)
	f.student = mocks.addUser("Student", model.RoleStudent)
	f.course = mocks.addCourse(f.teacher, "物理")
	mocks.enroll(f.course, f.student)
	return f
}

func (f *attendanceFixture) open(t *testing.T, req *dto.CreateSessionRequest) *dto.SessionResponse {
	t.Helper()
	s, err := f.svc.CreateSession(context.Background(), f.teacher.UserID, f.course.CourseID, req)
	if err != nil {
		t.Fatalf("CreateSession 应成功，但返回错误: %v", err)
	}
	return s
}

func floatPtr(v float64) *float64 { return &v }

func (f *attendanceFixture) scans(result string) float64 {
	return testutil.ToFloat64(f.metrics.AttendanceScans.WithLabelValues(result))
}

// ── 场次 ──

func TestCreateSession_Defaults(t *testing.T) {
	f := setupTestAttendanceService()

	s := f.open(t, &dto.CreateSessionRequest{Title: "第一周", Latitude: floatPtr(39.9), Longitude: floatPtr(116.4)})
	if s.Token == "" || len(s.Token) != 32 {
		t.Errorf("期望 32 位十六进制令牌，实际=%q", s.Token)
	}
	if s.RadiusM != 100 {
		t.Errorf("期望默认半径 100，实际=%v", s.RadiusM)
	}
	if !s.RequireLocation {
		t.Error("设置围栏时默认应要求位置")
	}
	if s.EndTime != nil {
		t.Error("未设置时长时 end_time 应为空")
	}
	if len(f.notify.ofType(model.NotifyAttendanceOpened)) != 1 {
		t.Error("创建场次应通知课程成员")
	}
}

func TestCreateSession_GeofenceIncomplete(t *testing.T) {
	f := setupTestAttendanceService()

	_, err := f.svc.CreateSession(context.Background(), f.teacher.UserID, f.course.CourseID,
		&dto.CreateSessionRequest{Latitude: floatPtr(1)})
	if !errors.Is(err, ErrGeofenceIncomplete) {
		t.Errorf("期望 ErrGeofenceIncomplete，实际: %v", err)
	}
}

func TestCreateSession_TokenRetry(t *testing.T) {
	f := setupTestAttendanceService()
	f.mocks.attendance.tokenCollisions = 2
	f.open(t, &dto.CreateSessionRequest{})

	f.mocks.attendance.tokenCollisions = 10
	_, err := f.svc.CreateSession(context.Background(), f.teacher.UserID, f.course.CourseID, &dto.CreateSessionRequest{})
	if !errors.Is(err, ErrTokenExhausted) {
		t.Errorf("期望 ErrTokenExhausted，实际: %v", err)
	}
}

func TestListSessions_TokenHiddenFromStudents(t *testing.T) {
	f := setupTestAttendanceService()
	f.open(t, &dto.CreateSessionRequest{})

	list, err := f.svc.ListSessions(context.Background(), f.student.UserID, f.course.CourseID)
	if err != nil {
		t.Fatalf("ListSessions 应成功，但返回错误: %v", err)
	}
	if len(list) != 1 || list[0].Token != "" {
		t.Errorf("学生不应看到令牌，实际=%+v", list)
	}
}

// ── 扫码 ──

func TestScan_Twice(t *testing.T) {
	f := setupTestAttendanceService()
	s := f.open(t, &dto.CreateSessionRequest{})
	ctx := context.Background()

	rec, err := f.svc.Scan(ctx, f.student.UserID, &dto.ScanRequest{Token: s.Token})
	if err != nil {
		t.Fatalf("Scan 应成功，但返回错误: %v", err)
	}
	if rec.Status != model.AttendancePresent || rec.Origin != model.OriginQR {
		t.Errorf("期望 present/qr，实际 %s/%s", rec.Status, rec.Origin)
	}

	_, err = f.svc.Scan(ctx, f.student.UserID, &dto.ScanRequest{Token: s.Token})
	if !errors.Is(err, ErrAlreadyRecorded) {
		t.Errorf("重复签到期望 ErrAlreadyRecorded，实际: %v", err)
	}
	if f.scans("recorded") != 1 || f.scans("already_recorded") != 1 {
		t.Errorf("签到指标计数不符: recorded=%v already=%v", f.scans("recorded"), f.scans("already_recorded"))
	}
}

func TestScan_DeactivatedSession(t *testing.T) {
	f := setupTestAttendanceService()
	s := f.open(t, &dto.CreateSessionRequest{})

	if _, err := f.svc.Deactivate(context.Background(), f.teacher.UserID, s.ID); err != nil {
		t.Fatalf("Deactivate 应成功，但返回错误: %v", err)
	}
	_, err := f.svc.Scan(context.Background(), f.student.UserID, &dto.ScanRequest{Token: s.Token})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("关闭后签到期望 ErrSessionNotFound，实际: %v", err)
	}
}

func TestScan_ExpiredSession(t *testing.T) {
	f := setupTestAttendanceService()
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	f.svc.(*attendanceService).clock = func() time.Time { return start }
	minutes := 10
	s := f.open(t, &dto.CreateSessionRequest{DurationMinutes: &minutes})

	f.svc.(*attendanceService).clock = func() time.Time { return start.Add(11 * time.Minute) }
	_, err := f.svc.Scan(context.Background(), f.student.UserID, &dto.ScanRequest{Token: s.Token})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("过期后签到期望 ErrSessionNotFound，实际: %v", err)
	}
}

func TestScan_NotEnrolled(t *testing.T) {
	f := setupTestAttendanceService()
	s := f.open(t, &dto.CreateSessionRequest{})
	outsider := f.mocks.addUser("Outsider", model.RoleStudent)

	_, err := f.svc.Scan(context.Background(), outsider.UserID, &dto.ScanRequest{Token: s.Token})
	if !errors.Is(err, ErrNotEnrolled) {
		t.Errorf("期望 ErrNotEnrolled，实际: %v", err)
	}
	_, err = f.svc.Scan(context.Background(), f.teacher.UserID, &dto.ScanRequest{Token: s.Token})
	if !errors.Is(err, ErrNotEnrolled) {
		t.Errorf("教师签到期望 ErrNotEnrolled，实际: %v", err)
	}
}

func TestScan_LocationRequired(t *testing.T) {
	f := setupTestAttendanceService()
	s := f.open(t, &dto.CreateSessionRequest{Latitude: floatPtr(10), Longitude: floatPtr(10)})

	_, err := f.svc.Scan(context.Background(), f.student.UserID, &dto.ScanRequest{Token: s.Token})
	if !errors.Is(err, ErrLocationRequired) {
		t.Errorf("期望 ErrLocationRequired，实际: %v", err)
	}
}

func TestScan_GeofenceBoundary(t *testing.T) {
	center := geo.Point{Lat: 0, Lon: 0}
	p := geo.Point{Lat: 0, Lon: 0.001}
	exact := geo.Distance(center, p)

	t.Run("恰好在边界上", func(t *testing.T) {
		f := setupTestAttendanceService()
		s := f.open(t, &dto.CreateSessionRequest{Latitude: floatPtr(0), Longitude: floatPtr(0), RadiusM: floatPtr(exact)})

		rec, err := f.svc.Scan(context.Background(), f.student.UserID, &dto.ScanRequest{Token: s.Token, Latitude: &p.Lat, Longitude: &p.Lon})
		if err != nil {
			t.Fatalf("边界上签到应成功，但返回错误: %v", err)
		}
		if rec.DistanceM == nil || *rec.DistanceM != exact {
			t.Errorf("期望记录距离 %v，实际=%v", exact, rec.DistanceM)
		}
	})

	t.Run("超出范围", func(t *testing.T) {
		f := setupTestAttendanceService()
		s := f.open(t, &dto.CreateSessionRequest{Latitude: floatPtr(0), Longitude: floatPtr(0), RadiusM: floatPtr(exact - 1)})

		_, err := f.svc.Scan(context.Background(), f.student.UserID, &dto.ScanRequest{Token: s.Token, Latitude: &p.Lat, Longitude: &p.Lon})
		var outOfRange *LocationOutOfRangeError
		if !errors.As(err, &outOfRange) {
			t.Fatalf("期望 LocationOutOfRangeError，实际: %v", err)
		}
		if outOfRange.Radius != exact-1 {
			t.Errorf("错误中的半径不符，实际=%v", outOfRange.Radius)
		}
		if f.scans("out_of_range") != 1 {
			t.Error("超出范围应计入 out_of_range 指标")
		}
	})
}

func TestScan_InvalidCoordinates(t *testing.T) {
	f := setupTestAttendanceService()
	s := f.open(t, &dto.CreateSessionRequest{})

	lat, lon := 95.0, 10.0
	_, err := f.svc.Scan(context.Background(), f.student.UserID, &dto.ScanRequest{Token: s.Token, Latitude: &lat, Longitude: &lon})
	if !errors.Is(err, ErrInvalidLocation) {
		t.Errorf("期望 ErrInvalidLocation，实际: %v", err)
	}
}

// 无围栏时记录坐标但不计算距离
func TestScan_CoordinatesWithoutGeofence(t *testing.T) {
	f := setupTestAttendanceService()
	s := f.open(t, &dto.CreateSessionRequest{})

	lat, lon := 10.0, 20.0
	rec, err := f.svc.Scan(context.Background(), f.student.UserID, &dto.ScanRequest{Token: s.Token, Latitude: &lat, Longitude: &lon})
	if err != nil {
		t.Fatalf("Scan 应成功，但返回错误: %v", err)
	}
	if rec.DistanceM != nil {
		t.Error("无围栏时不应记录距离")
	}
}

// ── 补录 ──

func TestManualRecord(t *testing.T) {
	f := setupTestAttendanceService()
	s := f.open(t, &dto.CreateSessionRequest{})
	ctx := context.Background()

	if _, err := f.svc.Scan(ctx, f.student.UserID, &dto.ScanRequest{Token: s.Token}); err != nil {
		t.Fatalf("Scan 应成功，但返回错误: %v", err)
	}

	rec, err := f.svc.ManualRecord(ctx, f.teacher.UserID, s.ID, &dto.ManualRecordRequest{
		StudentID: f.student.UserID, Status: model.AttendanceLate, Notes: "迟到 5 分钟",
	})
	if err != nil {
		t.Fatalf("ManualRecord 应成功，但返回错误: %v", err)
	}
	if rec.Status != model.AttendanceLate || rec.Origin != model.OriginManual {
		t.Errorf("期望 late/manual，实际 %s/%s", rec.Status, rec.Origin)
	}

	outsider := f.mocks.addUser("Outsider", model.RoleStudent)
	_, err = f.svc.ManualRecord(ctx, f.teacher.UserID, s.ID, &dto.ManualRecordRequest{
		StudentID: outsider.UserID, Status: model.AttendanceAbsent,
	})
	if !errors.Is(err, ErrStudentNotInCourse) {
		t.Errorf("期望 ErrStudentNotInCourse，实际: %v", err)
	}

	_, err = f.svc.ManualRecord(ctx, f.student.UserID, s.ID, &dto.ManualRecordRequest{
		StudentID: f.student.UserID, Status: model.AttendancePresent,
	})
	if !errors.Is(err, ErrAccessDenied) {
		t.Errorf("学生补录期望 ErrAccessDenied，实际: %v", err)
	}
}

func TestMyAttendanceAndRecords(t *testing.T) {
	f := setupTestAttendanceService()
	s := f.open(t, &dto.CreateSessionRequest{})
	ctx := context.Background()
	_, _ = f.svc.Scan(ctx, f.student.UserID, &dto.ScanRequest{Token: s.Token})

	mine, err := f.svc.MyAttendance(ctx, f.student.UserID, f.course.CourseID)
	if err != nil {
		t.Fatalf("MyAttendance 应成功，但返回错误: %v", err)
	}
	if len(mine) != 1 {
		t.Errorf("期望 1 条个人记录，实际=%d", len(mine))
	}

	records, err := f.svc.ListRecords(ctx, f.teacher.UserID, s.ID)
	if err != nil {
		t.Fatalf("ListRecords 应成功，但返回错误: %v", err)
	}
	if len(records) != 1 || records[0].Student == nil {
		t.Errorf("期望 1 条带学生信息的记录，实际=%+v", records)
	}
}
