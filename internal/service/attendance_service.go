package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"classpad/config"
	"classpad/internal/dto"
	"classpad/internal/model"
	"classpad/internal/repository"
	pkgerrors "classpad/pkg/errors"
	"classpad/pkg/geo"
	"classpad/pkg/ident"
	"classpad/pkg/metrics"
)

// ── 签到模块业务错误 ──

var (
	ErrNotEnrolled        = errors.New("未加入该课程，不能签到")
	ErrAlreadyRecorded    = errors.New("本场次已签到")
	ErrLocationRequired   = errors.New("本场次签到需要提供位置")
	ErrInvalidLocation    = errors.New("位置坐标不合法")
	ErrTokenExhausted     = errors.New("签到令牌生成失败，请重试")
	ErrGeofenceIncomplete = errors.New("围栏需要同时提供经度和纬度")
)

// LocationOutOfRangeError 签到位置超出围栏半径
type LocationOutOfRangeError struct {
	Distance float64
	Radius   float64
}

func (e *LocationOutOfRangeError) Error() string {
	return fmt.Sprintf("签到位置超出范围：距离 %.1f 米，允许 %.1f 米", e.Distance, e.Radius)
}

// AttendanceService 签到业务接口
type AttendanceService interface {
	CreateSession(ctx context.Context, userID, rawCourseID string, req *dto.CreateSessionRequest) (*dto.SessionResponse, error)
	ListSessions(ctx context.Context, userID, rawCourseID string) ([]dto.SessionResponse, error)
	Deactivate(ctx context.Context, userID, rawSessionID string) (*dto.SessionResponse, error)
	Scan(ctx context.Context, userID string, req *dto.ScanRequest) (*dto.RecordResponse, error)
	ManualRecord(ctx context.Context, userID, rawSessionID string, req *dto.ManualRecordRequest) (*dto.RecordResponse, error)
	ListRecords(ctx context.Context, userID, rawSessionID string) ([]dto.RecordResponse, error)
	MyAttendance(ctx context.Context, userID, rawCourseID string) ([]dto.RecordResponse, error)
}

type attendanceService struct {
	cfg     config.AttendanceConfig
	repo    *repository.Repository
	access  AccessService
	notify  Notifier
	metrics *metrics.Metrics
	clock   clock
	logger  *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(
	cfg config.AttendanceConfig,
	repo *repository.Repository,
	access AccessService,
	notify Notifier,
	m *metrics.Metrics,
	logger *zap.Logger,
) AttendanceService {
	if m == nil {
		m = metrics.NewNop()
	}
	return &attendanceService{cfg: cfg, repo: repo, access: access, notify: notify, metrics: m, logger: logger}
}

// ────────────────────── 场次管理 ──────────────────────

func (s *attendanceService) CreateSession(ctx context.Context, userID, rawCourseID string, req *dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	access, err := s.access.ResolveCourse(ctx, userID, rawCourseID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireTeacher(); err != nil {
		return nil, err
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return nil, ErrGeofenceIncomplete
	}

	now := s.clock.now()
	session := &model.AttendanceSession{
		CourseID:  access.Course.CourseID,
		Title:     strings.TrimSpace(req.Title),
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		RadiusM:   s.cfg.DefaultRadiusM,
		StartTime: now,
		IsActive:  true,
		CreatedBy: strPtr(userID),
	}
	if req.RadiusM != nil {
		session.RadiusM = *req.RadiusM
	}
	if req.RequireLocation != nil {
		session.RequireLocation = *req.RequireLocation
	} else {
		session.RequireLocation = session.HasGeofence()
	}
	if req.DurationMinutes != nil {
		end := now.Add(time.Duration(*req.DurationMinutes) * time.Minute)
		session.EndTime = &end
	}

	if err := s.createWithToken(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("签到场次已创建",
		zap.String("session_id", session.SessionID),
		zap.String("course_id", session.CourseID),
		zap.Bool("geofence", session.HasGeofence()),
	)

	s.notify.Notify(Event{
		Type:        model.NotifyAttendanceOpened,
		CourseID:    session.CourseID,
		ActorID:     userID,
		Body:        session.Title,
		RelatedType: "attendance_session",
		RelatedID:   session.SessionID,
	})
	return toSessionResponse(session, true), nil
}

// createWithToken 令牌唯一约束冲突时换一个令牌重试
func (s *attendanceService) createWithToken(ctx context.Context, session *model.AttendanceSession) error {
	retries := s.cfg.TokenMaxRetries
	if retries <= 0 {
		retries = 1
	}
	for i := 0; i < retries; i++ {
		token, err := randomToken(s.cfg.TokenBytes)
		if err != nil {
			return err
		}
		session.Token = token

		err = s.repo.Attendance.CreateSession(ctx, session)
		if err == nil {
			return nil
		}
		if !pkgerrors.IsUniqueViolation(err) {
			s.logger.Error("创建签到场次失败", zap.String("course_id", session.CourseID), zap.Error(err))
			return err
		}
		s.logger.Warn("签到令牌冲突，重试", zap.Int("attempt", i+1))
	}
	return ErrTokenExhausted
}

// ListSessions 令牌仅对教师返回
func (s *attendanceService) ListSessions(ctx context.Context, userID, rawCourseID string) ([]dto.SessionResponse, error) {
	access, err := s.access.ResolveCourse(ctx, userID, rawCourseID)
	if err != nil {
		return nil, err
	}

	list, err := s.repo.Attendance.ListSessionsByCourse(ctx, access.Course.CourseID)
	if err != nil {
		s.logger.Error("查询签到场次失败", zap.String("course_id", access.Course.CourseID), zap.Error(err))
		return nil, err
	}

	teacher := access.Membership.IsTeacher()
	result := make([]dto.SessionResponse, 0, len(list))
	for i := range list {
		result = append(result, *toSessionResponse(&list[i], teacher))
	}
	return result, nil
}

func (s *attendanceService) Deactivate(ctx context.Context, userID, rawSessionID string) (*dto.SessionResponse, error) {
	session, access, err := s.access.ResolveSession(ctx, userID, rawSessionID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireTeacher(); err != nil {
		return nil, err
	}

	if err := s.repo.Attendance.DeactivateSession(ctx, session.SessionID); err != nil {
		s.logger.Error("关闭签到场次失败", zap.String("session_id", session.SessionID), zap.Error(err))
		return nil, err
	}
	session.IsActive = false
	return toSessionResponse(session, true), nil
}

// ────────────────────── 扫码签到 ──────────────────────

// Scan 判定顺序：令牌 → 选课 → 重复 → 位置 → 写入
func (s *attendanceService) Scan(ctx context.Context, userID string, req *dto.ScanRequest) (*dto.RecordResponse, error) {
	rec, err := s.scan(ctx, userID, req)
	s.metrics.AttendanceScans.WithLabelValues(scanResult(err)).Inc()
	if err != nil {
		return nil, err
	}
	return toRecordResponse(rec), nil
}

func (s *attendanceService) scan(ctx context.Context, userID string, req *dto.ScanRequest) (*model.AttendanceRecord, error) {
	now := s.clock.now()

	session, err := s.repo.Attendance.GetOpenSessionByToken(ctx, strings.TrimSpace(req.Token), now)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询签到场次失败", zap.Error(err))
		return nil, err
	}

	course, err := s.repo.Course.GetByID(ctx, ident.ID{UUID: session.CourseID})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	membership, err := s.access.MembershipOf(ctx, userID, course)
	if err != nil {
		return nil, err
	}
	if !membership.IsStudent() {
		return nil, ErrNotEnrolled
	}

	if _, err := s.repo.Attendance.GetRecord(ctx, session.SessionID, userID); err == nil {
		return nil, ErrAlreadyRecorded
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	rec := &model.AttendanceRecord{
		SessionID:  session.SessionID,
		StudentID:  userID,
		Status:     model.AttendancePresent,
		Origin:     model.OriginQR,
		RecordedAt: now,
	}

	hasCoords := req.Latitude != nil && req.Longitude != nil
	if session.RequireLocation && !hasCoords {
		return nil, ErrLocationRequired
	}
	if hasCoords {
		p := geo.Point{Lat: *req.Latitude, Lon: *req.Longitude}
		if !p.Valid() {
			return nil, ErrInvalidLocation
		}
		rec.Latitude = req.Latitude
		rec.Longitude = req.Longitude

		if session.HasGeofence() {
			center := geo.Point{Lat: *session.Latitude, Lon: *session.Longitude}
			distance, inside := geo.Within(center, p, session.RadiusM)
			if !inside {
				return nil, &LocationOutOfRangeError{Distance: distance, Radius: session.RadiusM}
			}
			rec.DistanceM = &distance
		}
	}

	inserted, err := s.repo.Attendance.InsertRecord(ctx, rec)
	if err != nil {
		s.logger.Error("写入签到记录失败",
			zap.String("session_id", session.SessionID),
			zap.String("student_id", userID),
			zap.Error(err),
		)
		return nil, err
	}
	if !inserted {
		return nil, ErrAlreadyRecorded
	}
	return rec, nil
}

// ────────────────────── 教师补录 / 查询 ──────────────────────

// ManualRecord 教师补录或修改签到状态，不校验位置
func (s *attendanceService) ManualRecord(ctx context.Context, userID, rawSessionID string, req *dto.ManualRecordRequest) (*dto.RecordResponse, error) {
	session, access, err := s.access.ResolveSession(ctx, userID, rawSessionID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireTeacher(); err != nil {
		return nil, err
	}

	studentID, err := ident.MustUUID(req.StudentID)
	if err != nil {
		return nil, ErrInvalidIdentifier
	}
	membership, err := s.access.MembershipOf(ctx, studentID, access.Course)
	if err != nil {
		return nil, err
	}
	if !membership.IsStudent() {
		return nil, ErrStudentNotInCourse
	}

	rec := &model.AttendanceRecord{
		SessionID:  session.SessionID,
		StudentID:  studentID,
		Status:     req.Status,
		Origin:     model.OriginManual,
		Notes:      req.Notes,
		RecordedAt: s.clock.now(),
		RecordedBy: strPtr(userID),
	}
	if err := s.repo.Attendance.UpsertRecord(ctx, rec); err != nil {
		s.logger.Error("补录签到失败",
			zap.String("session_id", session.SessionID),
			zap.String("student_id", studentID),
			zap.Error(err),
		)
		return nil, err
	}

	saved, err := s.repo.Attendance.GetRecord(ctx, session.SessionID, studentID)
	if err != nil {
		return nil, err
	}
	return toRecordResponse(saved), nil
}

func (s *attendanceService) ListRecords(ctx context.Context, userID, rawSessionID string) ([]dto.RecordResponse, error) {
	session, access, err := s.access.ResolveSession(ctx, userID, rawSessionID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireTeacher(); err != nil {
		return nil, err
	}

	list, err := s.repo.Attendance.ListRecordsBySession(ctx, session.SessionID)
	if err != nil {
		s.logger.Error("查询签到记录失败", zap.String("session_id", session.SessionID), zap.Error(err))
		return nil, err
	}
	return toRecordResponses(list), nil
}

func (s *attendanceService) MyAttendance(ctx context.Context, userID, rawCourseID string) ([]dto.RecordResponse, error) {
	access, err := s.access.ResolveCourse(ctx, userID, rawCourseID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireStudent(); err != nil {
		return nil, err
	}

	list, err := s.repo.Attendance.ListStudentRecordsInCourse(ctx, access.Course.CourseID, userID)
	if err != nil {
		s.logger.Error("查询个人签到记录失败", zap.String("course_id", access.Course.CourseID), zap.Error(err))
		return nil, err
	}
	return toRecordResponses(list), nil
}

// ── 内部辅助方法 ──

func randomToken(n int) (string, error) {
	if n <= 0 {
		n = 24
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func scanResult(err error) string {
	var outOfRange *LocationOutOfRangeError
	switch {
	case err == nil:
		return "recorded"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrNotEnrolled):
		return "not_enrolled"
	case errors.Is(err, ErrAlreadyRecorded):
		return "already_recorded"
	case errors.Is(err, ErrLocationRequired), errors.Is(err, ErrInvalidLocation):
		return "location_required"
	case errors.As(err, &outOfRange):
		return "out_of_range"
	default:
		return "error"
	}
}

func toSessionResponse(s *model.AttendanceSession, withToken bool) *dto.SessionResponse {
	resp := &dto.SessionResponse{
		ID:              s.SessionID,
		LegacyID:        s.LegacyID,
		CourseID:        s.CourseID,
		Title:           s.Title,
		Latitude:        s.Latitude,
		Longitude:       s.Longitude,
		RadiusM:         s.RadiusM,
		RequireLocation: s.RequireLocation,
		StartTime:       dto.FormatTime(s.StartTime),
		EndTime:         dto.FormatTimePtr(s.EndTime),
		IsActive:        s.IsActive,
	}
	if withToken {
		resp.Token = s.Token
	}
	return resp
}

func toRecordResponse(r *model.AttendanceRecord) *dto.RecordResponse {
	return &dto.RecordResponse{
		ID:         r.RecordID,
		SessionID:  r.SessionID,
		StudentID:  r.StudentID,
		Student:    toUserBrief(r.Student),
		Status:     r.Status,
		Origin:     r.Origin,
		DistanceM:  r.DistanceM,
		Notes:      r.Notes,
		RecordedAt: dto.FormatTime(r.RecordedAt),
	}
}

func toRecordResponses(list []model.AttendanceRecord) []dto.RecordResponse {
	out := make([]dto.RecordResponse, 0, len(list))
	for i := range list {
		out = append(out, *toRecordResponse(&list[i]))
	}
	return out
}
