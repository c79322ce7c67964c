package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"classpad/internal/model"
	"classpad/internal/repository"
	"classpad/pkg/ident"
)

// ── 通用业务错误 ──

var (
	ErrInvalidIdentifier  = ident.ErrInvalidIdentifier
	ErrAccessDenied       = errors.New("无权访问该资源")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrCourseNotFound     = errors.New("课程不存在")
	ErrUnitNotFound       = errors.New("单元不存在")
	ErrAssignmentNotFound = errors.New("作业不存在")
	ErrSubmissionNotFound = errors.New("提交记录不存在")
	ErrSessionNotFound    = errors.New("签到场次不存在或已结束")
	ErrMessageNotFound    = errors.New("消息不存在")
)

// Membership 用户与课程的关系，数值越大权限越高
type Membership int

const (
	MembershipNone Membership = iota
	MembershipStudent
	MembershipTeacher
	MembershipOwner
)

func (m Membership) String() string {
	switch m {
	case MembershipOwner:
		return "owner"
	case MembershipTeacher:
		return "teacher"
	case MembershipStudent:
		return "student"
	default:
		return "none"
	}
}

// HasAccess 是否为课程成员
func (m Membership) HasAccess() bool { return m != MembershipNone }

// IsTeacher 课程所有者或协同教师
func (m Membership) IsTeacher() bool { return m >= MembershipTeacher }

// IsStudent 选课学生
func (m Membership) IsStudent() bool { return m == MembershipStudent }

// CourseAccess 已解析的课程及调用者身份
type CourseAccess struct {
	Course     *model.Course
	Membership Membership
}

// RequireTeacher 要求调用者为课程教师
func (a *CourseAccess) RequireTeacher() error {
	if !a.Membership.IsTeacher() {
		return ErrAccessDenied
	}
	return nil
}

// RequireOwner 要求调用者为课程所有者
func (a *CourseAccess) RequireOwner() error {
	if a.Membership != MembershipOwner {
		return ErrAccessDenied
	}
	return nil
}

// RequireStudent 要求调用者为选课学生
func (a *CourseAccess) RequireStudent() error {
	if !a.Membership.IsStudent() {
		return ErrAccessDenied
	}
	return nil
}

// AccessService 课程成员关系解析
//
// 所有 Resolve* 方法的判定顺序固定：
//  1. 标识符格式错误 → ErrInvalidIdentifier
//  2. 实体不存在 → 对应 NotFound
//  3. 非课程成员 → ErrAccessDenied
//
// 学生访问未发布的单元/作业按不存在处理。
type AccessService interface {
	MembershipOf(ctx context.Context, userID string, course *model.Course) (Membership, error)
	ResolveCourse(ctx context.Context, userID, rawID string) (*CourseAccess, error)
	ResolveUnit(ctx context.Context, userID, rawID string) (*model.Unit, *CourseAccess, error)
	ResolveAssignment(ctx context.Context, userID, rawID string) (*model.Assignment, *CourseAccess, error)
	ResolveSubmission(ctx context.Context, userID, rawID string) (*model.Submission, *model.Assignment, *CourseAccess, error)
	ResolveSession(ctx context.Context, userID, rawID string) (*model.AttendanceSession, *CourseAccess, error)
	ResolveMessage(ctx context.Context, userID, rawID string) (*model.Message, *CourseAccess, error)
	// CourseMemberIDs 课程成员集合：所有者 ∪ 教师 ∪ 选课学生；teachersOnly 时只含前两者
	CourseMemberIDs(ctx context.Context, course *model.Course, teachersOnly bool) ([]string, error)
	// StudentCourseIDs 学生当前选修的课程
	StudentCourseIDs(ctx context.Context, studentID string) ([]string, error)
}

type accessService struct {
	repo           *repository.Repository
	legacyFallback bool
	logger         *zap.Logger
}

// NewAccessService 创建 AccessService 实例
// legacyFallback 为 true 时旧表 course_students 中的 active 记录同样视为选课
func NewAccessService(repo *repository.Repository, legacyFallback bool, logger *zap.Logger) AccessService {
	return &accessService{repo: repo, legacyFallback: legacyFallback, logger: logger}
}

// ────────────────────── MembershipOf ──────────────────────

func (s *accessService) MembershipOf(ctx context.Context, userID string, course *model.Course) (Membership, error) {
	if course.OwnerID == userID {
		return MembershipOwner, nil
	}

	if _, err := s.repo.CourseTeacher.Get(ctx, course.CourseID, userID); err == nil {
		return MembershipTeacher, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询课程教师失败", zap.String("course_id", course.CourseID), zap.Error(err))
		return MembershipNone, err
	}

	active, err := s.repo.Enrollment.IsActive(ctx, course.CourseID, userID)
	if err != nil {
		s.logger.Error("查询选课记录失败", zap.String("course_id", course.CourseID), zap.Error(err))
		return MembershipNone, err
	}
	if active {
		return MembershipStudent, nil
	}

	if s.legacyFallback {
		active, err = s.repo.LegacyEnrollment.IsActive(ctx, course.CourseID, userID)
		if err != nil {
			s.logger.Error("查询旧版选课记录失败", zap.String("course_id", course.CourseID), zap.Error(err))
			return MembershipNone, err
		}
		if active {
			return MembershipStudent, nil
		}
	}

	return MembershipNone, nil
}

// ────────────────────── Resolve ──────────────────────

func (s *accessService) ResolveCourse(ctx context.Context, userID, rawID string) (*CourseAccess, error) {
	id, err := ident.Parse(rawID)
	if err != nil {
		return nil, ErrInvalidIdentifier
	}
	return s.resolveCourseByID(ctx, userID, id)
}

func (s *accessService) ResolveUnit(ctx context.Context, userID, rawID string) (*model.Unit, *CourseAccess, error) {
	id, err := ident.Parse(rawID)
	if err != nil {
		return nil, nil, ErrInvalidIdentifier
	}

	unit, err := s.repo.Unit.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUnitNotFound
		}
		s.logger.Error("查询单元失败", zap.String("id", rawID), zap.Error(err))
		return nil, nil, err
	}

	access, err := s.courseAccess(ctx, userID, unit.CourseID)
	if err != nil {
		return nil, nil, err
	}
	if access.Membership.IsStudent() && !unit.IsPublished {
		return nil, nil, ErrUnitNotFound
	}
	return unit, access, nil
}

func (s *accessService) ResolveAssignment(ctx context.Context, userID, rawID string) (*model.Assignment, *CourseAccess, error) {
	id, err := ident.Parse(rawID)
	if err != nil {
		return nil, nil, ErrInvalidIdentifier
	}

	a, err := s.repo.Assignment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrAssignmentNotFound
		}
		s.logger.Error("查询作业失败", zap.String("id", rawID), zap.Error(err))
		return nil, nil, err
	}

	access, err := s.courseAccess(ctx, userID, a.CourseID)
	if err != nil {
		return nil, nil, err
	}
	if access.Membership.IsStudent() && !a.IsPublished {
		return nil, nil, ErrAssignmentNotFound
	}
	return a, access, nil
}

// ResolveSubmission 教师或提交者本人可访问
func (s *accessService) ResolveSubmission(ctx context.Context, userID, rawID string) (*model.Submission, *model.Assignment, *CourseAccess, error) {
	id, err := ident.Parse(rawID)
	if err != nil {
		return nil, nil, nil, ErrInvalidIdentifier
	}

	sub, err := s.repo.Submission.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, ErrSubmissionNotFound
		}
		s.logger.Error("查询提交失败", zap.String("id", rawID), zap.Error(err))
		return nil, nil, nil, err
	}

	a, err := s.repo.Assignment.GetByID(ctx, ident.ID{UUID: sub.AssignmentID})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, ErrSubmissionNotFound
		}
		return nil, nil, nil, err
	}

	access, err := s.courseAccess(ctx, userID, a.CourseID)
	if err != nil {
		return nil, nil, nil, err
	}
	if !access.Membership.IsTeacher() && sub.StudentID != userID {
		return nil, nil, nil, ErrAccessDenied
	}
	return sub, a, access, nil
}

func (s *accessService) ResolveSession(ctx context.Context, userID, rawID string) (*model.AttendanceSession, *CourseAccess, error) {
	id, err := ident.Parse(rawID)
	if err != nil {
		return nil, nil, ErrInvalidIdentifier
	}

	session, err := s.repo.Attendance.GetSessionByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		s.logger.Error("查询签到场次失败", zap.String("id", rawID), zap.Error(err))
		return nil, nil, err
	}

	access, err := s.courseAccess(ctx, userID, session.CourseID)
	if err != nil {
		return nil, nil, err
	}
	return session, access, nil
}

func (s *accessService) ResolveMessage(ctx context.Context, userID, rawID string) (*model.Message, *CourseAccess, error) {
	id, err := ident.Parse(rawID)
	if err != nil {
		return nil, nil, ErrInvalidIdentifier
	}

	msg, err := s.repo.Message.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrMessageNotFound
		}
		s.logger.Error("查询消息失败", zap.String("id", rawID), zap.Error(err))
		return nil, nil, err
	}

	access, err := s.courseAccess(ctx, userID, msg.CourseID)
	if err != nil {
		return nil, nil, err
	}
	return msg, access, nil
}

// ────────────────────── 成员集合 ──────────────────────

func (s *accessService) CourseMemberIDs(ctx context.Context, course *model.Course, teachersOnly bool) ([]string, error) {
	seen := make(map[string]struct{})
	ids := make([]string, 0, 16)
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	add(course.OwnerID)

	teachers, err := s.repo.CourseTeacher.ListByCourse(ctx, course.CourseID)
	if err != nil {
		return nil, err
	}
	for _, t := range teachers {
		add(t.TeacherID)
	}
	if teachersOnly {
		return ids, nil
	}

	enrollments, err := s.repo.Enrollment.ListActiveByCourse(ctx, course.CourseID)
	if err != nil {
		return nil, err
	}
	for _, e := range enrollments {
		add(e.StudentID)
	}

	if s.legacyFallback {
		legacy, err := s.repo.LegacyEnrollment.ListActiveStudentIDs(ctx, course.CourseID)
		if err != nil {
			return nil, err
		}
		for _, id := range legacy {
			add(id)
		}
	}

	return ids, nil
}

func (s *accessService) StudentCourseIDs(ctx context.Context, studentID string) ([]string, error) {
	enrollments, err := s.repo.Enrollment.ListActiveByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(enrollments))
	seen := make(map[string]struct{}, len(enrollments))
	for _, e := range enrollments {
		seen[e.CourseID] = struct{}{}
		ids = append(ids, e.CourseID)
	}

	if s.legacyFallback {
		legacy, err := s.repo.LegacyEnrollment.ListActiveCourseIDs(ctx, studentID)
		if err != nil {
			return nil, err
		}
		for _, id := range legacy {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// ── 内部辅助方法 ──

func (s *accessService) courseAccess(ctx context.Context, userID, courseID string) (*CourseAccess, error) {
	return s.resolveCourseByID(ctx, userID, ident.ID{UUID: courseID})
}

func (s *accessService) resolveCourseByID(ctx context.Context, userID string, id ident.ID) (*CourseAccess, error) {
	course, err := s.repo.Course.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("id", id.String()), zap.Error(err))
		return nil, err
	}

	m, err := s.MembershipOf(ctx, userID, course)
	if err != nil {
		return nil, err
	}
	if !m.HasAccess() {
		return nil, ErrAccessDenied
	}
	return &CourseAccess{Course: course, Membership: m}, nil
}
