package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"classpad/config"
	"classpad/internal/dto"
	"classpad/internal/model"
	"classpad/internal/repository"
	pkgerrors "classpad/pkg/errors"
	"classpad/pkg/ident"
)

// ── 课程模块业务错误 ──

var (
	ErrCourseCodeExhausted = errors.New("课程码生成失败，请稍后重试")
	ErrInvalidCourseCode   = errors.New("课程码无效")
	ErrAlreadyEnrolled     = errors.New("已加入该课程")
	ErrAlreadyTeacher      = errors.New("该用户已是课程教师")
	ErrNotATeacher         = errors.New("该用户不是教师账号")
	ErrOnlyStudentsJoin    = errors.New("仅学生可以通过课程码加入课程")
	ErrCannotRemoveOwner   = errors.New("不能移除课程所有者")
	ErrTeacherNotInCourse  = errors.New("该教师不在课程中")
	ErrStudentNotInCourse  = errors.New("该学生不在课程中")
	ErrRosterUnreadable    = errors.New("无法读取名单文件")
)

// 去掉易混淆的 0/O、1/I/L
const courseCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const recentMessageCount = 5

// CourseService 课程业务接口
type CourseService interface {
	Create(ctx context.Context, userID, role string, req *dto.CreateCourseRequest) (*dto.CourseResponse, error)
	ListMine(ctx context.Context, userID string) ([]dto.CourseResponse, error)
	Get(ctx context.Context, userID, rawID string) (*dto.CourseDetailResponse, error)
	Update(ctx context.Context, userID, rawID string, req *dto.UpdateCourseRequest) (*dto.CourseResponse, error)
	Delete(ctx context.Context, userID, rawID string) error
	RegenerateCode(ctx context.Context, userID, rawID string) (*dto.CourseResponse, error)

	Join(ctx context.Context, userID, role string, req *dto.JoinCourseRequest) (*dto.CourseResponse, error)
	Leave(ctx context.Context, userID, rawID string) error
	Members(ctx context.Context, userID, rawID string) (*dto.CourseMembersResponse, error)
	AddTeacher(ctx context.Context, userID, rawID string, req *dto.AddTeacherRequest) (*dto.CourseTeacherResponse, error)
	RemoveTeacher(ctx context.Context, userID, rawID, rawTeacherID string) error
	RemoveStudent(ctx context.Context, userID, rawID, rawStudentID string) error
	ImportRoster(ctx context.Context, userID, rawID string, r io.Reader) (*dto.ImportResult, error)
}

type courseService struct {
	cfg            config.CourseConfig
	legacyFallback bool
	repo           *repository.Repository
	access         AccessService
	notify         Notifier
	logger         *zap.Logger
}

// NewCourseService 创建 CourseService 实例
// legacyFallback 与 AccessService 保持一致：开启时退课同时作用于旧表 course_students
func NewCourseService(
	cfg config.CourseConfig,
	legacyFallback bool,
	repo *repository.Repository,
	access AccessService,
	notify Notifier,
	logger *zap.Logger,
) CourseService {
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = 6
	}
	if cfg.CodeMaxAttempts <= 0 {
		cfg.CodeMaxAttempts = 10
	}
	return &courseService{cfg: cfg, legacyFallback: legacyFallback, repo: repo, access: access, notify: notify, logger: logger}
}

// ────────────────────── Create ──────────────────────

// Create 课程与所有者的 CourseTeacher 记录在同一事务中写入
// 课程码唯一性由唯一约束最终保证；预检占用与插入冲突共用 CodeMaxAttempts 次尝试
func (s *courseService) Create(ctx context.Context, userID, role string, req *dto.CreateCourseRequest) (*dto.CourseResponse, error) {
	if role != model.RoleTeacher && role != model.RoleAdmin {
		return nil, ErrAccessDenied
	}

	for attempt := 0; attempt < s.cfg.CodeMaxAttempts; attempt++ {
		code, free, err := s.candidateCode(ctx)
		if err != nil {
			return nil, err
		}
		if !free {
			continue
		}

		course := &model.Course{
			Name:        strings.TrimSpace(req.Name),
			Description: req.Description,
			Code:        code,
			OwnerID:     userID,
			Turn:        req.Turn,
			Grade:       req.Grade,
			Color:       req.Color,
		}

		err = s.createWithOwner(ctx, course)
		if err == nil {
			s.logger.Info("课程已创建", zap.String("course_id", course.CourseID), zap.String("owner", userID))
			return toCourseResponse(course, MembershipOwner), nil
		}
		if pkgerrors.IsUniqueViolation(err) {
			s.logger.Warn("课程码冲突，重新生成", zap.String("code", code), zap.Int("attempt", attempt+1))
			continue
		}
		s.logger.Error("创建课程失败", zap.Error(err))
		return nil, err
	}
	return nil, ErrCourseCodeExhausted
}

func (s *courseService) createWithOwner(ctx context.Context, course *model.Course) error {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	txRepo := s.repo.WithTx(tx)
	if err := txRepo.Course.Create(ctx, course); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return err
	}
	owner := &model.CourseTeacher{
		CourseID:  course.CourseID,
		TeacherID: course.OwnerID,
		Role:      model.CourseRoleOwner,
	}
	if _, err := txRepo.CourseTeacher.Create(ctx, owner); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return err
	}

	if tx != nil {
		return tx.Commit().Error
	}
	return nil
}

// candidateCode 生成一个随机课程码并预检是否已被占用，每次调用计为一次尝试
func (s *courseService) candidateCode(ctx context.Context) (string, bool, error) {
	code, err := randomCode(s.cfg.CodeLength)
	if err != nil {
		return "", false, err
	}
	exists, err := s.repo.Course.CodeExists(ctx, code)
	if err != nil {
		s.logger.Error("检查课程码失败", zap.Error(err))
		return "", false, err
	}
	return code, !exists, nil
}

func randomCode(n int) (string, error) {
	max := big.NewInt(int64(len(courseCodeAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("生成随机数失败: %w", err)
		}
		b[i] = courseCodeAlphabet[idx.Int64()]
	}
	return string(b), nil
}

// ────────────────────── Query ──────────────────────

func (s *courseService) ListMine(ctx context.Context, userID string) ([]dto.CourseResponse, error) {
	roles := make(map[string]Membership)
	ids := make([]string, 0)

	teaching, err := s.repo.CourseTeacher.ListByTeacher(ctx, userID)
	if err != nil {
		s.logger.Error("查询任教课程失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	for _, ct := range teaching {
		m := MembershipTeacher
		if ct.Role == model.CourseRoleOwner {
			m = MembershipOwner
		}
		if _, ok := roles[ct.CourseID]; !ok {
			ids = append(ids, ct.CourseID)
		}
		roles[ct.CourseID] = m
	}

	enrolled, err := s.access.StudentCourseIDs(ctx, userID)
	if err != nil {
		s.logger.Error("查询选课失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	for _, id := range enrolled {
		if _, ok := roles[id]; !ok {
			roles[id] = MembershipStudent
			ids = append(ids, id)
		}
	}

	if len(ids) == 0 {
		return []dto.CourseResponse{}, nil
	}
	courses, err := s.repo.Course.ListByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询课程列表失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.CourseResponse, 0, len(courses))
	for i := range courses {
		c := &courses[i]
		m := roles[c.CourseID]
		if c.OwnerID == userID {
			m = MembershipOwner
		}
		result = append(result, *toCourseResponse(c, m))
	}
	return result, nil
}

// Get 课程详情：课程 + 教师 + 学生 + 单元 + 作业 + 最近消息
func (s *courseService) Get(ctx context.Context, userID, rawID string) (*dto.CourseDetailResponse, error) {
	access, err := s.access.ResolveCourse(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}
	course := access.Course
	studentView := !access.Membership.IsTeacher()

	members, err := s.members(ctx, course)
	if err != nil {
		return nil, err
	}

	units, err := s.repo.Unit.ListByCourse(ctx, course.CourseID, studentView)
	if err != nil {
		s.logger.Error("查询单元失败", zap.String("course_id", course.CourseID), zap.Error(err))
		return nil, err
	}
	assignments, err := s.repo.Assignment.ListByCourse(ctx, course.CourseID, repository.AssignmentFilter{PublishedOnly: studentView})
	if err != nil {
		s.logger.Error("查询作业失败", zap.String("course_id", course.CourseID), zap.Error(err))
		return nil, err
	}
	messages, _, err := s.repo.Message.ListByCourse(ctx, course.CourseID, 0, recentMessageCount)
	if err != nil {
		s.logger.Error("查询消息失败", zap.String("course_id", course.CourseID), zap.Error(err))
		return nil, err
	}

	detail := &dto.CourseDetailResponse{
		CourseResponse: *toCourseResponse(course, access.Membership),
		Teachers:       members.Teachers,
		Students:       members.Students,
		Units:          make([]dto.UnitResponse, 0, len(units)),
		Assignments:    make([]dto.AssignmentResponse, 0, len(assignments)),
		RecentMessages: make([]dto.MessageResponse, 0, len(messages)),
	}
	for i := range units {
		detail.Units = append(detail.Units, *toUnitResponse(&units[i], nil))
	}
	for i := range assignments {
		detail.Assignments = append(detail.Assignments, *toAssignmentResponse(&assignments[i], nil))
	}
	for i := range messages {
		detail.RecentMessages = append(detail.RecentMessages, *toMessageResponse(&messages[i]))
	}
	return detail, nil
}

func (s *courseService) Members(ctx context.Context, userID, rawID string) (*dto.CourseMembersResponse, error) {
	access, err := s.access.ResolveCourse(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}
	return s.members(ctx, access.Course)
}

// ────────────────────── Update / Delete ──────────────────────

func (s *courseService) Update(ctx context.Context, userID, rawID string, req *dto.UpdateCourseRequest) (*dto.CourseResponse, error) {
	access, err := s.access.ResolveCourse(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireTeacher(); err != nil {
		return nil, err
	}

	course := access.Course
	if req.Name != nil {
		course.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Turn != nil {
		course.Turn = *req.Turn
	}
	if req.Grade != nil {
		course.Grade = *req.Grade
	}
	if req.Color != nil {
		course.Color = *req.Color
	}
	if req.IsArchived != nil {
		course.IsArchived = *req.IsArchived
	}

	if err := s.repo.Course.Update(ctx, course); err != nil {
		s.logger.Error("更新课程失败", zap.String("course_id", course.CourseID), zap.Error(err))
		return nil, err
	}
	return toCourseResponse(course, access.Membership), nil
}

func (s *courseService) Delete(ctx context.Context, userID, rawID string) error {
	access, err := s.access.ResolveCourse(ctx, userID, rawID)
	if err != nil {
		return err
	}
	if err := access.RequireOwner(); err != nil {
		return err
	}

	if err := s.repo.Course.Delete(ctx, access.Course.CourseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCourseNotFound
		}
		s.logger.Error("删除课程失败", zap.String("course_id", access.Course.CourseID), zap.Error(err))
		return err
	}
	s.logger.Info("课程已删除", zap.String("course_id", access.Course.CourseID), zap.String("operator", userID))
	return nil
}

func (s *courseService) RegenerateCode(ctx context.Context, userID, rawID string) (*dto.CourseResponse, error) {
	access, err := s.access.ResolveCourse(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireOwner(); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < s.cfg.CodeMaxAttempts; attempt++ {
		code, free, err := s.candidateCode(ctx)
		if err != nil {
			return nil, err
		}
		if !free {
			continue
		}
		err = s.repo.Course.UpdateCode(ctx, access.Course.CourseID, code)
		if err == nil {
			access.Course.Code = code
			return toCourseResponse(access.Course, access.Membership), nil
		}
		if !pkgerrors.IsUniqueViolation(err) {
			s.logger.Error("更新课程码失败", zap.String("course_id", access.Course.CourseID), zap.Error(err))
			return nil, err
		}
	}
	return nil, ErrCourseCodeExhausted
}

// ────────────────────── Membership ──────────────────────

func (s *courseService) Join(ctx context.Context, userID, role string, req *dto.JoinCourseRequest) (*dto.CourseResponse, error) {
	if role != model.RoleStudent {
		return nil, ErrOnlyStudentsJoin
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))
	course, err := s.repo.Course.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCourseCode
		}
		s.logger.Error("按课程码查询失败", zap.Error(err))
		return nil, err
	}
	if course.IsArchived {
		return nil, ErrInvalidCourseCode
	}

	changed, err := s.repo.Enrollment.Activate(ctx, course.CourseID, userID)
	if err != nil {
		s.logger.Error("加入课程失败", zap.String("course_id", course.CourseID), zap.Error(err))
		return nil, err
	}
	if !changed {
		return nil, ErrAlreadyEnrolled
	}

	s.notify.Notify(Event{
		Type:         model.NotifyCourseJoined,
		CourseID:     course.CourseID,
		ActorID:      userID,
		TeachersOnly: true,
		Body:         course.Name,
		RelatedType:  "course",
		RelatedID:    course.CourseID,
	})
	return toCourseResponse(course, MembershipStudent), nil
}

func (s *courseService) Leave(ctx context.Context, userID, rawID string) error {
	access, err := s.access.ResolveCourse(ctx, userID, rawID)
	if err != nil {
		return err
	}
	if err := access.RequireStudent(); err != nil {
		return err
	}

	if err := s.deactivateStudent(ctx, access.Course.CourseID, userID); err != nil {
		if !errors.Is(err, ErrStudentNotInCourse) {
			s.logger.Error("退出课程失败", zap.String("course_id", access.Course.CourseID), zap.Error(err))
		}
		return err
	}
	return nil
}

// deactivateStudent 停用学生在 enrollments（以及开启兼容时 course_students）中的选课记录
// 两处都没有 active 记录时返回 ErrStudentNotInCourse
func (s *courseService) deactivateStudent(ctx context.Context, courseID, studentID string) error {
	found := true
	if err := s.repo.Enrollment.Deactivate(ctx, courseID, studentID); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		found = false
	}
	if s.legacyFallback {
		n, err := s.repo.LegacyEnrollment.Deactivate(ctx, courseID, studentID)
		if err != nil {
			return err
		}
		if n > 0 {
			found = true
		}
	}
	if !found {
		return ErrStudentNotInCourse
	}
	return nil
}

func (s *courseService) AddTeacher(ctx context.Context, userID, rawID string, req *dto.AddTeacherRequest) (*dto.CourseTeacherResponse, error) {
	access, err := s.access.ResolveCourse(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireOwner(); err != nil {
		return nil, err
	}

	teacher, err := s.repo.User.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !teacher.CanCreateCourse() {
		return nil, ErrNotATeacher
	}

	ct := &model.CourseTeacher{
		CourseID:  access.Course.CourseID,
		TeacherID: teacher.UserID,
		Role:      model.CourseRoleTeacher,
	}
	created, err := s.repo.CourseTeacher.Create(ctx, ct)
	if err != nil {
		s.logger.Error("添加课程教师失败", zap.String("course_id", access.Course.CourseID), zap.Error(err))
		return nil, err
	}
	if !created {
		return nil, ErrAlreadyTeacher
	}

	return &dto.CourseTeacherResponse{UserBrief: *toUserBrief(teacher), Role: model.CourseRoleTeacher}, nil
}

func (s *courseService) RemoveTeacher(ctx context.Context, userID, rawID, rawTeacherID string) error {
	access, err := s.access.ResolveCourse(ctx, userID, rawID)
	if err != nil {
		return err
	}
	if err := access.RequireOwner(); err != nil {
		return err
	}
	teacherID, err := ident.MustUUID(rawTeacherID)
	if err != nil {
		return ErrInvalidIdentifier
	}
	if teacherID == access.Course.OwnerID {
		return ErrCannotRemoveOwner
	}

	if err := s.repo.CourseTeacher.Delete(ctx, access.Course.CourseID, teacherID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTeacherNotInCourse
		}
		s.logger.Error("移除课程教师失败", zap.String("course_id", access.Course.CourseID), zap.Error(err))
		return err
	}
	return nil
}

func (s *courseService) RemoveStudent(ctx context.Context, userID, rawID, rawStudentID string) error {
	access, err := s.access.ResolveCourse(ctx, userID, rawID)
	if err != nil {
		return err
	}
	if err := access.RequireTeacher(); err != nil {
		return err
	}
	studentID, err := ident.MustUUID(rawStudentID)
	if err != nil {
		return ErrInvalidIdentifier
	}

	if err := s.deactivateStudent(ctx, access.Course.CourseID, studentID); err != nil {
		if !errors.Is(err, ErrStudentNotInCourse) {
			s.logger.Error("移除学生失败", zap.String("course_id", access.Course.CourseID), zap.Error(err))
		}
		return err
	}
	return nil
}

// ═══════════════════════════════════════════════════════════
// ImportRoster — 从 Excel 名单批量选课
// ═══════════════════════════════════════════════════════════
//
// 读取第一个 Sheet 的第一列邮箱；首行为表头（含 email / 邮箱）时跳过。
// 每行独立处理，失败原因写入结果，不影响其他行。

func (s *courseService) ImportRoster(ctx context.Context, userID, rawID string, r io.Reader) (*dto.ImportResult, error) {
	access, err := s.access.ResolveCourse(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireTeacher(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, ErrRosterUnreadable
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrRosterUnreadable
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, ErrRosterUnreadable
	}

	result := &dto.ImportResult{Errors: []dto.ImportError{}}
	courseID := access.Course.CourseID

	for i, row := range rows {
		rowNum := i + 1
		if len(row) == 0 {
			continue
		}
		email := normalizeEmail(row[0])
		if email == "" {
			continue
		}
		if i == 0 && (strings.Contains(email, "email") || strings.Contains(email, "邮箱")) {
			continue
		}

		result.Total++
		fail := func(reason string) {
			result.Failed++
			result.Errors = append(result.Errors, dto.ImportError{Row: rowNum, Email: email, Reason: reason})
		}

		if !strings.Contains(email, "@") {
			fail("邮箱格式错误")
			continue
		}
		student, err := s.repo.User.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail("用户不存在")
				continue
			}
			s.logger.Error("导入名单查询用户失败", zap.String("email", email), zap.Error(err))
			fail("查询用户失败")
			continue
		}
		if student.Role != model.RoleStudent {
			fail("不是学生账号")
			continue
		}
		changed, err := s.repo.Enrollment.Activate(ctx, courseID, student.UserID)
		if err != nil {
			s.logger.Error("导入名单选课失败", zap.String("email", email), zap.Error(err))
			fail("写入选课失败")
			continue
		}
		if !changed {
			fail("已在课程中")
			continue
		}
		result.Success++
	}

	s.logger.Info("名单导入完成",
		zap.String("course_id", courseID),
		zap.Int("total", result.Total),
		zap.Int("success", result.Success),
		zap.Int("failed", result.Failed))
	return result, nil
}

// ── 内部辅助方法 ──

func (s *courseService) members(ctx context.Context, course *model.Course) (*dto.CourseMembersResponse, error) {
	teachers, err := s.repo.CourseTeacher.ListByCourse(ctx, course.CourseID)
	if err != nil {
		s.logger.Error("查询课程教师失败", zap.String("course_id", course.CourseID), zap.Error(err))
		return nil, err
	}
	enrollments, err := s.repo.Enrollment.ListActiveByCourse(ctx, course.CourseID)
	if err != nil {
		s.logger.Error("查询课程学生失败", zap.String("course_id", course.CourseID), zap.Error(err))
		return nil, err
	}

	out := &dto.CourseMembersResponse{
		Teachers: make([]dto.CourseTeacherResponse, 0, len(teachers)),
		Students: make([]dto.CourseStudentResponse, 0, len(enrollments)),
	}
	for i := range teachers {
		t := &teachers[i]
		brief := dto.UserBrief{ID: t.TeacherID}
		if t.Teacher != nil {
			brief = *toUserBrief(t.Teacher)
		}
		out.Teachers = append(out.Teachers, dto.CourseTeacherResponse{UserBrief: brief, Role: t.Role})
	}
	for i := range enrollments {
		e := &enrollments[i]
		brief := dto.UserBrief{ID: e.StudentID}
		if e.Student != nil {
			brief = *toUserBrief(e.Student)
		}
		out.Students = append(out.Students, dto.CourseStudentResponse{
			UserBrief:  brief,
			EnrolledAt: dto.FormatTime(e.EnrolledAt),
		})
	}
	return out, nil
}

func toCourseResponse(c *model.Course, m Membership) *dto.CourseResponse {
	resp := &dto.CourseResponse{
		ID:          c.CourseID,
		LegacyID:    c.LegacyID,
		Name:        c.Name,
		Description: c.Description,
		Turn:        c.Turn,
		Grade:       c.Grade,
		Color:       c.Color,
		IsArchived:  c.IsArchived,
		Owner:       toUserBrief(c.Owner),
		Membership:  m.String(),
		CreatedAt:   dto.FormatTime(c.CreatedAt),
	}
	// 课程码仅对教师可见
	if m.IsTeacher() {
		resp.Code = c.Code
	}
	return resp
}
