package service

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"classpad/internal/model"
	"classpad/internal/repository"
	"classpad/pkg/ident"
	"classpad/pkg/storage"
)

// errUnique 模拟 Postgres 唯一约束冲突
var errUnique = &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}

func matchID(id ident.ID, pk string, legacy *int64) bool {
	if id.IsLegacy() {
		return legacy != nil && *legacy == id.Legacy
	}
	return pk == id.UUID
}

// ── 测试仓储集合 ──

type mockRepos struct {
	users       *mockUserRepo
	courses     *mockCourseRepo
	teachers    *mockCourseTeacherRepo
	enrollments *mockEnrollmentRepo
	legacy      *mockLegacyEnrollmentRepo
	units       *mockUnitRepo
	materials   *mockUnitMaterialRepo
	assignments *mockAssignmentRepo
	attachments *mockAttachmentRepo
	submissions *mockSubmissionRepo
	attendance  *mockAttendanceRepo
	messages    *mockMessageRepo
	comments    *mockCommentRepo
	notes       *mockNotificationRepo
	stats       *mockStatisticsRepo
}

func newMockRepos() (*mockRepos, *repository.Repository) {
	m := &mockRepos{}
	m.users = newMockUserRepo()
	m.courses = newMockCourseRepo()
	m.teachers = &mockCourseTeacherRepo{users: m.users}
	m.enrollments = &mockEnrollmentRepo{users: m.users, rows: make(map[string]*model.Enrollment)}
	m.legacy = &mockLegacyEnrollmentRepo{active: make(map[string]bool)}
	m.units = &mockUnitRepo{units: make(map[string]*model.Unit)}
	m.materials = &mockUnitMaterialRepo{items: make(map[string]*model.UnitMaterial)}
	m.assignments = &mockAssignmentRepo{items: make(map[string]*model.Assignment)}
	m.attachments = &mockAttachmentRepo{items: make(map[string]*model.AssignmentAttachment)}
	m.submissions = &mockSubmissionRepo{
		users:       m.users,
		assignments: m.assignments,
		rows:        make(map[string]*model.Submission),
		files:       make(map[string]*model.SubmissionFile),
	}
	m.attendance = &mockAttendanceRepo{
		users:    m.users,
		sessions: make(map[string]*model.AttendanceSession),
		records:  make(map[string]*model.AttendanceRecord),
	}
	m.messages = &mockMessageRepo{users: m.users, items: make(map[string]*model.Message)}
	m.comments = &mockCommentRepo{users: m.users, items: make(map[string]*model.Comment)}
	m.notes = &mockNotificationRepo{}
	m.stats = &mockStatisticsRepo{}

	repo := &repository.Repository{
		User:             m.users,
		Course:           m.courses,
		CourseTeacher:    m.teachers,
		Enrollment:       m.enrollments,
		LegacyEnrollment: m.legacy,
		Unit:             m.units,
		UnitMaterial:     m.materials,
		Assignment:       m.assignments,
		Attachment:       m.attachments,
		Submission:       m.submissions,
		Attendance:       m.attendance,
		Message:          m.messages,
		Comment:          m.comments,
		Notification:     m.notes,
		Statistics:       m.stats,
	}
	return m, repo
}

// ── 测试数据构造 ──

func (m *mockRepos) addUser(name, role string) *model.User {
	u := &model.User{
		Email:    strings.ToLower(name) + "@test.com",
		Name:     name,
		Provider: model.ProviderLocal,
		Role:     role,
		IsActive: true,
	}
	_ = m.users.Create(context.Background(), u)
	return u
}

// addCourse 创建课程并写入所有者教师关系
func (m *mockRepos) addCourse(owner *model.User, name string) *model.Course {
	c := &model.Course{Name: name, Code: strings.ToUpper(uuid.NewString()[:6]), OwnerID: owner.UserID}
	_ = m.courses.Create(context.Background(), c)
	_, _ = m.teachers.Create(context.Background(), &model.CourseTeacher{
		CourseID: c.CourseID, TeacherID: owner.UserID, Role: model.CourseRoleOwner,
	})
	return c
}

func (m *mockRepos) enroll(c *model.Course, student *model.User) {
	_, _ = m.enrollments.Activate(context.Background(), c.CourseID, student.UserID)
}

func (m *mockRepos) addAssignment(c *model.Course, title string, published bool) *model.Assignment {
	a := &model.Assignment{CourseID: c.CourseID, Title: title, MaxPoints: 100, IsPublished: published}
	_ = m.assignments.Create(context.Background(), a)
	return a
}

func (m *mockRepos) addUnit(c *model.Course, title string, published bool) *model.Unit {
	u := &model.Unit{CourseID: c.CourseID, Title: title, IsPublished: published}
	_ = m.units.Create(context.Background(), u)
	return u
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return errUnique
		}
	}
	if user.UserID == "" {
		user.UserID = uuid.NewString()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id ident.ID) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if matchID(id, u.UserID, u.LegacyID) {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) get(id string) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListByIDs(_ context.Context, ids []string) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) UpdateFields(_ context.Context, userID string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range fields {
		switch k {
		case "is_active":
			u.IsActive = v.(bool)
		case "password_hash":
			h := v.(string)
			u.PasswordHash = &h
		case "last_login_at":
			t := v.(time.Time)
			u.LastLoginAt = &t
		case "avatar_url":
			a := v.(string)
			u.AvatarURL = &a
		}
	}
	return nil
}

func (m *mockUserRepo) List(_ context.Context, filter repository.UserFilter, offset, limit int) ([]model.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.User
	for _, u := range m.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Keyword != "" && !strings.Contains(u.Name, filter.Keyword) && !strings.Contains(u.Email, filter.Keyword) {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	total := int64(len(all))
	if offset > len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockUserRepo) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.users, userID)
	return nil
}

// ── Mock CourseRepository ──

type mockCourseRepo struct {
	mu      sync.Mutex
	courses map[string]*model.Course
	// codeTaken 非空时覆盖 CodeExists 的判定
	codeTaken func(code string) bool
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: make(map[string]*model.Course)}
}

func (m *mockCourseRepo) Create(_ context.Context, course *model.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.courses {
		if c.Code == course.Code {
			return errUnique
		}
	}
	if course.CourseID == "" {
		course.CourseID = uuid.NewString()
	}
	course.CreatedAt = time.Now()
	m.courses[course.CourseID] = course
	return nil
}

func (m *mockCourseRepo) GetByID(_ context.Context, id ident.ID) (*model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.courses {
		if matchID(id, c.CourseID, c.LegacyID) {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) GetByCode(_ context.Context, code string) (*model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.courses {
		if c.Code == code {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) CodeExists(_ context.Context, code string) (bool, error) {
	if m.codeTaken != nil {
		return m.codeTaken(code), nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.courses {
		if c.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockCourseRepo) ListByIDs(_ context.Context, ids []string) ([]model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Course
	for _, id := range ids {
		if c, ok := m.courses[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockCourseRepo) Update(_ context.Context, course *model.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[course.CourseID] = course
	return nil
}

func (m *mockCourseRepo) UpdateCode(_ context.Context, courseID, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.courses {
		if c.Code == code && c.CourseID != courseID {
			return errUnique
		}
	}
	c, ok := m.courses[courseID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.Code = code
	return nil
}

func (m *mockCourseRepo) Delete(_ context.Context, courseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[courseID]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.courses, courseID)
	return nil
}

// ── Mock CourseTeacherRepository ──

type mockCourseTeacherRepo struct {
	mu    sync.Mutex
	users *mockUserRepo
	rows  []model.CourseTeacher
}

func (m *mockCourseTeacherRepo) Create(_ context.Context, ct *model.CourseTeacher) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.CourseID == ct.CourseID && r.TeacherID == ct.TeacherID {
			return false, nil
		}
	}
	if ct.ID == "" {
		ct.ID = uuid.NewString()
	}
	if ct.Role == "" {
		ct.Role = model.CourseRoleTeacher
	}
	m.rows = append(m.rows, *ct)
	return true, nil
}

func (m *mockCourseTeacherRepo) Get(_ context.Context, courseID, teacherID string) (*model.CourseTeacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].CourseID == courseID && m.rows[i].TeacherID == teacherID {
			r := m.rows[i]
			return &r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseTeacherRepo) ListByCourse(_ context.Context, courseID string) ([]model.CourseTeacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.CourseTeacher
	for _, r := range m.rows {
		if r.CourseID == courseID {
			r.Teacher = m.users.get(r.TeacherID)
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockCourseTeacherRepo) ListByTeacher(_ context.Context, teacherID string) ([]model.CourseTeacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.CourseTeacher
	for _, r := range m.rows {
		if r.TeacherID == teacherID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockCourseTeacherRepo) Delete(_ context.Context, courseID, teacherID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.rows {
		if r.CourseID == courseID && r.TeacherID == teacherID && r.Role != model.CourseRoleOwner {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ── Mock EnrollmentRepository ──

type mockEnrollmentRepo struct {
	mu    sync.Mutex
	users *mockUserRepo
	rows  map[string]*model.Enrollment // key: course:student
}

func (m *mockEnrollmentRepo) Activate(_ context.Context, courseID, studentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := courseID + ":" + studentID
	if e, ok := m.rows[key]; ok {
		if e.Status == model.EnrollmentActive {
			return false, nil
		}
		e.Status = model.EnrollmentActive
		e.UpdatedAt = time.Now()
		return true, nil
	}
	m.rows[key] = &model.Enrollment{
		ID:         uuid.NewString(),
		CourseID:   courseID,
		StudentID:  studentID,
		Status:     model.EnrollmentActive,
		EnrolledAt: time.Now(),
	}
	return true, nil
}

func (m *mockEnrollmentRepo) Get(_ context.Context, courseID, studentID string) (*model.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.rows[courseID+":"+studentID]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEnrollmentRepo) IsActive(_ context.Context, courseID, studentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[courseID+":"+studentID]
	return ok && e.Status == model.EnrollmentActive, nil
}

func (m *mockEnrollmentRepo) Deactivate(_ context.Context, courseID, studentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[courseID+":"+studentID]
	if !ok || e.Status != model.EnrollmentActive {
		return gorm.ErrRecordNotFound
	}
	e.Status = model.EnrollmentInactive
	return nil
}

func (m *mockEnrollmentRepo) ListActiveByCourse(_ context.Context, courseID string) ([]model.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Enrollment
	for _, e := range m.rows {
		if e.CourseID == courseID && e.Status == model.EnrollmentActive {
			cp := *e
			cp.Student = m.users.get(e.StudentID)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

func (m *mockEnrollmentRepo) ListActiveByStudent(_ context.Context, studentID string) ([]model.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Enrollment
	for _, e := range m.rows {
		if e.StudentID == studentID && e.Status == model.EnrollmentActive {
			out = append(out, *e)
		}
	}
	return out, nil
}

// ── Mock LegacyEnrollmentRepository ──

type mockLegacyEnrollmentRepo struct {
	active map[string]bool // key: course:student
}

func (m *mockLegacyEnrollmentRepo) IsActive(_ context.Context, courseID, studentID string) (bool, error) {
	return m.active[courseID+":"+studentID], nil
}

func (m *mockLegacyEnrollmentRepo) Deactivate(_ context.Context, courseID, studentID string) (int64, error) {
	key := courseID + ":" + studentID
	if !m.active[key] {
		return 0, nil
	}
	m.active[key] = false
	return 1, nil
}

func (m *mockLegacyEnrollmentRepo) ListActiveStudentIDs(_ context.Context, courseID string) ([]string, error) {
	var out []string
	for k, ok := range m.active {
		parts := strings.SplitN(k, ":", 2)
		if ok && parts[0] == courseID {
			out = append(out, parts[1])
		}
	}
	return out, nil
}

func (m *mockLegacyEnrollmentRepo) ListActiveCourseIDs(_ context.Context, studentID string) ([]string, error) {
	var out []string
	for k, ok := range m.active {
		parts := strings.SplitN(k, ":", 2)
		if ok && parts[1] == studentID {
			out = append(out, parts[0])
		}
	}
	return out, nil
}

// ── Mock UnitRepository ──

type mockUnitRepo struct {
	units map[string]*model.Unit
}

func (m *mockUnitRepo) Create(_ context.Context, unit *model.Unit) error {
	if unit.UnitID == "" {
		unit.UnitID = uuid.NewString()
	}
	unit.CreatedAt = time.Now()
	m.units[unit.UnitID] = unit
	return nil
}

func (m *mockUnitRepo) GetByID(_ context.Context, id ident.ID) (*model.Unit, error) {
	for _, u := range m.units {
		if matchID(id, u.UnitID, u.LegacyID) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUnitRepo) ListByCourse(_ context.Context, courseID string, publishedOnly bool) ([]model.Unit, error) {
	var out []model.Unit
	for _, u := range m.units {
		if u.CourseID != courseID || (publishedOnly && !u.IsPublished) {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (m *mockUnitRepo) NextOrderIndex(_ context.Context, courseID string) (int, error) {
	next := 0
	for _, u := range m.units {
		if u.CourseID == courseID && u.OrderIndex >= next {
			next = u.OrderIndex + 1
		}
	}
	return next, nil
}

func (m *mockUnitRepo) Update(_ context.Context, unit *model.Unit) error {
	cp := *unit
	m.units[unit.UnitID] = &cp
	return nil
}

func (m *mockUnitRepo) SetPublished(_ context.Context, unitID string, published bool) error {
	u, ok := m.units[unitID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.IsPublished = published
	return nil
}

func (m *mockUnitRepo) Reorder(_ context.Context, courseID string, unitIDs []string) error {
	for _, id := range unitIDs {
		u, ok := m.units[id]
		if !ok || u.CourseID != courseID {
			return gorm.ErrRecordNotFound
		}
	}
	for i, id := range unitIDs {
		m.units[id].OrderIndex = i
	}
	return nil
}

func (m *mockUnitRepo) Delete(_ context.Context, unitID string) error {
	if _, ok := m.units[unitID]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.units, unitID)
	return nil
}

// ── Mock UnitMaterialRepository ──

type mockUnitMaterialRepo struct {
	items map[string]*model.UnitMaterial
}

func (m *mockUnitMaterialRepo) Create(_ context.Context, mat *model.UnitMaterial) error {
	if mat.MaterialID == "" {
		mat.MaterialID = uuid.NewString()
	}
	mat.CreatedAt = time.Now()
	m.items[mat.MaterialID] = mat
	return nil
}

func (m *mockUnitMaterialRepo) GetByID(_ context.Context, materialID string) (*model.UnitMaterial, error) {
	if mat, ok := m.items[materialID]; ok {
		return mat, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUnitMaterialRepo) ListByUnit(_ context.Context, unitID string) ([]model.UnitMaterial, error) {
	out := []model.UnitMaterial{}
	for _, mat := range m.items {
		if mat.UnitID == unitID {
			out = append(out, *mat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (m *mockUnitMaterialRepo) NextOrderIndex(_ context.Context, unitID string) (int, error) {
	n := 0
	for _, mat := range m.items {
		if mat.UnitID == unitID {
			n++
		}
	}
	return n, nil
}

func (m *mockUnitMaterialRepo) Delete(_ context.Context, materialID string) error {
	if _, ok := m.items[materialID]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.items, materialID)
	return nil
}

// ── Mock AssignmentRepository ──

type mockAssignmentRepo struct {
	mu    sync.Mutex
	items map[string]*model.Assignment
}

func (m *mockAssignmentRepo) Create(_ context.Context, a *model.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.AssignmentID == "" {
		a.AssignmentID = uuid.NewString()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.items[a.AssignmentID] = &cp
	return nil
}

func (m *mockAssignmentRepo) GetByID(_ context.Context, id ident.ID) (*model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.items {
		if matchID(id, a.AssignmentID, a.LegacyID) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAssignmentRepo) ListByCourse(_ context.Context, courseID string, filter repository.AssignmentFilter) ([]model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Assignment
	for _, a := range m.items {
		if a.CourseID != courseID || (filter.PublishedOnly && !a.IsPublished) {
			continue
		}
		if filter.UnitID != nil && (a.UnitID == nil || *a.UnitID != *filter.UnitID) {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (m *mockAssignmentRepo) Update(_ context.Context, a *model.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.items[a.AssignmentID] = &cp
	return nil
}

func (m *mockAssignmentRepo) SetPublished(_ context.Context, assignmentID string, published bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[assignmentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.IsPublished = published
	return nil
}

func (m *mockAssignmentRepo) Delete(_ context.Context, assignmentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[assignmentID]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.items, assignmentID)
	return nil
}

func (m *mockAssignmentRepo) courseOf(assignmentID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.items[assignmentID]; ok {
		return a.CourseID
	}
	return ""
}

// ── Mock AttachmentRepository ──

type mockAttachmentRepo struct {
	items map[string]*model.AssignmentAttachment
}

func (m *mockAttachmentRepo) Create(_ context.Context, a *model.AssignmentAttachment) error {
	if a.AttachmentID == "" {
		a.AttachmentID = uuid.NewString()
	}
	a.CreatedAt = time.Now()
	m.items[a.AttachmentID] = a
	return nil
}

func (m *mockAttachmentRepo) GetByID(_ context.Context, attachmentID string) (*model.AssignmentAttachment, error) {
	if a, ok := m.items[attachmentID]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttachmentRepo) ListByAssignment(_ context.Context, assignmentID string) ([]model.AssignmentAttachment, error) {
	out := []model.AssignmentAttachment{}
	for _, a := range m.items {
		if a.AssignmentID == assignmentID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (m *mockAttachmentRepo) NextOrderIndex(_ context.Context, assignmentID string) (int, error) {
	n := 0
	for _, a := range m.items {
		if a.AssignmentID == assignmentID {
			n++
		}
	}
	return n, nil
}

func (m *mockAttachmentRepo) Delete(_ context.Context, attachmentID string) error {
	if _, ok := m.items[attachmentID]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.items, attachmentID)
	return nil
}

// ── Mock SubmissionRepository ──
//
// 以 (assignment, student) 为键模拟唯一约束，写入路径加锁以模拟 ON CONFLICT 的原子性。

type mockSubmissionRepo struct {
	mu          sync.Mutex
	users       *mockUserRepo
	assignments *mockAssignmentRepo
	rows        map[string]*model.Submission // key: assignment:student
	files       map[string]*model.SubmissionFile
	inserts     int
}

func (m *mockSubmissionRepo) SaveDraft(_ context.Context, s *model.Submission) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := s.AssignmentID + ":" + s.StudentID
	now := time.Now()
	if cur, ok := m.rows[key]; ok {
		if cur.Status != model.SubmissionDraft {
			return false, nil
		}
		cur.Content = s.Content
		cur.UpdatedAt = now
		s.SubmissionID = cur.SubmissionID
		return true, nil
	}
	s.SubmissionID = uuid.NewString()
	s.Status = model.SubmissionDraft
	s.CreatedAt, s.UpdatedAt = now, now
	cp := *s
	m.rows[key] = &cp
	m.inserts++
	return true, nil
}

func (m *mockSubmissionRepo) Submit(_ context.Context, s *model.Submission, withContent bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := s.AssignmentID + ":" + s.StudentID
	now := time.Now()
	if cur, ok := m.rows[key]; ok {
		if cur.Status != model.SubmissionDraft {
			return false, nil
		}
		cur.Status = model.SubmissionSubmitted
		cur.SubmittedAt = s.SubmittedAt
		cur.SubmittedLate = s.SubmittedLate
		if withContent {
			cur.Content = s.Content
		}
		cur.UpdatedAt = now
		return true, nil
	}
	s.SubmissionID = uuid.NewString()
	s.Status = model.SubmissionSubmitted
	s.CreatedAt, s.UpdatedAt = now, now
	cp := *s
	m.rows[key] = &cp
	m.inserts++
	return true, nil
}

func (m *mockSubmissionRepo) withRelations(s *model.Submission) *model.Submission {
	cp := *s
	cp.Student = m.users.get(s.StudentID)
	cp.Files = nil
	for _, f := range m.files {
		if f.SubmissionID == s.SubmissionID {
			cp.Files = append(cp.Files, *f)
		}
	}
	return &cp
}

func (m *mockSubmissionRepo) GetByID(_ context.Context, id ident.ID) (*model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.rows {
		if matchID(id, s.SubmissionID, s.LegacyID) {
			return m.withRelations(s), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubmissionRepo) GetByAssignmentAndStudent(_ context.Context, assignmentID, studentID string) (*model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.rows[assignmentID+":"+studentID]; ok {
		return m.withRelations(s), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubmissionRepo) ListByAssignment(_ context.Context, assignmentID string) ([]model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Submission
	for _, s := range m.rows {
		if s.AssignmentID == assignmentID {
			out = append(out, *m.withRelations(s))
		}
	}
	return out, nil
}

func (m *mockSubmissionRepo) ListByCourse(_ context.Context, courseID string) ([]model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Submission
	for _, s := range m.rows {
		if m.assignments.courseOf(s.AssignmentID) == courseID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockSubmissionRepo) Grade(_ context.Context, submissionID string, grade float64, feedback, gradedBy string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.rows {
		if s.SubmissionID != submissionID {
			continue
		}
		if s.Status != model.SubmissionSubmitted && s.Status != model.SubmissionGraded {
			return 0, nil
		}
		g := grade
		s.Grade = &g
		s.Feedback = feedback
		s.GradedBy = &gradedBy
		s.GradedAt = &at
		s.Status = model.SubmissionGraded
		return 1, nil
	}
	return 0, nil
}

func (m *mockSubmissionRepo) AddFile(_ context.Context, f *model.SubmissionFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.FileID == "" {
		f.FileID = uuid.NewString()
	}
	f.CreatedAt = time.Now()
	m.files[f.FileID] = f
	return nil
}

func (m *mockSubmissionRepo) GetFile(_ context.Context, fileID string) (*model.SubmissionFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.files[fileID]; ok {
		return f, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubmissionRepo) DeleteFile(_ context.Context, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, fileID)
	return nil
}

func (m *mockSubmissionRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	mu       sync.Mutex
	users    *mockUserRepo
	sessions map[string]*model.AttendanceSession
	records  map[string]*model.AttendanceRecord // key: session:student
	// tokenCollisions 前 N 次 CreateSession 返回唯一约束冲突
	tokenCollisions int
}

func (m *mockAttendanceRepo) CreateSession(_ context.Context, s *model.AttendanceSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokenCollisions > 0 {
		m.tokenCollisions--
		return errUnique
	}
	for _, cur := range m.sessions {
		if cur.Token == s.Token {
			return errUnique
		}
	}
	if s.SessionID == "" {
		s.SessionID = uuid.NewString()
	}
	s.CreatedAt = time.Now()
	cp := *s
	m.sessions[s.SessionID] = &cp
	return nil
}

func (m *mockAttendanceRepo) GetSessionByID(_ context.Context, id ident.ID) (*model.AttendanceSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if matchID(id, s.SessionID, s.LegacyID) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) GetOpenSessionByToken(_ context.Context, token string, now time.Time) (*model.AttendanceSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.Token == token && s.OpenAt(now) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) ListSessionsByCourse(_ context.Context, courseID string) ([]model.AttendanceSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AttendanceSession
	for _, s := range m.sessions {
		if s.CourseID == courseID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *mockAttendanceRepo) DeactivateSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		s.IsActive = false
	}
	return nil
}

func (m *mockAttendanceRepo) ExpireSessions(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.sessions {
		if s.IsActive && s.EndTime != nil && !s.EndTime.After(now) {
			s.IsActive = false
			n++
		}
	}
	return n, nil
}

func (m *mockAttendanceRepo) GetRecord(_ context.Context, sessionID, studentID string) (*model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[sessionID+":"+studentID]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) InsertRecord(_ context.Context, rec *model.AttendanceRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := rec.SessionID + ":" + rec.StudentID
	if _, ok := m.records[key]; ok {
		return false, nil
	}
	rec.RecordID = uuid.NewString()
	cp := *rec
	m.records[key] = &cp
	return true, nil
}

func (m *mockAttendanceRepo) UpsertRecord(_ context.Context, rec *model.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := rec.SessionID + ":" + rec.StudentID
	if cur, ok := m.records[key]; ok {
		cur.Status = rec.Status
		cur.Origin = rec.Origin
		cur.Notes = rec.Notes
		cur.RecordedAt = rec.RecordedAt
		cur.RecordedBy = rec.RecordedBy
		return nil
	}
	rec.RecordID = uuid.NewString()
	cp := *rec
	m.records[key] = &cp
	return nil
}

func (m *mockAttendanceRepo) ListRecordsBySession(_ context.Context, sessionID string) ([]model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AttendanceRecord
	for _, r := range m.records {
		if r.SessionID == sessionID {
			cp := *r
			cp.Student = m.users.get(r.StudentID)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (m *mockAttendanceRepo) ListRecordsByCourse(_ context.Context, courseID string) ([]model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AttendanceRecord
	for _, r := range m.records {
		if s, ok := m.sessions[r.SessionID]; ok && s.CourseID == courseID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockAttendanceRepo) ListStudentRecordsInCourse(_ context.Context, courseID, studentID string) ([]model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AttendanceRecord
	for _, r := range m.records {
		if s, ok := m.sessions[r.SessionID]; ok && s.CourseID == courseID && r.StudentID == studentID {
			out = append(out, *r)
		}
	}
	return out, nil
}

// ── Mock MessageRepository ──

type mockMessageRepo struct {
	users *mockUserRepo
	items map[string]*model.Message
}

func (m *mockMessageRepo) Create(_ context.Context, msg *model.Message) error {
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}
	msg.CreatedAt = time.Now()
	m.items[msg.MessageID] = msg
	return nil
}

func (m *mockMessageRepo) GetByID(_ context.Context, id ident.ID) (*model.Message, error) {
	for _, msg := range m.items {
		if matchID(id, msg.MessageID, msg.LegacyID) {
			cp := *msg
			cp.Author = m.users.get(msg.AuthorID)
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMessageRepo) ListByCourse(_ context.Context, courseID string, offset, limit int) ([]model.Message, int64, error) {
	var all []model.Message
	for _, msg := range m.items {
		if msg.CourseID == courseID {
			cp := *msg
			cp.Author = m.users.get(msg.AuthorID)
			all = append(all, cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	if offset > len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockMessageRepo) Delete(_ context.Context, messageID string) error {
	if _, ok := m.items[messageID]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.items, messageID)
	return nil
}

// ── Mock CommentRepository ──

type mockCommentRepo struct {
	users *mockUserRepo
	items map[string]*model.Comment
}

func (m *mockCommentRepo) Create(_ context.Context, c *model.Comment) error {
	if c.CommentID == "" {
		c.CommentID = uuid.NewString()
	}
	c.CreatedAt = time.Now()
	cp := *c
	m.items[c.CommentID] = &cp
	return nil
}

func (m *mockCommentRepo) GetByID(_ context.Context, commentID string) (*model.Comment, error) {
	if c, ok := m.items[commentID]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCommentRepo) ListByMessage(_ context.Context, messageID string) ([]model.Comment, error) {
	var out []model.Comment
	for _, c := range m.items {
		if c.MessageID == messageID {
			cp := *c
			cp.Author = m.users.get(c.AuthorID)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (m *mockCommentRepo) Delete(_ context.Context, commentID string) error {
	delete(m.items, commentID)
	return nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	mu    sync.Mutex
	items []model.Notification
	// failNext 非 nil 时 CreateBatch 返回该错误
	failNext error
}

func (m *mockNotificationRepo) CreateBatch(_ context.Context, list []model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	for _, n := range list {
		if n.NotificationID == "" {
			n.NotificationID = uuid.NewString()
		}
		n.CreatedAt = time.Now()
		m.items = append(m.items, n)
	}
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Notification
	for _, n := range m.items {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			all = append(all, n)
		}
	}
	total := int64(len(all))
	if offset > len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockNotificationRepo) CountUnread(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, item := range m.items {
		if item.UserID == userID && !item.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, userID, notificationID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].NotificationID == notificationID && m.items[i].UserID == userID {
			now := time.Now()
			m.items[i].IsRead = true
			m.items[i].ReadAt = &now
			return 1, nil
		}
	}
	return 0, nil
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.items {
		if m.items[i].UserID == userID && !m.items[i].IsRead {
			m.items[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (m *mockNotificationRepo) Delete(_ context.Context, userID, notificationID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].NotificationID == notificationID && m.items[i].UserID == userID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (m *mockNotificationRepo) forUser(userID string) []model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Notification
	for _, n := range m.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (m *mockNotificationRepo) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// ── Mock StatisticsRepository ──

type mockStatisticsRepo struct {
	student repository.StudentStats
	teacher repository.TeacherStats
}

func (m *mockStatisticsRepo) Student(_ context.Context, _ string) (*repository.StudentStats, error) {
	s := m.student
	return &s, nil
}

func (m *mockStatisticsRepo) Teacher(_ context.Context, _ string) (*repository.TeacherStats, error) {
	t := m.teacher
	return &t, nil
}

// ── Notifier / Store 替身 ──

// recordingNotifier 同步记录事件，便于断言
type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingNotifier) Notify(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingNotifier) ofType(t string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// memStore 内存文件存储
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) Save(_ context.Context, r io.Reader, originalName, mimeType string) (*storage.Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	key := uuid.NewString()
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
	return &storage.Object{
		URL:      "/uploads/" + key,
		Name:     originalName,
		Size:     int64(len(data)),
		MimeType: mimeType,
		Key:      key,
	}, nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(s.objects, key)
	return nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func newTestUploader(store storage.Store) *uploader {
	return &uploader{
		store:  store,
		policy: storage.NewPolicy(1024, []string{"application/pdf", "text/plain"}),
		logger: zap.NewNop(),
	}
}

func textUpload(name, body string) *FileUpload {
	return &FileUpload{
		Name:     name,
		Size:     int64(len(body)),
		MimeType: "text/plain; charset=utf-8",
		Reader:   strings.NewReader(body),
	}
}
