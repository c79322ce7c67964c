package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"classpad/internal/api/middleware"
	"classpad/internal/dto"
	"classpad/internal/service"
	"classpad/pkg/response"
	"classpad/pkg/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := dto.RegisterValidators(); err != nil {
		panic(err)
	}
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// 内嵌接口，只覆盖用例涉及的方法
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	service.AuthService
	tokens       *dto.TokenResponse
	err          error
	gotProvider  string
	gotTokenID   string
	gotExpiresAt time.Time
}

func (m *mockAuthService) Register(_ context.Context, _ *dto.RegisterRequest) (*dto.TokenResponse, error) {
	return m.tokens, m.err
}
func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.tokens, m.err
}
func (m *mockAuthService) OAuthLogin(_ context.Context, provider string, _ *dto.OAuthLoginRequest) (*dto.TokenResponse, error) {
	m.gotProvider = provider
	return m.tokens, m.err
}
func (m *mockAuthService) Logout(_ context.Context, tokenID string, expiresAt time.Time) error {
	m.gotTokenID = tokenID
	m.gotExpiresAt = expiresAt
	return m.err
}

// ── Mock CourseService ──

type mockCourseService struct {
	service.CourseService
	course      *dto.CourseResponse
	err         error
	gotRole     string
	importRes   *dto.ImportResult
	importedRaw string
}

func (m *mockCourseService) Create(_ context.Context, _, role string, _ *dto.CreateCourseRequest) (*dto.CourseResponse, error) {
	m.gotRole = role
	return m.course, m.err
}
func (m *mockCourseService) Get(_ context.Context, _, _ string) (*dto.CourseDetailResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &dto.CourseDetailResponse{CourseResponse: *m.course}, nil
}
func (m *mockCourseService) Join(_ context.Context, _, _ string, _ *dto.JoinCourseRequest) (*dto.CourseResponse, error) {
	return m.course, m.err
}
func (m *mockCourseService) RemoveStudent(_ context.Context, _, _, _ string) error {
	return m.err
}
func (m *mockCourseService) ImportRoster(_ context.Context, _, _ string, r io.Reader) (*dto.ImportResult, error) {
	b, _ := io.ReadAll(r)
	m.importedRaw = string(b)
	return m.importRes, m.err
}

// ── Mock UnitService ──

type mockUnitService struct {
	service.UnitService
	err      error
	gotFile  *service.FileUpload
	gotLink  *dto.LinkRequest
	gotOrder []string
}

func (m *mockUnitService) AddMaterialFile(_ context.Context, _, _ string, up *service.FileUpload) (*dto.FileResponse, error) {
	m.gotFile = up
	return &dto.FileResponse{ID: "f-1", Kind: "file"}, m.err
}
func (m *mockUnitService) AddMaterialLink(_ context.Context, _, _ string, req *dto.LinkRequest) (*dto.FileResponse, error) {
	m.gotLink = req
	return &dto.FileResponse{ID: "l-1", Kind: "link"}, m.err
}
func (m *mockUnitService) Reorder(_ context.Context, _, _ string, req *dto.ReorderUnitsRequest) ([]dto.UnitResponse, error) {
	m.gotOrder = req.UnitIDs
	return nil, m.err
}

// ── Mock SubmissionService ──

type mockSubmissionService struct {
	service.SubmissionService
	err       error
	gotSubmit *dto.SubmitRequest
}

func (m *mockSubmissionService) Submit(_ context.Context, _, _ string, req *dto.SubmitRequest) (*dto.SubmissionResponse, error) {
	m.gotSubmit = req
	if m.err != nil {
		return nil, m.err
	}
	return &dto.SubmissionResponse{ID: "s-1", Status: "submitted"}, nil
}
func (m *mockSubmissionService) Grade(_ context.Context, _, _ string, _ *dto.GradeRequest) (*dto.SubmissionResponse, error) {
	return &dto.SubmissionResponse{ID: "s-1", Status: "graded"}, m.err
}

// ── Mock AttendanceService ──

type mockAttendanceService struct {
	service.AttendanceService
	err error
}

func (m *mockAttendanceService) Scan(_ context.Context, _ string, _ *dto.ScanRequest) (*dto.RecordResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &dto.RecordResponse{ID: "r-1", Status: "present", Origin: "qr"}, nil
}

// ── Mock MessageService ──

type mockMessageService struct {
	service.MessageService
	list  []dto.MessageResponse
	total int64
	err   error
}

func (m *mockMessageService) List(_ context.Context, _, _ string, _ *dto.PaginationRequest) ([]dto.MessageResponse, int64, error) {
	return m.list, m.total, m.err
}
func (m *mockMessageService) DeleteComment(_ context.Context, _, _ string) error {
	return m.err
}

// ── Mock NotificationService ──

type mockNotificationService struct {
	service.NotificationService
	count int64
	err   error
}

func (m *mockNotificationService) UnreadCount(_ context.Context, _ string) (int64, error) {
	return m.count, m.err
}
func (m *mockNotificationService) MarkRead(_ context.Context, _, _ string) error {
	return m.err
}

// ── Mock ExportService ──

type mockExportService struct {
	service.ExportService
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) ExportGrades(_ context.Context, _, _ string) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}
func (m *mockExportService) ExportCalendar(_ context.Context, _, _ string) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func setAuth(c *gin.Context) {
	c.Set(middleware.CtxUserID, "test-user-id")
	c.Set(middleware.CtxRole, "teacher")
	c.Set(middleware.CtxTokenID, "test-jti")
	c.Set(middleware.CtxTokenExp, time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC))
}

// withAuth 模拟 JWT 中间件注入身份
func withAuth(h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		setAuth(c)
		h(c)
	}
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func serve(method, route, path string, body io.Reader, contentType string, h gin.HandlerFunc) *httptest.ResponseRecorder {
	r := gin.New()
	r.Handle(method, route, h)

	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func serveJSON(method, route, path string, v interface{}, h gin.HandlerFunc) *httptest.ResponseRecorder {
	return serve(method, route, path, jsonBody(v), "application/json", h)
}

func multipartBody(t *testing.T, field, filename, content string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("创建表单文件失败: %v", err)
		}
		_, _ = fw.Write([]byte(content))
	} else {
		_ = mw.WriteField("note", "无文件")
	}
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func parseError(w *httptest.ResponseRecorder) response.ErrorBody {
	var resp response.ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return resp.Error
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Errorf("期望 HTTP %d，实际 %d，body=%s", status, w.Code, w.Body.String())
	}
	if got := parseError(w).Code; got != code {
		t.Errorf("期望错误码 %s，实际 %s", code, got)
	}
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Register_Created(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{tokens: &dto.TokenResponse{AccessToken: "a", RefreshToken: "r", ExpiresIn: 3600}})

	w := serveJSON("POST", "/auth/register", "/auth/register", dto.RegisterRequest{
		Email: "ana@example.com", Name: "Ana", Password: "secret123",
	}, h.Register)

	if w.Code != http.StatusCreated {
		t.Fatalf("期望 201，实际 %d，body=%s", w.Code, w.Body.String())
	}
	if !parseResponse(w).Success {
		t.Error("期望 success=true")
	}
}

func TestAuthHandler_Register_BlankName(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := serveJSON("POST", "/auth/register", "/auth/register", dto.RegisterRequest{
		Email: "ana@example.com", Name: "   ", Password: "secret123",
	}, h.Register)

	assertError(t, w, http.StatusBadRequest, response.CodeValidationFailed)
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := serve("POST", "/auth/login", "/auth/login", strings.NewReader("invalid json"), "application/json", h.Login)

	assertError(t, w, http.StatusBadRequest, response.CodeValidationFailed)
}

func TestAuthHandler_Login_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"凭证错误", service.ErrInvalidCredentials, http.StatusUnauthorized, response.CodeInvalidCredential},
		{"账号停用", service.ErrAccountDeactivated, http.StatusForbidden, response.CodeAccountDeactivated},
		{"登录方式不符", service.ErrProviderMismatch, http.StatusBadRequest, response.CodeProviderMismatch},
		{"未知错误", errors.New("boom"), http.StatusInternalServerError, response.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(&mockAuthService{err: tt.err})
			w := serveJSON("POST", "/auth/login", "/auth/login", dto.LoginRequest{
				Email: "ana@example.com", Password: "whatever",
			}, h.Login)
			assertError(t, w, tt.status, tt.code)
		})
	}
}

func TestAuthHandler_OAuthLogin_Unavailable(t *testing.T) {
	mock := &mockAuthService{err: service.ErrOAuthUnavailable}
	h := NewAuthHandler(mock)

	w := serveJSON("POST", "/auth/oauth/:provider", "/auth/oauth/google", dto.OAuthLoginRequest{IDToken: "tok"}, h.OAuthLogin)

	assertError(t, w, http.StatusServiceUnavailable, response.CodeOAuthUnavailable)
	if mock.gotProvider != "google" {
		t.Errorf("期望 provider=google，实际 %q", mock.gotProvider)
	}
}

func TestAuthHandler_Logout_PassesTokenInfo(t *testing.T) {
	mock := &mockAuthService{}
	h := NewAuthHandler(mock)

	w := serve("POST", "/auth/logout", "/auth/logout", nil, "", withAuth(h.Logout))

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	if mock.gotTokenID != "test-jti" || mock.gotExpiresAt.IsZero() {
		t.Errorf("注销应传入当前 Token 的 jti 与过期时间，实际 jti=%q exp=%v", mock.gotTokenID, mock.gotExpiresAt)
	}
}

// ═══════════════════════════════════════════════════════════
// CourseHandler Tests
// ═══════════════════════════════════════════════════════════

func TestCourseHandler_Create_Unauthenticated(t *testing.T) {
	h := NewCourseHandler(&mockCourseService{})

	w := serveJSON("POST", "/courses", "/courses", dto.CreateCourseRequest{Name: "数学"}, h.Create)

	assertError(t, w, http.StatusUnauthorized, response.CodeUnauthenticated)
}

func TestCourseHandler_Create_PassesRole(t *testing.T) {
	mock := &mockCourseService{course: &dto.CourseResponse{ID: "c-1", Name: "数学", Code: "ABC234"}}
	h := NewCourseHandler(mock)

	w := serveJSON("POST", "/courses", "/courses", dto.CreateCourseRequest{Name: "数学"}, withAuth(h.Create))

	if w.Code != http.StatusCreated {
		t.Fatalf("期望 201，实际 %d，body=%s", w.Code, w.Body.String())
	}
	if mock.gotRole != "teacher" {
		t.Errorf("期望传入调用者角色 teacher，实际 %q", mock.gotRole)
	}
}

func TestCourseHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"标识符无效", service.ErrInvalidIdentifier, http.StatusBadRequest, response.CodeInvalidIdentifier},
		{"课程不存在", service.ErrCourseNotFound, http.StatusNotFound, response.CodeCourseNotFound},
		{"无权访问", service.ErrAccessDenied, http.StatusForbidden, response.CodeAccessDenied},
		{"课程码耗尽", service.ErrCourseCodeExhausted, http.StatusServiceUnavailable, response.CodeCodeExhausted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCourseHandler(&mockCourseService{err: tt.err})
			w := serve("GET", "/courses/:id", "/courses/x", nil, "", withAuth(h.Get))
			assertError(t, w, tt.status, tt.code)
		})
	}
}

func TestCourseHandler_Join_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"课程码无效", service.ErrInvalidCourseCode, http.StatusNotFound, response.CodeInvalidCourseCode},
		{"重复加入", service.ErrAlreadyEnrolled, http.StatusBadRequest, response.CodeAlreadyEnrolled},
		{"非学生", service.ErrOnlyStudentsJoin, http.StatusForbidden, response.CodeAccessDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCourseHandler(&mockCourseService{err: tt.err})
			w := serveJSON("POST", "/courses/join", "/courses/join", dto.JoinCourseRequest{Code: "ABC234"}, withAuth(h.Join))
			assertError(t, w, tt.status, tt.code)
		})
	}
}

func TestCourseHandler_RemoveStudent_NotInCourse(t *testing.T) {
	h := NewCourseHandler(&mockCourseService{err: service.ErrStudentNotInCourse})

	w := serve("DELETE", "/courses/:id/students/:userId", "/courses/c/students/s", nil, "", withAuth(h.RemoveStudent))

	assertError(t, w, http.StatusNotFound, response.CodeNotEnrolled)
}

func TestCourseHandler_ImportRoster(t *testing.T) {
	mock := &mockCourseService{importRes: &dto.ImportResult{Total: 2, Success: 2}}
	h := NewCourseHandler(mock)

	body, ct := multipartBody(t, "file", "roster.xlsx", "xlsx-bytes")
	w := serve("POST", "/courses/:id/students/import", "/courses/c/students/import", body, ct, withAuth(h.ImportRoster))

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d，body=%s", w.Code, w.Body.String())
	}
	if mock.importedRaw != "xlsx-bytes" {
		t.Errorf("上传内容应原样传给 Service，实际 %q", mock.importedRaw)
	}
}

func TestCourseHandler_ImportRoster_MissingFile(t *testing.T) {
	h := NewCourseHandler(&mockCourseService{})

	body, ct := multipartBody(t, "", "", "")
	w := serve("POST", "/courses/:id/students/import", "/courses/c/students/import", body, ct, withAuth(h.ImportRoster))

	assertError(t, w, http.StatusBadRequest, response.CodeValidationFailed)
}

// ═══════════════════════════════════════════════════════════
// UnitHandler Tests
// ═══════════════════════════════════════════════════════════

func TestUnitHandler_AddMaterial_Link(t *testing.T) {
	mock := &mockUnitService{}
	h := NewUnitHandler(mock)

	w := serveJSON("POST", "/units/:id/materials", "/units/u/materials", dto.LinkRequest{URL: "https://example.com"}, withAuth(h.AddMaterial))

	if w.Code != http.StatusCreated {
		t.Fatalf("期望 201，实际 %d，body=%s", w.Code, w.Body.String())
	}
	if mock.gotLink == nil || mock.gotFile != nil {
		t.Error("JSON 请求应走链接分支")
	}
}

func TestUnitHandler_AddMaterial_File(t *testing.T) {
	mock := &mockUnitService{}
	h := NewUnitHandler(mock)

	body, ct := multipartBody(t, "file", "notes.txt", "hello")
	w := serve("POST", "/units/:id/materials", "/units/u/materials", body, ct, withAuth(h.AddMaterial))

	if w.Code != http.StatusCreated {
		t.Fatalf("期望 201，实际 %d，body=%s", w.Code, w.Body.String())
	}
	if mock.gotFile == nil || mock.gotFile.Name != "notes.txt" || mock.gotFile.Size != 5 {
		t.Errorf("multipart 请求应走文件分支，实际 %+v", mock.gotFile)
	}
}

func TestUnitHandler_AddMaterial_StorageErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"文件过大", storage.ErrFileTooLarge, http.StatusRequestEntityTooLarge, response.CodeFileTooLarge},
		{"类型不支持", storage.ErrUnsupportedType, http.StatusUnsupportedMediaType, response.CodeUnsupportedFileType},
		{"资料不存在", service.ErrMaterialNotFound, http.StatusNotFound, response.CodeMaterialNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewUnitHandler(&mockUnitService{err: tt.err})
			body, ct := multipartBody(t, "file", "a.bin", "x")
			w := serve("POST", "/units/:id/materials", "/units/u/materials", body, ct, withAuth(h.AddMaterial))
			assertError(t, w, tt.status, tt.code)
		})
	}
}

func TestUnitHandler_Reorder_RejectsNonUUID(t *testing.T) {
	mock := &mockUnitService{}
	h := NewUnitHandler(mock)

	w := serveJSON("PUT", "/courses/:id/units/order", "/courses/c/units/order", map[string]interface{}{
		"unit_ids": []string{"17"},
	}, withAuth(h.Reorder))

	assertError(t, w, http.StatusBadRequest, response.CodeValidationFailed)
	if mock.gotOrder != nil {
		t.Error("校验失败时不应调用 Service")
	}
}

// ═══════════════════════════════════════════════════════════
// Assignment / Submission Tests
// ═══════════════════════════════════════════════════════════

func TestAssignmentHandler_Submit_EmptyBody(t *testing.T) {
	sub := &mockSubmissionService{}
	h := NewAssignmentHandler(nil, sub)

	w := serve("POST", "/assignments/:id/submit", "/assignments/a/submit", nil, "", withAuth(h.Submit))

	if w.Code != http.StatusCreated {
		t.Fatalf("期望 201，实际 %d，body=%s", w.Code, w.Body.String())
	}
	if sub.gotSubmit == nil || sub.gotSubmit.Content != nil {
		t.Errorf("空请求体应沿用草稿内容，实际 %+v", sub.gotSubmit)
	}
}

func TestAssignmentHandler_Submit_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"重复提交", service.ErrAlreadySubmitted, http.StatusBadRequest, response.CodeAlreadySubmitted},
		{"非课程学生", service.ErrAccessDenied, http.StatusForbidden, response.CodeAccessDenied},
		{"作业不存在", service.ErrAssignmentNotFound, http.StatusNotFound, response.CodeAssignmentNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAssignmentHandler(nil, &mockSubmissionService{err: tt.err})
			w := serveJSON("POST", "/assignments/:id/submit", "/assignments/a/submit", map[string]string{"content": "答案"}, withAuth(h.Submit))
			assertError(t, w, tt.status, tt.code)
		})
	}
}

func TestSubmissionHandler_Grade(t *testing.T) {
	grade := 95.0

	h := NewSubmissionHandler(&mockSubmissionService{})
	w := serveJSON("PUT", "/submissions/:id/grade", "/submissions/s/grade", dto.GradeRequest{Grade: &grade}, withAuth(h.Grade))
	if w.Code != http.StatusOK {
		t.Errorf("期望 200，实际 %d", w.Code)
	}

	h = NewSubmissionHandler(&mockSubmissionService{err: service.ErrNotSubmitted})
	w = serveJSON("PUT", "/submissions/:id/grade", "/submissions/s/grade", dto.GradeRequest{Grade: &grade}, withAuth(h.Grade))
	assertError(t, w, http.StatusBadRequest, response.CodeNotSubmitted)

	h = NewSubmissionHandler(&mockSubmissionService{})
	w = serveJSON("PUT", "/submissions/:id/grade", "/submissions/s/grade", map[string]string{"feedback": "缺分数"}, withAuth(h.Grade))
	assertError(t, w, http.StatusBadRequest, response.CodeValidationFailed)
}

// ═══════════════════════════════════════════════════════════
// AttendanceHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAttendanceHandler_Scan_Created(t *testing.T) {
	h := NewAttendanceHandler(&mockAttendanceService{})

	w := serveJSON("POST", "/attendance/scan", "/attendance/scan", dto.ScanRequest{Token: "tok"}, withAuth(h.Scan))

	if w.Code != http.StatusCreated {
		t.Fatalf("期望 201，实际 %d，body=%s", w.Code, w.Body.String())
	}
}

func TestAttendanceHandler_Scan_OutOfRange(t *testing.T) {
	h := NewAttendanceHandler(&mockAttendanceService{err: &service.LocationOutOfRangeError{Distance: 123.456, Radius: 50}})

	w := serveJSON("POST", "/attendance/scan", "/attendance/scan", dto.ScanRequest{Token: "tok"}, withAuth(h.Scan))

	assertError(t, w, http.StatusBadRequest, response.CodeLocationOutOfRange)
	details, ok := parseError(w).Details.(map[string]interface{})
	if !ok {
		t.Fatalf("期望 details 为对象，实际 %T", parseError(w).Details)
	}
	if details["distance"] != 123.5 || details["radius"] != 50.0 {
		t.Errorf("details 应包含距离与半径，实际 %v", details)
	}
}

func TestAttendanceHandler_Scan_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"场次不存在", service.ErrSessionNotFound, http.StatusNotFound, response.CodeSessionNotFound},
		{"未选课", service.ErrNotEnrolled, http.StatusForbidden, response.CodeNotEnrolled},
		{"重复签到", service.ErrAlreadyRecorded, http.StatusBadRequest, response.CodeAlreadyRecorded},
		{"缺少位置", service.ErrLocationRequired, http.StatusBadRequest, response.CodeLocationRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAttendanceHandler(&mockAttendanceService{err: tt.err})
			w := serveJSON("POST", "/attendance/scan", "/attendance/scan", dto.ScanRequest{Token: "tok"}, withAuth(h.Scan))
			assertError(t, w, tt.status, tt.code)
		})
	}
}

// ═══════════════════════════════════════════════════════════
// Message / Notification Tests
// ═══════════════════════════════════════════════════════════

func TestMessageHandler_List_Paginated(t *testing.T) {
	h := NewMessageHandler(&mockMessageService{
		list:  []dto.MessageResponse{{ID: "m-1"}, {ID: "m-2"}},
		total: 5,
	})

	w := serve("GET", "/courses/:id/messages", "/courses/c/messages?page=2&page_size=2", nil, "", withAuth(h.List))

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	var resp struct {
		Data response.PageData `json:"data"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	p := resp.Data.Pagination
	if p.Page != 2 || p.PageSize != 2 || p.Total != 5 || p.TotalPages != 3 {
		t.Errorf("分页信息不正确: %+v", p)
	}
}

func TestMessageHandler_List_BadPageSize(t *testing.T) {
	h := NewMessageHandler(&mockMessageService{})

	w := serve("GET", "/courses/:id/messages", "/courses/c/messages?page_size=1000", nil, "", withAuth(h.List))

	assertError(t, w, http.StatusBadRequest, response.CodeValidationFailed)
}

func TestMessageHandler_DeleteComment_NotFound(t *testing.T) {
	h := NewMessageHandler(&mockMessageService{err: service.ErrCommentNotFound})

	w := serve("DELETE", "/comments/:id", "/comments/x", nil, "", withAuth(h.DeleteComment))

	assertError(t, w, http.StatusNotFound, response.CodeCommentNotFound)
}

func TestNotificationHandler_UnreadCount(t *testing.T) {
	h := NewNotificationHandler(&mockNotificationService{count: 7})

	w := serve("GET", "/notifications/unread-count", "/notifications/unread-count", nil, "", withAuth(h.UnreadCount))

	var resp struct {
		Data dto.UnreadCountResponse `json:"data"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || resp.Data.Count != 7 {
		t.Errorf("期望 200 且 count=7，实际 %d %+v", w.Code, resp.Data)
	}
}

func TestNotificationHandler_MarkRead_NotFound(t *testing.T) {
	h := NewNotificationHandler(&mockNotificationService{err: service.ErrNotificationNotFound})

	w := serve("PUT", "/notifications/:id/read", "/notifications/x/read", nil, "", withAuth(h.MarkRead))

	assertError(t, w, http.StatusNotFound, response.CodeNotificationMissing)
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_Grades_Attachment(t *testing.T) {
	h := NewExportHandler(&mockExportService{buf: bytes.NewBufferString("xlsx"), filename: "数学_成绩.xlsx"})

	w := serve("GET", "/courses/:id/export/grades", "/courses/c/export/grades", nil, "", withAuth(h.ExportGrades))

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != contentTypeXLSX {
		t.Errorf("Content-Type 不正确: %s", ct)
	}
	cd := w.Header().Get("Content-Disposition")
	if !strings.HasPrefix(cd, "attachment; filename*=UTF-8''") || strings.Contains(cd, "数学") {
		t.Errorf("文件名应做 URL 编码，实际 %s", cd)
	}
	if w.Body.String() != "xlsx" {
		t.Errorf("响应体应为导出内容，实际 %q", w.Body.String())
	}
}

func TestExportHandler_Calendar(t *testing.T) {
	h := NewExportHandler(&mockExportService{buf: bytes.NewBufferString("BEGIN:VCALENDAR"), filename: "c.ics"})

	w := serve("GET", "/courses/:id/calendar.ics", "/courses/c/calendar.ics", nil, "", withAuth(h.ExportCalendar))

	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("期望 text/calendar，实际 %s", ct)
	}
}

func TestExportHandler_Errors(t *testing.T) {
	h := NewExportHandler(&mockExportService{err: service.ErrAccessDenied})
	w := serve("GET", "/courses/:id/export/grades", "/courses/c/export/grades", nil, "", withAuth(h.ExportGrades))
	assertError(t, w, http.StatusForbidden, response.CodeAccessDenied)

	h = NewExportHandler(&mockExportService{err: service.ErrExportGenerateFail})
	w = serve("GET", "/courses/:id/export/grades", "/courses/c/export/grades", nil, "", withAuth(h.ExportGrades))
	assertError(t, w, http.StatusInternalServerError, response.CodeInternal)
}

// ═══════════════════════════════════════════════════════════
// Common Tests
// ═══════════════════════════════════════════════════════════

func TestBindJSON_PayloadTooLarge(t *testing.T) {
	h := NewCourseHandler(&mockCourseService{course: &dto.CourseResponse{}})

	limited := func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 16)
		setAuth(c)
		h.Create(c)
	}
	w := serveJSON("POST", "/courses", "/courses", dto.CreateCourseRequest{Name: strings.Repeat("长", 100)}, limited)

	assertError(t, w, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge)
}

func TestIsMultipart(t *testing.T) {
	tests := []struct {
		ct   string
		want bool
	}{
		{"multipart/form-data; boundary=abc", true},
		{"application/json", false},
		{"", false},
	}
	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("POST", "/", nil)
		c.Request.Header.Set("Content-Type", tt.ct)
		if got := isMultipart(c); got != tt.want {
			t.Errorf("isMultipart(%q)=%v，期望 %v", tt.ct, got, tt.want)
		}
	}
}
