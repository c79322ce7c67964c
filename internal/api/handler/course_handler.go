package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"classpad/internal/dto"
	"classpad/internal/service"
	"classpad/pkg/response"
)

// CourseHandler 课程模块 HTTP 处理器
type CourseHandler struct {
	courseSvc service.CourseService
}

// NewCourseHandler 创建 CourseHandler
func NewCourseHandler(courseSvc service.CourseService) *CourseHandler {
	return &CourseHandler{courseSvc: courseSvc}
}

// ListMine 我的课程（教授的与选修的）
// GET /api/v1/courses
func (h *CourseHandler) ListMine(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.courseSvc.ListMine(c.Request.Context(), userID)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Create 创建课程
// POST /api/v1/courses
func (h *CourseHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	var req dto.CreateCourseRequest
	if !bindJSON(c, &req) {
		return
	}

	course, err := h.courseSvc.Create(c.Request.Context(), userID, role, &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.Created(c, course)
}

// Get 课程详情
// GET /api/v1/courses/:id
func (h *CourseHandler) Get(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	course, err := h.courseSvc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, course)
}

// Update 更新课程
// PUT /api/v1/courses/:id
func (h *CourseHandler) Update(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateCourseRequest
	if !bindJSON(c, &req) {
		return
	}

	course, err := h.courseSvc.Update(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, course)
}

// Delete 删除课程（仅所有者）
// DELETE /api/v1/courses/:id
func (h *CourseHandler) Delete(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.courseSvc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, nil)
}

// RegenerateCode 重新生成课程码
// POST /api/v1/courses/:id/code
func (h *CourseHandler) RegenerateCode(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	course, err := h.courseSvc.RegenerateCode(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, course)
}

// Join 通过课程码加入课程
// POST /api/v1/courses/join
func (h *CourseHandler) Join(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	var req dto.JoinCourseRequest
	if !bindJSON(c, &req) {
		return
	}

	course, err := h.courseSvc.Join(c.Request.Context(), userID, role, &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, course)
}

// Leave 退出课程
// POST /api/v1/courses/:id/leave
func (h *CourseHandler) Leave(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.courseSvc.Leave(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, nil)
}

// Members 课程成员
// GET /api/v1/courses/:id/members
func (h *CourseHandler) Members(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	members, err := h.courseSvc.Members(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, members)
}

// AddTeacher 添加协同教师
// POST /api/v1/courses/:id/teachers
func (h *CourseHandler) AddTeacher(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.AddTeacherRequest
	if !bindJSON(c, &req) {
		return
	}

	teacher, err := h.courseSvc.AddTeacher(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.Created(c, teacher)
}

// RemoveTeacher 移除协同教师
// DELETE /api/v1/courses/:id/teachers/:userId
func (h *CourseHandler) RemoveTeacher(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.courseSvc.RemoveTeacher(c.Request.Context(), userID, c.Param("id"), c.Param("userId")); err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, nil)
}

// RemoveStudent 移除学生
// DELETE /api/v1/courses/:id/students/:userId
func (h *CourseHandler) RemoveStudent(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.courseSvc.RemoveStudent(c.Request.Context(), userID, c.Param("id"), c.Param("userId")); err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, nil)
}

// ImportRoster 从 xlsx 名单批量导入学生
// POST /api/v1/courses/:id/students/import
func (h *CourseHandler) ImportRoster(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	up, closeFn, ok := readUpload(c)
	if !ok {
		return
	}
	defer closeFn()

	result, err := h.courseSvc.ImportRoster(c.Request.Context(), userID, c.Param("id"), up.Reader)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, result)
}

// handleCourseError 统一处理课程模块业务错误
func (h *CourseHandler) handleCourseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCourseCode):
		response.NotFound(c, response.CodeInvalidCourseCode, err.Error())
	case errors.Is(err, service.ErrAlreadyEnrolled):
		response.BadRequest(c, response.CodeAlreadyEnrolled, err.Error())
	case errors.Is(err, service.ErrAlreadyTeacher):
		response.BadRequest(c, response.CodeAlreadyTeacher, err.Error())
	case errors.Is(err, service.ErrOnlyStudentsJoin):
		response.Forbidden(c, response.CodeAccessDenied, err.Error())
	case errors.Is(err, service.ErrNotATeacher),
		errors.Is(err, service.ErrCannotRemoveOwner),
		errors.Is(err, service.ErrRosterUnreadable):
		response.ValidationFailed(c, err.Error())
	case errors.Is(err, service.ErrTeacherNotInCourse):
		response.NotFound(c, response.CodeNotFound, err.Error())
	case errors.Is(err, service.ErrStudentNotInCourse):
		response.NotFound(c, response.CodeNotEnrolled, err.Error())
	case errors.Is(err, service.ErrCourseCodeExhausted):
		_ = c.Error(err)
		response.Error(c, http.StatusServiceUnavailable, response.CodeCodeExhausted, err.Error())
	default:
		handleCommonError(c, err)
	}
}
