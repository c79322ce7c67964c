package handler

import (
	"errors"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"classpad/internal/dto"
	"classpad/internal/service"
	"classpad/pkg/response"
)

// AttendanceHandler 签到模块 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc}
}

// CreateSession 教师开启签到场次
// POST /api/v1/courses/:id/attendance/sessions
func (h *AttendanceHandler) CreateSession(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateSessionRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.attendanceSvc.CreateSession(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.Created(c, session)
}

// ListSessions GET /api/v1/courses/:id/attendance/sessions
func (h *AttendanceHandler) ListSessions(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.attendanceSvc.ListSessions(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// MyAttendance 学生在某课程的签到记录
// GET /api/v1/courses/:id/attendance/me
func (h *AttendanceHandler) MyAttendance(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.attendanceSvc.MyAttendance(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Deactivate PUT /api/v1/attendance/sessions/:id/deactivate
func (h *AttendanceHandler) Deactivate(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	session, err := h.attendanceSvc.Deactivate(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, session)
}

// Scan 学生扫码签到
// POST /api/v1/attendance/scan
func (h *AttendanceHandler) Scan(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ScanRequest
	if !bindJSON(c, &req) {
		return
	}

	rec, err := h.attendanceSvc.Scan(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.Created(c, rec)
}

// ListRecords GET /api/v1/attendance/sessions/:id/records
func (h *AttendanceHandler) ListRecords(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.attendanceSvc.ListRecords(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// ManualRecord 教师手动登记，覆盖已有记录
// PUT /api/v1/attendance/sessions/:id/records
func (h *AttendanceHandler) ManualRecord(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ManualRecordRequest
	if !bindJSON(c, &req) {
		return
	}

	rec, err := h.attendanceSvc.ManualRecord(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, rec)
}

func (h *AttendanceHandler) handleAttendanceError(c *gin.Context, err error) {
	var outOfRange *service.LocationOutOfRangeError
	if errors.As(err, &outOfRange) {
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeLocationOutOfRange, err.Error(), gin.H{
			"distance": math.Round(outOfRange.Distance*10) / 10,
			"radius":   outOfRange.Radius,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrNotEnrolled):
		response.Forbidden(c, response.CodeNotEnrolled, err.Error())
	case errors.Is(err, service.ErrAlreadyRecorded):
		response.BadRequest(c, response.CodeAlreadyRecorded, err.Error())
	case errors.Is(err, service.ErrLocationRequired):
		response.BadRequest(c, response.CodeLocationRequired, err.Error())
	case errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrGeofenceIncomplete):
		response.ValidationFailed(c, err.Error())
	case errors.Is(err, service.ErrStudentNotInCourse):
		response.NotFound(c, response.CodeNotEnrolled, err.Error())
	case errors.Is(err, service.ErrTokenExhausted):
		_ = c.Error(err)
		response.Error(c, http.StatusServiceUnavailable, response.CodeInternal, err.Error())
	default:
		handleCommonError(c, err)
	}
}
