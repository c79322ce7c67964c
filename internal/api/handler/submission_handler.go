package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"classpad/internal/dto"
	"classpad/internal/service"
	"classpad/pkg/response"
)

// SubmissionHandler 提交详情、评分与提交文件
type SubmissionHandler struct {
	submissionSvc service.SubmissionService
}

// NewSubmissionHandler 创建 SubmissionHandler
func NewSubmissionHandler(submissionSvc service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionSvc: submissionSvc}
}

// Get GET /api/v1/submissions/:id
func (h *SubmissionHandler) Get(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	sub, err := h.submissionSvc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleSubmissionError(c, err)
		return
	}

	response.OK(c, sub)
}

// Grade 评分，允许重复评分覆盖
// PUT /api/v1/submissions/:id/grade
func (h *SubmissionHandler) Grade(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.GradeRequest
	if !bindJSON(c, &req) {
		return
	}

	sub, err := h.submissionSvc.Grade(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		handleSubmissionError(c, err)
		return
	}

	response.OK(c, sub)
}

// AddFile POST /api/v1/submissions/:id/files
func (h *SubmissionHandler) AddFile(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	up, closeFn, ok := readUpload(c)
	if !ok {
		return
	}
	defer closeFn()

	file, err := h.submissionSvc.AddFile(c.Request.Context(), userID, c.Param("id"), up)
	if err != nil {
		handleSubmissionError(c, err)
		return
	}

	response.Created(c, file)
}

// DeleteFile DELETE /api/v1/submissions/:id/files/:fileId
func (h *SubmissionHandler) DeleteFile(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.submissionSvc.DeleteFile(c.Request.Context(), userID, c.Param("id"), c.Param("fileId")); err != nil {
		handleSubmissionError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleSubmissionError 提交相关错误，作业侧入口共用
func handleSubmissionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAlreadySubmitted):
		response.BadRequest(c, response.CodeAlreadySubmitted, err.Error())
	case errors.Is(err, service.ErrNotSubmitted):
		response.BadRequest(c, response.CodeNotSubmitted, err.Error())
	case errors.Is(err, service.ErrNotEnrolled):
		response.Forbidden(c, response.CodeNotEnrolled, err.Error())
	case errors.Is(err, service.ErrSubmissionOwnerOnly):
		response.Forbidden(c, response.CodeAccessDenied, err.Error())
	case errors.Is(err, service.ErrGradeOutOfRange):
		response.ValidationFailed(c, err.Error())
	case errors.Is(err, service.ErrSubmissionFileNotFound):
		response.NotFound(c, response.CodeNotFound, err.Error())
	default:
		handleCommonError(c, err)
	}
}
