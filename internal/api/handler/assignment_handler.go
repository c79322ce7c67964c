package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"classpad/internal/dto"
	"classpad/internal/service"
	"classpad/pkg/response"
)

// AssignmentHandler 作业、附件及学生提交入口
type AssignmentHandler struct {
	assignmentSvc service.AssignmentService
	submissionSvc service.SubmissionService
}

// NewAssignmentHandler 创建 AssignmentHandler
func NewAssignmentHandler(assignmentSvc service.AssignmentService, submissionSvc service.SubmissionService) *AssignmentHandler {
	return &AssignmentHandler{assignmentSvc: assignmentSvc, submissionSvc: submissionSvc}
}

// List 课程作业列表，可按 unit_id 过滤
// GET /api/v1/courses/:id/assignments
func (h *AssignmentHandler) List(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.AssignmentListRequest
	if !bindQuery(c, &req) {
		return
	}

	list, err := h.assignmentSvc.List(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Create POST /api/v1/courses/:id/assignments
func (h *AssignmentHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateAssignmentRequest
	if !bindJSON(c, &req) {
		return
	}

	a, err := h.assignmentSvc.Create(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.Created(c, a)
}

// Get GET /api/v1/assignments/:id
func (h *AssignmentHandler) Get(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	a, err := h.assignmentSvc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, a)
}

// Update PUT /api/v1/assignments/:id
func (h *AssignmentHandler) Update(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateAssignmentRequest
	if !bindJSON(c, &req) {
		return
	}

	a, err := h.assignmentSvc.Update(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, a)
}

// Delete DELETE /api/v1/assignments/:id
func (h *AssignmentHandler) Delete(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.assignmentSvc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, nil)
}

// SetPublished PUT /api/v1/assignments/:id/publish
func (h *AssignmentHandler) SetPublished(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.PublishRequest
	if !bindJSON(c, &req) {
		return
	}

	a, err := h.assignmentSvc.SetPublished(c.Request.Context(), userID, c.Param("id"), *req.IsPublished)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, a)
}

// ListAttachments GET /api/v1/assignments/:id/attachments
func (h *AssignmentHandler) ListAttachments(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.assignmentSvc.ListAttachments(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// AddAttachment 上传文件（multipart）或添加链接（JSON）
// POST /api/v1/assignments/:id/attachments
func (h *AssignmentHandler) AddAttachment(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var (
		att *dto.FileResponse
		err error
	)
	if isMultipart(c) {
		up, closeFn, ok := readUpload(c)
		if !ok {
			return
		}
		defer closeFn()
		att, err = h.assignmentSvc.AddAttachmentFile(c.Request.Context(), userID, c.Param("id"), up)
	} else {
		var req dto.LinkRequest
		if !bindJSON(c, &req) {
			return
		}
		att, err = h.assignmentSvc.AddAttachmentLink(c.Request.Context(), userID, c.Param("id"), &req)
	}
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.Created(c, att)
}

// DeleteAttachment DELETE /api/v1/assignments/:id/attachments/:attachmentId
func (h *AssignmentHandler) DeleteAttachment(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.assignmentSvc.DeleteAttachment(c.Request.Context(), userID, c.Param("id"), c.Param("attachmentId")); err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, nil)
}

// ── 学生提交 ──

// GetMySubmission 当前学生的提交，未开始时返回 null
// GET /api/v1/assignments/:id/submission
func (h *AssignmentHandler) GetMySubmission(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	sub, err := h.submissionSvc.GetMine(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleSubmissionError(c, err)
		return
	}

	response.OK(c, sub)
}

// SaveDraft PUT /api/v1/assignments/:id/submission
func (h *AssignmentHandler) SaveDraft(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.SaveDraftRequest
	if !bindJSON(c, &req) {
		return
	}

	sub, err := h.submissionSvc.SaveDraft(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		handleSubmissionError(c, err)
		return
	}

	response.OK(c, sub)
}

// Submit POST /api/v1/assignments/:id/submit
func (h *AssignmentHandler) Submit(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.SubmitRequest
	if c.Request.ContentLength != 0 {
		if !bindJSON(c, &req) {
			return
		}
	}

	sub, err := h.submissionSvc.Submit(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		handleSubmissionError(c, err)
		return
	}

	response.Created(c, sub)
}

// ListSubmissions 教师查看某作业的全部提交
// GET /api/v1/assignments/:id/submissions
func (h *AssignmentHandler) ListSubmissions(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.submissionSvc.ListForAssignment(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleSubmissionError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

func (h *AssignmentHandler) handleAssignmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAttachmentNotFound):
		response.NotFound(c, response.CodeAttachmentNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidRubric),
		errors.Is(err, service.ErrInvalidDueAt):
		response.ValidationFailed(c, err.Error())
	default:
		handleCommonError(c, err)
	}
}
