package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"classpad/internal/dto"
	"classpad/internal/service"
	"classpad/pkg/response"
)

// MessageHandler 课程消息与评论
type MessageHandler struct {
	messageSvc service.MessageService
}

// NewMessageHandler 创建 MessageHandler
func NewMessageHandler(messageSvc service.MessageService) *MessageHandler {
	return &MessageHandler{messageSvc: messageSvc}
}

// List 分页获取课程消息
// GET /api/v1/courses/:id/messages
func (h *MessageHandler) List(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.PaginationRequest
	if !bindQuery(c, &req) {
		return
	}

	list, total, err := h.messageSvc.List(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleMessageError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Create POST /api/v1/courses/:id/messages
func (h *MessageHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	msg, err := h.messageSvc.Create(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleMessageError(c, err)
		return
	}

	response.Created(c, msg)
}

// Delete DELETE /api/v1/messages/:id
func (h *MessageHandler) Delete(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.messageSvc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.handleMessageError(c, err)
		return
	}

	response.OK(c, nil)
}

// ListComments GET /api/v1/messages/:id/comments
func (h *MessageHandler) ListComments(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.messageSvc.ListComments(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleMessageError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// AddComment POST /api/v1/messages/:id/comments
func (h *MessageHandler) AddComment(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.messageSvc.AddComment(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleMessageError(c, err)
		return
	}

	response.Created(c, comment)
}

// DeleteComment DELETE /api/v1/comments/:id
func (h *MessageHandler) DeleteComment(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.messageSvc.DeleteComment(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.handleMessageError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *MessageHandler) handleMessageError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrCommentNotFound) {
		response.NotFound(c, response.CodeCommentNotFound, err.Error())
		return
	}
	handleCommonError(c, err)
}
