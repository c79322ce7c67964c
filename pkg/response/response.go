package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 成功响应结构
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorBody 错误详情
type ErrorBody struct {
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse 错误响应结构：{ "error": { message, code, details? } }
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Pagination 分页元数据
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// PageData 分页响应数据
type PageData struct {
	List       interface{} `json:"list"`
	Pagination Pagination  `json:"pagination"`
}

// 稳定的机器可读错误码，客户端据此分支
const (
	CodeUnauthenticated     = "UNAUTHENTICATED"
	CodeInvalidCredential   = "INVALID_CREDENTIAL"
	CodeAccountDeactivated  = "ACCOUNT_DEACTIVATED"
	CodeProviderMismatch    = "PROVIDER_MISMATCH"
	CodeOAuthUnavailable    = "OAUTH_UNAVAILABLE"
	CodeInvalidIdentifier   = "INVALID_IDENTIFIER"
	CodeAccessDenied        = "ACCESS_DENIED"
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeNotFound            = "NOT_FOUND"
	CodeUserNotFound        = "USER_NOT_FOUND"
	CodeCourseNotFound      = "COURSE_NOT_FOUND"
	CodeUnitNotFound        = "UNIT_NOT_FOUND"
	CodeMaterialNotFound    = "MATERIAL_NOT_FOUND"
	CodeAssignmentNotFound  = "ASSIGNMENT_NOT_FOUND"
	CodeAttachmentNotFound  = "ATTACHMENT_NOT_FOUND"
	CodeSubmissionNotFound  = "SUBMISSION_NOT_FOUND"
	CodeSessionNotFound     = "SESSION_NOT_FOUND"
	CodeMessageNotFound     = "MESSAGE_NOT_FOUND"
	CodeCommentNotFound     = "COMMENT_NOT_FOUND"
	CodeNotificationMissing = "NOTIFICATION_NOT_FOUND"
	CodeEmailExists         = "EMAIL_EXISTS"
	CodeAlreadyEnrolled     = "ALREADY_ENROLLED"
	CodeAlreadyTeacher      = "ALREADY_TEACHER"
	CodeAlreadySubmitted    = "ALREADY_SUBMITTED"
	CodeAlreadyRecorded     = "ALREADY_RECORDED"
	CodeNotEnrolled         = "NOT_ENROLLED"
	CodeNotSubmitted        = "NOT_SUBMITTED"
	CodeLocationRequired    = "LOCATION_REQUIRED"
	CodeLocationOutOfRange  = "LOCATION_OUT_OF_RANGE"
	CodeInvalidCourseCode   = "INVALID_COURSE_CODE"
	CodeCodeExhausted       = "COURSE_CODE_EXHAUSTED"
	CodeRateLimited         = "RATE_LIMITED"
	CodePayloadTooLarge     = "PAYLOAD_TOO_LARGE"
	CodeFileTooLarge        = "FILE_TOO_LARGE"
	CodeUnsupportedFileType = "UNSUPPORTED_FILE_TYPE"
	CodeInternal            = "INTERNAL_ERROR"
)

// ── 成功响应 ──

// OK 200 成功响应
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// Created 201 创建成功
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

// OKPage 200 分页成功
func OKPage(c *gin.Context, list interface{}, total int64, page, pageSize int) {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(total) / pageSize
		if int(total)%pageSize > 0 {
			totalPages++
		}
	}
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: PageData{
			List: list,
			Pagination: Pagination{
				Page:       page,
				PageSize:   pageSize,
				Total:      total,
				TotalPages: totalPages,
			},
		},
	})
}

// ── 错误响应 ──

// Error 通用错误响应
func Error(c *gin.Context, httpStatus int, code, message string) {
	c.JSON(httpStatus, ErrorResponse{Error: ErrorBody{Message: message, Code: code}})
}

// ErrorWithDetails 带详情的错误响应
func ErrorWithDetails(c *gin.Context, httpStatus int, code, message string, details interface{}) {
	c.JSON(httpStatus, ErrorResponse{Error: ErrorBody{Message: message, Code: code, Details: details}})
}

// Abort 中间件中使用：写入错误并终止后续处理
func Abort(c *gin.Context, httpStatus int, code, message string) {
	c.AbortWithStatusJSON(httpStatus, ErrorResponse{Error: ErrorBody{Message: message, Code: code}})
}

// ── 常见快捷方式 ──

// BadRequest 400
func BadRequest(c *gin.Context, code, message string) {
	Error(c, http.StatusBadRequest, code, message)
}

// ValidationFailed 400 参数校验失败
func ValidationFailed(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeValidationFailed, message)
}

// Unauthorized 401
func Unauthorized(c *gin.Context, code, message string) {
	Error(c, http.StatusUnauthorized, code, message)
}

// Forbidden 403
func Forbidden(c *gin.Context, code, message string) {
	Error(c, http.StatusForbidden, code, message)
}

// NotFound 404
func NotFound(c *gin.Context, code, message string) {
	Error(c, http.StatusNotFound, code, message)
}

// InternalError 500，不向客户端暴露内部细节
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, CodeInternal, "服务器内部错误")
}
