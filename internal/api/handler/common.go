package handler

import (
	"errors"
	"mime"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"classpad/internal/service"
	"classpad/pkg/response"
	"classpad/pkg/storage"
)

// bindJSON 绑定并校验 JSON 请求体，失败时已写入响应
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, "请求体过大")
			return false
		}
		response.ValidationFailed(c, "参数校验失败")
		return false
	}
	return true
}

// bindQuery 绑定查询参数
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		response.ValidationFailed(c, "参数校验失败")
		return false
	}
	return true
}

// isMultipart 请求是否为 multipart/form-data
func isMultipart(c *gin.Context) bool {
	mt, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// readUpload 读取表单字段 file，返回的 close 由调用方负责
func readUpload(c *gin.Context) (*service.FileUpload, func(), bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodeFileTooLarge, "文件超过大小限制")
			return nil, nil, false
		}
		response.ValidationFailed(c, "缺少上传文件")
		return nil, nil, false
	}
	f, err := fh.Open()
	if err != nil {
		response.ValidationFailed(c, "无法读取上传文件")
		return nil, nil, false
	}
	up := &service.FileUpload{
		Name:     fh.Filename,
		Size:     fh.Size,
		MimeType: fh.Header.Get("Content-Type"),
		Reader:   f,
	}
	return up, func() { _ = f.Close() }, true
}

// sendAttachment 以附件形式下发文件
func sendAttachment(c *gin.Context, contentType, filename string, data []byte) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
	c.Data(http.StatusOK, contentType, data)
}

// handleCommonError 各模块共享的错误映射：标识符、权限、实体不存在、上传限制
// 未识别的错误记录到 gin 上下文并返回 500
func handleCommonError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidIdentifier):
		response.BadRequest(c, response.CodeInvalidIdentifier, "标识符格式无效")
	case errors.Is(err, service.ErrAccessDenied):
		response.Forbidden(c, response.CodeAccessDenied, err.Error())

	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, response.CodeUserNotFound, err.Error())
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, response.CodeCourseNotFound, err.Error())
	case errors.Is(err, service.ErrUnitNotFound):
		response.NotFound(c, response.CodeUnitNotFound, err.Error())
	case errors.Is(err, service.ErrAssignmentNotFound):
		response.NotFound(c, response.CodeAssignmentNotFound, err.Error())
	case errors.Is(err, service.ErrSubmissionNotFound):
		response.NotFound(c, response.CodeSubmissionNotFound, err.Error())
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, response.CodeSessionNotFound, err.Error())
	case errors.Is(err, service.ErrMessageNotFound):
		response.NotFound(c, response.CodeMessageNotFound, err.Error())

	case errors.Is(err, storage.ErrFileTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeFileTooLarge, err.Error())
	case errors.Is(err, storage.ErrUnsupportedType):
		response.Error(c, http.StatusUnsupportedMediaType, response.CodeUnsupportedFileType, err.Error())
	case errors.Is(err, storage.ErrEmptyFile):
		response.ValidationFailed(c, err.Error())

	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
