package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"classpad/internal/dto"
	"classpad/internal/service"
	"classpad/pkg/response"
)

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(authSvc service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Register 邮箱注册
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authSvc.Register(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.Created(c, result)
}

// Login 邮箱密码登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, result)
}

// OAuthLogin 第三方登录
// POST /api/v1/auth/oauth/:provider
func (h *AuthHandler) OAuthLogin(c *gin.Context) {
	var req dto.OAuthLoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authSvc.OAuthLogin(c.Request.Context(), c.Param("provider"), &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, result)
}

// RefreshToken 刷新 Token，旧 Refresh Token 随即失效
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authSvc.Refresh(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, result)
}

// Logout 注销当前 Access Token
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	jti, exp := GetTokenInfo(c)

	if err := h.authSvc.Logout(c.Request.Context(), jti, exp); err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, nil)
}

// ChangePassword 修改密码
// PUT /api/v1/auth/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authSvc.ChangePassword(c.Request.Context(), userID, &req); err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleAuthError 统一处理认证模块业务错误
func (h *AuthHandler) handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, response.CodeInvalidCredential, err.Error())
	case errors.Is(err, service.ErrAccountDeactivated):
		response.Forbidden(c, response.CodeAccountDeactivated, err.Error())
	case errors.Is(err, service.ErrProviderMismatch):
		response.BadRequest(c, response.CodeProviderMismatch, err.Error())
	case errors.Is(err, service.ErrEmailExists):
		response.BadRequest(c, response.CodeEmailExists, err.Error())
	case errors.Is(err, service.ErrPasswordTooShort):
		response.ValidationFailed(c, err.Error())
	case errors.Is(err, service.ErrOldPasswordWrong):
		response.BadRequest(c, response.CodeInvalidCredential, err.Error())
	case errors.Is(err, service.ErrOAuthUnavailable):
		response.Error(c, http.StatusServiceUnavailable, response.CodeOAuthUnavailable, err.Error())
	default:
		handleCommonError(c, err)
	}
}
