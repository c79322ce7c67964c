package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"classpad/internal/service"
	"classpad/pkg/response"
)

// 上下文键，handler 通过 context_helper 读取
const (
	CtxUserID   = "user_id"
	CtxRole     = "role"
	CtxEmail    = "email"
	CtxTokenID  = "token_jti"
	CtxTokenExp = "token_exp"
)

// IdentityResolver 校验 Access Token 并返回调用者身份
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (*service.Identity, error)
}

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取 Access Token，黑名单与账号状态由 resolver 判定
func JWTAuth(resolver IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthenticated, "缺少认证头")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthenticated, "认证头格式无效")
			return
		}

		id, err := resolver.ResolveIdentity(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			if errors.Is(err, service.ErrAccountDeactivated) {
				response.Abort(c, http.StatusForbidden, response.CodeAccountDeactivated, "账号已停用")
				return
			}
			if errors.Is(err, service.ErrInvalidCredentials) {
				response.Abort(c, http.StatusUnauthorized, response.CodeInvalidCredential, "Token 无效或已过期")
				return
			}
			// 存储故障按内部错误处理，不返回 401
			_ = c.Error(err)
			response.Abort(c, http.StatusInternalServerError, response.CodeInternal, "服务器内部错误")
			return
		}

		c.Set(CtxUserID, id.UserID)
		c.Set(CtxRole, id.Role)
		c.Set(CtxEmail, id.Email)
		c.Set(CtxTokenID, id.TokenID)
		c.Set(CtxTokenExp, id.ExpiresAt)

		c.Next()
	}
}

// RoleAuth 角色权限中间件
// 检查当前用户是否具有指定角色之一
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(CtxRole)
		if role == "" {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthenticated, "未认证")
			return
		}

		for _, r := range allowedRoles {
			if role == r {
				c.Next()
				return
			}
		}

		response.Abort(c, http.StatusForbidden, response.CodeAccessDenied, "无权限访问")
	}
}
