// Package oauth 校验第三方身份令牌。
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
)

var (
	ErrInvalidToken    = errors.New("第三方令牌无效")
	ErrEmailUnverified = errors.New("第三方账号邮箱未验证")
	ErrNotConfigured   = errors.New("未配置第三方登录")
)

// Google 签发的 id_token 只会带这两种 iss
var googleIssuers = map[string]struct{}{
	"accounts.google.com":         {},
	"https://accounts.google.com": {},
}

// Identity 第三方返回的用户信息
type Identity struct {
	Email    string
	Name     string
	PhotoURL string
}

// Verifier 校验 id_token 并返回身份
type Verifier interface {
	Verify(ctx context.Context, idToken string) (*Identity, error)
}

// tokenValidator 对应 idtoken.Validator：验签并校验 aud 与 exp
type tokenValidator interface {
	Validate(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

// GoogleVerifier 使用 Google 公钥在本地校验 id_token，公钥由 idtoken 缓存
type GoogleVerifier struct {
	clientID  string
	validator tokenValidator
}

// NewGoogleVerifier 创建 Google 校验器；clientID 为空时所有校验返回 ErrNotConfigured
func NewGoogleVerifier(ctx context.Context, clientID string) (*GoogleVerifier, error) {
	v, err := idtoken.NewValidator(ctx, option.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}))
	if err != nil {
		return nil, fmt.Errorf("初始化 Google id_token 校验器失败: %w", err)
	}
	return newGoogleVerifier(clientID, v), nil
}

func newGoogleVerifier(clientID string, v tokenValidator) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID, validator: v}
}

func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	if v.clientID == "" {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(idToken) == "" {
		return nil, ErrInvalidToken
	}

	payload, err := v.validator.Validate(ctx, idToken, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if _, ok := googleIssuers[payload.Issuer]; !ok {
		return nil, fmt.Errorf("%w: iss=%q", ErrInvalidToken, payload.Issuer)
	}

	email := claimString(payload.Claims, "email")
	if email == "" || !claimBool(payload.Claims, "email_verified") {
		return nil, ErrEmailUnverified
	}

	return &Identity{
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Name:     claimString(payload.Claims, "name"),
		PhotoURL: claimString(payload.Claims, "picture"),
	}, nil
}

func claimString(claims map[string]interface{}, key string) string {
	s, _ := claims[key].(string)
	return s
}

// email_verified 在 JWT 中为布尔值，部分旧令牌为字符串 "true"
func claimBool(claims map[string]interface{}, key string) bool {
	switch v := claims[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}
