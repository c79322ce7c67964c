package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"classpad/config"
	"classpad/internal/dto"
	"classpad/internal/model"
	"classpad/internal/repository"
	pkgerrors "classpad/pkg/errors"
	"classpad/pkg/ident"
	"classpad/pkg/jwt"
	"classpad/pkg/oauth"
)

// ── 认证模块业务错误 ──

var (
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrAccountDeactivated = errors.New("账号已停用")
	ErrProviderMismatch   = errors.New("该账号使用其他方式登录")
	ErrEmailExists        = errors.New("邮箱已被注册")
	ErrPasswordTooShort   = errors.New("密码长度不足")
	ErrOldPasswordWrong   = errors.New("原密码错误")
	ErrOAuthUnavailable   = errors.New("第三方登录不可用")
)

// TokenBlacklist 已注销 Token 的存储，Redis 不可用时为 nil
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// Identity 解析 Access Token 后的调用者身份
type Identity struct {
	UserID    string
	Email     string
	Role      string
	Provider  string
	TokenID   string
	ExpiresAt time.Time
}

// AuthService 认证业务接口
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.TokenResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	OAuthLogin(ctx context.Context, provider string, req *dto.OAuthLoginRequest) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context, tokenID string, expiresAt time.Time) error
	ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error
	// ResolveIdentity 校验 Access Token 并加载当前用户
	ResolveIdentity(ctx context.Context, token string) (*Identity, error)
}

type authService struct {
	cfg       *config.Config
	repo      *repository.Repository
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	verifiers map[string]oauth.Verifier
	logger    *zap.Logger
	clock     clock
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	verifiers map[string]oauth.Verifier,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:       cfg,
		repo:      repo,
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		verifiers: verifiers,
		logger:    logger,
	}
}

// ────────────────────── Register ──────────────────────

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.TokenResponse, error) {
	if utf8.RuneCountInString(req.Password) < s.cfg.Auth.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	email := normalizeEmail(req.Email)
	if _, err := s.repo.User.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = model.RoleStudent
	}
	hashStr := string(hash)
	user := &model.User{
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: &hashStr,
		Provider:     model.ProviderLocal,
		Role:         role,
		IsActive:     true,
	}

	if err := s.repo.User.Create(ctx, user); err != nil {
		// 并发注册同一邮箱时由唯一约束兜底
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrEmailExists
		}
		s.logger.Error("创建用户失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("用户注册成功", zap.String("user_id", user.UserID), zap.String("role", user.Role))
	return s.issueTokens(user)
}

// ────────────────────── Login ──────────────────────

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询用户
	user, err := s.repo.User.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 2. 第三方账号不允许密码登录
	if user.Provider != model.ProviderLocal || user.PasswordHash == nil {
		return nil, ErrProviderMismatch
	}

	// 3. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}

	s.touchLastLogin(ctx, user)
	return s.issueTokens(user)
}

// ────────────────────── OAuthLogin ──────────────────────

func (s *authService) OAuthLogin(ctx context.Context, provider string, req *dto.OAuthLoginRequest) (*dto.TokenResponse, error) {
	verifier, ok := s.verifiers[provider]
	if !ok {
		return nil, ErrOAuthUnavailable
	}

	id, err := verifier.Verify(ctx, req.IDToken)
	if err != nil {
		if errors.Is(err, oauth.ErrNotConfigured) {
			return nil, ErrOAuthUnavailable
		}
		s.logger.Warn("第三方令牌校验失败", zap.String("provider", provider), zap.Error(err))
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.User.GetByEmail(ctx, id.Email)
	switch {
	case err == nil:
		if user.Provider != provider {
			return nil, ErrProviderMismatch
		}
		if !user.IsActive {
			return nil, ErrAccountDeactivated
		}
		if user.AvatarURL == nil && id.PhotoURL != "" {
			user.AvatarURL = strPtr(id.PhotoURL)
			if err := s.repo.User.UpdateFields(ctx, user.UserID, map[string]interface{}{"avatar_url": id.PhotoURL}); err != nil {
				s.logger.Warn("更新头像失败", zap.String("user_id", user.UserID), zap.Error(err))
			}
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// 首次登录创建学生账号
		name := strings.TrimSpace(id.Name)
		if name == "" {
			name = strings.SplitN(id.Email, "@", 2)[0]
		}
		user = &model.User{
			Email:    id.Email,
			Name:     name,
			Provider: provider,
			Role:     model.RoleStudent,
			IsActive: true,
		}
		if id.PhotoURL != "" {
			user.AvatarURL = strPtr(id.PhotoURL)
		}
		if err := s.repo.User.Create(ctx, user); err != nil {
			if pkgerrors.IsUniqueViolation(err) {
				return nil, ErrProviderMismatch
			}
			s.logger.Error("创建第三方用户失败", zap.Error(err))
			return nil, err
		}
		s.logger.Info("第三方用户首次登录", zap.String("user_id", user.UserID), zap.String("provider", provider))
	default:
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	s.touchLastLogin(ctx, user)
	return s.issueTokens(user)
}

// ────────────────────── Refresh ──────────────────────

func (s *authService) Refresh(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(req.RefreshToken)
	if err != nil || claims.TokenType != jwt.TokenTypeRefresh {
		return nil, ErrInvalidCredentials
	}
	if s.isRevoked(ctx, claims.ID) {
		return nil, ErrInvalidCredentials
	}

	user, err := s.loadUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	// 旧的 Refresh Token 作废
	if claims.ExpiresAt != nil {
		s.revoke(ctx, claims.ID, claims.ExpiresAt.Time)
	}
	return s.issueTokens(user)
}

// ────────────────────── Logout ──────────────────────

func (s *authService) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}
	s.revoke(ctx, tokenID, expiresAt)
	return nil
}

// ────────────────────── ChangePassword ──────────────────────

func (s *authService) ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error {
	user, err := s.repo.User.GetByID(ctx, ident.ID{UUID: userID})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if user.Provider != model.ProviderLocal || user.PasswordHash == nil {
		return ErrProviderMismatch
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return ErrOldPasswordWrong
	}
	if utf8.RuneCountInString(req.NewPassword) < s.cfg.Auth.MinPasswordLength {
		return ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return err
	}
	if err := s.repo.User.UpdateFields(ctx, userID, map[string]interface{}{"password_hash": string(hash)}); err != nil {
		s.logger.Error("更新密码失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── ResolveIdentity ──────────────────────

func (s *authService) ResolveIdentity(ctx context.Context, token string) (*Identity, error) {
	claims, err := s.jwtMgr.ParseToken(token)
	if err != nil || claims.TokenType != jwt.TokenTypeAccess {
		return nil, ErrInvalidCredentials
	}
	if s.isRevoked(ctx, claims.ID) {
		return nil, ErrInvalidCredentials
	}

	user, err := s.loadUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	id := &Identity{
		UserID:   user.UserID,
		Email:    user.Email,
		Role:     user.Role,
		Provider: user.Provider,
		TokenID:  claims.ID,
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

// ── 内部辅助方法 ──

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// loadUser 加载 Token 对应用户：不存在视为凭证无效，停用返回 ErrAccountDeactivated
func (s *authService) loadUser(ctx context.Context, userID string) (*model.User, error) {
	uid, err := ident.MustUUID(userID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := s.repo.User.GetByID(ctx, ident.ID{UUID: uid})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.String("user_id", uid), zap.Error(err))
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}
	return user, nil
}

func (s *authService) issueTokens(user *model.User) (*dto.TokenResponse, error) {
	sub := jwt.Subject{
		UserID:   user.UserID,
		Email:    user.Email,
		Role:     user.Role,
		Provider: user.Provider,
	}

	accessToken, err := s.jwtMgr.GenerateAccessToken(sub)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}
	refreshToken, err := s.jwtMgr.GenerateRefreshToken(sub)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User:         toUserResponse(user),
	}, nil
}

func (s *authService) touchLastLogin(ctx context.Context, user *model.User) {
	now := s.clock.now()
	user.LastLoginAt = &now
	if err := s.repo.User.UpdateFields(ctx, user.UserID, map[string]interface{}{"last_login_at": now}); err != nil {
		s.logger.Warn("更新最后登录时间失败", zap.String("user_id", user.UserID), zap.Error(err))
	}
}

// isRevoked 黑名单不可用时放行，只记录告警
func (s *authService) isRevoked(ctx context.Context, jti string) bool {
	if s.blacklist == nil || jti == "" {
		return false
	}
	revoked, err := s.blacklist.IsBlacklisted(ctx, jti)
	if err != nil {
		s.logger.Warn("查询 Token 黑名单失败", zap.Error(err))
		return false
	}
	return revoked
}

func (s *authService) revoke(ctx context.Context, jti string, expiresAt time.Time) {
	if s.blacklist == nil {
		return
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	if err := s.blacklist.BlacklistToken(ctx, jti, ttl); err != nil {
		s.logger.Warn("写入 Token 黑名单失败", zap.Error(err))
	}
}
