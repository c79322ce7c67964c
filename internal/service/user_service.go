package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"classpad/internal/dto"
	"classpad/internal/model"
	"classpad/internal/repository"
	"classpad/pkg/ident"
)

// ── 用户模块业务错误 ──

var (
	ErrUserSelfDelete     = errors.New("不能删除自己")
	ErrUserSelfDeactivate = errors.New("不能停用自己")
	ErrInvalidBirthDate   = errors.New("出生日期格式错误")
)

// UserService 用户业务接口
type UserService interface {
	GetProfile(ctx context.Context, userID string) (*dto.UserResponse, error)
	UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error)
	// 以下为管理员接口
	List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error)
	GetByID(ctx context.Context, rawID string) (*dto.UserResponse, error)
	SetActive(ctx context.Context, callerID, rawID string, active bool) (*dto.UserResponse, error)
	Delete(ctx context.Context, callerID, rawID string) error
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

// ────────────────────── Profile ──────────────────────

func (s *userService) GetProfile(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.load(ctx, ident.ID{UUID: userID})
	if err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	user, err := s.load(ctx, ident.ID{UUID: userID})
	if err != nil {
		return nil, err
	}

	// 应用更新字段（仅更新非 nil 字段）
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.AvatarURL != nil {
		user.AvatarURL = emptyToNil(*req.AvatarURL)
	}
	if req.Location != nil {
		user.Location = emptyToNil(*req.Location)
	}
	if req.Gender != nil {
		user.Gender = emptyToNil(*req.Gender)
	}
	if req.Phone != nil {
		user.Phone = emptyToNil(*req.Phone)
	}
	if req.BirthDate != nil {
		if *req.BirthDate == "" {
			user.BirthDate = nil
		} else {
			d, err := time.Parse("2006-01-02", *req.BirthDate)
			if err != nil {
				return nil, ErrInvalidBirthDate
			}
			user.BirthDate = &d
		}
	}

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("更新个人资料失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return toUserResponse(user), nil
}

// ────────────────────── Admin ──────────────────────

func (s *userService) List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, int64, error) {
	filter := repository.UserFilter{
		Role:     req.Role,
		Keyword:  req.Keyword,
		IsActive: req.IsActive,
	}

	users, total, err := s.repo.User.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出用户失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, *toUserResponse(&users[i]))
	}
	return result, total, nil
}

func (s *userService) GetByID(ctx context.Context, rawID string) (*dto.UserResponse, error) {
	id, err := ident.Parse(rawID)
	if err != nil {
		return nil, ErrInvalidIdentifier
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

func (s *userService) SetActive(ctx context.Context, callerID, rawID string, active bool) (*dto.UserResponse, error) {
	id, err := ident.Parse(rawID)
	if err != nil {
		return nil, ErrInvalidIdentifier
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.UserID == callerID && !active {
		return nil, ErrUserSelfDeactivate
	}

	if err := s.repo.User.UpdateFields(ctx, user.UserID, map[string]interface{}{"is_active": active}); err != nil {
		s.logger.Error("更新账号状态失败", zap.String("user_id", user.UserID), zap.Error(err))
		return nil, err
	}
	user.IsActive = active

	s.logger.Info("账号状态已变更",
		zap.String("user_id", user.UserID),
		zap.Bool("is_active", active),
		zap.String("operator", callerID))
	return toUserResponse(user), nil
}

// Delete 硬删除，关联数据由外键级联清理
func (s *userService) Delete(ctx context.Context, callerID, rawID string) error {
	id, err := ident.Parse(rawID)
	if err != nil {
		return ErrInvalidIdentifier
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if user.UserID == callerID {
		return ErrUserSelfDelete
	}

	if err := s.repo.User.Delete(ctx, user.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("删除用户失败", zap.String("user_id", user.UserID), zap.Error(err))
		return err
	}
	s.logger.Info("用户已删除", zap.String("user_id", user.UserID), zap.String("operator", callerID))
	return nil
}

// ── 内部辅助方法 ──

func (s *userService) load(ctx context.Context, id ident.ID) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id.String()), zap.Error(err))
		return nil, err
	}
	return user, nil
}

func emptyToNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
