package service

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"classpad/internal/dto"
	"classpad/internal/model"
	"classpad/pkg/storage"
)

// FileUpload Handler 从 multipart 中取出的上传文件
type FileUpload struct {
	Name     string
	Size     int64
	MimeType string
	Reader   io.Reader
}

// uploader 校验上传限制并写入文件存储
type uploader struct {
	store  storage.Store
	policy storage.Policy
	logger *zap.Logger
}

func (u *uploader) save(ctx context.Context, up *FileUpload) (*storage.Object, error) {
	mimeType, err := u.policy.Check(up.Size, up.MimeType)
	if err != nil {
		return nil, err
	}
	obj, err := u.store.Save(ctx, up.Reader, up.Name, mimeType)
	if err != nil {
		u.logger.Error("保存上传文件失败", zap.String("name", up.Name), zap.Error(err))
		return nil, err
	}
	return obj, nil
}

// remove 删除文件对象，失败只记录日志
func (u *uploader) remove(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := u.store.Delete(ctx, key); err != nil {
		u.logger.Warn("删除存储文件失败", zap.String("key", key), zap.Error(err))
	}
}

// clock 便于测试替换当前时间
type clock func() time.Time

func (c clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

// ── DTO 转换 ──

func toUserResponse(u *model.User) *dto.UserResponse {
	resp := &dto.UserResponse{
		ID:          u.UserID,
		LegacyID:    u.LegacyID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		Provider:    u.Provider,
		IsActive:    u.IsActive,
		AvatarURL:   u.AvatarURL,
		Location:    u.Location,
		Gender:      u.Gender,
		Phone:       u.Phone,
		LastLoginAt: dto.FormatTimePtr(u.LastLoginAt),
		CreatedAt:   dto.FormatTime(u.CreatedAt),
	}
	if u.BirthDate != nil {
		d := u.BirthDate.Format("2006-01-02")
		resp.BirthDate = &d
	}
	return resp
}

func toUserBrief(u *model.User) *dto.UserBrief {
	if u == nil {
		return nil
	}
	return &dto.UserBrief{
		ID:        u.UserID,
		Name:      u.Name,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
	}
}

func strPtr(s string) *string { return &s }
