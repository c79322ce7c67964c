// Package storage 保存上传文件并返回可公开访问的元数据。
// 文件一经写入不再修改，替换时先删除再重新上传。
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"classpad/config"
)

var (
	ErrFileTooLarge       = errors.New("文件超过大小限制")
	ErrUnsupportedType    = errors.New("不支持的文件类型")
	ErrEmptyFile          = errors.New("文件内容为空")
	ErrObjectNotFound     = errors.New("文件不存在")
	errUnknownStoreDriver = errors.New("未知的存储驱动")
)

// Object 已保存文件的元数据
type Object struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
	Key      string `json:"-"`
}

// Store 文件存储
type Store interface {
	Save(ctx context.Context, r io.Reader, originalName, mimeType string) (*Object, error)
	Delete(ctx context.Context, key string) error
}

// Policy 上传限制：大小上限与 MIME 白名单
type Policy struct {
	MaxBytes int64
	allowed  map[string]struct{}
}

// NewPolicy 根据配置构建上传限制
func NewPolicy(maxBytes int64, allowedMimeTypes []string) Policy {
	allowed := make(map[string]struct{}, len(allowedMimeTypes))
	for _, m := range allowedMimeTypes {
		allowed[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}
	return Policy{MaxBytes: maxBytes, allowed: allowed}
}

// Check 校验声明的大小与类型，返回规范化后的 MIME
func (p Policy) Check(size int64, mimeType string) (string, error) {
	if size <= 0 {
		return "", ErrEmptyFile
	}
	if p.MaxBytes > 0 && size > p.MaxBytes {
		return "", ErrFileTooLarge
	}
	normalized := NormalizeMime(mimeType)
	if len(p.allowed) > 0 {
		if _, ok := p.allowed[normalized]; !ok {
			return "", ErrUnsupportedType
		}
	}
	return normalized, nil
}

// NormalizeMime 去掉参数部分并转小写，例如 "text/plain; charset=utf-8" → "text/plain"
func NormalizeMime(mimeType string) string {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mimeType))
	}
	return mt
}

// New 按配置创建存储驱动
func New(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStore(cfg.Local.Dir, cfg.Local.PublicURL, cfg.MaxFileBytes)
	case "b2":
		return NewB2Store(ctx, cfg.B2.AccountID, cfg.B2.ApplicationKey, cfg.B2.Bucket, cfg.MaxFileBytes, logger)
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownStoreDriver, cfg.Driver)
	}
}

// newKey 生成随机文件名，保留原始扩展名
func newKey(originalName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return uuid.NewString() + ext
}

// limitedCopy 复制至多 max 字节，超出返回 ErrFileTooLarge
func limitedCopy(dst io.Writer, src io.Reader, max int64) (int64, error) {
	if max <= 0 {
		return io.Copy(dst, src)
	}
	n, err := io.Copy(dst, io.LimitReader(src, max+1))
	if err != nil {
		return n, err
	}
	if n > max {
		return n, ErrFileTooLarge
	}
	return n, nil
}
