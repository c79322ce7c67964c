package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/kurin/blazer/b2"
	"go.uber.org/zap"
)

// B2Store Backblaze B2 存储
type B2Store struct {
	client   *b2.Client
	bucket   *b2.Bucket
	maxBytes int64
	logger   *zap.Logger
}

// NewB2Store 连接 B2 并打开 bucket
func NewB2Store(ctx context.Context, accountID, appKey, bucketName string, maxBytes int64, logger *zap.Logger) (*B2Store, error) {
	client, err := b2.NewClient(ctx, accountID, appKey)
	if err != nil {
		return nil, fmt.Errorf("创建 B2 客户端失败: %w", err)
	}

	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("打开 B2 bucket 失败: %w", err)
	}

	logger.Info("B2 存储已连接", zap.String("bucket", bucketName))

	return &B2Store{client: client, bucket: bucket, maxBytes: maxBytes, logger: logger}, nil
}

// Save 上传对象，返回 <base>/file/<bucket>/<key> 形式的公开地址
func (s *B2Store) Save(ctx context.Context, r io.Reader, originalName, mimeType string) (*Object, error) {
	key := newKey(originalName)
	normalized := NormalizeMime(mimeType)

	obj := s.bucket.Object(key)
	w := obj.NewWriter(ctx).WithAttrs(&b2.Attrs{ContentType: normalized})

	n, err := limitedCopy(w, r, s.maxBytes)
	if err != nil {
		// 超限时放弃已写入的部分
		_ = w.Close()
		if delErr := obj.Delete(ctx); delErr != nil {
			s.logger.Warn("清理未完成的 B2 对象失败", zap.String("key", key), zap.Error(delErr))
		}
		if errors.Is(err, ErrFileTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("写入 B2 对象失败: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("关闭 B2 写入器失败: %w", err)
	}
	if n == 0 {
		_ = obj.Delete(ctx)
		return nil, ErrEmptyFile
	}

	return &Object{
		URL:      fmt.Sprintf("%s/file/%s/%s", s.bucket.BaseURL(), s.bucket.Name(), key),
		Name:     filepath.Base(originalName),
		Size:     n,
		MimeType: normalized,
		Key:      key,
	}, nil
}

// Delete 删除对象
func (s *B2Store) Delete(ctx context.Context, key string) error {
	if err := s.bucket.Object(key).Delete(ctx); err != nil {
		if b2.IsNotExist(err) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("删除 B2 对象失败: %w", err)
	}
	return nil
}
