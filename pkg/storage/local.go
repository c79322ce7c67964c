package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore 本地磁盘存储，文件通过 /uploads 静态路由对外提供
type LocalStore struct {
	dir       string
	publicURL string
	maxBytes  int64
}

// NewLocalStore 创建本地存储并确保目录存在
func NewLocalStore(dir, publicURL string, maxBytes int64) (*LocalStore, error) {
	if dir == "" {
		dir = "./uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建上传目录失败: %w", err)
	}
	return &LocalStore{
		dir:       dir,
		publicURL: strings.TrimRight(publicURL, "/"),
		maxBytes:  maxBytes,
	}, nil
}

// Dir 上传目录（用于挂载静态路由）
func (s *LocalStore) Dir() string {
	return s.dir
}

// Save 写入 <dir>/<uuid><ext>
func (s *LocalStore) Save(ctx context.Context, r io.Reader, originalName, mimeType string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := newKey(originalName)
	path := filepath.Join(s.dir, key)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("创建文件失败: %w", err)
	}

	n, err := limitedCopy(f, r, s.maxBytes)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		if errors.Is(err, ErrFileTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("写入文件失败: %w", err)
	}
	if n == 0 {
		_ = os.Remove(path)
		return nil, ErrEmptyFile
	}

	return &Object{
		URL:      s.publicURL + "/" + key,
		Name:     filepath.Base(originalName),
		Size:     n,
		MimeType: NormalizeMime(mimeType),
		Key:      key,
	}, nil
}

// Delete 删除文件；key 只能是单层文件名
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if key == "" || key != filepath.Base(key) || key == "." || key == ".." {
		return ErrObjectNotFound
	}
	if err := os.Remove(filepath.Join(s.dir, key)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("删除文件失败: %w", err)
	}
	return nil
}
