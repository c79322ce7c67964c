package repository

import (
	"context"

	"gorm.io/gorm"

	"classpad/internal/model"
)

// CommentRepository 消息评论数据访问接口
type CommentRepository interface {
	Create(ctx context.Context, c *model.Comment) error
	GetByID(ctx context.Context, commentID string) (*model.Comment, error)
	ListByMessage(ctx context.Context, messageID string) ([]model.Comment, error)
	Delete(ctx context.Context, commentID string) error
}

type commentRepo struct {
	db *gorm.DB
}

// NewCommentRepo 创建 CommentRepository 实例
func NewCommentRepo(db *gorm.DB) CommentRepository {
	return &commentRepo{db: db}
}

func (r *commentRepo) Create(ctx context.Context, c *model.Comment) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *commentRepo) GetByID(ctx context.Context, commentID string) (*model.Comment, error) {
	var c model.Comment
	err := r.db.WithContext(ctx).
		Where("comment_id = ?", commentID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *commentRepo) ListByMessage(ctx context.Context, messageID string) ([]model.Comment, error) {
	var list []model.Comment
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("message_id = ?", messageID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *commentRepo) Delete(ctx context.Context, commentID string) error {
	return r.db.WithContext(ctx).
		Where("comment_id = ?", commentID).
		Delete(&model.Comment{}).Error
}
