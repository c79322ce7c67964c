package repository

import (
	"context"

	"gorm.io/gorm"

	"classpad/internal/model"
	"classpad/pkg/ident"
)

// MessageRepository 课程消息数据访问接口
type MessageRepository interface {
	Create(ctx context.Context, m *model.Message) error
	GetByID(ctx context.Context, id ident.ID) (*model.Message, error)
	ListByCourse(ctx context.Context, courseID string, offset, limit int) ([]model.Message, int64, error)
	Delete(ctx context.Context, messageID string) error
}

type messageRepo struct {
	db *gorm.DB
}

// NewMessageRepo 创建 MessageRepository 实例
func NewMessageRepo(db *gorm.DB) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) Create(ctx context.Context, m *model.Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *messageRepo) GetByID(ctx context.Context, id ident.ID) (*model.Message, error) {
	var m model.Message
	query, arg := id.Where("message_id")
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where(query, arg).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *messageRepo) ListByCourse(ctx context.Context, courseID string, offset, limit int) ([]model.Message, int64, error) {
	var list []model.Message
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Message{}).Where("course_id = ?", courseID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Author").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *messageRepo) Delete(ctx context.Context, messageID string) error {
	return r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		Delete(&model.Message{}).Error
}
