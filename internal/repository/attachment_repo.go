package repository

import (
	"context"

	"gorm.io/gorm"

	"classpad/internal/model"
)

// AttachmentRepository 作业附件数据访问接口
type AttachmentRepository interface {
	Create(ctx context.Context, a *model.AssignmentAttachment) error
	GetByID(ctx context.Context, attachmentID string) (*model.AssignmentAttachment, error)
	ListByAssignment(ctx context.Context, assignmentID string) ([]model.AssignmentAttachment, error)
	NextOrderIndex(ctx context.Context, assignmentID string) (int, error)
	Delete(ctx context.Context, attachmentID string) error
}

type attachmentRepo struct {
	db *gorm.DB
}

// NewAttachmentRepo 创建 AttachmentRepository 实例
func NewAttachmentRepo(db *gorm.DB) AttachmentRepository {
	return &attachmentRepo{db: db}
}

func (r *attachmentRepo) Create(ctx context.Context, a *model.AssignmentAttachment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *attachmentRepo) GetByID(ctx context.Context, attachmentID string) (*model.AssignmentAttachment, error) {
	var a model.AssignmentAttachment
	err := r.db.WithContext(ctx).
		Where("attachment_id = ?", attachmentID).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *attachmentRepo) ListByAssignment(ctx context.Context, assignmentID string) ([]model.AssignmentAttachment, error) {
	var list []model.AssignmentAttachment
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("order_index ASC, created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *attachmentRepo) NextOrderIndex(ctx context.Context, assignmentID string) (int, error) {
	var max *int
	err := r.db.WithContext(ctx).
		Model(&model.AssignmentAttachment{}).
		Where("assignment_id = ?", assignmentID).
		Select("MAX(order_index)").
		Scan(&max).Error
	if err != nil || max == nil {
		return 0, err
	}
	return *max + 1, nil
}

func (r *attachmentRepo) Delete(ctx context.Context, attachmentID string) error {
	return r.db.WithContext(ctx).
		Where("attachment_id = ?", attachmentID).
		Delete(&model.AssignmentAttachment{}).Error
}
