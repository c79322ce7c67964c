package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"classpad/internal/dto"
	"classpad/internal/model"
	"classpad/internal/repository"
	"classpad/pkg/ident"
)

var ErrCommentNotFound = errors.New("评论不存在")

// MessageService 课程消息与评论
type MessageService interface {
	Create(ctx context.Context, userID, rawCourseID string, req *dto.CreateMessageRequest) (*dto.MessageResponse, error)
	List(ctx context.Context, userID, rawCourseID string, req *dto.PaginationRequest) ([]dto.MessageResponse, int64, error)
	Delete(ctx context.Context, userID, rawID string) error

	AddComment(ctx context.Context, userID, rawMessageID string, req *dto.CreateCommentRequest) (*dto.CommentResponse, error)
	ListComments(ctx context.Context, userID, rawMessageID string) ([]dto.CommentResponse, error)
	DeleteComment(ctx context.Context, userID, rawCommentID string) error
}

type messageService struct {
	repo   *repository.Repository
	access AccessService
	notify Notifier
	logger *zap.Logger
}

// NewMessageService 创建 MessageService 实例
func NewMessageService(repo *repository.Repository, access AccessService, notify Notifier, logger *zap.Logger) MessageService {
	return &messageService{repo: repo, access: access, notify: notify, logger: logger}
}

// ────────────────────── 消息 ──────────────────────

func (s *messageService) Create(ctx context.Context, userID, rawCourseID string, req *dto.CreateMessageRequest) (*dto.MessageResponse, error) {
	access, err := s.access.ResolveCourse(ctx, userID, rawCourseID)
	if err != nil {
		return nil, err
	}
	if !access.Membership.HasAccess() {
		return nil, ErrAccessDenied
	}

	msg := &model.Message{
		CourseID: access.Course.CourseID,
		AuthorID: userID,
		Title:    strings.TrimSpace(req.Title),
		Content:  req.Content,
	}
	if err := s.repo.Message.Create(ctx, msg); err != nil {
		s.logger.Error("发布消息失败", zap.String("course_id", msg.CourseID), zap.Error(err))
		return nil, err
	}

	s.notify.Notify(Event{
		Type:        model.NotifyMessage,
		CourseID:    msg.CourseID,
		ActorID:     userID,
		Body:        msg.Content,
		RelatedType: "message",
		RelatedID:   msg.MessageID,
	})

	if saved, err := s.repo.Message.GetByID(ctx, ident.ID{UUID: msg.MessageID}); err == nil {
		msg = saved
	}
	return toMessageResponse(msg), nil
}

func (s *messageService) List(ctx context.Context, userID, rawCourseID string, req *dto.PaginationRequest) ([]dto.MessageResponse, int64, error) {
	access, err := s.access.ResolveCourse(ctx, userID, rawCourseID)
	if err != nil {
		return nil, 0, err
	}

	list, total, err := s.repo.Message.ListByCourse(ctx, access.Course.CourseID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询消息列表失败", zap.String("course_id", access.Course.CourseID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.MessageResponse, 0, len(list))
	for i := range list {
		result = append(result, *toMessageResponse(&list[i]))
	}
	return result, total, nil
}

// Delete 作者本人或课程教师可删除
func (s *messageService) Delete(ctx context.Context, userID, rawID string) error {
	msg, access, err := s.access.ResolveMessage(ctx, userID, rawID)
	if err != nil {
		return err
	}
	if msg.AuthorID != userID && !access.Membership.IsTeacher() {
		return ErrAccessDenied
	}

	if err := s.repo.Message.Delete(ctx, msg.MessageID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		s.logger.Error("删除消息失败", zap.String("message_id", msg.MessageID), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── 评论 ──────────────────────

// AddComment 通知消息作者与课程教师
func (s *messageService) AddComment(ctx context.Context, userID, rawMessageID string, req *dto.CreateCommentRequest) (*dto.CommentResponse, error) {
	msg, _, err := s.access.ResolveMessage(ctx, userID, rawMessageID)
	if err != nil {
		return nil, err
	}

	c := &model.Comment{
		MessageID: msg.MessageID,
		AuthorID:  userID,
		Content:   req.Content,
	}
	if err := s.repo.Comment.Create(ctx, c); err != nil {
		s.logger.Error("发表评论失败", zap.String("message_id", msg.MessageID), zap.Error(err))
		return nil, err
	}

	s.notify.Notify(Event{
		Type:         model.NotifyComment,
		CourseID:     msg.CourseID,
		TeachersOnly: true,
		ActorID:      userID,
		UserIDs:      []string{msg.AuthorID},
		Body:         c.Content,
		RelatedType:  "message",
		RelatedID:    msg.MessageID,
	})

	if author, err := s.repo.User.GetByID(ctx, ident.ID{UUID: userID}); err == nil {
		c.Author = author
	}
	return toCommentResponse(c), nil
}

func (s *messageService) ListComments(ctx context.Context, userID, rawMessageID string) ([]dto.CommentResponse, error) {
	msg, _, err := s.access.ResolveMessage(ctx, userID, rawMessageID)
	if err != nil {
		return nil, err
	}

	list, err := s.repo.Comment.ListByMessage(ctx, msg.MessageID)
	if err != nil {
		s.logger.Error("查询评论失败", zap.String("message_id", msg.MessageID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.CommentResponse, 0, len(list))
	for i := range list {
		result = append(result, *toCommentResponse(&list[i]))
	}
	return result, nil
}

// DeleteComment 评论作者或课程教师可删除
func (s *messageService) DeleteComment(ctx context.Context, userID, rawCommentID string) error {
	commentID, err := ident.MustUUID(rawCommentID)
	if err != nil {
		return ErrInvalidIdentifier
	}
	c, err := s.repo.Comment.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return err
	}

	_, access, err := s.access.ResolveMessage(ctx, userID, c.MessageID)
	if err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			return ErrCommentNotFound
		}
		return err
	}
	if c.AuthorID != userID && !access.Membership.IsTeacher() {
		return ErrAccessDenied
	}

	if err := s.repo.Comment.Delete(ctx, c.CommentID); err != nil {
		s.logger.Error("删除评论失败", zap.String("comment_id", c.CommentID), zap.Error(err))
		return err
	}
	return nil
}

func toMessageResponse(m *model.Message) *dto.MessageResponse {
	return &dto.MessageResponse{
		ID:        m.MessageID,
		CourseID:  m.CourseID,
		Author:    toUserBrief(m.Author),
		Title:     m.Title,
		Content:   m.Content,
		CreatedAt: dto.FormatTime(m.CreatedAt),
	}
}

func toCommentResponse(c *model.Comment) *dto.CommentResponse {
	return &dto.CommentResponse{
		ID:        c.CommentID,
		MessageID: c.MessageID,
		Author:    toUserBrief(c.Author),
		Content:   c.Content,
		CreatedAt: dto.FormatTime(c.CreatedAt),
	}
}
