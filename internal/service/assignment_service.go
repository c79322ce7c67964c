package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"classpad/internal/dto"
	"classpad/internal/model"
	"classpad/internal/repository"
	"classpad/pkg/ident"
)

// ── 作业模块业务错误 ──

var (
	ErrAttachmentNotFound = errors.New("附件不存在")
	ErrInvalidRubric      = errors.New("评分标准必须是合法的 JSON")
	ErrInvalidDueAt       = errors.New("截止时间格式错误")
)

const defaultMaxPoints = 100

// AssignmentService 作业与附件业务接口
type AssignmentService interface {
	Create(ctx context.Context, userID, rawCourseID string, req *dto.CreateAssignmentRequest) (*dto.AssignmentResponse, error)
	List(ctx context.Context, userID, rawCourseID string, req *dto.AssignmentListRequest) ([]dto.AssignmentResponse, error)
	Get(ctx context.Context, userID, rawID string) (*dto.AssignmentResponse, error)
	Update(ctx context.Context, userID, rawID string, req *dto.UpdateAssignmentRequest) (*dto.AssignmentResponse, error)
	Delete(ctx context.Context, userID, rawID string) error
	SetPublished(ctx context.Context, userID, rawID string, published bool) (*dto.AssignmentResponse, error)

	AddAttachmentFile(ctx context.Context, userID, rawID string, up *FileUpload) (*dto.FileResponse, error)
	AddAttachmentLink(ctx context.Context, userID, rawID string, req *dto.LinkRequest) (*dto.FileResponse, error)
	ListAttachments(ctx context.Context, userID, rawID string) ([]dto.FileResponse, error)
	DeleteAttachment(ctx context.Context, userID, rawID, rawAttachmentID string) error
}

type assignmentService struct {
	repo   *repository.Repository
	access AccessService
	files  *uploader
	notify Notifier
	logger *zap.Logger
}

// NewAssignmentService 创建 AssignmentService 实例
func NewAssignmentService(
	repo *repository.Repository,
	access AccessService,
	files *uploader,
	notify Notifier,
	logger *zap.Logger,
) AssignmentService {
	return &assignmentService{repo: repo, access: access, files: files, notify: notify, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *assignmentService) Create(ctx context.Context, userID, rawCourseID string, req *dto.CreateAssignmentRequest) (*dto.AssignmentResponse, error) {
	access, err := s.access.ResolveCourse(ctx, userID, rawCourseID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireTeacher(); err != nil {
		return nil, err
	}
	courseID := access.Course.CourseID

	a := &model.Assignment{
		CourseID:            courseID,
		Title:               strings.TrimSpace(req.Title),
		Description:         req.Description,
		Instructions:        req.Instructions,
		MaxPoints:           defaultMaxPoints,
		AllowLateSubmission: req.AllowLateSubmission,
		LatePenaltyPercent:  req.LatePenaltyPercent,
		CreatedBy:           strPtr(userID),
	}
	if req.MaxPoints != nil {
		a.MaxPoints = *req.MaxPoints
	}
	if req.UnitID != nil && *req.UnitID != "" {
		unitID, err := s.unitInCourse(ctx, *req.UnitID, courseID)
		if err != nil {
			return nil, err
		}
		a.UnitID = &unitID
	}
	if req.DueAt != nil {
		due, err := parseDueAt(*req.DueAt)
		if err != nil {
			return nil, err
		}
		a.DueAt = due
	}
	if rubric, err := parseRubric(req.Rubric); err != nil {
		return nil, err
	} else {
		a.Rubric = rubric
	}

	if err := s.repo.Assignment.Create(ctx, a); err != nil {
		s.logger.Error("创建作业失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, err
	}
	return toAssignmentResponse(a, nil), nil
}

// ────────────────────── Query ──────────────────────

func (s *assignmentService) List(ctx context.Context, userID, rawCourseID string, req *dto.AssignmentListRequest) ([]dto.AssignmentResponse, error) {
	access, err := s.access.ResolveCourse(ctx, userID, rawCourseID)
	if err != nil {
		return nil, err
	}

	filter := repository.AssignmentFilter{PublishedOnly: !access.Membership.IsTeacher()}
	if req != nil && req.UnitID != "" {
		unitID, err := ident.MustUUID(req.UnitID)
		if err != nil {
			return nil, ErrInvalidIdentifier
		}
		filter.UnitID = &unitID
	}

	list, err := s.repo.Assignment.ListByCourse(ctx, access.Course.CourseID, filter)
	if err != nil {
		s.logger.Error("查询作业列表失败", zap.String("course_id", access.Course.CourseID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.AssignmentResponse, 0, len(list))
	for i := range list {
		result = append(result, *toAssignmentResponse(&list[i], nil))
	}
	return result, nil
}

func (s *assignmentService) Get(ctx context.Context, userID, rawID string) (*dto.AssignmentResponse, error) {
	a, _, err := s.access.ResolveAssignment(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}
	attachments, err := s.repo.Attachment.ListByAssignment(ctx, a.AssignmentID)
	if err != nil {
		s.logger.Error("查询作业附件失败", zap.String("assignment_id", a.AssignmentID), zap.Error(err))
		return nil, err
	}
	return toAssignmentResponse(a, attachments), nil
}

// ────────────────────── Update / Delete ──────────────────────

func (s *assignmentService) Update(ctx context.Context, userID, rawID string, req *dto.UpdateAssignmentRequest) (*dto.AssignmentResponse, error) {
	a, err := s.teacherAssignment(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		a.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		a.Description = *req.Description
	}
	if req.Instructions != nil {
		a.Instructions = *req.Instructions
	}
	if req.UnitID != nil {
		if *req.UnitID == "" {
			a.UnitID = nil
		} else {
			unitID, err := s.unitInCourse(ctx, *req.UnitID, a.CourseID)
			if err != nil {
				return nil, err
			}
			a.UnitID = &unitID
		}
	}
	if req.ClearDueAt {
		a.DueAt = nil
	} else if req.DueAt != nil {
		due, err := parseDueAt(*req.DueAt)
		if err != nil {
			return nil, err
		}
		a.DueAt = due
	}
	if req.MaxPoints != nil {
		a.MaxPoints = *req.MaxPoints
	}
	if req.AllowLateSubmission != nil {
		a.AllowLateSubmission = *req.AllowLateSubmission
	}
	if req.LatePenaltyPercent != nil {
		a.LatePenaltyPercent = *req.LatePenaltyPercent
	}
	if len(req.Rubric) > 0 {
		rubric, err := parseRubric(req.Rubric)
		if err != nil {
			return nil, err
		}
		a.Rubric = rubric
	}

	if err := s.repo.Assignment.Update(ctx, a); err != nil {
		s.logger.Error("更新作业失败", zap.String("assignment_id", a.AssignmentID), zap.Error(err))
		return nil, err
	}
	return toAssignmentResponse(a, nil), nil
}

func (s *assignmentService) Delete(ctx context.Context, userID, rawID string) error {
	a, err := s.teacherAssignment(ctx, userID, rawID)
	if err != nil {
		return err
	}

	attachments, err := s.repo.Attachment.ListByAssignment(ctx, a.AssignmentID)
	if err != nil {
		return err
	}
	if err := s.repo.Assignment.Delete(ctx, a.AssignmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		s.logger.Error("删除作业失败", zap.String("assignment_id", a.AssignmentID), zap.Error(err))
		return err
	}
	for _, att := range attachments {
		s.files.remove(ctx, att.StorageKey)
	}
	return nil
}

// SetPublished 从未发布变为发布时通知课程成员
func (s *assignmentService) SetPublished(ctx context.Context, userID, rawID string, published bool) (*dto.AssignmentResponse, error) {
	a, err := s.teacherAssignment(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}

	wasPublished := a.IsPublished
	if err := s.repo.Assignment.SetPublished(ctx, a.AssignmentID, published); err != nil {
		s.logger.Error("更新作业发布状态失败", zap.String("assignment_id", a.AssignmentID), zap.Error(err))
		return nil, err
	}
	a.IsPublished = published

	if published && !wasPublished {
		s.notify.Notify(Event{
			Type:        model.NotifyAssignmentPublished,
			CourseID:    a.CourseID,
			ActorID:     userID,
			Body:        a.Title,
			RelatedType: "assignment",
			RelatedID:   a.AssignmentID,
		})
	}
	return toAssignmentResponse(a, nil), nil
}

// ────────────────────── Attachments ──────────────────────

func (s *assignmentService) AddAttachmentFile(ctx context.Context, userID, rawID string, up *FileUpload) (*dto.FileResponse, error) {
	a, err := s.teacherAssignment(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}

	obj, err := s.files.save(ctx, up)
	if err != nil {
		return nil, err
	}

	att := &model.AssignmentAttachment{
		AssignmentID: a.AssignmentID,
		Kind:         model.AttachmentFile,
		Title:        obj.Name,
		URL:          obj.URL,
		FileName:     obj.Name,
		FileSize:     obj.Size,
		MimeType:     obj.MimeType,
		StorageKey:   obj.Key,
		CreatedBy:    strPtr(userID),
	}
	if err := s.createAttachment(ctx, att); err != nil {
		s.files.remove(ctx, obj.Key)
		return nil, err
	}
	return toAttachmentResponse(att), nil
}

func (s *assignmentService) AddAttachmentLink(ctx context.Context, userID, rawID string, req *dto.LinkRequest) (*dto.FileResponse, error) {
	a, err := s.teacherAssignment(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = req.URL
	}
	att := &model.AssignmentAttachment{
		AssignmentID: a.AssignmentID,
		Kind:         model.AttachmentLink,
		Title:        title,
		URL:          req.URL,
		CreatedBy:    strPtr(userID),
	}
	if err := s.createAttachment(ctx, att); err != nil {
		return nil, err
	}
	return toAttachmentResponse(att), nil
}

func (s *assignmentService) ListAttachments(ctx context.Context, userID, rawID string) ([]dto.FileResponse, error) {
	a, _, err := s.access.ResolveAssignment(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.Attachment.ListByAssignment(ctx, a.AssignmentID)
	if err != nil {
		s.logger.Error("查询作业附件失败", zap.String("assignment_id", a.AssignmentID), zap.Error(err))
		return nil, err
	}
	return toAttachmentResponses(list), nil
}

func (s *assignmentService) DeleteAttachment(ctx context.Context, userID, rawID, rawAttachmentID string) error {
	a, err := s.teacherAssignment(ctx, userID, rawID)
	if err != nil {
		return err
	}
	attachmentID, err := ident.MustUUID(rawAttachmentID)
	if err != nil {
		return ErrInvalidIdentifier
	}

	att, err := s.repo.Attachment.GetByID(ctx, attachmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAttachmentNotFound
		}
		return err
	}
	if att.AssignmentID != a.AssignmentID {
		return ErrAttachmentNotFound
	}

	if err := s.repo.Attachment.Delete(ctx, att.AttachmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAttachmentNotFound
		}
		s.logger.Error("删除作业附件失败", zap.String("attachment_id", att.AttachmentID), zap.Error(err))
		return err
	}
	s.files.remove(ctx, att.StorageKey)
	return nil
}

// ── 内部辅助方法 ──

func (s *assignmentService) teacherAssignment(ctx context.Context, userID, rawID string) (*model.Assignment, error) {
	a, access, err := s.access.ResolveAssignment(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireTeacher(); err != nil {
		return nil, err
	}
	return a, nil
}

// unitInCourse 校验单元存在且属于同一课程
func (s *assignmentService) unitInCourse(ctx context.Context, rawUnitID, courseID string) (string, error) {
	unitID, err := ident.MustUUID(rawUnitID)
	if err != nil {
		return "", ErrInvalidIdentifier
	}
	unit, err := s.repo.Unit.GetByID(ctx, ident.ID{UUID: unitID})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUnitNotFound
		}
		return "", err
	}
	if unit.CourseID != courseID {
		return "", ErrUnitNotFound
	}
	return unit.UnitID, nil
}

func (s *assignmentService) createAttachment(ctx context.Context, att *model.AssignmentAttachment) error {
	order, err := s.repo.Attachment.NextOrderIndex(ctx, att.AssignmentID)
	if err != nil {
		return err
	}
	att.OrderIndex = order
	if err := s.repo.Attachment.Create(ctx, att); err != nil {
		s.logger.Error("保存作业附件失败", zap.String("assignment_id", att.AssignmentID), zap.Error(err))
		return err
	}
	return nil
}

func parseDueAt(raw string) (*time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, ErrInvalidDueAt
	}
	t = t.UTC()
	return &t, nil
}

func parseRubric(raw json.RawMessage) (datatypes.JSON, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, ErrInvalidRubric
	}
	return datatypes.JSON(raw), nil
}

func toAssignmentResponse(a *model.Assignment, attachments []model.AssignmentAttachment) *dto.AssignmentResponse {
	resp := &dto.AssignmentResponse{
		ID:                  a.AssignmentID,
		LegacyID:            a.LegacyID,
		CourseID:            a.CourseID,
		UnitID:              a.UnitID,
		Title:               a.Title,
		Description:         a.Description,
		Instructions:        a.Instructions,
		DueAt:               dto.FormatTimePtr(a.DueAt),
		MaxPoints:           a.MaxPoints,
		AllowLateSubmission: a.AllowLateSubmission,
		LatePenaltyPercent:  a.LatePenaltyPercent,
		IsPublished:         a.IsPublished,
		CreatedAt:           dto.FormatTime(a.CreatedAt),
	}
	if len(a.Rubric) > 0 {
		resp.Rubric = json.RawMessage(a.Rubric)
	}
	if attachments != nil {
		resp.Attachments = toAttachmentResponses(attachments)
	}
	return resp
}

func toAttachmentResponse(att *model.AssignmentAttachment) *dto.FileResponse {
	return &dto.FileResponse{
		ID:         att.AttachmentID,
		Kind:       att.Kind,
		Title:      att.Title,
		URL:        att.URL,
		FileName:   att.FileName,
		FileSize:   att.FileSize,
		MimeType:   att.MimeType,
		OrderIndex: att.OrderIndex,
		CreatedAt:  dto.FormatTime(att.CreatedAt),
	}
}

func toAttachmentResponses(list []model.AssignmentAttachment) []dto.FileResponse {
	out := make([]dto.FileResponse, 0, len(list))
	for i := range list {
		out = append(out, *toAttachmentResponse(&list[i]))
	}
	return out
}
