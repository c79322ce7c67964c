package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"classpad/internal/dto"
	"classpad/internal/model"
	"classpad/internal/repository"
	"classpad/pkg/ident"
)

// ── 提交模块业务错误 ──

var (
	ErrAlreadySubmitted       = errors.New("作业已提交，不能再修改")
	ErrNotSubmitted           = errors.New("作业尚未提交，不能评分")
	ErrGradeOutOfRange        = errors.New("分数超出作业满分范围")
	ErrSubmissionFileNotFound = errors.New("提交文件不存在")
	ErrSubmissionOwnerOnly    = errors.New("只能修改自己的提交")
)

// SubmissionService 作业提交与评分业务接口
type SubmissionService interface {
	SaveDraft(ctx context.Context, userID, rawAssignmentID string, req *dto.SaveDraftRequest) (*dto.SubmissionResponse, error)
	Submit(ctx context.Context, userID, rawAssignmentID string, req *dto.SubmitRequest) (*dto.SubmissionResponse, error)
	GetMine(ctx context.Context, userID, rawAssignmentID string) (*dto.SubmissionResponse, error)
	ListForAssignment(ctx context.Context, userID, rawAssignmentID string) ([]dto.SubmissionResponse, error)
	Get(ctx context.Context, userID, rawID string) (*dto.SubmissionResponse, error)
	Grade(ctx context.Context, userID, rawID string, req *dto.GradeRequest) (*dto.SubmissionResponse, error)
	AddFile(ctx context.Context, userID, rawID string, up *FileUpload) (*dto.FileResponse, error)
	DeleteFile(ctx context.Context, userID, rawID, rawFileID string) error
}

type submissionService struct {
	repo   *repository.Repository
	access AccessService
	files  *uploader
	notify Notifier
	clock  clock
	logger *zap.Logger
}

// NewSubmissionService 创建 SubmissionService 实例
func NewSubmissionService(
	repo *repository.Repository,
	access AccessService,
	files *uploader,
	notify Notifier,
	logger *zap.Logger,
) SubmissionService {
	return &submissionService{repo: repo, access: access, files: files, notify: notify, logger: logger}
}

// ────────────────────── 学生端 ──────────────────────

// SaveDraft 保存草稿；已提交的记录由 ON CONFLICT ... WHERE status='draft' 拒绝
func (s *submissionService) SaveDraft(ctx context.Context, userID, rawAssignmentID string, req *dto.SaveDraftRequest) (*dto.SubmissionResponse, error) {
	a, err := s.studentAssignment(ctx, userID, rawAssignmentID)
	if err != nil {
		return nil, err
	}

	sub := &model.Submission{
		AssignmentID: a.AssignmentID,
		StudentID:    userID,
		Content:      req.Content,
	}
	ok, err := s.repo.Submission.SaveDraft(ctx, sub)
	if err != nil {
		s.logger.Error("保存草稿失败",
			zap.String("assignment_id", a.AssignmentID),
			zap.String("student_id", userID),
			zap.Error(err),
		)
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadySubmitted
	}
	return s.reload(ctx, a.AssignmentID, userID)
}

// Submit 草稿转为已提交，计算是否迟交
func (s *submissionService) Submit(ctx context.Context, userID, rawAssignmentID string, req *dto.SubmitRequest) (*dto.SubmissionResponse, error) {
	a, err := s.studentAssignment(ctx, userID, rawAssignmentID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.Submission.GetByAssignmentAndStudent(ctx, a.AssignmentID, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil && !existing.IsEditable() {
		return nil, ErrAlreadySubmitted
	}

	now := s.clock.now()
	sub := &model.Submission{
		AssignmentID:  a.AssignmentID,
		StudentID:     userID,
		SubmittedAt:   &now,
		SubmittedLate: a.IsLateAt(now),
	}
	withContent := req != nil && req.Content != nil
	if withContent {
		sub.Content = *req.Content
	}

	ok, err := s.repo.Submission.Submit(ctx, sub, withContent)
	if err != nil {
		s.logger.Error("提交作业失败",
			zap.String("assignment_id", a.AssignmentID),
			zap.String("student_id", userID),
			zap.Error(err),
		)
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadySubmitted
	}

	s.logger.Info("作业已提交",
		zap.String("assignment_id", a.AssignmentID),
		zap.String("student_id", userID),
		zap.Bool("late", sub.SubmittedLate),
	)
	return s.reload(ctx, a.AssignmentID, userID)
}

func (s *submissionService) GetMine(ctx context.Context, userID, rawAssignmentID string) (*dto.SubmissionResponse, error) {
	a, err := s.studentAssignment(ctx, userID, rawAssignmentID)
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, a.AssignmentID, userID)
}

// ────────────────────── 教师端 ──────────────────────

func (s *submissionService) ListForAssignment(ctx context.Context, userID, rawAssignmentID string) ([]dto.SubmissionResponse, error) {
	a, access, err := s.access.ResolveAssignment(ctx, userID, rawAssignmentID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireTeacher(); err != nil {
		return nil, err
	}

	list, err := s.repo.Submission.ListByAssignment(ctx, a.AssignmentID)
	if err != nil {
		s.logger.Error("查询提交列表失败", zap.String("assignment_id", a.AssignmentID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.SubmissionResponse, 0, len(list))
	for i := range list {
		result = append(result, *toSubmissionResponse(&list[i]))
	}
	return result, nil
}

func (s *submissionService) Get(ctx context.Context, userID, rawID string) (*dto.SubmissionResponse, error) {
	sub, _, _, err := s.access.ResolveSubmission(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}
	return toSubmissionResponse(sub), nil
}

// Grade 评分；允许重复评分，草稿不可评分
func (s *submissionService) Grade(ctx context.Context, userID, rawID string, req *dto.GradeRequest) (*dto.SubmissionResponse, error) {
	sub, a, access, err := s.access.ResolveSubmission(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireTeacher(); err != nil {
		return nil, err
	}
	if sub.Status == model.SubmissionDraft {
		return nil, ErrNotSubmitted
	}

	grade := *req.Grade
	if grade < 0 || grade > a.MaxPoints {
		return nil, ErrGradeOutOfRange
	}

	now := s.clock.now()
	rows, err := s.repo.Submission.Grade(ctx, sub.SubmissionID, grade, req.Feedback, userID, now)
	if err != nil {
		s.logger.Error("评分失败", zap.String("submission_id", sub.SubmissionID), zap.Error(err))
		return nil, err
	}
	if rows == 0 {
		return nil, ErrNotSubmitted
	}

	s.notify.Notify(Event{
		Type:        model.NotifySubmissionGraded,
		ActorID:     userID,
		UserIDs:     []string{sub.StudentID},
		Body:        a.Title,
		RelatedType: "submission",
		RelatedID:   sub.SubmissionID,
	})

	updated, err := s.repo.Submission.GetByID(ctx, ident.ID{UUID: sub.SubmissionID})
	if err != nil {
		return nil, err
	}
	return toSubmissionResponse(updated), nil
}

// ────────────────────── 提交文件 ──────────────────────

func (s *submissionService) AddFile(ctx context.Context, userID, rawID string, up *FileUpload) (*dto.FileResponse, error) {
	sub, err := s.editableSubmission(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}

	obj, err := s.files.save(ctx, up)
	if err != nil {
		return nil, err
	}

	f := &model.SubmissionFile{
		SubmissionID: sub.SubmissionID,
		FileName:     obj.Name,
		URL:          obj.URL,
		FileSize:     obj.Size,
		MimeType:     obj.MimeType,
		StorageKey:   obj.Key,
	}
	if err := s.repo.Submission.AddFile(ctx, f); err != nil {
		s.logger.Error("保存提交文件失败", zap.String("submission_id", sub.SubmissionID), zap.Error(err))
		s.files.remove(ctx, obj.Key)
		return nil, err
	}
	return toSubmissionFileResponse(f), nil
}

func (s *submissionService) DeleteFile(ctx context.Context, userID, rawID, rawFileID string) error {
	sub, err := s.editableSubmission(ctx, userID, rawID)
	if err != nil {
		return err
	}
	fileID, err := ident.MustUUID(rawFileID)
	if err != nil {
		return ErrInvalidIdentifier
	}

	f, err := s.repo.Submission.GetFile(ctx, fileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionFileNotFound
		}
		return err
	}
	if f.SubmissionID != sub.SubmissionID {
		return ErrSubmissionFileNotFound
	}

	if err := s.repo.Submission.DeleteFile(ctx, f.FileID); err != nil {
		s.logger.Error("删除提交文件失败", zap.String("file_id", f.FileID), zap.Error(err))
		return err
	}
	s.files.remove(ctx, f.StorageKey)
	return nil
}

// ── 内部辅助方法 ──

// studentAssignment 学生可见（已发布）且本人已选课的作业
func (s *submissionService) studentAssignment(ctx context.Context, userID, rawID string) (*model.Assignment, error) {
	a, access, err := s.access.ResolveAssignment(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireStudent(); err != nil {
		return nil, err
	}
	return a, nil
}

// editableSubmission 仅提交者本人且仍为草稿时可修改文件
func (s *submissionService) editableSubmission(ctx context.Context, userID, rawID string) (*model.Submission, error) {
	sub, _, _, err := s.access.ResolveSubmission(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}
	if sub.StudentID != userID {
		return nil, ErrSubmissionOwnerOnly
	}
	if !sub.IsEditable() {
		return nil, ErrAlreadySubmitted
	}
	return sub, nil
}

func (s *submissionService) reload(ctx context.Context, assignmentID, studentID string) (*dto.SubmissionResponse, error) {
	sub, err := s.repo.Submission.GetByAssignmentAndStudent(ctx, assignmentID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		s.logger.Error("查询提交记录失败",
			zap.String("assignment_id", assignmentID),
			zap.String("student_id", studentID),
			zap.Error(err),
		)
		return nil, err
	}
	return toSubmissionResponse(sub), nil
}

func toSubmissionResponse(sub *model.Submission) *dto.SubmissionResponse {
	resp := &dto.SubmissionResponse{
		ID:            sub.SubmissionID,
		AssignmentID:  sub.AssignmentID,
		Student:       toUserBrief(sub.Student),
		StudentID:     sub.StudentID,
		Content:       sub.Content,
		Status:        sub.Status,
		SubmittedAt:   dto.FormatTimePtr(sub.SubmittedAt),
		SubmittedLate: sub.SubmittedLate,
		Grade:         sub.Grade,
		Feedback:      sub.Feedback,
		GradedBy:      sub.GradedBy,
		GradedAt:      dto.FormatTimePtr(sub.GradedAt),
		Files:         make([]dto.FileResponse, 0, len(sub.Files)),
		UpdatedAt:     dto.FormatTime(sub.UpdatedAt),
	}
	for i := range sub.Files {
		resp.Files = append(resp.Files, *toSubmissionFileResponse(&sub.Files[i]))
	}
	return resp
}

func toSubmissionFileResponse(f *model.SubmissionFile) *dto.FileResponse {
	return &dto.FileResponse{
		ID:        f.FileID,
		Kind:      model.AttachmentFile,
		Title:     f.FileName,
		URL:       f.URL,
		FileName:  f.FileName,
		FileSize:  f.FileSize,
		MimeType:  f.MimeType,
		CreatedAt: dto.FormatTime(f.CreatedAt),
	}
}
