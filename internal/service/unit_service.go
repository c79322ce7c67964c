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

var ErrMaterialNotFound = errors.New("资料不存在")

// UnitService 单元与资料业务接口
type UnitService interface {
	Create(ctx context.Context, userID, rawCourseID string, req *dto.CreateUnitRequest) (*dto.UnitResponse, error)
	List(ctx context.Context, userID, rawCourseID string) ([]dto.UnitResponse, error)
	Get(ctx context.Context, userID, rawID string) (*dto.UnitResponse, error)
	Update(ctx context.Context, userID, rawID string, req *dto.UpdateUnitRequest) (*dto.UnitResponse, error)
	Delete(ctx context.Context, userID, rawID string) error
	SetPublished(ctx context.Context, userID, rawID string, published bool) (*dto.UnitResponse, error)
	Reorder(ctx context.Context, userID, rawCourseID string, req *dto.ReorderUnitsRequest) ([]dto.UnitResponse, error)

	AddMaterialFile(ctx context.Context, userID, rawID string, up *FileUpload) (*dto.FileResponse, error)
	AddMaterialLink(ctx context.Context, userID, rawID string, req *dto.LinkRequest) (*dto.FileResponse, error)
	ListMaterials(ctx context.Context, userID, rawID string) ([]dto.FileResponse, error)
	DeleteMaterial(ctx context.Context, userID, rawID, rawMaterialID string) error
}

type unitService struct {
	repo   *repository.Repository
	access AccessService
	files  *uploader
	notify Notifier
	logger *zap.Logger
}

// NewUnitService 创建 UnitService 实例
func NewUnitService(
	repo *repository.Repository,
	access AccessService,
	files *uploader,
	notify Notifier,
	logger *zap.Logger,
) UnitService {
	return &unitService{repo: repo, access: access, files: files, notify: notify, logger: logger}
}

// ────────────────────── Unit CRUD ──────────────────────

func (s *unitService) Create(ctx context.Context, userID, rawCourseID string, req *dto.CreateUnitRequest) (*dto.UnitResponse, error) {
	access, err := s.access.ResolveCourse(ctx, userID, rawCourseID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireTeacher(); err != nil {
		return nil, err
	}

	courseID := access.Course.CourseID
	order := 0
	if req.OrderIndex != nil {
		order = *req.OrderIndex
	} else {
		order, err = s.repo.Unit.NextOrderIndex(ctx, courseID)
		if err != nil {
			s.logger.Error("计算单元序号失败", zap.String("course_id", courseID), zap.Error(err))
			return nil, err
		}
	}

	// 新建单元默认未发布
	unit := &model.Unit{
		CourseID:    courseID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		OrderIndex:  order,
		CreatedBy:   strPtr(userID),
	}
	if err := s.repo.Unit.Create(ctx, unit); err != nil {
		s.logger.Error("创建单元失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, err
	}
	return toUnitResponse(unit, nil), nil
}

// List 学生只能看到已发布的单元
func (s *unitService) List(ctx context.Context, userID, rawCourseID string) ([]dto.UnitResponse, error) {
	access, err := s.access.ResolveCourse(ctx, userID, rawCourseID)
	if err != nil {
		return nil, err
	}

	units, err := s.repo.Unit.ListByCourse(ctx, access.Course.CourseID, !access.Membership.IsTeacher())
	if err != nil {
		s.logger.Error("查询单元列表失败", zap.String("course_id", access.Course.CourseID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.UnitResponse, 0, len(units))
	for i := range units {
		result = append(result, *toUnitResponse(&units[i], nil))
	}
	return result, nil
}

func (s *unitService) Get(ctx context.Context, userID, rawID string) (*dto.UnitResponse, error) {
	unit, _, err := s.access.ResolveUnit(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}
	materials, err := s.repo.UnitMaterial.ListByUnit(ctx, unit.UnitID)
	if err != nil {
		s.logger.Error("查询单元资料失败", zap.String("unit_id", unit.UnitID), zap.Error(err))
		return nil, err
	}
	return toUnitResponse(unit, materials), nil
}

func (s *unitService) Update(ctx context.Context, userID, rawID string, req *dto.UpdateUnitRequest) (*dto.UnitResponse, error) {
	unit, access, err := s.access.ResolveUnit(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireTeacher(); err != nil {
		return nil, err
	}

	if req.Title != nil {
		unit.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		unit.Description = *req.Description
	}
	if req.OrderIndex != nil {
		unit.OrderIndex = *req.OrderIndex
	}
	if err := s.repo.Unit.Update(ctx, unit); err != nil {
		s.logger.Error("更新单元失败", zap.String("unit_id", unit.UnitID), zap.Error(err))
		return nil, err
	}
	return toUnitResponse(unit, nil), nil
}

// Delete 删除单元，资料行由外键级联删除，存储文件尽力清理
func (s *unitService) Delete(ctx context.Context, userID, rawID string) error {
	unit, access, err := s.access.ResolveUnit(ctx, userID, rawID)
	if err != nil {
		return err
	}
	if err := access.RequireTeacher(); err != nil {
		return err
	}

	materials, err := s.repo.UnitMaterial.ListByUnit(ctx, unit.UnitID)
	if err != nil {
		return err
	}
	if err := s.repo.Unit.Delete(ctx, unit.UnitID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnitNotFound
		}
		s.logger.Error("删除单元失败", zap.String("unit_id", unit.UnitID), zap.Error(err))
		return err
	}
	for _, m := range materials {
		s.files.remove(ctx, m.StorageKey)
	}
	return nil
}

// SetPublished 从未发布变为发布时通知课程成员
func (s *unitService) SetPublished(ctx context.Context, userID, rawID string, published bool) (*dto.UnitResponse, error) {
	unit, access, err := s.access.ResolveUnit(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireTeacher(); err != nil {
		return nil, err
	}

	wasPublished := unit.IsPublished
	if err := s.repo.Unit.SetPublished(ctx, unit.UnitID, published); err != nil {
		s.logger.Error("更新单元发布状态失败", zap.String("unit_id", unit.UnitID), zap.Error(err))
		return nil, err
	}
	unit.IsPublished = published

	if published && !wasPublished {
		s.notify.Notify(Event{
			Type:        model.NotifyUnitPublished,
			CourseID:    unit.CourseID,
			ActorID:     userID,
			Body:        unit.Title,
			RelatedType: "unit",
			RelatedID:   unit.UnitID,
		})
	}
	return toUnitResponse(unit, nil), nil
}

// Reorder 按请求中的顺序重写 order_index；列表中的单元必须全部属于该课程
func (s *unitService) Reorder(ctx context.Context, userID, rawCourseID string, req *dto.ReorderUnitsRequest) ([]dto.UnitResponse, error) {
	access, err := s.access.ResolveCourse(ctx, userID, rawCourseID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireTeacher(); err != nil {
		return nil, err
	}
	courseID := access.Course.CourseID

	ids := make([]string, 0, len(req.UnitIDs))
	seen := make(map[string]struct{}, len(req.UnitIDs))
	for _, raw := range req.UnitIDs {
		id, err := ident.MustUUID(raw)
		if err != nil {
			return nil, ErrInvalidIdentifier
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	if err := s.repo.WithTx(tx).Unit.Reorder(ctx, courseID, ids); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnitNotFound
		}
		s.logger.Error("单元排序失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, err
	}
	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			return nil, err
		}
	}

	units, err := s.repo.Unit.ListByCourse(ctx, courseID, false)
	if err != nil {
		return nil, err
	}
	result := make([]dto.UnitResponse, 0, len(units))
	for i := range units {
		result = append(result, *toUnitResponse(&units[i], nil))
	}
	return result, nil
}

// ────────────────────── Materials ──────────────────────

func (s *unitService) AddMaterialFile(ctx context.Context, userID, rawID string, up *FileUpload) (*dto.FileResponse, error) {
	unit, err := s.teacherUnit(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}

	obj, err := s.files.save(ctx, up)
	if err != nil {
		return nil, err
	}

	m := &model.UnitMaterial{
		UnitID:     unit.UnitID,
		Kind:       model.AttachmentFile,
		Title:      obj.Name,
		URL:        obj.URL,
		FileName:   obj.Name,
		FileSize:   obj.Size,
		MimeType:   obj.MimeType,
		StorageKey: obj.Key,
		CreatedBy:  strPtr(userID),
	}
	if err := s.createMaterial(ctx, m); err != nil {
		s.files.remove(ctx, obj.Key)
		return nil, err
	}
	return toMaterialResponse(m), nil
}

func (s *unitService) AddMaterialLink(ctx context.Context, userID, rawID string, req *dto.LinkRequest) (*dto.FileResponse, error) {
	unit, err := s.teacherUnit(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = req.URL
	}
	m := &model.UnitMaterial{
		UnitID:    unit.UnitID,
		Kind:      model.AttachmentLink,
		Title:     title,
		URL:       req.URL,
		CreatedBy: strPtr(userID),
	}
	if err := s.createMaterial(ctx, m); err != nil {
		return nil, err
	}
	return toMaterialResponse(m), nil
}

func (s *unitService) ListMaterials(ctx context.Context, userID, rawID string) ([]dto.FileResponse, error) {
	unit, _, err := s.access.ResolveUnit(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}
	materials, err := s.repo.UnitMaterial.ListByUnit(ctx, unit.UnitID)
	if err != nil {
		s.logger.Error("查询单元资料失败", zap.String("unit_id", unit.UnitID), zap.Error(err))
		return nil, err
	}
	return toMaterialResponses(materials), nil
}

func (s *unitService) DeleteMaterial(ctx context.Context, userID, rawID, rawMaterialID string) error {
	unit, err := s.teacherUnit(ctx, userID, rawID)
	if err != nil {
		return err
	}
	materialID, err := ident.MustUUID(rawMaterialID)
	if err != nil {
		return ErrInvalidIdentifier
	}

	m, err := s.repo.UnitMaterial.GetByID(ctx, materialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMaterialNotFound
		}
		return err
	}
	if m.UnitID != unit.UnitID {
		return ErrMaterialNotFound
	}

	if err := s.repo.UnitMaterial.Delete(ctx, m.MaterialID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMaterialNotFound
		}
		s.logger.Error("删除单元资料失败", zap.String("material_id", m.MaterialID), zap.Error(err))
		return err
	}
	s.files.remove(ctx, m.StorageKey)
	return nil
}

// ── 内部辅助方法 ──

func (s *unitService) teacherUnit(ctx context.Context, userID, rawID string) (*model.Unit, error) {
	unit, access, err := s.access.ResolveUnit(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireTeacher(); err != nil {
		return nil, err
	}
	return unit, nil
}

func (s *unitService) createMaterial(ctx context.Context, m *model.UnitMaterial) error {
	order, err := s.repo.UnitMaterial.NextOrderIndex(ctx, m.UnitID)
	if err != nil {
		return err
	}
	m.OrderIndex = order
	if err := s.repo.UnitMaterial.Create(ctx, m); err != nil {
		s.logger.Error("保存单元资料失败", zap.String("unit_id", m.UnitID), zap.Error(err))
		return err
	}
	return nil
}

func toUnitResponse(u *model.Unit, materials []model.UnitMaterial) *dto.UnitResponse {
	resp := &dto.UnitResponse{
		ID:          u.UnitID,
		LegacyID:    u.LegacyID,
		CourseID:    u.CourseID,
		Title:       u.Title,
		Description: u.Description,
		OrderIndex:  u.OrderIndex,
		IsPublished: u.IsPublished,
		CreatedAt:   dto.FormatTime(u.CreatedAt),
	}
	if materials != nil {
		resp.Materials = toMaterialResponses(materials)
	}
	return resp
}

func toMaterialResponse(m *model.UnitMaterial) *dto.FileResponse {
	return &dto.FileResponse{
		ID:         m.MaterialID,
		Kind:       m.Kind,
		Title:      m.Title,
		URL:        m.URL,
		FileName:   m.FileName,
		FileSize:   m.FileSize,
		MimeType:   m.MimeType,
		OrderIndex: m.OrderIndex,
		CreatedAt:  dto.FormatTime(m.CreatedAt),
	}
}

func toMaterialResponses(list []model.UnitMaterial) []dto.FileResponse {
	out := make([]dto.FileResponse, 0, len(list))
	for i := range list {
		out = append(out, *toMaterialResponse(&list[i]))
	}
	return out
}
