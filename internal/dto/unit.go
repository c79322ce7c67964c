package dto

// ── 单元模块 DTO ──

// CreateUnitRequest 创建单元
type CreateUnitRequest struct {
	Title       string `json:"title"       binding:"required,notblank,max=200"`
	Description string `json:"description" binding:"omitempty,max=5000"`
	OrderIndex  *int   `json:"order_index" binding:"omitempty,min=0"`
}

// UpdateUnitRequest 更新单元
type UpdateUnitRequest struct {
	Title       *string `json:"title"       binding:"omitempty,notblank,max=200"`
	Description *string `json:"description" binding:"omitempty,max=5000"`
	OrderIndex  *int    `json:"order_index" binding:"omitempty,min=0"`
}

// PublishRequest 发布/取消发布
type PublishRequest struct {
	IsPublished *bool `json:"is_published" binding:"required"`
}

// ReorderUnitsRequest 按给定顺序重排单元
type ReorderUnitsRequest struct {
	UnitIDs []string `json:"unit_ids" binding:"required,min=1,dive,uuid"`
}

// UnitResponse 单元响应
type UnitResponse struct {
	ID          string         `json:"id"`
	LegacyID    *int64         `json:"legacy_id,omitempty"`
	CourseID    string         `json:"course_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	OrderIndex  int            `json:"order_index"`
	IsPublished bool           `json:"is_published"`
	Materials   []FileResponse `json:"materials,omitempty"`
	CreatedAt   string         `json:"created_at"`
}
