package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"classpad/internal/dto"
	"classpad/internal/service"
	"classpad/pkg/response"
)

// UnitHandler 单元与资料 HTTP 处理器
type UnitHandler struct {
	unitSvc service.UnitService
}

// NewUnitHandler 创建 UnitHandler
func NewUnitHandler(unitSvc service.UnitService) *UnitHandler {
	return &UnitHandler{unitSvc: unitSvc}
}

// List GET /api/v1/courses/:id/units
func (h *UnitHandler) List(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.unitSvc.List(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleUnitError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Create POST /api/v1/courses/:id/units
func (h *UnitHandler) Create(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateUnitRequest
	if !bindJSON(c, &req) {
		return
	}

	unit, err := h.unitSvc.Create(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleUnitError(c, err)
		return
	}

	response.Created(c, unit)
}

// Reorder PUT /api/v1/courses/:id/units/order
func (h *UnitHandler) Reorder(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ReorderUnitsRequest
	if !bindJSON(c, &req) {
		return
	}

	list, err := h.unitSvc.Reorder(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleUnitError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Get GET /api/v1/units/:id
func (h *UnitHandler) Get(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	unit, err := h.unitSvc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleUnitError(c, err)
		return
	}

	response.OK(c, unit)
}

// Update PUT /api/v1/units/:id
func (h *UnitHandler) Update(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateUnitRequest
	if !bindJSON(c, &req) {
		return
	}

	unit, err := h.unitSvc.Update(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleUnitError(c, err)
		return
	}

	response.OK(c, unit)
}

// Delete DELETE /api/v1/units/:id
func (h *UnitHandler) Delete(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.unitSvc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.handleUnitError(c, err)
		return
	}

	response.OK(c, nil)
}

// SetPublished PUT /api/v1/units/:id/publish
func (h *UnitHandler) SetPublished(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.PublishRequest
	if !bindJSON(c, &req) {
		return
	}

	unit, err := h.unitSvc.SetPublished(c.Request.Context(), userID, c.Param("id"), *req.IsPublished)
	if err != nil {
		h.handleUnitError(c, err)
		return
	}

	response.OK(c, unit)
}

// ListMaterials GET /api/v1/units/:id/materials
func (h *UnitHandler) ListMaterials(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.unitSvc.ListMaterials(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleUnitError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// AddMaterial 上传文件（multipart）或添加链接（JSON）
// POST /api/v1/units/:id/materials
func (h *UnitHandler) AddMaterial(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var (
		material *dto.FileResponse
		err      error
	)
	if isMultipart(c) {
		up, closeFn, ok := readUpload(c)
		if !ok {
			return
		}
		defer closeFn()
		material, err = h.unitSvc.AddMaterialFile(c.Request.Context(), userID, c.Param("id"), up)
	} else {
		var req dto.LinkRequest
		if !bindJSON(c, &req) {
			return
		}
		material, err = h.unitSvc.AddMaterialLink(c.Request.Context(), userID, c.Param("id"), &req)
	}
	if err != nil {
		h.handleUnitError(c, err)
		return
	}

	response.Created(c, material)
}

// DeleteMaterial DELETE /api/v1/units/:id/materials/:materialId
func (h *UnitHandler) DeleteMaterial(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.unitSvc.DeleteMaterial(c.Request.Context(), userID, c.Param("id"), c.Param("materialId")); err != nil {
		h.handleUnitError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *UnitHandler) handleUnitError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrMaterialNotFound) {
		response.NotFound(c, response.CodeMaterialNotFound, err.Error())
		return
	}
	handleCommonError(c, err)
}
