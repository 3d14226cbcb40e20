// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"z-novel-context-svc/internal/application/retrieval"
	"z-novel-context-svc/internal/domain/entity"
	"z-novel-context-svc/internal/domain/repository"
	"z-novel-context-svc/internal/interfaces/http/dto"
	"z-novel-context-svc/pkg/logger"
)

// ContentUnitHandler 内容单元处理器
type ContentUnitHandler struct {
	unitRepo    repository.ContentUnitRepository
	projectRepo repository.ProjectRepository
	txManager   repository.Transactor
	invalidator ContextInvalidator
	indexer     *retrieval.Indexer
}

// NewContentUnitHandler 创建内容单元处理器。indexer 可为 nil（语义检索未启用）。
func NewContentUnitHandler(
	unitRepo repository.ContentUnitRepository,
	projectRepo repository.ProjectRepository,
	txManager repository.Transactor,
	invalidator ContextInvalidator,
	indexer *retrieval.Indexer,
) *ContentUnitHandler {
	return &ContentUnitHandler{
		unitRepo:    unitRepo,
		projectRepo: projectRepo,
		txManager:   txManager,
		invalidator: invalidator,
		indexer:     indexer,
	}
}

// ListContentUnits 获取内容单元列表
// @Summary 获取内容单元列表
// @Description 分页获取项目内容单元，支持按类型与角色名过滤
// @Tags ContentUnits
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param kind query string false "单元类型"
// @Param character_name query string false "角色名"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[dto.ContentUnitListResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/units [get]
func (h *ContentUnitHandler) ListContentUnits(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := dto.BindProjectID(c)

	pageReq := dto.BindPage(c)

	filter := &repository.ContentUnitFilter{
		CharacterName: c.Query("character_name"),
	}
	if kind := c.Query("kind"); kind != "" {
		unitKind := entity.ContentUnitKind(kind)
		if !unitKind.Valid() {
			dto.BadRequest(c, "unknown unit kind: "+kind)
			return
		}
		filter.Kinds = []entity.ContentUnitKind{unitKind}
	}

	result, err := h.unitRepo.ListByProject(ctx, projectID, filter, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		logger.Error(ctx, "failed to list content units", err)
		dto.InternalError(c, "failed to list content units")
		return
	}

	resp := dto.ToContentUnitListResponse(result.Items)
	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, resp, meta)
}

// CreateContentUnit 创建内容单元
// @Summary 创建内容单元
// @Description 在项目下创建内容单元，写入后使项目上下文缓存失效并重建向量索引
// @Tags ContentUnits
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.CreateContentUnitRequest true "单元信息"
// @Success 201 {object} dto.Response[dto.ContentUnitResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/units [post]
func (h *ContentUnitHandler) CreateContentUnit(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := dto.BindProjectID(c)

	var req dto.CreateContentUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if !entity.ContentUnitKind(req.Kind).Valid() {
		dto.BadRequest(c, "unknown unit kind: "+req.Kind)
		return
	}

	project, err := h.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		respondRepoError(c, ctx, err, "failed to get project")
		return
	}
	if project == nil {
		dto.NotFound(c, "project not found")
		return
	}

	unit := req.ToContentUnitEntity(projectID)

	if err := h.unitRepo.Create(ctx, unit); err != nil {
		logger.Error(ctx, "failed to create content unit", err)
		dto.InternalError(c, "failed to create content unit")
		return
	}

	invalidateProjectContexts(ctx, h.invalidator, projectID)
	indexUnit(ctx, h.indexer, projectID, unit)

	resp := dto.ToContentUnitResponse(unit)
	dto.Created(c, resp)
}

// GetContentUnit 获取内容单元详情
// @Summary 获取内容单元详情
// @Description 获取指定内容单元的详细信息
// @Tags ContentUnits
// @Accept json
// @Produce json
// @Param uid path string true "单元 ID"
// @Success 200 {object} dto.Response[dto.ContentUnitResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/units/{uid} [get]
func (h *ContentUnitHandler) GetContentUnit(c *gin.Context) {
	ctx := c.Request.Context()
	unitID := dto.BindUnitID(c)

	unit, err := h.unitRepo.GetByID(ctx, unitID)
	if err != nil {
		respondRepoError(c, ctx, err, "failed to get content unit")
		return
	}

	if unit == nil {
		dto.NotFound(c, "content unit not found")
		return
	}

	resp := dto.ToContentUnitResponse(unit)
	dto.Success(c, resp)
}

// UpdateContentUnit 更新内容单元
// @Summary 更新内容单元
// @Description 更新内容单元，写入后使项目上下文缓存失效并重建向量索引
// @Tags ContentUnits
// @Accept json
// @Produce json
// @Param uid path string true "单元 ID"
// @Param body body dto.UpdateContentUnitRequest true "更新内容"
// @Success 200 {object} dto.Response[dto.ContentUnitResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/units/{uid} [put]
func (h *ContentUnitHandler) UpdateContentUnit(c *gin.Context) {
	ctx := c.Request.Context()
	unitID := dto.BindUnitID(c)

	var req dto.UpdateContentUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	unit, err := h.unitRepo.GetByID(ctx, unitID)
	if err != nil {
		respondRepoError(c, ctx, err, "failed to get content unit")
		return
	}

	if unit == nil {
		dto.NotFound(c, "content unit not found")
		return
	}

	req.ApplyToContentUnit(unit)

	if err := h.unitRepo.Update(ctx, unit); err != nil {
		logger.Error(ctx, "failed to update content unit", err)
		dto.InternalError(c, "failed to update content unit")
		return
	}

	invalidateProjectContexts(ctx, h.invalidator, unit.ProjectID)
	indexUnit(ctx, h.indexer, unit.ProjectID, unit)

	resp := dto.ToContentUnitResponse(unit)
	dto.Success(c, resp)
}

// DeleteContentUnit 删除内容单元
// @Summary 删除内容单元
// @Description 删除内容单元并清空指向它的伏笔/回收引用，同事务提交
// @Tags ContentUnits
// @Accept json
// @Produce json
// @Param uid path string true "单元 ID"
// @Success 204 "No Content"
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/units/{uid} [delete]
func (h *ContentUnitHandler) DeleteContentUnit(c *gin.Context) {
	ctx := c.Request.Context()
	unitID := dto.BindUnitID(c)

	unit, err := h.unitRepo.GetByID(ctx, unitID)
	if err != nil {
		respondRepoError(c, ctx, err, "failed to get content unit")
		return
	}

	if unit == nil {
		dto.NotFound(c, "content unit not found")
		return
	}

	err = h.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := h.unitRepo.Delete(txCtx, unitID); err != nil {
			return err
		}
		cleared, err := h.unitRepo.ClearDanglingRefs(txCtx, unitID)
		if err != nil {
			return err
		}
		if cleared > 0 {
			logger.Info(txCtx, "cleared dangling unit references",
				"unit_id", unitID,
				"cleared", cleared,
			)
		}
		return nil
	})
	if err != nil {
		respondRepoError(c, ctx, err, "failed to delete content unit")
		return
	}

	invalidateProjectContexts(ctx, h.invalidator, unit.ProjectID)
	removeUnitIndex(ctx, h.indexer, unit.ProjectID, unitID)

	c.Status(http.StatusNoContent)
}
