// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"z-novel-context-svc/internal/application/consistency"
	"z-novel-context-svc/internal/domain/entity"
	"z-novel-context-svc/internal/domain/repository"
	"z-novel-context-svc/internal/interfaces/http/dto"
)

// CheckHandler 一致性检查处理器
type CheckHandler struct {
	service *consistency.Service
}

// NewCheckHandler 创建一致性检查处理器
func NewCheckHandler(service *consistency.Service) *CheckHandler {
	return &CheckHandler{
		service: service,
	}
}

// RecordCheck 记录一致性检查
// @Summary 记录一致性检查
// @Description 对生成文本执行一致性检查并保存结果，问题经统计回流到组装打分
// @Tags Checks
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.RecordCheckRequest true "检查请求"
// @Success 201 {object} dto.Response[dto.ConsistencyCheckResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/checks [post]
func (h *CheckHandler) RecordCheck(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := dto.BindProjectID(c)

	var req dto.RecordCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	check, err := h.service.RecordCheck(ctx, projectID, req.GeneratedText, entity.CheckType(req.CheckType))
	if err != nil {
		respondRepoError(c, ctx, err, "failed to record consistency check")
		return
	}

	resp := dto.ToConsistencyCheckResponse(check)
	dto.Created(c, resp)
}

// ListChecks 获取检查记录列表
// @Summary 获取检查记录列表
// @Description 分页获取项目的一致性检查记录，支持按检查类型过滤，列表项不含被检文本
// @Tags Checks
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param check_type query string false "检查类型"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[dto.ConsistencyCheckListResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/checks [get]
func (h *CheckHandler) ListChecks(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := dto.BindProjectID(c)

	pageReq := dto.BindPage(c)
	checkType := entity.CheckType(c.Query("check_type"))

	result, err := h.service.ListChecks(ctx, projectID, checkType, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		respondRepoError(c, ctx, err, "failed to list consistency checks")
		return
	}

	resp := dto.ToConsistencyCheckListResponse(result.Items)
	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, resp, meta)
}

// GetCheck 获取检查记录详情
// @Summary 获取检查记录详情
// @Description 获取单条检查记录，含被检文本与问题明细
// @Tags Checks
// @Accept json
// @Produce json
// @Param kid path string true "检查记录 ID"
// @Success 200 {object} dto.Response[dto.ConsistencyCheckResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/checks/{kid} [get]
func (h *CheckHandler) GetCheck(c *gin.Context) {
	ctx := c.Request.Context()
	checkID := dto.BindCheckID(c)

	check, err := h.service.GetCheck(ctx, checkID)
	if err != nil {
		respondRepoError(c, ctx, err, "failed to get consistency check")
		return
	}

	resp := dto.ToConsistencyCheckResponse(check)
	dto.Success(c, resp)
}
