// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"z-novel-context-svc/internal/application/assembly"
	"z-novel-context-svc/internal/interfaces/http/dto"
	"z-novel-context-svc/pkg/logger"
)

// ContextHandler 上下文组装处理器
type ContextHandler struct {
	assembler *assembly.Assembler
}

// NewContextHandler 创建上下文组装处理器
func NewContextHandler(assembler *assembly.Assembler) *ContextHandler {
	return &ContextHandler{
		assembler: assembler,
	}
}

// AssembleContext 组装上下文
// @Summary 组装上下文
// @Description 对指定章节与光标位置组装压缩后的生成上下文。
// @Description 策略缺省沿用服务端默认值，no_cache 跳过缓存读取强制重建。
// @Description 超预算不报错，结果中以 budget_exceeded 标记。
// @Tags Context
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.AssembleContextRequest true "组装请求"
// @Success 200 {object} dto.Response[dto.ContextResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/context [post]
func (h *ContextHandler) AssembleContext(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := dto.BindProjectID(c)

	var req dto.AssembleContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	// 组装路径的日志都携带项目与章节标识
	ctx = logger.WithContext(ctx, logger.ProjectIDKey, projectID)
	ctx = logger.WithContext(ctx, logger.ChapterIDKey, req.ChapterID)

	strategy := req.Strategy.ToStrategy(h.assembler.DefaultStrategy())

	var (
		result *assembly.IntelligentContext
		err    error
	)
	if req.NoCache {
		result, err = h.assembler.AssembleFresh(ctx, projectID, req.ChapterID, req.CursorPosition, &strategy)
	} else {
		result, err = h.assembler.Assemble(ctx, projectID, req.ChapterID, req.CursorPosition, &strategy)
	}
	if err != nil {
		respondRepoError(c, ctx, err, "failed to assemble context")
		return
	}

	dto.Success(c, dto.ToContextResponse(result))
}
