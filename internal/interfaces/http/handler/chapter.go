// Package handler 提供 HTTP 请求处理器
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"z-novel-context-svc/internal/domain/repository"
	"z-novel-context-svc/internal/interfaces/http/dto"
	"z-novel-context-svc/pkg/logger"
)

// ChapterHandler 章节处理器
type ChapterHandler struct {
	chapterRepo repository.ChapterRepository
	projectRepo repository.ProjectRepository
	invalidator ContextInvalidator
}

// NewChapterHandler 创建章节处理器
func NewChapterHandler(
	chapterRepo repository.ChapterRepository,
	projectRepo repository.ProjectRepository,
	invalidator ContextInvalidator,
) *ChapterHandler {
	return &ChapterHandler{
		chapterRepo: chapterRepo,
		projectRepo: projectRepo,
		invalidator: invalidator,
	}
}

// ListChapters 获取章节列表
// @Summary 获取章节列表
// @Description 分页获取项目章节列表，按序号排序，列表项不含正文
// @Tags Chapters
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[dto.ChapterListResponse]
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/chapters [get]
func (h *ChapterHandler) ListChapters(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := dto.BindProjectID(c)

	pageReq := dto.BindPage(c)

	result, err := h.chapterRepo.ListByProject(ctx, projectID, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		logger.Error(ctx, "failed to list chapters", err)
		dto.InternalError(c, "failed to list chapters")
		return
	}

	resp := dto.ToChapterListResponse(result.Items)
	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, resp, meta)
}

// CreateChapter 创建章节
// @Summary 创建章节
// @Description 在项目下创建新章节，序号缺省时自动取下一序号
// @Tags Chapters
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.CreateChapterRequest true "章节信息"
// @Success 201 {object} dto.Response[dto.ChapterResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/projects/{pid}/chapters [post]
func (h *ChapterHandler) CreateChapter(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := dto.BindProjectID(c)

	var req dto.CreateChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
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

	seqNum := 0
	if req.SeqNum != nil {
		seqNum = *req.SeqNum
	} else {
		next, err := h.chapterRepo.GetNextSeqNum(ctx, projectID)
		if err != nil {
			logger.Error(ctx, "failed to get next seq num", err)
			dto.InternalError(c, "failed to create chapter")
			return
		}
		seqNum = next
	}

	chapter := req.ToChapterEntity(projectID, seqNum)

	if err := h.chapterRepo.Create(ctx, chapter); err != nil {
		logger.Error(ctx, "failed to create chapter", err)
		dto.InternalError(c, "failed to create chapter")
		return
	}

	resp := dto.ToChapterResponse(chapter)
	dto.Created(c, resp)
}

// GetChapter 获取章节详情
// @Summary 获取章节详情
// @Description 获取指定章节的详细信息，含正文
// @Tags Chapters
// @Accept json
// @Produce json
// @Param cid path string true "章节 ID"
// @Success 200 {object} dto.Response[dto.ChapterResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/chapters/{cid} [get]
func (h *ChapterHandler) GetChapter(c *gin.Context) {
	ctx := c.Request.Context()
	chapterID := dto.BindChapterID(c)

	chapter, err := h.chapterRepo.GetByID(ctx, chapterID)
	if err != nil {
		respondRepoError(c, ctx, err, "failed to get chapter")
		return
	}

	if chapter == nil {
		dto.NotFound(c, "chapter not found")
		return
	}

	resp := dto.ToChapterResponse(chapter)
	dto.Success(c, resp)
}

// UpdateChapter 更新章节
// @Summary 更新章节
// @Description 更新章节标题或正文。正文变更会使该章节的上下文缓存失效。
// @Tags Chapters
// @Accept json
// @Produce json
// @Param cid path string true "章节 ID"
// @Param body body dto.UpdateChapterRequest true "更新内容"
// @Success 200 {object} dto.Response[dto.ChapterResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/chapters/{cid} [put]
func (h *ChapterHandler) UpdateChapter(c *gin.Context) {
	ctx := c.Request.Context()
	chapterID := dto.BindChapterID(c)

	var req dto.UpdateChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	chapter, err := h.chapterRepo.GetByID(ctx, chapterID)
	if err != nil {
		respondRepoError(c, ctx, err, "failed to get chapter")
		return
	}

	if chapter == nil {
		dto.NotFound(c, "chapter not found")
		return
	}

	contentChanged := req.ApplyToChapter(chapter)

	if err := h.chapterRepo.Update(ctx, chapter); err != nil {
		logger.Error(ctx, "failed to update chapter", err)
		dto.InternalError(c, "failed to update chapter")
		return
	}

	if contentChanged {
		invalidateChapterContexts(ctx, h.invalidator, chapter.ProjectID, chapter.ID)
	}

	resp := dto.ToChapterResponse(chapter)
	dto.Success(c, resp)
}

// DeleteChapter 删除章节
// @Summary 删除章节
// @Description 删除指定章节并使其上下文缓存失效
// @Tags Chapters
// @Accept json
// @Produce json
// @Param cid path string true "章节 ID"
// @Success 204 "No Content"
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/v1/chapters/{cid} [delete]
func (h *ChapterHandler) DeleteChapter(c *gin.Context) {
	ctx := c.Request.Context()
	chapterID := dto.BindChapterID(c)

	chapter, err := h.chapterRepo.GetByID(ctx, chapterID)
	if err != nil {
		respondRepoError(c, ctx, err, "failed to get chapter")
		return
	}

	if chapter == nil {
		dto.NotFound(c, "chapter not found")
		return
	}

	if err := h.chapterRepo.Delete(ctx, chapterID); err != nil {
		respondRepoError(c, ctx, err, "failed to delete chapter")
		return
	}

	invalidateChapterContexts(ctx, h.invalidator, chapter.ProjectID, chapter.ID)

	c.Status(http.StatusNoContent)
}
