package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"z-novel-context-svc/internal/application/retrieval"
	"z-novel-context-svc/internal/domain/entity"
	"z-novel-context-svc/internal/interfaces/http/dto"
	apperrors "z-novel-context-svc/pkg/errors"
	"z-novel-context-svc/pkg/logger"
)

const indexTimeout = 15 * time.Second

// ContextInvalidator 上下文缓存失效接口，由 Redis 缓存实现。
// 缓存未启用时注入 nil，写路径跳过失效动作。
type ContextInvalidator interface {
	// InvalidateProjectContexts 使项目全部上下文缓存失效
	InvalidateProjectContexts(ctx context.Context, projectID string) error

	// InvalidateChapterContexts 使指定章节的上下文缓存失效
	InvalidateChapterContexts(ctx context.Context, projectID, chapterID string) error
}

// respondRepoError 按应用错误输出，否则记日志并兜底 500
func respondRepoError(c *gin.Context, ctx context.Context, err error, msg string) {
	if apperrors.IsAppError(err) {
		dto.AppError(c, apperrors.AsAppError(err))
		return
	}
	logger.Error(ctx, msg, err)
	dto.InternalError(c, msg)
}

// invalidateProjectContexts 失效项目级上下文缓存，失败只告警
func invalidateProjectContexts(ctx context.Context, invalidator ContextInvalidator, projectID string) {
	if invalidator == nil {
		return
	}
	if err := invalidator.InvalidateProjectContexts(ctx, projectID); err != nil {
		logger.Warn(ctx, "failed to invalidate project contexts",
			"error", err.Error(),
			"project_id", projectID,
		)
	}
}

// invalidateChapterContexts 失效章节级上下文缓存，失败只告警
func invalidateChapterContexts(ctx context.Context, invalidator ContextInvalidator, projectID, chapterID string) {
	if invalidator == nil {
		return
	}
	if err := invalidator.InvalidateChapterContexts(ctx, projectID, chapterID); err != nil {
		logger.Warn(ctx, "failed to invalidate chapter contexts",
			"error", err.Error(),
			"project_id", projectID,
			"chapter_id", chapterID,
		)
	}
}

// indexUnit 同步重建单元向量。尽力而为：失败告警，不阻塞写路径。
// 用独立超时上下文，索引不受请求取消影响。
func indexUnit(ctx context.Context, indexer *retrieval.Indexer, projectID string, unit *entity.ContentUnit) {
	if !indexer.Enabled() {
		return
	}
	indexCtx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()
	if err := indexer.IndexUnit(indexCtx, projectID, unit); err != nil && !errors.Is(err, retrieval.ErrVectorDisabled) {
		logger.Warn(ctx, "failed to index content unit",
			"error", err.Error(),
			"unit_id", unit.ID,
		)
	}
}

// removeUnitIndex 删除单元向量，失败只告警
func removeUnitIndex(ctx context.Context, indexer *retrieval.Indexer, projectID, unitID string) {
	if !indexer.Enabled() {
		return
	}
	indexCtx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()
	if err := indexer.RemoveUnit(indexCtx, projectID, unitID); err != nil && !errors.Is(err, retrieval.ErrVectorDisabled) {
		logger.Warn(ctx, "failed to remove unit index",
			"error", err.Error(),
			"unit_id", unitID,
		)
	}
}
