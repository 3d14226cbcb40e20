// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"z-novel-context-svc/internal/domain/entity"
)

// ChapterRepository 章节仓储接口
type ChapterRepository interface {
	// Create 创建章节
	Create(ctx context.Context, chapter *entity.Chapter) error

	// GetByID 根据 ID 获取章节
	GetByID(ctx context.Context, id string) (*entity.Chapter, error)

	// Update 更新章节
	Update(ctx context.Context, chapter *entity.Chapter) error

	// Delete 删除章节
	Delete(ctx context.Context, id string) error

	// ListByProject 获取项目章节列表（按序号排序）
	ListByProject(ctx context.Context, projectID string, pagination Pagination) (*PagedResult[*entity.Chapter], error)

	// GetNextSeqNum 获取下一个序号
	GetNextSeqNum(ctx context.Context, projectID string) (int, error)
}
