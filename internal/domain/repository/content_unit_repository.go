// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"time"

	"z-novel-context-svc/internal/domain/entity"
)

// ContentUnitFilter 内容单元过滤条件
type ContentUnitFilter struct {
	Kinds         []entity.ContentUnitKind
	CharacterName string
	Protected     *bool
}

// ContentUnitRepository 内容单元仓储接口
type ContentUnitRepository interface {
	// Create 创建内容单元
	Create(ctx context.Context, unit *entity.ContentUnit) error

	// GetByID 根据 ID 获取内容单元
	GetByID(ctx context.Context, id string) (*entity.ContentUnit, error)

	// Update 更新内容单元
	Update(ctx context.Context, unit *entity.ContentUnit) error

	// Delete 删除内容单元
	Delete(ctx context.Context, id string) error

	// ListByProject 分页获取项目内容单元
	ListByProject(ctx context.Context, projectID string, filter *ContentUnitFilter, pagination Pagination) (*PagedResult[*entity.ContentUnit], error)

	// ListAllByProject 获取项目全部内容单元（组装时的单次读取）
	ListAllByProject(ctx context.Context, projectID string, kinds []entity.ContentUnitKind) ([]*entity.ContentUnit, error)

	// IncrementUsage 批量记录使用。usage_count 只增，last_used_at 只前移。
	IncrementUsage(ctx context.Context, ids []string, usedAt time.Time) error

	// ClearDanglingRefs 清空指向已删除单元的伏笔/回收引用，返回受影响行数
	ClearDanglingRefs(ctx context.Context, targetID string) (int64, error)
}
