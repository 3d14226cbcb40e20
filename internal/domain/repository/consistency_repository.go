// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"time"

	"z-novel-context-svc/internal/domain/entity"
)

// ConsistencyCheckRepository 一致性检查记录仓储接口
type ConsistencyCheckRepository interface {
	// Create 创建检查记录（含问题明细）
	Create(ctx context.Context, check *entity.ConsistencyCheck) error

	// GetByID 根据 ID 获取检查记录
	GetByID(ctx context.Context, id string) (*entity.ConsistencyCheck, error)

	// ListByProject 获取项目检查记录列表
	ListByProject(ctx context.Context, projectID string, checkType entity.CheckType, pagination Pagination) (*PagedResult[*entity.ConsistencyCheck], error)

	// CountIssuesByCharacter 统计时间窗口内各角色的问题数，供打分反馈使用
	CountIssuesByCharacter(ctx context.Context, projectID string, since time.Time) (map[string]int, error)
}
