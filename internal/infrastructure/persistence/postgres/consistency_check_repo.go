// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"z-novel-context-svc/internal/domain/entity"
	"z-novel-context-svc/internal/domain/repository"
)

var _ repository.ConsistencyCheckRepository = (*ConsistencyCheckRepository)(nil)

// ConsistencyCheckRepository 一致性检查记录仓储实现
type ConsistencyCheckRepository struct {
	client *Client
}

// NewConsistencyCheckRepository 创建一致性检查仓储
func NewConsistencyCheckRepository(client *Client) *ConsistencyCheckRepository {
	return &ConsistencyCheckRepository{client: client}
}

// Create 创建检查记录，问题明细随关联一并写入
func (r *ConsistencyCheckRepository) Create(ctx context.Context, check *entity.ConsistencyCheck) error {
	ctx, span := tracer.Start(ctx, "postgres.ConsistencyCheckRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(check).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create consistency check: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取检查记录（含问题明细）
func (r *ConsistencyCheckRepository) GetByID(ctx context.Context, id string) (*entity.ConsistencyCheck, error) {
	ctx, span := tracer.Start(ctx, "postgres.ConsistencyCheckRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var check entity.ConsistencyCheck
	if err := db.Preload("Issues").First(&check, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get consistency check: %w", err)
	}
	return &check, nil
}

// ListByProject 获取项目检查记录列表（最新在前）
func (r *ConsistencyCheckRepository) ListByProject(ctx context.Context, projectID string, checkType entity.CheckType, pagination repository.Pagination) (*repository.PagedResult[*entity.ConsistencyCheck], error) {
	ctx, span := tracer.Start(ctx, "postgres.ConsistencyCheckRepository.ListByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.ConsistencyCheck{}).Where("project_id = ?", projectID)
	if checkType != "" {
		query = query.Where("check_type = ?", string(checkType))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count consistency checks: %w", err)
	}

	var checks []*entity.ConsistencyCheck
	if err := query.Preload("Issues").
		Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&checks).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list consistency checks: %w", err)
	}

	return repository.NewPagedResult(checks, total, pagination), nil
}

// CountIssuesByCharacter 统计时间窗口内各角色的问题数。
// 只统计带角色名的问题，供打分端做重要度惩罚。
func (r *ConsistencyCheckRepository) CountIssuesByCharacter(ctx context.Context, projectID string, since time.Time) (map[string]int, error) {
	ctx, span := tracer.Start(ctx, "postgres.ConsistencyCheckRepository.CountIssuesByCharacter")
	defer span.End()

	db := getDB(ctx, r.client.db)

	var rows []struct {
		CharacterName string
		IssueCount    int
	}
	err := db.Model(&entity.ConsistencyIssue{}).
		Select("consistency_issues.character_name AS character_name, COUNT(*) AS issue_count").
		Joins("JOIN consistency_checks ON consistency_checks.id = consistency_issues.check_id").
		Where("consistency_checks.project_id = ?", projectID).
		Where("consistency_issues.character_name <> ''").
		Where("consistency_issues.created_at >= ?", since).
		Group("consistency_issues.character_name").
		Scan(&rows).Error
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count issues by character: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.CharacterName] = row.IssueCount
	}
	return counts, nil
}
