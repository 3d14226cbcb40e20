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

var _ repository.ContentUnitRepository = (*ContentUnitRepository)(nil)

// ContentUnitRepository 内容单元仓储实现
type ContentUnitRepository struct {
	client *Client
}

// NewContentUnitRepository 创建内容单元仓储
func NewContentUnitRepository(client *Client) *ContentUnitRepository {
	return &ContentUnitRepository{client: client}
}

// Create 创建内容单元
func (r *ContentUnitRepository) Create(ctx context.Context, unit *entity.ContentUnit) error {
	ctx, span := tracer.Start(ctx, "postgres.ContentUnitRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(unit).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create content unit: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取内容单元
func (r *ContentUnitRepository) GetByID(ctx context.Context, id string) (*entity.ContentUnit, error) {
	ctx, span := tracer.Start(ctx, "postgres.ContentUnitRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var unit entity.ContentUnit
	if err := db.First(&unit, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get content unit: %w", err)
	}
	return &unit, nil
}

// Update 更新内容单元
func (r *ContentUnitRepository) Update(ctx context.Context, unit *entity.ContentUnit) error {
	ctx, span := tracer.Start(ctx, "postgres.ContentUnitRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(unit).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update content unit: %w", err)
	}
	return nil
}

// Delete 删除内容单元
func (r *ContentUnitRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.ContentUnitRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.ContentUnit{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete content unit: %w", err)
	}
	return nil
}

// ListByProject 分页获取项目内容单元
func (r *ContentUnitRepository) ListByProject(ctx context.Context, projectID string, filter *repository.ContentUnitFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.ContentUnit], error) {
	ctx, span := tracer.Start(ctx, "postgres.ContentUnitRepository.ListByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.ContentUnit{}).Where("project_id = ?", projectID)

	if filter != nil {
		if len(filter.Kinds) > 0 {
			query = query.Where("kind IN ?", kindStrings(filter.Kinds))
		}
		if filter.CharacterName != "" {
			query = query.Where("character_name = ?", filter.CharacterName)
		}
		if filter.Protected != nil {
			query = query.Where("protected = ?", *filter.Protected)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count content units: %w", err)
	}

	var units []*entity.ContentUnit
	if err := query.Order("updated_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&units).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list content units: %w", err)
	}

	return repository.NewPagedResult(units, total, pagination), nil
}

// ListAllByProject 获取项目全部内容单元。
// 按创建时间升序，组装结果的确定性依赖该顺序。
func (r *ContentUnitRepository) ListAllByProject(ctx context.Context, projectID string, kinds []entity.ContentUnitKind) ([]*entity.ContentUnit, error) {
	ctx, span := tracer.Start(ctx, "postgres.ContentUnitRepository.ListAllByProject")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Where("project_id = ?", projectID)
	if len(kinds) > 0 {
		query = query.Where("kind IN ?", kindStrings(kinds))
	}

	var units []*entity.ContentUnit
	if err := query.Order("created_at ASC, id ASC").Find(&units).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list content units: %w", err)
	}
	return units, nil
}

// IncrementUsage 批量记录使用。usage_count 只增，last_used_at 只前移，
// 使用记录不改动 updated_at。
func (r *ContentUnitRepository) IncrementUsage(ctx context.Context, ids []string, usedAt time.Time) error {
	ctx, span := tracer.Start(ctx, "postgres.ContentUnitRepository.IncrementUsage")
	defer span.End()

	if len(ids) == 0 {
		return nil
	}

	db := getDB(ctx, r.client.db)
	err := db.Model(&entity.ContentUnit{}).
		Where("id IN ?", ids).
		UpdateColumns(map[string]interface{}{
			"usage_count":  gorm.Expr("usage_count + 1"),
			"last_used_at": gorm.Expr("GREATEST(COALESCE(last_used_at, 'epoch'::timestamptz), ?)", usedAt),
		}).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to increment usage: %w", err)
	}
	return nil
}

// ClearDanglingRefs 清空指向已删除单元的伏笔/回收引用，返回受影响行数
func (r *ContentUnitRepository) ClearDanglingRefs(ctx context.Context, targetID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.ContentUnitRepository.ClearDanglingRefs")
	defer span.End()

	db := getDB(ctx, r.client.db)
	result := db.Model(&entity.ContentUnit{}).
		Where("foreshadow_id = ? OR resolution_id = ?", targetID, targetID).
		Updates(map[string]interface{}{
			"foreshadow_id": gorm.Expr("CASE WHEN foreshadow_id = ? THEN NULL ELSE foreshadow_id END", targetID),
			"resolution_id": gorm.Expr("CASE WHEN resolution_id = ? THEN NULL ELSE resolution_id END", targetID),
		})
	if result.Error != nil {
		span.RecordError(result.Error)
		return 0, fmt.Errorf("failed to clear dangling refs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// kindStrings 类型切片转字符串切片供 IN 条件绑定
func kindStrings(kinds []entity.ContentUnitKind) []string {
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, string(k))
	}
	return out
}
