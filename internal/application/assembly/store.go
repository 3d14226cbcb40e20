package assembly

import (
	"context"
	"fmt"
	"time"

	"z-novel-context-svc/internal/domain/entity"
	"z-novel-context-svc/internal/domain/repository"
	"z-novel-context-svc/pkg/errors"
)

// ContentStore 组装引擎依赖的数据协作方
type ContentStore interface {
	// ListContentUnits 读取项目的候选内容单元
	ListContentUnits(ctx context.Context, projectID string, kinds []entity.ContentUnitKind) ([]*entity.ContentUnit, error)

	// GetChapterText 读取章节正文
	GetChapterText(ctx context.Context, chapterID string) (string, error)

	// RecordUsage 批量记录单元被选入上下文
	RecordUsage(ctx context.Context, unitIDs []string, at time.Time) error
}

// RepositoryStore 基于领域仓储的 ContentStore 实现
type RepositoryStore struct {
	projectRepo repository.ProjectRepository
	chapterRepo repository.ChapterRepository
	unitRepo    repository.ContentUnitRepository
}

// NewRepositoryStore 创建仓储适配
func NewRepositoryStore(
	projectRepo repository.ProjectRepository,
	chapterRepo repository.ChapterRepository,
	unitRepo repository.ContentUnitRepository,
) *RepositoryStore {
	return &RepositoryStore{
		projectRepo: projectRepo,
		chapterRepo: chapterRepo,
		unitRepo:    unitRepo,
	}
}

// ListContentUnits 读取内容单元，项目不存在时带 ID 报错
func (s *RepositoryStore) ListContentUnits(ctx context.Context, projectID string, kinds []entity.ContentUnitKind) ([]*entity.ContentUnit, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if project == nil {
		return nil, errors.New(errors.CodeProjectNotFound, "project not found").
			WithDetail(fmt.Sprintf("project_id=%s", projectID))
	}
	units, err := s.unitRepo.ListAllByProject(ctx, projectID, kinds)
	if err != nil {
		return nil, fmt.Errorf("failed to list content units: %w", err)
	}
	return units, nil
}

// GetChapterText 读取章节正文，章节不存在时带 ID 报错
func (s *RepositoryStore) GetChapterText(ctx context.Context, chapterID string) (string, error) {
	chapter, err := s.chapterRepo.GetByID(ctx, chapterID)
	if err != nil {
		return "", fmt.Errorf("failed to get chapter: %w", err)
	}
	if chapter == nil {
		return "", errors.New(errors.CodeChapterNotFound, "chapter not found").
			WithDetail(fmt.Sprintf("chapter_id=%s", chapterID))
	}
	return chapter.Content, nil
}

// RecordUsage 批量更新使用计数
func (s *RepositoryStore) RecordUsage(ctx context.Context, unitIDs []string, at time.Time) error {
	if len(unitIDs) == 0 {
		return nil
	}
	if err := s.unitRepo.IncrementUsage(ctx, unitIDs, at); err != nil {
		return fmt.Errorf("failed to increment usage: %w", err)
	}
	return nil
}
