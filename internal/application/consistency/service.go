package consistency

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"z-novel-context-svc/internal/domain/entity"
	"z-novel-context-svc/internal/domain/repository"
	"z-novel-context-svc/pkg/errors"
	"z-novel-context-svc/pkg/metrics"
)

var checkTracer = otel.Tracer("consistency.service")

// Service 一致性检查应用服务。
// 记录的检查结果经 ConsistencyCheckRepository.CountIssuesByCharacter
// 回流到组装打分的 importance 惩罚。
type Service struct {
	checker     *Checker
	projectRepo repository.ProjectRepository
	unitRepo    repository.ContentUnitRepository
	checkRepo   repository.ConsistencyCheckRepository
}

// NewService 创建一致性检查服务
func NewService(
	checker *Checker,
	projectRepo repository.ProjectRepository,
	unitRepo repository.ContentUnitRepository,
	checkRepo repository.ConsistencyCheckRepository,
) *Service {
	return &Service{
		checker:     checker,
		projectRepo: projectRepo,
		unitRepo:    unitRepo,
		checkRepo:   checkRepo,
	}
}

// RecordCheck 对生成文本执行一次检查并落库。
// 检查本身从不失败，只有入参与存取错误会返回。
func (s *Service) RecordCheck(ctx context.Context, projectID, generatedText string, checkType entity.CheckType) (*entity.ConsistencyCheck, error) {
	if !checkType.Valid() {
		return nil, errors.New(errors.CodeInvalidParam, "unsupported check type").
			WithDetail(fmt.Sprintf("check_type=%s", checkType))
	}
	if strings.TrimSpace(generatedText) == "" {
		return nil, errors.New(errors.CodeInvalidParam, "generated text is empty")
	}

	ctx, span := checkTracer.Start(ctx, "consistency.RecordCheck",
		trace.WithAttributes(
			attribute.String("project.id", projectID),
			attribute.String("check.type", string(checkType)),
		))
	defer span.End()

	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if project == nil {
		return nil, errors.New(errors.CodeProjectNotFound, "project not found").
			WithDetail(fmt.Sprintf("project_id=%s", projectID))
	}

	units, err := s.unitRepo.ListAllByProject(ctx, projectID, entity.AllUnitKinds())
	if err != nil {
		span.RecordError(err)
		metrics.ConsistencyCheckTotal.WithLabelValues(string(checkType), "error").Inc()
		return nil, fmt.Errorf("failed to list content units: %w", err)
	}

	check := s.checker.Run(ctx, &CheckInput{
		ProjectID: projectID,
		Text:      generatedText,
		Units:     units,
	}, checkType)

	if err := s.checkRepo.Create(ctx, check); err != nil {
		span.RecordError(err)
		metrics.ConsistencyCheckTotal.WithLabelValues(string(checkType), "error").Inc()
		return nil, fmt.Errorf("failed to save consistency check: %w", err)
	}

	metrics.ConsistencyCheckTotal.WithLabelValues(string(checkType), "success").Inc()
	for _, issue := range check.Issues {
		metrics.ConsistencyIssues.WithLabelValues(string(checkType), string(issue.Severity)).Inc()
	}
	span.SetAttributes(
		attribute.Int("check.issue_count", len(check.Issues)),
		attribute.Float64("check.overall_score", check.OverallScore),
	)
	return check, nil
}

// GetCheck 按 ID 获取检查记录
func (s *Service) GetCheck(ctx context.Context, id string) (*entity.ConsistencyCheck, error) {
	check, err := s.checkRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get consistency check: %w", err)
	}
	if check == nil {
		return nil, errors.New(errors.CodeCheckNotFound, "consistency check not found").
			WithDetail(fmt.Sprintf("check_id=%s", id))
	}
	return check, nil
}

// ListChecks 分页获取项目的检查记录，checkType 为空表示不过滤
func (s *Service) ListChecks(ctx context.Context, projectID string, checkType entity.CheckType, pagination repository.Pagination) (*repository.PagedResult[*entity.ConsistencyCheck], error) {
	if checkType != "" && !checkType.Valid() {
		return nil, errors.New(errors.CodeInvalidParam, "unsupported check type").
			WithDetail(fmt.Sprintf("check_type=%s", checkType))
	}
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if project == nil {
		return nil, errors.New(errors.CodeProjectNotFound, "project not found").
			WithDetail(fmt.Sprintf("project_id=%s", projectID))
	}
	result, err := s.checkRepo.ListByProject(ctx, projectID, checkType, pagination)
	if err != nil {
		return nil, fmt.Errorf("failed to list consistency checks: %w", err)
	}
	return result, nil
}
