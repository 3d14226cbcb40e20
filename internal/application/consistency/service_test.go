package consistency

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-context-svc/internal/domain/entity"
	"z-novel-context-svc/internal/domain/repository"
	"z-novel-context-svc/pkg/errors"
)

type stubProjectRepository struct {
	repository.ProjectRepository
	project *entity.Project
}

func (s *stubProjectRepository) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	return s.project, nil
}

type stubUnitRepository struct {
	repository.ContentUnitRepository
	units []*entity.ContentUnit
}

func (s *stubUnitRepository) ListAllByProject(ctx context.Context, projectID string, kinds []entity.ContentUnitKind) ([]*entity.ContentUnit, error) {
	return s.units, nil
}

type stubCheckRepository struct {
	repository.ConsistencyCheckRepository
	created []*entity.ConsistencyCheck
	byID    *entity.ConsistencyCheck
}

func (s *stubCheckRepository) Create(ctx context.Context, check *entity.ConsistencyCheck) error {
	s.created = append(s.created, check)
	return nil
}

func (s *stubCheckRepository) GetByID(ctx context.Context, id string) (*entity.ConsistencyCheck, error) {
	return s.byID, nil
}

func (s *stubCheckRepository) ListByProject(ctx context.Context, projectID string, checkType entity.CheckType, pagination repository.Pagination) (*repository.PagedResult[*entity.ConsistencyCheck], error) {
	return repository.NewPagedResult([]*entity.ConsistencyCheck{s.byID}, 1, pagination), nil
}

func newTestService(project *entity.Project, units []*entity.ContentUnit) (*Service, *stubCheckRepository) {
	checks := &stubCheckRepository{}
	svc := NewService(
		NewChecker(),
		&stubProjectRepository{project: project},
		&stubUnitRepository{units: units},
		checks,
	)
	return svc, checks
}

func TestRecordCheckPersistsResult(t *testing.T) {
	svc, checks := newTestService(
		&entity.Project{ID: "p1", Name: "北境风云"},
		[]*entity.ContentUnit{rosterUnit("林远")},
	)

	check, err := svc.RecordCheck(context.Background(), "p1", "张屠夫道:「让开。」", entity.CheckTypeCharacter)
	require.NoError(t, err)

	require.Len(t, check.Issues, 1)
	assert.Equal(t, "unknown_speaker", check.Issues[0].Kind)
	assert.InDelta(t, 0.95, check.OverallScore, 1e-9)
	require.Len(t, checks.created, 1)
	assert.Same(t, check, checks.created[0])
}

func TestRecordCheckCleanTextScoresFull(t *testing.T) {
	svc, _ := newTestService(
		&entity.Project{ID: "p1"},
		[]*entity.ContentUnit{rosterUnit("林远")},
	)

	check, err := svc.RecordCheck(context.Background(), "p1", "林远说:「走吧。」", entity.CheckTypeCharacter)
	require.NoError(t, err)
	assert.Empty(t, check.Issues)
	assert.Equal(t, 1.0, check.OverallScore)
}

func TestRecordCheckRejectsBadInput(t *testing.T) {
	svc, checks := newTestService(&entity.Project{ID: "p1"}, nil)

	t.Run("unsupported check type", func(t *testing.T) {
		_, err := svc.RecordCheck(context.Background(), "p1", "正文", entity.CheckType("grammar"))
		require.Error(t, err)
		assert.Equal(t, errors.CodeInvalidParam, errors.AsAppError(err).Code)
	})

	t.Run("blank text", func(t *testing.T) {
		_, err := svc.RecordCheck(context.Background(), "p1", "   ", entity.CheckTypePurity)
		require.Error(t, err)
		assert.Equal(t, errors.CodeInvalidParam, errors.AsAppError(err).Code)
	})

	assert.Empty(t, checks.created)
}

func TestRecordCheckMissingProject(t *testing.T) {
	svc, checks := newTestService(nil, nil)

	_, err := svc.RecordCheck(context.Background(), "p-gone", "正文内容。", entity.CheckTypePurity)
	require.Error(t, err)
	appErr := errors.AsAppError(err)
	assert.Equal(t, errors.CodeProjectNotFound, appErr.Code)
	assert.Contains(t, appErr.Detail, "p-gone")
	assert.Empty(t, checks.created)
}

func TestGetCheckNotFound(t *testing.T) {
	svc, _ := newTestService(&entity.Project{ID: "p1"}, nil)

	_, err := svc.GetCheck(context.Background(), "chk-gone")
	require.Error(t, err)
	appErr := errors.AsAppError(err)
	assert.Equal(t, errors.CodeCheckNotFound, appErr.Code)
	assert.Contains(t, appErr.Detail, "chk-gone")
}

func TestListChecksValidatesType(t *testing.T) {
	svc, checks := newTestService(&entity.Project{ID: "p1"}, nil)
	checks.byID = &entity.ConsistencyCheck{ID: "chk1", ProjectID: "p1"}

	_, err := svc.ListChecks(context.Background(), "p1", entity.CheckType("grammar"), repository.NewPagination(1, 20))
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidParam, errors.AsAppError(err).Code)

	result, err := svc.ListChecks(context.Background(), "p1", "", repository.NewPagination(1, 20))
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)
}
