package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-context-svc/internal/application/consistency"
	"z-novel-context-svc/internal/domain/entity"
	"z-novel-context-svc/internal/domain/repository"
	"z-novel-context-svc/internal/interfaces/http/dto"
	"z-novel-context-svc/pkg/errors"
)

type stubUnitListRepo struct {
	repository.ContentUnitRepository
	units []*entity.ContentUnit
}

func (s *stubUnitListRepo) ListAllByProject(ctx context.Context, projectID string, kinds []entity.ContentUnitKind) ([]*entity.ContentUnit, error) {
	return s.units, nil
}

type stubCheckRepo struct {
	repository.ConsistencyCheckRepository
	created []*entity.ConsistencyCheck
	byID    *entity.ConsistencyCheck
}

func (s *stubCheckRepo) Create(ctx context.Context, check *entity.ConsistencyCheck) error {
	s.created = append(s.created, check)
	return nil
}

func (s *stubCheckRepo) GetByID(ctx context.Context, id string) (*entity.ConsistencyCheck, error) {
	return s.byID, nil
}

func (s *stubCheckRepo) ListByProject(ctx context.Context, projectID string, checkType entity.CheckType, pagination repository.Pagination) (*repository.PagedResult[*entity.ConsistencyCheck], error) {
	items := []*entity.ConsistencyCheck{}
	if s.byID != nil {
		items = append(items, s.byID)
	}
	return repository.NewPagedResult(items, int64(len(items)), pagination), nil
}

func newCheckRouter(project *entity.Project, units []*entity.ContentUnit) (*gin.Engine, *stubCheckRepo) {
	gin.SetMode(gin.TestMode)
	checks := &stubCheckRepo{}
	svc := consistency.NewService(
		consistency.NewChecker(),
		&stubProjectRepo{project: project},
		&stubUnitListRepo{units: units},
		checks,
	)
	h := NewCheckHandler(svc)
	r := gin.New()
	r.POST("/api/v1/projects/:pid/checks", h.RecordCheck)
	r.GET("/api/v1/projects/:pid/checks", h.ListChecks)
	r.GET("/api/v1/checks/:kid", h.GetCheck)
	return r, checks
}

func TestRecordCheckEndpoint(t *testing.T) {
	roster := []*entity.ContentUnit{
		{ID: "cu-lin", ProjectID: "p1", Kind: entity.UnitKindCharacter, CharacterName: "林远", Body: "林远"},
	}
	r, checks := newCheckRouter(&entity.Project{ID: "p1", Name: "北境风云"}, roster)

	body := `{"generated_text":"张屠夫道:「让开。」","check_type":"character_consistency"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/p1/checks", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp dto.Response[*dto.ConsistencyCheckResponse]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data)

	assert.Equal(t, "p1", resp.Data.ProjectID)
	assert.Equal(t, "character_consistency", resp.Data.CheckType)
	require.Len(t, resp.Data.Issues, 1)
	assert.Equal(t, "unknown_speaker", resp.Data.Issues[0].Kind)
	assert.InDelta(t, 0.95, resp.Data.OverallScore, 1e-9)
	assert.Len(t, checks.created, 1)
}

func TestRecordCheckEndpointRejectsUnknownType(t *testing.T) {
	r, checks := newCheckRouter(&entity.Project{ID: "p1"}, nil)

	body := `{"generated_text":"正文内容。","check_type":"grammar"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/p1/checks", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(errors.CodeInvalidParam), resp.Error.ErrorCode)
	assert.Empty(t, checks.created)
}

func TestRecordCheckEndpointMissingProject(t *testing.T) {
	r, _ := newCheckRouter(nil, nil)

	body := `{"generated_text":"正文内容。","check_type":"language_purity"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/p-gone/checks", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(errors.CodeProjectNotFound), resp.Error.ErrorCode)
}

func TestGetCheckEndpointNotFound(t *testing.T) {
	r, _ := newCheckRouter(&entity.Project{ID: "p1"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checks/chk-gone", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(errors.CodeCheckNotFound), resp.Error.ErrorCode)
}

func TestListChecksEndpointStripsContent(t *testing.T) {
	r, checks := newCheckRouter(&entity.Project{ID: "p1"}, nil)
	checks.byID = &entity.ConsistencyCheck{
		ID:        "chk1",
		ProjectID: "p1",
		CheckType: entity.CheckTypePurity,
		Content:   "被检的原始文本",
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects/p1/checks?check_type=language_purity", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.Response[*dto.ConsistencyCheckListResponse]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data)
	require.Len(t, resp.Data.Checks, 1)
	assert.Empty(t, resp.Data.Checks[0].Content)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 1, resp.Meta.Total)
}
