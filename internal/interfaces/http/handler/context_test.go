package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-context-svc/internal/application/assembly"
	"z-novel-context-svc/internal/config"
	"z-novel-context-svc/internal/domain/entity"
	"z-novel-context-svc/internal/interfaces/http/dto"
	"z-novel-context-svc/pkg/errors"
)

type fakeContentStore struct {
	projects map[string]bool
	chapters map[string]string
	units    map[string][]*entity.ContentUnit

	mu        sync.Mutex
	listCalls int
}

func (s *fakeContentStore) ListContentUnits(ctx context.Context, projectID string, kinds []entity.ContentUnitKind) ([]*entity.ContentUnit, error) {
	s.mu.Lock()
	s.listCalls++
	s.mu.Unlock()
	if !s.projects[projectID] {
		return nil, errors.New(errors.CodeProjectNotFound, "project not found").
			WithDetail(fmt.Sprintf("project_id=%s", projectID))
	}
	return s.units[projectID], nil
}

func (s *fakeContentStore) GetChapterText(ctx context.Context, chapterID string) (string, error) {
	text, ok := s.chapters[chapterID]
	if !ok {
		return "", errors.New(errors.CodeChapterNotFound, "chapter not found").
			WithDetail(fmt.Sprintf("chapter_id=%s", chapterID))
	}
	return text, nil
}

func (s *fakeContentStore) RecordUsage(ctx context.Context, unitIDs []string, at time.Time) error {
	return nil
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	bytes, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.data[key] = bytes
	c.mu.Unlock()
	return nil
}

func contextEngineConfig(cacheEnabled bool) config.EngineConfig {
	cfg := config.EngineConfig{
		DefaultStrategy: config.StrategyConfig{
			MaxTokens:             4000,
			CoreRatio:             0.5,
			CharacterRatio:        0.2,
			PlotRatio:             0.15,
			WorldRatio:            0.1,
			HistoricalRatio:       0.05,
			PreserveDialogue:      true,
			PreserveForeshadowing: true,
			MinCharacterMentions:  1,
		},
		Scorer: config.ScorerConfig{
			RelevanceWeight:     0.30,
			ImportanceWeight:    0.35,
			RecencyWeight:       0.15,
			InvolvementWeight:   0.20,
			RecencyHalfLifeDays: 7,
		},
	}
	if cacheEnabled {
		cfg.ContextCache = config.ContextCacheConfig{Enabled: true, TTL: time.Minute}
	}
	return cfg
}

func newContextRouter(store assembly.ContentStore, cache assembly.KVCache) *gin.Engine {
	gin.SetMode(gin.TestMode)
	asm := assembly.NewAssembler(contextEngineConfig(cache != nil), store, cache, nil, nil, nil)
	h := NewContextHandler(asm)
	r := gin.New()
	r.POST("/api/v1/projects/:pid/context", h.AssembleContext)
	return r
}

func contextStore() *fakeContentStore {
	return &fakeContentStore{
		projects: map[string]bool{"p1": true},
		chapters: map[string]string{"ch1": strings.Repeat("林远与苏芸并肩而行。", 300)},
		units: map[string][]*entity.ContentUnit{"p1": {
			{ID: "cu-lin", ProjectID: "p1", Kind: entity.UnitKindCharacter, CharacterName: "林远", Body: "林远" + strings.Repeat("忠", 88), Importance: 5},
			{ID: "pl-main", ProjectID: "p1", Kind: entity.UnitKindPlotPoint, Body: strings.Repeat("局", 120), Importance: 9},
		}},
	}
}

func postContext(r *gin.Engine, projectID string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/"+projectID+"/context", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAssembleContextEndpoint(t *testing.T) {
	r := newContextRouter(contextStore(), nil)

	rec := postContext(r, "p1", `{"chapter_id":"ch1","cursor_position":3000,"strategy":{"max_tokens":500}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.Response[*dto.ContextResponse]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 200, resp.Code)
	require.NotNil(t, resp.Data)

	assert.Equal(t, "p1", resp.Data.ProjectID)
	assert.Equal(t, "ch1", resp.Data.ChapterID)
	assert.NotEmpty(t, resp.Data.Sections)
	assert.NotEmpty(t, resp.Data.PromptText)
	assert.NotEmpty(t, resp.Data.ContentHash)
	assert.LessOrEqual(t, resp.Data.TotalTokens, 500)
	assert.False(t, resp.Data.FromCache)
	assert.False(t, resp.Data.BudgetExceeded)
}

func TestAssembleContextMissingProject(t *testing.T) {
	r := newContextRouter(contextStore(), nil)

	rec := postContext(r, "p-gone", `{"chapter_id":"ch1"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 404, resp.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(errors.CodeProjectNotFound), resp.Error.ErrorCode)
	assert.Contains(t, resp.Error.Details, "p-gone")
}

func TestAssembleContextMissingChapter(t *testing.T) {
	r := newContextRouter(contextStore(), nil)

	rec := postContext(r, "p1", `{"chapter_id":"ch-gone"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(errors.CodeChapterNotFound), resp.Error.ErrorCode)
}

func TestAssembleContextRejectsBadStrategy(t *testing.T) {
	r := newContextRouter(contextStore(), nil)

	t.Run("negative ratio", func(t *testing.T) {
		rec := postContext(r, "p1", `{"chapter_id":"ch1","strategy":{"core_ratio":-0.1}}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp dto.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, string(errors.CodeInvalidRatio), resp.Error.ErrorCode)
	})

	t.Run("zero budget", func(t *testing.T) {
		rec := postContext(r, "p1", `{"chapter_id":"ch1","strategy":{"max_tokens":0}}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp dto.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, string(errors.CodeInvalidBudget), resp.Error.ErrorCode)
	})

	t.Run("missing chapter_id", func(t *testing.T) {
		rec := postContext(r, "p1", `{"cursor_position":10}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAssembleContextNoCacheForcesRebuild(t *testing.T) {
	store := contextStore()
	cache := &memoryCache{data: make(map[string][]byte)}
	r := newContextRouter(store, cache)
	body := `{"chapter_id":"ch1","cursor_position":3000}`

	rec := postContext(r, "p1", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, store.listCalls)

	// 缓存命中,不再触发构建
	var cached dto.Response[*dto.ContextResponse]
	rec = postContext(r, "p1", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cached))
	assert.True(t, cached.Data.FromCache)
	assert.Equal(t, 1, store.listCalls)

	// no_cache 绕过缓存读取重建一次
	var fresh dto.Response[*dto.ContextResponse]
	rec = postContext(r, "p1", `{"chapter_id":"ch1","cursor_position":3000,"no_cache":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fresh))
	assert.False(t, fresh.Data.FromCache)
	assert.Equal(t, 2, store.listCalls)
	assert.Equal(t, cached.Data.ContentHash, fresh.Data.ContentHash)
}
