package assembly

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-context-svc/internal/config"
	"z-novel-context-svc/internal/domain/entity"
	"z-novel-context-svc/pkg/errors"
)

type fakeStore struct {
	projects map[string]bool
	chapters map[string]string
	units    map[string][]*entity.ContentUnit

	// listGate 非空时阻塞 ListContentUnits,直到通道关闭
	listGate chan struct{}

	mu           sync.Mutex
	listCalls    int
	chapterCalls int
	usage        [][]string
}

func newFakeStore(projectID, chapterID, chapterText string, units ...*entity.ContentUnit) *fakeStore {
	return &fakeStore{
		projects: map[string]bool{projectID: true},
		chapters: map[string]string{chapterID: chapterText},
		units:    map[string][]*entity.ContentUnit{projectID: units},
	}
}

func (s *fakeStore) ListContentUnits(ctx context.Context, projectID string, kinds []entity.ContentUnitKind) ([]*entity.ContentUnit, error) {
	s.mu.Lock()
	s.listCalls++
	gate := s.listGate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if !s.projects[projectID] {
		return nil, errors.New(errors.CodeProjectNotFound, "project not found").
			WithDetail(fmt.Sprintf("project_id=%s", projectID))
	}
	return s.units[projectID], nil
}

func (s *fakeStore) GetChapterText(ctx context.Context, chapterID string) (string, error) {
	s.mu.Lock()
	s.chapterCalls++
	s.mu.Unlock()
	text, ok := s.chapters[chapterID]
	if !ok {
		return "", errors.New(errors.CodeChapterNotFound, "chapter not found").
			WithDetail(fmt.Sprintf("chapter_id=%s", chapterID))
	}
	return text, nil
}

func (s *fakeStore) RecordUsage(ctx context.Context, unitIDs []string, at time.Time) error {
	s.mu.Lock()
	s.usage = append(s.usage, unitIDs)
	s.mu.Unlock()
	return nil
}

type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	bytes, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.data[key] = bytes
	c.sets++
	c.mu.Unlock()
	return nil
}

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
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
}

func characterUnit(id, name, filler string, importance int) *entity.ContentUnit {
	return &entity.ContentUnit{
		ID:            id,
		ProjectID:     "p1",
		Kind:          entity.UnitKindCharacter,
		Body:          name + strings.Repeat(filler, 88),
		CharacterName: name,
		Importance:    importance,
	}
}

func fillerUnit(id string, kind entity.ContentUnitKind, filler string, runes, importance int) *entity.ContentUnit {
	return &entity.ContentUnit{
		ID:         id,
		ProjectID:  "p1",
		Kind:       kind,
		Body:       strings.Repeat(filler, runes),
		Importance: importance,
	}
}

// 三百句十字短句,共 3000 字符;两位主角通篇出场,陈默从未露面
func scenarioChapterText() string {
	return strings.Repeat("林远与苏芸并肩而行。", 300)
}

func scenarioStore() *fakeStore {
	return newFakeStore("p1", "ch1", scenarioChapterText(),
		characterUnit("cu-lin", "林远", "忠", 5),
		characterUnit("cu-su", "苏芸", "谋", 5),
		characterUnit("cu-chen", "陈默", "隐", 5),
		fillerUnit("pl-main", entity.UnitKindPlotPoint, "局", 120, 9),
		fillerUnit("pl-side", entity.UnitKindPlotPoint, "略", 120, 2),
		fillerUnit("wo-north", entity.UnitKindWorldSetting, "域", 80, 8),
		fillerUnit("wo-waste", entity.UnitKindWorldSetting, "荒", 80, 2),
		fillerUnit("hi-war", entity.UnitKindHistoricalEvent, "史", 40, 5),
	)
}

func scenarioStrategy() CompressionStrategy {
	s := validStrategy()
	s.MaxTokens = 500
	return s
}

func TestAssembleBudgetAndEviction(t *testing.T) {
	store := scenarioStore()
	asm := NewAssembler(testEngineConfig(), store, nil, nil, nil, nil)
	strategy := scenarioStrategy()

	result, err := asm.Assemble(context.Background(), "p1", "ch1", 3000, &strategy)
	require.NoError(t, err)
	require.NotNil(t, result)

	// 核心区块:正文截到最后 500 字符,从句首开始
	core := result.Section(SectionCore)
	assert.Equal(t, 250, core.Tokens)
	assert.Len(t, []rune(core.Pinned), 500)
	assert.True(t, strings.HasPrefix(core.Pinned, "林远与"))
	assert.True(t, strings.HasSuffix(core.Pinned, "。"))

	// 角色区块:未出场的陈默最先被挤出
	char := result.Section(SectionCharacter)
	require.Len(t, char.Blocks, 2)
	assert.Equal(t, "cu-lin", char.Blocks[0].UnitID)
	assert.Equal(t, "cu-su", char.Blocks[1].UnitID)
	assert.LessOrEqual(t, char.Tokens, 100)

	// 低权重的剧情/设定单元按升序出局
	assert.Equal(t, []string{"pl-main"}, blockIDs(result.Section(SectionPlot)))
	assert.Equal(t, []string{"wo-north"}, blockIDs(result.Section(SectionWorld)))
	assert.Equal(t, []string{"hi-war"}, blockIDs(result.Section(SectionHistorical)))

	assert.LessOrEqual(t, result.TotalTokens, 500)
	assert.False(t, result.BudgetExceeded)
	assert.Less(t, result.CompressionRatio, 1.0)
	assert.Equal(t, "p1", result.ProjectID)
	assert.Equal(t, "ch1", result.ChapterID)

	// 选入的单元记了一次使用
	require.Len(t, store.usage, 1)
	assert.Equal(t, []string{"cu-lin", "cu-su", "pl-main", "wo-north", "hi-war"}, store.usage[0])
}

func blockIDs(section *Section) []string {
	ids := make([]string, 0, len(section.Blocks))
	for _, blk := range section.Blocks {
		ids = append(ids, blk.UnitID)
	}
	return ids
}

func TestAssembleRejectsInvalidStrategyBeforeAnyWork(t *testing.T) {
	store := scenarioStore()
	asm := NewAssembler(testEngineConfig(), store, nil, nil, nil, nil)

	strategy := scenarioStrategy()
	strategy.MaxTokens = 0

	result, err := asm.Assemble(context.Background(), "p1", "ch1", 0, &strategy)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, errors.CodeInvalidBudget, errors.AsAppError(err).Code)
	assert.Zero(t, store.listCalls)
	assert.Zero(t, store.chapterCalls)
	assert.Empty(t, store.usage)
}

func TestAssembleProtectedDialogueExceedsBudget(t *testing.T) {
	dialogue := fillerUnit("dlg", entity.UnitKindDialogueSnippet, "「旧约不可违。」", 150, 5)
	store := newFakeStore("p1", "ch1", "", dialogue)
	asm := NewAssembler(testEngineConfig(), store, nil, nil, nil, nil)
	strategy := scenarioStrategy()

	result, err := asm.Assemble(context.Background(), "p1", "ch1", 0, &strategy)
	require.NoError(t, err)

	assert.True(t, result.BudgetExceeded)
	assert.Equal(t, 600, result.TotalTokens)
	core := result.Section(SectionCore)
	require.Len(t, core.Blocks, 1)
	assert.Equal(t, dialogue.Body, core.Blocks[0].Text)
	assert.Equal(t, 1.0, result.CompressionRatio)
}

func TestAssembleDeterministicAcrossCalls(t *testing.T) {
	store := scenarioStore()
	asm := NewAssembler(testEngineConfig(), store, nil, nil, nil, nil)
	strategy := scenarioStrategy()

	first, err := asm.Assemble(context.Background(), "p1", "ch1", 3000, &strategy)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	second, err := asm.Assemble(context.Background(), "p1", "ch1", 3000, &strategy)
	require.NoError(t, err)

	assert.Equal(t, first.ContentHash, second.ContentHash)
	assert.Equal(t, first.TotalTokens, second.TotalTokens)
	for i := range first.Sections {
		assert.Equal(t, first.Sections[i].Text, second.Sections[i].Text)
	}
}

func TestAssembleDataUnavailable(t *testing.T) {
	store := scenarioStore()
	asm := NewAssembler(testEngineConfig(), store, nil, nil, nil, nil)
	strategy := scenarioStrategy()

	t.Run("missing chapter", func(t *testing.T) {
		result, err := asm.Assemble(context.Background(), "p1", "ch-missing", 0, &strategy)
		require.Error(t, err)
		assert.Nil(t, result)
		appErr := errors.AsAppError(err)
		assert.Equal(t, errors.CodeChapterNotFound, appErr.Code)
		assert.Contains(t, appErr.Detail, "ch-missing")
	})

	t.Run("missing project", func(t *testing.T) {
		result, err := asm.Assemble(context.Background(), "p-missing", "ch1", 0, &strategy)
		require.Error(t, err)
		assert.Nil(t, result)
		appErr := errors.AsAppError(err)
		assert.Equal(t, errors.CodeProjectNotFound, appErr.Code)
		assert.Contains(t, appErr.Detail, "p-missing")
	})
}

func TestAssembleEmptyProject(t *testing.T) {
	store := newFakeStore("p1", "ch1", "夜色渐深。")
	asm := NewAssembler(testEngineConfig(), store, nil, nil, nil, nil)

	result, err := asm.Assemble(context.Background(), "p1", "ch1", -1, nil)
	require.NoError(t, err)

	assert.Equal(t, "夜色渐深。", result.Section(SectionCore).Pinned)
	assert.False(t, result.BudgetExceeded)
	assert.Empty(t, result.UnitIDs)
	assert.Empty(t, store.usage)
}

func TestAssembleCursorSlicesSceneText(t *testing.T) {
	store := scenarioStore()
	asm := NewAssembler(testEngineConfig(), store, nil, nil, nil, nil)

	result, err := asm.Assemble(context.Background(), "p1", "ch1", 10, nil)
	require.NoError(t, err)
	assert.Equal(t, "林远与苏芸并肩而行。", result.Section(SectionCore).Pinned)

	beyond, err := asm.Assemble(context.Background(), "p1", "ch1", 999999, nil)
	require.NoError(t, err)
	assert.Len(t, []rune(beyond.Section(SectionCore).Pinned), 3000)
}

func TestAssembleServesFromCache(t *testing.T) {
	store := scenarioStore()
	cache := newFakeCache()
	cfg := testEngineConfig()
	cfg.ContextCache = config.ContextCacheConfig{Enabled: true, TTL: time.Minute}
	asm := NewAssembler(cfg, store, cache, nil, nil, nil)
	strategy := scenarioStrategy()

	first, err := asm.Assemble(context.Background(), "p1", "ch1", 3000, &strategy)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	require.Equal(t, 1, cache.sets)

	second, err := asm.Assemble(context.Background(), "p1", "ch1", 3000, &strategy)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.ContentHash, second.ContentHash)
	assert.Equal(t, 1, store.listCalls)

	// 命中缓存也要记使用
	assert.Len(t, store.usage, 2)

	// 不同的策略指纹落在不同的缓存键上
	wider := strategy
	wider.MaxTokens = 800
	third, err := asm.Assemble(context.Background(), "p1", "ch1", 3000, &wider)
	require.NoError(t, err)
	assert.False(t, third.FromCache)
	assert.Equal(t, 2, store.listCalls)
}

func TestAssembleFreshBypassesCacheRead(t *testing.T) {
	store := scenarioStore()
	cache := newFakeCache()
	cfg := testEngineConfig()
	cfg.ContextCache = config.ContextCacheConfig{Enabled: true, TTL: time.Minute}
	asm := NewAssembler(cfg, store, cache, nil, nil, nil)
	strategy := scenarioStrategy()

	first, err := asm.Assemble(context.Background(), "p1", "ch1", 3000, &strategy)
	require.NoError(t, err)

	fresh, err := asm.AssembleFresh(context.Background(), "p1", "ch1", 3000, &strategy)
	require.NoError(t, err)
	assert.False(t, fresh.FromCache)
	assert.Equal(t, first.ContentHash, fresh.ContentHash)
	assert.Equal(t, 2, store.listCalls)

	// 强制重建的产物照样回填缓存
	assert.Equal(t, 2, cache.sets)
}

func TestAssembleConcurrentMissesCollapse(t *testing.T) {
	store := scenarioStore()
	store.listGate = make(chan struct{})
	cache := newFakeCache()
	cfg := testEngineConfig()
	cfg.ContextCache = config.ContextCacheConfig{Enabled: true, TTL: time.Minute}
	asm := NewAssembler(cfg, store, cache, nil, nil, nil)
	strategy := scenarioStrategy()

	const callers = 4
	results := make([]*IntelligentContext, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = asm.Assemble(context.Background(), "p1", "ch1", 3000, &strategy)
		}(i)
	}

	// 等全部请求压到未命中路径后再放行唯一一次构建
	time.Sleep(50 * time.Millisecond)
	close(store.listGate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
		assert.Equal(t, results[0].ContentHash, results[i].ContentHash)
	}
	assert.Equal(t, 1, store.listCalls)
	assert.Equal(t, 1, cache.sets)
	assert.Len(t, store.usage, 1)
}
