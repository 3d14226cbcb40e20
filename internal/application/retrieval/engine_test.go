package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder 按文本长度产出确定性向量，便于断言对齐关系
type fakeEmbedder struct {
	inputs   [][]string
	err      error
	empty    bool
	dropLast bool
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.inputs = append(f.inputs, append([]string(nil), texts...))
	if f.err != nil {
		return nil, f.err
	}
	if f.empty {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		out = append(out, []float32{float32(utf8.RuneCountInString(text))})
	}
	if f.dropLast && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

type upsertCall struct {
	projectID string
	vectors   []*UnitVector
}

type fakeVectorRepo struct {
	ensureErr error
	searchErr error
	deleteErr error
	upsertErr error

	results []*VectorSearchResult

	ensureCalls  int
	searchParams []*VectorSearchParams
	deletes      []string
	upserts      []upsertCall
	ops          []string
}

func (f *fakeVectorRepo) EnsureContentUnitsCollection(_ context.Context) error {
	f.ensureCalls++
	return f.ensureErr
}

func (f *fakeVectorRepo) SearchUnits(_ context.Context, params *VectorSearchParams) ([]*VectorSearchResult, error) {
	f.searchParams = append(f.searchParams, params)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results, nil
}

func (f *fakeVectorRepo) DeleteUnitVectors(_ context.Context, projectID, unitID string) error {
	f.ops = append(f.ops, "delete")
	f.deletes = append(f.deletes, projectID+"/"+unitID)
	return f.deleteErr
}

func (f *fakeVectorRepo) UpsertUnitVectors(_ context.Context, projectID string, vectors []*UnitVector) error {
	f.ops = append(f.ops, "upsert")
	f.upserts = append(f.upserts, upsertCall{projectID: projectID, vectors: vectors})
	return f.upsertErr
}

func TestNewEngineDisabledReason(t *testing.T) {
	tests := []struct {
		name     string
		embedder Embedder
		vector   VectorRepository
		enabled  bool
		reason   string
	}{
		{name: "双依赖齐备", embedder: &fakeEmbedder{}, vector: &fakeVectorRepo{}, enabled: true, reason: ""},
		{name: "缺向量存储", embedder: &fakeEmbedder{}, vector: nil, enabled: false, reason: "vector store is not configured"},
		{name: "缺向量化端点", embedder: nil, vector: &fakeVectorRepo{}, enabled: false, reason: "embedding endpoint is not configured"},
		{name: "全缺", embedder: nil, vector: nil, enabled: false, reason: "embedding endpoint and vector store are not configured"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(tt.embedder, tt.vector)
			assert.Equal(t, tt.enabled, engine.Enabled())
			assert.Equal(t, tt.reason, engine.DisabledReason())
		})
	}
}

func TestSimilarUnitsDisabled(t *testing.T) {
	engine := NewEngine(nil, &fakeVectorRepo{})

	_, err := engine.SimilarUnits(context.Background(), "p1", "夜色渐深。", 10)

	assert.ErrorIs(t, err, ErrVectorDisabled)
}

func TestSimilarUnitsRequiresProject(t *testing.T) {
	engine := NewEngine(&fakeEmbedder{}, &fakeVectorRepo{})

	_, err := engine.SimilarUnits(context.Background(), "  ", "夜色渐深。", 10)

	assert.ErrorContains(t, err, "project_id is required")
}

func TestSimilarUnitsEmptySceneText(t *testing.T) {
	embedder := &fakeEmbedder{}
	vector := &fakeVectorRepo{}
	engine := NewEngine(embedder, vector)

	got, err := engine.SimilarUnits(context.Background(), "p1", "  \n\t ", 10)

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
	assert.Zero(t, vector.ensureCalls)
	assert.Empty(t, embedder.inputs)
	assert.Empty(t, vector.searchParams)
}

func TestSimilarUnitsConvertsDistanceToSimilarity(t *testing.T) {
	vector := &fakeVectorRepo{
		results: []*VectorSearchResult{
			{ID: "v1", UnitID: "cu-lin", Score: 0.2},
			{ID: "v2", UnitID: "cu-lin", Score: 0.1},
			{ID: "v3", UnitID: "cu-far", Score: 1.4},
			{ID: "v4", UnitID: "cu-same", Score: -0.3},
			{ID: "v5", UnitID: "  ", Score: 0.05},
			nil,
		},
	}
	engine := NewEngine(&fakeEmbedder{}, vector)

	got, err := engine.SimilarUnits(context.Background(), "p1", "林远推门而入。", 10)

	require.NoError(t, err)
	// 同一单元取各分片最高相似度，空白 UnitID 丢弃
	assert.Len(t, got, 2)
	assert.InDelta(t, 0.9, got["cu-lin"], 1e-6)
	assert.Equal(t, 1.0, got["cu-same"])
	// 距离 ≥ 1 截断为 0 相似度，零值映射不保留条目
	_, kept := got["cu-far"]
	assert.False(t, kept)
}

func TestSimilarUnitsTopKBounds(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{name: "零取默认", in: 0, want: 10},
		{name: "负数取默认", in: -3, want: 10},
		{name: "范围内透传", in: 7, want: 7},
		{name: "超上限截断", in: 99, want: 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vector := &fakeVectorRepo{}
			engine := NewEngine(&fakeEmbedder{}, vector)

			_, err := engine.SimilarUnits(context.Background(), "p1", "夜色渐深。", tt.in)

			require.NoError(t, err)
			require.Len(t, vector.searchParams, 1)
			assert.Equal(t, tt.want, vector.searchParams[0].TopK)
			assert.Equal(t, "p1", vector.searchParams[0].ProjectID)
		})
	}
}

func TestSimilarUnitsQueriesWithSceneTail(t *testing.T) {
	embedder := &fakeEmbedder{}
	engine := NewEngine(embedder, &fakeVectorRepo{})
	scene := strings.Repeat("昨", 300) + strings.Repeat("今", 800)

	_, err := engine.SimilarUnits(context.Background(), "p1", scene, 10)

	require.NoError(t, err)
	require.Len(t, embedder.inputs, 1)
	require.Len(t, embedder.inputs[0], 1)
	query := embedder.inputs[0][0]
	assert.Equal(t, 800, utf8.RuneCountInString(query))
	assert.Equal(t, strings.Repeat("今", 800), query)
}

func TestSimilarUnitsShortSceneUsedWhole(t *testing.T) {
	embedder := &fakeEmbedder{}
	engine := NewEngine(embedder, &fakeVectorRepo{})

	_, err := engine.SimilarUnits(context.Background(), "p1", "  林远推门而入。\n", 10)

	require.NoError(t, err)
	require.Len(t, embedder.inputs, 1)
	assert.Equal(t, "林远推门而入。", embedder.inputs[0][0])
}

func TestSimilarUnitsDependencyFailures(t *testing.T) {
	boom := errors.New("boom")

	t.Run("集合初始化失败", func(t *testing.T) {
		engine := NewEngine(&fakeEmbedder{}, &fakeVectorRepo{ensureErr: boom})

		_, err := engine.SimilarUnits(context.Background(), "p1", "夜色渐深。", 10)

		assert.ErrorContains(t, err, "failed to ensure vector collection")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("向量化失败", func(t *testing.T) {
		engine := NewEngine(&fakeEmbedder{err: boom}, &fakeVectorRepo{})

		_, err := engine.SimilarUnits(context.Background(), "p1", "夜色渐深。", 10)

		assert.ErrorContains(t, err, "failed to embed scene text")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("向量化结果为空", func(t *testing.T) {
		engine := NewEngine(&fakeEmbedder{empty: true}, &fakeVectorRepo{})

		_, err := engine.SimilarUnits(context.Background(), "p1", "夜色渐深。", 10)

		assert.ErrorContains(t, err, "empty embedding result")
	})

	t.Run("召回失败", func(t *testing.T) {
		engine := NewEngine(&fakeEmbedder{}, &fakeVectorRepo{searchErr: boom})

		_, err := engine.SimilarUnits(context.Background(), "p1", "夜色渐深。", 10)

		assert.ErrorContains(t, err, "failed to search similar units")
		assert.ErrorIs(t, err, boom)
	})
}
