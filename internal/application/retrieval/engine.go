package retrieval

import (
	"context"
	"fmt"
	"strings"
)

const (
	defaultTopK = 10
	maxTopK     = 50
	// queryTailRunes 场景文本只取末尾这么多字符做查询向量，
	// 最近的行文对「接下来写什么」最有参考价值
	queryTailRunes = 800
)

// Engine 语义召回引擎，实现组装侧的 SemanticScorer 口。
// Milvus 或 Embedding 缺一即整体禁用并记录原因。
type Engine struct {
	embedder Embedder
	vector   VectorRepository

	disabledReason string
}

// NewEngine 创建召回引擎，依赖可为 nil
func NewEngine(embedder Embedder, vector VectorRepository) *Engine {
	e := &Engine{embedder: embedder, vector: vector}
	switch {
	case embedder == nil && vector == nil:
		e.disabledReason = "embedding endpoint and vector store are not configured"
	case embedder == nil:
		e.disabledReason = "embedding endpoint is not configured"
	case vector == nil:
		e.disabledReason = "vector store is not configured"
	}
	return e
}

// Enabled 依赖齐备时才参与打分
func (e *Engine) Enabled() bool {
	return e != nil && e.embedder != nil && e.vector != nil
}

// DisabledReason 禁用原因，启用时为空串
func (e *Engine) DisabledReason() string {
	if e == nil {
		return "retrieval engine is nil"
	}
	return e.disabledReason
}

// SimilarUnits 以场景文本末尾为查询，返回单元 ID 到相似度 [0,1] 的映射。
// 同一单元多个分片命中时取最高相似度。
func (e *Engine) SimilarUnits(ctx context.Context, projectID, sceneText string, topK int) (map[string]float64, error) {
	if !e.Enabled() {
		return nil, ErrVectorDisabled
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, fmt.Errorf("project_id is required")
	}
	query := queryTail(sceneText, queryTailRunes)
	if query == "" {
		return map[string]float64{}, nil
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	if err := e.vector.EnsureContentUnitsCollection(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure vector collection: %w", err)
	}
	vectors, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed scene text: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}

	results, err := e.vector.SearchUnits(ctx, &VectorSearchParams{
		ProjectID:   projectID,
		QueryVector: vectors[0],
		TopK:        topK,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search similar units: %w", err)
	}

	similarity := make(map[string]float64, len(results))
	for _, r := range results {
		if r == nil || strings.TrimSpace(r.UnitID) == "" {
			continue
		}
		// COSINE 距离转相似度
		score := 1 - float64(r.Score)
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		if score > similarity[r.UnitID] {
			similarity[r.UnitID] = score
		}
	}
	return similarity, nil
}

// queryTail 取文本末尾至多 max 个字符
func queryTail(text string, max int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}
	runes := []rune(trimmed)
	if len(runes) <= max {
		return trimmed
	}
	return string(runes[len(runes)-max:])
}
