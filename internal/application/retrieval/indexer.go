package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"z-novel-context-svc/internal/domain/entity"
)

const (
	defaultChunkSizeRunes    = 800
	defaultChunkOverlapRunes = 80
	defaultEmbeddingBatch    = 32
)

// Indexer 维护内容单元的向量索引。
// 写路径固定为先删后写，单元更新不会残留旧分片。
type Indexer struct {
	embedder Embedder
	vector   VectorRepository

	embeddingBatchSize int
	chunkSizeRunes     int
	chunkOverlapRunes  int
}

// NewIndexer 创建索引器，batchSize 非正时使用默认值
func NewIndexer(embedder Embedder, vector VectorRepository, embeddingBatchSize int) *Indexer {
	if embeddingBatchSize <= 0 {
		embeddingBatchSize = defaultEmbeddingBatch
	}
	return &Indexer{
		embedder:           embedder,
		vector:             vector,
		embeddingBatchSize: embeddingBatchSize,
		chunkSizeRunes:     defaultChunkSizeRunes,
		chunkOverlapRunes:  defaultChunkOverlapRunes,
	}
}

// Enabled 依赖齐备时才可索引
func (i *Indexer) Enabled() bool {
	return i != nil && i.embedder != nil && i.vector != nil
}

func (i *Indexer) ensureReady(ctx context.Context) error {
	if i == nil || i.vector == nil {
		return ErrVectorDisabled
	}
	return i.vector.EnsureContentUnitsCollection(ctx)
}

// IndexUnit 重建一个内容单元的向量分片。
// 空正文只执行删除，避免旧分片残留。
func (i *Indexer) IndexUnit(ctx context.Context, projectID string, unit *entity.ContentUnit) error {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return fmt.Errorf("project_id is required")
	}
	if unit == nil {
		return fmt.Errorf("unit is nil")
	}
	if strings.TrimSpace(unit.ID) == "" {
		return fmt.Errorf("unit.id is required")
	}
	if !i.Enabled() {
		return ErrVectorDisabled
	}
	if err := i.ensureReady(ctx); err != nil {
		return err
	}

	if err := i.vector.DeleteUnitVectors(ctx, projectID, unit.ID); err != nil {
		return err
	}

	body := strings.TrimSpace(unit.Body)
	if body == "" {
		return nil
	}
	chunks := chunkRunes(body, i.chunkSizeRunes, i.chunkOverlapRunes)
	if len(chunks) == 0 {
		return nil
	}

	embedInputs := make([]string, 0, len(chunks))
	vectors := make([]*UnitVector, 0, len(chunks))
	for _, chunk := range chunks {
		embedInputs = append(embedInputs, embedInput(unit, chunk))
		vectors = append(vectors, &UnitVector{
			ID:        uuid.NewString(),
			UnitID:    unit.ID,
			ProjectID: projectID,
			Kind:      string(unit.Kind),
			Text:      chunk,
		})
	}

	embedded, err := i.embedBatch(ctx, embedInputs)
	if err != nil {
		return err
	}
	if len(embedded) != len(vectors) {
		return fmt.Errorf("embedding count mismatch: got %d, want %d", len(embedded), len(vectors))
	}
	for idx := range vectors {
		vectors[idx].Vector = embedded[idx]
	}
	return i.vector.UpsertUnitVectors(ctx, projectID, vectors)
}

// RemoveUnit 删除一个单元的全部向量分片
func (i *Indexer) RemoveUnit(ctx context.Context, projectID, unitID string) error {
	if strings.TrimSpace(projectID) == "" || strings.TrimSpace(unitID) == "" {
		return fmt.Errorf("project_id and unit_id are required")
	}
	if !i.Enabled() {
		return ErrVectorDisabled
	}
	if err := i.ensureReady(ctx); err != nil {
		return err
	}
	return i.vector.DeleteUnitVectors(ctx, projectID, unitID)
}

// ReindexProject 逐个重建项目全部单元的索引，供初始化命令使用
func (i *Indexer) ReindexProject(ctx context.Context, projectID string, units []*entity.ContentUnit) error {
	for _, unit := range units {
		if err := i.IndexUnit(ctx, projectID, unit); err != nil {
			return fmt.Errorf("failed to index unit %s: %w", unit.ID, err)
		}
	}
	return nil
}

// embedInput 为向量化拼接单元上下文，角色与标签有助于召回
func embedInput(unit *entity.ContentUnit, chunk string) string {
	var sb strings.Builder
	if unit.CharacterName != "" {
		sb.WriteString("角色：")
		sb.WriteString(unit.CharacterName)
		sb.WriteByte('\n')
	}
	if len(unit.Tags) > 0 {
		sb.WriteString("标签：")
		sb.WriteString(strings.Join(unit.Tags, "，"))
		sb.WriteByte('\n')
	}
	sb.WriteString(chunk)
	return sb.String()
}

// chunkRunes 按字符数切分，相邻块带重叠
func chunkRunes(text string, maxRunes, overlapRunes int) []string {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return nil
	}
	if maxRunes <= 0 {
		return []string{raw}
	}
	if overlapRunes < 0 {
		overlapRunes = 0
	}
	runes := []rune(raw)
	if len(runes) <= maxRunes {
		return []string{raw}
	}
	step := maxRunes - overlapRunes
	if step <= 0 {
		step = maxRunes
	}

	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + maxRunes
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end >= len(runes) {
			break
		}
	}
	return out
}

func (i *Indexer) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if i == nil || i.embedder == nil {
		return nil, ErrVectorDisabled
	}
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += i.embeddingBatchSize {
		end := start + i.embeddingBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := i.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}
