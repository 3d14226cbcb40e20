// Package retrieval 提供内容单元的语义检索：
// 单元正文向量化入 Milvus，组装时按场景文本召回相似单元。
// 整个子系统可降级，Milvus/Embedding 未配置时组装退回关键词相关度。
package retrieval

import "context"

// Embedder 文本向量化端口，由 infrastructure/embedding 提供实现
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorRepository 应用层对向量存储的最小依赖，由 Milvus 实现
type VectorRepository interface {
	// EnsureContentUnitsCollection 确保集合与索引存在
	EnsureContentUnitsCollection(ctx context.Context) error

	// SearchUnits 按向量召回单元分片
	SearchUnits(ctx context.Context, params *VectorSearchParams) ([]*VectorSearchResult, error)

	// DeleteUnitVectors 删除一个单元的全部分片向量
	DeleteUnitVectors(ctx context.Context, projectID, unitID string) error

	// UpsertUnitVectors 写入单元分片向量
	UpsertUnitVectors(ctx context.Context, projectID string, vectors []*UnitVector) error
}

// VectorSearchParams 向量召回参数
type VectorSearchParams struct {
	ProjectID   string
	QueryVector []float32
	TopK        int
	// Kinds 为空表示不过滤单元类型
	Kinds []string
}

// VectorSearchResult 单条召回结果。Score 为 COSINE 距离，越小越相似。
type VectorSearchResult struct {
	ID     string
	UnitID string
	Score  float32
}

// UnitVector 内容单元的一个已向量化分片
type UnitVector struct {
	ID        string
	UnitID    string
	ProjectID string
	Kind      string
	Text      string
	Vector    []float32
}
