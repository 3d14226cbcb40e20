package milvus

import (
	"context"

	"z-novel-context-svc/internal/application/retrieval"
)

// RetrievalVectorRepository 把仓储适配成召回侧的 VectorRepository 口
type RetrievalVectorRepository struct {
	repo *Repository
}

// NewRetrievalVectorRepository 创建适配器
func NewRetrievalVectorRepository(repo *Repository) *RetrievalVectorRepository {
	return &RetrievalVectorRepository{repo: repo}
}

var _ retrieval.VectorRepository = (*RetrievalVectorRepository)(nil)

func (r *RetrievalVectorRepository) EnsureContentUnitsCollection(ctx context.Context) error {
	if r == nil || r.repo == nil {
		return retrieval.ErrVectorDisabled
	}
	return r.repo.EnsureContentUnitsCollection(ctx)
}

func (r *RetrievalVectorRepository) SearchUnits(ctx context.Context, params *retrieval.VectorSearchParams) ([]*retrieval.VectorSearchResult, error) {
	if r == nil || r.repo == nil {
		return nil, retrieval.ErrVectorDisabled
	}
	if params == nil {
		return nil, nil
	}

	out, err := r.repo.SearchChunks(ctx, &SearchParams{
		ProjectID:   params.ProjectID,
		QueryVector: params.QueryVector,
		TopK:        params.TopK,
		Kinds:       params.Kinds,
	})
	if err != nil {
		return nil, err
	}

	results := make([]*retrieval.VectorSearchResult, 0, len(out))
	for i := range out {
		chunk := out[i]
		if chunk == nil {
			continue
		}
		results = append(results, &retrieval.VectorSearchResult{
			ID:     chunk.ID,
			UnitID: chunk.UnitID,
			Score:  chunk.Score,
		})
	}
	return results, nil
}

func (r *RetrievalVectorRepository) DeleteUnitVectors(ctx context.Context, projectID, unitID string) error {
	if r == nil || r.repo == nil {
		return retrieval.ErrVectorDisabled
	}
	return r.repo.DeleteChunksByUnit(ctx, projectID, unitID)
}

func (r *RetrievalVectorRepository) UpsertUnitVectors(ctx context.Context, projectID string, vectors []*retrieval.UnitVector) error {
	if r == nil || r.repo == nil {
		return retrieval.ErrVectorDisabled
	}
	if len(vectors) == 0 {
		return nil
	}

	chunks := make([]*UnitChunk, 0, len(vectors))
	for i := range vectors {
		v := vectors[i]
		if v == nil {
			continue
		}
		chunks = append(chunks, &UnitChunk{
			ID:          v.ID,
			Vector:      v.Vector,
			ProjectID:   v.ProjectID,
			UnitID:      v.UnitID,
			Kind:        v.Kind,
			TextContent: v.Text,
		})
	}
	return r.repo.InsertChunks(ctx, projectID, chunks)
}
