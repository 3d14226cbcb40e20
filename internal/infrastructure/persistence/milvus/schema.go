// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"strconv"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// CollectionContentUnits 内容单元分片集合
	CollectionContentUnits = "content_units"

	// DefaultVectorDimension bge-m3 的输出维度
	DefaultVectorDimension = 1024
)

// ContentUnitsSchema 内容单元分片 Collection Schema。
// 一行对应单元正文的一个分片，unit_id 把分片归并回单元。
func ContentUnitsSchema(dim int) *entity.Schema {
	if dim <= 0 {
		dim = DefaultVectorDimension
	}
	return &entity.Schema{
		CollectionName: CollectionContentUnits,
		Description:    "Content unit chunks for semantic relevance recall",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": strconv.Itoa(dim),
				},
			},
			{
				Name:     "project_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "unit_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "kind",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "32",
				},
			},
			{
				Name:     "text_content",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
		},
	}
}

// UnitChunk 内容单元分片数据结构
type UnitChunk struct {
	ID          string    `json:"id"`
	Vector      []float32 `json:"vector"`
	ProjectID   string    `json:"project_id"`
	UnitID      string    `json:"unit_id"`
	Kind        string    `json:"kind"`
	TextContent string    `json:"text_content"`
}

// PartitionName 生成项目分区名称。
// Milvus 分区名只允许字母、数字和下划线，UUID 中的连字符需替换。
func PartitionName(projectID string) string {
	return "proj_" + strings.ReplaceAll(projectID, "-", "_")
}
