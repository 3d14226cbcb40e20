// Package assembly 实现上下文组装与压缩引擎：
// 对内容单元打分排序，渲染五个上下文区块，并压缩到 token 预算内。
package assembly

import (
	"time"

	"z-novel-context-svc/internal/domain/entity"
)

// SectionKind 上下文区块类型
type SectionKind string

const (
	SectionCore       SectionKind = "core"
	SectionCharacter  SectionKind = "character"
	SectionPlot       SectionKind = "plot"
	SectionWorld      SectionKind = "world"
	SectionHistorical SectionKind = "historical"
)

// SectionOrder 区块的固定顺序（渲染与哈希都依赖该顺序）
func SectionOrder() []SectionKind {
	return []SectionKind{
		SectionCore,
		SectionCharacter,
		SectionPlot,
		SectionWorld,
		SectionHistorical,
	}
}

// sectionForKind 内容单元类型到区块的映射
func sectionForKind(kind entity.ContentUnitKind) SectionKind {
	switch kind {
	case entity.UnitKindCharacter:
		return SectionCharacter
	case entity.UnitKindPlotPoint:
		return SectionPlot
	case entity.UnitKindWorldSetting:
		return SectionWorld
	case entity.UnitKindHistoricalEvent:
		return SectionHistorical
	case entity.UnitKindDialogueSnippet:
		return SectionCore
	default:
		return SectionCore
	}
}

// ContextWeight 单元的组合权重。每次组装重新计算，从不跨次缓存。
type ContextWeight struct {
	Relevance   float64 `json:"relevance"`
	Importance  float64 `json:"importance"`
	Recency     float64 `json:"recency"`
	Involvement float64 `json:"involvement"`
	FinalWeight float64 `json:"final_weight"`
	// Degraded 输入字段缺失/非法导致子分数被兜底为 0
	Degraded bool `json:"-"`
}

// Block 区块内的一个已渲染单元
type Block struct {
	UnitID        string  `json:"unit_id"`
	Text          string  `json:"text"`
	Tokens        int     `json:"tokens"`
	Weight        float64 `json:"weight"`
	Protected     bool    `json:"protected"`
	CharacterName string  `json:"character_name,omitempty"`
	// Mentions 该单元角色在当前场景中的提及次数
	Mentions int `json:"-"`
	// order 进入区块的插入序，用于稳定并列
	order int
}

// Section 一个上下文区块
type Section struct {
	Kind SectionKind `json:"kind"`
	// Pinned 核心区块固定携带的章节文本，不参与整块淘汰，只做头部截断
	Pinned string  `json:"pinned,omitempty"`
	Blocks []Block `json:"blocks,omitempty"`
	Text   string  `json:"text"`
	Tokens int     `json:"tokens"`
}

// IntelligentContext 组装产物。创建后不再修改。
type IntelligentContext struct {
	ProjectID        string    `json:"project_id"`
	ChapterID        string    `json:"chapter_id"`
	Sections         []Section `json:"sections"`
	TotalTokens      int       `json:"total_tokens"`
	CompressionRatio float64   `json:"compression_ratio"`
	ContentHash      string    `json:"content_hash"`
	BudgetExceeded   bool      `json:"budget_exceeded"`
	UnitIDs          []string  `json:"unit_ids,omitempty"`
	FromCache        bool      `json:"from_cache,omitempty"`
	BuiltAt          time.Time `json:"built_at"`
}

// Section 返回指定类型的区块
func (c *IntelligentContext) Section(kind SectionKind) *Section {
	for i := range c.Sections {
		if c.Sections[i].Kind == kind {
			return &c.Sections[i]
		}
	}
	return nil
}

// scoredUnit 打分后的候选单元
type scoredUnit struct {
	unit     *entity.ContentUnit
	weight   ContextWeight
	mentions int
	order    int
}
