// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"z-novel-context-svc/internal/application/assembly"
)

// AssembleContextRequest 上下文组装请求。
// strategy 缺省时使用服务端默认策略，no_cache 强制重建并回填缓存。
type AssembleContextRequest struct {
	ChapterID      string           `json:"chapter_id" binding:"required"`
	CursorPosition int              `json:"cursor_position" binding:"gte=0"`
	Strategy       *StrategyRequest `json:"strategy,omitempty"`
	NoCache        bool             `json:"no_cache,omitempty"`
}

// StrategyRequest 压缩策略覆盖项。未携带的字段沿用服务端默认值，
// 显式的 0 值（如关闭某区块的配比）原样生效。
type StrategyRequest struct {
	MaxTokens             *int     `json:"max_tokens,omitempty"`
	CoreRatio             *float64 `json:"core_ratio,omitempty"`
	CharacterRatio        *float64 `json:"character_ratio,omitempty"`
	PlotRatio             *float64 `json:"plot_ratio,omitempty"`
	WorldRatio            *float64 `json:"world_ratio,omitempty"`
	HistoricalRatio       *float64 `json:"historical_ratio,omitempty"`
	PreserveDialogue      *bool    `json:"preserve_dialogue,omitempty"`
	PreserveForeshadowing *bool    `json:"preserve_foreshadowing,omitempty"`
	MinCharacterMentions  *int     `json:"min_character_mentions,omitempty"`
}

// ToStrategy 在默认策略上应用覆盖项
func (r *StrategyRequest) ToStrategy(defaults assembly.CompressionStrategy) assembly.CompressionStrategy {
	strategy := defaults
	if r == nil {
		return strategy
	}
	if r.MaxTokens != nil {
		strategy.MaxTokens = *r.MaxTokens
	}
	if r.CoreRatio != nil {
		strategy.CoreRatio = *r.CoreRatio
	}
	if r.CharacterRatio != nil {
		strategy.CharacterRatio = *r.CharacterRatio
	}
	if r.PlotRatio != nil {
		strategy.PlotRatio = *r.PlotRatio
	}
	if r.WorldRatio != nil {
		strategy.WorldRatio = *r.WorldRatio
	}
	if r.HistoricalRatio != nil {
		strategy.HistoricalRatio = *r.HistoricalRatio
	}
	if r.PreserveDialogue != nil {
		strategy.PreserveDialogue = *r.PreserveDialogue
	}
	if r.PreserveForeshadowing != nil {
		strategy.PreserveForeshadowing = *r.PreserveForeshadowing
	}
	if r.MinCharacterMentions != nil {
		strategy.MinCharacterMentions = *r.MinCharacterMentions
	}
	return strategy
}

// SectionResponse 上下文区块响应
type SectionResponse struct {
	Kind    string   `json:"kind"`
	Text    string   `json:"text"`
	Tokens  int      `json:"tokens"`
	UnitIDs []string `json:"unit_ids,omitempty"`
}

// ContextResponse 上下文组装响应
type ContextResponse struct {
	ProjectID        string            `json:"project_id"`
	ChapterID        string            `json:"chapter_id"`
	Sections         []SectionResponse `json:"sections"`
	PromptText       string            `json:"prompt_text"`
	TotalTokens      int               `json:"total_tokens"`
	CompressionRatio float64           `json:"compression_ratio"`
	ContentHash      string            `json:"content_hash"`
	BudgetExceeded   bool              `json:"budget_exceeded"`
	FromCache        bool              `json:"from_cache"`
	BuiltAt          time.Time         `json:"built_at"`
}

// ToContextResponse 将组装产物转换为响应 DTO
func ToContextResponse(result *assembly.IntelligentContext) *ContextResponse {
	if result == nil {
		return nil
	}

	sections := make([]SectionResponse, 0, len(result.Sections))
	for _, section := range result.Sections {
		item := SectionResponse{
			Kind:   string(section.Kind),
			Text:   section.Text,
			Tokens: section.Tokens,
		}
		for _, block := range section.Blocks {
			item.UnitIDs = append(item.UnitIDs, block.UnitID)
		}
		sections = append(sections, item)
	}

	return &ContextResponse{
		ProjectID:        result.ProjectID,
		ChapterID:        result.ChapterID,
		Sections:         sections,
		PromptText:       result.PromptText(),
		TotalTokens:      result.TotalTokens,
		CompressionRatio: result.CompressionRatio,
		ContentHash:      result.ContentHash,
		BudgetExceeded:   result.BudgetExceeded,
		FromCache:        result.FromCache,
		BuiltAt:          result.BuiltAt,
	}
}
