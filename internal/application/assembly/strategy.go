package assembly

import (
	"fmt"
	"math"
	"sort"

	"z-novel-context-svc/internal/config"
	"z-novel-context-svc/pkg/errors"
)

// CompressionStrategy 压缩策略：token 预算、各区块配比与保护规则
type CompressionStrategy struct {
	MaxTokens             int     `json:"max_tokens"`
	CoreRatio             float64 `json:"core_ratio"`
	CharacterRatio        float64 `json:"character_ratio"`
	PlotRatio             float64 `json:"plot_ratio"`
	WorldRatio            float64 `json:"world_ratio"`
	HistoricalRatio       float64 `json:"historical_ratio"`
	PreserveDialogue      bool    `json:"preserve_dialogue"`
	PreserveForeshadowing bool    `json:"preserve_foreshadowing"`
	MinCharacterMentions  int     `json:"min_character_mentions"`
}

// StrategyFromConfig 从配置构造默认策略
func StrategyFromConfig(cfg config.StrategyConfig) CompressionStrategy {
	return CompressionStrategy{
		MaxTokens:             cfg.MaxTokens,
		CoreRatio:             cfg.CoreRatio,
		CharacterRatio:        cfg.CharacterRatio,
		PlotRatio:             cfg.PlotRatio,
		WorldRatio:            cfg.WorldRatio,
		HistoricalRatio:       cfg.HistoricalRatio,
		PreserveDialogue:      cfg.PreserveDialogue,
		PreserveForeshadowing: cfg.PreserveForeshadowing,
		MinCharacterMentions:  cfg.MinCharacterMentions,
	}
}

// Validate 校验策略。任何组装动作开始前必须先通过校验。
func (s *CompressionStrategy) Validate() error {
	if s.MaxTokens <= 0 {
		return errors.New(errors.CodeInvalidBudget, "max_tokens must be positive").
			WithDetail(fmt.Sprintf("max_tokens=%d", s.MaxTokens))
	}
	for kind, ratio := range s.ratios() {
		if math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio < 0 {
			return errors.New(errors.CodeInvalidRatio, "section ratios must be non-negative").
				WithDetail(fmt.Sprintf("%s_ratio=%v", kind, ratio))
		}
	}
	if s.MinCharacterMentions < 0 {
		return errors.New(errors.CodeInvalidStrategy, "min_character_mentions must not be negative").
			WithDetail(fmt.Sprintf("min_character_mentions=%d", s.MinCharacterMentions))
	}
	return nil
}

func (s *CompressionStrategy) ratios() map[SectionKind]float64 {
	return map[SectionKind]float64{
		SectionCore:       s.CoreRatio,
		SectionCharacter:  s.CharacterRatio,
		SectionPlot:       s.PlotRatio,
		SectionWorld:      s.WorldRatio,
		SectionHistorical: s.HistoricalRatio,
	}
}

// NormalizedRatios 返回归一化后的配比：总和不为 1 时按比例缩放，
// 总和为 0 时五个区块均分预算。求和按固定区块顺序进行，
// 保证两次调用得到逐位一致的结果。
func (s *CompressionStrategy) NormalizedRatios() map[SectionKind]float64 {
	raw := s.ratios()
	var sum float64
	for _, kind := range SectionOrder() {
		sum += raw[kind]
	}
	normalized := make(map[SectionKind]float64, len(raw))
	if sum <= 0 {
		even := 1.0 / float64(len(raw))
		for kind := range raw {
			normalized[kind] = even
		}
		return normalized
	}
	for kind, r := range raw {
		normalized[kind] = r / sum
	}
	return normalized
}

// SectionTargets 按最大余数法把预算切成五个整数目标，
// 目标之和恰好等于 max_tokens，每个目标与「配比 × 预算」相差不到 1。
func (s *CompressionStrategy) SectionTargets() map[SectionKind]int {
	ratios := s.NormalizedRatios()
	order := SectionOrder()

	type remainder struct {
		kind SectionKind
		frac float64
	}
	targets := make(map[SectionKind]int, len(order))
	remainders := make([]remainder, 0, len(order))
	used := 0
	for _, kind := range order {
		exact := ratios[kind] * float64(s.MaxTokens)
		floor := int(exact)
		targets[kind] = floor
		used += floor
		remainders = append(remainders, remainder{kind: kind, frac: exact - float64(floor)})
	}
	sort.SliceStable(remainders, func(i, j int) bool {
		return remainders[i].frac > remainders[j].frac
	})
	left := s.MaxTokens - used
	for i := 0; i < left && i < len(remainders); i++ {
		targets[remainders[i].kind]++
	}
	return targets
}

// SectionTarget 单个区块的 token 目标值
func (s *CompressionStrategy) SectionTarget(kind SectionKind) int {
	return s.SectionTargets()[kind]
}

// Fingerprint 策略的稳定指纹，用于缓存键
func (s *CompressionStrategy) Fingerprint() string {
	return fmt.Sprintf("%d:%.4f:%.4f:%.4f:%.4f:%.4f:%t:%t:%d",
		s.MaxTokens,
		s.CoreRatio, s.CharacterRatio, s.PlotRatio, s.WorldRatio, s.HistoricalRatio,
		s.PreserveDialogue, s.PreserveForeshadowing, s.MinCharacterMentions)
}
