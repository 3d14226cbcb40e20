package assembly

import "sort"

// Compressor 将区块压缩到策略预算内
type Compressor struct {
	estimator TokenEstimator
}

// NewCompressor 创建压缩引擎
func NewCompressor(estimator TokenEstimator) *Compressor {
	return &Compressor{estimator: estimator}
}

// Compress 执行压缩并产出上下文工件。
// 总量不超预算时原样返回（压缩比 1.0）；超出时按归一化配比
// 推导每个区块的 token 目标并淘汰到目标以内。受保护内容
// 永不淘汰、永不截断，由它单独造成的超预算以标志位上报。
func (c *Compressor) Compress(sections []Section, strategy *CompressionStrategy) *IntelligentContext {
	preTotal := totalTokens(sections)

	if preTotal > strategy.MaxTokens {
		targets := strategy.SectionTargets()
		for i := range sections {
			c.compressSection(&sections[i], targets[sections[i].Kind], strategy)
		}
	}

	postTotal := totalTokens(sections)
	ratio := 1.0
	if preTotal > 0 {
		ratio = float64(postTotal) / float64(preTotal)
	}

	return &IntelligentContext{
		Sections:         sections,
		TotalTokens:      postTotal,
		CompressionRatio: ratio,
		ContentHash:      HashSections(sections),
		BudgetExceeded:   postTotal > strategy.MaxTokens,
		UnitIDs:          collectUnitIDs(sections),
	}
}

// compressSection 淘汰非保护块直到区块不超目标。
// 角色区块里提及数低于阈值的角色优先出局，其余按权重升序；
// 核心区块在块淘汰后仍超目标时对固定正文做头部截断。
func (c *Compressor) compressSection(section *Section, target int, strategy *CompressionStrategy) {
	if section.Tokens <= target {
		return
	}

	for _, id := range evictionOrder(section, strategy) {
		if section.Tokens <= target {
			break
		}
		removeBlock(section, id)
		renderSection(section, c.estimator)
	}

	// 固定正文只在块淘汰穷尽后截断，且始终对齐句子边界
	for i := 0; i < 4 && section.Tokens > target && section.Pinned != ""; i++ {
		excess := section.Tokens - target
		keep := len([]rune(section.Pinned)) - excess*2
		if keep < 0 {
			keep = 0
		}
		section.Pinned = truncateFrontAtBoundary(section.Pinned, keep)
		renderSection(section, c.estimator)
		if keep == 0 {
			break
		}
	}
}

// evictionOrder 返回非保护块的淘汰顺序（单元 ID）
func evictionOrder(section *Section, strategy *CompressionStrategy) []string {
	type candidate struct {
		id             string
		weight         float64
		order          int
		belowThreshold bool
	}
	var candidates []candidate
	for _, blk := range section.Blocks {
		if blk.Protected {
			continue
		}
		below := section.Kind == SectionCharacter &&
			blk.CharacterName != "" &&
			blk.Mentions < strategy.MinCharacterMentions
		candidates = append(candidates, candidate{
			id:             blk.UnitID,
			weight:         blk.Weight,
			order:          blk.order,
			belowThreshold: below,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].belowThreshold != candidates[j].belowThreshold {
			return candidates[i].belowThreshold
		}
		if candidates[i].weight != candidates[j].weight {
			return candidates[i].weight < candidates[j].weight
		}
		return candidates[i].order > candidates[j].order
	})

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}
	return ids
}

func removeBlock(section *Section, unitID string) {
	for i, blk := range section.Blocks {
		if blk.UnitID == unitID {
			section.Blocks = append(section.Blocks[:i], section.Blocks[i+1:]...)
			return
		}
	}
}

func totalTokens(sections []Section) int {
	total := 0
	for _, s := range sections {
		total += s.Tokens
	}
	return total
}

func collectUnitIDs(sections []Section) []string {
	var ids []string
	for _, s := range sections {
		for _, blk := range s.Blocks {
			ids = append(ids, blk.UnitID)
		}
	}
	return ids
}
