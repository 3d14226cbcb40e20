package assembly

import (
	"strings"
	"sync"
	"unicode"
)

// blockSeparator 区块内相邻条目之间的分隔
const blockSeparator = "\n\n"

// SectionBuilder 将打分后的候选单元渲染为五个上下文区块
type SectionBuilder struct {
	estimator TokenEstimator
}

// NewSectionBuilder 创建区块构建器
func NewSectionBuilder(estimator TokenEstimator) *SectionBuilder {
	return &SectionBuilder{estimator: estimator}
}

// Build 构建五个区块。候选单元须已按最终权重降序排列，
// 并列时保持插入序。五个区块相互独立，并行填充后汇合。
func (b *SectionBuilder) Build(candidates []scoredUnit, scene *Scene, strategy *CompressionStrategy) []Section {
	grouped := make(map[SectionKind][]scoredUnit, 5)
	for _, c := range candidates {
		kind := sectionForKind(c.unit.Kind)
		grouped[kind] = append(grouped[kind], c)
	}

	order := SectionOrder()
	targets := strategy.SectionTargets()
	sections := make([]Section, len(order))
	var wg sync.WaitGroup
	for i, kind := range order {
		wg.Add(1)
		go func(i int, kind SectionKind) {
			defer wg.Done()
			sections[i] = b.buildSection(kind, grouped[kind], scene, strategy, targets[kind]*2)
		}(i, kind)
	}
	wg.Wait()
	return sections
}

// buildSection 填充单个区块。软上限按「目标 token × 2」个字符计，
// 受保护单元不受软上限约束，预算的硬约束交给压缩阶段。
func (b *SectionBuilder) buildSection(kind SectionKind, candidates []scoredUnit, scene *Scene, strategy *CompressionStrategy, capRunes int) Section {
	section := Section{Kind: kind}

	used := 0
	if kind == SectionCore && scene != nil && scene.Text != "" {
		section.Pinned = truncateFrontAtBoundary(scene.Text, capRunes)
		used = len([]rune(section.Pinned))
	}

	for _, c := range candidates {
		body := Sanitize(c.unit.Body)
		if body == "" {
			continue
		}
		protected := c.unit.IsProtectedBy(strategy.PreserveDialogue, strategy.PreserveForeshadowing)
		if !protected && used >= capRunes {
			continue
		}
		section.Blocks = append(section.Blocks, Block{
			UnitID:        c.unit.ID,
			Text:          body,
			Tokens:        b.estimator.EstimateTokens(body),
			Weight:        c.weight.FinalWeight,
			Protected:     protected,
			CharacterName: c.unit.CharacterName,
			Mentions:      c.mentions,
			order:         c.order,
		})
		used += len([]rune(body))
	}

	renderSection(&section, b.estimator)
	return section
}

// renderSection 重算区块文本与 token 估算
func renderSection(section *Section, estimator TokenEstimator) {
	parts := make([]string, 0, len(section.Blocks)+1)
	if section.Pinned != "" {
		parts = append(parts, section.Pinned)
	}
	for _, blk := range section.Blocks {
		parts = append(parts, blk.Text)
	}
	section.Text = strings.Join(parts, blockSeparator)
	section.Tokens = estimator.EstimateTokens(section.Text)
}

// truncateFrontAtBoundary 从头部截断到不超过 maxRunes 个字符，
// 截断点向后对齐到最近的句子边界，保证区块不以半句开头。
func truncateFrontAtBoundary(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	if maxRunes <= 0 {
		return ""
	}
	cut := len(runes) - maxRunes
	if isSentenceEnd(runes[cut-1]) {
		return string(runes[cut:])
	}
	for i := cut; i < len(runes); i++ {
		if !isSentenceEnd(runes[i]) {
			continue
		}
		j := i + 1
		for j < len(runes) && isClosingMark(runes[j]) {
			j++
		}
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j < len(runes) {
			return string(runes[j:])
		}
		// 边界吞掉了整个窗口，退回原始截断点
		return string(runes[cut:])
	}
	return string(runes[cut:])
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '。', '！', '？', '…', '!', '?', '.', ';', '；', '\n':
		return true
	}
	return false
}

func isClosingMark(r rune) bool {
	switch r {
	case '」', '』', '”', '’', '"', '\'', '）', ')', '》', '〉', '】':
		return true
	}
	return false
}
