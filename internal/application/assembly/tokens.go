package assembly

import "unicode/utf8"

// TokenEstimator 估算文本的 token 数。
// 估算值只求稳定可复现，不要求与任何真实分词器一致。
type TokenEstimator interface {
	EstimateTokens(text string) int
}

// RuneRatioEstimator 按字符数估算：约 2 个字符折合 1 个 token，向下取整。
// 对中英混排文本偏保守，不会低估预算占用。
type RuneRatioEstimator struct{}

// NewRuneRatioEstimator 创建默认估算器
func NewRuneRatioEstimator() *RuneRatioEstimator {
	return &RuneRatioEstimator{}
}

// EstimateTokens 返回 floor(字符数 / 2)
func (e *RuneRatioEstimator) EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 2
}
