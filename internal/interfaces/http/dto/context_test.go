package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"z-novel-context-svc/internal/application/assembly"
)

func ptr[T any](v T) *T {
	return &v
}

func strategyDefaults() assembly.CompressionStrategy {
	return assembly.CompressionStrategy{
		MaxTokens:             4000,
		CoreRatio:             0.5,
		CharacterRatio:        0.2,
		PlotRatio:             0.15,
		WorldRatio:            0.1,
		HistoricalRatio:       0.05,
		PreserveDialogue:      true,
		PreserveForeshadowing: true,
		MinCharacterMentions:  1,
	}
}

func TestToStrategyNilUsesDefaults(t *testing.T) {
	var req *StrategyRequest

	got := req.ToStrategy(strategyDefaults())

	assert.Equal(t, strategyDefaults(), got)
}

func TestToStrategyPartialOverrideKeepsRest(t *testing.T) {
	req := &StrategyRequest{
		MaxTokens:        ptr(2000),
		PreserveDialogue: ptr(false),
	}

	got := req.ToStrategy(strategyDefaults())

	assert.Equal(t, 2000, got.MaxTokens)
	assert.False(t, got.PreserveDialogue)
	assert.Equal(t, 0.5, got.CoreRatio)
	assert.Equal(t, 0.05, got.HistoricalRatio)
	assert.True(t, got.PreserveForeshadowing)
	assert.Equal(t, 1, got.MinCharacterMentions)
}

func TestToStrategyExplicitZeroWins(t *testing.T) {
	// 显式携带的 0 值是有效覆盖,不能当作缺省处理
	req := &StrategyRequest{
		HistoricalRatio:      ptr(0.0),
		MinCharacterMentions: ptr(0),
	}

	got := req.ToStrategy(strategyDefaults())

	assert.Zero(t, got.HistoricalRatio)
	assert.Zero(t, got.MinCharacterMentions)
	assert.Equal(t, 4000, got.MaxTokens)
}
