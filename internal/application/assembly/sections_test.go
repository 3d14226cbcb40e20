package assembly

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-novel-context-svc/internal/domain/entity"
)

func scored(unit *entity.ContentUnit, weight float64, order int) scoredUnit {
	return scoredUnit{unit: unit, weight: ContextWeight{FinalWeight: weight}, order: order}
}

func kindUnit(id string, kind entity.ContentUnitKind, body string) *entity.ContentUnit {
	return &entity.ContentUnit{ID: id, ProjectID: "p1", Kind: kind, Body: body, Importance: 5}
}

func TestBuildMapsKindsToSections(t *testing.T) {
	builder := NewSectionBuilder(NewRuneRatioEstimator())
	strategy := validStrategy()
	scene := NewScene("p1", "c1", "", 0, nil)

	candidates := []scoredUnit{
		scored(kindUnit("d1", entity.UnitKindDialogueSnippet, "「走吧。」"), 0.9, 0),
		scored(kindUnit("ch1", entity.UnitKindCharacter, "林远的来历。"), 0.8, 1),
		scored(kindUnit("pl1", entity.UnitKindPlotPoint, "主线转折点。"), 0.7, 2),
		scored(kindUnit("w1", entity.UnitKindWorldSetting, "北境的地理。"), 0.6, 3),
		scored(kindUnit("h1", entity.UnitKindHistoricalEvent, "百年前的大战。"), 0.5, 4),
	}
	sections := builder.Build(candidates, scene, &strategy)

	require.Len(t, sections, 5)
	expect := map[SectionKind]string{
		SectionCore:       "d1",
		SectionCharacter:  "ch1",
		SectionPlot:       "pl1",
		SectionWorld:      "w1",
		SectionHistorical: "h1",
	}
	for i, kind := range SectionOrder() {
		assert.Equal(t, kind, sections[i].Kind)
		require.Len(t, sections[i].Blocks, 1, "section %s", kind)
		assert.Equal(t, expect[kind], sections[i].Blocks[0].UnitID)
	}
}

func TestBuildAppendsInWeightOrder(t *testing.T) {
	builder := NewSectionBuilder(NewRuneRatioEstimator())
	strategy := validStrategy()
	scene := NewScene("p1", "c1", "", 0, nil)

	// 候选已按权重降序排好，构建只负责保持顺序
	candidates := []scoredUnit{
		scored(kindUnit("a", entity.UnitKindPlotPoint, "第一条线索。"), 0.9, 0),
		scored(kindUnit("b", entity.UnitKindPlotPoint, "第二条线索。"), 0.5, 1),
		scored(kindUnit("c", entity.UnitKindPlotPoint, "第三条线索。"), 0.1, 2),
	}
	sections := builder.Build(candidates, scene, &strategy)

	plot := sections[2]
	require.Len(t, plot.Blocks, 3)
	assert.Equal(t, "a", plot.Blocks[0].UnitID)
	assert.Equal(t, "b", plot.Blocks[1].UnitID)
	assert.Equal(t, "c", plot.Blocks[2].UnitID)
	assert.Equal(t, strings.Join([]string{"第一条线索。", "第二条线索。", "第三条线索。"}, "\n\n"), plot.Text)
}

func TestBuildSoftCapSkipsNonProtected(t *testing.T) {
	builder := NewSectionBuilder(NewRuneRatioEstimator())
	strategy := validStrategy()
	strategy.MaxTokens = 100 // plot 目标 15 token，软上限 30 字符
	scene := NewScene("p1", "c1", "", 0, nil)

	protected := kindUnit("p3", entity.UnitKindPlotPoint, strings.Repeat("盟", 30))
	protected.Protected = true

	candidates := []scoredUnit{
		scored(kindUnit("p1", entity.UnitKindPlotPoint, strings.Repeat("剑", 40)), 0.9, 0),
		scored(kindUnit("p2", entity.UnitKindPlotPoint, strings.Repeat("旗", 30)), 0.5, 1),
		scored(protected, 0.1, 2),
	}
	sections := builder.Build(candidates, scene, &strategy)

	plot := sections[2]
	require.Len(t, plot.Blocks, 2)
	assert.Equal(t, "p1", plot.Blocks[0].UnitID)
	assert.Equal(t, "p3", plot.Blocks[1].UnitID)
	assert.True(t, plot.Blocks[1].Protected)
}

func TestBuildSanitizesUnitBodies(t *testing.T) {
	builder := NewSectionBuilder(NewRuneRatioEstimator())
	strategy := validStrategy()
	scene := NewScene("p1", "c1", "", 0, nil)

	candidates := []scoredUnit{
		scored(kindUnit("w1", entity.UnitKindWorldSetting, "北境😀多​风雪。"), 0.9, 0),
	}
	sections := builder.Build(candidates, scene, &strategy)

	world := sections[3]
	require.Len(t, world.Blocks, 1)
	assert.Equal(t, "北境多风雪。", world.Blocks[0].Text)
	assert.Equal(t, 3, world.Blocks[0].Tokens)
}

func TestBuildCorePinsSceneText(t *testing.T) {
	builder := NewSectionBuilder(NewRuneRatioEstimator())
	strategy := validStrategy()
	strategy.MaxTokens = 100
	chapter := "春夜未老。梦里山河。人间忽晚。一灯如豆。"
	scene := NewScene("p1", "c1", chapter, -1, nil)

	candidates := []scoredUnit{
		scored(kindUnit("d1", entity.UnitKindDialogueSnippet, "「你听。」"), 0.9, 0),
	}
	sections := builder.Build(candidates, scene, &strategy)

	core := sections[0]
	assert.Equal(t, chapter, core.Pinned)
	require.Len(t, core.Blocks, 1)
	assert.Equal(t, chapter+"\n\n「你听。」", core.Text)
}

func TestBuildCoreTruncatesOversizedSceneText(t *testing.T) {
	builder := NewSectionBuilder(NewRuneRatioEstimator())
	strategy := validStrategy()
	strategy.MaxTokens = 20 // core 目标 10 token，软上限 20 字符
	chapter := strings.Repeat("林远与苏芸并肩而行。", 10)
	scene := NewScene("p1", "c1", chapter, -1, nil)

	sections := builder.Build(nil, scene, &strategy)

	core := sections[0]
	assert.Equal(t, "林远与苏芸并肩而行。林远与苏芸并肩而行。", core.Pinned)
	assert.True(t, strings.HasSuffix(core.Pinned, "。"))
	assert.Equal(t, 10, core.Tokens)
}

func TestTruncateFrontAtBoundary(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxRunes int
		want     string
	}{
		{"shorter unchanged", "春夜未老。", 10, "春夜未老。"},
		{"exact length unchanged", "春夜未老。", 5, "春夜未老。"},
		{"zero keeps nothing", "春夜未老。", 0, ""},
		{"cut on boundary", "春夜未老。梦里山河。人间忽晚。", 10, "梦里山河。人间忽晚。"},
		{"cut mid sentence advances", "春夜未老。梦里山河。人间忽晚。", 8, "人间忽晚。"},
		{"closing quote skipped", "他说。「走吧。」夜深了。", 7, "夜深了。"},
		{"whitespace after boundary skipped", "完了。 下一句。", 6, "下一句。"},
		{"newline is a boundary", "第一段\n第二段结尾", 5, "第二段结尾"},
		{"no boundary falls back to raw cut", "一二三四五六七八九十", 4, "七八九十"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateFrontAtBoundary(tt.text, tt.maxRunes)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len([]rune(got)), len([]rune(tt.text)))
		})
	}
}
