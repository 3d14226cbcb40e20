package assembly

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"z-novel-context-svc/internal/domain/entity"
)

func testScene() *Scene {
	return NewScene("p1", "c1", "林远与苏芸并肩而行。夜色渐深。", -1, []string{"林远", "苏芸", "陈默"})
}

func testScorer() *Scorer {
	s := NewScorer(DefaultScorerWeights(), 7)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func unitWith(id, body, character string, importance int) *entity.ContentUnit {
	return &entity.ContentUnit{
		ID:            id,
		ProjectID:     "p1",
		Kind:          entity.UnitKindCharacter,
		Body:          body,
		CharacterName: character,
		Importance:    importance,
	}
}

func TestScoreEmptyBodyDegrades(t *testing.T) {
	scorer := testScorer()
	scene := testScene()

	for _, body := range []string{"", "   ", "\n\t"} {
		w := scorer.Score(unitWith("u1", body, "林远", 8), scene)

		assert.True(t, w.Degraded)
		assert.Zero(t, w.Relevance)
		assert.Zero(t, w.Recency)
		assert.Zero(t, w.Involvement)
		assert.InDelta(t, 0.8, w.Importance, 1e-9)
		assert.InDelta(t, 0.35*0.8, w.FinalWeight, 1e-9)
	}
}

func TestImportanceScore(t *testing.T) {
	scorer := testScorer()
	scene := testScene()

	tests := []struct {
		name       string
		importance int
		want       float64
	}{
		{"minimum", 0, 0},
		{"default", 5, 0.5},
		{"maximum", 10, 1.0},
		{"above range clamps", 15, 1.0},
		{"below range clamps", -3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := scorer.Score(unitWith("u1", "林远的旧友。", "林远", tt.importance), scene)
			assert.InDelta(t, tt.want, w.Importance, 1e-9)
		})
	}
}

func TestImportancePenaltyFromConsistencyIssues(t *testing.T) {
	scorer := testScorer()
	scene := testScene()
	unit := unitWith("u1", "林远的旧友。", "林远", 10)

	base := scorer.Score(unit, scene)

	scorer.SetPenalties(map[string]int{"林远": 2})
	penalized := scorer.Score(unit, scene)
	assert.InDelta(t, 0.8, penalized.Importance, 1e-9)
	assert.Less(t, penalized.FinalWeight, base.FinalWeight)

	// 惩罚有下限，不会把重要度清零
	scorer.SetPenalties(map[string]int{"林远": 100})
	floored := scorer.Score(unit, scene)
	assert.InDelta(t, 0.5, floored.Importance, 1e-9)
}

func TestFinalWeightMonotoneInImportance(t *testing.T) {
	scorer := testScorer()
	scene := testScene()
	lastUsed := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)

	bodies := []string{
		"林远与苏芸的初遇。",
		"无关角色的杂记。",
	}
	for _, body := range bodies {
		prev := -1.0
		for rating := 0; rating <= 10; rating++ {
			unit := unitWith("u1", body, "", rating)
			unit.LastUsedAt = &lastUsed
			w := scorer.Score(unit, scene)
			assert.GreaterOrEqual(t, w.FinalWeight, prev,
				"final weight decreased at rating %d for body %q", rating, body)
			assert.GreaterOrEqual(t, w.FinalWeight, 0.0)
			assert.LessOrEqual(t, w.FinalWeight, 1.0)
			prev = w.FinalWeight
		}
	}
}

func TestRelevanceActiveCharacterFloor(t *testing.T) {
	scorer := testScorer()
	scene := testScene()

	// 提及出场角色的单元，相关度不低于任何未提及的单元
	mentioning := scorer.Score(unitWith("u1", "林远曾在北境服役。", "林远", 5), scene)
	overlapping := scorer.Score(unitWith("u2", "夜色渐深时的并肩而行。", "", 5), scene)

	assert.GreaterOrEqual(t, mentioning.Relevance, 0.5)
	assert.Less(t, overlapping.Relevance, 0.5+1e-9)
	assert.GreaterOrEqual(t, mentioning.Relevance, overlapping.Relevance)
}

func TestRelevanceSemanticBlend(t *testing.T) {
	scorer := testScorer()
	scene := testScene()
	unit := unitWith("u1", "遥远北境的古老传说。", "", 5)

	keywordOnly := scorer.Score(unit, scene)

	scorer.SetSemantic(map[string]float64{"u1": 0.9})
	blended := scorer.Score(unit, scene)
	assert.Greater(t, blended.Relevance, keywordOnly.Relevance)
	// 语义相似度只能抬升重合度部分，不会越过出场角色的下限区间
	assert.LessOrEqual(t, blended.Relevance, 0.5)

	scorer.SetSemantic(map[string]float64{"u1": math.NaN()})
	nanSafe := scorer.Score(unit, scene)
	assert.False(t, math.IsNaN(nanSafe.Relevance))
	assert.False(t, math.IsNaN(nanSafe.FinalWeight))
}

func TestRecencyScore(t *testing.T) {
	scorer := testScorer()
	now := scorer.now()
	scene := testScene()

	at := func(d time.Duration) *time.Time {
		t := now.Add(-d)
		return &t
	}

	t.Run("never used is neutral", func(t *testing.T) {
		w := scorer.Score(unitWith("u1", "林远的佩剑。", "林远", 5), scene)
		assert.InDelta(t, 0.5, w.Recency, 1e-9)
	})

	t.Run("same day is fresh", func(t *testing.T) {
		for _, d := range []time.Duration{time.Second, time.Hour, 23 * time.Hour} {
			unit := unitWith("u1", "林远的佩剑。", "林远", 5)
			unit.LastUsedAt = at(d)
			w := scorer.Score(unit, scene)
			assert.InDelta(t, 1.0, w.Recency, 1e-9, "duration %v", d)
		}
	})

	t.Run("half life", func(t *testing.T) {
		unit := unitWith("u1", "林远的佩剑。", "林远", 5)
		unit.LastUsedAt = at(7 * 24 * time.Hour)
		w := scorer.Score(unit, scene)
		assert.InDelta(t, 0.5, w.Recency, 1e-9)
	})

	t.Run("monotonically decreasing", func(t *testing.T) {
		prev := 2.0
		for days := 0; days <= 60; days += 3 {
			unit := unitWith("u1", "林远的佩剑。", "林远", 5)
			unit.LastUsedAt = at(time.Duration(days) * 24 * time.Hour)
			w := scorer.Score(unit, scene)
			assert.LessOrEqual(t, w.Recency, prev, "day %d", days)
			prev = w.Recency
		}
	})

	t.Run("day granularity ignores seconds", func(t *testing.T) {
		unit := unitWith("u1", "林远的佩剑。", "林远", 5)
		used := now.Add(-36 * time.Hour)
		unit.LastUsedAt = &used

		first := scorer.Score(unit, scene).Recency
		scorer.now = func() time.Time { return now.Add(time.Second) }
		second := scorer.Score(unit, scene).Recency
		assert.Equal(t, first, second)
	})
}

func TestInvolvementScore(t *testing.T) {
	scorer := testScorer()
	scene := testScene() // 出场角色:林远、苏芸

	tests := []struct {
		name string
		unit *entity.ContentUnit
		want float64
	}{
		{"references one of two", unitWith("u1", "林远的往事。", "林远", 5), 0.5},
		{"references both", unitWith("u2", "林远与苏芸的婚约。", "", 5), 1.0},
		{"references none", unitWith("u3", "北境的风雪。", "", 5), 0},
		{"inactive character does not count", unitWith("u4", "陈默的隐居。", "陈默", 5), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := scorer.Score(tt.unit, scene)
			assert.InDelta(t, tt.want, w.Involvement, 1e-9)
		})
	}

	t.Run("empty active set scores zero", func(t *testing.T) {
		empty := NewScene("p1", "c1", "空无一人的走廊。", -1, []string{"林远"})
		w := scorer.Score(unitWith("u1", "林远的往事。", "林远", 5), empty)
		assert.Zero(t, w.Involvement)
	})
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(math.NaN()))
	assert.Equal(t, 0.0, clamp01(-0.5))
	assert.Equal(t, 1.0, clamp01(1.5))
	assert.Equal(t, 0.25, clamp01(0.25))
}
