package assembly

import (
	"math"
	"strings"
	"time"

	"z-novel-context-svc/internal/domain/entity"
)

// ScorerWeights 四个子分数的线性组合权重
type ScorerWeights struct {
	Relevance   float64
	Importance  float64
	Recency     float64
	Involvement float64
}

// DefaultScorerWeights 默认权重，重要度占比最高
func DefaultScorerWeights() ScorerWeights {
	return ScorerWeights{
		Relevance:   0.30,
		Importance:  0.35,
		Recency:     0.15,
		Involvement: 0.20,
	}
}

const defaultRecencyHalfLifeDays = 7.0

// Scorer 为内容单元计算组合权重。
// 权重每次组装重新计算，不跨次复用。
type Scorer struct {
	weights      ScorerWeights
	halfLifeDays float64
	// penalties 角色名到未解决一致性问题数，用于下调该角色单元的重要度
	penalties map[string]int
	// semantic 单元 ID 到向量相似度 [0,1]，缺省时退化为纯关键词相关度
	semantic map[string]float64
	now      func() time.Time
}

// NewScorer 创建打分器
func NewScorer(weights ScorerWeights, halfLifeDays float64) *Scorer {
	if halfLifeDays <= 0 {
		halfLifeDays = defaultRecencyHalfLifeDays
	}
	return &Scorer{
		weights:      weights,
		halfLifeDays: halfLifeDays,
		now:          time.Now,
	}
}

// SetPenalties 注入一致性检查反馈
func (s *Scorer) SetPenalties(penalties map[string]int) {
	s.penalties = penalties
}

// SetSemantic 注入向量相似度
func (s *Scorer) SetSemantic(similarity map[string]float64) {
	s.semantic = similarity
}

// Score 计算单元在当前场景下的权重。
// 正文为空时除重要度外子分数全部为 0，只降级不报错。
func (s *Scorer) Score(unit *entity.ContentUnit, scene *Scene) ContextWeight {
	w := ContextWeight{
		Importance: s.importanceScore(unit),
	}
	if strings.TrimSpace(unit.Body) == "" {
		w.Degraded = true
		w.FinalWeight = clamp01(s.weights.Importance * w.Importance)
		return w
	}

	w.Relevance = s.relevanceScore(unit, scene)
	w.Recency = s.recencyScore(unit)
	w.Involvement = s.involvementScore(unit, scene)
	w.FinalWeight = clamp01(
		s.weights.Relevance*w.Relevance +
			s.weights.Importance*w.Importance +
			s.weights.Recency*w.Recency +
			s.weights.Involvement*w.Involvement)
	return w
}

// relevanceScore 相关度。提及出场角色的单元固定落在 [0.5,1]，
// 未提及的落在 [0,0.5]，保证前者永远不低于后者。
func (s *Scorer) relevanceScore(unit *entity.ContentUnit, scene *Scene) float64 {
	overlap := scene.index.overlap(unitTokens(unit))
	if sem, ok := s.semantic[unit.ID]; ok {
		overlap = math.Max(overlap, clamp01(sem))
	}
	for _, name := range scene.ActiveCharacters() {
		if unitReferencesCharacter(unit, name) {
			return clamp01(0.5 + 0.5*overlap)
		}
	}
	return clamp01(0.5 * overlap)
}

// importanceScore 重要度归一化，并按角色的一致性问题数衰减
func (s *Scorer) importanceScore(unit *entity.ContentUnit) float64 {
	score := clamp01(float64(unit.Importance) / float64(entity.ImportanceMax))
	if unit.CharacterName != "" {
		if n := s.penalties[unit.CharacterName]; n > 0 {
			score *= 1 - math.Min(0.5, 0.1*float64(n))
		}
	}
	return clamp01(score)
}

// recencyScore 按天粒度半衰期衰减。从未使用的单元固定取中性值 0.5，
// 新增设定不会因此被饿死。
func (s *Scorer) recencyScore(unit *entity.ContentUnit) float64 {
	if unit.LastUsedAt == nil {
		return 0.5
	}
	days := int(s.now().Sub(*unit.LastUsedAt).Hours() / 24)
	if days <= 0 {
		return 1.0
	}
	return clamp01(math.Pow(0.5, float64(days)/s.halfLifeDays))
}

// involvementScore 单元覆盖出场角色集合的比例
func (s *Scorer) involvementScore(unit *entity.ContentUnit, scene *Scene) float64 {
	active := scene.ActiveCharacters()
	if len(active) == 0 {
		return 0
	}
	referenced := 0
	for _, name := range active {
		if unitReferencesCharacter(unit, name) {
			referenced++
		}
	}
	return float64(referenced) / float64(len(active))
}

// clamp01 收敛到 [0,1]，NaN 一律归 0
func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
