package assembly

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"z-novel-context-svc/internal/config"
	"z-novel-context-svc/internal/domain/entity"
	"z-novel-context-svc/pkg/logger"
	"z-novel-context-svc/pkg/metrics"
)

var assemblyTracer = otel.Tracer("assembly.assembler")

// feedbackWindow 一致性反馈向前回看的时间窗口
const feedbackWindow = 30 * 24 * time.Hour

// KVCache 上下文缓存口，未命中返回 (nil, nil)
type KVCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// SemanticScorer 可选的向量相似度来源，不可用时整体降级为关键词相关度
type SemanticScorer interface {
	Enabled() bool
	SimilarUnits(ctx context.Context, projectID, sceneText string, topK int) (map[string]float64, error)
}

// FeedbackSource 一致性检查反馈来源：角色名到未解决问题数
type FeedbackSource interface {
	CountIssuesByCharacter(ctx context.Context, projectID string, since time.Time) (map[string]int, error)
}

// Assembler 上下文组装服务。
// 每次调用都基于当前单元状态重新打分，策略由调用方逐次传入，
// 进程内不保存任何「当前策略」。
type Assembler struct {
	cfg       config.EngineConfig
	store     ContentStore
	cache     KVCache
	recorder  UsageRecorder
	semantic  SemanticScorer
	feedback  FeedbackSource
	estimator TokenEstimator
	now       func() time.Time

	// flight 合并同键并发的缓存重建
	flight singleflight.Group
}

// NewAssembler 创建组装服务。cache/semantic/feedback 可为 nil，
// recorder 为 nil 时回退到进程内按项目加锁的记录器。
func NewAssembler(
	cfg config.EngineConfig,
	store ContentStore,
	cache KVCache,
	recorder UsageRecorder,
	semantic SemanticScorer,
	feedback FeedbackSource,
) *Assembler {
	if recorder == nil {
		recorder = NewLocalUsageRecorder(store)
	}
	return &Assembler{
		cfg:       cfg,
		store:     store,
		cache:     cache,
		recorder:  recorder,
		semantic:  semantic,
		feedback:  feedback,
		estimator: NewRuneRatioEstimator(),
		now:       time.Now,
	}
}

// DefaultStrategy 配置中的默认压缩策略
func (a *Assembler) DefaultStrategy() CompressionStrategy {
	return StrategyFromConfig(a.cfg.DefaultStrategy)
}

// Assemble 组装一次上下文。strategy 为 nil 时使用配置默认值。
// 校验失败立即返回，不产生任何部分产物。
func (a *Assembler) Assemble(ctx context.Context, projectID, chapterID string, cursor int, strategy *CompressionStrategy) (*IntelligentContext, error) {
	return a.assemble(ctx, projectID, chapterID, cursor, strategy, false)
}

// AssembleFresh 跳过缓存读取强制重建，产物仍会回填缓存。调试用。
func (a *Assembler) AssembleFresh(ctx context.Context, projectID, chapterID string, cursor int, strategy *CompressionStrategy) (*IntelligentContext, error) {
	return a.assemble(ctx, projectID, chapterID, cursor, strategy, true)
}

func (a *Assembler) assemble(ctx context.Context, projectID, chapterID string, cursor int, strategy *CompressionStrategy, bypassCache bool) (*IntelligentContext, error) {
	if strategy == nil {
		def := a.DefaultStrategy()
		strategy = &def
	}
	if err := strategy.Validate(); err != nil {
		metrics.ContextAssemblyTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	ctx, span := assemblyTracer.Start(ctx, "assembly.Assemble",
		trace.WithAttributes(
			attribute.String("project.id", projectID),
			attribute.String("chapter.id", chapterID),
			attribute.Int("cursor", cursor),
			attribute.Int("strategy.max_tokens", strategy.MaxTokens),
			attribute.Bool("cache.bypass", bypassCache),
		))
	defer span.End()

	metrics.ActiveAssemblies.Inc()
	defer metrics.ActiveAssemblies.Dec()
	start := a.now()

	cacheKey := a.cacheKey(projectID, chapterID, cursor, strategy)
	if !bypassCache {
		if cached := a.lookupCache(ctx, cacheKey); cached != nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			metrics.ContextCacheHits.WithLabelValues("hit").Inc()
			metrics.ContextAssemblyTotal.WithLabelValues("success").Inc()
			metrics.ContextAssemblyDuration.WithLabelValues("hit").Observe(time.Since(start).Seconds())
			a.recordUsage(ctx, projectID, cached.UnitIDs)
			return cached, nil
		}
	}

	if bypassCache || !a.cacheEnabled() {
		return a.buildContext(ctx, cacheKey, projectID, chapterID, cursor, strategy, start)
	}

	metrics.ContextCacheHits.WithLabelValues("miss").Inc()
	// 同键并发未命中只触发一次重建，其余请求共享产物
	v, err, shared := a.flight.Do(cacheKey, func() (interface{}, error) {
		return a.buildContext(ctx, cacheKey, projectID, chapterID, cursor, strategy, start)
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Bool("cache.rebuild_shared", shared))
	return v.(*IntelligentContext), nil
}

// buildContext 缓存未命中时的完整构建路径
func (a *Assembler) buildContext(ctx context.Context, cacheKey, projectID, chapterID string, cursor int, strategy *CompressionStrategy, start time.Time) (*IntelligentContext, error) {
	span := trace.SpanFromContext(ctx)

	chapterText, err := a.store.GetChapterText(ctx, chapterID)
	if err != nil {
		span.RecordError(err)
		metrics.ContextAssemblyTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	units, err := a.store.ListContentUnits(ctx, projectID, entity.AllUnitKinds())
	if err != nil {
		span.RecordError(err)
		metrics.ContextAssemblyTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	scene := NewScene(projectID, chapterID, chapterText, cursor, characterNames(units))
	scored := a.scoreUnits(ctx, scene, units)
	sections := NewSectionBuilder(a.estimator).Build(scored, scene, strategy)
	result := NewCompressor(a.estimator).Compress(sections, strategy)
	result.ProjectID = projectID
	result.ChapterID = chapterID
	result.BuiltAt = a.now()

	span.SetAttributes(
		attribute.Int("context.total_tokens", result.TotalTokens),
		attribute.Float64("context.compression_ratio", result.CompressionRatio),
		attribute.Bool("context.budget_exceeded", result.BudgetExceeded),
	)
	metrics.ContextTotalTokens.Observe(float64(result.TotalTokens))
	metrics.CompressionRatio.Observe(result.CompressionRatio)
	if result.BudgetExceeded {
		metrics.BudgetExceededTotal.Inc()
		logger.FromContext(ctx).Warn("protected content exceeds token budget",
			"project_id", projectID,
			"chapter_id", chapterID,
			"total_tokens", result.TotalTokens,
			"max_tokens", strategy.MaxTokens,
		)
	}
	metrics.ContextAssemblyTotal.WithLabelValues("success").Inc()
	metrics.ContextAssemblyDuration.WithLabelValues("miss").Observe(time.Since(start).Seconds())

	a.storeCache(ctx, cacheKey, result)
	a.recordUsage(ctx, projectID, result.UnitIDs)
	return result, nil
}

// scoreUnits 打分并按最终权重降序排列，同分保持读取顺序
func (a *Assembler) scoreUnits(ctx context.Context, scene *Scene, units []*entity.ContentUnit) []scoredUnit {
	scorer := NewScorer(a.scorerWeights(), a.cfg.Scorer.RecencyHalfLifeDays)

	if a.feedback != nil {
		since := a.now().Add(-feedbackWindow)
		penalties, err := a.feedback.CountIssuesByCharacter(ctx, scene.ProjectID, since)
		if err != nil {
			logger.FromContext(ctx).Warn("failed to load consistency feedback", "error", err)
		} else {
			scorer.SetPenalties(penalties)
		}
	}
	if a.semantic != nil && a.semantic.Enabled() && a.cfg.Retrieval.Enabled {
		similarity, err := a.semantic.SimilarUnits(ctx, scene.ProjectID, scene.Text, a.cfg.Retrieval.TopK)
		if err != nil {
			logger.FromContext(ctx).Warn("semantic retrieval degraded to keyword overlap", "error", err)
		} else {
			scorer.SetSemantic(similarity)
		}
	}

	scored := make([]scoredUnit, 0, len(units))
	for i, unit := range units {
		w := scorer.Score(unit, scene)
		if w.Degraded {
			metrics.ScoringDegradedTotal.Inc()
		}
		scored = append(scored, scoredUnit{
			unit:     unit,
			weight:   w,
			mentions: scene.MentionCount(unit.CharacterName),
			order:    i,
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].weight.FinalWeight > scored[j].weight.FinalWeight
	})
	return scored
}

func (a *Assembler) scorerWeights() ScorerWeights {
	w := ScorerWeights{
		Relevance:   a.cfg.Scorer.RelevanceWeight,
		Importance:  a.cfg.Scorer.ImportanceWeight,
		Recency:     a.cfg.Scorer.RecencyWeight,
		Involvement: a.cfg.Scorer.InvolvementWeight,
	}
	if w.Relevance+w.Importance+w.Recency+w.Involvement <= 0 {
		return DefaultScorerWeights()
	}
	return w
}

func (a *Assembler) cacheEnabled() bool {
	return a.cache != nil && a.cfg.ContextCache.Enabled
}

func (a *Assembler) cacheKey(projectID, chapterID string, cursor int, strategy *CompressionStrategy) string {
	return fmt.Sprintf("ctx:%s:%s:%d:%s", projectID, chapterID, cursor, ShortHash(strategy.Fingerprint()))
}

// lookupCache 读取缓存副本，任何失败都按未命中处理
func (a *Assembler) lookupCache(ctx context.Context, key string) *IntelligentContext {
	if !a.cacheEnabled() {
		return nil
	}
	data, err := a.cache.Get(ctx, key)
	if err != nil || len(data) == 0 {
		return nil
	}
	var cached IntelligentContext
	if err := json.Unmarshal(data, &cached); err != nil {
		logger.FromContext(ctx).Warn("failed to decode cached context", "key", key, "error", err)
		return nil
	}
	cached.FromCache = true
	return &cached
}

// storeCache 写入缓存，失败只告警不影响返回
func (a *Assembler) storeCache(ctx context.Context, key string, result *IntelligentContext) {
	if !a.cacheEnabled() {
		return
	}
	if err := a.cache.Set(ctx, key, result, a.cfg.ContextCache.TTL); err != nil {
		logger.FromContext(ctx).Warn("failed to cache context", "key", key, "error", err)
	}
}

// recordUsage 记录使用计数，失败只告警不影响返回
func (a *Assembler) recordUsage(ctx context.Context, projectID string, unitIDs []string) {
	if len(unitIDs) == 0 {
		return
	}
	if err := a.recorder.RecordUsage(ctx, projectID, unitIDs, a.now()); err != nil {
		logger.FromContext(ctx).Warn("failed to record unit usage",
			"project_id", projectID,
			"unit_count", len(unitIDs),
			"error", err,
		)
	}
}

// characterNames 从角色单元提取去重角色名
func characterNames(units []*entity.ContentUnit) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, unit := range units {
		if unit.Kind != entity.UnitKindCharacter || unit.CharacterName == "" {
			continue
		}
		if _, ok := seen[unit.CharacterName]; ok {
			continue
		}
		seen[unit.CharacterName] = struct{}{}
		names = append(names, unit.CharacterName)
	}
	return names
}
