//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"z-novel-context-svc/internal/application/assembly"
	"z-novel-context-svc/internal/application/consistency"
	"z-novel-context-svc/internal/application/retrieval"
	"z-novel-context-svc/internal/config"
	"z-novel-context-svc/internal/domain/repository"
	"z-novel-context-svc/internal/infrastructure/persistence/postgres"
	"z-novel-context-svc/internal/infrastructure/persistence/redis"
	"z-novel-context-svc/internal/interfaces/http/handler"
	"z-novel-context-svc/internal/interfaces/http/middleware"
	"z-novel-context-svc/internal/interfaces/http/router"
)

// PostgresOnlyDataLayer 仅包含 PostgreSQL 的数据层（用于 bootstrap）
type PostgresOnlyDataLayer struct {
	PgClient    *postgres.Client
	TxManager   *postgres.TxManager
	ProjectRepo *postgres.ProjectRepository
	ChapterRepo *postgres.ChapterRepository
	UnitRepo    *postgres.ContentUnitRepository
	CheckRepo   *postgres.ConsistencyCheckRepository
}

// InitializePostgresOnly 仅初始化 PostgreSQL 数据层（用于 bootstrap）
func InitializePostgresOnly(ctx context.Context, cfg *config.Config) (*PostgresOnlyDataLayer, func(), error) {
	wire.Build(
		PostgresSet,
		wire.Struct(new(PostgresOnlyDataLayer), "*"),
	)
	return nil, nil, nil
}

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		MessagingSet,
		EmbeddingSet,
		MilvusAppSet,
		RetrievalSet,
		EngineSet,
		RouterSet,
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewProjectRepository,
	postgres.NewChapterRepository,
	postgres.NewContentUnitRepository,
	postgres.NewConsistencyCheckRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	// 接口绑定
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.ProjectRepository), new(*postgres.ProjectRepository)),
	wire.Bind(new(repository.ChapterRepository), new(*postgres.ChapterRepository)),
	wire.Bind(new(repository.ContentUnitRepository), new(*postgres.ContentUnitRepository)),
	wire.Bind(new(repository.ConsistencyCheckRepository), new(*postgres.ConsistencyCheckRepository)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
	wire.Bind(new(assembly.KVCache), new(*redis.Cache)),
	wire.Bind(new(handler.ContextInvalidator), new(*redis.Cache)),
	wire.Bind(new(middleware.RateLimiter), new(*redis.RateLimiter)),
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
	ProvideUsageRecorder,
)

// MilvusAppSet 可选 Milvus（不可达时不阻塞启动）
var MilvusAppSet = wire.NewSet(
	ProvideMilvusClientOptional,
	ProvideMilvusRepositoryOptional,
	ProvideRetrievalVectorRepositoryOptional,
)

// EmbeddingSet 可选 Embedder（未配置时禁用语义检索与索引）
var EmbeddingSet = wire.NewSet(
	ProvideEmbedderOptional,
)

// RetrievalSet 语义检索引擎与索引器
var RetrievalSet = wire.NewSet(
	retrieval.NewEngine,
	ProvideRetrievalIndexer,
)

// EngineSet 上下文组装与一致性检查
var EngineSet = wire.NewSet(
	assembly.NewRepositoryStore,
	wire.Bind(new(assembly.ContentStore), new(*assembly.RepositoryStore)),
	ProvideAssembler,
	ProvideChecker,
	consistency.NewService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	handler.NewHealthHandler,
	handler.NewProjectHandler,
	handler.NewChapterHandler,
	handler.NewContentUnitHandler,
	handler.NewContextHandler,
	handler.NewCheckHandler,
	wire.Struct(new(router.RouterHandlers), "*"),
	router.NewWithDeps,
)
