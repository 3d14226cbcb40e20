// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"z-novel-context-svc/internal/application/assembly"
	"z-novel-context-svc/internal/application/consistency"
	"z-novel-context-svc/internal/application/retrieval"
	"z-novel-context-svc/internal/config"
	"z-novel-context-svc/internal/domain/repository"
	"z-novel-context-svc/internal/infrastructure/embedding"
	"z-novel-context-svc/internal/infrastructure/messaging"
	"z-novel-context-svc/internal/infrastructure/persistence/milvus"
	"z-novel-context-svc/internal/infrastructure/persistence/postgres"
	"z-novel-context-svc/internal/infrastructure/persistence/redis"
	"z-novel-context-svc/pkg/logger"
)

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	return messaging.NewProducer(redisClient.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))
}

// ProvideUsageRecorder 使用量记录经由 Redis Stream，由 usage-worker 异步落库
func ProvideUsageRecorder(producer *messaging.Producer) assembly.UsageRecorder {
	return messaging.NewStreamUsageRecorder(producer)
}

func ProvideMilvusClientOptional(ctx context.Context, cfg *config.Config) (*milvus.Client, func(), error) {
	client, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		logger.Warn(ctx, "milvus not available, vector features disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

func ProvideMilvusRepositoryOptional(client *milvus.Client, cfg *config.Config) *milvus.Repository {
	if client == nil {
		return nil
	}
	return milvus.NewRepository(client, cfg.Embedding.Dimension)
}

func ProvideRetrievalVectorRepositoryOptional(repo *milvus.Repository) retrieval.VectorRepository {
	if repo == nil {
		return nil
	}
	return milvus.NewRetrievalVectorRepository(repo)
}

func ProvideEmbedderOptional(ctx context.Context, cfg *config.Config) retrieval.Embedder {
	if cfg.Embedding.Endpoint == "" {
		logger.Warn(ctx, "embedding endpoint not configured, semantic retrieval disabled")
		return nil
	}
	return embedding.NewClient(&cfg.Embedding)
}

// ProvideRetrievalIndexer 提供内容单元向量索引器
func ProvideRetrievalIndexer(cfg *config.Config, embedder retrieval.Embedder, vectorRepo retrieval.VectorRepository) *retrieval.Indexer {
	return retrieval.NewIndexer(embedder, vectorRepo, cfg.Embedding.BatchSize)
}

// ProvideAssembler 提供上下文组装器。
// 检索引擎充当语义召回源，检查仓储充当角色反馈源，二者都可降级。
func ProvideAssembler(
	cfg *config.Config,
	store assembly.ContentStore,
	cache assembly.KVCache,
	recorder assembly.UsageRecorder,
	engine *retrieval.Engine,
	checkRepo repository.ConsistencyCheckRepository,
) *assembly.Assembler {
	return assembly.NewAssembler(cfg.Engine, store, cache, recorder, engine, checkRepo)
}

// ProvideChecker 提供默认规则集的一致性检查器
func ProvideChecker() *consistency.Checker {
	return consistency.NewChecker()
}
