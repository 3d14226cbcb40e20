package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"z-novel-context-svc/internal/application/retrieval"
	"z-novel-context-svc/internal/config"
	"z-novel-context-svc/internal/domain/entity"
	"z-novel-context-svc/internal/domain/repository"
	"z-novel-context-svc/internal/infrastructure/embedding"
	"z-novel-context-svc/internal/infrastructure/persistence/milvus"
	"z-novel-context-svc/internal/wire"
)

func main() {
	_ = godotenv.Load()

	reindex := flag.Bool("reindex", false, "重建所有项目的内容单元向量")
	flag.Parse()

	fmt.Println("Starting system bootstrap...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. 初始化数据层（仅 PostgreSQL）
	dataLayer, cleanup, err := wire.InitializePostgresOnly(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize data layer: %v", err)
	}
	defer cleanup()

	// 3. 建表与索引
	fmt.Println("Running database migrations...")
	if err := dataLayer.PgClient.AutoMigrate(ctx,
		&entity.Project{},
		&entity.Chapter{},
		&entity.ContentUnit{},
		&entity.ConsistencyCheck{},
		&entity.ConsistencyIssue{},
	); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}
	fmt.Println("Database migrations completed.")

	// 4. 准备 Milvus 集合（未配置时跳过）
	if cfg.Vector.Milvus.Host == "" {
		fmt.Println("Milvus not configured, skipping vector bootstrap.")
		fmt.Println("Bootstrap completed successfully.")
		return
	}

	milvusClient, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		log.Fatalf("failed to connect milvus: %v", err)
	}
	defer func() { _ = milvusClient.Close() }()

	vectorRepo := milvus.NewRepository(milvusClient, cfg.Embedding.Dimension)
	fmt.Println("Ensuring Milvus collection...")
	if err := vectorRepo.EnsureContentUnitsCollection(ctx); err != nil {
		log.Fatalf("failed to ensure milvus collection: %v", err)
	}
	fmt.Println("Milvus collection ready.")

	// 5. 按需全量重建向量
	if *reindex {
		if cfg.Embedding.Endpoint == "" {
			log.Fatalf("reindex requested but embedding endpoint not configured")
		}
		embedder := embedding.NewClient(&cfg.Embedding)
		indexer := retrieval.NewIndexer(embedder, milvus.NewRetrievalVectorRepository(vectorRepo), cfg.Embedding.BatchSize)
		if err := reindexAllProjects(ctx, dataLayer, indexer); err != nil {
			log.Fatalf("failed to reindex projects: %v", err)
		}
	}

	fmt.Println("Bootstrap completed successfully.")
}

// reindexAllProjects 逐项目分页拉取内容单元并重建向量
func reindexAllProjects(ctx context.Context, dataLayer *wire.PostgresOnlyDataLayer, indexer *retrieval.Indexer) error {
	for page := 1; ; page++ {
		projects, err := dataLayer.ProjectRepo.List(ctx, repository.NewPagination(page, 100))
		if err != nil {
			return fmt.Errorf("failed to list projects: %w", err)
		}
		for _, project := range projects.Items {
			units, err := listAllUnits(ctx, dataLayer, project.ID)
			if err != nil {
				return err
			}
			if err := indexer.ReindexProject(ctx, project.ID, units); err != nil {
				return fmt.Errorf("failed to reindex project %s: %w", project.ID, err)
			}
			fmt.Printf("Reindexed project %s (%d units).\n", project.ID, len(units))
		}
		if page >= projects.TotalPages || len(projects.Items) == 0 {
			return nil
		}
	}
}

func listAllUnits(ctx context.Context, dataLayer *wire.PostgresOnlyDataLayer, projectID string) ([]*entity.ContentUnit, error) {
	var units []*entity.ContentUnit
	for page := 1; ; page++ {
		result, err := dataLayer.UnitRepo.ListByProject(ctx, projectID, nil, repository.NewPagination(page, 100))
		if err != nil {
			return nil, fmt.Errorf("failed to list units of project %s: %w", projectID, err)
		}
		units = append(units, result.Items...)
		if page >= result.TotalPages || len(result.Items) == 0 {
			return units, nil
		}
	}
}
