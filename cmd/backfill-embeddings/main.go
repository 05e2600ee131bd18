// backfill-embeddings enqueues one River embedding_backfill job per content
// type for items missing an embedding under the configured model. Run it as a
// one-off or on a schedule; workers in the API process execute the batches.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/scholarnet/reco/internal/config"
	"github.com/scholarnet/reco/internal/jobs"
	"github.com/scholarnet/reco/internal/models"
	"github.com/scholarnet/reco/internal/observability"
	"github.com/scholarnet/reco/internal/repository"
	"github.com/scholarnet/reco/pkg/database"
)

func main() {
	os.Exit(run())
}

func run() int {
	purgeModel := flag.String("purge-model", "",
		"delete all embeddings stored under this model key instead of enqueuing backfill jobs")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)

		return 1
	}

	logger := observability.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, database.WithAfterConnect(pgxvec.RegisterTypes))
	if err != nil {
		logger.Error("failed to connect to database", "error", err)

		return 1
	}
	defer db.Close()

	// A model upgrade leaves the old rows in place; purge them explicitly once
	// the new model is fully backfilled.
	if *purgeModel != "" {
		if *purgeModel == cfg.EmbeddingModel {
			logger.Error("refusing to purge the active embedding model", "model", *purgeModel)

			return 1
		}

		deleted, err := repository.NewEmbeddingsRepository(db).PurgeModel(ctx, *purgeModel)
		if err != nil {
			logger.Error("failed to purge embeddings", "model", *purgeModel, "error", err)

			return 1
		}

		logger.Info("embeddings purged", "model", *purgeModel, "deleted", deleted)

		return 0
	}

	// Insert-only client: no workers run here, the API process drains the queue.
	riverClient, err := river.NewClient(riverpgxv5.New(db), &river.Config{
		Workers: river.NewWorkers(),
	})
	if err != nil {
		logger.Error("failed to create River client", "error", err)

		return 1
	}

	inserter := jobs.NewRiverJobInserter(riverClient)

	contentTypes := []models.ContentType{
		models.ContentTypePost,
		models.ContentTypePaper,
		models.ContentTypeUserProfile,
	}

	enqueued := 0

	for _, contentType := range contentTypes {
		args := jobs.EmbeddingBackfillArgs{
			ContentType: string(contentType),
			BatchSize:   cfg.BackfillBatchSize,
		}

		if err := inserter.InsertBackfillJob(ctx, args); err != nil {
			logger.Error("failed to enqueue backfill job",
				"content_type", contentType, "error", err)

			return 1
		}

		enqueued++

		logger.Info("backfill job enqueued",
			"content_type", contentType, "batch_size", cfg.BackfillBatchSize)
	}

	logger.Info("backfill enqueue complete", "jobs", enqueued, "model", cfg.EmbeddingModel)

	return 0
}
