package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/linguapath/learnmap/internal/api"
	"github.com/linguapath/learnmap/internal/catalog"
	"github.com/linguapath/learnmap/internal/cli"
	"github.com/linguapath/learnmap/internal/config"
	"github.com/linguapath/learnmap/internal/db"
	"github.com/linguapath/learnmap/internal/events"
	"github.com/linguapath/learnmap/internal/logger"
	"github.com/linguapath/learnmap/internal/repository"
	"github.com/linguapath/learnmap/internal/repository/mongodb"
	"github.com/linguapath/learnmap/internal/repository/sqlite"
	"github.com/linguapath/learnmap/internal/services"
	"github.com/linguapath/learnmap/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	// Logs go to stderr so stdout stays machine readable.
	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithFormat(logger.ParseFormat(cfg.LogFormat)),
		logger.WithOutput(os.Stderr),
	)
	logger.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	log.Debug("store_driver=%s", cfg.StoreDriver)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("catalog_path=%s", cfg.CatalogPath)
	log.Debug("default_hearts=%d", cfg.DefaultHearts)
	log.Debug("max_hearts=%d", cfg.MaxHearts)
	log.Debug("heart_refill_interval=%s", cfg.HeartRefillInterval)
	log.Debug("writer_shards=%d", cfg.WriterShards)
	log.Debug("writer_queue_size=%d", cfg.WriterQueueSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader, store, closeStore, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	publisher, err := openPublisher(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("failed to close event publisher: %v", err)
		}
	}()

	writers := worker.NewPool(cfg.WriterShards, cfg.WriterQueueSize)
	writers.Start(ctx)
	defer writers.Stop()

	progression := services.NewSerialProgressionService(
		services.NewProgressionService(reader, store,
			services.WithDefaultHearts(cfg.DefaultHearts),
			services.WithMaxHearts(cfg.MaxHearts),
			services.WithReconcile(cfg.ReconcileOnLoad),
			services.WithPublisher(publisher),
		),
		writers,
	)
	hearts := services.NewHeartsService(store, cfg.MaxHearts, cfg.HeartRefillInterval, func() time.Time {
		return time.Now().UTC()
	})

	app := &cli.App{
		Handler:        api.NewHandler(progression),
		Hearts:         hearts,
		RefillInterval: cfg.HeartRefillInterval,
		Out:            os.Stdout,
	}
	return cli.NewRootCmd(app).ExecuteContext(logger.NewContext(ctx, log))
}

// openStores wires the catalog reader and progress store for the configured
// driver. The returned func releases whatever was opened.
func openStores(ctx context.Context, cfg config.Config) (repository.CatalogReader, repository.ProgressStore, func(), error) {
	log := logger.Default().WithPrefix("main")

	switch cfg.StoreDriver {
	case config.StoreMongo:
		cat, err := catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("loading catalog: %w", err)
		}
		client, database, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connecting to mongodb: %w", err)
		}
		store := mongodb.NewProgressStore(database)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, nil, fmt.Errorf("creating indexes: %w", err)
		}
		return cat, store, func() {
			log.Debug("disconnecting from mongodb")
			if err := client.Disconnect(context.Background()); err != nil {
				log.Warn("mongodb disconnect: %v", err)
			}
		}, nil

	default:
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening database: %w", err)
		}
		var reader repository.CatalogReader = sqlite.NewCatalogRepository(database.DB)
		if cfg.CatalogPath != "" {
			cat, err := catalog.LoadFile(cfg.CatalogPath)
			if err != nil {
				database.Close()
				return nil, nil, nil, fmt.Errorf("loading catalog: %w", err)
			}
			reader = cat
		}
		return reader, sqlite.NewProgressStore(database.DB), func() {
			log.Debug("closing database connection")
			database.Close()
		}, nil
	}
}

func openPublisher(cfg config.Config) (events.Publisher, error) {
	if cfg.AMQPURL == "" {
		return events.NewLogPublisher(), nil
	}
	p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		return nil, fmt.Errorf("connecting to amqp: %w", err)
	}
	return p, nil
}
