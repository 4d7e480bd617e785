package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/weiawesome/wes-io-live/thumbnail-service/internal/config"
	"github.com/weiawesome/wes-io-live/thumbnail-service/internal/function"
	"github.com/weiawesome/wes-io-live/thumbnail-service/internal/metadata"
	"github.com/weiawesome/wes-io-live/thumbnail-service/internal/mq"
	"github.com/weiawesome/wes-io-live/thumbnail-service/internal/processor"
	"github.com/weiawesome/wes-io-live/thumbnail-service/internal/thumbnail"
	"github.com/weiawesome/wes-io-live/thumbnail-service/pkg/database"
	pkglog "github.com/weiawesome/wes-io-live/thumbnail-service/pkg/log"
	"github.com/weiawesome/wes-io-live/thumbnail-service/pkg/pubsub"
	pkgstorage "github.com/weiawesome/wes-io-live/thumbnail-service/pkg/storage"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialise structured logger.
	logCfg := cfg.Log
	logCfg.Pretty = logCfg.Pretty || logCfg.Level == "debug"
	pkglog.Init(logCfg)
	l := pkglog.L()
	l.Info().Str("trigger", cfg.Trigger.Mode).Msg("thumbnail-service starting")

	blobs := newStorage(cfg, l)
	container := cfg.Container()

	// Metadata store (overwrite pipeline only).
	var store metadata.Store
	if cfg.NeedsMetadata() {
		store = newMetadataStore(cfg, l)
		defer store.Close()
	}

	// Notifications are optional; an empty driver yields a nil publisher.
	publisher, err := pubsub.NewPublisher(cfg.Notify)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to init notification publisher")
	}
	if publisher != nil {
		l.Info().Str("driver", cfg.Notify.Driver).Msg("notifications enabled")
	}

	generator := thumbnail.NewGenerator(cfg.Thumbnail)

	newOverwrite := func() processor.Processor {
		p, perr := processor.NewOverwriteProcessor(generator, blobs, store, publisher, container, cfg.Processor.StrictKeys)
		if perr != nil {
			l.Fatal().Err(perr).Msg("failed to init overwrite processor")
		}
		return p
	}
	newDerived := func() processor.Processor {
		return processor.NewDerivedProcessor(generator, blobs, publisher, container)
	}

	var stop func(ctx context.Context)
	switch cfg.Trigger.Mode {
	case config.TriggerModeKafka:
		var proc processor.Processor
		if cfg.Trigger.Kafka.Variant == string(processor.VariantOverwrite) {
			proc = newOverwrite()
		} else {
			proc = newDerived()
		}

		consumer, cerr := mq.NewKafkaConsumer(
			cfg.Trigger.Kafka.Brokers,
			cfg.Trigger.Kafka.ConsumerTopic,
			cfg.Trigger.Kafka.ConsumerGroupID,
			mq.Filter{
				Container:  cfg.Trigger.Kafka.ContainerFilter,
				Prefix:     cfg.Trigger.Kafka.PrefixFilter,
				EventNames: cfg.Trigger.Kafka.EventNameFilters,
			},
			processor.NewEventHandler(blobs, container, proc),
		)
		if cerr != nil {
			l.Fatal().Err(cerr).Msg("failed to init kafka consumer")
		}

		ctx, cancel := context.WithCancel(context.Background())
		if err := consumer.Start(ctx); err != nil {
			l.Fatal().Err(err).Msg("failed to start consumer")
		}
		l.Info().Str("variant", string(proc.Variant())).Msg("kafka trigger started")

		stop = func(context.Context) {
			cancel() // stop accepting new messages
			if err := consumer.Close(); err != nil {
				l.Error().Err(err).Msg("failed to close consumer")
			}
		}

	default:
		handler := function.NewHandler(map[string]processor.Processor{
			"ProcessUserPhoto": newOverwrite(),
			"process-image":    newDerived(),
		}, container, cfg.Function)
		server := function.NewServer(cfg.Function, l, handler)

		go func() {
			l.Info().Int("port", cfg.Function.Port).Msg("custom handler listening")
			if err := server.Start(); err != nil {
				l.Fatal().Err(err).Msg("custom handler server failed")
			}
		}()

		stop = func(ctx context.Context) {
			if err := server.Shutdown(ctx); err != nil {
				l.Error().Err(err).Msg("failed to shut down custom handler server")
			}
		}
	}

	// Block until SIGINT / SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	l.Info().Msg("shutting down: waiting for in-flight processing to complete")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		stop(ctx)
		if publisher != nil {
			publisher.Close()
		}
	}()

	select {
	case <-shutdownDone:
		l.Info().Msg("shutdown complete")
	case <-ctx.Done():
		l.Warn().Msg("shutdown timed out after 30s")
	}
}

func newStorage(cfg *config.Config, l zerolog.Logger) pkgstorage.Storage {
	switch cfg.Storage.Type {
	case "azure":
		st, err := pkgstorage.NewAzureBlobStorage(cfg.Storage.Azure)
		if err != nil {
			l.Fatal().Err(err).Msg("failed to init azure blob storage")
		}
		l.Info().Str("container", st.Container()).Msg("azure blob storage initialised")
		return st
	case "s3":
		st, err := pkgstorage.NewS3Storage(context.Background(), cfg.Storage.S3)
		if err != nil {
			l.Fatal().Err(err).Msg("failed to init s3 storage")
		}
		l.Info().
			Str("endpoint", cfg.Storage.S3.Endpoint).
			Str("bucket", st.Bucket()).
			Msg("s3 storage initialised")
		return st
	case "minio":
		st, err := pkgstorage.NewMinIOStorage(context.Background(), cfg.Storage.MinIO)
		if err != nil {
			l.Fatal().Err(err).Msg("failed to init minio storage")
		}
		l.Info().
			Str("endpoint", cfg.Storage.MinIO.Endpoint).
			Str("bucket", st.Bucket()).
			Msg("minio storage initialised")
		return st
	case "memory":
		l.Warn().Msg("memory storage initialised; blobs are lost on exit")
		return pkgstorage.NewMemoryStorage("memory://" + cfg.Container())
	default:
		st, err := pkgstorage.NewLocalStorage(cfg.Storage.Local)
		if err != nil {
			l.Fatal().Err(err).Msg("failed to init local storage")
		}
		l.Info().Str("path", st.BasePath()).Msg("local storage initialised")
		return st
	}
}

func newMetadataStore(cfg *config.Config, l zerolog.Logger) metadata.Store {
	switch cfg.Metadata.Driver {
	case "database":
		db, err := database.New(&cfg.Metadata.Database)
		if err != nil {
			l.Fatal().Err(err).Msg("failed to connect to database")
		}
		if err := database.AutoMigrate(db, &metadata.ProductImageModel{}); err != nil {
			l.Fatal().Err(err).Msg("failed to auto-migrate")
		}
		l.Info().Str("driver", cfg.Metadata.Database.Driver).Msg("database metadata store initialised")
		return metadata.NewGormStore(db)
	case "redis":
		st, err := metadata.NewRedisStore(cfg.Metadata.Redis)
		if err != nil {
			l.Fatal().Err(err).Msg("failed to init redis metadata store")
		}
		l.Info().Str("address", cfg.Metadata.Redis.Address).Msg("redis metadata store initialised")
		return st
	default:
		st, err := metadata.NewTablesStore(cfg.Metadata.Tables)
		if err != nil {
			l.Fatal().Err(err).Msg("failed to init table store")
		}
		l.Info().Str("table", cfg.Metadata.Tables.TableName).Msg("table metadata store initialised")
		return st
	}
}
