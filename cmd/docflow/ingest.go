package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/your-org/docflow/internal/ingestion"
	"github.com/your-org/docflow/pkg/config"
	"github.com/your-org/docflow/pkg/kafka"
	"github.com/your-org/docflow/pkg/notify"
	"github.com/your-org/docflow/pkg/storage/objectstore"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Parse stored objects as their creation notifications arrive",
	Long: `Subscribe to object-creation notifications (INGESTION_SOURCE=kafka|pubsub|store),
fetch each object, decode its XML payload and hand the tree to INGESTION_SINK.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer rt.close()

		store, err := rt.openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		return runIngestWorker(ctx, rt, store)
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngestWorker(ctx context.Context, rt *runtime, store objectstore.Client) error {
	cfg := rt.cfg

	containerSource, err := ingestion.ParseContainerSource(cfg.Ingestion.ContainerSource)
	if err != nil {
		return err
	}

	sink, closeSink, err := buildSink(rt)
	if err != nil {
		return err
	}
	defer closeSink()

	handler, err := ingestion.NewHandler(ingestion.Params{
		Store:  store,
		Sink:   sink,
		Logger: rt.logger,
		Config: ingestion.Config{
			TargetContainer:   cfg.Ingestion.TargetContainer,
			ContainerSource:   containerSource,
			KeyPattern:        cfg.Ingestion.KeyPattern,
			MaxObjectBytes:    cfg.Ingestion.MaxObjectBytes,
			InvocationTimeout: cfg.Ingestion.InvocationTimeout,
		},
	})
	if err != nil {
		return fmt.Errorf("init ingestion handler: %w", err)
	}

	sub, err := buildSubscriber(ctx, rt, store)
	if err != nil {
		return err
	}
	if c, ok := sub.(io.Closer); ok {
		defer c.Close() //nolint:errcheck
	}

	rt.logger.Info("ingestion worker starting",
		zap.String("source", cfg.Ingestion.Source),
		zap.String("sink", cfg.Ingestion.Sink),
		zap.String("container_source", cfg.Ingestion.ContainerSource),
		zap.String("target_container", cfg.Ingestion.TargetContainer),
	)
	if err := sub.Subscribe(ctx, handler.HandleBatch); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	rt.logger.Info("ingestion worker stopped")
	return nil
}

func buildSink(rt *runtime) (ingestion.Sink, func(), error) {
	cfg := rt.cfg
	if cfg.Ingestion.Sink != "kafka" {
		return ingestion.NewLogSink(rt.logger), func() {}, nil
	}

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.DocumentTopic,
		BatchSize:    cfg.Kafka.BatchSize,
		BatchTimeout: cfg.Kafka.BatchTimeout,
		WriteTimeout: cfg.Kafka.WriteTimeout,
		Codec:        cfg.Kafka.CompressionCodec,
		Acks:         cfg.Kafka.RequiredAcks,
		MaxAttempts:  cfg.Kafka.Retries,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init document producer: %w", err)
	}
	return ingestion.NewKafkaSink(producer), func() {
		if err := producer.Close(); err != nil {
			rt.logger.Error("kafka producer close failed", zap.Error(err), zap.String("topic", producer.Topic()))
		}
	}, nil
}

func buildSubscriber(ctx context.Context, rt *runtime, store objectstore.Client) (notify.Subscriber, error) {
	cfg := rt.cfg
	switch cfg.Ingestion.Source {
	case "kafka":
		consumer := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.NotificationTopic,
			GroupID:      cfg.Kafka.ConsumerGroup,
			MinBytes:     1,
			MaxBytes:     cfg.Kafka.ConsumerMaxBytes,
			MaxWait:      cfg.Kafka.ConsumerMaxWait,
			MaxAttempts:  cfg.Kafka.Retries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		})
		return notify.NewKafkaSubscriber(consumer, rt.logger), nil

	case "pubsub":
		sub, err := notify.NewPubSubSubscriber(ctx, cfg.GCP.ProjectID, cfg.GCP.SubscriptionID, rt.logger)
		if err != nil {
			return nil, fmt.Errorf("init pubsub subscriber: %w", err)
		}
		return sub, nil

	case "store":
		n, ok := store.(objectstore.Notifier)
		if !ok {
			return nil, fmt.Errorf("storage provider %q cannot deliver notifications itself", cfg.Storage.Provider)
		}
		return n.Notifications(storeFeedContainer(cfg)), nil

	default:
		return nil, fmt.Errorf("unsupported ingestion source %q", cfg.Ingestion.Source)
	}
}

// storeFeedContainer picks the container the store's own feed is filtered to. When the
// handler reads from the notified container every container is watched.
func storeFeedContainer(cfg *config.Config) string {
	if cfg.Ingestion.ContainerSource == "notification" {
		return ""
	}
	if cfg.Ingestion.TargetContainer != "" {
		return cfg.Ingestion.TargetContainer
	}
	return cfg.Upload.DefaultContainer
}
