package main

import (
	"context"
	"time"

	config "github.com/NordCoder/Tubely/internal/config/api-gateway"
	"github.com/NordCoder/Tubely/internal/domain/relation"
	"github.com/NordCoder/Tubely/internal/obs/retry"
	"github.com/NordCoder/Tubely/internal/outbox"
	"github.com/NordCoder/Tubely/internal/repository/kafka"
	"go.uber.org/zap"
)

// eventSink returns the store's sink only when a runner will drain it.
// Without publishing, enqueued rows would never leave CREATED.
func eventSink(cfg *config.Config, st *store) relation.EventSink {
	if !cfg.Kafka.Enable || st.outbox == nil {
		return nil
	}
	return st.sink
}

// startOutbox publishes relation events when kafka is enabled and the store
// keeps an outbox. The returned stop func waits for the workers and closes
// the producer.
func startOutbox(ctx context.Context, cfg *config.Config, st *store, logger *zap.Logger) (stop func()) {
	if !cfg.Kafka.Enable || st.outbox == nil {
		logger.Info("outbox publishing disabled",
			zap.Bool("kafka_enabled", cfg.Kafka.Enable),
			zap.String("db_driver", cfg.DB.Driver),
		)
		return func() {}
	}

	if err := kafka.EnsureTopic(ctx, cfg.Kafka.Brokers, kafka.TopicSpec{
		Name:              cfg.Kafka.Topic,
		NumPartitions:     cfg.Kafka.Partitions,
		ReplicationFactor: 1,
		MaxWait:           5 * time.Second,
	}, logger); err != nil {
		logger.Warn("ensure topic", zap.String("topic", cfg.Kafka.Topic), zap.Error(err))
	}

	prod := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic).WithLogger(logger)
	pub := kafka.NewRelationEventsKafka(prod)

	runner := outbox.NewOutboxRunner(logger, st.outbox,
		outbox.MakeGlobalOutboxHandler(pub, retry.DefaultKafkaPolicy(logger)),
		cfg.Outbox,
	)
	runner.Start(ctx)
	logger.Info("outbox runner started",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
		zap.Int("workers", cfg.Outbox.Workers),
	)

	return func() {
		runner.Wait()
		if err := prod.Close(); err != nil {
			logger.Warn("kafka producer close", zap.Error(err))
		}
	}
}
