package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/NordCoder/Tubely/internal/obs"
	"github.com/NordCoder/Tubely/internal/repository/kafka"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type config struct {
	Brokers     []string      `mapstructure:"brokers"`
	Topics      []string      `mapstructure:"topics"`
	Partitions  int           `mapstructure:"partitions"`
	Replication int           `mapstructure:"replication"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// loadConfig reads KAFKA_BROKERS, KAFKA_TOPICS (comma separated),
// KAFKA_PARTITIONS, KAFKA_REPLICATION and KAFKA_TIMEOUT.
func loadConfig() (*config, error) {
	v := viper.New()
	v.SetEnvPrefix("kafka")
	v.SetDefault("brokers", "localhost:9092")
	v.SetDefault("topics", "tubely.relation.events")
	v.SetDefault("partitions", 3)
	v.SetDefault("replication", 1)
	v.SetDefault("timeout", "60s")
	v.AutomaticEnv()

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Brokers = splitList(cfg.Brokers)
	cfg.Topics = splitList(cfg.Topics)
	return &cfg, nil
}

func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	l, err := obs.NewLogger(obs.LogConfig{Level: "info", App: "tubely/kafka-init"})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = l.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	for _, t := range cfg.Topics {
		err := kafka.EnsureTopic(ctx, cfg.Brokers, kafka.TopicSpec{
			Name:              t,
			NumPartitions:     cfg.Partitions,
			ReplicationFactor: cfg.Replication,
			MaxWait:           30 * time.Second,
		}, l)
		if err != nil {
			l.Fatal("ensure topic", zap.String("topic", t), zap.Error(err))
		}
	}
	l.Info("kafka-init ok", zap.Strings("topics", cfg.Topics))
}
