package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"

	"orghierarchy/src/adapters/kafka/consumers"
	"orghierarchy/src/config"
	"orghierarchy/src/infra/kafka"
	"orghierarchy/src/infra/postgres"
	"orghierarchy/src/infra/redis"
	"orghierarchy/src/repositories"
	"orghierarchy/src/services/events"
	"orghierarchy/src/services/hierarchy"
)

func main() {
	log.SetOutput(os.Stdout)
	log.Println("Starting Branch Import Consumer with Uber Fx...")

	app := fx.New(
		// Providers
		fx.Provide(
			newConfig,
			newLogger,
			newReadWriteClient,
			newRedisClient,
			newKafkaClient,
			newBranchStore,
			newBranchService,
			newBranchImportConsumer,
		),

		// Invocations
		fx.Invoke(startConsumer),
	)

	// Start the application
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start consumer application: %v", err)
	}

	// Wait for interrupt signal to gracefully shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("Shutting down branch import consumer...")

	// Stop the application
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()

	if err := app.Stop(stopCtx); err != nil {
		log.Printf("Failed to stop application gracefully: %v", err)
	}

	log.Println("Branch import consumer shutdown complete")
}

func newConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if !cfg.Kafka.Enabled() {
		return nil, fmt.Errorf("KAFKA_BROKERS is required by the import consumer")
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

func newReadWriteClient(lc fx.Lifecycle, cfg *config.Config) (*postgres.ReadWriteClient, error) {
	readHost, readPort := cfg.Database.ReadReplica()

	client, err := postgres.NewReadWriteClient(
		readHost,
		cfg.Database.Host,
		readPort,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.MaxConnections,
	)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			client.Close()
			return nil
		},
	})
	return client, nil
}

func newRedisClient(lc fx.Lifecycle, cfg *config.Config) *redis.RedisClient {
	if !cfg.Redis.Enabled() {
		return nil
	}

	client := redis.NewRedisClient(cfg.Redis.Hosts, cfg.Redis.PoolSize, cfg.Redis.TTL).WithPrefix(cfg.Redis.Prefix)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client
}

func newKafkaClient(logger *slog.Logger, cfg *config.Config) (*kafka.KafkaClient, error) {
	return kafka.NewKafkaClient(logger, cfg.Kafka.Brokers, cfg.Kafka.ImportGroupID, cfg.Kafka.BatchSize)
}

// O import escreve sempre no Postgres; o cache precisa ser invalidado igual à API.
func newBranchStore(
	logger *slog.Logger,
	readWriteClient *postgres.ReadWriteClient,
	redisClient *redis.RedisClient,
) repositories.BranchStore {
	store := repositories.NewPostgresBranchRepository(readWriteClient)
	return repositories.NewCachedBranchRepository(logger, store, redisClient, "postgres")
}

func newBranchService(
	logger *slog.Logger,
	cfg *config.Config,
	store repositories.BranchStore,
	kafkaClient *kafka.KafkaClient,
) *hierarchy.BranchService {
	publisher := events.NewBranchEventPublisher(logger, kafkaClient, cfg.Kafka.EventsTopic)

	return hierarchy.NewBranchService(logger, store, publisher, hierarchy.Options{
		StrictSingleParent: cfg.Hierarchy.StrictSingleParent,
		MaxClosureSize:     cfg.Hierarchy.MaxClosureSize,
		TraversalTimeout:   cfg.Hierarchy.TraversalTimeout,
		ForestConcurrency:  cfg.Hierarchy.ForestConcurrency,
		ElevatedRoles:      cfg.Hierarchy.Roles(),
	})
}

func newBranchImportConsumer(
	logger *slog.Logger,
	branchService *hierarchy.BranchService,
	store repositories.BranchStore,
) *consumers.BranchImportConsumer {
	return consumers.NewBranchImportConsumer(logger, branchService, store)
}

func startConsumer(
	lc fx.Lifecycle,
	logger *slog.Logger,
	cfg *config.Config,
	kafkaClient *kafka.KafkaClient,
	importConsumer *consumers.BranchImportConsumer,
) {
	consumerCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			topic := cfg.Kafka.ImportTopic

			// Start consumer in background
			go func() {
				if err := importConsumer.Start(consumerCtx, kafkaClient, topic); err != nil {
					logger.Error("Consumer failed", "error", err)
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()

			logger.Info("Shutting down Kafka client...")
			if err := kafkaClient.Close(); err != nil {
				logger.Error("Failed to close Kafka client", "error", err)
				return err
			}
			logger.Info("Kafka client shut down gracefully")
			return nil
		},
	})
}
