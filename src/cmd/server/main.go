package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"go.uber.org/fx"

	httpadapter "orghierarchy/src/adapters/http"
	"orghierarchy/src/config"
	"orghierarchy/src/infra/kafka"
	"orghierarchy/src/infra/mongo"
	"orghierarchy/src/infra/postgres"
	"orghierarchy/src/infra/redis"
	"orghierarchy/src/repositories"
	"orghierarchy/src/services/events"
	"orghierarchy/src/services/hierarchy"
)

func main() {
	// Configurar logger
	log.SetOutput(os.Stdout)
	log.Println("Starting branch hierarchy API with Uber Fx...")

	app := fx.New(
		// Providers
		fx.Provide(
			newConfig,
			newLogger,
			newRedisClient,
			newBranchStore,
			newEventPublisher,
			newBranchService,
			newTokenParser,
			newServer,
		),

		// Invocations
		fx.Invoke(registerServerHooks),
	)

	// Start the application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	// Wait for app to exit gracefully
	<-app.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Printf("Failed to stop application gracefully: %v", err)
	}
}

func newConfig() (*config.Config, error) {
	return config.Load()
}

func newLogger(cfg *config.Config) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

// newRedisClient devolve nil quando REDIS_HOSTS não está definido; o cache vira passthrough.
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

// newBranchStore escolhe o backend pelo STORE_DRIVER e o decora com o cache de subárvores.
func newBranchStore(
	lc fx.Lifecycle,
	cfg *config.Config,
	logger *slog.Logger,
	redisClient *redis.RedisClient,
) (repositories.BranchStore, error) {
	var store repositories.BranchStore

	switch cfg.Hierarchy.StoreDriver {
	case config.StoreDriverPostgres:
		readHost, readPort := cfg.Database.ReadReplica()
		readWriteClient, err := postgres.NewReadWriteClient(
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
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				readWriteClient.Close()
				return nil
			},
		})
		store = repositories.NewPostgresBranchRepository(readWriteClient)

	case config.StoreDriverMongo:
		client, err := mongo.NewMongoClient(cfg.Mongo.URI, uint64(cfg.Database.MaxConnections))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return client.Disconnect(ctx)
			},
		})

		mongoStore := repositories.NewMongoBranchRepository(client.Database(cfg.Mongo.Database))
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		store = mongoStore

	default:
		logger.Warn("Using in-memory branch store, data is lost on restart")
		store = repositories.NewMemoryBranchRepository()
	}

	return repositories.NewCachedBranchRepository(logger, store, redisClient, cfg.Hierarchy.StoreDriver), nil
}

// newEventPublisher devolve nil sem KAFKA_BROKERS; o serviço então descarta os eventos.
func newEventPublisher(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (hierarchy.EventPublisher, error) {
	if !cfg.Kafka.Enabled() {
		logger.Info("Kafka not configured, branch events will not be published")
		return nil, nil
	}

	kafkaClient, err := kafka.NewKafkaClient(logger, cfg.Kafka.Brokers, cfg.Kafka.EventsGroupID, cfg.Kafka.BatchSize)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return kafkaClient.Close()
		},
	})

	return events.NewBranchEventPublisher(logger, kafkaClient, cfg.Kafka.EventsTopic), nil
}

func newBranchService(
	logger *slog.Logger,
	cfg *config.Config,
	store repositories.BranchStore,
	publisher hierarchy.EventPublisher,
) *hierarchy.BranchService {
	return hierarchy.NewBranchService(logger, store, publisher, hierarchy.Options{
		StrictSingleParent: cfg.Hierarchy.StrictSingleParent,
		MaxClosureSize:     cfg.Hierarchy.MaxClosureSize,
		TraversalTimeout:   cfg.Hierarchy.TraversalTimeout,
		ForestConcurrency:  cfg.Hierarchy.ForestConcurrency,
		ElevatedRoles:      cfg.Hierarchy.Roles(),
	})
}

func newTokenParser(cfg *config.Config) (*httpadapter.TokenParser, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required to serve the API")
	}
	return httpadapter.NewTokenParser(cfg.Auth.JWTSecret), nil
}

func newServer(
	logger *slog.Logger,
	cfg *config.Config,
	tokenParser *httpadapter.TokenParser,
	branchService *hierarchy.BranchService,
) *httpadapter.Server {
	return httpadapter.NewServer(logger, httpadapter.ServerOptions{
		Port:           cfg.HTTP.Port,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}, tokenParser, branchService)
}

// registerServerHooks registers lifecycle hooks for the HTTP server
func registerServerHooks(lc fx.Lifecycle, logger *slog.Logger, srv *httpadapter.Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Start server in a separate goroutine
			go func() {
				if err := srv.Start(); err != nil && err != http.ErrServerClosed {
					logger.Error("Server failed", "error", err)
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			// Create timeout context for graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Server forced to shutdown", "error", err)
				return err
			}
			logger.Info("Server exited gracefully")
			return nil
		},
	})
}
