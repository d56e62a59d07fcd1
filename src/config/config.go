package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"orghierarchy/src/domain"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"
)

type DatabaseOptions struct {
	Host           string `env:"DB_HOST" envDefault:"localhost"`
	ReadHost       string `env:"DB_READ_HOST"`
	Port           string `env:"DB_PORT" envDefault:"5432"`
	ReadPort       string `env:"DB_READ_PORT"`
	Name           string `env:"DB_NAME" envDefault:"orghierarchy"`
	User           string `env:"DB_USER" envDefault:"postgres"`
	Password       string `env:"DB_PASSWORD" envDefault:"postgres"`
	MaxConnections int    `env:"DB_MAX_POOL_CONNECTIONS" envDefault:"25"`
}

// MigrationURL usa o esquema registrado pelo driver pgx/v5 do golang-migrate.
func (d DatabaseOptions) MigrationURL() string {
	return fmt.Sprintf("pgx5://%s:%s@%s:%s/%s?sslmode=disable", d.User, d.Password, d.Host, d.Port, d.Name)
}

func (d DatabaseOptions) ReadReplica() (string, string) {
	host, port := d.ReadHost, d.ReadPort
	if host == "" {
		host = d.Host
	}
	if port == "" {
		port = d.Port
	}
	return host, port
}

type MongoOptions struct {
	URI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	Database string `env:"MONGO_DATABASE" envDefault:"orghierarchy"`
}

type RedisOptions struct {
	Hosts    string        `env:"REDIS_HOSTS"`
	PoolSize int           `env:"REDIS_POOL_SIZE" envDefault:"50"`
	TTL      time.Duration `env:"REDIS_DEFAULT_TTL" envDefault:"120s"`
	Prefix   string        `env:"REDIS_KEY_PREFIX" envDefault:"orghierarchy"`
}

func (r RedisOptions) Enabled() bool {
	return strings.TrimSpace(r.Hosts) != ""
}

type KafkaOptions struct {
	Brokers       string `env:"KAFKA_BROKERS"`
	BatchSize     int    `env:"KAFKA_BATCH_SIZE" envDefault:"100"`
	EventsTopic   string `env:"KAFKA_BRANCH_EVENTS_TOPIC" envDefault:"branch-events"`
	ImportTopic   string `env:"KAFKA_BRANCH_IMPORT_TOPIC" envDefault:"branch-import"`
	ImportGroupID string `env:"KAFKA_BRANCH_IMPORT_GROUP_ID" envDefault:"branch-import-consumer"`
	EventsGroupID string `env:"KAFKA_BRANCH_EVENTS_GROUP_ID" envDefault:"branch-api"`
}

func (k KafkaOptions) Enabled() bool {
	return strings.TrimSpace(k.Brokers) != ""
}

type HTTPOptions struct {
	Port           int           `env:"SERVER_PORT" envDefault:"8888"`
	ReadTimeout    time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout   time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"10s"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

type AuthOptions struct {
	JWTSecret string `env:"JWT_SECRET"`
}

type HierarchyOptions struct {
	StoreDriver        string        `env:"STORE_DRIVER" envDefault:"postgres"`
	StrictSingleParent bool          `env:"STRICT_SINGLE_PARENT" envDefault:"false"`
	MaxClosureSize     int           `env:"MAX_CLOSURE_SIZE" envDefault:"5000"`
	TraversalTimeout   time.Duration `env:"TRAVERSAL_TIMEOUT" envDefault:"5s"`
	ForestConcurrency  int           `env:"FOREST_CONCURRENCY" envDefault:"4"`
	ElevatedRoles      []string      `env:"ELEVATED_ROLES" envSeparator:"," envDefault:"admin,super_admin"`
}

func (h HierarchyOptions) Roles() []domain.Role {
	return domain.ParseRoles(h.ElevatedRoles)
}

type Config struct {
	Database  DatabaseOptions
	Mongo     MongoOptions
	Redis     RedisOptions
	Kafka     KafkaOptions
	HTTP      HTTPOptions
	Auth      AuthOptions
	Hierarchy HierarchyOptions
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load lê .env/.env.local quando existirem e depois as variáveis de ambiente.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env", ".env.local"}
	}

	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return nil, fmt.Errorf("config.Load - failed to load env files: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config.Load - failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Hierarchy.StoreDriver {
	case StoreDriverPostgres, StoreDriverMongo, StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be one of postgres, mongo, memory (got %q)", c.Hierarchy.StoreDriver))
	}

	if c.Hierarchy.MaxClosureSize <= 0 {
		errs = append(errs, errors.New("MAX_CLOSURE_SIZE must be positive"))
	}

	if c.Hierarchy.ForestConcurrency <= 0 {
		errs = append(errs, errors.New("FOREST_CONCURRENCY must be positive"))
	}

	if c.Kafka.Enabled() && c.Kafka.BatchSize <= 0 {
		errs = append(errs, errors.New("KAFKA_BATCH_SIZE must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config.Validate - invalid configuration: %w", errors.Join(errs...))
	}

	return nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
