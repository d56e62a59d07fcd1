package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient funciona tanto com um nó único quanto com cluster:
// mais de um endereço em addrs ativa o modo cluster do UniversalClient.
type RedisClient struct {
	client            redis.UniversalClient
	defaultTTLSeconds time.Duration
	prefix            string
}

func NewRedisClient(addrs string, poolSize int, defaultTTLSeconds time.Duration) *RedisClient {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: strings.Split(addrs, ","),

		// Pool settings para alta concorrência
		PoolSize:     poolSize,
		MinIdleConns: 10,

		MaxRedirects: 3,

		// Timeouts otimizados para cache
		DialTimeout:  5 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,

		MaxRetries:      3,
		MinRetryBackoff: 50 * time.Millisecond,
		MaxRetryBackoff: 500 * time.Millisecond,
	})

	return &RedisClient{
		client:            client,
		defaultTTLSeconds: defaultTTLSeconds,
	}
}

// WithPrefix devolve uma cópia que prefixa todas as chaves com "<prefix>:".
func (rc *RedisClient) WithPrefix(prefix string) *RedisClient {
	return &RedisClient{
		client:            rc.client,
		defaultTTLSeconds: rc.defaultTTLSeconds,
		prefix:            prefix,
	}
}

func (rc *RedisClient) Key(parts ...string) string {
	key := strings.Join(parts, ":")
	if rc.prefix == "" {
		return key
	}
	return rc.prefix + ":" + key
}

// Generation lê um contador de versão; chave ausente vale 0.
func (rc *RedisClient) Generation(ctx context.Context, key string) (int64, error) {
	value, err := rc.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return value, err
}

func (rc *RedisClient) BumpGeneration(ctx context.Context, key string) (int64, error) {
	return rc.client.Incr(ctx, key).Result()
}

func (rc *RedisClient) SetWithRegistry(ctx context.Context, cacheKey string, cacheValue string, registryKeys []string) error {
	pipe := rc.client.Pipeline()

	// 1. Set do cache principal
	fields := map[string]interface{}{
		"data":      cacheValue,
		"cached_at": time.Now().Unix(),
	}
	pipe.HSet(ctx, cacheKey, fields)
	pipe.Expire(ctx, cacheKey, rc.defaultTTLSeconds)

	// 2. Cada registry aponta para as chaves de cache que dependem dele
	for _, registryKey := range registryKeys {
		pipe.SAdd(ctx, registryKey, cacheKey)
		pipe.Expire(ctx, registryKey, rc.defaultTTLSeconds)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (rc *RedisClient) GetKey(ctx context.Context, key string) (string, bool, error) {
	result := rc.client.HGet(ctx, key, "data")

	// Cache miss
	if errors.Is(result.Err(), redis.Nil) {
		return "", false, nil
	}
	if result.Err() != nil {
		return "", false, result.Err()
	}

	return result.Val(), true, nil
}

// GetMultipleSetMembers une os membros de vários sets (registries).
func (rc *RedisClient) GetMultipleSetMembers(ctx context.Context, setKeys []string) ([]string, error) {
	seen := make(map[string]struct{})
	members := make([]string, 0)

	for _, setKey := range setKeys {
		values, err := rc.client.SMembers(ctx, setKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("smembers %s: %w", setKey, err)
		}
		for _, v := range values {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			members = append(members, v)
		}
	}

	return members, nil
}

// InvalidateRegistries apaga as chaves de cache registradas nos registries e os próprios registries.
func (rc *RedisClient) InvalidateRegistries(ctx context.Context, registryKeys []string) (int, error) {
	if len(registryKeys) == 0 {
		return 0, nil
	}

	cacheKeys, err := rc.GetMultipleSetMembers(ctx, registryKeys)
	if err != nil {
		return 0, err
	}

	keys := append(cacheKeys, registryKeys...)
	if err := rc.InvalidateEntity(ctx, keys); err != nil {
		return 0, err
	}

	return len(cacheKeys), nil
}

// Invalidação em cluster requer cuidado especial: chaves podem estar em slots diferentes
func (rc *RedisClient) InvalidateEntity(ctx context.Context, keys []string) error {
	var errs []string

	for _, key := range keys {
		if err := rc.client.Del(ctx, key).Err(); err != nil {
			errs = append(errs, fmt.Sprintf("key %s: %v", key, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalidation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (rc *RedisClient) HealthCheck(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

func (rc *RedisClient) Close() error {
	return rc.client.Close()
}
