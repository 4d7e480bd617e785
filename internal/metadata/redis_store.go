package metadata

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection settings for the metadata store.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// mergeScript sets hash fields only when the record already exists.
var mergeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV))
return 1
`)

// RedisStore implements Store with one hash per record.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, cfg.Prefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "product"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// BuildKey returns the hash key for a record.
func (s *RedisStore) BuildKey(key Key) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, key.PartitionKey, key.RowKey)
}

// Merge runs the merge script; a zero reply means the record is absent.
func (s *RedisStore) Merge(ctx context.Context, key Key, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}

	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}

	n, err := mergeScript.Run(ctx, s.client, []string{s.BuildKey(key)}, args...).Int()
	if err != nil {
		return fmt.Errorf("failed to merge record: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%s", ErrRecordNotFound, key.PartitionKey, key.RowKey)
	}

	return nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
