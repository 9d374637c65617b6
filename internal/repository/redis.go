package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/solscope/phoenixscope/internal/config"
)

type RedisClient struct {
	Client *redis.Client
}

func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address is empty")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{Client: rdb}, nil
}

// RedisCursorRepo persists the last fully ingested signature so a
// restarted process resumes the walk instead of rescanning history.
type RedisCursorRepo struct {
	client  *RedisClient
	program string
}

func NewRedisCursorRepo(client *RedisClient, programID string) *RedisCursorRepo {
	return &RedisCursorRepo{client: client, program: programID}
}

func (r *RedisCursorRepo) key() string {
	return fmt.Sprintf("ingest:cursor:%s", r.program)
}

func (r *RedisCursorRepo) Get(ctx context.Context) (string, error) {
	val, err := r.client.Client.Get(ctx, r.key()).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (r *RedisCursorRepo) Set(ctx context.Context, signature string) error {
	return r.client.Client.Set(ctx, r.key(), signature, 0).Err()
}

// MemoryCursorRepo is the fallback when Redis is not configured. The
// cursor dies with the process, which means a full rescan on restart —
// acceptable for development, logged at boot.
type MemoryCursorRepo struct {
	mu        sync.Mutex
	signature string
}

func NewMemoryCursorRepo() *MemoryCursorRepo {
	return &MemoryCursorRepo{}
}

func (r *MemoryCursorRepo) Get(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.signature, nil
}

func (r *MemoryCursorRepo) Set(ctx context.Context, signature string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signature = signature
	return nil
}
