package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/findworkai/aigate/internal/config"
	"github.com/findworkai/aigate/internal/constants"
	"github.com/redis/go-redis/v9"
)

// Backend 代表限流存储后端，为注册表中的每个限流器创建独立的存储
type Backend struct {
	kind   string
	client redis.UniversalClient
	prefix string
	owned  bool
}

// NewMemoryBackend 创建进程内存储后端
func NewMemoryBackend() *Backend {
	return &Backend{kind: constants.StoreMemory}
}

// NewRedisBackend 使用已有的 Redis 客户端创建存储后端，客户端由调用方关闭
func NewRedisBackend(client redis.UniversalClient, prefix string) *Backend {
	return &Backend{kind: constants.StoreRedis, client: client, prefix: prefix}
}

// NewBackend 根据配置创建存储后端，Redis 类型会建立连接并检查可用性
func NewBackend(ctx context.Context, cfg *config.StoreConfig) (*Backend, error) {
	if cfg == nil || cfg.Type == "" || cfg.Type == constants.StoreMemory {
		return NewMemoryBackend(), nil
	}
	if cfg.Type != constants.StoreRedis {
		return nil, fmt.Errorf("unknown rate limit store type: %s", cfg.Type)
	}
	if cfg.Redis == nil {
		return nil, fmt.Errorf("rate limit store type 'redis' requires a redis section")
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Redis.Addr,
		Username:    cfg.Redis.Username,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: time.Duration(cfg.Redis.DialTimeout) * time.Millisecond,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis %s: %w", cfg.Redis.Addr, err)
	}

	backend := NewRedisBackend(client, cfg.Redis.KeyPrefix)
	backend.owned = true
	return backend, nil
}

// NewStore 实现 StoreFactory
func (b *Backend) NewStore(opts StoreOptions) (Store, error) {
	switch b.kind {
	case constants.StoreRedis:
		return NewRedisStore(b.client, b.prefix+opts.Name+":")
	default:
		return NewMemoryStore(opts.MaxUniqueTokens, opts.OnEvict)
	}
}

// Type 返回存储类型
func (b *Backend) Type() string {
	return b.kind
}

// Ping 检查存储是否可用
func (b *Backend) Ping(ctx context.Context) error {
	if b.client == nil {
		return nil
	}
	return b.client.Ping(ctx).Err()
}

// Close 关闭自行创建的 Redis 连接
func (b *Backend) Close() error {
	if b.owned && b.client != nil {
		return b.client.Close()
	}
	return nil
}

// OptionsFromConfig 将清理配置转换为注册表的限流器参数模板
func OptionsFromConfig(cleanup *config.CleanupConfig) Options {
	opts := Options{
		DefaultLimit:       constants.DefaultRateLimitLimit,
		CleanupMode:        constants.CleanupProbabilistic,
		CleanupProbability: constants.DefaultCleanupProbability,
		CleanupInterval:    time.Duration(constants.DefaultCleanupInterval) * time.Millisecond,
	}
	if cleanup == nil {
		return opts
	}
	if cleanup.Mode != "" {
		opts.CleanupMode = cleanup.Mode
	}
	if cleanup.Probability != nil {
		opts.CleanupProbability = *cleanup.Probability
	}
	if cleanup.Interval > 0 {
		opts.CleanupInterval = time.Duration(cleanup.Interval) * time.Millisecond
	}
	return opts
}
