package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/findworkai/aigate/internal/constants"
	"github.com/redis/go-redis/v9"
)

// redisScanCount 每次 SCAN 请求的键数量提示
const redisScanCount = 256

// RedisStore 代表基于 Redis 有序集合的窗口存储，多个网关实例共享同一份计数
// 每个标识符对应一个 ZSET，score 与 member 均来自接受请求的毫秒时间戳
type RedisStore struct {
	client     redis.UniversalClient
	prefix     string
	maxRetries int
}

// NewRedisStore 创建 Redis 存储，prefix 用于隔离不同限流器的键空间
// client 的生命周期由调用方管理
func NewRedisStore(client redis.UniversalClient, prefix string) (*RedisStore, error) {
	if client == nil {
		return nil, ErrNilStore
	}
	return &RedisStore{
		client:     client,
		prefix:     prefix,
		maxRetries: constants.DefaultRedisMaxTxRetries,
	}, nil
}

// key 将标识符映射为定长的 Redis 键
func (s *RedisStore) key(identifier string) string {
	return s.prefix + strconv.FormatUint(xxhash.Sum64String(identifier), 16)
}

// Update 使用 WATCH/MULTI 乐观事务读取、计算并整体重写有序集合，冲突时有限次重试
func (s *RedisStore) Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) error {
	rkey := s.key(key)

	txf := func(tx *redis.Tx) error {
		members, err := tx.ZRangeWithScores(ctx, rkey, 0, -1).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		current := make([]int64, 0, len(members))
		for _, m := range members {
			current = append(current, int64(m.Score))
		}

		next := fn(current)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, rkey)
			if len(next) == 0 {
				return nil
			}
			zs := make([]redis.Z, len(next))
			for i, ts := range next {
				// 同一毫秒内的多次请求需要不同的 member
				zs[i] = redis.Z{Score: float64(ts), Member: strconv.FormatInt(ts, 10) + ":" + strconv.Itoa(i)}
			}
			pipe.ZAdd(ctx, rkey, zs...)
			pipe.PExpire(ctx, rkey, ttl)
			return nil
		})
		return err
	}

	for i := 0; i < s.maxRetries; i++ {
		err := s.client.Watch(ctx, txf, rkey)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}

	return ErrTxConflict
}

// Sweep 扫描本存储前缀下的全部键，删除 <= cutoff 的成员，Redis 会自动删除空集合
func (s *RedisStore) Sweep(ctx context.Context, cutoff int64) (int, error) {
	removed := 0
	upper := strconv.FormatInt(cutoff, 10)

	keys, err := s.scanKeys(ctx)
	if err != nil {
		return 0, err
	}

	for _, rkey := range keys {
		var card *redis.IntCmd
		_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.ZRemRangeByScore(ctx, rkey, "-inf", upper)
			card = pipe.ZCard(ctx, rkey)
			return nil
		})
		if err != nil {
			return removed, err
		}
		if card.Val() == 0 {
			removed++
		}
	}

	return removed, nil
}

// Delete 删除指定标识符
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

// Len 统计本存储前缀下的键数量
func (s *RedisStore) Len(ctx context.Context) (int, error) {
	keys, err := s.scanKeys(ctx)
	return len(keys), err
}

// scanKeys 遍历本存储前缀下的键，SCAN 在 rehash 期间可能重复返回同一个键，这里按键去重
func (s *RedisStore) scanKeys(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	keys := make([]string, 0)

	iter := s.client.Scan(ctx, 0, s.prefix+"*", redisScanCount).Iterator()
	for iter.Next(ctx) {
		rkey := iter.Val()
		if _, ok := seen[rkey]; ok {
			continue
		}
		seen[rkey] = struct{}{}
		keys = append(keys, rkey)
	}

	return keys, iter.Err()
}

// Type 返回存储类型
func (s *RedisStore) Type() string {
	return constants.StoreRedis
}

// Close 不关闭共享的客户端
func (s *RedisStore) Close() error {
	return nil
}
