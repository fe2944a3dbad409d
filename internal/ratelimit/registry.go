package ratelimit

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/findworkai/aigate/internal/metrics"
	"github.com/go-logr/logr"
)

// Registry 代表限流器注册表，按 (interval, maxUniqueTokens) 签名复用限流器实例
// 由调用方创建并持有，Close 时释放全部限流器
type Registry struct {
	mu       sync.Mutex
	newStore StoreFactory
	template Options
	limiters map[Signature]*Limiter
	closed   bool
}

// NewRegistry 创建注册表
// newStore: 为每个新签名创建存储
// template: 新限流器共用的参数（清理策略、默认限额、日志、指标等），Interval 与 MaxUniqueTokens 会被忽略
func NewRegistry(newStore StoreFactory, template Options) *Registry {
	if template.Logger == nil {
		logger := logr.Discard()
		template.Logger = &logger
	}
	if template.Metrics == nil {
		template.Metrics = metrics.NewNoopCollector()
	}

	return &Registry{
		newStore: newStore,
		template: template,
		limiters: make(map[Signature]*Limiter),
	}
}

// Get 返回签名对应的限流器，首次调用时创建，之后返回同一实例
func (r *Registry) Get(interval time.Duration, maxUniqueTokens int) (*Limiter, error) {
	interval = interval.Truncate(time.Millisecond)
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	if maxUniqueTokens < 0 {
		return nil, fmt.Errorf("%w: maxUniqueTokens %d", ErrInvalidLimit, maxUniqueTokens)
	}
	if r.newStore == nil {
		return nil, ErrNilStore
	}

	sig := Signature{Interval: interval, MaxUniqueTokens: maxUniqueTokens}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	if limiter, ok := r.limiters[sig]; ok {
		return limiter, nil
	}

	name := sig.String()
	logger := r.template.Logger.WithValues("limiter", name)
	collector := r.template.Metrics

	store, err := r.newStore(StoreOptions{
		Name:            name,
		Interval:        interval,
		MaxUniqueTokens: maxUniqueTokens,
		OnEvict: func(key string) {
			collector.RecordRateLimitEviction(name)
			logger.V(2).Info("rate window evicted by unique identifier cap", "identifier", key)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit store for %s: %w", name, err)
	}

	opts := r.template
	opts.Interval = interval
	opts.MaxUniqueTokens = maxUniqueTokens
	opts.Logger = &logger

	limiter, err := NewLimiter(store, opts)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	r.limiters[sig] = limiter
	logger.Info("rate limiter created", "store", store.Type(), "cleanup", limiter.CleanupMode())

	return limiter, nil
}

// Lookup 按名称查找已创建的限流器
func (r *Registry) Lookup(name string) (*Limiter, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for sig, limiter := range r.limiters {
		if sig.String() == name {
			return limiter, true
		}
	}
	return nil, false
}

// List 返回全部限流器的快照，按名称排序
func (r *Registry) List() []*Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	limiters := make([]*Limiter, 0, len(r.limiters))
	for _, limiter := range r.limiters {
		limiters = append(limiters, limiter)
	}
	sort.Slice(limiters, func(i, j int) bool {
		return limiters[i].Name() < limiters[j].Name()
	})
	return limiters
}

// Len 返回已创建的限流器数量
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.limiters)
}

// Close 关闭全部限流器，之后 Get 返回 ErrRegistryClosed
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var firstErr error
	for sig, limiter := range r.limiters {
		if err := limiter.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close limiter %s: %w", sig, err)
		}
	}
	r.limiters = make(map[Signature]*Limiter)

	return firstErr
}
