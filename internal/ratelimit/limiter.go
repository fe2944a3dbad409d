package ratelimit

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/findworkai/aigate/internal/constants"
	"github.com/findworkai/aigate/internal/metrics"
	"github.com/go-logr/logr"
)

// Options 代表滑动窗口限流器的构造参数
type Options struct {
	Interval           time.Duration // 窗口长度，构造后不可变
	MaxUniqueTokens    int           // 标识符数量上限，仅用于签名和存储容量
	DefaultLimit       int           // CheckDefault 使用的限额
	CleanupMode        string        // probabilistic 或 background
	CleanupProbability float64       // 每次检查触发全量清理的概率
	CleanupInterval    time.Duration // 后台清理周期

	Clock   func() time.Time // 时钟，测试时可替换
	Random  func() float64   // [0,1) 随机源，测试时可替换
	Logger  *logr.Logger
	Metrics metrics.MetricsCollector
}

// Signature 代表限流器在注册表中的唯一签名
type Signature struct {
	Interval        time.Duration
	MaxUniqueTokens int
}

// String 返回形如 "60000:500" 的签名字符串
func (s Signature) String() string {
	return fmt.Sprintf("%d:%d", s.Interval.Milliseconds(), s.MaxUniqueTokens)
}

// Limiter 代表按标识符计数的滑动窗口限流器
type Limiter struct {
	name         string
	signature    Signature
	interval     time.Duration
	intervalMs   int64
	defaultLimit int
	store        Store

	cleanupMode        string
	cleanupProbability float64
	cleanupInterval    time.Duration

	clock   func() time.Time
	random  func() float64
	logger  *logr.Logger
	metrics metrics.MetricsCollector

	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewLimiter 使用给定存储创建限流器，后台清理模式下会启动清理协程
func NewLimiter(store Store, opts Options) (*Limiter, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if opts.Interval.Milliseconds() <= 0 {
		return nil, ErrInvalidInterval
	}
	if opts.DefaultLimit < 0 {
		return nil, ErrInvalidLimit
	}

	sig := Signature{Interval: opts.Interval, MaxUniqueTokens: opts.MaxUniqueTokens}
	l := &Limiter{
		name:               sig.String(),
		signature:          sig,
		interval:           opts.Interval,
		intervalMs:         opts.Interval.Milliseconds(),
		defaultLimit:       opts.DefaultLimit,
		store:              store,
		cleanupMode:        opts.CleanupMode,
		cleanupProbability: opts.CleanupProbability,
		cleanupInterval:    opts.CleanupInterval,
		clock:              opts.Clock,
		random:             opts.Random,
		logger:             opts.Logger,
		metrics:            opts.Metrics,
		stopCh:             make(chan struct{}),
	}

	if l.cleanupMode == "" {
		l.cleanupMode = constants.CleanupProbabilistic
	}
	if l.clock == nil {
		l.clock = time.Now
	}
	if l.random == nil {
		l.random = rand.Float64
	}
	if l.logger == nil {
		logger := logr.Discard()
		l.logger = &logger
	}
	if l.metrics == nil {
		l.metrics = metrics.NewNoopCollector()
	}

	if l.cleanupMode == constants.CleanupBackground {
		if l.cleanupInterval <= 0 {
			l.cleanupInterval = time.Duration(constants.DefaultCleanupInterval) * time.Millisecond
		}
		l.wg.Add(1)
		go l.runSweeper()
	}

	return l, nil
}

// Check 判断 identifier 在当前窗口内是否还能通过 limit 次以内的请求
// 被拒绝的请求不消耗配额；identifier 为空或 limit 非正数时返回错误
func (l *Limiter) Check(ctx context.Context, identifier string, limit int) (Result, error) {
	if identifier == "" {
		return Result{}, ErrEmptyIdentifier
	}
	if limit <= 0 {
		return Result{}, ErrInvalidLimit
	}

	now := l.clock()
	nowMs := now.UnixMilli()

	var d decision
	err := l.store.Update(ctx, identifier, l.interval, func(window []int64) []int64 {
		next, res := slide(window, nowMs, l.intervalMs, limit)
		d = res
		return next
	})
	if err != nil {
		return Result{}, fmt.Errorf("rate limit store %s: %w", l.store.Type(), err)
	}

	l.maybeSweep(ctx)

	return Result{
		Allowed:   d.allowed,
		Limit:     limit,
		Remaining: d.remaining,
		Reset:     time.UnixMilli(d.reset),
	}, nil
}

// CheckDefault 使用默认限额执行 Check
func (l *Limiter) CheckDefault(ctx context.Context, identifier string) (Result, error) {
	return l.Check(ctx, identifier, l.defaultLimit)
}

// Sweep 立即执行一次全量清理，返回被移除的标识符数量
func (l *Limiter) Sweep(ctx context.Context) (int, error) {
	start := time.Now()
	cutoff := l.clock().UnixMilli() - l.intervalMs

	removed, err := l.store.Sweep(ctx, cutoff)
	if err != nil {
		return removed, fmt.Errorf("rate limit sweep %s: %w", l.name, err)
	}

	l.metrics.RecordRateLimitSweep(l.name, removed, time.Since(start))
	if size, err := l.store.Len(ctx); err == nil {
		l.metrics.SetRateLimitIdentifiers(l.name, size)
	}
	l.logger.V(1).Info("rate limit sweep completed", "limiter", l.name, "removed", removed)

	return removed, nil
}

// Reset 清除指定标识符的窗口
func (l *Limiter) Reset(ctx context.Context, identifier string) error {
	if identifier == "" {
		return ErrEmptyIdentifier
	}
	return l.store.Delete(ctx, identifier)
}

// Size 返回当前跟踪的标识符数量
func (l *Limiter) Size(ctx context.Context) (int, error) {
	return l.store.Len(ctx)
}

// Name 返回限流器名称（即签名字符串）
func (l *Limiter) Name() string {
	return l.name
}

// Signature 返回限流器签名
func (l *Limiter) Signature() Signature {
	return l.signature
}

// Interval 返回窗口长度
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// DefaultLimit 返回默认限额
func (l *Limiter) DefaultLimit() int {
	return l.defaultLimit
}

// StoreType 返回存储类型
func (l *Limiter) StoreType() string {
	return l.store.Type()
}

// CleanupMode 返回清理模式
func (l *Limiter) CleanupMode() string {
	return l.cleanupMode
}

// Close 停止后台清理并关闭存储，可重复调用
func (l *Limiter) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.stopCh)
		l.wg.Wait()
		err = l.store.Close()
	})
	return err
}

// maybeSweep 以 cleanupProbability 的概率在请求路径上执行全量清理
func (l *Limiter) maybeSweep(ctx context.Context) {
	if l.cleanupMode != constants.CleanupProbabilistic || l.cleanupProbability <= 0 {
		return
	}
	if l.random() >= l.cleanupProbability {
		return
	}
	if _, err := l.Sweep(ctx); err != nil {
		l.logger.Error(err, "probabilistic rate limit sweep failed", "limiter", l.name)
	}
}

// runSweeper 后台定时清理
func (l *Limiter) runSweeper() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.cleanupInterval)
			if _, err := l.Sweep(ctx); err != nil {
				l.logger.Error(err, "background rate limit sweep failed", "limiter", l.name)
			}
			cancel()
		}
	}
}
