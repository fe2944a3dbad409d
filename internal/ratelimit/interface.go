package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/findworkai/aigate/internal/constants"
)

// 限流相关错误定义
var (
	ErrEmptyIdentifier = errors.New(constants.ErrMsgEmptyIdentifier)
	ErrInvalidLimit    = errors.New(constants.ErrMsgInvalidLimit)
	ErrInvalidInterval = errors.New(constants.ErrMsgInvalidInterval)
	ErrNilStore        = errors.New(constants.ErrMsgNilStore)
	ErrNilLimiter      = errors.New("rate limiter cannot be nil")
	ErrStoreClosed     = errors.New(constants.ErrMsgStoreClosed)
	ErrRegistryClosed  = errors.New(constants.ErrMsgRegistryClosed)
	ErrTxConflict      = errors.New(constants.ErrMsgTxConflict)
)

// Result 代表一次限流检查的结果
type Result struct {
	Allowed   bool      // 是否放行
	Limit     int       // 本次检查使用的窗口限额
	Remaining int       // 窗口内剩余可用次数
	Reset     time.Time // 配额恢复的时间点（毫秒精度）
}

// UpdateFunc 接收标识符当前的时间戳序列（毫秒，按时间升序），返回需要写回的新序列
// 返回空序列表示删除该标识符
type UpdateFunc func(window []int64) []int64

// Store 代表滑动窗口的存储后端
type Store interface {
	// Update 原子地读取 key 对应的序列，调用 fn 并写回结果，ttl 为存储端的过期提示
	Update(ctx context.Context, key string, ttl time.Duration, fn UpdateFunc) error

	// Sweep 删除所有 <= cutoff 的时间戳，并移除因此变为空的标识符，返回被移除的标识符数量
	Sweep(ctx context.Context, cutoff int64) (int, error)

	// Delete 删除指定标识符的窗口
	Delete(ctx context.Context, key string) error

	// Len 返回当前保存的标识符数量
	Len(ctx context.Context) (int, error)

	// Type 返回存储类型
	Type() string

	// Close 释放存储资源
	Close() error
}

// StoreOptions 代表创建单个限流器存储时的参数
type StoreOptions struct {
	Name            string        // 限流器名称，用于指标和键前缀
	Interval        time.Duration // 窗口长度
	MaxUniqueTokens int           // 标识符数量上限，0 表示不限制
	OnEvict         func(key string)
}

// StoreFactory 为一个限流器签名创建存储
type StoreFactory func(opts StoreOptions) (Store, error)
