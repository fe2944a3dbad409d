package ratelimit

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
)

// 令牌桶参数错误定义
var (
	ErrInvalidPerSecond = errors.New("perSecond must be greater than 0")
	ErrInvalidBurst     = errors.New("burst must be greater than 0")
)

// UpstreamLimiter 代表上游级别的令牌桶限流器，保护单个 AI 后端的整体请求速率
type UpstreamLimiter struct {
	name    string
	limiter *rate.Limiter
}

// NewUpstreamLimiter 创建新的上游限流器实例
func NewUpstreamLimiter(name string, perSecond float64, burst int) (*UpstreamLimiter, error) {
	if perSecond <= 0 {
		return nil, ErrInvalidPerSecond
	}
	if burst <= 0 {
		return nil, ErrInvalidBurst
	}

	return &UpstreamLimiter{
		name:    name,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}, nil
}

// Allow 检查上游是否还有可用令牌，未配置（nil）时总是放行
func (l *UpstreamLimiter) Allow() bool {
	if l == nil {
		return true
	}
	return l.limiter.Allow()
}

// Wait 阻塞直到获得令牌或 ctx 结束
func (l *UpstreamLimiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}

// Name 返回上游名称
func (l *UpstreamLimiter) Name() string {
	return l.name
}

// Type 获取限流器类型
func (l *UpstreamLimiter) Type() string {
	return "upstream_token_bucket"
}
