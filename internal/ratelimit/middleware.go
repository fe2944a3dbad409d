package ratelimit

import (
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/findworkai/aigate/internal/constants"
	"github.com/findworkai/aigate/internal/metrics"
	"github.com/findworkai/aigate/internal/response"
	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
)

// ContextKeyIdentifier 中间件把限流标识符写入 gin.Context 的键名
const ContextKeyIdentifier = "aigate.ratelimit.identifier"

// MiddlewareConfig 代表限流中间件配置
type MiddlewareConfig struct {
	Forward    string         // 转发服务名称
	Limit      int            // 每个窗口允许的请求数
	Identifier IdentifierFunc // 标识符提取函数，默认按客户端 IP
	FailOpen   bool           // 存储故障时是否放行
	Clock      func() time.Time
	Logger     *logr.Logger
	Metrics    metrics.MetricsCollector
}

// Middleware 代表基于滑动窗口限流器的 gin 中间件
type Middleware struct {
	limiter *Limiter
	config  MiddlewareConfig
}

// NewMiddleware 创建限流中间件
func NewMiddleware(limiter *Limiter, cfg MiddlewareConfig) (*Middleware, error) {
	if limiter == nil {
		return nil, ErrNilLimiter
	}
	if cfg.Limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if cfg.Identifier == nil {
		cfg.Identifier = ClientIP
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		logger := logr.Discard()
		cfg.Logger = &logger
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoopCollector()
	}

	return &Middleware{limiter: limiter, config: cfg}, nil
}

// Limiter 返回中间件使用的限流器
func (m *Middleware) Limiter() *Limiter {
	return m.limiter
}

// Limit 返回每个窗口允许的请求数
func (m *Middleware) Limit() int {
	return m.config.Limit
}

// Handler 返回 gin 中间件函数
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier := m.config.Identifier(c.Request)

		result, err := m.limiter.Check(c.Request.Context(), identifier, m.config.Limit)
		if err != nil {
			m.handleError(c, identifier, err)
			return
		}

		c.Set(ContextKeyIdentifier, identifier)
		writeHeaders(c, result)

		if !result.Allowed {
			m.config.Metrics.RecordRateLimitDecision(m.config.Forward, constants.LimitTypeClient, constants.DecisionRejected)
			m.config.Logger.V(1).Info("request rate limited",
				"forward", m.config.Forward, "identifier", identifier, "limit", result.Limit, "reset", result.Reset)

			c.Header(constants.HeaderRetryAfter, strconv.FormatInt(retryAfterSeconds(result.Reset, m.config.Clock()), 10))
			response.RateLimited(c, map[string]interface{}{
				"type":      constants.LimitTypeClient,
				"limit":     result.Limit,
				"remaining": result.Remaining,
				"reset":     result.Reset.UnixMilli(),
			})
			return
		}

		m.config.Metrics.RecordRateLimitDecision(m.config.Forward, constants.LimitTypeClient, constants.DecisionAllowed)
		c.Next()
	}
}

// handleError 处理限流检查失败：标识符缺失返回 400，存储故障按 FailOpen 放行或返回 503
func (m *Middleware) handleError(c *gin.Context, identifier string, err error) {
	m.config.Metrics.RecordRateLimitDecision(m.config.Forward, constants.LimitTypeClient, constants.DecisionError)

	if errors.Is(err, ErrEmptyIdentifier) {
		response.BadRequest(c, "unable to identify client")
		return
	}

	m.config.Metrics.RecordError(m.config.Forward, constants.ErrorTypeLimiter)
	m.config.Logger.Error(err, "rate limit check failed",
		"forward", m.config.Forward, "identifier", identifier, "failOpen", m.config.FailOpen)

	if m.config.FailOpen {
		c.Set(ContextKeyIdentifier, identifier)
		c.Next()
		return
	}

	response.LimiterUnavailable(c, "rate limiter unavailable", err)
}

// writeHeaders 写入 X-RateLimit-* 响应头，Reset 为 Unix 秒（向上取整）
func writeHeaders(c *gin.Context, result Result) {
	c.Header(constants.HeaderRateLimitLimit, strconv.Itoa(result.Limit))
	c.Header(constants.HeaderRateLimitRemaining, strconv.Itoa(result.Remaining))
	c.Header(constants.HeaderRateLimitReset, strconv.FormatInt(ceilUnix(result.Reset), 10))
}

// ceilUnix 返回不早于 t 的 Unix 秒
func ceilUnix(t time.Time) int64 {
	ms := t.UnixMilli()
	return int64(math.Ceil(float64(ms) / 1000))
}

// retryAfterSeconds 返回距离 reset 的秒数，至少为 1
func retryAfterSeconds(reset, now time.Time) int64 {
	seconds := int64(math.Ceil(reset.Sub(now).Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

// IdentifierFromContext 返回限流中间件解析出的标识符
func IdentifierFromContext(c *gin.Context) string {
	return c.GetString(ContextKeyIdentifier)
}
