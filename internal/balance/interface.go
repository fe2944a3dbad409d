package balance

import (
	"context"
	"errors"

	"github.com/findworkai/aigate/internal/auth"
	"github.com/findworkai/aigate/internal/breaker"
	"github.com/findworkai/aigate/internal/config"
	"github.com/findworkai/aigate/internal/headers"
	"github.com/findworkai/aigate/internal/ratelimit"
)

// 负载均衡相关错误定义
var (
	ErrNoAvailableUpstream = errors.New("no available upstream")
	ErrUnknownStrategy     = errors.New("unknown load balance strategy")
	ErrEmptyUpstreams      = errors.New("upstreams cannot be empty")
)

// Upstream 代表一个上游 AI 后端实例及其保护组件
type Upstream struct {
	Name          string                     // 上游服务名称
	URL           string                     // 上游服务 URL
	Weight        int                        // 权重
	Config        *config.UpstreamConfig     // 上游服务配置
	Authenticator auth.Authenticator         // 上游认证器
	Breaker       breaker.CircuitBreaker     // 上游熔断器
	RateLimiter   *ratelimit.UpstreamLimiter // 上游令牌桶，nil 表示不限流
	Headers       *headers.Rewriter          // 头部改写规则，nil 表示不改写
}

// LoadBalancer 代表负载均衡器接口，定义选择上游服务的行为
type LoadBalancer interface {
	// Select 根据负载均衡策略选择一个上游服务
	Select(ctx context.Context, upstreams []Upstream) (Upstream, error)

	// Type 获取负载均衡器类型
	Type() string
}

type identifierKey struct{}

// WithIdentifier 把限流标识符放入 context，供哈希策略使用
func WithIdentifier(ctx context.Context, identifier string) context.Context {
	return context.WithValue(ctx, identifierKey{}, identifier)
}

// IdentifierFromContext 取出 WithIdentifier 放入的标识符
func IdentifierFromContext(ctx context.Context) (string, bool) {
	identifier, ok := ctx.Value(identifierKey{}).(string)
	return identifier, ok && identifier != ""
}
