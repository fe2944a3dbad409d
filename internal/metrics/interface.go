package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector 代表指标收集器接口，定义统一的指标收集行为
type MetricsCollector interface {
	// HTTP 服务器指标收集方法

	// RecordResponse 记录 HTTP 响应
	// forwardName: 转发服务名称
	// method: HTTP 方法
	// path: 请求路径
	// statusCode: HTTP 状态码
	// duration: 请求处理时间
	// requestSize: 请求体大小（字节）
	// responseSize: 响应体大小（字节）
	RecordResponse(forwardName, method, path string, statusCode int, duration time.Duration, requestSize, responseSize int64)

	// RecordError 记录 HTTP 处理错误
	RecordError(forwardName, errorType string)

	// 上游服务指标收集方法

	// RecordUpstreamResponse 记录上游响应
	RecordUpstreamResponse(upstreamGroup, upstreamName, method string, statusCode int, duration time.Duration)

	// RecordUpstreamError 记录上游错误
	RecordUpstreamError(upstreamGroup, upstreamName, errorType string)

	// 断路器指标收集方法

	// RecordCircuitBreakerState 记录断路器状态（0=关闭, 1=半开, 2=开启）
	RecordCircuitBreakerState(upstreamName string, state int)

	// RecordCircuitBreakerStateChange 记录断路器状态变化
	RecordCircuitBreakerStateChange(upstreamName, fromState, toState string)

	// RecordLoadBalancerSelection 记录负载均衡器选择
	RecordLoadBalancerSelection(upstreamGroup, upstreamName, balancerType string)

	// 限流指标收集方法

	// RecordRateLimitDecision 记录一次限流决策
	// forwardName: 转发服务名称
	// limitType: 限流类型（client, upstream）
	// decision: 决策结果（allowed, rejected, error）
	RecordRateLimitDecision(forwardName, limitType, decision string)

	// RecordRateLimitEviction 记录因标识符数量上限被淘汰的窗口
	RecordRateLimitEviction(limiterName string)

	// RecordRateLimitSweep 记录一次全量清理
	// removed: 被删除的标识符数量
	RecordRateLimitSweep(limiterName string, removed int, duration time.Duration)

	// SetRateLimitIdentifiers 设置当前跟踪的标识符数量
	SetRateLimitIdentifiers(limiterName string, count int)

	// 工具方法

	// GetRegistry 获取 Prometheus 注册器，用于与 orbit 框架集成
	GetRegistry() *prometheus.Registry

	// Name 获取收集器名称
	Name() string

	// Close 关闭收集器并清理资源
	Close() error
}

// MetricsCollectorFactory 代表指标收集器工厂接口
type MetricsCollectorFactory interface {
	// Create 根据配置创建指标收集器
	Create(config *Config) (MetricsCollector, error)
}

// Config 代表指标收集器配置
type Config struct {
	// Type 指标收集器类型（prometheus, noop）
	Type string `yaml:"type" json:"type"`

	// Enabled 是否启用指标收集
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Namespace 指标命名空间前缀
	Namespace string `yaml:"namespace" json:"namespace"`

	// Subsystem 指标子系统名称
	Subsystem string `yaml:"subsystem" json:"subsystem"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Type:      MetricsTypePrometheus,
		Enabled:   true,
		Namespace: MetricsNamespace,
	}
}
