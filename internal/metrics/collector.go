package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// 默认的耗时分布桶（秒），AI 生成请求通常耗时较长
var durationBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// prometheusCollector 基于 Prometheus 的指标收集器实现
type prometheusCollector struct {
	name     string
	registry *prometheus.Registry
	config   *Config

	// HTTP 服务器指标
	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	httpRequestSizeBytes  *prometheus.HistogramVec
	httpResponseSizeBytes *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec

	// 上游服务指标
	upstreamRequestsTotal   *prometheus.CounterVec
	upstreamRequestDuration *prometheus.HistogramVec
	upstreamErrorsTotal     *prometheus.CounterVec

	// 断路器指标
	circuitBreakerState        *prometheus.GaugeVec
	circuitBreakerStateChanges *prometheus.CounterVec

	// 负载均衡器指标
	loadBalancerSelectionsTotal *prometheus.CounterVec

	// 限流指标
	rateLimitDecisionsTotal *prometheus.CounterVec
	rateLimitEvictionsTotal *prometheus.CounterVec
	rateLimitSweepsTotal    *prometheus.CounterVec
	rateLimitSweptTotal     *prometheus.CounterVec
	rateLimitSweepDuration  *prometheus.HistogramVec
	rateLimitIdentifiers    *prometheus.GaugeVec
}

// NewPrometheusCollectorWithRegistry 创建使用指定注册器的 Prometheus 指标收集器实例
func NewPrometheusCollectorWithRegistry(config *Config, registry *prometheus.Registry) (MetricsCollector, error) {
	if config == nil {
		return nil, ErrNilConfig
	}
	if registry == nil {
		return nil, ErrNilRegistry
	}

	collector := &prometheusCollector{
		name:     MetricsTypePrometheus,
		registry: registry,
		config:   config,
	}

	if err := collector.initMetrics(); err != nil {
		return nil, err
	}

	return collector, nil
}

// initMetrics 初始化并注册所有 Prometheus 指标
func (c *prometheusCollector) initMetrics() error {
	// 构建指标名称前缀
	prefix := c.config.Namespace
	if c.config.Subsystem != "" {
		prefix = c.config.Namespace + "_" + c.config.Subsystem
	}

	// HTTP 服务器指标
	c.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"forward_name", "method", "path", "status_code"},
	)

	c.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: durationBuckets,
		},
		[]string{"forward_name", "method", "path"},
	)

	c.httpRequestSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_size_bytes",
			Help:    "HTTP request size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8), // 100B to ~1GB
		},
		[]string{"forward_name", "method", "path"},
	)

	c.httpResponseSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"forward_name", "method", "path", "status_code"},
	)

	c.httpErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_errors_total",
			Help: "Total number of HTTP processing errors",
		},
		[]string{"forward_name", "error_type"},
	)

	// 上游服务指标
	c.upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_upstream_requests_total",
			Help: "Total number of upstream requests",
		},
		[]string{"upstream_group", "upstream_name", "method", "status_code"},
	)

	c.upstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_upstream_request_duration_seconds",
			Help:    "Upstream request duration in seconds",
			Buckets: durationBuckets,
		},
		[]string{"upstream_group", "upstream_name", "method"},
	)

	c.upstreamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_upstream_errors_total",
			Help: "Total number of upstream errors",
		},
		[]string{"upstream_group", "upstream_name", "error_type"},
	)

	// 断路器指标
	c.circuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"upstream_name"},
	)

	c.circuitBreakerStateChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_circuit_breaker_state_changes_total",
			Help: "Total number of circuit breaker state changes",
		},
		[]string{"upstream_name", "from_state", "to_state"},
	)

	// 负载均衡器指标
	c.loadBalancerSelectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_load_balancer_selections_total",
			Help: "Total number of load balancer selections",
		},
		[]string{"upstream_group", "upstream_name", "balancer_type"},
	)

	// 限流指标
	c.rateLimitDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_rate_limit_decisions_total",
			Help: "Total number of rate limit decisions",
		},
		[]string{"forward_name", "limit_type", "decision"},
	)

	c.rateLimitEvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_rate_limit_evictions_total",
			Help: "Total number of rate windows evicted by the unique identifier cap",
		},
		[]string{"limiter"},
	)

	c.rateLimitSweepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_rate_limit_sweeps_total",
			Help: "Total number of full expired-window sweeps",
		},
		[]string{"limiter"},
	)

	c.rateLimitSweptTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_rate_limit_swept_identifiers_total",
			Help: "Total number of identifiers removed by sweeps",
		},
		[]string{"limiter"},
	)

	c.rateLimitSweepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_rate_limit_sweep_duration_seconds",
			Help:    "Duration of full expired-window sweeps in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
		[]string{"limiter"},
	)

	c.rateLimitIdentifiers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "_rate_limit_identifiers",
			Help: "Number of identifiers currently tracked by a limiter",
		},
		[]string{"limiter"},
	)

	// 注册所有指标到注册器
	collectors := []prometheus.Collector{
		c.httpRequestsTotal,
		c.httpRequestDuration,
		c.httpRequestSizeBytes,
		c.httpResponseSizeBytes,
		c.httpErrorsTotal,
		c.upstreamRequestsTotal,
		c.upstreamRequestDuration,
		c.upstreamErrorsTotal,
		c.circuitBreakerState,
		c.circuitBreakerStateChanges,
		c.loadBalancerSelectionsTotal,
		c.rateLimitDecisionsTotal,
		c.rateLimitEvictionsTotal,
		c.rateLimitSweepsTotal,
		c.rateLimitSweptTotal,
		c.rateLimitSweepDuration,
		c.rateLimitIdentifiers,
	}

	for _, collector := range collectors {
		if err := c.registry.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

// RecordResponse 记录 HTTP 响应
func (c *prometheusCollector) RecordResponse(forwardName, method, path string, statusCode int, duration time.Duration, requestSize, responseSize int64) {
	statusCodeStr := strconv.Itoa(statusCode)

	c.httpRequestsTotal.WithLabelValues(forwardName, method, path, statusCodeStr).Inc()
	c.httpRequestDuration.WithLabelValues(forwardName, method, path).Observe(duration.Seconds())

	if requestSize > 0 {
		c.httpRequestSizeBytes.WithLabelValues(forwardName, method, path).Observe(float64(requestSize))
	}
	if responseSize > 0 {
		c.httpResponseSizeBytes.WithLabelValues(forwardName, method, path, statusCodeStr).Observe(float64(responseSize))
	}
}

// RecordError 记录 HTTP 处理错误
func (c *prometheusCollector) RecordError(forwardName, errorType string) {
	c.httpErrorsTotal.WithLabelValues(forwardName, errorType).Inc()
}

// RecordUpstreamResponse 记录上游响应
func (c *prometheusCollector) RecordUpstreamResponse(upstreamGroup, upstreamName, method string, statusCode int, duration time.Duration) {
	c.upstreamRequestsTotal.WithLabelValues(upstreamGroup, upstreamName, method, strconv.Itoa(statusCode)).Inc()
	c.upstreamRequestDuration.WithLabelValues(upstreamGroup, upstreamName, method).Observe(duration.Seconds())
}

// RecordUpstreamError 记录上游错误
func (c *prometheusCollector) RecordUpstreamError(upstreamGroup, upstreamName, errorType string) {
	c.upstreamErrorsTotal.WithLabelValues(upstreamGroup, upstreamName, errorType).Inc()
}

// RecordCircuitBreakerState 记录断路器状态
func (c *prometheusCollector) RecordCircuitBreakerState(upstreamName string, state int) {
	c.circuitBreakerState.WithLabelValues(upstreamName).Set(float64(state))
}

// RecordCircuitBreakerStateChange 记录断路器状态变化
func (c *prometheusCollector) RecordCircuitBreakerStateChange(upstreamName, fromState, toState string) {
	c.circuitBreakerStateChanges.WithLabelValues(upstreamName, fromState, toState).Inc()
}

// RecordLoadBalancerSelection 记录负载均衡器选择
func (c *prometheusCollector) RecordLoadBalancerSelection(upstreamGroup, upstreamName, balancerType string) {
	c.loadBalancerSelectionsTotal.WithLabelValues(upstreamGroup, upstreamName, balancerType).Inc()
}

// RecordRateLimitDecision 记录一次限流决策
func (c *prometheusCollector) RecordRateLimitDecision(forwardName, limitType, decision string) {
	c.rateLimitDecisionsTotal.WithLabelValues(forwardName, limitType, decision).Inc()
}

// RecordRateLimitEviction 记录一次 LRU 淘汰
func (c *prometheusCollector) RecordRateLimitEviction(limiterName string) {
	c.rateLimitEvictionsTotal.WithLabelValues(limiterName).Inc()
}

// RecordRateLimitSweep 记录一次全量清理
func (c *prometheusCollector) RecordRateLimitSweep(limiterName string, removed int, duration time.Duration) {
	c.rateLimitSweepsTotal.WithLabelValues(limiterName).Inc()
	c.rateLimitSweptTotal.WithLabelValues(limiterName).Add(float64(removed))
	c.rateLimitSweepDuration.WithLabelValues(limiterName).Observe(duration.Seconds())
}

// SetRateLimitIdentifiers 设置当前跟踪的标识符数量
func (c *prometheusCollector) SetRateLimitIdentifiers(limiterName string, count int) {
	c.rateLimitIdentifiers.WithLabelValues(limiterName).Set(float64(count))
}

// GetRegistry 获取 Prometheus 注册器
func (c *prometheusCollector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Name 获取收集器名称
func (c *prometheusCollector) Name() string {
	return c.name
}

// Close 关闭收集器，Prometheus 收集器无需额外清理
func (c *prometheusCollector) Close() error {
	return nil
}
