package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/findworkai/aigate/internal/auth"
	"github.com/findworkai/aigate/internal/balance"
	"github.com/findworkai/aigate/internal/breaker"
	"github.com/findworkai/aigate/internal/client"
	"github.com/findworkai/aigate/internal/config"
	"github.com/findworkai/aigate/internal/constants"
	"github.com/findworkai/aigate/internal/headers"
	"github.com/findworkai/aigate/internal/metrics"
	"github.com/findworkai/aigate/internal/ratelimit"
	"github.com/findworkai/aigate/internal/response"
	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
)

// MaxRequestBodySize 定义请求体的最大大小（64MB）
const MaxRequestBodySize = 64 << 20

// 流式传输缓冲区对象池
var streamingBufferPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 4096)
		return &b
	},
}

// 非流式传输缓冲区对象池
var regularBufferPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 32*1024)
		return &b
	},
}

// hopHeaders 是不应在代理之间转发的逐跳头部
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// ForwardService 代表转发服务：限流中间件 → 选择上游 → 上游令牌桶 → 熔断器 → HTTP 客户端
type ForwardService struct {
	config  *config.ForwardConfig
	group   string
	logger  *logr.Logger
	metrics metrics.MetricsCollector

	limiter    *ratelimit.Limiter
	middleware *ratelimit.Middleware

	loadBalancer balance.LoadBalancer
	httpClient   *client.Client
	upstreams    []balance.Upstream
}

// NewForwardService 创建转发服务，限流器从注册表按 (interval, maxUniqueTokens) 获取
func NewForwardService(cfg *config.ForwardConfig, global *config.Config, deps Dependencies, logger *logr.Logger) (*ForwardService, error) {
	if deps.Limiters == nil {
		return nil, ErrNilLimiterRegistry
	}
	if logger == nil {
		discard := logr.Discard()
		logger = &discard
	}
	if deps.Collector == nil {
		deps.Collector = metrics.NewNoopCollector()
	}

	s := &ForwardService{
		config:  cfg,
		group:   cfg.DefaultGroup,
		logger:  logger,
		metrics: deps.Collector,
	}

	if err := s.initRateLimit(cfg.RateLimit, deps.Limiters); err != nil {
		return nil, fmt.Errorf("failed to initialize rate limiter: %w", err)
	}

	group, err := findGroup(global, cfg.DefaultGroup)
	if err != nil {
		return nil, err
	}

	if err := s.buildUpstreams(group, global); err != nil {
		return nil, fmt.Errorf("failed to build upstreams: %w", err)
	}

	if s.loadBalancer, err = balance.CreateFromConfig(group); err != nil {
		return nil, fmt.Errorf("failed to create load balancer: %w", err)
	}

	if s.httpClient, err = client.New(group.Name, group.HTTPClient, logger); err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	return s, nil
}

// initRateLimit 从注册表获取共享限流器并创建中间件，未配置时不限流
func (s *ForwardService) initRateLimit(cfg *config.RateLimitConfig, registry *ratelimit.Registry) error {
	if cfg == nil {
		return nil
	}

	maxUniqueTokens := constants.DefaultMaxUniqueTokens
	if cfg.MaxUniqueTokens != nil {
		maxUniqueTokens = *cfg.MaxUniqueTokens
	}

	limiter, err := registry.Get(time.Duration(cfg.Interval)*time.Millisecond, maxUniqueTokens)
	if err != nil {
		return err
	}

	mw, err := ratelimit.NewMiddleware(limiter, ratelimit.MiddlewareConfig{
		Forward:    s.config.Name,
		Limit:      cfg.Limit,
		Identifier: ratelimit.IdentifierFromConfig(cfg.Identifier),
		FailOpen:   cfg.FailOpen,
		Logger:     s.logger,
		Metrics:    s.metrics,
	})
	if err != nil {
		return err
	}

	s.limiter = limiter
	s.middleware = mw
	return nil
}

// findGroup 查找上游组配置
func findGroup(global *config.Config, name string) (*config.UpstreamGroupConfig, error) {
	for i := range global.UpstreamGroups {
		if global.UpstreamGroups[i].Name == name {
			return &global.UpstreamGroups[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownGroup, name)
}

// buildUpstreams 为组内每个上游创建认证器、熔断器、令牌桶和头部改写规则
func (s *ForwardService) buildUpstreams(group *config.UpstreamGroupConfig, global *config.Config) error {
	upstreamConfigs := make(map[string]*config.UpstreamConfig, len(global.Upstreams))
	for i := range global.Upstreams {
		upstreamConfigs[global.Upstreams[i].Name] = &global.Upstreams[i]
	}

	breakers := breaker.NewFactory(s.logger, s.metrics)
	s.upstreams = make([]balance.Upstream, 0, len(group.Upstreams))

	for _, ref := range group.Upstreams {
		upstreamConfig, exists := upstreamConfigs[ref.Name]
		if !exists {
			return fmt.Errorf("%w: %s", ErrUnknownUpstream, ref.Name)
		}

		authenticator, err := auth.CreateFromConfig(upstreamConfig)
		if err != nil {
			return err
		}

		var cb breaker.CircuitBreaker
		if upstreamConfig.Breaker != nil {
			if cb, err = breakers.Create(upstreamConfig.Name, upstreamConfig.Breaker); err != nil {
				return fmt.Errorf("failed to create breaker for %s: %w", upstreamConfig.Name, err)
			}
		}

		var bucket *ratelimit.UpstreamLimiter
		if upstreamConfig.RateLimit != nil {
			bucket, err = ratelimit.NewUpstreamLimiter(upstreamConfig.Name,
				float64(upstreamConfig.RateLimit.PerSecond), upstreamConfig.RateLimit.Burst)
			if err != nil {
				return fmt.Errorf("failed to create rate limiter for %s: %w", upstreamConfig.Name, err)
			}
		}

		rewriter, err := headers.New(upstreamConfig.Headers)
		if err != nil {
			return fmt.Errorf("invalid header rules for %s: %w", upstreamConfig.Name, err)
		}

		weight := ref.Weight
		if weight <= 0 {
			weight = 1
		}

		s.upstreams = append(s.upstreams, balance.Upstream{
			Name:          upstreamConfig.Name,
			URL:           upstreamConfig.URL,
			Weight:        weight,
			Config:        upstreamConfig,
			Authenticator: authenticator,
			Breaker:       cb,
			RateLimiter:   bucket,
			Headers:       rewriter,
		})
	}

	return nil
}

// RegisterGroup 实现 orbit.Service 接口
func (s *ForwardService) RegisterGroup(g *gin.RouterGroup) {
	if s.middleware != nil {
		g.Use(s.middleware.Handler())
	}
	g.Any("/*path", s.handleForward)
}

// handleForward 处理通过限流检查的请求
func (s *ForwardService) handleForward(c *gin.Context) {
	start := time.Now()
	req := c.Request

	identifier := ratelimit.IdentifierFromContext(c)
	ctx := balance.WithIdentifier(req.Context(), identifier)

	upstream, err := s.loadBalancer.Select(ctx, s.upstreams)
	if err != nil {
		s.logger.Error(err, "Failed to select upstream", "forward", s.config.Name)
		s.metrics.RecordUpstreamError(s.group, "unknown", constants.ErrorTypeSelection)
		response.ServiceUnavailable(c, "no available upstream")
		return
	}
	s.metrics.RecordLoadBalancerSelection(s.group, upstream.Name, s.loadBalancer.Type())

	if !upstream.RateLimiter.Allow() {
		s.logger.V(1).Info("Upstream rate limit exceeded", "forward", s.config.Name, "upstream", upstream.Name)
		s.metrics.RecordRateLimitDecision(s.config.Name, constants.LimitTypeUpstream, constants.DecisionRejected)
		response.UpstreamLimited(c, upstream.Name)
		return
	}

	proxyReq, err := s.createProxyRequest(ctx, req)
	if err != nil {
		s.metrics.RecordError(s.config.Name, constants.ErrorTypeProcessing)
		if errors.Is(err, ErrRequestTooLarge) {
			response.PayloadTooLarge(c, err.Error())
			return
		}
		s.logger.Error(err, "Failed to create proxy request", "forward", s.config.Name)
		response.BadRequest(c, "failed to read request")
		return
	}

	resp, err := s.execute(proxyReq, &upstream)
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordUpstreamError(s.group, upstream.Name, constants.ErrorTypeExecution)
		s.logger.Error(err, "Upstream request failed", "forward", s.config.Name, "upstream", upstream.Name)
		s.sendUpstreamError(c, upstream.Name, err)
		return
	}
	defer resp.Body.Close()

	responseSize := s.forwardResponse(c, resp)

	s.metrics.RecordUpstreamResponse(s.group, upstream.Name, req.Method, resp.StatusCode, duration)
	s.metrics.RecordResponse(s.config.Name, req.Method, c.FullPath(), resp.StatusCode, time.Since(start),
		max(req.ContentLength, 0), responseSize)

	s.logger.V(1).Info("Request forwarded", "forward", s.config.Name, "upstream", upstream.Name,
		"identifier", identifier, "status", resp.StatusCode, "latency", duration.String())
}

// execute 通过熔断器调用上游；上游 5xx 计为熔断失败，但响应仍原样返回给客户端
func (s *ForwardService) execute(req *http.Request, upstream *balance.Upstream) (*http.Response, error) {
	if upstream.Breaker == nil {
		return s.httpClient.Do(req, upstream)
	}

	result, err := upstream.Breaker.Execute(func() (interface{}, error) {
		resp, err := s.httpClient.Do(req, upstream)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errUpstreamStatus
		}
		return resp, nil
	})

	resp, _ := result.(*http.Response)
	if errors.Is(err, errUpstreamStatus) && resp != nil {
		return resp, nil
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// sendUpstreamError 将上游调用错误映射为响应
func (s *ForwardService) sendUpstreamError(c *gin.Context, upstream string, err error) {
	switch {
	case breaker.IsOpen(err):
		response.CircuitOpen(c, upstream)
	case errors.Is(err, context.DeadlineExceeded):
		response.GatewayTimeout(c, "upstream request timed out")
	case errors.Is(err, context.Canceled):
		c.Status(499)
	default:
		response.BadGateway(c, "upstream service unavailable")
	}
}

// createProxyRequest 读取请求体并创建可重放的代理请求
func (s *ForwardService) createProxyRequest(ctx context.Context, original *http.Request) (*http.Request, error) {
	var body io.Reader
	if original.Body != nil && original.Body != http.NoBody {
		data, err := io.ReadAll(io.LimitReader(original.Body, MaxRequestBodySize+1))
		_ = original.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		if len(data) > MaxRequestBodySize {
			return nil, fmt.Errorf("%w: limit %d bytes", ErrRequestTooLarge, MaxRequestBodySize)
		}
		if len(data) > 0 {
			body = bytes.NewReader(data)
		}
	}

	proxyReq, err := http.NewRequestWithContext(ctx, original.Method, original.URL.String(), body)
	if err != nil {
		return nil, err
	}
	proxyReq.Host = original.Host

	for name, values := range original.Header {
		for _, value := range values {
			proxyReq.Header.Add(name, value)
		}
	}
	removeHopHeaders(proxyReq.Header)

	proxyReq.Header.Set(constants.HeaderXForwardedFor, ratelimit.ClientIP(original))
	proxyReq.Header.Set(constants.HeaderXForwardedProto, scheme(original))
	proxyReq.Header.Set(constants.HeaderXForwardedHost, original.Host)

	return proxyReq, nil
}

// removeHopHeaders 删除逐跳头部
func removeHopHeaders(h http.Header) {
	for _, name := range hopHeaders {
		h.Del(name)
	}
}

// scheme 获取客户端请求协议
func scheme(req *http.Request) string {
	if req.TLS != nil {
		return constants.ProtocolHTTPS
	}
	if proto := req.Header.Get(constants.HeaderXForwardedProto); proto != "" {
		return proto
	}
	return constants.ProtocolHTTP
}

// forwardResponse 复制上游响应，返回写出的响应体字节数
func (s *ForwardService) forwardResponse(c *gin.Context, resp *http.Response) int64 {
	header := c.Writer.Header()
	for name, values := range resp.Header {
		// 网关已写入的头部（X-RateLimit-*）优先
		if _, exists := header[name]; exists {
			continue
		}
		for _, value := range values {
			header.Add(name, value)
		}
	}
	removeHopHeaders(header)
	c.Status(resp.StatusCode)

	if isStreamingResponse(resp) {
		return s.forwardStreamingResponse(c, resp)
	}

	buf := regularBufferPool.Get().(*[]byte)
	defer regularBufferPool.Put(buf)

	n, err := io.CopyBuffer(c.Writer, resp.Body, *buf)
	if err != nil {
		s.logger.Error(err, "Failed to copy response body", "forward", s.config.Name)
	}
	return n
}

// isStreamingResponse 判断是否为流式响应（SSE 或分块 JSON 流）
func isStreamingResponse(resp *http.Response) bool {
	contentType := resp.Header.Get("Content-Type")
	return strings.Contains(contentType, "text/event-stream") ||
		strings.Contains(contentType, "application/stream+json") ||
		strings.Contains(contentType, "application/x-ndjson")
}

// forwardStreamingResponse 边读边写并逐块刷新
func (s *ForwardService) forwardStreamingResponse(c *gin.Context, resp *http.Response) int64 {
	buf := streamingBufferPool.Get().(*[]byte)
	defer streamingBufferPool.Put(buf)

	var written int64
	for {
		n, err := resp.Body.Read(*buf)
		if n > 0 {
			if _, writeErr := c.Writer.Write((*buf)[:n]); writeErr != nil {
				s.logger.V(1).Info("Client went away during streaming", "forward", s.config.Name, "error", writeErr.Error())
				return written
			}
			written += int64(n)
			c.Writer.Flush()
		}
		if err != nil {
			if err != io.EOF {
				s.logger.Error(err, "Error reading streaming response", "forward", s.config.Name)
			}
			return written
		}
	}
}

// Limiter 返回转发服务使用的滑动窗口限流器，未配置时为 nil
func (s *ForwardService) Limiter() *ratelimit.Limiter {
	return s.limiter
}

// LimiterName 返回限流器名称，未配置时为空
func (s *ForwardService) LimiterName() string {
	if s.limiter == nil {
		return ""
	}
	return s.limiter.Name()
}

// Limit 返回每个窗口允许的请求数，未配置时为 0
func (s *ForwardService) Limit() int {
	if s.middleware == nil {
		return 0
	}
	return s.middleware.Limit()
}

// Upstreams 返回上游列表
func (s *ForwardService) Upstreams() []balance.Upstream {
	return s.upstreams
}

// Close 释放上游连接；限流器由注册表统一关闭
func (s *ForwardService) Close() error {
	if s.httpClient == nil {
		return nil
	}
	return s.httpClient.Close()
}
