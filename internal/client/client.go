// Package client 实现转发到 AI 后端的 HTTP 客户端
package client

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/findworkai/aigate/internal/balance"
	"github.com/findworkai/aigate/internal/config"
	"github.com/findworkai/aigate/internal/constants"
	"github.com/go-logr/logr"
)

// 客户端相关错误定义
var (
	ErrNilRequest    = errors.New(constants.ErrMsgNilRequest)
	ErrNilUpstream   = errors.New(constants.ErrMsgNilUpstream)
	ErrClientClosed  = errors.New(constants.ErrMsgClientClosed)
	errNotReplayable = errors.New("request body cannot be replayed for retry")
)

// Client 代表一个上游组共享的 HTTP 客户端
type Client struct {
	name      string
	client    *http.Client
	transport *http.Transport
	retry     retryPolicy
	agent     string
	keepAlive bool
	closed    atomic.Bool
	logger    *logr.Logger
}

// New 根据上游组的 HTTP 客户端配置创建客户端
func New(name string, cfg *config.HTTPClientConfig, logger *logr.Logger) (*Client, error) {
	if cfg == nil {
		cfg = &config.HTTPClientConfig{KeepAlive: constants.DefaultKeepAlive}
	}
	if logger == nil {
		discard := logr.Discard()
		logger = &discard
	}

	transport := newTransport(cfg)
	proxy, err := proxyFunc(cfg.Proxy)
	if err != nil {
		return nil, err
	}
	transport.Proxy = proxy

	agent := cfg.Agent
	if agent == "" {
		agent = constants.UserAgent
	}

	return &Client{
		name:      name,
		client:    &http.Client{Transport: transport},
		transport: transport,
		retry:     newRetryPolicy(cfg.Retry),
		agent:     agent,
		keepAlive: cfg.KeepAlive > 0,
		logger:    logger,
	}, nil
}

// Do 把请求改写到上游地址并执行，按重试策略处理失败；请求体需可重放（GetBody）才能重试
func (c *Client) Do(req *http.Request, upstream *balance.Upstream) (*http.Response, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	if req == nil {
		return nil, ErrNilRequest
	}
	if upstream == nil {
		return nil, ErrNilUpstream
	}

	if err := c.prepareRequest(req, upstream); err != nil {
		return nil, fmt.Errorf("failed to prepare request: %w", err)
	}

	start := time.Now()
	resp, err := c.retry.do(req.Context(), func(attempt int) (*http.Response, error) {
		outgoing := req
		if attempt > 0 {
			if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
				return nil, errNotReplayable
			}
			outgoing = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				outgoing.Body = body
			}
			c.logger.V(1).Info("retrying upstream request", "upstream", upstream.Name, "attempt", attempt)
		}
		return c.client.Do(outgoing)
	})
	if err != nil {
		c.logger.Error(err, "upstream request failed", "upstream", upstream.Name,
			"url", req.URL.String(), "duration", time.Since(start).String())
		return nil, err
	}

	c.logger.V(2).Info("upstream request completed", "upstream", upstream.Name,
		"status", resp.StatusCode, "duration", time.Since(start).String())
	return resp, nil
}

// prepareRequest 设置目标地址、认证信息、默认头部并执行上游头部改写
// 上游 URL 只有主机时保留客户端路径；带路径时使用上游路径（完整端点）
func (c *Client) prepareRequest(req *http.Request, upstream *balance.Upstream) error {
	target, err := url.Parse(upstream.URL)
	if err != nil {
		return fmt.Errorf("invalid upstream url %q: %w", upstream.URL, err)
	}
	if target.Host == "" {
		return fmt.Errorf("upstream url must include host: %s", upstream.URL)
	}

	if req.Header.Get(constants.HeaderXForwardedHost) == "" && req.Host != "" {
		req.Header.Set(constants.HeaderXForwardedHost, req.Host)
	}

	req.URL.Scheme = target.Scheme
	req.URL.Host = target.Host
	req.Host = target.Host
	if target.Path != "" && target.Path != "/" {
		req.URL.Path = target.Path
		req.URL.RawPath = target.RawPath
		if target.RawQuery != "" {
			req.URL.RawQuery = target.RawQuery
		}
	}
	req.RequestURI = ""

	if upstream.Authenticator != nil {
		if err := upstream.Authenticator.Apply(req); err != nil {
			return fmt.Errorf("failed to apply authentication: %w", err)
		}
	}

	req.Header.Set(constants.HeaderUserAgent, c.agent)
	if c.keepAlive {
		req.Header.Set(constants.HeaderConnection, constants.ConnectionKeepAlive)
	} else {
		req.Header.Set(constants.HeaderConnection, constants.ConnectionClose)
	}

	// 上游改写规则最后执行，可以覆盖上面的默认头部
	upstream.Headers.Apply(req.Header)
	return nil
}

// Name 获取客户端名称
func (c *Client) Name() string {
	return c.name
}

// Close 关闭客户端并释放空闲连接
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.transport.CloseIdleConnections()
	return nil
}
