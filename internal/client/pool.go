package client

import (
	"net"
	"net/http"
	"time"

	"github.com/findworkai/aigate/internal/config"
	"github.com/findworkai/aigate/internal/constants"
)

// newTransport 根据上游组的 HTTP 客户端配置创建连接池（时间单位：毫秒）
func newTransport(cfg *config.HTTPClientConfig) *http.Transport {
	connectTimeout := constants.DefaultConnectTimeout
	if cfg.Timeout != nil && cfg.Timeout.Connect > 0 {
		connectTimeout = cfg.Timeout.Connect
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   time.Duration(connectTimeout) * time.Millisecond,
			KeepAlive: time.Duration(cfg.KeepAlive) * time.Millisecond,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		DisableKeepAlives:     cfg.KeepAlive == 0,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          constants.DefaultIdleTotal,
		MaxIdleConnsPerHost:   constants.DefaultIdlePerHost,
		MaxConnsPerHost:       constants.DefaultMaxPerHost,
	}

	if cfg.Connect != nil {
		transport.MaxIdleConns = cfg.Connect.IdleTotal
		transport.MaxIdleConnsPerHost = cfg.Connect.IdlePerHost
		transport.MaxConnsPerHost = cfg.Connect.MaxPerHost
	}

	if cfg.Timeout != nil {
		// 只限制等待响应头的时间，流式响应体不受影响
		if cfg.Timeout.Request > 0 {
			transport.ResponseHeaderTimeout = time.Duration(cfg.Timeout.Request) * time.Millisecond
		}
		if cfg.Timeout.Idle > 0 {
			transport.IdleConnTimeout = time.Duration(cfg.Timeout.Idle) * time.Millisecond
		}
	}

	return transport
}
