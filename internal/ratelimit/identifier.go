package ratelimit

import (
	"net"
	"net/http"
	"strings"

	"github.com/findworkai/aigate/internal/config"
	"github.com/findworkai/aigate/internal/constants"
)

// IdentifierFunc 从请求中提取限流标识符
type IdentifierFunc func(req *http.Request) string

// ClientIP 从HTTP请求中获取客户端真实IP地址
func ClientIP(req *http.Request) string {
	// 优先检查X-Forwarded-For头部，取第一个有效IP
	if xff := req.Header.Get(constants.HeaderXForwardedFor); xff != "" {
		if ip := parseFirstIP(xff); ip != "" {
			return ip
		}
	}

	// 检查X-Real-IP头部
	if xri := strings.TrimSpace(req.Header.Get(constants.HeaderXRealIP)); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}

	// 使用RemoteAddr
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

// parseFirstIP 解析并返回第一个有效的IP地址
func parseFirstIP(xff string) string {
	first, _, _ := strings.Cut(xff, ",")
	first = strings.TrimSpace(first)
	if net.ParseIP(first) != nil {
		return first
	}
	return ""
}

// HeaderIdentifier 按请求头（例如用户 ID）区分客户端，头部缺失时回退到客户端 IP
func HeaderIdentifier(header string) IdentifierFunc {
	return func(req *http.Request) string {
		if v := strings.TrimSpace(req.Header.Get(header)); v != "" {
			return v
		}
		return ClientIP(req)
	}
}

// IdentifierFromConfig 根据配置返回标识符提取函数
func IdentifierFromConfig(cfg *config.IdentifierConfig) IdentifierFunc {
	if cfg != nil && cfg.Source == constants.IdentifierHeader && cfg.Header != "" {
		return HeaderIdentifier(cfg.Header)
	}
	return ClientIP
}
