package client

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/findworkai/aigate/internal/config"
)

// proxyFunc 返回代理选择函数，未配置时使用环境变量中的代理设置
func proxyFunc(cfg *config.ProxyConfig) (func(*http.Request) (*url.URL, error), error) {
	if cfg == nil || cfg.URL == "" {
		return http.ProxyFromEnvironment, nil
	}

	proxyURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy url %q: %w", cfg.URL, err)
	}
	if proxyURL.Host == "" {
		return nil, fmt.Errorf("invalid proxy url %q: missing host", cfg.URL)
	}
	return http.ProxyURL(proxyURL), nil
}
