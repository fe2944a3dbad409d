package auth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/findworkai/aigate/internal/config"
	"github.com/findworkai/aigate/internal/constants"
)

// 认证相关错误定义
var (
	ErrNilRequest      = errors.New("request cannot be nil")
	ErrInvalidAuthType = errors.New("invalid auth type")
	ErrEmptyToken      = errors.New("bearer token cannot be empty")
	ErrEmptyUsername   = errors.New("username cannot be empty")
	ErrEmptyPassword   = errors.New("password cannot be empty")
)

// Authenticator 代表上游认证器，把凭据写入转发给 AI 后端的请求
type Authenticator interface {
	// Apply 将认证信息应用到HTTP请求中
	Apply(req *http.Request) error

	// Type 获取认证器类型
	Type() string
}

// New 根据认证配置创建认证器，配置为空时不做认证
func New(cfg *config.AuthConfig) (Authenticator, error) {
	if cfg == nil {
		return NewNoneAuthenticator(), nil
	}

	switch cfg.Type {
	case constants.AuthTypeNone, "":
		return NewNoneAuthenticator(), nil
	case constants.AuthTypeBearer:
		return NewBearerAuthenticator(cfg.Token)
	case constants.AuthTypeBasic:
		return NewBasicAuthenticator(cfg.Username, cfg.Password)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidAuthType, cfg.Type)
	}
}

// CreateFromConfig 从上游配置创建认证器
func CreateFromConfig(upstream *config.UpstreamConfig) (Authenticator, error) {
	if upstream == nil {
		return nil, errors.New("upstream config cannot be nil")
	}

	authenticator, err := New(upstream.Auth)
	if err != nil {
		return nil, fmt.Errorf("upstream %s: %w", upstream.Name, err)
	}
	return authenticator, nil
}
