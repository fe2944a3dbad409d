package auth

import (
	"net/http"
	"strings"

	"github.com/findworkai/aigate/internal/constants"
)

// basicAuthenticator 使用 Basic Auth 访问上游
type basicAuthenticator struct {
	username string
	password string
}

// NewBasicAuthenticator 创建 Basic Auth 认证器，密码保持原样不做裁剪
func NewBasicAuthenticator(username, password string) (Authenticator, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrEmptyUsername
	}
	if password == "" {
		return nil, ErrEmptyPassword
	}
	return &basicAuthenticator{username: username, password: password}, nil
}

// Apply 将Basic Auth应用到HTTP请求的Authorization头部
func (a *basicAuthenticator) Apply(req *http.Request) error {
	if req == nil {
		return ErrNilRequest
	}
	req.SetBasicAuth(a.username, a.password)
	return nil
}

func (a *basicAuthenticator) Type() string {
	return constants.AuthTypeBasic
}
