package auth

import (
	"net/http"
	"strings"

	"github.com/findworkai/aigate/internal/constants"
)

// bearerAuthenticator 使用 Bearer Token 访问上游（例如 AI 服务的 API Key）
type bearerAuthenticator struct {
	token string
}

// NewBearerAuthenticator 创建 Bearer Token 认证器
func NewBearerAuthenticator(token string) (Authenticator, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrEmptyToken
	}
	return &bearerAuthenticator{token: token}, nil
}

// Apply 覆盖请求的 Authorization 头部，客户端自带的凭据不会透传到上游
func (a *bearerAuthenticator) Apply(req *http.Request) error {
	if req == nil {
		return ErrNilRequest
	}
	req.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+a.token)
	return nil
}

func (a *bearerAuthenticator) Type() string {
	return constants.AuthTypeBearer
}
