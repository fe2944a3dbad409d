package auth

import (
	"net/http"

	"github.com/findworkai/aigate/internal/constants"
)

// noneAuthenticator 不附加任何凭据，但会去掉客户端的 Authorization 头部
type noneAuthenticator struct{}

// NewNoneAuthenticator 创建无认证认证器
func NewNoneAuthenticator() Authenticator {
	return noneAuthenticator{}
}

func (noneAuthenticator) Apply(req *http.Request) error {
	if req == nil {
		return ErrNilRequest
	}
	req.Header.Del(constants.HeaderAuthorization)
	return nil
}

func (noneAuthenticator) Type() string {
	return constants.AuthTypeNone
}
