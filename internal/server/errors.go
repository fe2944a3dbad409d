package server

import (
	"errors"

	"github.com/findworkai/aigate/internal/constants"
)

// 服务器相关错误定义
var (
	ErrServerAlreadyStarted = errors.New(constants.ErrMsgServerAlreadyStarted)
	ErrServerIsNotRunning   = errors.New(constants.ErrMsgServerNotRunning)
	ErrNilLimiterRegistry   = errors.New("limiter registry cannot be nil")
	ErrUnknownGroup         = errors.New("upstream group not found")
	ErrUnknownUpstream      = errors.New("upstream not found")
	ErrRequestTooLarge      = errors.New("request body too large")
	errUpstreamStatus       = errors.New("upstream responded with server error")
)
