package server

import (
	"fmt"
	"sync"

	"github.com/findworkai/aigate/internal/config"
	"github.com/go-logr/logr"
	"github.com/shengyanli1982/orbit"
)

// ForwardServer 代表转发服务器，负责处理客户端请求并转发到上游 AI 服务
type ForwardServer struct {
	name       string
	endpoint   string
	httpEngine *orbit.Engine
	closeOnce  sync.Once
	config     *config.ForwardConfig
	logger     *logr.Logger
	service    *ForwardService
}

// NewForwardServer 创建新的转发服务器实例
func NewForwardServer(debug bool, logger *logr.Logger, cfg *config.ForwardConfig, global *config.Config, deps Dependencies) (*ForwardServer, error) {
	svc, err := NewForwardService(cfg, global, deps, logger)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout == nil {
		timeout = &config.TimeoutConfig{}
	}

	engineConfig := orbit.NewConfig().
		WithLogger(logger).
		WithAddress(cfg.Address).
		WithPort(uint16(cfg.Port)).
		WithHttpIdleTimeout(uint32(timeout.Idle)).
		WithHttpReadHeaderTimeout(uint32(timeout.Read)).
		WithHttpReadTimeout(uint32(timeout.Read)).
		WithHttpWriteTimeout(uint32(timeout.Write))
	if !debug {
		engineConfig.WithRelease()
	}

	engine := orbit.NewEngine(engineConfig, orbit.EmptyOptions())
	engine.RegisterService(svc)

	return &ForwardServer{
		name:       cfg.Name,
		endpoint:   fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		httpEngine: engine,
		config:     cfg,
		logger:     logger,
		service:    svc,
	}, nil
}

// Start 启动转发服务器
func (s *ForwardServer) Start() {
	if s.httpEngine.IsRunning() {
		s.logger.Error(ErrServerAlreadyStarted, "Forward server is already started", "name", s.name)
		return
	}

	s.httpEngine.Run()
	s.closeOnce = sync.Once{}

	s.logger.Info("Forward server started", "name", s.name, "endpoint", s.endpoint,
		"limiter", s.service.LimiterName(), "limit", s.service.Limit())
}

// Stop 停止转发服务器并释放上游连接
func (s *ForwardServer) Stop() {
	if !s.httpEngine.IsRunning() {
		s.logger.Error(ErrServerIsNotRunning, "Forward server is not running", "name", s.name)
		return
	}

	s.closeOnce.Do(func() {
		s.httpEngine.Stop()
		if err := s.service.Close(); err != nil {
			s.logger.Error(err, "Failed to close forward service", "name", s.name)
		}
		s.logger.Info("Forward server stopped", "name", s.name)
	})
}

// IsRunning 检查转发服务器是否正在运行
func (s *ForwardServer) IsRunning() bool {
	return s.httpEngine.IsRunning()
}

// GetEndpoint 获取服务器监听地址
func (s *ForwardServer) GetEndpoint() string {
	return s.endpoint
}

// GetConfig 获取转发服务配置
func (s *ForwardServer) GetConfig() *config.ForwardConfig {
	return s.config
}

// GetService 获取转发服务实例
func (s *ForwardServer) GetService() *ForwardService {
	return s.service
}
