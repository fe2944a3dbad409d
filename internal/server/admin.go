package server

import (
	"fmt"
	"sync"

	"github.com/findworkai/aigate/internal/config"
	"github.com/go-logr/logr"
	"github.com/shengyanli1982/orbit"
)

// AdminServer 代表管理服务器，提供健康检查、监控指标和限流器管理
type AdminServer struct {
	endpoint   string
	httpEngine *orbit.Engine
	closeOnce  sync.Once
	config     *config.AdminConfig
	logger     *logr.Logger
	service    *AdminService
}

// NewAdminServer 创建新的管理服务器实例
func NewAdminServer(debug bool, logger *logr.Logger, cfg *config.AdminConfig, deps Dependencies, server *Server) *AdminServer {
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

	svc := NewAdminService(deps, server, logger)
	engine := orbit.NewEngine(engineConfig, orbit.EmptyOptions())
	engine.RegisterService(svc)

	return &AdminServer{
		endpoint:   fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		httpEngine: engine,
		config:     cfg,
		logger:     logger,
		service:    svc,
	}
}

// Start 启动管理服务器
func (s *AdminServer) Start() {
	if s.httpEngine.IsRunning() {
		s.logger.Error(ErrServerAlreadyStarted, "Admin server is already started")
		return
	}

	s.httpEngine.Run()
	s.closeOnce = sync.Once{}
	s.logger.Info("Admin server started", "endpoint", s.endpoint)
}

// Stop 停止管理服务器
func (s *AdminServer) Stop() {
	if !s.httpEngine.IsRunning() {
		s.logger.Error(ErrServerIsNotRunning, "Admin server is not running")
		return
	}

	s.closeOnce.Do(func() {
		s.httpEngine.Stop()
		s.logger.Info("Admin server stopped", "endpoint", s.endpoint)
	})
}

// IsRunning 检查管理服务器是否正在运行
func (s *AdminServer) IsRunning() bool {
	return s.httpEngine.IsRunning()
}

// GetEndpoint 获取服务器监听地址
func (s *AdminServer) GetEndpoint() string {
	return s.endpoint
}

// GetService 获取管理服务实例
func (s *AdminServer) GetService() *AdminService {
	return s.service
}
