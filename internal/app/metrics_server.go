package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/dep2p/go-accessor/config"
)

// MetricsServer 通过 HTTP 暴露 /metrics
type MetricsServer struct {
	enabled bool
	addr    string
	server  *http.Server

	mu sync.Mutex
	ln net.Listener
}

// NewMetricsServer 创建指标服务；配置未启用时 Start 为空操作
func NewMetricsServer(cfg *config.Config, reg *prometheus.Registry) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return &MetricsServer{
		enabled: cfg.Metrics.Enable,
		addr:    cfg.Metrics.Addr,
		server:  &http.Server{Handler: mux},
	}
}

// Start 开始监听
func (s *MetricsServer) Start() error {
	if !s.enabled {
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", "err", err)
		}
	}()
	log.Info("metrics server listening", "addr", ln.Addr().String())
	return nil
}

// Addr 返回实际监听地址；未监听时返回空字符串
func (s *MetricsServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Stop 关闭服务
func (s *MetricsServer) Stop(ctx context.Context) error {
	if s.Addr() == "" {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func registerMetricsServer(lc fx.Lifecycle, s *MetricsServer) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return s.Start()
		},
		OnStop: s.Stop,
	})
}
