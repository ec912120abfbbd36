// Package app 提供演示运行时的编排层
//
// app 包负责：
//   - fx 模块组装
//   - 依赖注入协调
//   - 生命周期管理
//   - 演示视图与 Accessor 的绑定
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-accessor/config"
)

// startTimeout 启动 fx 应用的超时
const startTimeout = 30 * time.Second

// ErrNotBuilt 尚未调用 Build
var ErrNotBuilt = errors.New("app not built")

// Bootstrap 应用引导程序
type Bootstrap struct {
	config *config.Config
	opts   options

	fxApp   *fx.App
	demo    *Demo
	metrics *MetricsServer
}

// NewBootstrap 创建引导程序；cfg 为 nil 时使用默认配置
func NewBootstrap(cfg *config.Config, opts ...Option) *Bootstrap {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Bootstrap{
		config: cfg,
		opts:   o,
	}
}

// Build 组装并启动 fx 应用，返回就绪但未开始会话的 Demo
func (b *Bootstrap) Build() (*Demo, error) {
	if err := b.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	b.fxApp = fx.New(
		fx.Options(buildModules(b.config, &b.opts)...),
		fx.WithLogger(b.fxLogger),
		fx.Populate(&b.demo, &b.metrics),
	)
	if err := b.fxApp.Err(); err != nil {
		return nil, fmt.Errorf("failed to build app: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()

	if err := b.fxApp.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start app: %w", err)
	}
	return b.demo, nil
}

// MetricsAddr 返回指标服务的监听地址；未启用时返回空字符串
func (b *Bootstrap) MetricsAddr() string {
	if b.metrics == nil {
		return ""
	}
	return b.metrics.Addr()
}

// Stop 停止应用，触发各模块的 OnStop
func (b *Bootstrap) Stop(ctx context.Context) error {
	if b.fxApp == nil {
		return ErrNotBuilt
	}
	return b.fxApp.Stop(ctx)
}

func (b *Bootstrap) fxLogger() fxevent.Logger {
	if !b.opts.verbose {
		return &fxevent.ZapLogger{Logger: zap.NewNop()}
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return &fxevent.ZapLogger{Logger: zap.NewNop()}
	}
	return &fxevent.ZapLogger{Logger: l}
}
