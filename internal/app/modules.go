package app

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"

	accessor "github.com/dep2p/go-accessor"
	"github.com/dep2p/go-accessor/config"
	"github.com/dep2p/go-accessor/internal/core/eventbus"
	"github.com/dep2p/go-accessor/internal/core/session"
	"github.com/dep2p/go-accessor/internal/core/ticker"
)

// buildModules 组装演示运行时的全部模块
//
// 加载顺序（按依赖）：
//  1. 配置、时钟
//  2. Core: session → eventbus → ticker
//  3. 指标
//  4. Demo
func buildModules(cfg *config.Config, o *options) []fx.Option {
	modules := []fx.Option{
		configModule(cfg, o.clock),
		session.Module(),
		eventbus.Module(),
		ticker.Module(),
		metricsModule(o.registry),
		fx.Module("demo",
			fx.Provide(NewDemo),
			fx.Invoke(registerDemo),
		),
	}
	return append(modules, o.extra...)
}

// configModule 把配置拆分为各组件的输入
func configModule(cfg *config.Config, clk clock.Clock) fx.Option {
	return fx.Module("config",
		fx.Supply(cfg),
		fx.Provide(func() clock.Clock { return clk }),
		fx.Provide(fx.Annotated{
			Name: "ticker_interval",
			Target: func(cfg *config.Config) time.Duration {
				return cfg.Ticker.Interval.Duration()
			},
		}),
		fx.Provide(func(cfg *config.Config) []session.Option {
			return []session.Option{
				session.WithQueueWarnThreshold(cfg.Session.QueueWarnThreshold),
			}
		}),
	)
}

// metricsModule 提供注册表、Accessor 指标和可选的 HTTP 端点
func metricsModule(reg *prometheus.Registry) fx.Option {
	return fx.Module("metrics",
		fx.Provide(func() *prometheus.Registry {
			if reg != nil {
				return reg
			}
			r := prometheus.NewRegistry()
			r.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			return r
		}),
		fx.Provide(func(reg *prometheus.Registry) *accessor.Metrics {
			return accessor.NewMetrics(reg)
		}),
		fx.Provide(NewMetricsServer),
		fx.Invoke(registerMetricsServer),
	)
}
