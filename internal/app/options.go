package app

import (
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Option 配置 Bootstrap
type Option func(*options)

type options struct {
	clock    clock.Clock
	registry *prometheus.Registry
	verbose  bool
	extra    []fx.Option
}

func defaultOptions() options {
	return options{
		clock: clock.New(),
	}
}

// WithClock 替换时钟，测试中使用 clock.NewMock()
func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		if clk != nil {
			o.clock = clk
		}
	}
}

// WithRegistry 使用指定的 Prometheus 注册表，默认新建
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithVerboseFx 输出 fx 依赖注入事件
func WithVerboseFx(verbose bool) Option {
	return func(o *options) {
		o.verbose = verbose
	}
}

// WithFxOptions 追加 fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) {
		o.extra = append(o.extra, opts...)
	}
}
