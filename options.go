package accessor

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/dep2p/go-accessor/internal/util/logger"
)

// Option 配置 Accessor
type Option func(*settings)

type settings struct {
	name      string
	log       *slog.Logger
	metrics   *Metrics
	goneLimit rate.Limit
	goneBurst int
}

func defaultSettings() settings {
	return settings{
		log:       logger.Logger("accessor"),
		goneLimit: rate.Every(time.Second),
		goneBurst: 1,
	}
}

// WithName 设置日志和诊断中使用的名称
func WithName(name string) Option {
	return func(s *settings) {
		s.name = name
	}
}

// WithLogger 替换默认的 "accessor" 子系统日志
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics 记录订阅和转发指标
func WithMetrics(m *Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// WithGoneLogLimit 限制 "执行上下文已结束" 警告日志的频率
//
// 默认每秒最多一条。
func WithGoneLogLimit(limit rate.Limit, burst int) Option {
	return func(s *settings) {
		s.goneLimit = limit
		s.goneBurst = burst
	}
}
