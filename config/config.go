// Package config 提供演示运行时的配置
//
// 配置按组件组织，可以从 JSON 加载：
//
//	cfg, err := config.LoadFile("demo.json")
//	if err != nil {
//	    return err
//	}
//
// 示例 JSON:
//
//	{
//	  "ticker":   {"interval": "500ms"},
//	  "session":  {"queue_warn_threshold": 256},
//	  "dispatch": {"gone_log_interval": "1s", "gone_log_burst": 1},
//	  "metrics":  {"enable": true, "addr": "127.0.0.1:9090"},
//	  "demo":     {"duration": "10s", "toggle_interval": "2s"}
//	}
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// Config 演示运行时的完整配置
type Config struct {
	// Ticker 定时事件源配置
	Ticker TickerConfig `json:"ticker"`

	// Session 执行上下文配置
	Session SessionConfig `json:"session"`

	// Dispatch 事件转发配置
	Dispatch DispatchConfig `json:"dispatch"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`

	// Demo 演示场景配置
	Demo DemoConfig `json:"demo"`
}

// TickerConfig 定时事件源配置
type TickerConfig struct {
	// Interval 触发间隔
	Interval Duration `json:"interval"`
}

// SessionConfig 执行上下文配置
type SessionConfig struct {
	// QueueWarnThreshold 任务积压告警阈值，0 表示不告警
	QueueWarnThreshold int `json:"queue_warn_threshold"`
}

// DispatchConfig 事件转发配置
type DispatchConfig struct {
	// GoneLogInterval "执行上下文已结束" 警告的最小间隔
	GoneLogInterval Duration `json:"gone_log_interval"`

	// GoneLogBurst 警告突发数量
	GoneLogBurst int `json:"gone_log_burst"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// Enable 是否暴露 Prometheus 指标
	Enable bool `json:"enable"`

	// Addr 指标 HTTP 监听地址
	Addr string `json:"addr"`
}

// DemoConfig 演示场景配置
type DemoConfig struct {
	// Duration 演示总时长
	Duration Duration `json:"duration"`

	// ToggleInterval 视图 attach/detach 切换间隔
	ToggleInterval Duration `json:"toggle_interval"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Ticker: TickerConfig{
			Interval: Duration(time.Second),
		},
		Session: SessionConfig{
			QueueWarnThreshold: 1024,
		},
		Dispatch: DispatchConfig{
			GoneLogInterval: Duration(time.Second),
			GoneLogBurst:    1,
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9090",
		},
		Demo: DemoConfig{
			Duration:       Duration(10 * time.Second),
			ToggleInterval: Duration(2 * time.Second),
		},
	}
}

// FromJSON 从 JSON 数据创建配置，未出现的字段保留默认值
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile 从 JSON 文件加载配置
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return FromJSON(data)
}

// ToJSON 序列化配置
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// ============================================================================
// 验证
// ============================================================================

// ErrInvalidConfig 配置无效
var ErrInvalidConfig = errors.New("invalid config")

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if c.Ticker.Interval <= 0 {
		return fmt.Errorf("%w: ticker.interval must be positive", ErrInvalidConfig)
	}
	if c.Session.QueueWarnThreshold < 0 {
		return fmt.Errorf("%w: session.queue_warn_threshold must not be negative", ErrInvalidConfig)
	}
	if c.Dispatch.GoneLogInterval < 0 {
		return fmt.Errorf("%w: dispatch.gone_log_interval must not be negative", ErrInvalidConfig)
	}
	if c.Dispatch.GoneLogBurst < 1 {
		return fmt.Errorf("%w: dispatch.gone_log_burst must be at least 1", ErrInvalidConfig)
	}
	if c.Metrics.Enable && c.Metrics.Addr == "" {
		return fmt.Errorf("%w: metrics.addr is required when metrics are enabled", ErrInvalidConfig)
	}
	if c.Demo.Duration <= 0 {
		return fmt.Errorf("%w: demo.duration must be positive", ErrInvalidConfig)
	}
	if c.Demo.ToggleInterval <= 0 {
		return fmt.Errorf("%w: demo.toggle_interval must be positive", ErrInvalidConfig)
	}
	return nil
}
