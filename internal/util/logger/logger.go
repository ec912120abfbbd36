// Package logger 提供 go-accessor 的子系统日志
//
// 基于标准库 log/slog，支持：
//   - 按子系统配置日志级别
//   - 环境变量配置（ACCESSOR_LOG_LEVEL, ACCESSOR_LOG_FORMAT, ACCESSOR_LOG_ADD_SOURCE）
//   - 运行时切换输出目标与级别
//
// 使用示例:
//
//	var log = logger.Logger("core/session")
//
//	log.Debug("task submitted", "session", id, "pending", n)
//
// 环境变量配置:
//
//	# 默认 info，session 子系统 debug
//	ACCESSOR_LOG_LEVEL=core/session=debug,info
package logger

import (
	"io"
	"log/slog"
	"sync"
)

var (
	// loggers 子系统 → *slog.Logger
	loggers sync.Map

	// handlers 子系统 → *subsystemHandler（用于动态调整级别）
	handlers sync.Map
)

// Logger 获取指定子系统的 Logger
//
// 同一子系统多次调用返回同一个实例。
func Logger(subsystem string) *slog.Logger {
	if l, ok := loggers.Load(subsystem); ok {
		return l.(*slog.Logger)
	}

	h := newSubsystemHandler(subsystem, ConfigFromEnv())
	actual, loaded := loggers.LoadOrStore(subsystem, slog.New(h))
	if !loaded {
		handlers.Store(subsystem, h)
	}
	return actual.(*slog.Logger)
}

// SetLevel 动态设置子系统的日志级别
func SetLevel(subsystem string, level slog.Level) {
	if h, ok := handlers.Load(subsystem); ok {
		h.(*subsystemHandler).setLevel(level)
	}
}

// SetGlobalLevel 设置所有已创建子系统的日志级别
func SetGlobalLevel(level slog.Level) {
	handlers.Range(func(_, value any) bool {
		value.(*subsystemHandler).setLevel(level)
		return true
	})
}

// SetOutput 设置全局日志输出目标
//
// 已创建的 Logger 同样会输出到新的目标。
func SetOutput(w io.Writer) {
	outputMu.Lock()
	output = w
	outputMu.Unlock()
}

// Discard 返回一个丢弃所有日志的 Logger，主要用于测试
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}
