package accessor

import "errors"

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 构造错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrInvalidArgument 构造时缺少必需的回调或函数
	ErrInvalidArgument = errors.New("invalid argument")

	// ────────────────────────────────────────────────────────────────────────
	// 使用错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrIllegalState 重复绑定、重复订阅，或订阅函数返回了空的取消句柄
	ErrIllegalState = errors.New("illegal state")
)
