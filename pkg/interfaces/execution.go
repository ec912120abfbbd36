package interfaces

import "errors"

// ErrContextGone 执行上下文所属的会话已经结束，任务不会再被执行
var ErrContextGone = errors.New("execution context gone")

// ExecutionContext 宿主的串行执行上下文
//
// 提交的任务按顺序在同一个执行流中运行。
type ExecutionContext interface {
	// Submit 将任务排入队列后立即返回，不等待任务执行
	//
	// 上下文已经结束时返回可用 errors.Is 判断的 ErrContextGone。
	Submit(task func()) error

	// Alive 报告上下文是否仍可接受任务
	Alive() bool
}
