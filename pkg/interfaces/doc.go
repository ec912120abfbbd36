// Package interfaces 定义 go-accessor 与外部协作方之间的契约
//
// Accessor 本身不实现宿主生命周期、串行执行上下文或事件源，
// 只通过本包中的接口消费它们：
//   - host.go       - 宿主（Host）：attach/detach 事件注册与当前执行上下文
//   - execution.go  - 执行上下文（ExecutionContext）：串行任务提交与存活检测
//
// 事件源不需要接口：它只需是一个接收回调并返回取消句柄的函数，
// 或者一对 "订阅 / 取消订阅" 函数。
package interfaces
