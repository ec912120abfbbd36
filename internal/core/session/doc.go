// Package session 实现串行执行上下文
//
// 每个 Session 拥有一个 goroutine，按提交顺序逐个执行任务，
// 相当于界面框架中 "某个用户会话的界面线程"。
//
// # 生命周期
//
//	s := session.New()
//	_ = s.Submit(func() { /* 在会话 goroutine 上运行 */ })
//	_ = s.Close()
//	err := s.Submit(task) // errors.Is(err, interfaces.ErrContextGone)
//
// # 并发安全
//
//   - Submit 可在任意 goroutine 上调用，从不阻塞
//   - Close 幂等；关闭后尚未执行的任务被丢弃
//   - 任务中的 panic 被恢复并记录，会话继续运行
package session
