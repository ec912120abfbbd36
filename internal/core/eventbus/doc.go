// Package eventbus 实现进程内的类型化事件主题
//
// Topic 是 Accessor 的一种事件源：订阅者回调在各自的投递 goroutine 上运行，
// 与发布者、宿主的执行上下文都不在同一个 goroutine。
//
// # 快速开始
//
//	topic := eventbus.NewTopic[string](eventbus.BufSize(32))
//	defer topic.Close()
//
//	cancel, _ := topic.Subscribe(func(msg string) {
//	    // 在投递 goroutine 上运行
//	})
//	defer cancel()
//
//	_ = topic.Publish("hello")
//
// # 并发安全
//
//   - 订阅列表由 sync.Mutex 保护，发布时复制快照
//   - 每个订阅者一个缓冲通道，缓冲区满时丢弃事件并计数
//   - 取消订阅与 Close 通过 closeOnce 保证幂等
package eventbus
