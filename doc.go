// Package accessor 把外部事件订阅的生命周期绑定到宿主的 attach/detach 周期上
//
// 事件源可能在任意 goroutine 上触发回调，而宿主（例如界面中的一个视图）
// 只能在自己的串行执行上下文中被修改。Accessor 负责：
//
//   - 宿主 attach 时订阅一次，detach 时取消订阅一次
//   - 把事件源的回调转发到宿主的执行上下文中执行
//   - 执行上下文已经结束时放弃投递并自动取消订阅，不向事件源抛出错误
//
// # 快速开始
//
//	import accessor "github.com/dep2p/go-accessor"
//
//	// 1. 用户回调：在宿主的执行上下文中更新宿主
//	b, err := accessor.OfConsumer(view.AddMessage)
//	if err != nil {
//	    return err
//	}
//
//	// 2. 描述如何订阅：接收包装后的回调，返回取消函数
//	acc, err := b.WithSubscriber(func(cb func(string)) accessor.CancelFunc {
//	    return accessor.CancelFunc(source.Subscribe(cb))
//	})
//	if err != nil {
//	    return err
//	}
//
//	// 3. 绑定到宿主，宿主 attach/detach 时自动订阅/取消订阅
//	unbind, err := acc.Bind(view)
//	if err != nil {
//	    return err
//	}
//	defer unbind()
//
// 事件源返回的不是取消函数时，使用 WithSubscriberAndUnsubscriber
// 分别提供订阅和取消订阅函数。
//
// # 状态机
//
//	Unbound ──Bind──▶ Bound/Unsubscribed ◀──detach / unbind / context gone──┐
//	   ▲                     │                                              │
//	   │                   attach                                           │
//	   │                     ▼                                              │
//	   └──────unbind──── Bound/Subscribed ──────────────────────────────────┘
//
// # 并发安全
//
//   - 当前订阅保存在 atomic.Pointer 中，取消订阅通过 Swap/CompareAndSwap
//     保证每次订阅最多取消一次，三种触发方式可以任意竞争
//   - Bind、attach、detach 与 unbind 由一个互斥锁串行化；执行上下文失效
//     导致的回退取消只使用原子操作，可以在任意 goroutine 上执行
//   - Bind 与宿主 attach 并发时，Bind 已按该上下文订阅，随后到达的同一
//     上下文的 attach 通知为空操作；已订阅时换到另一个上下文的 attach 返回
//     ErrIllegalState
//   - IsBound/IsSubscribed 无锁
package accessor
