package accessor

import (
	"errors"

	"github.com/dep2p/go-accessor/pkg/interfaces"
)

// forwarder 生成绑定到 ec 的 Forward
//
// 投递分两步：先检查 ec 是否存活，再提交任务。两步之间 ec 可能结束，
// 此时 Submit 返回 ErrContextGone，与预检查失败同样处理：放弃投递，
// 取消 sub 对应的订阅，不向事件源返回任何错误。
func (a *Accessor) forwarder(ec interfaces.ExecutionContext, sub *subscription) Forward {
	return func(task func()) {
		if task == nil {
			return
		}

		if !ec.Alive() {
			a.abandon(sub, interfaces.ErrContextGone)
			return
		}

		err := ec.Submit(task)
		switch {
		case err == nil:
			a.settings.metrics.forward()
		case errors.Is(err, interfaces.ErrContextGone):
			a.abandon(sub, err)
		default:
			a.settings.metrics.drop()
			a.settings.log.Error("submit to execution context failed",
				"accessor", a.settings.name,
				"err", err)
		}
	}
}

// abandon 执行上下文已经结束：丢弃事件并取消 sub
//
// sub 可能尚未存入 active（事件源在订阅函数内同步触发回调），
// 因此先打上标记，由 attach 在存入后补做取消。
func (a *Accessor) abandon(sub *subscription, cause error) {
	a.settings.metrics.drop()
	sub.abandoned.Store(true)

	if a.goneLog.Allow() {
		a.settings.log.Warn("execution context gone, dropping event",
			"accessor", a.settings.name,
			"cause", cause)
	}

	a.release(sub, triggerContextGone)
}
