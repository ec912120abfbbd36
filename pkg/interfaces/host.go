package interfaces

// AttachListener 宿主 attach 时调用，参数为宿主新的执行上下文
//
// 返回的错误由宿主汇总后从 attach 操作返回。
type AttachListener func(ec ExecutionContext) error

// DetachListener 宿主 detach 时调用
type DetachListener func()

// Registration 移除一次监听器注册
//
// 实现必须是幂等的：多次调用只有第一次生效。
type Registration func()

// Host 可以被 attach 到执行上下文、也可以被 detach 的宿主对象
//
// 典型的宿主是界面中的一个视图：它被挂到某个会话上时 attach，
// 从会话上移除时 detach。
type Host interface {
	// OnAttach 注册 attach 监听器
	OnAttach(listener AttachListener) Registration

	// OnDetach 注册 detach 监听器
	OnDetach(listener DetachListener) Registration

	// ExecutionContext 返回当前执行上下文；未 attach 时返回 false
	ExecutionContext() (ExecutionContext, bool)
}
