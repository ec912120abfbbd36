package accessor

import "fmt"

// Forward 把一个任务提交到宿主的执行上下文
//
// Forward 可以在任意 goroutine 上并发调用，只保证任务入队，不等待执行。
type Forward func(task func())

// OfConsumer 创建基于单值回调的 Builder
//
// 订阅生效后，事件源每次以 value 调用包装后的回调，
// consumer(value) 都会在宿主的执行上下文中运行。
func OfConsumer[T any](consumer func(T)) (*Builder[func(T)], error) {
	if consumer == nil {
		return nil, fmt.Errorf("%w: consumer cannot be nil", ErrInvalidArgument)
	}
	return newBuilder(func(forward Forward) func(T) {
		return func(value T) {
			forward(func() { consumer(value) })
		}
	}), nil
}

// OfAction 创建基于无参回调的 Builder
func OfAction(action func()) (*Builder[func()], error) {
	if action == nil {
		return nil, fmt.Errorf("%w: action cannot be nil", ErrInvalidArgument)
	}
	return newBuilder(func(forward Forward) func() {
		return func() {
			forward(action)
		}
	}), nil
}
