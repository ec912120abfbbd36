package accessor

import "fmt"

// CancelFunc 取消一次订阅，或解除一次绑定
type CancelFunc func()

// subscribeFunc 统一后的订阅形态：接收 Forward，返回取消函数
type subscribeFunc func(forward Forward) (CancelFunc, error)

// Builder 描述如何订阅事件源，并生成 Accessor
//
// C 是事件源期望的回调类型，例如 func(string) 或 func()。
type Builder[C any] struct {
	adapt func(forward Forward) C
}

func newBuilder[C any](adapt func(forward Forward) C) *Builder[C] {
	return &Builder[C]{adapt: adapt}
}

// WithSubscriber 创建通过 "订阅并返回取消函数" 方式订阅的 Accessor
//
// subscribe 接收包装后的回调；返回 nil 取消函数视为事件源违反约定，
// 在订阅时以 ErrIllegalState 失败。
func (b *Builder[C]) WithSubscriber(subscribe func(C) CancelFunc, opts ...Option) (*Accessor, error) {
	if subscribe == nil {
		return nil, fmt.Errorf("%w: subscriber cannot be nil", ErrInvalidArgument)
	}
	return newAccessor(func(forward Forward) (CancelFunc, error) {
		cancel := subscribe(b.adapt(forward))
		if cancel == nil {
			return nil, fmt.Errorf("%w: subscriber must return a non-nil cancel func", ErrIllegalState)
		}
		return cancel, nil
	}, opts), nil
}

// WithSubscriberAndUnsubscriber 创建订阅与取消订阅分离的 Accessor
//
// subscribe 返回任意形态的句柄 H，取消订阅时把它原样传给 unsubscribe，
// 包括 nil 句柄。适用于不返回统一取消函数的事件源。
func WithSubscriberAndUnsubscriber[C, H any](b *Builder[C], subscribe func(C) H, unsubscribe func(H), opts ...Option) (*Accessor, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: builder cannot be nil", ErrInvalidArgument)
	}
	if subscribe == nil {
		return nil, fmt.Errorf("%w: subscriber cannot be nil", ErrInvalidArgument)
	}
	if unsubscribe == nil {
		return nil, fmt.Errorf("%w: unsubscriber cannot be nil", ErrInvalidArgument)
	}
	return newAccessor(func(forward Forward) (CancelFunc, error) {
		handle := subscribe(b.adapt(forward))
		return func() { unsubscribe(handle) }, nil
	}, opts), nil
}
