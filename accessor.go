package accessor

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/dep2p/go-accessor/pkg/interfaces"
)

// ============================================================================
// 内部状态
// ============================================================================

// subscription 一次 attach 周期内的订阅
type subscription struct {
	cancel CancelFunc

	// ec 建立订阅时的执行上下文
	ec interfaces.ExecutionContext

	// abandoned 该订阅的 Forward 发现执行上下文已结束
	abandoned atomic.Bool
}

// binding 一次 Bind 的监听器注册
type binding struct {
	attachReg interfaces.Registration
	detachReg interfaces.Registration
	once      sync.Once
}

// ============================================================================
// Accessor
// ============================================================================

// Accessor 绑定到宿主生命周期的单个订阅
//
// 通过 Builder 创建，创建后处于未绑定状态。
// 同一时刻最多绑定一个宿主、最多持有一个订阅。
type Accessor struct {
	subscribe subscribeFunc
	settings  settings
	goneLog   *rate.Limiter

	// mu 串行化 Bind、attach、detach 与 unbind
	mu sync.Mutex

	// bound 当前绑定；nil 表示未绑定
	bound atomic.Pointer[binding]

	// active 当前订阅；nil 表示未订阅
	active atomic.Pointer[subscription]
}

func newAccessor(subscribe subscribeFunc, opts []Option) *Accessor {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return &Accessor{
		subscribe: subscribe,
		settings:  s,
		goneLog:   rate.NewLimiter(s.goneLimit, s.goneBurst),
	}
}

// Bind 把 Accessor 绑定到 host 的 attach/detach 事件
//
// host 已经 attach 时立即订阅。返回的 CancelFunc 解除绑定：移除两个监听器，
// 若已订阅则取消订阅。CancelFunc 可以多次调用，只有第一次生效。
//
// 已经绑定时返回 ErrIllegalState。立即订阅失败时撤销绑定并返回错误。
func (a *Accessor) Bind(host interfaces.Host) (CancelFunc, error) {
	if host == nil {
		return nil, fmt.Errorf("%w: host cannot be nil", ErrInvalidArgument)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	b := &binding{}
	if !a.bound.CompareAndSwap(nil, b) {
		return nil, fmt.Errorf("%w: already bound to a host", ErrIllegalState)
	}

	b.attachReg = host.OnAttach(func(ec interfaces.ExecutionContext) error {
		return a.onAttach(b, ec)
	})
	b.detachReg = host.OnDetach(func() {
		a.onDetach(b)
	})

	// 先注册再检查，不会错过注册期间发生的 attach
	if ec, ok := host.ExecutionContext(); ok {
		if err := a.subscribeLocked(ec); err != nil {
			b.remove()
			a.bound.Store(nil)
			return nil, err
		}
	}

	a.settings.log.Debug("bound", "accessor", a.settings.name, "subscribed", a.IsSubscribed())

	return func() { a.unbind(b) }, nil
}

// IsBound 报告当前是否绑定到宿主
func (a *Accessor) IsBound() bool {
	return a.bound.Load() != nil
}

// IsSubscribed 报告订阅是否处于活动状态
//
// 绑定到已 attach 的宿主时订阅处于活动状态；执行上下文失效后自动变为非活动。
func (a *Accessor) IsSubscribed() bool {
	return a.active.Load() != nil
}

// ============================================================================
// 状态转换
// ============================================================================

func (a *Accessor) onAttach(b *binding, ec interfaces.ExecutionContext) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// 已解除的绑定上残留的通知
	if a.bound.Load() != b {
		return nil
	}
	// Bind 注册监听器后已经按这次 attach 的上下文订阅
	if sub := a.active.Load(); sub != nil && sameContext(sub.ec, ec) {
		return nil
	}
	return a.subscribeLocked(ec)
}

func (a *Accessor) onDetach(b *binding) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.bound.Load() != b {
		return
	}
	a.unsubscribe(triggerDetach)
}

func (a *Accessor) unbind(b *binding) {
	b.once.Do(func() {
		a.mu.Lock()
		defer a.mu.Unlock()

		b.remove()
		if a.bound.Load() != b {
			return
		}
		a.unsubscribe(triggerUnbind)
		a.bound.Store(nil)

		a.settings.log.Debug("unbound", "accessor", a.settings.name)
	})
}

// subscribeLocked 订阅一次；调用方持有 a.mu
func (a *Accessor) subscribeLocked(ec interfaces.ExecutionContext) error {
	if ec == nil {
		return fmt.Errorf("%w: cannot subscribe for a nil execution context", ErrInvalidArgument)
	}
	if a.IsSubscribed() {
		return fmt.Errorf("%w: accessor is already subscribed", ErrIllegalState)
	}

	sub := &subscription{ec: ec}
	cancel, err := a.subscribe(a.forwarder(ec, sub))
	if err != nil {
		return err
	}
	sub.cancel = cancel
	a.active.Store(sub)
	a.settings.metrics.subscribed()

	a.settings.log.Debug("subscribed", "accessor", a.settings.name)

	// 订阅函数内同步触发的事件已经发现执行上下文结束
	if sub.abandoned.Load() {
		a.release(sub, triggerContextGone)
	}
	return nil
}

// unsubscribe 取消当前订阅；未订阅时为空操作
func (a *Accessor) unsubscribe(trigger string) {
	if sub := a.active.Swap(nil); sub != nil {
		a.finish(sub, trigger)
	}
}

// release 仅当 sub 仍是当前订阅时取消它
//
// 旧订阅的 Forward 不会取消之后 attach 建立的新订阅。
func (a *Accessor) release(sub *subscription, trigger string) {
	if a.active.CompareAndSwap(sub, nil) {
		a.finish(sub, trigger)
	}
}

func (a *Accessor) finish(sub *subscription, trigger string) {
	sub.cancel()
	a.settings.metrics.unsubscribed(trigger)
	a.settings.log.Debug("unsubscribed", "accessor", a.settings.name, "trigger", trigger)
}

// sameContext 报告两个执行上下文是否为同一个；不可比较的类型视为不同
func sameContext(x, y interfaces.ExecutionContext) bool {
	if x == nil || y == nil {
		return false
	}
	tx := reflect.TypeOf(x)
	if tx != reflect.TypeOf(y) || !tx.Comparable() {
		return false
	}
	return x == y
}

func (b *binding) remove() {
	if b.attachReg != nil {
		b.attachReg()
	}
	if b.detachReg != nil {
		b.detachReg()
	}
}
