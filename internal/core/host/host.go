// Package host 实现可 attach/detach 的宿主
//
// Host 相当于界面中的一个组件：attach 到某个会话（执行上下文）时触发
// attach 监听器，detach 时触发 detach 监听器。执行上下文提供
// Done() 通道时，上下文结束会自动 detach。
package host

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/dep2p/go-accessor/internal/util/logger"
	"github.com/dep2p/go-accessor/pkg/interfaces"
)

var log = logger.Logger("core/host")

var (
	// ErrAlreadyAttached 宿主已经 attach
	ErrAlreadyAttached = errors.New("host already attached")

	// ErrNilContext attach 时传入 nil 执行上下文
	ErrNilContext = errors.New("nil execution context")
)

// doner 结束时关闭 Done 通道的执行上下文
type doner interface {
	Done() <-chan struct{}
}

type listener[F any] struct {
	id uint64
	fn F
}

// Host 可 attach/detach 的宿主
type Host struct {
	id   string
	name string
	log  *slog.Logger

	// transition 串行化 Attach/Detach，调用监听器期间持有
	transition sync.Mutex

	// mu 保护以下字段，调用监听器期间不持有
	mu     sync.Mutex
	nextID uint64
	attach []listener[interfaces.AttachListener]
	detach []listener[interfaces.DetachListener]
	ec     interfaces.ExecutionContext
	// unwatch 停止监视当前执行上下文的结束
	unwatch chan struct{}
}

// 编译期接口检查
var _ interfaces.Host = (*Host)(nil)

// New 创建一个未 attach 的宿主
func New(name string) *Host {
	h := &Host{
		id:   uuid.NewString(),
		name: name,
	}
	h.log = log.With("host", name, "id", h.id)
	return h
}

// ID 返回宿主 ID
func (h *Host) ID() string {
	return h.id
}

// Name 返回宿主名称
func (h *Host) Name() string {
	return h.name
}

// OnAttach 注册 attach 监听器，按注册顺序调用
func (h *Host) OnAttach(fn interfaces.AttachListener) interfaces.Registration {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	h.attach = append(h.attach, listener[interfaces.AttachListener]{id: id, fn: fn})

	return h.registration(func() {
		h.attach = removeListener(h.attach, id)
	})
}

// OnDetach 注册 detach 监听器，按注册顺序调用
func (h *Host) OnDetach(fn interfaces.DetachListener) interfaces.Registration {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	h.detach = append(h.detach, listener[interfaces.DetachListener]{id: id, fn: fn})

	return h.registration(func() {
		h.detach = removeListener(h.detach, id)
	})
}

// ExecutionContext 返回当前执行上下文
func (h *Host) ExecutionContext() (interfaces.ExecutionContext, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ec, h.ec != nil
}

// Attached 报告宿主是否已 attach
func (h *Host) Attached() bool {
	_, ok := h.ExecutionContext()
	return ok
}

// Attach 把宿主 attach 到 ec 并调用 attach 监听器
//
// 所有监听器都会被调用，返回它们错误的合并结果。
func (h *Host) Attach(ec interfaces.ExecutionContext) error {
	if ec == nil {
		return ErrNilContext
	}

	h.transition.Lock()
	defer h.transition.Unlock()

	h.mu.Lock()
	if h.ec != nil {
		h.mu.Unlock()
		return ErrAlreadyAttached
	}
	h.ec = ec
	listeners := append([]listener[interfaces.AttachListener](nil), h.attach...)
	if d, ok := ec.(doner); ok {
		h.unwatch = make(chan struct{})
		go h.watch(ec, d.Done(), h.unwatch)
	}
	h.mu.Unlock()

	h.log.Debug("attached", "listeners", len(listeners))

	var err error
	for _, l := range listeners {
		err = multierr.Append(err, l.fn(ec))
	}
	return err
}

// Detach 调用 detach 监听器；未 attach 时为空操作
func (h *Host) Detach() {
	h.transition.Lock()
	defer h.transition.Unlock()

	h.detachLocked(nil)
}

// Close detach 并移除全部监听器
func (h *Host) Close() error {
	h.Detach()

	h.mu.Lock()
	h.attach = nil
	h.detach = nil
	h.mu.Unlock()
	return nil
}

// ============================================================================
// 内部方法
// ============================================================================

// detachLocked 调用方持有 transition；only 非 nil 时仅在当前上下文为 only 时 detach
func (h *Host) detachLocked(only interfaces.ExecutionContext) {
	h.mu.Lock()
	if h.ec == nil || (only != nil && h.ec != only) {
		h.mu.Unlock()
		return
	}
	h.ec = nil
	if h.unwatch != nil {
		close(h.unwatch)
		h.unwatch = nil
	}
	listeners := append([]listener[interfaces.DetachListener](nil), h.detach...)
	h.mu.Unlock()

	h.log.Debug("detached", "listeners", len(listeners))

	for _, l := range listeners {
		l.fn()
	}
}

// watch 执行上下文结束时自动 detach
func (h *Host) watch(ec interfaces.ExecutionContext, done <-chan struct{}, stop <-chan struct{}) {
	select {
	case <-done:
		h.transition.Lock()
		defer h.transition.Unlock()
		h.detachLocked(ec)
	case <-stop:
	}
}

// registration 返回幂等的移除函数；调用方持有 h.mu 时不得调用返回值
func (h *Host) registration(remove func()) interfaces.Registration {
	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			remove()
			h.mu.Unlock()
		})
	}
}

func removeListener[F any](ls []listener[F], id uint64) []listener[F] {
	for i, l := range ls {
		if l.id == id {
			return append(ls[:i:i], ls[i+1:]...)
		}
	}
	return ls
}
