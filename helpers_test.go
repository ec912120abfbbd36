package accessor

import (
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/dep2p/go-accessor/pkg/interfaces"
)

// ============================================================================
//                              Mock 实现
// ============================================================================

// fakeContext 手动驱动的执行上下文
type fakeContext struct {
	mu    sync.Mutex
	tasks []func()

	// gone 上下文已结束，Alive 返回 false
	gone atomic.Bool
	// goneOnSubmit Alive 仍返回 true，但 Submit 报告已结束
	goneOnSubmit atomic.Bool
}

func newFakeContext() *fakeContext {
	return &fakeContext{}
}

func (c *fakeContext) Submit(task func()) error {
	if c.gone.Load() || c.goneOnSubmit.Load() {
		return interfaces.ErrContextGone
	}
	c.mu.Lock()
	c.tasks = append(c.tasks, task)
	c.mu.Unlock()
	return nil
}

func (c *fakeContext) Alive() bool {
	return !c.gone.Load()
}

func (c *fakeContext) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tasks)
}

// runAll 依次执行已提交的任务
func (c *fakeContext) runAll() {
	c.mu.Lock()
	tasks := c.tasks
	c.tasks = nil
	c.mu.Unlock()

	for _, task := range tasks {
		task()
	}
}

// fakeHost 手动驱动 attach/detach 的宿主
type fakeHost struct {
	mu      sync.Mutex
	nextID  int
	attachL map[int]interfaces.AttachListener
	detachL map[int]interfaces.DetachListener
	ec      interfaces.ExecutionContext
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		attachL: make(map[int]interfaces.AttachListener),
		detachL: make(map[int]interfaces.DetachListener),
	}
}

func (h *fakeHost) OnAttach(l interfaces.AttachListener) interfaces.Registration {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.attachL[id] = l
	return func() {
		h.mu.Lock()
		delete(h.attachL, id)
		h.mu.Unlock()
	}
}

func (h *fakeHost) OnDetach(l interfaces.DetachListener) interfaces.Registration {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.detachL[id] = l
	return func() {
		h.mu.Lock()
		delete(h.detachL, id)
		h.mu.Unlock()
	}
}

func (h *fakeHost) ExecutionContext() (interfaces.ExecutionContext, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ec, h.ec != nil
}

func (h *fakeHost) listenerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.attachL) + len(h.detachL)
}

// attach 不检查是否已 attach，便于构造重复 attach
func (h *fakeHost) attach(ec interfaces.ExecutionContext) error {
	h.mu.Lock()
	h.ec = ec
	listeners := make([]interfaces.AttachListener, 0, len(h.attachL))
	for _, l := range h.attachL {
		listeners = append(listeners, l)
	}
	h.mu.Unlock()

	var err error
	for _, l := range listeners {
		err = multierr.Append(err, l(ec))
	}
	return err
}

// attachAsync 同步切换执行上下文，在另一个 goroutine 上调用 attach 监听器
func (h *fakeHost) attachAsync(ec interfaces.ExecutionContext) <-chan error {
	h.mu.Lock()
	h.ec = ec
	listeners := make([]interfaces.AttachListener, 0, len(h.attachL))
	for _, l := range h.attachL {
		listeners = append(listeners, l)
	}
	h.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		var err error
		for _, l := range listeners {
			err = multierr.Append(err, l(ec))
		}
		done <- err
	}()
	return done
}

// attachDuringLookup 在 Bind 查询执行上下文的瞬间 attach
//
// Bind 看到新的上下文，而 attach 监听器仍在等待 Accessor 的锁。
type attachDuringLookup struct {
	*fakeHost
	ec       interfaces.ExecutionContext
	once     sync.Once
	attached <-chan error
}

func (h *attachDuringLookup) ExecutionContext() (interfaces.ExecutionContext, bool) {
	h.once.Do(func() {
		h.attached = h.fakeHost.attachAsync(h.ec)
	})
	return h.fakeHost.ExecutionContext()
}

func (h *fakeHost) detach() {
	h.mu.Lock()
	h.ec = nil
	listeners := make([]interfaces.DetachListener, 0, len(h.detachL))
	for _, l := range h.detachL {
		listeners = append(listeners, l)
	}
	h.mu.Unlock()

	for _, l := range listeners {
		l()
	}
}

// countingSource 记录订阅/取消订阅次数的事件源
type countingSource struct {
	mu       sync.Mutex
	callback func(string)

	subscribes   atomic.Int32
	unsubscribes atomic.Int32
	live         atomic.Int32
	maxLive      atomic.Int32
}

func (s *countingSource) subscribe(cb func(string)) CancelFunc {
	s.subscribes.Add(1)
	n := s.live.Add(1)
	for {
		m := s.maxLive.Load()
		if n <= m || s.maxLive.CompareAndSwap(m, n) {
			break
		}
	}

	s.mu.Lock()
	s.callback = cb
	s.mu.Unlock()

	var cancelled atomic.Bool
	return func() {
		if cancelled.Swap(true) {
			panic("cancel func called twice")
		}
		s.unsubscribes.Add(1)
		s.live.Add(-1)
	}
}

// fire 模拟事件源在任意 goroutine 上触发回调
func (s *countingSource) fire(value string) {
	s.mu.Lock()
	cb := s.callback
	s.mu.Unlock()
	if cb != nil {
		cb(value)
	}
}

// recorder 记录在执行上下文中收到的值
type recorder struct {
	mu     sync.Mutex
	values []string
}

func (r *recorder) add(v string) {
	r.mu.Lock()
	r.values = append(r.values, v)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.values...)
}
