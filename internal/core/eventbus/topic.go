package eventbus

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-accessor/internal/util/logger"
)

var log = logger.Logger("core/eventbus")

var (
	// ErrClosed 主题已关闭
	ErrClosed = errors.New("topic closed")
	// ErrNilCallback 订阅回调为 nil
	ErrNilCallback = errors.New("nil callback")
)

// CancelFunc 取消订阅，可多次调用
type CancelFunc func()

// ============================================================================
// Topic
// ============================================================================

// Topic 类型为 T 的事件主题
type Topic[T any] struct {
	settings settings

	mu      sync.Mutex
	sinks   []*sink[T]
	last    T
	hasLast bool
	closed  bool

	dropCount atomic.Int64
}

// NewTopic 创建事件主题
func NewTopic[T any](opts ...Option) *Topic[T] {
	s := settings{buffer: 16}
	for _, opt := range opts {
		opt(&s)
	}
	return &Topic[T]{settings: s}
}

// Subscribe 订阅事件，callback 在该订阅独占的投递 goroutine 上按发布顺序运行
func (t *Topic[T]) Subscribe(callback func(T)) (CancelFunc, error) {
	if callback == nil {
		return nil, ErrNilCallback
	}

	s := &sink[T]{
		topic:    t,
		out:      make(chan T, t.settings.buffer),
		callback: callback,
		done:     make(chan struct{}),
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	t.sinks = append(t.sinks, s)
	if t.settings.stateful && t.hasLast {
		s.out <- t.last
	}
	t.mu.Unlock()

	go s.pump()
	return s.close, nil
}

// Publish 向所有订阅者发布事件，从不阻塞
func (t *Topic[T]) Publish(event T) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if t.settings.stateful {
		t.last = event
		t.hasLast = true
	}

	for _, s := range t.sinks {
		select {
		case s.out <- event:
		default:
			dropped := t.dropCount.Add(1)
			// 每丢弃 100 个事件警告一次
			if dropped%100 == 1 {
				log.Warn("slow subscriber, dropping events",
					"dropped", dropped,
					"buffer", t.settings.buffer)
			}
		}
	}
	return nil
}

// Subscribers 返回当前订阅者数量
func (t *Topic[T]) Subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sinks)
}

// Dropped 返回因缓冲区满被丢弃的事件数
func (t *Topic[T]) Dropped() int64 {
	return t.dropCount.Load()
}

// Close 关闭主题并取消全部订阅
func (t *Topic[T]) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	sinks := t.sinks
	t.sinks = nil
	t.mu.Unlock()

	for _, s := range sinks {
		s.shutdown()
	}
	return nil
}

func (t *Topic[T]) remove(s *sink[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, cur := range t.sinks {
		if cur == s {
			t.sinks = append(t.sinks[:i:i], t.sinks[i+1:]...)
			return
		}
	}
}

// ============================================================================
// sink
// ============================================================================

// sink 单个订阅者
type sink[T any] struct {
	topic     *Topic[T]
	out       chan T
	callback  func(T)
	done      chan struct{}
	closeOnce sync.Once
}

// pump 在投递 goroutine 上依次调用回调
func (s *sink[T]) pump() {
	for {
		select {
		case <-s.done:
			return
		case event := <-s.out:
			select {
			case <-s.done:
				return
			default:
			}
			s.callback(event)
		}
	}
}

func (s *sink[T]) close() {
	s.topic.remove(s)
	s.shutdown()
}

func (s *sink[T]) shutdown() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}
