package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dep2p/go-accessor/internal/util/logger"
	"github.com/dep2p/go-accessor/pkg/interfaces"
)

var log = logger.Logger("core/session")

// ErrNilTask 提交了 nil 任务
var ErrNilTask = errors.New("nil task")

// Session 串行执行上下文
type Session struct {
	id  string
	log *slog.Logger

	mu    sync.Mutex
	queue []func()

	// warnAt 队列长度达到该值时告警，0 表示不告警
	warnAt int

	wake      chan struct{}
	closing   chan struct{}
	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
}

// 编译期接口检查
var _ interfaces.ExecutionContext = (*Session)(nil)

// Option 配置 Session
type Option func(*Session)

// WithID 指定会话 ID，默认使用随机 UUID
func WithID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

// WithQueueWarnThreshold 队列积压达到 n 时输出警告
func WithQueueWarnThreshold(n int) Option {
	return func(s *Session) {
		s.warnAt = n
	}
}

// New 创建并启动会话
func New(opts ...Option) *Session {
	s := &Session{
		id:      uuid.NewString(),
		wake:    make(chan struct{}, 1),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = log.With("session", s.id)

	go s.loop()
	return s
}

// ID 返回会话 ID
func (s *Session) ID() string {
	return s.id
}

// Submit 将任务排入队列
func (s *Session) Submit(task func()) error {
	if task == nil {
		return ErrNilTask
	}

	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		return fmt.Errorf("session %s: %w", s.id, interfaces.ErrContextGone)
	}
	s.queue = append(s.queue, task)
	pending := len(s.queue)
	s.mu.Unlock()

	if s.warnAt > 0 && pending == s.warnAt {
		s.log.Warn("task queue backlog", "pending", pending)
	}

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

// Alive 报告会话是否仍接受任务
func (s *Session) Alive() bool {
	return !s.closed.Load()
}

// Done 返回会话 goroutine 退出时关闭的通道
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close 结束会话
//
// 未执行的任务被丢弃。Close 不等待正在执行的任务，
// 需要等待时使用 Done。
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed.Store(true)
		dropped := len(s.queue)
		s.queue = nil
		s.mu.Unlock()

		close(s.closing)
		s.log.Debug("session closed", "dropped", dropped)
	})
	return nil
}

// Sync 等待此前提交的所有任务执行完毕
func (s *Session) Sync(ctx context.Context) error {
	reached := make(chan struct{})
	if err := s.Submit(func() { close(reached) }); err != nil {
		return err
	}

	select {
	case <-reached:
		return nil
	case <-s.closing:
		return fmt.Errorf("session %s: %w", s.id, interfaces.ErrContextGone)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ============================================================================
// 内部方法
// ============================================================================

func (s *Session) loop() {
	defer close(s.done)

	for {
		select {
		case <-s.closing:
			return
		case <-s.wake:
		}

		for {
			task, ok := s.next()
			if !ok {
				break
			}
			s.run(task)
		}
	}
}

// next 取出下一个任务；会话关闭后返回 false
func (s *Session) next() (func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() || len(s.queue) == 0 {
		return nil, false
	}
	task := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	return task, true
}

func (s *Session) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("task panicked", "panic", r)
		}
	}()
	task()
}
