// Package ticker 实现按固定间隔触发的事件源
//
// 每个订阅拥有自己的定时器和 goroutine，回调在该 goroutine 上运行。
// 提供多种订阅形态，覆盖 Accessor 支持的各种事件源签名。
package ticker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-accessor/internal/util/logger"
)

var log = logger.Logger("core/ticker")

// DefaultInterval 默认触发间隔
const DefaultInterval = time.Second

// CancelFunc 取消订阅，可多次调用
type CancelFunc func()

// Source 定时事件源
type Source struct {
	clk      clock.Clock
	interval time.Duration

	mu     sync.Mutex
	nextID uint64
	active map[uint64]func()
}

// New 创建事件源；interval <= 0 时使用 DefaultInterval
func New(clk clock.Clock, interval time.Duration) *Source {
	if clk == nil {
		clk = clock.New()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Source{
		clk:      clk,
		interval: interval,
		active:   make(map[uint64]func()),
	}
}

// Subscribe 每个间隔以当前时间消息调用一次 consumer
func (s *Source) Subscribe(consumer func(string)) CancelFunc {
	return s.start(func(now time.Time) {
		consumer(fmt.Sprintf("Time is currently %d", now.UnixMilli()))
	})
}

// SubscribeAction 每个间隔调用一次 action
func (s *Source) SubscribeAction(action func()) CancelFunc {
	return s.start(func(time.Time) { action() })
}

// SubscribeStopper 与 Subscribe 相同，但以普通函数形式返回取消句柄
func (s *Source) SubscribeStopper(consumer func(string)) func() {
	return s.Subscribe(consumer)
}

// SubscribeGreeting 每个间隔以消息和问候语调用一次 listener
func (s *Source) SubscribeGreeting(listener func(msg, greeting string)) CancelFunc {
	return s.Subscribe(func(msg string) { listener(msg, "Only for you") })
}

// Active 返回活动订阅数量
func (s *Source) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Close 取消全部订阅
func (s *Source) Close() error {
	s.mu.Lock()
	cancels := make([]func(), 0, len(s.active))
	for _, cancel := range s.active {
		cancels = append(cancels, cancel)
	}
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	return nil
}

func (s *Source) start(fire func(now time.Time)) CancelFunc {
	t := s.clk.Ticker(s.interval)
	stop := make(chan struct{})

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.active, id)
			s.mu.Unlock()

			close(stop)
			t.Stop()
			log.Debug("subscription canceled", "id", id)
		})
	}
	s.active[id] = cancel
	s.mu.Unlock()

	log.Debug("subscription added", "id", id, "interval", s.interval)

	go func() {
		for {
			select {
			case <-stop:
				return
			case now := <-t.C:
				select {
				case <-stop:
					return
				default:
				}
				fire(now)
			}
		}
	}()

	return cancel
}

// ============================================================================
// Fx 模块
// ============================================================================

// Params 模块输入
type Params struct {
	fx.In

	Clock    clock.Clock   `optional:"true"`
	Interval time.Duration `name:"ticker_interval" optional:"true"`
}

// Module 提供 *Source，停止时取消全部订阅
func Module() fx.Option {
	return fx.Module("ticker",
		fx.Provide(func(p Params) *Source {
			return New(p.Clock, p.Interval)
		}),
		fx.Invoke(func(lc fx.Lifecycle, s *Source) {
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					return s.Close()
				},
			})
		}),
	)
}
