package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	accessor "github.com/dep2p/go-accessor"
	"github.com/dep2p/go-accessor/config"
	"github.com/dep2p/go-accessor/internal/core/eventbus"
	"github.com/dep2p/go-accessor/internal/core/host"
	"github.com/dep2p/go-accessor/internal/core/session"
	"github.com/dep2p/go-accessor/internal/core/ticker"
	"github.com/dep2p/go-accessor/internal/util/logger"
)

var log = logger.Logger("app")

var (
	// ErrNotStarted 演示尚未开始
	ErrNotStarted = errors.New("demo not started")

	// ErrEnded 演示会话已结束
	ErrEnded = errors.New("demo session ended")

	// ErrUnknownDisplay 视图名称不存在
	ErrUnknownDisplay = errors.New("unknown display")
)

// 视图名称
const (
	DisplayBasic         = "basic"
	DisplayAction        = "action"
	DisplayGreeting      = "greeting"
	DisplayUnsubscriber  = "unsubscriber"
	DisplayAnnouncements = "announcements"
	DisplayGlobal        = "global"
)

// Report 演示结束时的统计
type Report struct {
	// Steps 切换次数
	Steps int

	// Messages 每个视图收到的消息数
	Messages map[string]int

	// ActiveSubscriptions 定时事件源上仍存活的订阅数
	ActiveSubscriptions int

	// Announcements 公告主题上的订阅者数量
	Announcements int
}

// Demo 把一组视图通过 Accessor 绑定到事件源，并在会话中切换它们的 attach 状态
//
// 每个视图演示一种订阅形态：
//   - basic: 单值回调，事件源返回取消函数
//   - action: 无参回调
//   - greeting: 事件源的回调形态与视图不同，由订阅函数转换
//   - unsubscriber: 订阅与取消订阅分离
//   - announcements: 订阅进程内公告主题
//   - global: 不跟随视图 attach，而是手动绑定到根宿主
type Demo struct {
	cfg      *config.Config
	clk      clock.Clock
	sessions *session.Manager
	source   *ticker.Source
	topic    *eventbus.Topic[eventbus.Announcement]

	// displays 按切换顺序排列
	displays []*MessageDisplay
	byName   map[string]*MessageDisplay
	unbinds  []accessor.CancelFunc

	// root 会话期间保持 attach 的根宿主
	root           *host.Host
	global         *MessageDisplay
	globalAccessor *accessor.Accessor

	mu           sync.Mutex
	sess         *session.Session
	globalCancel accessor.CancelFunc
	steps        int
	ended        bool
}

// DemoParams Demo 的依赖
type DemoParams struct {
	fx.In

	Config   *config.Config
	Clock    clock.Clock
	Sessions *session.Manager
	Source   *ticker.Source
	Topic    *eventbus.Topic[eventbus.Announcement]
	Metrics  *accessor.Metrics `optional:"true"`
}

// NewDemo 创建视图并把各自的 Accessor 绑定上去
func NewDemo(p DemoParams) (*Demo, error) {
	d := &Demo{
		cfg:      p.Config,
		clk:      p.Clock,
		sessions: p.Sessions,
		source:   p.Source,
		topic:    p.Topic,
		byName:   make(map[string]*MessageDisplay),
		root:     host.New("root"),
		global:   NewMessageDisplay(DisplayGlobal, p.Clock),
	}

	opts := func(name string) []accessor.Option {
		return []accessor.Option{
			accessor.WithName(name),
			accessor.WithMetrics(p.Metrics),
			accessor.WithGoneLogLimit(
				rate.Every(p.Config.Dispatch.GoneLogInterval.Duration()),
				p.Config.Dispatch.GoneLogBurst,
			),
		}
	}

	for _, name := range []string{DisplayBasic, DisplayAction, DisplayGreeting, DisplayUnsubscriber, DisplayAnnouncements} {
		display := NewMessageDisplay(name, p.Clock)
		d.displays = append(d.displays, display)
		d.byName[name] = display
	}

	var err error
	err = multierr.Append(err, d.bindConsumer(d.byName[DisplayBasic], func(display *MessageDisplay) (*accessor.Accessor, error) {
		b, err := accessor.OfConsumer(display.AddMessage)
		if err != nil {
			return nil, err
		}
		return b.WithSubscriber(d.subscribeTicks, opts(display.Name())...)
	}))
	err = multierr.Append(err, d.bindConsumer(d.byName[DisplayAction], func(display *MessageDisplay) (*accessor.Accessor, error) {
		b, err := accessor.OfAction(display.GenerateMessage)
		if err != nil {
			return nil, err
		}
		return b.WithSubscriber(func(action func()) accessor.CancelFunc {
			return accessor.CancelFunc(d.source.SubscribeAction(action))
		}, opts(display.Name())...)
	}))
	err = multierr.Append(err, d.bindConsumer(d.byName[DisplayGreeting], func(display *MessageDisplay) (*accessor.Accessor, error) {
		b, err := accessor.OfConsumer(display.AddMessage)
		if err != nil {
			return nil, err
		}
		return b.WithSubscriber(func(consumer func(string)) accessor.CancelFunc {
			return accessor.CancelFunc(d.source.SubscribeGreeting(func(msg, greeting string) {
				consumer(msg + " " + greeting)
			}))
		}, opts(display.Name())...)
	}))
	err = multierr.Append(err, d.bindConsumer(d.byName[DisplayUnsubscriber], func(display *MessageDisplay) (*accessor.Accessor, error) {
		b, err := accessor.OfConsumer(display.AddMessage)
		if err != nil {
			return nil, err
		}
		return accessor.WithSubscriberAndUnsubscriber(b,
			d.source.SubscribeStopper,
			func(stop func()) { stop() },
			opts(display.Name())...)
	}))
	err = multierr.Append(err, d.bindConsumer(d.byName[DisplayAnnouncements], func(display *MessageDisplay) (*accessor.Accessor, error) {
		b, err := accessor.OfConsumer(display.AddAnnouncement)
		if err != nil {
			return nil, err
		}
		return b.WithSubscriber(d.subscribeAnnouncements, opts(display.Name())...)
	}))

	globalBuilder, gerr := accessor.OfConsumer(d.global.AddMessage)
	if gerr == nil {
		d.globalAccessor, gerr = globalBuilder.WithSubscriber(d.subscribeTicks, opts(DisplayGlobal)...)
	}
	err = multierr.Append(err, gerr)

	if err != nil {
		return nil, multierr.Append(err, d.Close())
	}
	return d, nil
}

// bindConsumer 创建 display 的 Accessor 并绑定到 display 自身
func (d *Demo) bindConsumer(display *MessageDisplay, build func(*MessageDisplay) (*accessor.Accessor, error)) error {
	acc, err := build(display)
	if err != nil {
		return fmt.Errorf("build %s accessor: %w", display.Name(), err)
	}
	unbind, err := acc.Bind(display)
	if err != nil {
		return fmt.Errorf("bind %s accessor: %w", display.Name(), err)
	}
	d.unbinds = append(d.unbinds, unbind)
	return nil
}

func (d *Demo) subscribeTicks(consumer func(string)) accessor.CancelFunc {
	return accessor.CancelFunc(d.source.Subscribe(consumer))
}

// subscribeAnnouncements 主题已关闭时返回 nil，Accessor 以 ErrIllegalState 拒绝该订阅
func (d *Demo) subscribeAnnouncements(consumer func(eventbus.Announcement)) accessor.CancelFunc {
	cancel, err := d.topic.Subscribe(consumer)
	if err != nil {
		log.Warn("announcement subscription failed", "err", err)
		return nil
	}
	return accessor.CancelFunc(cancel)
}

// ============================================================================
// 会话控制
// ============================================================================

// Start 打开会话，attach 根宿主和全部视图，并绑定 global 视图
func (d *Demo) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ended {
		return ErrEnded
	}
	if d.sess != nil {
		return nil
	}

	d.sess = d.sessions.Open()
	log.Info("demo session started", "session", d.sess.ID())

	err := d.root.Attach(d.sess)
	for _, display := range d.displays {
		err = multierr.Append(err, d.setAttachedLocked(display, true))
	}
	return multierr.Append(err, d.setGlobalLocked(true))
}

// SetAttached attach 或 detach 指定视图
func (d *Demo) SetAttached(name string, attached bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkLocked(); err != nil {
		return err
	}
	display, ok := d.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDisplay, name)
	}
	return d.setAttachedLocked(display, attached)
}

// SetGlobal 绑定或解绑 global 视图的 Accessor
func (d *Demo) SetGlobal(bound bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkLocked(); err != nil {
		return err
	}
	return d.setGlobalLocked(bound)
}

// Toggle 执行一次切换
//
// 第 n 次切换翻转下标 i 满足 n%(i+1) == 0 的视图，global 视图排在最后。
func (d *Demo) Toggle() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkLocked(); err != nil {
		return err
	}
	d.steps++

	var err error
	for i, display := range d.displays {
		if d.steps%(i+1) == 0 {
			err = multierr.Append(err, d.setAttachedLocked(display, !display.Attached()))
		}
	}
	if d.steps%(len(d.displays)+1) == 0 {
		err = multierr.Append(err, d.setGlobalLocked(d.globalCancel == nil))
	}
	return err
}

// Run 开始会话，按配置的间隔切换视图，到期或 ctx 取消后结束会话
func (d *Demo) Run(ctx context.Context) (Report, error) {
	if err := d.Start(); err != nil {
		return Report{}, err
	}

	toggle := d.clk.Ticker(d.cfg.Demo.ToggleInterval.Duration())
	defer toggle.Stop()
	deadline := d.clk.Timer(d.cfg.Demo.Duration.Duration())
	defer deadline.Stop()

	var err error
loop:
	for {
		select {
		case <-ctx.Done():
			log.Info("demo interrupted")
			break loop
		case <-deadline.C:
			break loop
		case <-toggle.C:
			err = multierr.Append(err, d.Toggle())
		}
	}

	report, endErr := d.End()
	return report, multierr.Append(err, endErr)
}

// End 结束会话
//
// 会话关闭后宿主随之 detach，所有订阅被取消。可重复调用。
func (d *Demo) End() (Report, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sess == nil {
		return Report{}, ErrNotStarted
	}

	var err error
	if !d.ended {
		d.ended = true
		err = d.sess.Close()
		for _, display := range d.displays {
			display.Detach()
		}
		d.root.Detach()
		log.Info("demo session ended", "session", d.sess.ID(), "steps", d.steps)
	}
	return d.reportLocked(), err
}

// Report 返回当前统计
func (d *Demo) Report() Report {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reportLocked()
}

// Display 按名称查找视图，包括 global 视图
func (d *Demo) Display(name string) (*MessageDisplay, bool) {
	if name == DisplayGlobal {
		return d.global, true
	}
	display, ok := d.byName[name]
	return display, ok
}

// Sync 等待会话中已提交的任务执行完毕
func (d *Demo) Sync(ctx context.Context) error {
	d.mu.Lock()
	sess := d.sess
	d.mu.Unlock()

	if sess == nil {
		return ErrNotStarted
	}
	return sess.Sync(ctx)
}

// Close 解除全部绑定并关闭宿主
func (d *Demo) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, unbind := range d.unbinds {
		unbind()
	}
	d.unbinds = nil
	if d.globalCancel != nil {
		d.globalCancel()
		d.globalCancel = nil
	}

	var err error
	for _, display := range d.displays {
		err = multierr.Append(err, display.Close())
	}
	return multierr.Append(err, d.root.Close())
}

// ============================================================================
// 内部方法
// ============================================================================

func (d *Demo) checkLocked() error {
	if d.sess == nil {
		return ErrNotStarted
	}
	if d.ended {
		return ErrEnded
	}
	return nil
}

func (d *Demo) setAttachedLocked(display *MessageDisplay, attached bool) error {
	if display.Attached() == attached {
		return nil
	}

	var err error
	if attached {
		err = display.Attach(d.sess)
	} else {
		display.Detach()
	}
	d.announce(display.Name(), attached)
	return err
}

func (d *Demo) setGlobalLocked(bound bool) error {
	if bound == (d.globalCancel != nil) {
		return nil
	}

	if !bound {
		d.globalCancel()
		d.globalCancel = nil
		d.announce(DisplayGlobal, false)
		return nil
	}

	cancel, err := d.globalAccessor.Bind(d.root)
	if err != nil {
		return fmt.Errorf("bind global accessor: %w", err)
	}
	d.globalCancel = cancel
	d.announce(DisplayGlobal, true)
	return nil
}

func (d *Demo) announce(name string, on bool) {
	state := "detached"
	if on {
		state = "attached"
	}
	if err := d.topic.Publish(eventbus.Announcement{From: "demo", Text: name + " " + state}); err != nil {
		log.Debug("announcement not published", "err", err)
	}
}

func (d *Demo) reportLocked() Report {
	r := Report{
		Steps:               d.steps,
		Messages:            make(map[string]int, len(d.displays)+1),
		ActiveSubscriptions: d.source.Active(),
		Announcements:       d.topic.Subscribers(),
	}
	for _, display := range d.displays {
		r.Messages[display.Name()] = display.Len()
	}
	r.Messages[DisplayGlobal] = d.global.Len()
	return r
}

// registerDemo 停止时解除全部绑定
func registerDemo(lc fx.Lifecycle, d *Demo) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return d.Close()
		},
	})
}
