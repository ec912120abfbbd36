package app

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-accessor/config"
	"github.com/dep2p/go-accessor/internal/core/ticker"
)

// 定时事件源上的订阅：basic、action、greeting、unsubscriber、global
const tickerViews = 5

func newTestDemo(t *testing.T, cfg *config.Config, opts ...Option) (*Demo, *Bootstrap) {
	t.Helper()
	if cfg == nil {
		cfg = config.NewConfig()
	}
	opts = append([]Option{WithRegistry(prometheus.NewRegistry())}, opts...)
	b := NewBootstrap(cfg, opts...)
	demo, err := b.Build()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, b.Stop(context.Background()))
	})
	return demo, b
}

func display(t *testing.T, d *Demo, name string) *MessageDisplay {
	t.Helper()
	md, ok := d.Display(name)
	require.True(t, ok, name)
	return md
}

// ============================================================================
// 会话控制
// ============================================================================

func TestDemo_NotStarted(t *testing.T) {
	demo, _ := newTestDemo(t, nil, WithClock(clock.NewMock()))

	assert.ErrorIs(t, demo.Toggle(), ErrNotStarted)
	assert.ErrorIs(t, demo.SetGlobal(true), ErrNotStarted)
	_, err := demo.End()
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.Equal(t, 0, demo.Report().ActiveSubscriptions)
}

func TestDemo_StartSubscribesEveryView(t *testing.T) {
	demo, _ := newTestDemo(t, nil, WithClock(clock.NewMock()))

	require.NoError(t, demo.Start())
	// 重复 Start 为空操作
	require.NoError(t, demo.Start())

	r := demo.Report()
	assert.Equal(t, tickerViews, r.ActiveSubscriptions)
	assert.Equal(t, 1, r.Announcements)
}

func TestDemo_DeliversOnSession(t *testing.T) {
	mock := clock.NewMock()
	demo, _ := newTestDemo(t, nil, WithClock(mock))
	require.NoError(t, demo.Start())

	mock.Add(time.Second)

	for _, name := range []string{DisplayBasic, DisplayAction, DisplayGreeting, DisplayUnsubscriber, DisplayGlobal, DisplayAnnouncements} {
		md := display(t, demo, name)
		require.Eventually(t, func() bool { return md.Len() > 0 }, 2*time.Second, 5*time.Millisecond, name)
	}
	require.NoError(t, demo.Sync(context.Background()))

	assert.True(t, strings.HasPrefix(display(t, demo, DisplayBasic).Messages()[0], "Time is currently "))
	assert.True(t, strings.HasPrefix(display(t, demo, DisplayAction).Messages()[0], "Generated at "))
	assert.True(t, strings.HasSuffix(display(t, demo, DisplayGreeting).Messages()[0], " Only for you"))
	assert.True(t, strings.HasPrefix(display(t, demo, DisplayAnnouncements).Messages()[0], "[demo] "))
}

func TestDemo_SetAttached(t *testing.T) {
	demo, _ := newTestDemo(t, nil, WithClock(clock.NewMock()))
	require.NoError(t, demo.Start())

	require.NoError(t, demo.SetAttached(DisplayBasic, false))
	assert.False(t, display(t, demo, DisplayBasic).Attached())
	assert.Equal(t, tickerViews-1, demo.Report().ActiveSubscriptions)

	// 重复 detach 为空操作
	require.NoError(t, demo.SetAttached(DisplayBasic, false))
	assert.Equal(t, tickerViews-1, demo.Report().ActiveSubscriptions)

	require.NoError(t, demo.SetAttached(DisplayBasic, true))
	assert.Equal(t, tickerViews, demo.Report().ActiveSubscriptions)

	require.NoError(t, demo.SetAttached(DisplayAnnouncements, false))
	assert.Equal(t, 0, demo.Report().Announcements)

	assert.ErrorIs(t, demo.SetAttached("missing", true), ErrUnknownDisplay)
}

func TestDemo_SetGlobal(t *testing.T) {
	demo, _ := newTestDemo(t, nil, WithClock(clock.NewMock()))
	require.NoError(t, demo.Start())

	require.NoError(t, demo.SetGlobal(false))
	assert.Equal(t, tickerViews-1, demo.Report().ActiveSubscriptions)

	require.NoError(t, demo.SetGlobal(false))
	require.NoError(t, demo.SetGlobal(true))
	assert.Equal(t, tickerViews, demo.Report().ActiveSubscriptions)
}

func TestDemo_Toggle(t *testing.T) {
	demo, _ := newTestDemo(t, nil, WithClock(clock.NewMock()))
	require.NoError(t, demo.Start())

	// 第 1 次只翻转 basic
	require.NoError(t, demo.Toggle())
	assert.False(t, display(t, demo, DisplayBasic).Attached())
	assert.True(t, display(t, demo, DisplayAction).Attached())
	assert.Equal(t, tickerViews-1, demo.Report().ActiveSubscriptions)

	// 第 2 次翻转 basic 和 action
	require.NoError(t, demo.Toggle())
	assert.True(t, display(t, demo, DisplayBasic).Attached())
	assert.False(t, display(t, demo, DisplayAction).Attached())
	assert.Equal(t, tickerViews-1, demo.Report().ActiveSubscriptions)

	assert.Equal(t, 2, demo.Report().Steps)
}

func TestDemo_EndCancelsSubscriptions(t *testing.T) {
	mock := clock.NewMock()
	demo, _ := newTestDemo(t, nil, WithClock(mock))
	require.NoError(t, demo.Start())

	r, err := demo.End()
	require.NoError(t, err)
	assert.Equal(t, 0, r.ActiveSubscriptions)
	assert.Equal(t, 0, r.Announcements)

	// 会话结束后不再有消息
	before := display(t, demo, DisplayBasic).Len()
	mock.Add(time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, before, display(t, demo, DisplayBasic).Len())

	assert.ErrorIs(t, demo.Toggle(), ErrEnded)
	assert.ErrorIs(t, demo.SetAttached(DisplayBasic, true), ErrEnded)
	assert.ErrorIs(t, demo.Start(), ErrEnded)

	_, err = demo.End()
	assert.NoError(t, err)
}

func TestDemo_Run(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Ticker.Interval = config.Duration(10 * time.Millisecond)
	cfg.Demo.Duration = config.Duration(300 * time.Millisecond)
	cfg.Demo.ToggleInterval = config.Duration(40 * time.Millisecond)
	demo, _ := newTestDemo(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r, err := demo.Run(ctx)
	require.NoError(t, err)
	assert.Positive(t, r.Steps)
	assert.Equal(t, 0, r.ActiveSubscriptions)
	assert.Positive(t, r.Messages[DisplayUnsubscriber]+r.Messages[DisplayGreeting])
}

func TestDemo_RunInterrupted(t *testing.T) {
	demo, _ := newTestDemo(t, nil, WithClock(clock.NewMock()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := demo.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Steps)
	assert.Equal(t, 0, r.ActiveSubscriptions)
}

// ============================================================================
// 引导与模块
// ============================================================================

func TestBootstrap_InvalidConfig(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Ticker.Interval = 0

	_, err := NewBootstrap(cfg).Build()
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestBootstrap_StopBeforeBuild(t *testing.T) {
	assert.ErrorIs(t, NewBootstrap(nil).Stop(context.Background()), ErrNotBuilt)
}

func TestBootstrap_MetricsEndpoint(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Metrics.Enable = true
	cfg.Metrics.Addr = "127.0.0.1:0"
	demo, b := newTestDemo(t, cfg, WithClock(clock.NewMock()))
	require.NotEmpty(t, b.MetricsAddr())

	require.NoError(t, demo.Start())

	resp, err := http.Get("http://" + b.MetricsAddr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "accessor_active_subscriptions 6")
	assert.Contains(t, string(body), "accessor_subscribes_total 6")
}

func TestBootstrap_MetricsDisabled(t *testing.T) {
	_, b := newTestDemo(t, nil, WithClock(clock.NewMock()))
	assert.Empty(t, b.MetricsAddr())
}

func TestModules_Lifecycle(t *testing.T) {
	o := defaultOptions()
	o.clock = clock.NewMock()
	o.registry = prometheus.NewRegistry()

	var (
		demo   *Demo
		source *ticker.Source
	)
	app := fxtest.New(t,
		fx.Options(buildModules(config.NewConfig(), &o)...),
		fx.Populate(&demo, &source),
	)
	app.RequireStart()

	require.NoError(t, demo.Start())
	assert.Equal(t, tickerViews, source.Active())

	// 停止时解除绑定并关闭事件源
	app.RequireStop()
	assert.Equal(t, 0, source.Active())
}
