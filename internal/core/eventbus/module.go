package eventbus

import (
	"context"

	"go.uber.org/fx"
)

// Announcement 演示程序中广播给所有视图的公告
type Announcement struct {
	From string
	Text string
}

// Module 返回 Fx 模块，提供有状态的公告主题
func Module() fx.Option {
	return fx.Module("eventbus",
		fx.Provide(ProvideAnnouncements),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideAnnouncements 提供公告主题
func ProvideAnnouncements() *Topic[Announcement] {
	return NewTopic[Announcement](BufSize(64), Stateful())
}

func registerLifecycle(lc fx.Lifecycle, topic *Topic[Announcement]) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return topic.Close()
		},
	})
}
