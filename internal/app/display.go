package app

import (
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-accessor/internal/core/eventbus"
	"github.com/dep2p/go-accessor/internal/core/host"
)

// MessageDisplay 演示用的消息视图
//
// 视图本身是一个 Host；消息只应在它所在会话的执行上下文中追加。
type MessageDisplay struct {
	*host.Host

	clk clock.Clock

	mu       sync.Mutex
	messages []string
}

// NewMessageDisplay 创建未 attach 的视图
func NewMessageDisplay(name string, clk clock.Clock) *MessageDisplay {
	return &MessageDisplay{
		Host: host.New(name),
		clk:  clk,
	}
}

// AddMessage 追加一条消息
func (d *MessageDisplay) AddMessage(message string) {
	d.mu.Lock()
	d.messages = append(d.messages, message)
	d.mu.Unlock()
}

// GenerateMessage 以当前时间生成一条消息
func (d *MessageDisplay) GenerateMessage() {
	d.AddMessage(fmt.Sprintf("Generated at %d", d.clk.Now().UnixMilli()))
}

// AddAnnouncement 把公告渲染为一条消息
func (d *MessageDisplay) AddAnnouncement(a eventbus.Announcement) {
	d.AddMessage(fmt.Sprintf("[%s] %s", a.From, a.Text))
}

// Messages 返回消息快照
func (d *MessageDisplay) Messages() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.messages...)
}

// Len 返回消息数量
func (d *MessageDisplay) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.messages)
}
