package session

import (
	"context"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/multierr"
)

// Manager 跟踪进程内的会话，停止时关闭全部会话
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	opts     []Option
}

// NewManager 创建会话管理器，opts 应用于它创建的每个会话
func NewManager(opts ...Option) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		opts:     opts,
	}
}

// Open 创建并跟踪一个新会话
//
// 会话结束后自动从管理器中移除。
func (m *Manager) Open(opts ...Option) *Session {
	all := append(append([]Option(nil), m.opts...), opts...)
	s := New(all...)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	go func() {
		<-s.Done()
		m.mu.Lock()
		delete(m.sessions, s.ID())
		m.mu.Unlock()
	}()
	return s
}

// Len 返回存活的会话数量
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// CloseAll 关闭全部会话并等待它们退出
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	var err error
	for _, s := range sessions {
		err = multierr.Append(err, s.Close())
	}
	for _, s := range sessions {
		select {
		case <-s.Done():
		case <-ctx.Done():
			return multierr.Append(err, ctx.Err())
		}
	}
	return err
}

// ============================================================================
// Fx 模块
// ============================================================================

// Params 模块输入
type Params struct {
	fx.In

	Options []Option `optional:"true"`
}

// Module 提供 *Manager，停止时关闭全部会话
func Module() fx.Option {
	return fx.Module("session",
		fx.Provide(func(p Params) *Manager {
			return NewManager(p.Options...)
		}),
		fx.Invoke(func(lc fx.Lifecycle, m *Manager) {
			lc.Append(fx.Hook{
				OnStop: m.CloseAll,
			})
		}),
	)
}
