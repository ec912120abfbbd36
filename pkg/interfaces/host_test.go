package interfaces_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-accessor/pkg/interfaces"
)

// ============================================================================
// Mock 实现
// ============================================================================

// MockContext 立即执行任务的执行上下文
type MockContext struct {
	gone bool
}

func (c *MockContext) Submit(task func()) error {
	if c.gone {
		return fmt.Errorf("mock: %w", interfaces.ErrContextGone)
	}
	task()
	return nil
}

func (c *MockContext) Alive() bool {
	return !c.gone
}

// MockHost 单个监听器的宿主
type MockHost struct {
	ec       interfaces.ExecutionContext
	onAttach interfaces.AttachListener
	onDetach interfaces.DetachListener
}

func (h *MockHost) OnAttach(l interfaces.AttachListener) interfaces.Registration {
	h.onAttach = l
	return func() { h.onAttach = nil }
}

func (h *MockHost) OnDetach(l interfaces.DetachListener) interfaces.Registration {
	h.onDetach = l
	return func() { h.onDetach = nil }
}

func (h *MockHost) ExecutionContext() (interfaces.ExecutionContext, bool) {
	return h.ec, h.ec != nil
}

// 编译期接口检查
var (
	_ interfaces.Host             = (*MockHost)(nil)
	_ interfaces.ExecutionContext = (*MockContext)(nil)
)

// ============================================================================
// 测试
// ============================================================================

func TestErrContextGone_Wrapped(t *testing.T) {
	ec := &MockContext{gone: true}

	err := ec.Submit(func() {})
	require.Error(t, err)
	assert.True(t, errors.Is(err, interfaces.ErrContextGone))
	assert.False(t, ec.Alive())
}

func TestHost_ListenerContract(t *testing.T) {
	h := &MockHost{}
	ec := &MockContext{}

	var attached interfaces.ExecutionContext
	detached := 0
	removeAttach := h.OnAttach(func(got interfaces.ExecutionContext) error {
		attached = got
		return nil
	})
	removeDetach := h.OnDetach(func() { detached++ })

	_, ok := h.ExecutionContext()
	assert.False(t, ok)

	h.ec = ec
	require.NoError(t, h.onAttach(ec))
	assert.Same(t, ec, attached)

	got, ok := h.ExecutionContext()
	require.True(t, ok)
	ran := false
	require.NoError(t, got.Submit(func() { ran = true }))
	assert.True(t, ran)

	h.onDetach()
	assert.Equal(t, 1, detached)

	removeAttach()
	removeDetach()
	assert.Nil(t, h.onAttach)
	assert.Nil(t, h.onDetach)
}
