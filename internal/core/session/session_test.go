package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-accessor/pkg/interfaces"
)

func TestSession_RunsTasksInOrder(t *testing.T) {
	s := New()
	defer s.Close()

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		require.NoError(t, s.Submit(func() { got = append(got, i) }))
	}
	require.NoError(t, s.Sync(context.Background()))

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

// TestSession_Serialized 并发提交的任务不会并发执行
func TestSession_Serialized(t *testing.T) {
	s := New()
	defer s.Close()

	var running, overlap atomic.Int32
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			for j := 0; j < 50; j++ {
				err := s.Submit(func() {
					if running.Add(1) > 1 {
						overlap.Add(1)
					}
					running.Add(-1)
				})
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.NoError(t, s.Sync(context.Background()))

	assert.EqualValues(t, 0, overlap.Load())
}

func TestSession_SubmitAfterClose(t *testing.T) {
	s := New(WithID("closed-session"))
	require.NoError(t, s.Close())

	err := s.Submit(func() {})
	assert.ErrorIs(t, err, interfaces.ErrContextGone)
	assert.Contains(t, err.Error(), "closed-session")
	assert.False(t, s.Alive())

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("session loop did not exit")
	}
}

func TestSession_CloseIdempotent(t *testing.T) {
	s := New()
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestSession_NilTask(t *testing.T) {
	s := New()
	defer s.Close()
	assert.ErrorIs(t, s.Submit(nil), ErrNilTask)
}

// TestSession_PanicRecovered 任务 panic 后会话继续运行
func TestSession_PanicRecovered(t *testing.T) {
	s := New()
	defer s.Close()

	require.NoError(t, s.Submit(func() { panic("boom") }))

	var ran atomic.Bool
	require.NoError(t, s.Submit(func() { ran.Store(true) }))
	require.NoError(t, s.Sync(context.Background()))

	assert.True(t, ran.Load())
	assert.True(t, s.Alive())
}

// TestSession_CloseFromTask 在任务内部关闭会话，后续任务不再执行
func TestSession_CloseFromTask(t *testing.T) {
	s := New()

	var after atomic.Bool
	require.NoError(t, s.Submit(func() { _ = s.Close() }))
	_ = s.Submit(func() { after.Store(true) })

	<-s.Done()
	assert.False(t, after.Load())
}

// TestSession_CloseDoesNotWaitForRunningTask Close 立即返回，Done 在任务结束后关闭
func TestSession_CloseDoesNotWaitForRunningTask(t *testing.T) {
	s := New()

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, s.Submit(func() {
		close(started)
		<-release
	}))
	<-started

	closed := make(chan struct{})
	go func() {
		_ = s.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close blocked on a running task")
	}
	assert.False(t, s.Alive())

	select {
	case <-s.Done():
		t.Fatal("loop exited while a task was still running")
	default:
	}

	close(release)
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("session loop did not exit")
	}
}

func TestSession_SyncAfterClose(t *testing.T) {
	s := New()
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Sync(context.Background()), interfaces.ErrContextGone)
}

func TestSession_SyncTimeout(t *testing.T) {
	s := New()
	defer s.Close()

	block := make(chan struct{})
	defer close(block)
	require.NoError(t, s.Submit(func() { <-block }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Sync(ctx), context.DeadlineExceeded)
}

func TestManager_CloseAll(t *testing.T) {
	m := NewManager(WithQueueWarnThreshold(10))
	a := m.Open()
	b := m.Open()
	assert.NotEqual(t, a.ID(), b.ID())

	require.NoError(t, m.CloseAll(context.Background()))
	assert.False(t, a.Alive())
	assert.False(t, b.Alive())

	assert.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestModule_ClosesSessionsOnStop(t *testing.T) {
	var m *Manager
	app := fxtest.New(t,
		Module(),
		fx.Populate(&m),
	)
	app.RequireStart()

	s := m.Open()
	assert.True(t, s.Alive())

	app.RequireStop()
	assert.False(t, s.Alive())
}
