package core

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegistryCancelStopsGoroutine(t *testing.T) {
	r := NewPollerRegistry()
	done := make(chan struct{})

	r.Start(1, func(ctx context.Context) {
		<-ctx.Done()
		close(done)
	})
	assert.Equal(t, 1, r.Active())

	assert.True(t, r.Cancel(1))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("协程未在取消后退出")
	}
	assert.False(t, r.Cancel(1))
}

func TestRegistryRestartCancelsOldGoroutine(t *testing.T) {
	r := NewPollerRegistry()
	firstCancelled := make(chan struct{})

	r.Start(1, func(ctx context.Context) {
		<-ctx.Done()
		close(firstCancelled)
	})
	r.Start(1, func(ctx context.Context) {
		<-ctx.Done()
	})

	select {
	case <-firstCancelled:
	case <-time.After(time.Second):
		t.Fatal("旧协程未被新协程替换取消")
	}
	assert.Equal(t, 1, r.Active())
	r.Stop()
}

func TestRegistryStopWaitsForAll(t *testing.T) {
	r := NewPollerRegistry()
	var running int32

	for i := int64(1); i <= 5; i++ {
		r.Start(i, func(ctx context.Context) {
			atomic.AddInt32(&running, 1)
			<-ctx.Done()
			atomic.AddInt32(&running, -1)
		})
	}

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&running) == 5
	}, time.Second, time.Millisecond)

	r.Stop()
	assert.Equal(t, int32(0), atomic.LoadInt32(&running))
	assert.Equal(t, 0, r.Active())
}

func TestRegistryGoroutineSelfRemovesOnExit(t *testing.T) {
	r := NewPollerRegistry()

	r.Start(1, func(ctx context.Context) {})

	assert.Eventually(t, func() bool {
		return r.Active() == 0
	}, time.Second, time.Millisecond)
}
