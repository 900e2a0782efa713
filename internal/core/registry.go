package core

import (
	"context"
	"sync"
)

type pollHandle struct {
	cancel context.CancelFunc
}

// PollerRegistry 进程内的轮询协程注册表
// 每个活跃部署对应一个可取消的轮询协程，取消部署时据此中断轮询
type PollerRegistry struct {
	mu      sync.Mutex
	handles map[int64]*pollHandle
	wg      sync.WaitGroup
}

// NewPollerRegistry 创建注册表
func NewPollerRegistry() *PollerRegistry {
	return &PollerRegistry{
		handles: make(map[int64]*pollHandle),
	}
}

// Start 为指定部署启动轮询协程
// 同一部署重复启动时，旧协程先被取消
func (r *PollerRegistry) Start(deploymentID int64, fn func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(context.Background())
	handle := &pollHandle{cancel: cancel}

	r.mu.Lock()
	if old, ok := r.handles[deploymentID]; ok {
		old.cancel()
	}
	r.handles[deploymentID] = handle
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.remove(deploymentID, handle)
		fn(ctx)
	}()
}

// Cancel 取消指定部署的轮询协程，返回是否存在活跃协程
func (r *PollerRegistry) Cancel(deploymentID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	handle, ok := r.handles[deploymentID]
	if ok {
		handle.cancel()
		delete(r.handles, deploymentID)
	}
	return ok
}

// Active 当前活跃的轮询协程数
func (r *PollerRegistry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Stop 取消全部轮询协程并等待退出（优雅关闭）
func (r *PollerRegistry) Stop() {
	r.mu.Lock()
	for id, handle := range r.handles {
		handle.cancel()
		delete(r.handles, id)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

// remove 仅当映射仍指向本协程时摘除，避免误删重启后的新协程
func (r *PollerRegistry) remove(deploymentID int64, handle *pollHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.handles[deploymentID]; ok && cur == handle {
		delete(r.handles, deploymentID)
	}
}
