package build

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockBuilder 模拟构建服务
type MockBuilder struct {
	// 可控行为
	statusSequence []StatusResult // 依调用次序返回的状态
	finalStatus    Status         // 序列耗尽后的状态
	submitError    error          // Submit 是否返回错误
	statusError    error          // Status 是否返回错误
	statusErrorFor int            // 前 N 次 Status 调用返回错误（模拟瞬时故障）

	submitCalled int
	submitReqs   []*SubmitRequest
	statusCalled map[string]int
	mu           sync.Mutex
}

// NewMockBuilder 创建模拟构建服务
func NewMockBuilder() *MockBuilder {
	return &MockBuilder{
		finalStatus:  StatusSuccess,
		statusCalled: make(map[string]int),
	}
}

// === 配置方法 ===

func (m *MockBuilder) SetStatusSequence(seq ...StatusResult) *MockBuilder {
	m.statusSequence = seq
	return m
}

func (m *MockBuilder) SetFinalStatus(status Status) *MockBuilder {
	m.finalStatus = status
	return m
}

func (m *MockBuilder) SetSubmitError(err error) *MockBuilder {
	m.submitError = err
	return m
}

func (m *MockBuilder) SetStatusError(err error, times int) *MockBuilder {
	m.statusError = err
	m.statusErrorFor = times
	return m
}

// === 接口实现 ===

func (m *MockBuilder) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	m.mu.Lock()
	m.submitCalled++
	m.submitReqs = append(m.submitReqs, req)
	m.mu.Unlock()

	if m.submitError != nil {
		return nil, m.submitError
	}

	buildID := "mock-build-" + uuid.NewString()[:8]
	return &SubmitResult{
		BuildID: buildID,
		LogURL:  "https://builds.example.com/logs/" + buildID,
	}, nil
}

func (m *MockBuilder) Status(ctx context.Context, buildID string) (*StatusResult, error) {
	m.mu.Lock()
	m.statusCalled[buildID]++
	count := m.statusCalled[buildID]
	m.mu.Unlock()

	if m.statusError != nil && count <= m.statusErrorFor {
		return nil, m.statusError
	}

	// 模拟状态序列
	idx := count - 1
	if m.statusError != nil {
		idx -= m.statusErrorFor
	}
	if idx >= 0 && idx < len(m.statusSequence) {
		result := m.statusSequence[idx]
		return &result, nil
	}

	now := time.Now()
	start := now.Add(-90 * time.Second)
	return &StatusResult{
		Status:     m.finalStatus,
		StartTime:  &start,
		FinishTime: &now,
	}, nil
}

// === 验证方法 ===

func (m *MockBuilder) SubmitCalled() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitCalled
}

func (m *MockBuilder) LastSubmitRequest() *SubmitRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.submitReqs) == 0 {
		return nil
	}
	return m.submitReqs[len(m.submitReqs)-1]
}

func (m *MockBuilder) StatusCalled(buildID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusCalled[buildID]
}
