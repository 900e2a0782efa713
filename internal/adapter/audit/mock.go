package audit

import (
	"context"
	"sync"
)

// MockAuditor 用于测试的性能检测器
type MockAuditor struct {
	mu      sync.Mutex
	report  *Report
	err     error
	targets []string
}

// NewMockAuditor 创建测试用检测器
func NewMockAuditor() *MockAuditor {
	return &MockAuditor{
		report: &Report{Score: 95},
	}
}

// SetReport 设置返回的检测结果
func (m *MockAuditor) SetReport(r *Report) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.report = r
}

// SetError 设置返回的错误
func (m *MockAuditor) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Run 记录目标并返回预设结果
func (m *MockAuditor) Run(ctx context.Context, targetURL string) (*Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targets = append(m.targets, targetURL)
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}

// Targets 返回所有检测过的目标地址
func (m *MockAuditor) Targets() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.targets...)
}
