package serving

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockPlatform 模拟托管平台
type MockPlatform struct {
	services map[string]*Service
	tags     map[string]string // "service/tag" -> revision

	// 可控行为
	getError       error
	trafficError   error
	tagError       error
	removeTagError error
	deleteError    error
	jobsError      error
	domainError    error

	// 调用记录
	trafficCalls   []TrafficCall
	tagCalls       []TagCall
	removeTagCalls []TagCall
	deletedNames   []string
	deletedJobs    []string
	deletedDomains []string
	mu             sync.Mutex
}

// TrafficCall 流量切换调用记录
type TrafficCall struct {
	Service  string
	Revision string
	Percent  int
}

// TagCall 标签操作调用记录
type TagCall struct {
	Service  string
	Tag      string
	Revision string
	Expected string
}

// NewMockPlatform 创建模拟托管平台
func NewMockPlatform() *MockPlatform {
	return &MockPlatform{
		services: make(map[string]*Service),
		tags:     make(map[string]string),
	}
}

// === 配置方法 ===

func (m *MockPlatform) AddService(name, revision, url string) *MockPlatform {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[name] = &Service{Name: name, Revision: revision, URL: url}
	return m
}

func (m *MockPlatform) SetGetError(err error) *MockPlatform       { m.getError = err; return m }
func (m *MockPlatform) SetTrafficError(err error) *MockPlatform   { m.trafficError = err; return m }
func (m *MockPlatform) SetTagError(err error) *MockPlatform       { m.tagError = err; return m }
func (m *MockPlatform) SetRemoveTagError(err error) *MockPlatform { m.removeTagError = err; return m }
func (m *MockPlatform) SetDeleteError(err error) *MockPlatform    { m.deleteError = err; return m }
func (m *MockPlatform) SetJobsError(err error) *MockPlatform      { m.jobsError = err; return m }
func (m *MockPlatform) SetDomainError(err error) *MockPlatform    { m.domainError = err; return m }

// === 接口实现 ===

func (m *MockPlatform) GetService(ctx context.Context, name string) (*Service, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	svc, ok := m.services[name]
	if !ok {
		return nil, fmt.Errorf("服务不存在: %s", name)
	}
	copied := *svc
	return &copied, nil
}

func (m *MockPlatform) SetTraffic(ctx context.Context, name, revision string, percent int) error {
	if m.trafficError != nil {
		return m.trafficError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trafficCalls = append(m.trafficCalls, TrafficCall{Service: name, Revision: revision, Percent: percent})
	if svc, ok := m.services[name]; ok && percent == 100 {
		svc.Revision = revision
	}
	return nil
}

func (m *MockPlatform) SetTag(ctx context.Context, name, tag, revision string) error {
	if m.tagError != nil {
		return m.tagError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tagCalls = append(m.tagCalls, TagCall{Service: name, Tag: tag, Revision: revision})
	m.tags[name+"/"+tag] = revision
	return nil
}

func (m *MockPlatform) RemoveTag(ctx context.Context, name, tag, expectedRevision string) error {
	if m.removeTagError != nil {
		return m.removeTagError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeTagCalls = append(m.removeTagCalls, TagCall{Service: name, Tag: tag, Expected: expectedRevision})
	key := name + "/" + tag
	if expectedRevision != "" && m.tags[key] != expectedRevision {
		// 标签已被并发重绑，跳过
		return nil
	}
	delete(m.tags, key)
	return nil
}

func (m *MockPlatform) ListServices(ctx context.Context, prefix string) ([]Service, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Service
	for name, svc := range m.services {
		if strings.HasPrefix(name, prefix) {
			result = append(result, *svc)
		}
	}
	return result, nil
}

func (m *MockPlatform) DeleteService(ctx context.Context, name string) error {
	m.mu.Lock()
	m.deletedNames = append(m.deletedNames, name)
	m.mu.Unlock()
	if m.deleteError != nil {
		return m.deleteError
	}
	m.mu.Lock()
	delete(m.services, name)
	m.mu.Unlock()
	return nil
}

func (m *MockPlatform) DeleteJobs(ctx context.Context, project string) error {
	m.mu.Lock()
	m.deletedJobs = append(m.deletedJobs, project)
	m.mu.Unlock()
	return m.jobsError
}

func (m *MockPlatform) DeleteDomainMapping(ctx context.Context, domain string) error {
	m.mu.Lock()
	m.deletedDomains = append(m.deletedDomains, domain)
	m.mu.Unlock()
	return m.domainError
}

// === 验证方法 ===

func (m *MockPlatform) TrafficCalls() []TrafficCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TrafficCall(nil), m.trafficCalls...)
}

func (m *MockPlatform) TagCalls() []TagCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TagCall(nil), m.tagCalls...)
}

func (m *MockPlatform) RemoveTagCalls() []TagCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TagCall(nil), m.removeTagCalls...)
}

func (m *MockPlatform) DeletedServices() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deletedNames...)
}

func (m *MockPlatform) DeletedJobs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deletedJobs...)
}

func (m *MockPlatform) DeletedDomains() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deletedDomains...)
}

// Tag 返回标签当前指向的 revision
func (m *MockPlatform) Tag(service, tag string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tags[service+"/"+tag]
}
