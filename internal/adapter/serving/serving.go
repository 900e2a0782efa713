package serving

import "context"

// Service 托管平台上的服务实例
type Service struct {
	Name     string `json:"name"`
	Revision string `json:"revision"` // 当前承载流量的 revision
	URL      string `json:"url"`
}

// Platform 托管平台适配器接口
// revision 是构建产物在平台上的不可变实例，流量与标签独立于部署记录存在
type Platform interface {
	// GetService 查询服务的当前 revision 与公网地址
	GetService(ctx context.Context, name string) (*Service, error)

	// SetTraffic 将服务指定比例的流量切到 revision
	SetTraffic(ctx context.Context, name, revision string, percent int) error

	// SetTag 将流量标签绑定到 revision
	SetTag(ctx context.Context, name, tag, revision string) error

	// RemoveTag 移除流量标签
	// expectedRevision 非空时仅在标签仍指向该 revision 时移除
	RemoveTag(ctx context.Context, name, tag, expectedRevision string) error

	// ListServices 按名称前缀枚举服务
	ListServices(ctx context.Context, prefix string) ([]Service, error)

	// DeleteService 删除服务
	DeleteService(ctx context.Context, name string) error

	// DeleteJobs 删除项目的全部计划任务
	DeleteJobs(ctx context.Context, project string) error

	// DeleteDomainMapping 删除域名映射
	DeleteDomainMapping(ctx context.Context, domain string) error
}
