package git

import (
	"fmt"

	"paas-cd/internal/pkg/git/api"
	"paas-cd/internal/pkg/git/github"
)

// NewProvider 按平台类型创建Git提供者
// 入站事件与 PR 语义目前只有 GitHub 一种形态
func NewProvider(platform api.PlatformType, config *api.ProviderConfig) (api.GitProvider, error) {
	switch platform {
	case api.PlatformGitHub:
		return github.NewProvider(config)
	default:
		return nil, fmt.Errorf("不支持的平台类型: %s", platform)
	}
}
