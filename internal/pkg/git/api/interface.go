package api

import "context"

// GitProvider Git平台提供者接口
type GitProvider interface {
	// TestConnection 测试连接
	TestConnection() error

	// GetRepository 获取仓库信息
	GetRepository(ctx context.Context, fullName string) (*RepositoryInfo, error)

	// CreateCommitStatus 更新 commit status
	CreateCommitStatus(ctx context.Context, fullName, sha string, status *CommitStatus) error

	// CreatePullRequestComment 在 PR 下追加评论（markdown）
	CreatePullRequestComment(ctx context.Context, fullName string, number int, body string) error

	// GetPlatformType 获取平台类型
	GetPlatformType() PlatformType
}
