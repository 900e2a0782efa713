package api

// PlatformType 平台类型
type PlatformType string

const (
	PlatformGitHub PlatformType = "github"
)

// ProviderConfig 提供者配置
type ProviderConfig struct {
	BaseURL string // 平台基础URL，GitHub 可省略
	Token   string // 访问Token
}

// CommitState commit status 状态
type CommitState string

const (
	CommitStatePending CommitState = "pending"
	CommitStateSuccess CommitState = "success"
	CommitStateFailure CommitState = "failure"
	CommitStateError   CommitState = "error"
)

// CommitStatus commit status 更新内容
type CommitStatus struct {
	State       CommitState `json:"state"`
	TargetURL   string      `json:"target_url,omitempty"`
	Description string      `json:"description,omitempty"`
	Context     string      `json:"context"`
}

// RepositoryInfo 仓库信息
type RepositoryInfo struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	CloneURL      string `json:"clone_url"`
	DefaultBranch string `json:"default_branch"`
	Private       bool   `json:"private"`
	HTMLURL       string `json:"html_url"`
}
