package dto

import (
	"strings"

	"paas-cd/pkg/constants"
)

// PushEvent push 事件载荷（GitHub 形态）
type PushEvent struct {
	Ref        string `json:"ref" binding:"required"`
	HeadCommit struct {
		ID      string `json:"id"`
		Message string `json:"message"`
		Author  struct {
			Name     string `json:"name"`
			Username string `json:"username"`
		} `json:"author"`
	} `json:"head_commit"`
	Repository struct {
		FullName string `json:"full_name" binding:"required"`
	} `json:"repository"`
	Deleted bool `json:"deleted"` // 分支删除推送，忽略
}

// Branch 返回去掉 refs/heads/ 前缀的分支名
func (e *PushEvent) Branch() string {
	return strings.TrimPrefix(e.Ref, constants.GitRefHeadsPrefix)
}

// PullRequestEvent pull_request 事件载荷
type PullRequestEvent struct {
	Action      string `json:"action" binding:"required"`
	Number      int    `json:"number" binding:"required"`
	PullRequest struct {
		Title string `json:"title"`
		Head  struct {
			Ref string `json:"ref"`
			SHA string `json:"sha"`
		} `json:"head"`
		User struct {
			Login string `json:"login"`
		} `json:"user"`
	} `json:"pull_request"`
	Repository struct {
		FullName string `json:"full_name" binding:"required"`
	} `json:"repository"`
}

// PingEvent ping 事件载荷
type PingEvent struct {
	Zen    string `json:"zen"`
	HookID int64  `json:"hook_id"`
}
