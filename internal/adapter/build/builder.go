package build

import (
	"context"
	"time"
)

// Status 外部构建服务状态
type Status string

const (
	StatusQueued    Status = "QUEUED"
	StatusWorking   Status = "WORKING"
	StatusSuccess   Status = "SUCCESS"
	StatusFailure   Status = "FAILURE"
	StatusTimeout   Status = "TIMEOUT"
	StatusCancelled Status = "CANCELLED"
)

// Terminal 是否为终态
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailure, StatusTimeout, StatusCancelled:
		return true
	}
	return false
}

// 构建阶段（WORKING 细分）
const (
	PhaseBuild  = "build"
	PhaseDeploy = "deploy"
)

// SubmitRequest 构建提交请求
type SubmitRequest struct {
	RepoFullName   string            `json:"repo_full_name"`
	CommitSHA      string            `json:"commit_sha"`
	Branch         string            `json:"branch"`
	ServiceName    string            `json:"service_name"`
	Region         string            `json:"region"`
	Framework      string            `json:"framework"`
	InstallCommand string            `json:"install_command"`
	BuildCommand   string            `json:"build_command"`
	OutputDir      string            `json:"output_dir"`
	BuildEnv       map[string]string `json:"build_env"`
	RuntimeEnv     map[string]string `json:"runtime_env"`
	CPU            string            `json:"cpu"`
	Memory         string            `json:"memory"`
	RepoCredential *string           `json:"repo_credential,omitempty"`
	IdempotencyKey string            `json:"idempotency_key"`
}

// SubmitResult 构建提交结果
type SubmitResult struct {
	BuildID string `json:"build_id"`
	LogURL  string `json:"log_url"`
}

// StatusResult 构建状态查询结果
type StatusResult struct {
	Status     Status     `json:"status"`
	Phase      string     `json:"phase,omitempty"` // WORKING 时的阶段: build/deploy
	StartTime  *time.Time `json:"start_time,omitempty"`
	FinishTime *time.Time `json:"finish_time,omitempty"`
}

// DurationMs 构建耗时（毫秒）；起止时间任一缺失时为 0
func (r *StatusResult) DurationMs() int64 {
	if r.StartTime == nil || r.FinishTime == nil {
		return 0
	}
	return r.FinishTime.Sub(*r.StartTime).Milliseconds()
}

// Builder 外部构建服务适配器接口
type Builder interface {
	// Submit 提交构建；调用方假设该操作不可盲目重试
	Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error)

	// Status 查询构建状态
	Status(ctx context.Context, buildID string) (*StatusResult, error)
}
