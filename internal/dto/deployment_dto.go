package dto

import (
	"time"

	"paas-cd/internal/model"
)

// DeploymentListQuery 部署列表查询参数
type DeploymentListQuery struct {
	PageQuery
	ProjectID int64   `form:"project_id" binding:"required,min=1"`
	Status    *string `form:"status" binding:"omitempty,oneof=queued building deploying ready error cancelled"`
	Type      *string `form:"type" binding:"omitempty,oneof=production branch preview"`
	Branch    *string `form:"branch"`
}

// GetDeploymentRequest 部署详情查询
type GetDeploymentRequest struct {
	ID int64 `form:"id" binding:"required,min=1"`
}

// CancelDeploymentRequest 取消部署
type CancelDeploymentRequest struct {
	ID int64 `json:"id" binding:"required,min=1"`
}

// RollbackRequest 回滚请求
type RollbackRequest struct {
	DeploymentID int64 `json:"deployment_id" binding:"required,min=1"`
}

// DeploymentResponse 部署记录响应
type DeploymentResponse struct {
	ID              int64                  `json:"id"`
	ProjectID       int64                  `json:"project_id"`
	Type            string                 `json:"type"`
	Slug            string                 `json:"slug"`
	Branch          string                 `json:"branch"`
	CommitSHA       string                 `json:"commit_sha"`
	CommitMessage   string                 `json:"commit_message"`
	CommitAuthor    string                 `json:"commit_author"`
	PRNumber        *int                   `json:"pr_number,omitempty"`
	Status          string                 `json:"status"`
	Environment     string                 `json:"environment"`
	LogURL          *string                `json:"log_url,omitempty"`
	Revision        *string                `json:"revision,omitempty"`
	URL             *string                `json:"url,omitempty"`
	Aliases         []string               `json:"aliases"`
	AuditResult     map[string]interface{} `json:"audit_result,omitempty"`
	ErrorMessage    *string                `json:"error_message,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	ReadyAt         *time.Time             `json:"ready_at,omitempty"`
	BuildDurationMs int64                  `json:"build_duration_ms"`
}

// NewDeploymentResponse 由模型构建响应
func NewDeploymentResponse(d *model.Deployment) *DeploymentResponse {
	aliases := []string(d.Aliases)
	if aliases == nil {
		aliases = []string{}
	}

	return &DeploymentResponse{
		ID:              d.ID,
		ProjectID:       d.ProjectID,
		Type:            d.Type,
		Slug:            d.Slug,
		Branch:          d.Branch,
		CommitSHA:       d.CommitSHA,
		CommitMessage:   d.CommitMessage,
		CommitAuthor:    d.CommitAuthor,
		PRNumber:        d.PRNumber,
		Status:          string(d.Status),
		Environment:     d.Environment,
		LogURL:          d.LogURL,
		Revision:        d.Revision,
		URL:             d.URL,
		Aliases:         aliases,
		AuditResult:     d.AuditResult,
		ErrorMessage:    d.ErrorMessage,
		CreatedAt:       d.CreatedAt,
		ReadyAt:         d.ReadyAt,
		BuildDurationMs: d.BuildDurationMs,
	}
}
