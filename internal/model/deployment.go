package model

import (
	"time"

	"gorm.io/datatypes"
)

const DeploymentTableName = "deployments"

// DeploymentStatus 部署状态
type DeploymentStatus string

const (
	DeploymentStatusQueued    DeploymentStatus = "queued"
	DeploymentStatusBuilding  DeploymentStatus = "building"
	DeploymentStatusDeploying DeploymentStatus = "deploying"
	DeploymentStatusReady     DeploymentStatus = "ready"
	DeploymentStatusError     DeploymentStatus = "error"
	DeploymentStatusCancelled DeploymentStatus = "cancelled"
)

// deploymentTransitions 合法的状态转换表
// ready/error/cancelled 为终态，不出现在键集中
var deploymentTransitions = map[DeploymentStatus][]DeploymentStatus{
	DeploymentStatusQueued:    {DeploymentStatusBuilding, DeploymentStatusDeploying, DeploymentStatusError, DeploymentStatusCancelled},
	DeploymentStatusBuilding:  {DeploymentStatusBuilding, DeploymentStatusDeploying, DeploymentStatusReady, DeploymentStatusError, DeploymentStatusCancelled},
	DeploymentStatusDeploying: {DeploymentStatusDeploying, DeploymentStatusBuilding, DeploymentStatusReady, DeploymentStatusError},
}

// Terminal 是否为终态
func (s DeploymentStatus) Terminal() bool {
	switch s {
	case DeploymentStatusReady, DeploymentStatusError, DeploymentStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo 是否允许转换到目标状态
func (s DeploymentStatus) CanTransitionTo(to DeploymentStatus) bool {
	for _, allowed := range deploymentTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Deployment 部署记录（一次提交的构建与上线尝试）
type Deployment struct {
	BaseModel

	ProjectID int64  `gorm:"column:project_id;not null;index" json:"project_id"`
	Type      string `gorm:"size:20;not null" json:"type"` // production/branch/preview
	Slug      string `gorm:"size:63;not null" json:"slug"` // 托管平台服务名

	// Git 信息
	Branch        string `gorm:"size:255;not null" json:"branch"`
	CommitSHA     string `gorm:"column:commit_sha;size:40;not null;index" json:"commit_sha"`
	CommitMessage string `gorm:"type:text" json:"commit_message"`
	CommitAuthor  string `gorm:"size:255" json:"commit_author"`
	PRNumber      *int   `gorm:"column:pr_number" json:"pr_number,omitempty"`

	// 状态
	Status      DeploymentStatus `gorm:"size:20;not null;default:queued;index" json:"status"`
	Environment string           `gorm:"size:20;not null" json:"environment"` // production/preview

	// 构建信息
	BuildID *string `gorm:"column:build_id;size:64" json:"build_id,omitempty"`
	LogURL  *string `gorm:"column:log_url;size:512" json:"log_url,omitempty"`

	// 上线信息（仅成功时写入）
	Revision *string                     `gorm:"size:128" json:"revision,omitempty"`
	URL      *string                     `gorm:"size:512" json:"url,omitempty"`
	Aliases  datatypes.JSONSlice[string] `gorm:"type:json" json:"aliases"`

	// 性能审计结果
	AuditResult datatypes.JSONMap `gorm:"type:json" json:"audit_result,omitempty"`

	// 错误信息
	ErrorMessage *string `gorm:"type:text" json:"error_message,omitempty"`

	// 时间追踪
	ReadyAt         *time.Time `json:"ready_at,omitempty"`
	BuildDurationMs int64      `gorm:"column:build_duration_ms;default:0" json:"build_duration_ms"`

	// Relations
	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
}

// TableName 指定表名
func (Deployment) TableName() string {
	return DeploymentTableName
}

// HasAlias 别名是否已绑定在该部署上
func (d *Deployment) HasAlias(alias string) bool {
	for _, a := range d.Aliases {
		if a == alias {
			return true
		}
	}
	return false
}
