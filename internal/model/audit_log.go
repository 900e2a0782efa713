package model

import (
	"gorm.io/datatypes"
)

const AuditLogTableName = "audit_logs"

// AuditLog 审计日志
type AuditLog struct {
	BaseModel

	ProjectID    int64             `gorm:"column:project_id;not null;index" json:"project_id"`
	DeploymentID *int64            `gorm:"column:deployment_id;index" json:"deployment_id,omitempty"`
	Action       string            `gorm:"size:64;not null" json:"action"`
	Actor        string            `gorm:"size:255;not null" json:"actor"` // 用户名或 "webhook"
	Detail       datatypes.JSONMap `gorm:"type:json" json:"detail,omitempty"`
}

// TableName 指定表名
func (AuditLog) TableName() string {
	return AuditLogTableName
}
