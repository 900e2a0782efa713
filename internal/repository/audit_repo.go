package repository

import (
	"gorm.io/gorm"

	"paas-cd/internal/model"
	pkgErrors "paas-cd/pkg/errors"
)

// AuditLogRepository 审计日志仓储接口
type AuditLogRepository interface {
	Create(entry *model.AuditLog) error
	ListByProject(projectID int64, limit int) ([]*model.AuditLog, error)
}

type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository 创建审计日志仓储实例
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

// Create 追加审计日志
func (r *auditLogRepository) Create(entry *model.AuditLog) error {
	if err := r.db.Create(entry).Error; err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "写入审计日志失败", err)
	}
	return nil
}

// ListByProject 查询项目审计日志
func (r *auditLogRepository) ListByProject(projectID int64, limit int) ([]*model.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var entries []*model.AuditLog
	err := r.db.Where("project_id = ?", projectID).
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询审计日志失败", err)
	}
	return entries, nil
}
