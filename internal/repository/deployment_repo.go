package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"paas-cd/internal/dto"
	"paas-cd/internal/model"
	pkgErrors "paas-cd/pkg/errors"
)

// DeploymentRepository 部署记录仓储接口
type DeploymentRepository interface {
	Create(dep *model.Deployment) error
	FindByID(id int64) (*model.Deployment, error)
	FindActiveByCommit(projectID int64, commitSHA, depType string) (*model.Deployment, error)
	ListActiveBySlug(projectID int64, slug string) ([]*model.Deployment, error)
	ListActiveByProject(projectID int64) ([]*model.Deployment, error)
	List(query *dto.DeploymentListQuery) ([]*model.Deployment, int64, error)
	ListStuck(updatedBefore time.Time) ([]*model.Deployment, error)

	// UpdateStatus 状态写入，终态行拒绝任何状态变更
	UpdateStatus(id int64, to model.DeploymentStatus, mutate func(*model.Deployment)) error

	// UpdateAuditResult 附加性能审计结果，不触碰状态
	UpdateAuditResult(id int64, result map[string]interface{}) error

	// ReassignAlias 在同一事务内将别名从项目下所有部署摘除并绑定到目标部署
	ReassignAlias(projectID, deploymentID int64, alias string) error

	// RemoveAlias 仅当别名仍绑定在目标部署上时移除
	RemoveAlias(projectID, deploymentID int64, alias string) error

	DeleteByProject(tx *gorm.DB, projectID int64) error
}

type deploymentRepository struct {
	db *gorm.DB
}

// NewDeploymentRepository 创建部署记录仓储实例
func NewDeploymentRepository(db *gorm.DB) DeploymentRepository {
	return &deploymentRepository{db: db}
}

// Create 创建部署记录
func (r *deploymentRepository) Create(dep *model.Deployment) error {
	if err := r.db.Create(dep).Error; err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "创建部署记录失败", err)
	}
	return nil
}

// FindByID 根据ID查询部署记录
func (r *deploymentRepository) FindByID(id int64) (*model.Deployment, error) {
	var dep model.Deployment
	err := r.db.Preload("Project").First(&dep, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgErrors.ErrDeploymentNotFound
		}
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询部署记录失败", err)
	}
	return &dep, nil
}

// FindActiveByCommit 查询同一提交的非终态部署（webhook 去重）
func (r *deploymentRepository) FindActiveByCommit(projectID int64, commitSHA, depType string) (*model.Deployment, error) {
	var dep model.Deployment
	err := r.db.
		Where("project_id = ? AND commit_sha = ? AND type = ?", projectID, commitSHA, depType).
		Where("status NOT IN ?", []model.DeploymentStatus{
			model.DeploymentStatusReady,
			model.DeploymentStatusError,
			model.DeploymentStatusCancelled,
		}).
		First(&dep).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgErrors.ErrDeploymentNotFound
		}
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询部署记录失败", err)
	}
	return &dep, nil
}

// ListActiveBySlug 查询同一服务下的全部非终态部署（预览环境回收）
func (r *deploymentRepository) ListActiveBySlug(projectID int64, slug string) ([]*model.Deployment, error) {
	var deps []*model.Deployment
	err := r.db.
		Where("project_id = ? AND slug = ?", projectID, slug).
		Where("status NOT IN ?", []model.DeploymentStatus{
			model.DeploymentStatusReady,
			model.DeploymentStatusError,
			model.DeploymentStatusCancelled,
		}).
		Find(&deps).Error
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询部署记录失败", err)
	}
	return deps, nil
}

// ListActiveByProject 查询项目下全部非终态部署
func (r *deploymentRepository) ListActiveByProject(projectID int64) ([]*model.Deployment, error) {
	var deps []*model.Deployment
	err := r.db.
		Where("project_id = ?", projectID).
		Where("status NOT IN ?", []model.DeploymentStatus{
			model.DeploymentStatusReady,
			model.DeploymentStatusError,
			model.DeploymentStatusCancelled,
		}).
		Find(&deps).Error
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询部署记录失败", err)
	}
	return deps, nil
}

// List 分页查询部署记录
func (r *deploymentRepository) List(query *dto.DeploymentListQuery) ([]*model.Deployment, int64, error) {
	var deps []*model.Deployment
	var total int64

	q := r.db.Model(&model.Deployment{}).Where("project_id = ?", query.ProjectID)

	if query.Status != nil && *query.Status != "" {
		q = q.Where("status = ?", *query.Status)
	}
	if query.Type != nil && *query.Type != "" {
		q = q.Where("type = ?", *query.Type)
	}
	if query.Branch != nil && *query.Branch != "" {
		q = q.Where("branch = ?", *query.Branch)
	}
	if query.Keyword != "" {
		keyword := "%" + query.Keyword + "%"
		q = q.Where("commit_sha LIKE ? OR commit_message LIKE ? OR commit_author LIKE ?", keyword, keyword, keyword)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "统计部署记录失败", err)
	}

	err := q.Order("id DESC").
		Offset(query.GetOffset()).
		Limit(query.GetPageSize()).
		Find(&deps).Error
	if err != nil {
		return nil, 0, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询部署记录失败", err)
	}

	return deps, total, nil
}

// ListStuck 查询滞留在非终态且长时间未更新的部署
func (r *deploymentRepository) ListStuck(updatedBefore time.Time) ([]*model.Deployment, error) {
	var deps []*model.Deployment
	err := r.db.
		Where("status NOT IN ?", []model.DeploymentStatus{
			model.DeploymentStatusReady,
			model.DeploymentStatusError,
			model.DeploymentStatusCancelled,
		}).
		Where("updated_at < ?", updatedBefore).
		Find(&deps).Error
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询滞留部署失败", err)
	}
	return deps, nil
}

// UpdateStatus 统一的状态写入
// 事务内重读记录，终态行与非法转换直接拒绝；
// 乐观锁式 WHERE status=旧值，保证并发写入不会相互覆盖
func (r *deploymentRepository) UpdateStatus(id int64, to model.DeploymentStatus, mutate func(*model.Deployment)) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var dep model.Deployment
		if err := tx.First(&dep, id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgErrors.ErrDeploymentNotFound
			}
			return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询部署记录失败", err)
		}

		old := dep.Status
		if old != to {
			if old.Terminal() {
				return pkgErrors.ErrDeploymentTerminal
			}
			if !old.CanTransitionTo(to) {
				return pkgErrors.Wrap(pkgErrors.CodeConflict,
					fmt.Sprintf("非法的状态转换: %s -> %s", old, to), nil)
			}
		}

		if mutate != nil {
			mutate(&dep)
		}
		dep.Status = to

		result := tx.Model(&model.Deployment{}).
			Where("id = ? AND status = ?", dep.ID, old).
			Save(&dep)
		if result.Error != nil {
			return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "更新部署记录失败", result.Error)
		}
		if result.RowsAffected == 0 {
			return pkgErrors.Wrap(pkgErrors.CodeConflict, "部署记录被并发修改", nil)
		}

		return nil
	})
}

// UpdateAuditResult 附加性能审计结果
func (r *deploymentRepository) UpdateAuditResult(id int64, result map[string]interface{}) error {
	err := r.db.Model(&model.Deployment{}).
		Where("id = ?", id).
		Update("audit_result", result).Error
	if err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "写入审计结果失败", err)
	}
	return nil
}

// ReassignAlias 别名唯一性在事务内保证：先从项目下所有持有者摘除，再绑定到目标
func (r *deploymentRepository) ReassignAlias(projectID, deploymentID int64, alias string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var holders []*model.Deployment
		err := tx.
			Where("project_id = ? AND aliases LIKE ?", projectID, "%\""+alias+"\"%").
			Find(&holders).Error
		if err != nil {
			return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询别名持有者失败", err)
		}

		for _, holder := range holders {
			if holder.ID == deploymentID {
				continue
			}
			kept := holder.Aliases[:0]
			for _, a := range holder.Aliases {
				if a != alias {
					kept = append(kept, a)
				}
			}
			holder.Aliases = kept
			if err := tx.Model(holder).Update("aliases", holder.Aliases).Error; err != nil {
				return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "摘除别名失败", err)
			}
		}

		var target model.Deployment
		if err := tx.Where("project_id = ?", projectID).First(&target, deploymentID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgErrors.ErrDeploymentNotFound
			}
			return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询部署记录失败", err)
		}

		if !target.HasAlias(alias) {
			target.Aliases = append(target.Aliases, alias)
			if err := tx.Model(&target).Update("aliases", target.Aliases).Error; err != nil {
				return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "绑定别名失败", err)
			}
		}

		return nil
	})
}

// RemoveAlias 事务内校验别名仍绑定在目标部署上，避免并发重绑后被误摘
func (r *deploymentRepository) RemoveAlias(projectID, deploymentID int64, alias string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var target model.Deployment
		if err := tx.Where("project_id = ?", projectID).First(&target, deploymentID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgErrors.ErrDeploymentNotFound
			}
			return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询部署记录失败", err)
		}

		if !target.HasAlias(alias) {
			return nil
		}

		kept := target.Aliases[:0]
		for _, a := range target.Aliases {
			if a != alias {
				kept = append(kept, a)
			}
		}
		target.Aliases = kept

		if err := tx.Model(&target).Update("aliases", target.Aliases).Error; err != nil {
			return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "移除别名失败", err)
		}
		return nil
	})
}

// DeleteByProject 删除项目下全部部署记录
func (r *deploymentRepository) DeleteByProject(tx *gorm.DB, projectID int64) error {
	db := r.db
	if tx != nil {
		db = tx
	}
	if err := db.Where("project_id = ?", projectID).Delete(&model.Deployment{}).Error; err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "删除部署记录失败", err)
	}
	return nil
}
