package repository

import (
	"gorm.io/gorm"

	"paas-cd/internal/model"
	pkgErrors "paas-cd/pkg/errors"
)

// ProjectRepository 项目仓储接口
type ProjectRepository interface {
	FindByID(id int64) (*model.Project, error)
	FindByRepoFullName(fullName string) (*model.Project, error)
	UpdateProductionURL(id int64, url string) error

	// DeleteCascade 删除项目及其附属记录（部署、环境变量、域名映射）
	DeleteCascade(id int64) error
}

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository 创建项目仓储实例
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

// FindByID 根据ID查询项目
func (r *projectRepository) FindByID(id int64) (*model.Project, error) {
	var project model.Project
	err := r.db.Preload("EnvVariables").Preload("DomainMappings").First(&project, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgErrors.ErrProjectNotFound
		}
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询项目失败", err)
	}
	return &project, nil
}

// FindByRepoFullName 根据仓库全名查询项目（webhook 入口）
func (r *projectRepository) FindByRepoFullName(fullName string) (*model.Project, error) {
	var project model.Project
	err := r.db.Preload("EnvVariables").
		Where("repo_full_name = ?", fullName).
		First(&project).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgErrors.ErrProjectNotFound
		}
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询项目失败", err)
	}
	return &project, nil
}

// UpdateProductionURL 更新项目的生产地址
func (r *projectRepository) UpdateProductionURL(id int64, url string) error {
	err := r.db.Model(&model.Project{}).
		Where("id = ?", id).
		Update("production_url", url).Error
	if err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "更新生产地址失败", err)
	}
	return nil
}

// DeleteCascade 删除项目及其附属记录
// 基础设施清理失败不应阻塞删除，因此该方法只负责存储层
func (r *projectRepository) DeleteCascade(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&model.Deployment{}).Error; err != nil {
			return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "删除部署记录失败", err)
		}
		if err := tx.Where("project_id = ?", id).Delete(&model.EnvVariable{}).Error; err != nil {
			return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "删除环境变量失败", err)
		}
		if err := tx.Where("project_id = ?", id).Delete(&model.DomainMapping{}).Error; err != nil {
			return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "删除域名映射失败", err)
		}
		if err := tx.Where("project_id = ?", id).Delete(&model.AuditLog{}).Error; err != nil {
			return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "删除审计日志失败", err)
		}
		if err := tx.Unscoped().Delete(&model.Project{}, id).Error; err != nil {
			return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "删除项目失败", err)
		}
		return nil
	})
}
