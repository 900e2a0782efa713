package repository

import (
	"gorm.io/gorm"

	"paas-cd/internal/model"
	pkgErrors "paas-cd/pkg/errors"
)

// EnvVariableRepository 环境变量仓储接口
type EnvVariableRepository interface {
	Create(v *model.EnvVariable) error
	FindByID(id int64) (*model.EnvVariable, error)
	ListByProject(projectID int64) ([]*model.EnvVariable, error)
	Update(v *model.EnvVariable) error
	Delete(id int64) error
}

type envVariableRepository struct {
	db *gorm.DB
}

// NewEnvVariableRepository 创建环境变量仓储实例
func NewEnvVariableRepository(db *gorm.DB) EnvVariableRepository {
	return &envVariableRepository{db: db}
}

// Create 创建环境变量
func (r *envVariableRepository) Create(v *model.EnvVariable) error {
	if err := r.db.Create(v).Error; err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "创建环境变量失败", err)
	}
	return nil
}

// FindByID 根据ID查询环境变量
func (r *envVariableRepository) FindByID(id int64) (*model.EnvVariable, error) {
	var v model.EnvVariable
	err := r.db.First(&v, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgErrors.ErrRecordNotFound
		}
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询环境变量失败", err)
	}
	return &v, nil
}

// ListByProject 查询项目下全部环境变量
func (r *envVariableRepository) ListByProject(projectID int64) ([]*model.EnvVariable, error) {
	var vars []*model.EnvVariable
	err := r.db.Where("project_id = ?", projectID).Order("`key` ASC").Find(&vars).Error
	if err != nil {
		return nil, pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "查询环境变量失败", err)
	}
	return vars, nil
}

// Update 更新环境变量
func (r *envVariableRepository) Update(v *model.EnvVariable) error {
	if err := r.db.Save(v).Error; err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "更新环境变量失败", err)
	}
	return nil
}

// Delete 删除环境变量
func (r *envVariableRepository) Delete(id int64) error {
	if err := r.db.Delete(&model.EnvVariable{}, id).Error; err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeDatabaseError, "删除环境变量失败", err)
	}
	return nil
}
