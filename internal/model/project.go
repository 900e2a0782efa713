package model

import (
	"gorm.io/datatypes"
)

const ProjectTableName = "projects"

// Project 项目（部署编排的宿主实体）
type Project struct {
	BaseModelWithSoftDelete

	Name         string `gorm:"size:255;not null" json:"name"`
	Slug         string `gorm:"size:63;not null;uniqueIndex" json:"slug"`
	RepoFullName string `gorm:"column:repo_full_name;size:255;not null;index" json:"repo_full_name"`
	Region       string `gorm:"size:32;not null;default:us-central1" json:"region"`

	// 部署触发配置
	DefaultBranch      string                      `gorm:"size:255;not null;default:main" json:"default_branch"`
	AutodeployBranches datatypes.JSONSlice[string] `gorm:"type:json" json:"autodeploy_branches"`
	BranchEnvironments datatypes.JSONMap           `gorm:"type:json" json:"branch_environments"` // 分支 → 环境目标覆盖
	AutoDeployPRs      *bool                       `gorm:"column:auto_deploy_prs" json:"auto_deploy_prs,omitempty"`

	// 构建配置
	Framework      string `gorm:"size:64" json:"framework"`
	InstallCommand string `gorm:"size:512" json:"install_command"`
	BuildCommand   string `gorm:"size:512" json:"build_command"`
	OutputDir      string `gorm:"size:255" json:"output_dir"`

	// 资源限额
	CPU    string `gorm:"size:16;default:1" json:"cpu"`
	Memory string `gorm:"size:16;default:512Mi" json:"memory"`

	// 仓库访问凭证（密文）
	RepoCredential *string `gorm:"column:repo_credential;type:text" json:"-"`

	// 生产地址（最近一次生产部署成功后更新）
	ProductionURL string `gorm:"column:production_url;size:512" json:"production_url"`

	// Relations
	EnvVariables   []EnvVariable   `gorm:"foreignKey:ProjectID" json:"env_variables,omitempty"`
	DomainMappings []DomainMapping `gorm:"foreignKey:ProjectID" json:"domain_mappings,omitempty"`
}

// TableName 指定表名
func (Project) TableName() string {
	return ProjectTableName
}

// PRDeployEnabled PR 预览部署是否开启（默认开启）
func (p *Project) PRDeployEnabled() bool {
	return p.AutoDeployPRs == nil || *p.AutoDeployPRs
}

const DomainMappingTableName = "domain_mappings"

// DomainMapping 项目的自定义域名映射
type DomainMapping struct {
	BaseModel

	ProjectID int64  `gorm:"column:project_id;not null;index" json:"project_id"`
	Domain    string `gorm:"size:255;not null;uniqueIndex" json:"domain"`
}

// TableName 指定表名
func (DomainMapping) TableName() string {
	return DomainMappingTableName
}
