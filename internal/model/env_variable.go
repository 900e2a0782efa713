package model

import (
	"paas-cd/internal/pkg/crypto"
)

const EnvVariableTableName = "env_variables"

// EnvVariable 项目环境变量
// 机密变量在落库前加密，IsEncrypted 只在 IsSecret 为真时可能为真
type EnvVariable struct {
	BaseModel

	ProjectID int64  `gorm:"column:project_id;not null;uniqueIndex:uk_project_key" json:"project_id"`
	Key       string `gorm:"size:255;not null;uniqueIndex:uk_project_key" json:"key"`
	Value     string `gorm:"type:text;not null" json:"-"`

	IsSecret    bool `gorm:"column:is_secret;not null;default:false" json:"is_secret"`
	IsEncrypted bool `gorm:"column:is_encrypted;not null;default:false" json:"-"`

	Target      string `gorm:"size:16;not null;default:both" json:"target"` // build/runtime/both
	Environment string `gorm:"size:16" json:"environment"`                  // production/preview/both，空值按 both 处理
}

// TableName 指定表名
func (EnvVariable) TableName() string {
	return EnvVariableTableName
}

// SecretValue 返回取值的领域表示
func (v *EnvVariable) SecretValue() crypto.SecretValue {
	if v.IsEncrypted {
		return crypto.Encrypted(v.Value)
	}
	return crypto.Plain(v.Value)
}

// SetValue 写回取值并同步 IsEncrypted 标记
func (v *EnvVariable) SetValue(value crypto.SecretValue) {
	v.Value = value.Raw()
	v.IsEncrypted = value.IsEncrypted()
}
