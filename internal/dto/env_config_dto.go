package dto

import (
	"paas-cd/internal/model"
)

// EnvVariableListQuery 环境变量列表查询
type EnvVariableListQuery struct {
	ProjectID int64 `form:"project_id" binding:"required,min=1"`
}

// CreateEnvVariableRequest 创建环境变量
type CreateEnvVariableRequest struct {
	ProjectID   int64  `json:"project_id" binding:"required,min=1"`
	Key         string `json:"key" binding:"required,max=255"`
	Value       string `json:"value" binding:"required"`
	IsSecret    bool   `json:"is_secret"`
	Target      string `json:"target" binding:"omitempty,oneof=build runtime both"`
	Environment string `json:"environment" binding:"omitempty,oneof=production preview both"`
}

// UpdateEnvVariableRequest 更新环境变量
// Value 为空表示保留原值，仅调整标记
type UpdateEnvVariableRequest struct {
	ID          int64   `json:"id" binding:"required,min=1"`
	Value       *string `json:"value"`
	IsSecret    *bool   `json:"is_secret"`
	Target      *string `json:"target" binding:"omitempty,oneof=build runtime both"`
	Environment *string `json:"environment" binding:"omitempty,oneof=production preview both"`
}

// DeleteEnvVariableRequest 删除环境变量
type DeleteEnvVariableRequest struct {
	ID int64 `json:"id" binding:"required,min=1"`
}

// EnvVariableResponse 环境变量响应（机密值打码）
type EnvVariableResponse struct {
	ID          int64  `json:"id"`
	ProjectID   int64  `json:"project_id"`
	Key         string `json:"key"`
	Value       string `json:"value"`
	IsSecret    bool   `json:"is_secret"`
	Target      string `json:"target"`
	Environment string `json:"environment"`
}

// NewEnvVariableResponse 由模型构建响应
func NewEnvVariableResponse(v *model.EnvVariable) *EnvVariableResponse {
	value := v.Value
	if v.IsSecret {
		value = "••••••"
	}

	return &EnvVariableResponse{
		ID:          v.ID,
		ProjectID:   v.ProjectID,
		Key:         v.Key,
		Value:       value,
		IsSecret:    v.IsSecret,
		Target:      v.Target,
		Environment: v.Environment,
	}
}
