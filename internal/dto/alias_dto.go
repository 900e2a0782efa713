package dto

// AssignAliasRequest 别名绑定请求
type AssignAliasRequest struct {
	DeploymentID int64  `json:"deployment_id" binding:"required,min=1"`
	Alias        string `json:"alias" binding:"required,max=63"`
}

// RemoveAliasRequest 别名移除请求
type RemoveAliasRequest struct {
	DeploymentID int64  `json:"deployment_id" binding:"required,min=1"`
	Alias        string `json:"alias" binding:"required,max=63"`
}
