package service

import (
	"go.uber.org/zap"

	"paas-cd/internal/dto"
	"paas-cd/internal/model"
	"paas-cd/internal/pkg/crypto"
	"paas-cd/internal/repository"
	"paas-cd/pkg/constants"
	pkgErrors "paas-cd/pkg/errors"
)

// EnvService 环境变量管理与注入解析
type EnvService struct {
	envRepo     repository.EnvVariableRepository
	projectRepo repository.ProjectRepository
	logger      *zap.Logger
}

// NewEnvService 创建环境变量服务
func NewEnvService(envRepo repository.EnvVariableRepository, projectRepo repository.ProjectRepository, logger *zap.Logger) *EnvService {
	return &EnvService{
		envRepo:     envRepo,
		projectRepo: projectRepo,
		logger:      logger,
	}
}

// ResolveEnv 解析目标环境下的构建期与运行期变量
// 机密变量解密后注入；environment 为空的变量对两个环境都生效
func (s *EnvService) ResolveEnv(vars []*model.EnvVariable, environment string) (buildEnv, runtimeEnv map[string]string, err error) {
	buildEnv = make(map[string]string)
	runtimeEnv = make(map[string]string)

	for _, v := range vars {
		if !envMatches(v.Environment, environment) {
			continue
		}

		value, err := v.SecretValue().Reveal()
		if err != nil {
			return nil, nil, pkgErrors.Wrap(pkgErrors.CodeInternalError, "环境变量解密失败: "+v.Key, err)
		}

		switch v.Target {
		case constants.EnvTargetBuild:
			buildEnv[v.Key] = value
		case constants.EnvTargetRuntime:
			runtimeEnv[v.Key] = value
		default:
			buildEnv[v.Key] = value
			runtimeEnv[v.Key] = value
		}
	}

	return buildEnv, runtimeEnv, nil
}

// envMatches 变量的生效环境是否覆盖目标环境
func envMatches(varEnv, target string) bool {
	return varEnv == "" || varEnv == constants.EnvScopeBoth || varEnv == target
}

// Create 创建环境变量，机密值同步加密落库
func (s *EnvService) Create(req *dto.CreateEnvVariableRequest) (*dto.EnvVariableResponse, error) {
	if _, err := s.projectRepo.FindByID(req.ProjectID); err != nil {
		return nil, err
	}

	v := &model.EnvVariable{
		ProjectID:   req.ProjectID,
		Key:         req.Key,
		IsSecret:    req.IsSecret,
		Target:      req.Target,
		Environment: req.Environment,
	}
	if v.Target == "" {
		v.Target = constants.EnvTargetBoth
	}

	if err := s.storeValue(v, req.Value); err != nil {
		return nil, err
	}

	if err := s.envRepo.Create(v); err != nil {
		return nil, err
	}

	s.logger.Info("创建环境变量",
		zap.Int64("project_id", v.ProjectID),
		zap.String("key", v.Key),
		zap.Bool("is_secret", v.IsSecret))

	return dto.NewEnvVariableResponse(v), nil
}

// Update 更新环境变量
// 机密标记切换时同步执行加解密转换
func (s *EnvService) Update(req *dto.UpdateEnvVariableRequest) (*dto.EnvVariableResponse, error) {
	v, err := s.envRepo.FindByID(req.ID)
	if err != nil {
		return nil, err
	}

	if req.IsSecret != nil && *req.IsSecret != v.IsSecret {
		v.IsSecret = *req.IsSecret
		if req.Value == nil {
			// 仅切换标记：按新标记转换现有值的存储形态
			if err := s.reencode(v); err != nil {
				return nil, err
			}
		}
	}
	if req.Value != nil {
		if err := s.storeValue(v, *req.Value); err != nil {
			return nil, err
		}
	}
	if req.Target != nil {
		v.Target = *req.Target
	}
	if req.Environment != nil {
		v.Environment = *req.Environment
	}

	if err := s.envRepo.Update(v); err != nil {
		return nil, err
	}

	s.logger.Info("更新环境变量",
		zap.Int64("project_id", v.ProjectID),
		zap.String("key", v.Key))

	return dto.NewEnvVariableResponse(v), nil
}

// Delete 删除环境变量
func (s *EnvService) Delete(id int64) error {
	v, err := s.envRepo.FindByID(id)
	if err != nil {
		return err
	}
	if err := s.envRepo.Delete(id); err != nil {
		return err
	}
	s.logger.Info("删除环境变量",
		zap.Int64("project_id", v.ProjectID),
		zap.String("key", v.Key))
	return nil
}

// List 获取项目下全部环境变量（机密值打码）
func (s *EnvService) List(projectID int64) ([]*dto.EnvVariableResponse, error) {
	vars, err := s.envRepo.ListByProject(projectID)
	if err != nil {
		return nil, err
	}

	resp := make([]*dto.EnvVariableResponse, 0, len(vars))
	for _, v := range vars {
		resp = append(resp, dto.NewEnvVariableResponse(v))
	}
	return resp, nil
}

// storeValue 按机密标记写入新值
func (s *EnvService) storeValue(v *model.EnvVariable, plaintext string) error {
	value := crypto.Plain(plaintext)
	if v.IsSecret {
		sealed, err := value.Seal()
		if err != nil {
			return pkgErrors.Wrap(pkgErrors.CodeInternalError, "环境变量加密失败", err)
		}
		value = sealed
	}
	v.SetValue(value)
	return nil
}

// reencode 按当前机密标记转换存储形态
func (s *EnvService) reencode(v *model.EnvVariable) error {
	value := v.SecretValue()
	var err error
	if v.IsSecret {
		value, err = value.Seal()
	} else {
		value, err = value.Unseal()
	}
	if err != nil {
		return pkgErrors.Wrap(pkgErrors.CodeInternalError, "环境变量转换失败", err)
	}
	v.SetValue(value)
	return nil
}
