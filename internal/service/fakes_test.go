package service

import (
	"os"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"paas-cd/internal/dto"
	"paas-cd/internal/model"
	"paas-cd/internal/pkg/crypto"
	pkgErrors "paas-cd/pkg/errors"
)

func TestMain(m *testing.M) {
	if err := crypto.Init("test-passphrase", "test-salt"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeDeploymentRepo 内存部署仓储，复刻状态机守护语义
type fakeDeploymentRepo struct {
	mu      sync.Mutex
	nextID  int64
	deps    map[int64]*model.Deployment
	project *model.Project
}

func newFakeDeploymentRepo(project *model.Project) *fakeDeploymentRepo {
	return &fakeDeploymentRepo{
		nextID:  1,
		deps:    make(map[int64]*model.Deployment),
		project: project,
	}
}

func (f *fakeDeploymentRepo) Create(dep *model.Deployment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	dep.ID = f.nextID
	f.nextID++
	dep.CreatedAt = time.Now()
	copied := *dep
	f.deps[dep.ID] = &copied
	return nil
}

func (f *fakeDeploymentRepo) FindByID(id int64) (*model.Deployment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dep, ok := f.deps[id]
	if !ok {
		return nil, pkgErrors.ErrDeploymentNotFound
	}
	copied := *dep
	copied.Project = f.project
	return &copied, nil
}

func (f *fakeDeploymentRepo) FindActiveByCommit(projectID int64, commitSHA, depType string) (*model.Deployment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, dep := range f.deps {
		if dep.ProjectID == projectID && dep.CommitSHA == commitSHA && dep.Type == depType && !dep.Status.Terminal() {
			copied := *dep
			return &copied, nil
		}
	}
	return nil, pkgErrors.ErrDeploymentNotFound
}

func (f *fakeDeploymentRepo) ListActiveBySlug(projectID int64, slug string) ([]*model.Deployment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Deployment
	for _, dep := range f.deps {
		if dep.ProjectID == projectID && dep.Slug == slug && !dep.Status.Terminal() {
			copied := *dep
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeDeploymentRepo) ListActiveByProject(projectID int64) ([]*model.Deployment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Deployment
	for _, dep := range f.deps {
		if dep.ProjectID == projectID && !dep.Status.Terminal() {
			copied := *dep
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeDeploymentRepo) List(query *dto.DeploymentListQuery) ([]*model.Deployment, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Deployment
	for _, dep := range f.deps {
		if dep.ProjectID != query.ProjectID {
			continue
		}
		if query.Status != nil && *query.Status != "" && string(dep.Status) != *query.Status {
			continue
		}
		copied := *dep
		out = append(out, &copied)
	}
	return out, int64(len(out)), nil
}

func (f *fakeDeploymentRepo) ListStuck(updatedBefore time.Time) ([]*model.Deployment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Deployment
	for _, dep := range f.deps {
		if !dep.Status.Terminal() && dep.UpdatedAt.Before(updatedBefore) {
			copied := *dep
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeDeploymentRepo) UpdateStatus(id int64, to model.DeploymentStatus, mutate func(*model.Deployment)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	dep, ok := f.deps[id]
	if !ok {
		return pkgErrors.ErrDeploymentNotFound
	}
	if dep.Status != to {
		if dep.Status.Terminal() {
			return pkgErrors.ErrDeploymentTerminal
		}
		if !dep.Status.CanTransitionTo(to) {
			return pkgErrors.ErrInvalidTransition
		}
	}
	if mutate != nil {
		mutate(dep)
	}
	dep.Status = to
	dep.UpdatedAt = time.Now()
	return nil
}

func (f *fakeDeploymentRepo) UpdateAuditResult(id int64, result map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	dep, ok := f.deps[id]
	if !ok {
		return pkgErrors.ErrDeploymentNotFound
	}
	dep.AuditResult = result
	return nil
}

func (f *fakeDeploymentRepo) ReassignAlias(projectID, deploymentID int64, alias string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, dep := range f.deps {
		if dep.ProjectID != projectID {
			continue
		}
		kept := dep.Aliases[:0]
		for _, a := range dep.Aliases {
			if a != alias {
				kept = append(kept, a)
			}
		}
		dep.Aliases = kept
	}
	target, ok := f.deps[deploymentID]
	if !ok {
		return pkgErrors.ErrDeploymentNotFound
	}
	target.Aliases = append(target.Aliases, alias)
	return nil
}

func (f *fakeDeploymentRepo) RemoveAlias(projectID, deploymentID int64, alias string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	target, ok := f.deps[deploymentID]
	if !ok {
		return pkgErrors.ErrDeploymentNotFound
	}
	kept := target.Aliases[:0]
	for _, a := range target.Aliases {
		if a != alias {
			kept = append(kept, a)
		}
	}
	target.Aliases = kept
	return nil
}

func (f *fakeDeploymentRepo) DeleteByProject(tx *gorm.DB, projectID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, dep := range f.deps {
		if dep.ProjectID == projectID {
			delete(f.deps, id)
		}
	}
	return nil
}

func (f *fakeDeploymentRepo) get(id int64) *model.Deployment {
	f.mu.Lock()
	defer f.mu.Unlock()
	dep := f.deps[id]
	if dep == nil {
		return nil
	}
	copied := *dep
	return &copied
}

func (f *fakeDeploymentRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deps)
}

// fakeProjectRepo 内存项目仓储
type fakeProjectRepo struct {
	mu             sync.Mutex
	project        *model.Project
	productionURLs map[int64]string
	cascadeDeleted []int64
}

func newFakeProjectRepo(project *model.Project) *fakeProjectRepo {
	return &fakeProjectRepo{
		project:        project,
		productionURLs: make(map[int64]string),
	}
}

func (f *fakeProjectRepo) FindByID(id int64) (*model.Project, error) {
	if f.project == nil || f.project.ID != id {
		return nil, pkgErrors.ErrProjectNotFound
	}
	copied := *f.project
	return &copied, nil
}

func (f *fakeProjectRepo) FindByRepoFullName(fullName string) (*model.Project, error) {
	if f.project == nil || f.project.RepoFullName != fullName {
		return nil, pkgErrors.ErrProjectNotFound
	}
	copied := *f.project
	return &copied, nil
}

func (f *fakeProjectRepo) UpdateProductionURL(id int64, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.productionURLs[id] = url
	return nil
}

func (f *fakeProjectRepo) DeleteCascade(id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cascadeDeleted = append(f.cascadeDeleted, id)
	return nil
}

// fakeEnvRepo 内存环境变量仓储
type fakeEnvRepo struct {
	mu     sync.Mutex
	nextID int64
	vars   map[int64]*model.EnvVariable
}

func newFakeEnvRepo() *fakeEnvRepo {
	return &fakeEnvRepo{nextID: 1, vars: make(map[int64]*model.EnvVariable)}
}

func (f *fakeEnvRepo) Create(v *model.EnvVariable) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v.ID = f.nextID
	f.nextID++
	copied := *v
	f.vars[v.ID] = &copied
	return nil
}

func (f *fakeEnvRepo) FindByID(id int64) (*model.EnvVariable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vars[id]
	if !ok {
		return nil, pkgErrors.ErrRecordNotFound
	}
	copied := *v
	return &copied, nil
}

func (f *fakeEnvRepo) ListByProject(projectID int64) ([]*model.EnvVariable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.EnvVariable
	for _, v := range f.vars {
		if v.ProjectID == projectID {
			copied := *v
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeEnvRepo) Update(v *model.EnvVariable) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.vars[v.ID]; !ok {
		return pkgErrors.ErrRecordNotFound
	}
	copied := *v
	f.vars[v.ID] = &copied
	return nil
}

func (f *fakeEnvRepo) Delete(id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.vars, id)
	return nil
}

// fakeAuditRepo 内存审计日志仓储
type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*model.AuditLog
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (f *fakeAuditRepo) Create(entry *model.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *entry
	f.entries = append(f.entries, &copied)
	return nil
}

func (f *fakeAuditRepo) ListByProject(projectID int64, limit int) ([]*model.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.AuditLog
	for _, e := range f.entries {
		if e.ProjectID == projectID {
			copied := *e
			out = append(out, &copied)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeAuditRepo) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}
