package constants

// DeploymentType 部署类型
const (
	DeploymentTypeProduction = "production"
	DeploymentTypeBranch     = "branch"
	DeploymentTypePreview    = "preview"
)

// EnvTarget 环境变量注入目标
const (
	EnvTargetBuild   = "build"
	EnvTargetRuntime = "runtime"
	EnvTargetBoth    = "both"
)

// EnvScope 环境变量生效环境
const (
	EnvScopeProduction = "production"
	EnvScopePreview    = "preview"
	EnvScopeBoth       = "both"
)

// 环境目标（分类结果）
const (
	EnvironmentProduction = "production"
	EnvironmentPreview    = "preview"
)

// Webhook 事件类型
const (
	WebhookEventPush        = "push"
	WebhookEventPullRequest = "pull_request"
	WebhookEventPing        = "ping"
)

// PullRequest 动作
const (
	PRActionOpened      = "opened"
	PRActionSynchronize = "synchronize"
	PRActionReopened    = "reopened"
	PRActionClosed      = "closed"
)

// GitRefHeadsPrefix push 事件的分支 ref 前缀
const GitRefHeadsPrefix = "refs/heads/"

// 构建轮询
const (
	PollGracePeriodSeconds = 10 // 首次轮询前的等待
	PollIntervalSeconds    = 30 // 轮询间隔
	PollMaxCount           = 60 // 轮询次数上限（约30分钟）
)

// BuildTimedOutMessage 轮询超限时写入的错误信息
const BuildTimedOutMessage = "Build timed out"

// CommitStatusContext commit status 上下文标识
const CommitStatusContext = "paas-cd/deploy"

// AliasMaxLength 别名最大长度
const AliasMaxLength = 63

// 审计动作
const (
	AuditActionDeploymentCreate = "deployment.create"
	AuditActionDeploymentCancel = "deployment.cancel"
	AuditActionRollback         = "deployment.rollback"
	AuditActionAliasAssign      = "alias.assign"
	AuditActionAliasRemove      = "alias.remove"
	AuditActionProjectTeardown  = "project.teardown"
)

// 状态
const (
	StatusEnabled  int8 = 1
	StatusDisabled int8 = 0
)

// JWT 相关
const (
	JWTContextKey  = "jwt_user"
	JWTTypeAccess  = "access"
	JWTTypeRefresh = "refresh"
)

// HTTP Header
const (
	HeaderAuthorization  = "Authorization"
	HeaderBearerPrefix   = "Bearer "
	HeaderGitHubEvent    = "X-GitHub-Event"
	HeaderHubSignature   = "X-Hub-Signature-256"
	HeaderGitHubDelivery = "X-GitHub-Delivery"
)

// SignaturePrefix HMAC 签名前缀
const SignaturePrefix = "sha256="
