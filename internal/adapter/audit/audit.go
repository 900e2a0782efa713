package audit

import (
	"context"
)

// Report 性能检测结果
type Report struct {
	Score       int            `json:"score"`                 // 综合评分 0-100
	Metrics     map[string]any `json:"metrics,omitempty"`     // 各项指标
	ReportURL   string         `json:"report_url,omitempty"`  // 报告详情地址
	GeneratedAt string         `json:"generated_at,omitempty"`
}

// Auditor 性能检测服务接口
type Auditor interface {
	// Run 对目标地址执行性能检测,返回检测结果
	Run(ctx context.Context, targetURL string) (*Report, error)
}
