package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPAuditor 基于 HTTP API 的性能检测客户端
type HTTPAuditor struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPAuditor 创建性能检测客户端
func NewHTTPAuditor(baseURL, token string) *HTTPAuditor {
	return &HTTPAuditor{
		baseURL: baseURL,
		token:   token,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Run 提交检测任务并等待结果
func (a *HTTPAuditor) Run(ctx context.Context, targetURL string) (*Report, error) {
	body, err := json.Marshal(map[string]string{"url": targetURL})
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/v1/audits", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求检测服务失败: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("检测服务返回错误状态码 %d: %s", resp.StatusCode, string(data))
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("解析检测结果失败: %w", err)
	}
	return &report, nil
}
