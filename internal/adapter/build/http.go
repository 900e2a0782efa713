package build

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPBuilder 通过HTTP调用外部构建服务
type HTTPBuilder struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPBuilder 创建构建服务客户端
func NewHTTPBuilder(baseURL, token string) (*HTTPBuilder, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("构建服务地址不能为空")
	}

	return &HTTPBuilder{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Submit 提交构建
func (b *HTTPBuilder) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("序列化构建请求失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", b.baseURL+"/v1/builds", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	b.setAuthHeader(httpReq)

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("提交构建请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("构建服务返回错误 (状态码: %d): %s", resp.StatusCode, string(body))
	}

	var result SubmitResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("解析构建服务响应失败: %w", err)
	}

	return &result, nil
}

// Status 查询构建状态
func (b *HTTPBuilder) Status(ctx context.Context, buildID string) (*StatusResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", b.baseURL+"/v1/builds/"+buildID, nil)
	if err != nil {
		return nil, err
	}
	b.setAuthHeader(httpReq)

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("查询构建状态失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("构建服务返回错误 (状态码: %d): %s", resp.StatusCode, string(body))
	}

	var result StatusResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("解析构建状态失败: %w", err)
	}

	return &result, nil
}

// setAuthHeader 设置认证头
func (b *HTTPBuilder) setAuthHeader(req *http.Request) {
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}
}
