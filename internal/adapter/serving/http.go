package serving

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPPlatform 通过HTTP调用托管平台
type HTTPPlatform struct {
	baseURL    string
	token      string
	region     string
	httpClient *http.Client
}

// NewHTTPPlatform 创建托管平台客户端
func NewHTTPPlatform(baseURL, token, region string) (*HTTPPlatform, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("托管平台地址不能为空")
	}

	return &HTTPPlatform{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		region:  region,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// GetService 查询服务的当前 revision 与公网地址
func (p *HTTPPlatform) GetService(ctx context.Context, name string) (*Service, error) {
	var svc Service
	if err := p.doJSON(ctx, "GET", "/v1/services/"+name, nil, &svc); err != nil {
		return nil, err
	}
	return &svc, nil
}

// SetTraffic 流量切换
func (p *HTTPPlatform) SetTraffic(ctx context.Context, name, revision string, percent int) error {
	payload := map[string]interface{}{
		"revision": revision,
		"percent":  percent,
	}
	return p.doJSON(ctx, "PUT", "/v1/services/"+name+"/traffic", payload, nil)
}

// SetTag 绑定流量标签
func (p *HTTPPlatform) SetTag(ctx context.Context, name, tag, revision string) error {
	payload := map[string]interface{}{
		"tag":      tag,
		"revision": revision,
	}
	return p.doJSON(ctx, "PUT", "/v1/services/"+name+"/tags", payload, nil)
}

// RemoveTag 移除流量标签
func (p *HTTPPlatform) RemoveTag(ctx context.Context, name, tag, expectedRevision string) error {
	path := fmt.Sprintf("/v1/services/%s/tags/%s", name, tag)
	if expectedRevision != "" {
		path += "?expected_revision=" + url.QueryEscape(expectedRevision)
	}
	return p.doJSON(ctx, "DELETE", path, nil, nil)
}

// ListServices 按名称前缀枚举服务
func (p *HTTPPlatform) ListServices(ctx context.Context, prefix string) ([]Service, error) {
	var result struct {
		Services []Service `json:"services"`
	}
	path := "/v1/services?prefix=" + url.QueryEscape(prefix)
	if err := p.doJSON(ctx, "GET", path, nil, &result); err != nil {
		return nil, err
	}
	return result.Services, nil
}

// DeleteService 删除服务
func (p *HTTPPlatform) DeleteService(ctx context.Context, name string) error {
	return p.doJSON(ctx, "DELETE", "/v1/services/"+name, nil, nil)
}

// DeleteJobs 删除项目的全部计划任务
func (p *HTTPPlatform) DeleteJobs(ctx context.Context, project string) error {
	return p.doJSON(ctx, "DELETE", "/v1/jobs?project="+url.QueryEscape(project), nil, nil)
}

// DeleteDomainMapping 删除域名映射
func (p *HTTPPlatform) DeleteDomainMapping(ctx context.Context, domain string) error {
	return p.doJSON(ctx, "DELETE", "/v1/domains/"+url.PathEscape(domain), nil, nil)
}

// doJSON 执行HTTP请求并解析JSON响应
func (p *HTTPPlatform) doJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("序列化请求失败: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}
	if p.region != "" {
		req.Header.Set("X-Region", p.region)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("托管平台请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("托管平台返回错误 (状态码: %d): %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("解析托管平台响应失败: %w", err)
		}
	}

	return nil
}
