package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"paas-cd/internal/pkg/git/api"
)

// Provider GitHub平台提供者
type Provider struct {
	config     *api.ProviderConfig
	httpClient *http.Client
}

// NewProvider 创建GitHub提供者
func NewProvider(config *api.ProviderConfig) (api.GitProvider, error) {
	// GitHub可以省略BaseURL，使用默认值
	if config.BaseURL == "" {
		config.BaseURL = "https://api.github.com"
	}

	return &Provider{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// GetPlatformType 获取平台类型
func (p *Provider) GetPlatformType() api.PlatformType {
	return api.PlatformGitHub
}

// TestConnection 测试连接
func (p *Provider) TestConnection() error {
	req, err := http.NewRequest("GET", p.apiURL("/user"), nil)
	if err != nil {
		return err
	}

	p.setAuthHeader(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("连接失败 (状态码: %d): %s", resp.StatusCode, string(body))
	}

	return nil
}

// GetRepository 获取仓库信息
func (p *Provider) GetRepository(ctx context.Context, fullName string) (*api.RepositoryInfo, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", p.apiURL("/repos/"+fullName), nil)
	if err != nil {
		return nil, err
	}

	p.setAuthHeader(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("请求失败 (状态码: %d): %s", resp.StatusCode, string(body))
	}

	var repo struct {
		ID            int64  `json:"id"`
		Name          string `json:"name"`
		FullName      string `json:"full_name"`
		CloneURL      string `json:"clone_url"`
		DefaultBranch string `json:"default_branch"`
		Private       bool   `json:"private"`
		HTMLURL       string `json:"html_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&repo); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	return &api.RepositoryInfo{
		ID:            repo.ID,
		Name:          repo.Name,
		FullName:      repo.FullName,
		CloneURL:      repo.CloneURL,
		DefaultBranch: repo.DefaultBranch,
		Private:       repo.Private,
		HTMLURL:       repo.HTMLURL,
	}, nil
}

// CreateCommitStatus 更新 commit status
func (p *Provider) CreateCommitStatus(ctx context.Context, fullName, sha string, status *api.CommitStatus) error {
	url := p.apiURL(fmt.Sprintf("/repos/%s/statuses/%s", fullName, sha))
	return p.postJSON(ctx, url, status)
}

// CreatePullRequestComment 在 PR 下追加评论
func (p *Provider) CreatePullRequestComment(ctx context.Context, fullName string, number int, body string) error {
	url := p.apiURL(fmt.Sprintf("/repos/%s/issues/%d/comments", fullName, number))
	return p.postJSON(ctx, url, map[string]string{"body": body})
}

// postJSON 发送JSON POST请求
func (p *Provider) postJSON(ctx context.Context, url string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	p.setAuthHeader(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("请求失败 (状态码: %d): %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// apiURL 拼接API地址
func (p *Provider) apiURL(path string) string {
	return strings.TrimSuffix(p.config.BaseURL, "/") + path
}

// setAuthHeader 设置认证头
func (p *Provider) setAuthHeader(req *http.Request) {
	if p.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.config.Token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
}
