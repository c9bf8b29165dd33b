package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"candidate-parser-go/internal/config"
	"candidate-parser-go/internal/types"
)

// PortalClient 将候选人档案上传到管理门户
// 使用管理员账号登录换取token，token失效时自动重新登录一次
type PortalClient struct {
	baseURL  string
	email    string
	password string
	client   *http.Client

	mu    sync.Mutex
	token string
}

// NewPortalClient 创建门户客户端
func NewPortalClient(cfg *config.PortalConfig) *PortalClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PortalClient{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		email:    cfg.AdminEmail,
		password: cfg.AdminPassword,
		client:   &http.Client{Timeout: timeout},
	}
}

// loginResponse 登录接口的响应体
type loginResponse struct {
	Token string `json:"token"`
}

// login 使用管理员账号换取访问token
func (p *PortalClient) login(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"email":    p.email,
		"password": p.password,
	})
	if err != nil {
		return "", fmt.Errorf("序列化登录请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("构造登录请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("登录请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("门户登录失败, 状态码 %d: %s", resp.StatusCode, string(respBody))
	}

	var loginResp loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return "", fmt.Errorf("解析登录响应失败: %w", err)
	}
	if loginResp.Token == "" {
		return "", fmt.Errorf("门户登录响应缺少token")
	}
	return loginResp.Token, nil
}

// ensureToken 返回缓存的token，没有时执行登录
func (p *PortalClient) ensureToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token != "" {
		return p.token, nil
	}
	token, err := p.login(ctx)
	if err != nil {
		return "", err
	}
	p.token = token
	return token, nil
}

// invalidateToken 丢弃缓存的token
func (p *PortalClient) invalidateToken() {
	p.mu.Lock()
	p.token = ""
	p.mu.Unlock()
}

// UploadCandidate 将候选人档案提交到门户
// 收到401时重新登录并重试一次
func (p *PortalClient) UploadCandidate(ctx context.Context, rec *types.CandidateRecord) error {
	status, err := p.postCandidate(ctx, rec)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		p.invalidateToken()
		status, err = p.postCandidate(ctx, rec)
		if err != nil {
			return err
		}
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return fmt.Errorf("门户上传失败, 状态码 %d", status)
	}
	return nil
}

// postCandidate 执行一次上传请求，返回HTTP状态码
func (p *PortalClient) postCandidate(ctx context.Context, rec *types.CandidateRecord) (int, error) {
	token, err := p.ensureToken(ctx)
	if err != nil {
		return 0, err
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("序列化候选人档案失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/candidates", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("构造上传请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("上传请求失败: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	return resp.StatusCode, nil
}
