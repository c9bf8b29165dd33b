package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfig 验证YAML配置能被正确加载并填充默认值
func TestLoadConfig(t *testing.T) {
	yamlContent := `
watcher:
  folder: "/data/intake"
drive:
  folder_url: "https://drive.google.com/drive/folders/1AbCdEfGh?usp=sharing"
llama:
  model_path: "models/llama-model.gguf"
  n_ctx: 2048
redis:
  address: "localhost:6379"
  md5_record_expire_days: 30
server:
  api_key: "secret"
`
	tmpDir, err := os.MkdirTemp("", "config-test")
	require.NoError(t, err, "无法创建临时目录")
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	err = os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err, "无法写入临时配置文件")

	config, err := LoadConfig(configPath)
	require.NoError(t, err, "加载合法配置不应返回错误")
	require.NotNil(t, config)

	assert.Equal(t, "/data/intake", config.Watcher.Folder)
	assert.Equal(t, "models/llama-model.gguf", config.Llama.ModelPath)
	assert.Equal(t, 2048, config.Llama.NCtx)
	assert.Equal(t, 30, config.Redis.MD5RecordExpireDays)

	// 默认值应被填充
	assert.Equal(t, 4, config.Llama.NThreads, "未配置的线程数应使用默认值")
	assert.Equal(t, 2000, config.Llama.MaxTokens)
	assert.Equal(t, ":8080", config.Server.Address)
	assert.Equal(t, "candidate.events.exchange", config.RabbitMQ.CandidateEventsExchange)
	assert.Equal(t, 300, config.Drive.PollIntervalSeconds)
	assert.Equal(t, 5, config.Outbox.PollIntervalSeconds)
	assert.Equal(t, 10, config.Outbox.BatchSize)
}

// TestResolvedDriveFolderID 验证各种Drive文件夹标识形式的解析
func TestResolvedDriveFolderID(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		url      string
		expected string
	}{
		{"直接配置ID", "1AbCdEfGh", "", "1AbCdEfGh"},
		{"folders形式URL", "", "https://drive.google.com/drive/folders/1AbCdEfGh?usp=sharing", "1AbCdEfGh"},
		{"id=形式URL", "", "https://drive.google.com/open?id=1AbCdEfGh&foo=bar", "1AbCdEfGh"},
		{"裸ID作为URL", "", "1AbCdEfGhIjKl", "1AbCdEfGhIjKl"},
		{"无法解析", "", "not a url", ""},
		{"全部为空", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.Drive.FolderID = tt.id
			cfg.Drive.FolderURL = tt.url
			assert.Equal(t, tt.expected, cfg.ResolvedDriveFolderID())
		})
	}
}

// TestPortalConfigured 验证门户配置完整性检查
func TestPortalConfigured(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.PortalConfigured(), "空配置不应视为已配置")

	cfg.Portal.URL = "https://portal.example.com"
	cfg.Portal.AdminEmail = "admin@example.com"
	assert.False(t, cfg.PortalConfigured(), "缺少密码时不应视为已配置")

	cfg.Portal.AdminPassword = "pass"
	assert.True(t, cfg.PortalConfigured())
}
