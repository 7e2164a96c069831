package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type authFile struct {
	APIKey          string `json:"api_key"`
	OpperAPIKey     string `json:"opperai_api_key"`
	AnthropicAPIKey string `json:"anthropic_api_key"`
}

// ReadAPIKeyFromPath 从 JSON 文件读取指定 provider 的 key，缺省回退到 api_key 字段。
func ReadAPIKeyFromPath(path string, backend Backend) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read auth file: %w", err)
	}

	var auth authFile
	if err := json.Unmarshal(data, &auth); err != nil {
		return "", fmt.Errorf("failed to parse auth file: %w", err)
	}

	key := strings.TrimSpace(auth.OpperAPIKey)
	if backend == BackendAnthropic {
		key = strings.TrimSpace(auth.AnthropicAPIKey)
	}
	if key == "" {
		key = strings.TrimSpace(auth.APIKey)
	}
	if key == "" {
		return "", fmt.Errorf("auth file %s has no api key for %s", path, backend)
	}
	return key, nil
}

// DefaultFilePath 返回 ~/.config/toolchat/auth.json。
func DefaultFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "toolchat", "auth.json"), nil
}

type fileProvider struct {
	path    string
	backend Backend
}

func (p *fileProvider) Auth(ctx context.Context) (string, error) {
	path := p.path
	if strings.TrimSpace(path) == "" {
		var err error
		if path, err = DefaultFilePath(); err != nil {
			return "", err
		}
	}
	return ReadAPIKeyFromPath(path, p.backend)
}
