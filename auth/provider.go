package auth

import (
	"context"
	"fmt"
	"strings"
)

// NewProvider 根据来源创建 Provider。
// source 允许：env/file/auto；空值按 env 处理。path 仅对 file/auto 生效，空值使用 DefaultFilePath。
func NewProvider(source string, backend Backend, path string) (Provider, error) {
	s := normalize(source)
	if s == "" {
		s = string(SourceEnv)
	}
	switch Source(s) {
	case SourceEnv:
		return &envProvider{backend: backend}, nil
	case SourceFile:
		return &fileProvider{path: path, backend: backend}, nil
	case SourceAuto:
		return &autoProvider{providers: []Provider{
			&envProvider{backend: backend},
			&fileProvider{path: path, backend: backend},
		}}, nil
	default:
		return nil, &UnsupportedError{Kind: "auth source", Value: source}
	}
}

// Static 返回固定 key 的 Provider，用于命令行参数或测试。
func Static(apiKey string) Provider {
	return staticProvider(apiKey)
}

type staticProvider string

func (p staticProvider) Auth(ctx context.Context) (string, error) {
	if strings.TrimSpace(string(p)) == "" {
		return "", fmt.Errorf("api key is empty")
	}
	return string(p), nil
}

type autoProvider struct {
	providers []Provider
}

func (p *autoProvider) Auth(ctx context.Context) (string, error) {
	var lastErr error
	for _, provider := range p.providers {
		key, err := provider.Auth(ctx)
		if err == nil && strings.TrimSpace(key) != "" {
			return key, nil
		}
		if err != nil {
			lastErr = err
		}
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", fmt.Errorf("no auth available")
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
