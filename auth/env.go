package auth

import (
	"context"
	"fmt"
	"os"
	"strings"
)

const (
	EnvOpperAPIKey     = "OPPERAI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	// EnvAPIKey 对任意 provider 生效，优先级低于 provider 专用变量。
	EnvAPIKey = "TOOLCHAT_API_KEY"
)

type envProvider struct {
	backend Backend
}

func envKeyFor(backend Backend) string {
	if backend == BackendAnthropic {
		return EnvAnthropicAPIKey
	}
	return EnvOpperAPIKey
}

func (p *envProvider) Auth(ctx context.Context) (string, error) {
	name := envKeyFor(p.backend)
	if key := strings.TrimSpace(os.Getenv(name)); key != "" {
		return key, nil
	}
	if key := strings.TrimSpace(os.Getenv(EnvAPIKey)); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("%s is not set", name)
}
