package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config 是 toolchat 服务的全部配置，来自环境变量（可选 .env 文件）。
type Config struct {
	// Server configuration
	Listen   string `envconfig:"LISTEN" default:"127.0.0.1:8080"`
	BasePath string `envconfig:"BASE_PATH" default:"/api"`

	// Model provider configuration
	Provider     string `envconfig:"PROVIDER" default:"opper"` // opper, anthropic
	GatewayURL   string `envconfig:"GATEWAY_URL" default:"https://api.opper.ai/v2"`
	Model        string `envconfig:"MODEL" default:"openai/gpt-4o-mini"`
	CallName     string `envconfig:"CALL_NAME" default:"chat-with-tools"`
	MaxSteps     int    `envconfig:"MAX_STEPS" default:"5"`
	ModelTimeout int    `envconfig:"MODEL_TIMEOUT" default:"120"` // seconds

	// Credentials
	AuthSource string `envconfig:"AUTH_SOURCE" default:"env"` // env, file, auto
	AuthFile   string `envconfig:"AUTH_FILE" default:""`

	// Browser access
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load 先尝试加载 .env（不存在时忽略），再从环境变量读取配置。
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv 只读取环境变量，不加载 .env 文件。
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.CORSAllowedOrigins = compact(cfg.CORSAllowedOrigins)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查命令行覆盖之后的最终配置。
func (c *Config) Validate() error {
	if c.MaxSteps < 0 {
		return fmt.Errorf("MAX_STEPS must be >= 0, got %d", c.MaxSteps)
	}
	if c.ModelTimeout < 0 {
		return fmt.Errorf("MODEL_TIMEOUT must be >= 0, got %d", c.ModelTimeout)
	}
	switch strings.ToLower(strings.TrimSpace(c.Provider)) {
	case "opper":
		if strings.TrimSpace(c.GatewayURL) == "" {
			return fmt.Errorf("GATEWAY_URL is required for the opper provider")
		}
	case "anthropic":
	default:
		return fmt.Errorf("PROVIDER must be opper or anthropic, got %q", c.Provider)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("MODEL is required")
	}
	return nil
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
