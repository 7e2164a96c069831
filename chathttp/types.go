package chathttp

import (
	"context"
	"net/http"
	"time"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/LubyRuffy/toolchat/tools"
)

// AuthProvider 提供访问模型服务所需的 API key。
type AuthProvider func(ctx context.Context) (apiKey string, err error)

// ChatModel 是 handlers 对模型的依赖，backend 包中的实现均满足。
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...einoModel.Option) (*schema.Message, error)
	Stream(ctx context.Context, input []*schema.Message, opts ...einoModel.Option) (*schema.StreamReader[*schema.Message], error)
}

// ModelRequest 描述一次请求需要的模型参数。
type ModelRequest struct {
	// CallName 是网关侧的调用名。
	CallName string
}

type Config struct {
	// BasePath 仅用于 Gin 注册路由时拼接路径，默认 "/api"。
	BasePath string
	// Provider 为 opper 或 anthropic，默认 opper。
	Provider string
	// GatewayURL Opper 网关根地址，默认 toolchat.DefaultGatewayURL。
	GatewayURL string
	// AnthropicBaseURL 可选，仅 anthropic provider 使用。
	AnthropicBaseURL string
	// HTTPClient 可选，nil 时内部使用 &http.Client{}。
	HTTPClient *http.Client
	// AuthProvider 在未设置 NewChatModel 时必填。
	AuthProvider AuthProvider
	// Model 默认 toolchat.DefaultModel。
	Model string
	// CallName 工具循环的调用名，默认 toolchat.DefaultCallName。
	CallName string
	// MaxSteps 为 0 时工具循环第一步即结束；小于 0 使用默认值。
	MaxSteps int
	// ModelTimeout 限制单个请求内全部模型调用的总时长，0 表示不限制。
	ModelTimeout time.Duration
	// Registry 默认包含 sum/diff/prod。
	Registry *tools.Registry
	// Logger 为空时使用全局 logger。
	Logger *zerolog.Logger
	// NewChatModel 可选，覆盖内置的模型构建逻辑（测试或自定义 provider）。
	NewChatModel func(ctx context.Context, req ModelRequest) (ChatModel, error)
}
