package chathttp

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/LubyRuffy/toolchat"
	"github.com/LubyRuffy/toolchat/backend"
	"github.com/LubyRuffy/toolchat/chatapi"
	"github.com/LubyRuffy/toolchat/internal/observability"
	"github.com/LubyRuffy/toolchat/tools"
)

const (
	providerOpper     = "opper"
	providerAnthropic = "anthropic"

	// relayInstructions 是 /stream/sse 使用的系统指令。
	relayInstructions = "You are a helpful assistant that can answer questions and help with tasks."
	// defaultChatCallName 是未指定 name 时 /chat 与 /stream/sse 使用的调用名。
	defaultChatCallName = "chat"
)

// Handlers 持有全部路由共享的只读状态，可被多个请求并发使用。
type Handlers struct {
	cfg          resolvedConfig
	newChatModel func(ctx context.Context, req ModelRequest) (ChatModel, error)
	toolsPrompt  string
	chatPrompt   string
	logger       zerolog.Logger
}

func NewHandlers(cfg Config) (*Handlers, error) {
	resolved, err := resolveConfig(cfg)
	if err != nil {
		return nil, err
	}
	factory := cfg.NewChatModel
	if factory == nil {
		factory = newChatModelFactory(resolved)
	}
	return &Handlers{
		cfg:          resolved,
		newChatModel: factory,
		toolsPrompt:  tools.SystemPrompt(resolved.Registry),
		chatPrompt:   tools.FunctionCallPrompt(resolved.Registry),
		logger:       resolved.Logger.With().Str("component", "chathttp").Logger(),
	}, nil
}

func newChatModelFactory(resolved resolvedConfig) func(ctx context.Context, req ModelRequest) (ChatModel, error) {
	return func(ctx context.Context, req ModelRequest) (ChatModel, error) {
		apiKey, err := resolved.AuthProvider(ctx)
		if err != nil {
			return nil, &httpError{
				Status:  http.StatusServiceUnavailable,
				Message: "auth not available",
				Err:     err,
			}
		}

		modelID := toolchat.NormalizeModelID(resolved.Provider, resolved.Model)
		var m ChatModel
		switch resolved.Provider {
		case providerAnthropic:
			m, err = backend.NewAnthropicModel(backend.AnthropicConfig{
				Model:      modelID,
				APIKey:     apiKey,
				BaseURL:    resolved.AnthropicBaseURL,
				HTTPClient: resolved.HTTPClient,
			})
		default:
			m, err = backend.NewChatModel(backend.ChatModelConfig{
				Model:      modelID,
				Name:       req.CallName,
				GatewayURL: resolved.GatewayURL,
				APIKey:     apiKey,
				HTTPClient: resolved.HTTPClient,
			})
		}
		if err != nil {
			return nil, &httpError{
				Status:  http.StatusInternalServerError,
				Message: "failed to create backend model",
				Err:     err,
			}
		}
		return m, nil
	}
}

type resolvedConfig struct {
	BasePath         string
	Provider         string
	GatewayURL       string
	AnthropicBaseURL string
	HTTPClient       *http.Client
	AuthProvider     AuthProvider
	Model            string
	CallName         string
	MaxSteps         int
	ModelTimeout     time.Duration
	Registry         *tools.Registry
	Logger           zerolog.Logger
}

func resolveConfig(cfg Config) (resolvedConfig, error) {
	if cfg.AuthProvider == nil && cfg.NewChatModel == nil {
		return resolvedConfig{}, fmt.Errorf("AuthProvider is required")
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "":
		provider = providerOpper
	case providerOpper, providerAnthropic:
	default:
		return resolvedConfig{}, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}

	gatewayURL := strings.TrimSpace(cfg.GatewayURL)
	if gatewayURL == "" {
		gatewayURL = toolchat.DefaultGatewayURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = toolchat.DefaultModel
	}

	callName := strings.TrimSpace(cfg.CallName)
	if callName == "" {
		callName = toolchat.DefaultCallName
	}

	maxSteps := cfg.MaxSteps
	if maxSteps < 0 {
		maxSteps = toolchat.DefaultMaxSteps
	}

	registry := cfg.Registry
	if registry == nil {
		var err error
		if registry, err = tools.NewDefaultRegistry(); err != nil {
			return resolvedConfig{}, fmt.Errorf("failed to build tool registry: %w", err)
		}
	}

	logger := observability.GetLogger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return resolvedConfig{
		BasePath:         normalizeBasePath(cfg.BasePath),
		Provider:         provider,
		GatewayURL:       gatewayURL,
		AnthropicBaseURL: strings.TrimSpace(cfg.AnthropicBaseURL),
		HTTPClient:       client,
		AuthProvider:     cfg.AuthProvider,
		Model:            model,
		CallName:         callName,
		MaxSteps:         maxSteps,
		ModelTimeout:     cfg.ModelTimeout,
		Registry:         registry,
		Logger:           logger,
	}, nil
}

// requestScope 为请求生成 request_id、带字段的 logger 与模型调用使用的 ctx。
func (h *Handlers) requestScope(r *http.Request, route string) (context.Context, context.CancelFunc, zerolog.Logger) {
	logger := observability.WithRequestID(h.logger, chatapi.NewRequestID()).
		With().Str("route", route).Logger()
	ctx := r.Context()
	cancel := context.CancelFunc(func() {})
	if h.cfg.ModelTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, h.cfg.ModelTimeout)
	}
	return logger.WithContext(ctx), cancel, logger
}

func callNameOr(name, fallback string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return fallback
}
