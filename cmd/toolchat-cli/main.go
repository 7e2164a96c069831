package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/LubyRuffy/toolchat"
	"github.com/LubyRuffy/toolchat/auth"
	"github.com/LubyRuffy/toolchat/backend"
	"github.com/LubyRuffy/toolchat/chatapi"
	"github.com/LubyRuffy/toolchat/internal/observability"
	"github.com/LubyRuffy/toolchat/orchestrator"
	"github.com/LubyRuffy/toolchat/tools"
)

func main() {
	var (
		model      = flag.String("model", toolchat.DefaultModel, "model id")
		input      = flag.String("input", "What is 5 + 10 - 3?", "user input")
		provider   = flag.String("provider", "opper", "model provider: opper|anthropic")
		gatewayURL = flag.String("gateway-url", toolchat.DefaultGatewayURL, "opper gateway base url")
		callName   = flag.String("call-name", toolchat.DefaultCallName, "gateway call name")
		maxSteps   = flag.Int("max-steps", toolchat.DefaultMaxSteps, "max tool loop steps")
		authSource = flag.String("auth-source", "auto", "auth source: env|file|auto")
		authFile   = flag.String("auth-file", "", "auth file path")
		logLevel   = flag.String("log-level", "warn", "log level")
	)
	flag.Parse()

	logger := observability.InitLogger(*logLevel, true)

	backendName, err := auth.ParseBackend(*provider)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid provider")
	}
	authProvider, err := auth.NewProvider(*authSource, backendName, *authFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid auth-source")
	}
	apiKey, err := authProvider.Auth(context.Background())
	if err != nil {
		logger.Fatal().Err(err).Msg("auth failed")
	}

	m, err := newModel(backendName, *model, *gatewayURL, *callName, apiKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("create model failed")
	}
	registry, err := tools.NewDefaultRegistry()
	if err != nil {
		logger.Fatal().Err(err).Msg("create tool registry failed")
	}
	loop, err := orchestrator.New(orchestrator.Config{
		Model:    m,
		Registry: registry,
		MaxSteps: *maxSteps,
		Logger:   &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("create loop failed")
	}

	conv := chatapi.Conversation{{Role: chatapi.RoleUser, Content: *input}}
	result, err := loop.Run(context.Background(), conv, &terminalSink{out: os.Stdout})
	if err != nil {
		logger.Fatal().Err(err).Msg("run failed")
	}
	if result.Err != nil {
		os.Exit(1)
	}
}

func newModel(backendName auth.Backend, model, gatewayURL, callName, apiKey string) (orchestrator.StreamModel, error) {
	if backendName == auth.BackendAnthropic {
		return backend.NewAnthropicModel(backend.AnthropicConfig{
			Model:  toolchat.NormalizeModelID(string(backendName), model),
			APIKey: apiKey,
		})
	}
	return backend.NewChatModel(backend.ChatModelConfig{
		Model:      toolchat.NormalizeModelID(string(backendName), model),
		Name:       callName,
		GatewayURL: gatewayURL,
		APIKey:     apiKey,
	})
}

// terminalSink 把事件渲染为终端文本：模型文本原样输出，工具事件单独成行。
type terminalSink struct {
	out io.Writer
	// midLine 表示上一段文本没有以换行结尾。
	midLine bool
}

func (s *terminalSink) Send(_ context.Context, chunk chatapi.StreamChunk) error {
	var err error
	switch c := chunk.(type) {
	case chatapi.TextDelta:
		_, err = fmt.Fprint(s.out, c.Text)
		s.midLine = !strings.HasSuffix(c.Text, "\n")
	case chatapi.ToolCallChunk:
		err = s.line("[tool-call] %s(%s) id=%s", c.ToolName, string(c.Input), c.ToolCallID)
	case chatapi.ToolResultChunk:
		err = s.line("[tool-result] %s -> %s", c.ToolName, string(c.Output))
	case chatapi.ToolErrorChunk:
		err = s.line("[tool-error] %s: %s", c.ToolName, c.Error)
	case chatapi.FinishStep:
		err = s.line("[step %d done]", c.StepNumber)
	case chatapi.Finish:
		err = s.line("[finish] reason=%s steps=%d", c.Reason, c.TotalSteps)
	case chatapi.ErrorChunk:
		err = s.line("[error] %s", c.Error)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", orchestrator.ErrSinkClosed, err)
	}
	return nil
}

func (s *terminalSink) line(format string, args ...any) error {
	if s.midLine {
		if _, err := fmt.Fprintln(s.out); err != nil {
			return err
		}
		s.midLine = false
	}
	_, err := fmt.Fprintf(s.out, format+"\n", args...)
	return err
}
