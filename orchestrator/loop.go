package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/LubyRuffy/toolchat/chatapi"
	"github.com/LubyRuffy/toolchat/internal/observability"
	"github.com/LubyRuffy/toolchat/tools"
)

// DefaultMaxSteps 是未配置时允许的最大工具调用步数。
const DefaultMaxSteps = 5

// FinishReasonError 仅出现在 Result 中，表示循环以 error 事件结束。
const FinishReasonError = "error"

// ErrSinkClosed 表示客户端连接已经关闭，循环应立即停止且不再调用模型。
var ErrSinkClosed = errors.New("sink closed")

// Sink 按发送顺序接收事件。连接关闭后必须返回 ErrSinkClosed（可包装）。
type Sink interface {
	Send(ctx context.Context, chunk chatapi.StreamChunk) error
}

// StreamModel 是循环对模型的最小依赖，backend.ChatModel 与 backend.AnthropicModel 均满足。
type StreamModel interface {
	Stream(ctx context.Context, input []*schema.Message, opts ...einoModel.Option) (*schema.StreamReader[*schema.Message], error)
}

type Config struct {
	Model    StreamModel
	Registry *tools.Registry
	// MaxSteps 为 0 时第一步即以 max_steps_reached 结束；小于 0 使用 DefaultMaxSteps。
	MaxSteps int
	// SystemPrompt 为空时使用 tools.SystemPrompt(Registry)。
	SystemPrompt string
	// Logger 为空时使用全局 logger；ctx 中通过 zerolog.Logger.WithContext 注入的 logger 优先。
	Logger *zerolog.Logger
}

// Result 是一次循环运行的结果。
type Result struct {
	Conversation chatapi.Conversation
	TotalSteps   int
	FinishReason string
	// Err 是以 error 事件结束时的原因（模型调用或流读取失败）。
	Err error
}

type Loop struct {
	model        StreamModel
	registry     *tools.Registry
	maxSteps     int
	systemPrompt string
	logger       zerolog.Logger
}

func New(cfg Config) (*Loop, error) {
	if cfg.Model == nil {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("tool registry is required")
	}
	maxSteps := cfg.MaxSteps
	if maxSteps < 0 {
		maxSteps = DefaultMaxSteps
	}
	prompt := cfg.SystemPrompt
	if strings.TrimSpace(prompt) == "" {
		prompt = tools.SystemPrompt(cfg.Registry)
	}
	logger := observability.GetLogger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Loop{
		model:        cfg.Model,
		registry:     cfg.Registry,
		maxSteps:     maxSteps,
		systemPrompt: prompt,
		logger:       logger.With().Str("component", "orchestrator").Logger(),
	}, nil
}

func (l *Loop) MaxSteps() int { return l.maxSteps }

// Run 驱动编排循环直到发出 finish 或 error 事件。
// 只有 sink 关闭时返回非 nil error（包装 ErrSinkClosed）。
func (l *Loop) Run(ctx context.Context, conv chatapi.Conversation, sink Sink) (*Result, error) {
	logger := l.loggerFrom(ctx)
	result := &Result{Conversation: conv}

	for step := 0; ; step++ {
		if step >= l.maxSteps {
			logger.Info().Int("step", step).Msg("max steps reached")
			result.TotalSteps = step
			result.FinishReason = chatapi.FinishReasonMaxStepsReached
			return l.finish(ctx, sink, result, chatapi.NewFinish(chatapi.FinishReasonMaxStepsReached, step))
		}

		stepLogger := logger.With().Int("step", step).Logger()
		buffer, withheld, err := l.streamStep(ctx, result.Conversation, sink)
		if err != nil {
			if errors.Is(err, ErrSinkClosed) {
				return l.sinkClosed(result, err)
			}
			stepLogger.Error().Err(err).Msg("model stream failed")
			result.TotalSteps = step
			result.FinishReason = FinishReasonError
			result.Err = err
			return l.finish(ctx, sink, result, chatapi.NewErrorChunk(err.Error()))
		}

		calls := parseToolCalls(buffer)
		if len(calls) == 0 {
			stepLogger.Debug().Int("chars", len(buffer)).Msg("no tool calls, completing")
			if withheld != "" {
				if err := sink.Send(ctx, chatapi.NewTextDelta(withheld)); err != nil {
					return l.sinkClosed(result, err)
				}
			}
			result.TotalSteps = step + 1
			result.FinishReason = chatapi.FinishReasonCompleted
			return l.finish(ctx, sink, result, chatapi.NewFinish(chatapi.FinishReasonCompleted, step+1))
		}

		stepLogger.Info().Int("tool_calls", len(calls)).Msg("executing tool calls")
		results, err := l.executeCalls(ctx, stepLogger, calls, sink)
		if err != nil {
			return l.sinkClosed(result, err)
		}
		if err := sink.Send(ctx, chatapi.NewFinishStep(step)); err != nil {
			return l.sinkClosed(result, err)
		}
		observability.RecordLoopStep()

		toolContent, err := json.Marshal(results)
		if err != nil {
			toolContent = []byte("[]")
		}
		result.Conversation = result.Conversation.Append(
			chatapi.Message{Role: chatapi.RoleAssistant, Content: buffer, ToolCalls: calls},
			chatapi.Message{Role: chatapi.RoleTool, Content: string(toolContent), ToolResults: results},
		)
	}
}

// streamStep 调用模型并消费整条流，返回完整输出与无工具调用时可补发的扣留文本。
func (l *Loop) streamStep(ctx context.Context, conv chatapi.Conversation, sink Sink) (string, string, error) {
	start := time.Now()
	sr, err := l.model.Stream(ctx, ToSchemaMessages(l.systemPrompt, conv))
	if err != nil {
		observability.RecordModelRequest(start, err)
		return "", "", err
	}
	defer sr.Close()

	var detector jsonDetector
	for {
		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			observability.RecordModelRequest(start, err)
			return "", "", err
		}
		if msg == nil || msg.Content == "" {
			continue
		}
		if detector.Feed(msg.Content) {
			if err := sink.Send(ctx, chatapi.NewTextDelta(msg.Content)); err != nil {
				return "", "", err
			}
		}
	}
	observability.RecordModelRequest(start, nil)
	return detector.Buffer(), detector.Flushable(), nil
}

// executeCalls 按顺序执行一批工具调用。失败只影响当前调用，不写入结果。
func (l *Loop) executeCalls(ctx context.Context, logger zerolog.Logger, calls []chatapi.ToolCall, sink Sink) ([]chatapi.ToolResult, error) {
	results := make([]chatapi.ToolResult, 0, len(calls))
	for _, call := range calls {
		if err := sink.Send(ctx, chatapi.NewToolCallChunk(call)); err != nil {
			return nil, err
		}

		label := toolLabel(call.Name)
		output, err := l.registry.Execute(ctx, call.Name, call.Input)
		if err != nil {
			logger.Warn().Str("tool", call.Name).Str("tool_call_id", call.ID).Err(err).Msg("tool call failed")
			observability.RecordToolCall(label, false)
			if err := sink.Send(ctx, chatapi.NewToolErrorChunk(call, err.Error())); err != nil {
				return nil, err
			}
			continue
		}

		observability.RecordToolCall(label, true)
		logger.Debug().Str("tool", call.Name).Str("tool_call_id", call.ID).RawJSON("output", output).Msg("tool call succeeded")
		res := chatapi.ToolResult{ToolCallID: call.ID, ToolName: call.Name, Output: output}
		if err := sink.Send(ctx, chatapi.NewToolResultChunk(res)); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// toolLabel 把模型给出的名称收敛到封闭集合，未知名称统一为 observability.UnknownToolLabel。
func toolLabel(name string) string {
	parsed, err := tools.ParseName(name)
	if err != nil {
		return observability.UnknownToolLabel
	}
	return string(parsed)
}

func (l *Loop) finish(ctx context.Context, sink Sink, result *Result, chunk chatapi.StreamChunk) (*Result, error) {
	if err := sink.Send(ctx, chunk); err != nil {
		return l.sinkClosed(result, err)
	}
	observability.RecordLoopRun(result.FinishReason)
	return result, nil
}

func (l *Loop) sinkClosed(result *Result, err error) (*Result, error) {
	observability.RecordLoopRun(observability.ReasonSinkClosed)
	if !errors.Is(err, ErrSinkClosed) {
		err = fmt.Errorf("%w: %v", ErrSinkClosed, err)
	}
	return result, err
}

func (l *Loop) loggerFrom(ctx context.Context) zerolog.Logger {
	if ctxLogger := zerolog.Ctx(ctx); ctxLogger != nil && ctxLogger.GetLevel() != zerolog.Disabled {
		return ctxLogger.With().Str("component", "orchestrator").Logger()
	}
	return l.logger
}

// ToSchemaMessages 把会话转换为模型输入，systemPrompt 非空时作为第一条 system 消息。
func ToSchemaMessages(systemPrompt string, conv chatapi.Conversation) []*schema.Message {
	out := make([]*schema.Message, 0, len(conv)+1)
	if systemPrompt != "" {
		out = append(out, schema.SystemMessage(systemPrompt))
	}
	for _, msg := range conv {
		switch msg.Role {
		case chatapi.RoleAssistant:
			m := &schema.Message{Role: schema.Assistant, Content: msg.Content}
			for _, call := range msg.ToolCalls {
				m.ToolCalls = append(m.ToolCalls, schema.ToolCall{
					ID:   call.ID,
					Type: "function",
					Function: schema.FunctionCall{
						Name:      call.Name,
						Arguments: string(call.Input),
					},
				})
			}
			out = append(out, m)
		case chatapi.RoleTool:
			out = append(out, &schema.Message{Role: schema.Tool, Content: msg.Content})
		default:
			out = append(out, &schema.Message{Role: schema.User, Content: msg.Content})
		}
	}
	return out
}
