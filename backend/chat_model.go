package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

var errStreamDone = errors.New("gateway stream done")

// DefaultInstructions 是当调用方未提供 system 指令时使用的默认值。
const DefaultInstructions = "You are a helpful assistant."

const maxGatewayErrBytes = 8 << 10

var _ einoModel.BaseChatModel = (*ChatModel)(nil)

type ChatModelConfig struct {
	// Model 是网关侧的模型标识，例如 openai/gpt-4o-mini。
	Model string
	// Name 是网关侧的调用名（用于网关的追踪与统计）。
	Name string
	// GatewayURL 是网关 API 根地址，流式端点为 <GatewayURL>/call/stream。
	GatewayURL   string
	APIKey       string
	HTTPClient   *http.Client
	Instructions string
}

// ChatModel 是基于 Opper 网关流式调用接口的 BaseChatModel 实现。
type ChatModel struct {
	config ChatModelConfig
}

func NewChatModel(config ChatModelConfig) (*ChatModel, error) {
	if strings.TrimSpace(config.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if strings.TrimSpace(config.GatewayURL) == "" {
		return nil, fmt.Errorf("gateway url is required")
	}
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if strings.TrimSpace(config.Name) == "" {
		config.Name = "chat"
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	return &ChatModel{config: config}, nil
}

func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...einoModel.Option) (*schema.Message, error) {
	content, err := m.doStreamRequest(ctx, input, func(string) error { return nil })
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(content, nil), nil
}

func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, _ ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	// 请求体错误在建立流之前同步返回
	if _, err := m.buildRequestPayload(input); err != nil {
		return nil, err
	}
	sr, sw := schema.Pipe[*schema.Message](64)
	go func() {
		defer sw.Close()
		_, err := m.doStreamRequest(ctx, input, func(delta string) error {
			if delta == "" {
				return nil
			}
			if closed := sw.Send(&schema.Message{Role: schema.Assistant, Content: delta}, nil); closed {
				return context.Canceled
			}
			return nil
		})
		if err != nil {
			sw.Send(nil, err)
		}
	}()
	return sr, nil
}

func (m *ChatModel) streamURL() string {
	return strings.TrimRight(strings.TrimSpace(m.config.GatewayURL), "/") + "/call/stream"
}

func (m *ChatModel) doStreamRequest(ctx context.Context, input []*schema.Message, onDelta func(string) error) (string, error) {
	payload, err := m.buildRequestPayload(input)
	if err != nil {
		return "", err
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.streamURL(), bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to build gateway request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", m.config.APIKey))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := m.config.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxGatewayErrBytes))
		return "", fmt.Errorf("gateway request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return readGatewaySSE(ctx, resp.Body, onDelta)
}

type inputItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type requestPayload struct {
	Name         string      `json:"name"`
	Model        string      `json:"model"`
	Instructions string      `json:"instructions"`
	Input        []inputItem `json:"input"`
}

func (m *ChatModel) buildRequestPayload(input []*schema.Message) (*requestPayload, error) {
	instructions, rest := splitInstructions(m.config.Instructions, input)
	items := make([]inputItem, 0, len(rest))
	for _, msg := range rest {
		items = append(items, inputItem{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no valid messages to send")
	}

	return &requestPayload{
		Name:         m.config.Name,
		Model:        m.config.Model,
		Instructions: instructions,
		Input:        items,
	}, nil
}

// splitInstructions 把 system 消息合并进 instructions，返回其余非空消息。
func splitInstructions(base string, input []*schema.Message) (string, []*schema.Message) {
	instructions := strings.TrimSpace(base)
	rest := make([]*schema.Message, 0, len(input))
	for _, msg := range input {
		if msg == nil {
			continue
		}
		if msg.Role == schema.System {
			if msg.Content == "" {
				continue
			}
			if instructions == "" {
				instructions = msg.Content
			} else {
				instructions = instructions + "\n\n" + msg.Content
			}
			continue
		}
		rest = append(rest, msg)
	}
	if instructions == "" {
		instructions = DefaultInstructions
	}
	return instructions, rest
}

func readGatewaySSE(ctx context.Context, body io.Reader, onDelta func(string) error) (string, error) {
	reader := bufio.NewReader(body)
	var dataLines []string
	var fullContent strings.Builder

	flush := func() error {
		if len(dataLines) == 0 {
			return nil
		}
		err := handleGatewayEvent(strings.Join(dataLines, "\n"), &fullContent, onDelta)
		dataLines = dataLines[:0]
		return err
	}

	for {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				if line = strings.TrimRight(line, "\r\n"); strings.HasPrefix(line, "data:") {
					dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
				}
				if err := flush(); err != nil && !errors.Is(err, errStreamDone) {
					return "", err
				}
				return fullContent.String(), nil
			}
			return "", err
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if err := flush(); err != nil {
				if errors.Is(err, errStreamDone) {
					return fullContent.String(), nil
				}
				return "", err
			}
			continue
		}

		if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return fullContent.String(), nil
			}
			if data != "" {
				dataLines = append(dataLines, data)
			}
		}
	}
}

func handleGatewayEvent(payload string, fullContent *strings.Builder, onDelta func(string) error) error {
	var raw map[string]any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil
	}

	if message := resolveErrorMessage(raw); message != "" {
		return fmt.Errorf("gateway response error: %s", message)
	}
	if done, _ := raw["done"].(bool); done {
		return errStreamDone
	}

	delta := extractDeltaText(raw)
	if delta == "" {
		return nil
	}
	fullContent.WriteString(delta)
	if onDelta != nil {
		return onDelta(delta)
	}
	return nil
}

func extractDeltaText(raw map[string]any) string {
	// 兼容 {"data": {"delta": ...}} 包裹形式
	if inner, ok := raw["data"].(map[string]any); ok {
		if _, has := raw["delta"]; !has {
			raw = inner
		}
	}
	delta, ok := raw["delta"]
	if !ok || delta == nil {
		return ""
	}
	switch value := delta.(type) {
	case string:
		return value
	case map[string]any:
		if text, ok := value["text"].(string); ok {
			return text
		}
	}
	return ""
}

func resolveErrorMessage(raw map[string]any) string {
	errValue, ok := raw["error"]
	if !ok || errValue == nil {
		return ""
	}
	switch value := errValue.(type) {
	case string:
		return value
	case map[string]any:
		if msg, ok := value["message"].(string); ok {
			return msg
		}
		return "unknown error"
	default:
		return "unknown error"
	}
}
