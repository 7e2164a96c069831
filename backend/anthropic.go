package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const defaultAnthropicMaxTokens = 1024

var _ einoModel.BaseChatModel = (*AnthropicModel)(nil)

type AnthropicConfig struct {
	Model  string
	APIKey string
	// BaseURL 可选，为空时使用 SDK 默认地址。
	BaseURL      string
	HTTPClient   *http.Client
	MaxTokens    int64
	Instructions string
}

// AnthropicModel 通过 Anthropic Messages 流式接口实现与 ChatModel 相同的契约，
// 作为 Opper 网关之外的备选 provider。
type AnthropicModel struct {
	client anthropic.Client
	config AnthropicConfig
}

func NewAnthropicModel(config AnthropicConfig) (*AnthropicModel, error) {
	if strings.TrimSpace(config.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = defaultAnthropicMaxTokens
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if strings.TrimSpace(config.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if config.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(config.HTTPClient))
	}
	return &AnthropicModel{
		client: anthropic.NewClient(opts...),
		config: config,
	}, nil
}

func (m *AnthropicModel) Generate(ctx context.Context, input []*schema.Message, _ ...einoModel.Option) (*schema.Message, error) {
	var builder strings.Builder
	err := m.doStream(ctx, input, func(delta string) error {
		builder.WriteString(delta)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(builder.String(), nil), nil
}

func (m *AnthropicModel) Stream(ctx context.Context, input []*schema.Message, _ ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	if _, err := m.buildParams(input); err != nil {
		return nil, err
	}
	sr, sw := schema.Pipe[*schema.Message](64)
	go func() {
		defer sw.Close()
		err := m.doStream(ctx, input, func(delta string) error {
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

func (m *AnthropicModel) doStream(ctx context.Context, input []*schema.Message, onDelta func(string) error) error {
	params, err := m.buildParams(input)
	if err != nil {
		return err
	}

	stream := m.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	for stream.Next() {
		event := stream.Current()
		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch delta := ev.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if err := onDelta(delta.Text); err != nil {
					return err
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("anthropic stream failed: %w", err)
	}
	return nil
}

// buildParams 把会话映射为 Messages 请求：system 合并进 System，
// tool 消息作为 user 轮次发送，相邻同角色的轮次合并为一条消息。
func (m *AnthropicModel) buildParams(input []*schema.Message) (anthropic.MessageNewParams, error) {
	instructions, rest := splitInstructions(m.config.Instructions, input)

	messages := make([]anthropic.MessageParam, 0, len(rest))
	var lastRole anthropic.MessageParamRole
	for _, msg := range rest {
		text := msg.Content
		if strings.TrimSpace(text) == "" {
			continue
		}
		role := anthropic.MessageParamRoleUser
		switch msg.Role {
		case schema.Assistant:
			role = anthropic.MessageParamRoleAssistant
		case schema.Tool:
			text = "Tool results: " + text
		}

		block := anthropic.NewTextBlock(text)
		if len(messages) > 0 && lastRole == role {
			last := &messages[len(messages)-1]
			last.Content = append(last.Content, block)
			continue
		}
		messages = append(messages, anthropic.MessageParam{
			Role:    role,
			Content: []anthropic.ContentBlockParamUnion{block},
		})
		lastRole = role
	}
	if len(messages) == 0 {
		return anthropic.MessageNewParams{}, fmt.Errorf("no valid messages to send")
	}

	return anthropic.MessageNewParams{
		Model:     anthropic.Model(m.config.Model),
		MaxTokens: m.config.MaxTokens,
		System:    []anthropic.TextBlockParam{{Text: instructions}},
		Messages:  messages,
	}, nil
}
