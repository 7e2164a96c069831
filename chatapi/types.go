package chatapi

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Role 是会话消息的角色。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid 判断是否为协议允许的角色。
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleTool:
		return true
	default:
		return false
	}
}

// ToolCall 是模型输出中解析出的一次工具调用请求。
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResult 是工具执行成功后的结果，回填到下一轮会话中。
type ToolResult struct {
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Output     json.RawMessage `json:"output"`
}

// Message 是会话中的一条消息。
type Message struct {
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	ToolCalls   []ToolCall   `json:"toolCalls,omitempty"`
	ToolResults []ToolResult `json:"toolResults,omitempty"`
}

// Conversation 是从会话开始起的有序消息序列。
// 已追加的消息不可修改：Append 总是返回新的序列。
type Conversation []Message

// Append 返回追加了 msgs 的新会话，不修改原序列的底层数组。
func (c Conversation) Append(msgs ...Message) Conversation {
	out := make(Conversation, len(c), len(c)+len(msgs))
	copy(out, c)
	return append(out, msgs...)
}

// UnmarshalJSON 兼容两种写法：消息数组，或单个字符串（视为一条 user 消息）。
func (c *Conversation) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*c = nil
		return nil
	}
	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*c = Conversation{{Role: RoleUser, Content: text}}
		return nil
	}
	var msgs []Message
	if err := json.Unmarshal(trimmed, &msgs); err != nil {
		return err
	}
	*c = Conversation(msgs)
	return nil
}

// Validate 检查会话非空且角色合法。
func (c Conversation) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("messages is required")
	}
	for i, msg := range c {
		if !msg.Role.Valid() {
			return fmt.Errorf("messages[%d]: unsupported role: %q", i, msg.Role)
		}
	}
	return nil
}

// ChatRequest 是各个 chat 路由共用的请求体。
type ChatRequest struct {
	Messages Conversation `json:"messages"`
	// Name 可选，覆盖网关侧的调用名（默认使用服务端配置）。
	Name string `json:"name,omitempty"`
}

// NewToolCallID 为缺少 id 的工具调用生成 id。
func NewToolCallID() string {
	return "call_" + uuid.New().String()[:8]
}

// NewRequestID 生成请求 ID（用于日志关联）。
func NewRequestID() string {
	return uuid.New().String()
}
