package tools

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ToolCallsMarker 是工具调用 JSON 负载中的顶层 key。
const ToolCallsMarker = "toolCalls"

// SystemPrompt 渲染工具循环使用的系统指令：列出工具及其 schema，并给出调用格式。
func SystemPrompt(r *Registry) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant with access to tools.\n\nAvailable tools:\n")
	b.WriteString(describeTools(r))
	b.WriteString(`

When you need to use a tool, respond ONLY with JSON in this format:
{
  "toolCalls": [
    {
      "id": "call_<unique_id>",
      "name": "<tool_name>",
      "input": { <tool_arguments> }
    }
  ]
}

Otherwise, respond normally with text.`)
	return b.String()
}

func describeTools(r *Registry) string {
	parts := make([]string, 0, len(r.order))
	for _, tool := range r.List() {
		schema, err := json.MarshalIndent(tool.InputSchema(), "", "  ")
		if err != nil {
			schema = []byte("{}")
		}
		parts = append(parts, fmt.Sprintf("- %s: %s\n  Schema: %s", tool.Name(), tool.Description(), schema))
	}
	return strings.Join(parts, "\n\n")
}

// FunctionCallPrompt 渲染一次性 JSON 协议（/chat 路由）使用的指令。
func FunctionCallPrompt(r *Registry) string {
	var b strings.Builder
	b.WriteString("User will ask you some question, understand the user intention and answer the question.\n\nAvailable functions:\n")
	for _, tool := range r.List() {
		fmt.Fprintf(&b, "- %s (%s) - args: {num1: number, num2: number, num3: number, ...} - can accept any number of arguments\n",
			strings.ToLower(tool.Description()), tool.Name())
	}
	b.WriteString(`
IMPORTANT: Always respond with valid JSON only.

For normal questions, respond with:
{
  "type": "text",
  "message": "your answer here"
}

For function calls, respond with:
{
  "type": "function_call",
  "prompt": "user's original question",
  "function_call": "function name",
  "function_args": {"arg1": value1, "arg2": value2}
}

Ask the user for any dynamic variables or values needed.`)
	return b.String()
}
