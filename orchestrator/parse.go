package orchestrator

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/LubyRuffy/toolchat/chatapi"
	"github.com/LubyRuffy/toolchat/tools"
)

// parseToolCalls 在模型输出中定位第一个带 toolCalls 数组的 JSON 对象并解析出调用列表。
// 输出前后可以有任意文字或代码围栏；找不到或解析失败都视为没有工具调用。
// 缺少 name 的条目仍然保留，执行时作为未知工具报告 tool-error。
func parseToolCalls(text string) []chatapi.ToolCall {
	obj, ok := findToolCallsObject(text)
	if !ok {
		return nil
	}

	var calls []chatapi.ToolCall
	gjson.Get(obj, tools.ToolCallsMarker).ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		name := strings.TrimSpace(item.Get("name").String())
		id := strings.TrimSpace(item.Get("id").String())
		if id == "" {
			id = chatapi.NewToolCallID()
		}
		input := json.RawMessage("{}")
		if raw := item.Get("input"); raw.Exists() && raw.Raw != "" {
			input = json.RawMessage(raw.Raw)
		}
		calls = append(calls, chatapi.ToolCall{ID: id, Name: name, Input: input})
		return true
	})
	return calls
}

func findToolCallsObject(text string) (string, bool) {
	if !strings.Contains(text, tools.ToolCallsMarker) {
		return "", false
	}
	return FindJSONObject(text, func(obj string) bool {
		return gjson.Get(obj, tools.ToolCallsMarker).IsArray()
	})
}

// FindJSONObject 扫描每个 '{'，按括号配对（跳过字符串内的括号）截取候选对象，
// 返回第一个合法且满足 match 的对象；match 为 nil 时接受任意合法对象。
func FindJSONObject(text string, match func(obj string) bool) (string, bool) {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		end := matchBrace(text, start)
		if end < 0 {
			continue
		}
		candidate := text[start : end+1]
		if !gjson.Valid(candidate) {
			continue
		}
		if match == nil || match(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// matchBrace 返回与 text[start] 处 '{' 配对的 '}' 下标，不配对时返回 -1。
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
