package toolchat

import "strings"

const (
	// DefaultGatewayURL 是 Opper 网关 API 的默认根地址。
	DefaultGatewayURL = "https://api.opper.ai/v2"
	// DefaultModel 是网关侧默认模型。
	DefaultModel = "openai/gpt-4o-mini"
	// DefaultCallName 是工具循环在网关侧的调用名。
	DefaultCallName = "chat-with-tools"
	// DefaultMaxSteps 是工具循环默认允许的最大步数。
	DefaultMaxSteps = 5

	// AnthropicNamespace 是网关中 Anthropic 模型的前缀，直连 Anthropic 时需要去掉。
	AnthropicNamespace = "anthropic/"
)

type PresetModel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var presetModels = []PresetModel{
	{ID: DefaultModel, Name: "GPT-4o mini"},
	{ID: "openai/gpt-4o", Name: "GPT-4o"},
	{ID: "openai/gpt-4.1-mini", Name: "GPT-4.1 mini"},
	{ID: AnthropicNamespace + "claude-3-5-haiku-latest", Name: "Claude 3.5 Haiku"},
	{ID: AnthropicNamespace + "claude-sonnet-4-0", Name: "Claude Sonnet 4"},
}

// PresetModels 返回内置的模型列表（用于 /models 输出），默认模型排在第一位。
func PresetModels() []PresetModel {
	out := make([]PresetModel, len(presetModels))
	copy(out, presetModels)
	return out
}

// NormalizeModelID 返回指定 provider 需要的真实模型 ID。
// anthropic 直连时去掉 AnthropicNamespace，其他情况原样返回（仅 trim）。
func NormalizeModelID(provider, modelID string) string {
	trimmed := strings.TrimSpace(modelID)
	if strings.EqualFold(strings.TrimSpace(provider), "anthropic") {
		return strings.TrimPrefix(trimmed, AnthropicNamespace)
	}
	return trimmed
}

// IsPresetModelID 判断是否为内置模型（支持省略 anthropic/ 前缀的写法）。
func IsPresetModelID(modelID string) bool {
	trimmed := strings.TrimSpace(modelID)
	if trimmed == "" {
		return false
	}
	for _, m := range presetModels {
		if m.ID == trimmed || m.ID == AnthropicNamespace+trimmed {
			return true
		}
	}
	return false
}
