package chatapi

import (
	"encoding/json"
	"fmt"
)

// ChunkType 是 StreamChunk 的类型标签。
type ChunkType string

const (
	ChunkTextDelta  ChunkType = "text-delta"
	ChunkToolCall   ChunkType = "tool-call"
	ChunkToolResult ChunkType = "tool-result"
	ChunkToolError  ChunkType = "tool-error"
	ChunkFinishStep ChunkType = "finish-step"
	ChunkFinish     ChunkType = "finish"
	ChunkError      ChunkType = "error"
)

// finish 的 reason 取值。
const (
	FinishReasonCompleted       = "completed"
	FinishReasonMaxStepsReached = "max_steps_reached"
)

// StreamChunk 是推送给客户端的事件（tagged union）。
// 所有实现都应通过 New* 构造，以保证 type 字段被正确设置。
type StreamChunk interface {
	ChunkType() ChunkType
}

type TextDelta struct {
	Type ChunkType `json:"type"`
	Text string    `json:"text"`
}

type ToolCallChunk struct {
	Type       ChunkType       `json:"type"`
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Input      json.RawMessage `json:"input"`
}

type ToolResultChunk struct {
	Type       ChunkType       `json:"type"`
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Output     json.RawMessage `json:"output"`
}

type ToolErrorChunk struct {
	Type       ChunkType `json:"type"`
	ToolCallID string    `json:"toolCallId"`
	ToolName   string    `json:"toolName"`
	Error      string    `json:"error"`
}

type FinishStep struct {
	Type       ChunkType `json:"type"`
	StepNumber int       `json:"stepNumber"`
}

type Finish struct {
	Type       ChunkType `json:"type"`
	Reason     string    `json:"reason"`
	TotalSteps int       `json:"totalSteps"`
}

type ErrorChunk struct {
	Type  ChunkType `json:"type"`
	Error string    `json:"error"`
}

func (TextDelta) ChunkType() ChunkType       { return ChunkTextDelta }
func (ToolCallChunk) ChunkType() ChunkType   { return ChunkToolCall }
func (ToolResultChunk) ChunkType() ChunkType { return ChunkToolResult }
func (ToolErrorChunk) ChunkType() ChunkType  { return ChunkToolError }
func (FinishStep) ChunkType() ChunkType      { return ChunkFinishStep }
func (Finish) ChunkType() ChunkType          { return ChunkFinish }
func (ErrorChunk) ChunkType() ChunkType      { return ChunkError }

func NewTextDelta(text string) TextDelta {
	return TextDelta{Type: ChunkTextDelta, Text: text}
}

func NewToolCallChunk(call ToolCall) ToolCallChunk {
	return ToolCallChunk{Type: ChunkToolCall, ToolCallID: call.ID, ToolName: call.Name, Input: call.Input}
}

func NewToolResultChunk(result ToolResult) ToolResultChunk {
	return ToolResultChunk{Type: ChunkToolResult, ToolCallID: result.ToolCallID, ToolName: result.ToolName, Output: result.Output}
}

func NewToolErrorChunk(call ToolCall, message string) ToolErrorChunk {
	return ToolErrorChunk{Type: ChunkToolError, ToolCallID: call.ID, ToolName: call.Name, Error: message}
}

func NewFinishStep(step int) FinishStep {
	return FinishStep{Type: ChunkFinishStep, StepNumber: step}
}

func NewFinish(reason string, totalSteps int) Finish {
	return Finish{Type: ChunkFinish, Reason: reason, TotalSteps: totalSteps}
}

func NewErrorChunk(message string) ErrorChunk {
	return ErrorChunk{Type: ChunkError, Error: message}
}

// IsTerminal 判断 chunk 是否为终止事件（finish / error）。
func IsTerminal(chunk StreamChunk) bool {
	if chunk == nil {
		return false
	}
	switch chunk.ChunkType() {
	case ChunkFinish, ChunkError:
		return true
	default:
		return false
	}
}

// DecodeStreamChunk 按 type 字段把 SSE data 解析回具体的 chunk 类型。
func DecodeStreamChunk(data []byte) (StreamChunk, error) {
	var head struct {
		Type ChunkType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to decode stream chunk: %w", err)
	}

	var target StreamChunk
	var err error
	switch head.Type {
	case ChunkTextDelta:
		var c TextDelta
		err = json.Unmarshal(data, &c)
		target = c
	case ChunkToolCall:
		var c ToolCallChunk
		err = json.Unmarshal(data, &c)
		target = c
	case ChunkToolResult:
		var c ToolResultChunk
		err = json.Unmarshal(data, &c)
		target = c
	case ChunkToolError:
		var c ToolErrorChunk
		err = json.Unmarshal(data, &c)
		target = c
	case ChunkFinishStep:
		var c FinishStep
		err = json.Unmarshal(data, &c)
		target = c
	case ChunkFinish:
		var c Finish
		err = json.Unmarshal(data, &c)
		target = c
	case ChunkError:
		var c ErrorChunk
		err = json.Unmarshal(data, &c)
		target = c
	default:
		return nil, fmt.Errorf("unknown stream chunk type: %q", head.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s chunk: %w", head.Type, err)
	}
	return target, nil
}
