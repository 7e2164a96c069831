package chathttp

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cloudwego/eino/schema"
	"github.com/tidwall/gjson"

	"github.com/LubyRuffy/toolchat/orchestrator"
	"github.com/LubyRuffy/toolchat/tools"
)

const (
	responseTypeText         = "text"
	responseTypeFunctionCall = "function_call"
)

// FunctionCallResponse 是 /chat 一次性协议的结构化结果。
type FunctionCallResponse struct {
	Type         string          `json:"type"`
	Message      string          `json:"message,omitempty"`
	Prompt       string          `json:"prompt,omitempty"`
	FunctionCall string          `json:"function_call,omitempty"`
	FunctionArgs json.RawMessage `json:"function_args,omitempty"`
	// Result 为 nil 表示没有计算（文本回复或未知函数）。
	Result *float64 `json:"result"`
}

type chatResponse struct {
	Response FunctionCallResponse `json:"response"`
}

// Chat 处理 POST {base}/chat：模型按 JSON 协议回复，function_call 时在服务端执行对应工具。
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	ctx, cancel, logger := h.requestScope(r, "chat")
	defer cancel()

	req, err := decodeChatRequest(r)
	if err != nil {
		logger.Warn().Err(err).Msg("rejected request")
		writeInternalError(w)
		return
	}
	model, err := h.newChatModel(ctx, ModelRequest{CallName: callNameOr(req.Name, defaultChatCallName)})
	if err != nil {
		logger.Error().Err(err).Msg("failed to create model")
		writeInternalError(w)
		return
	}

	out, err := model.Generate(ctx, orchestrator.ToSchemaMessages(h.chatPrompt, req.Messages))
	if err != nil {
		logger.Error().Err(err).Msg("model call failed")
		writeInternalError(w)
		return
	}

	resp, err := h.resolveFunctionCall(r, out)
	if err != nil {
		logger.Error().Err(err).Msg("failed to resolve model response")
		writeInternalError(w)
		return
	}
	logger.Info().Str("type", resp.Type).Str("function_call", resp.FunctionCall).Msg("chat finished")
	writeJSON(w, chatResponse{Response: *resp})
}

func (h *Handlers) resolveFunctionCall(r *http.Request, out *schema.Message) (*FunctionCallResponse, error) {
	if out == nil {
		return nil, fmt.Errorf("empty model response")
	}
	resp, err := parseFunctionCallResponse(out.Content)
	if err != nil {
		return nil, err
	}
	if resp.Type != responseTypeFunctionCall {
		return resp, nil
	}
	if _, err := tools.ParseName(resp.FunctionCall); err != nil {
		return resp, nil
	}

	input, err := json.Marshal(tools.NumbersInput{Numbers: functionArgValues(resp.FunctionArgs)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode function args: %w", err)
	}
	output, err := h.cfg.Registry.Execute(r.Context(), resp.FunctionCall, input)
	if err != nil {
		return nil, fmt.Errorf("function %s failed: %w", resp.FunctionCall, err)
	}
	result := gjson.GetBytes(output, "result")
	if !result.Exists() {
		return nil, fmt.Errorf("function %s returned no result", resp.FunctionCall)
	}
	value := result.Float()
	resp.Result = &value
	return resp, nil
}

// parseFunctionCallResponse 从模型输出中定位第一个带 type 字段的 JSON 对象。
func parseFunctionCallResponse(content string) (*FunctionCallResponse, error) {
	obj, ok := orchestrator.FindJSONObject(content, func(obj string) bool {
		return gjson.Get(obj, "type").Type == gjson.String
	})
	if !ok {
		return nil, fmt.Errorf("model response is not a JSON object")
	}
	parsed := gjson.Parse(obj)
	resp := &FunctionCallResponse{
		Type:         parsed.Get("type").String(),
		Message:      parsed.Get("message").String(),
		Prompt:       parsed.Get("prompt").String(),
		FunctionCall: parsed.Get("function_call").String(),
	}
	if args := parsed.Get("function_args"); args.IsObject() {
		resp.FunctionArgs = json.RawMessage(args.Raw)
	}
	return resp, nil
}

// functionArgValues 按 JSON 中的出现顺序取出全部数值参数。
func functionArgValues(args json.RawMessage) []float64 {
	values := make([]float64, 0)
	if len(args) == 0 {
		return values
	}
	gjson.ParseBytes(args).ForEach(func(_, value gjson.Result) bool {
		if value.Type == gjson.Number {
			values = append(values, value.Float())
		}
		return true
	})
	return values
}
