package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LubyRuffy/toolchat/auth"
	"github.com/LubyRuffy/toolchat/backend"
	"github.com/LubyRuffy/toolchat/chatapi"
	"github.com/LubyRuffy/toolchat/orchestrator"
)

func TestTerminalSink_RendersChunks(t *testing.T) {
	var out strings.Builder
	sink := &terminalSink{out: &out}
	ctx := context.Background()
	call := chatapi.ToolCall{ID: "call_1", Name: "sum", Input: json.RawMessage(`{"numbers":[5,10]}`)}

	require.NoError(t, sink.Send(ctx, chatapi.NewTextDelta("Let me add")))
	require.NoError(t, sink.Send(ctx, chatapi.NewToolCallChunk(call)))
	require.NoError(t, sink.Send(ctx, chatapi.NewToolResultChunk(chatapi.ToolResult{
		ToolCallID: "call_1", ToolName: "sum", Output: json.RawMessage(`{"result":15}`),
	})))
	require.NoError(t, sink.Send(ctx, chatapi.NewFinishStep(0)))
	require.NoError(t, sink.Send(ctx, chatapi.NewTextDelta("15\n")))
	require.NoError(t, sink.Send(ctx, chatapi.NewFinish(chatapi.FinishReasonCompleted, 2)))

	require.Equal(t, ""+
		"Let me add\n"+
		"[tool-call] sum({\"numbers\":[5,10]}) id=call_1\n"+
		"[tool-result] sum -> {\"result\":15}\n"+
		"[step 0 done]\n"+
		"15\n"+
		"[finish] reason=completed steps=2\n", out.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestTerminalSink_WriteFailureClosesSink(t *testing.T) {
	sink := &terminalSink{out: failingWriter{}}
	err := sink.Send(context.Background(), chatapi.NewTextDelta("x"))
	require.ErrorIs(t, err, orchestrator.ErrSinkClosed)
}

func TestNewModel_SelectsBackend(t *testing.T) {
	m, err := newModel(auth.BackendAnthropic, "anthropic/claude-3-5-haiku-latest", "", "", "k")
	require.NoError(t, err)
	require.IsType(t, &backend.AnthropicModel{}, m)

	m, err = newModel(auth.BackendOpper, "openai/gpt-4o-mini", "https://api.opper.ai/v2", "chat-with-tools", "k")
	require.NoError(t, err)
	require.IsType(t, &backend.ChatModel{}, m)

	_, err = newModel(auth.BackendOpper, "openai/gpt-4o-mini", "", "chat-with-tools", "k")
	require.EqualError(t, err, "gateway url is required")
}
