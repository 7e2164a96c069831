package chatapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFinish_ZeroTotalStepsSerialized(t *testing.T) {
	data, err := json.Marshal(NewFinish(FinishReasonMaxStepsReached, 0))
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"finish","reason":"max_steps_reached","totalSteps":0}`, string(data))
}

func TestToolChunksWireShape(t *testing.T) {
	call := ToolCall{ID: "call_1", Name: "sum", Input: json.RawMessage(`{"numbers":[1,2]}`)}

	data, err := json.Marshal(NewToolCallChunk(call))
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"tool-call","toolCallId":"call_1","toolName":"sum","input":{"numbers":[1,2]}}`, string(data))

	data, err = json.Marshal(NewToolErrorChunk(call, "boom"))
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"tool-error","toolCallId":"call_1","toolName":"sum","error":"boom"}`, string(data))

	data, err = json.Marshal(NewFinishStep(0))
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"finish-step","stepNumber":0}`, string(data))
}

func TestDecodeStreamChunk(t *testing.T) {
	chunk, err := DecodeStreamChunk([]byte(`{"type":"tool-result","toolCallId":"call_1","toolName":"sum","output":{"result":3}}`))
	require.NoError(t, err)
	result, ok := chunk.(ToolResultChunk)
	require.True(t, ok)
	require.Equal(t, "call_1", result.ToolCallID)
	require.JSONEq(t, `{"result":3}`, string(result.Output))

	chunk, err = DecodeStreamChunk([]byte(`{"type":"error","error":"upstream down"}`))
	require.NoError(t, err)
	require.True(t, IsTerminal(chunk))
	require.Equal(t, NewErrorChunk("upstream down"), chunk)

	_, err = DecodeStreamChunk([]byte(`{"type":"nope"}`))
	require.Error(t, err)
}

func TestIsTerminal(t *testing.T) {
	require.True(t, IsTerminal(NewFinish(FinishReasonCompleted, 1)))
	require.False(t, IsTerminal(NewTextDelta("x")))
	require.False(t, IsTerminal(NewFinishStep(0)))
	require.False(t, IsTerminal(nil))
}
