package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"

	"github.com/LubyRuffy/toolchat/chatapi"
)

func TestRelay_ForwardsEveryDelta(t *testing.T) {
	// relay 不做 JSON 检测，以 { 开头的内容也原样转发
	model := &scriptedModel{responses: [][]string{{"{", "\"a\":1}", " tail"}}}
	sink := &recordingSink{}

	err := Relay(context.Background(), model, "You are a helpful assistant.", userConversation("hi"), sink)
	require.NoError(t, err)
	require.Equal(t, []chatapi.StreamChunk{
		chatapi.NewTextDelta("{"),
		chatapi.NewTextDelta("\"a\":1}"),
		chatapi.NewTextDelta(" tail"),
		chatapi.NewFinish(chatapi.FinishReasonCompleted, 1),
	}, sink.chunks)
	require.Equal(t, schema.System, model.inputs[0][0].Role)
}

func TestRelay_ModelError(t *testing.T) {
	model := &scriptedModel{streamErr: errors.New("no valid messages to send")}
	sink := &recordingSink{}

	require.NoError(t, Relay(context.Background(), model, "", userConversation("hi"), sink))
	require.Equal(t, []chatapi.StreamChunk{chatapi.NewErrorChunk("no valid messages to send")}, sink.chunks)
}

func TestRelay_SinkClosed(t *testing.T) {
	model := &scriptedModel{responses: [][]string{{"a", "b"}}}
	sink := &recordingSink{closeAfter: 1}

	err := Relay(context.Background(), model, "", userConversation("hi"), sink)
	require.ErrorIs(t, err, ErrSinkClosed)
	require.Len(t, sink.chunks, 1)
}
