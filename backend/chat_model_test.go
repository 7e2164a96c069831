package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"
)

func TestReadGatewaySSE_DeltaAndDone(t *testing.T) {
	body := strings.NewReader("" +
		"data: {\"delta\":\"hel\",\"chunk_type\":\"text\"}\n\n" +
		"data: {\"span_id\":\"abc\"}\n\n" +
		"data: {\"delta\":\"lo\"}\n\n" +
		"data: [DONE]\n\n" +
		"data: {\"delta\":\"ignored\"}\n\n")

	var deltas []string
	content, err := readGatewaySSE(context.Background(), body, func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"hel", "lo"}, deltas)
	require.Equal(t, "hello", content)
}

func TestReadGatewaySSE_WrappedDataAndTrailingLine(t *testing.T) {
	// 最后一帧没有空行结尾，也应该被处理
	body := strings.NewReader("" +
		"data: {\"data\":{\"delta\":\"a\"}}\n\n" +
		"data: {\"delta\":{\"text\":\"b\"}}")

	content, err := readGatewaySSE(context.Background(), body, nil)
	require.NoError(t, err)
	require.Equal(t, "ab", content)
}

func TestReadGatewaySSE_ErrorEvent(t *testing.T) {
	body := strings.NewReader("" +
		"data: {\"delta\":\"partial\"}\n\n" +
		"data: {\"error\":{\"message\":\"rate limited\"}}\n\n")

	_, err := readGatewaySSE(context.Background(), body, func(string) error { return nil })
	require.EqualError(t, err, "gateway response error: rate limited")
}

func TestReadGatewaySSE_DoneFlag(t *testing.T) {
	body := strings.NewReader("" +
		"data: {\"delta\":\"x\"}\n\n" +
		"data: {\"done\":true}\n\n" +
		"data: {\"delta\":\"y\"}\n\n")

	content, err := readGatewaySSE(context.Background(), body, nil)
	require.NoError(t, err)
	require.Equal(t, "x", content)
}

func TestReadGatewaySSE_CallbackError(t *testing.T) {
	body := strings.NewReader("data: {\"delta\":\"x\"}\n\n")
	boom := errors.New("sink gone")
	_, err := readGatewaySSE(context.Background(), body, func(string) error { return boom })
	require.ErrorIs(t, err, boom)
}

func newTestChatModel(instructions string) *ChatModel {
	return &ChatModel{
		config: ChatModelConfig{
			Model:        "openai/gpt-4o-mini",
			Name:         "chat-with-tools",
			GatewayURL:   "https://example.com/v2",
			APIKey:       "test-key",
			Instructions: instructions,
		},
	}
}

func TestBuildRequestPayload_DefaultInstructions(t *testing.T) {
	m := newTestChatModel("")
	payload, err := m.buildRequestPayload([]*schema.Message{schema.UserMessage("hello")})
	require.NoError(t, err)
	require.Equal(t, DefaultInstructions, payload.Instructions)

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"name":"chat-with-tools",
		"model":"openai/gpt-4o-mini",
		"instructions":"You are a helpful assistant.",
		"input":[{"role":"user","content":"hello"}]
	}`, string(data))
}

func TestBuildRequestPayload_SystemMessagesMerged(t *testing.T) {
	m := newTestChatModel("base")
	payload, err := m.buildRequestPayload([]*schema.Message{
		schema.SystemMessage("tools prompt"),
		schema.UserMessage("add 1 and 2"),
		schema.AssistantMessage(`{"toolCalls":[]}`, nil),
		{Role: schema.Tool, Content: `[{"toolCallId":"call_1"}]`},
	})
	require.NoError(t, err)
	require.Equal(t, "base\n\ntools prompt", payload.Instructions)
	require.Equal(t, []inputItem{
		{Role: "user", Content: "add 1 and 2"},
		{Role: "assistant", Content: `{"toolCalls":[]}`},
		{Role: "tool", Content: `[{"toolCallId":"call_1"}]`},
	}, payload.Input)
}

func TestBuildRequestPayload_NoMessages(t *testing.T) {
	m := newTestChatModel("")
	_, err := m.buildRequestPayload([]*schema.Message{schema.SystemMessage("only system")})
	require.EqualError(t, err, "no valid messages to send")
}

func TestNewChatModel_Validation(t *testing.T) {
	_, err := NewChatModel(ChatModelConfig{GatewayURL: "http://x", APIKey: "k"})
	require.EqualError(t, err, "model is required")
	_, err = NewChatModel(ChatModelConfig{Model: "m", APIKey: "k"})
	require.EqualError(t, err, "gateway url is required")
	_, err = NewChatModel(ChatModelConfig{Model: "m", GatewayURL: "http://x"})
	require.EqualError(t, err, "api key is required")

	m, err := NewChatModel(ChatModelConfig{Model: "m", GatewayURL: "http://x/", APIKey: "k"})
	require.NoError(t, err)
	require.Equal(t, "chat", m.config.Name)
	require.Equal(t, "http://x/call/stream", m.streamURL())
}

func newGateway(t *testing.T, handler http.HandlerFunc) *ChatModel {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	m, err := NewChatModel(ChatModelConfig{
		Model:      "openai/gpt-4o-mini",
		Name:       "chat-with-tools",
		GatewayURL: srv.URL + "/v2",
		APIKey:     "key",
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)
	return m
}

func TestStream_ForwardsDeltas(t *testing.T) {
	m := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v2/call/stream", r.URL.Path)
		require.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		var payload requestPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "chat-with-tools", payload.Name)
		require.Len(t, payload.Input, 1)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"delta\":\"4\"}\n\n")
		fmt.Fprint(w, "data: {\"delta\":\"2\"}\n\n")
	})

	sr, err := m.Stream(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	defer sr.Close()

	var got []string
	for {
		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, msg.Content)
	}
	require.Equal(t, []string{"4", "2"}, got)
}

func TestStream_StatusErrorSurfacesOnRecv(t *testing.T) {
	m := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid api key"}`)
	})

	sr, err := m.Stream(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	defer sr.Close()

	_, err = sr.Recv()
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 401")
	require.Contains(t, err.Error(), "invalid api key")
}

func TestGenerate_CollectsContent(t *testing.T) {
	m := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"delta\":\"{\\\"type\\\":\"}\n\n")
		fmt.Fprint(w, "data: {\"delta\":\"\\\"text\\\"}\"}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	out, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	require.Equal(t, schema.Assistant, out.Role)
	require.Equal(t, `{"type":"text"}`, out.Content)
}
