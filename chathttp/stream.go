package chathttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/LubyRuffy/toolchat/chatapi"
	"github.com/LubyRuffy/toolchat/internal/observability"
	"github.com/LubyRuffy/toolchat/orchestrator"
)

// sseSink 把事件写成 "data: <json>\n\n" 帧。
// 客户端断开（connCtx 结束）、写失败或已写出终止事件后，Send 一律返回 orchestrator.ErrSinkClosed。
type sseSink struct {
	w       io.Writer
	flusher http.Flusher
	connCtx context.Context
	closed  bool
}

func newSSESink(w http.ResponseWriter, flusher http.Flusher, connCtx context.Context) *sseSink {
	return &sseSink{w: w, flusher: flusher, connCtx: connCtx}
}

func (s *sseSink) Send(_ context.Context, chunk chatapi.StreamChunk) error {
	if s.closed {
		return orchestrator.ErrSinkClosed
	}
	if err := s.connCtx.Err(); err != nil {
		s.closed = true
		return fmt.Errorf("%w: %v", orchestrator.ErrSinkClosed, err)
	}
	data, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("failed to encode %s chunk: %w", chunk.ChunkType(), err)
	}
	if _, err := io.WriteString(s.w, formatSSE(data)); err != nil {
		s.closed = true
		return fmt.Errorf("%w: %v", orchestrator.ErrSinkClosed, err)
	}
	s.flusher.Flush()
	if chatapi.IsTerminal(chunk) {
		s.closed = true
	}
	return nil
}

// StreamTools 处理 POST {base}/stream/sse_tools：以 SSE 输出工具调用编排循环的事件。
func (h *Handlers) StreamTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	ctx, cancel, logger := h.requestScope(r, "stream/sse_tools")
	defer cancel()

	req, err := decodeChatRequest(r)
	if err != nil {
		logger.Warn().Err(err).Int("status", httpStatusFromError(err)).Msg("rejected request")
		writeInternalError(w)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.Error().Msg("streaming not supported")
		writeInternalError(w)
		return
	}

	model, err := h.newChatModel(ctx, ModelRequest{CallName: callNameOr(req.Name, h.cfg.CallName)})
	if err != nil {
		logger.Error().Err(err).Int("status", httpStatusFromError(err)).Msg("failed to create model")
		writeInternalError(w)
		return
	}
	loop, err := orchestrator.New(orchestrator.Config{
		Model:        model,
		Registry:     h.cfg.Registry,
		MaxSteps:     h.cfg.MaxSteps,
		SystemPrompt: h.toolsPrompt,
		Logger:       &logger,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to create orchestration loop")
		writeInternalError(w)
		return
	}

	writeSSEHeaders(w)
	flusher.Flush()
	defer observability.StreamOpened()()

	logger.Info().Int("messages", len(req.Messages)).Int("max_steps", loop.MaxSteps()).Msg("tool stream started")
	res, err := loop.Run(ctx, req.Messages, newSSESink(w, flusher, r.Context()))
	if err != nil {
		if errors.Is(err, orchestrator.ErrSinkClosed) {
			logger.Info().Msg("client disconnected")
			return
		}
		logger.Error().Err(err).Msg("tool stream failed")
		return
	}
	logger.Info().
		Str("finish_reason", res.FinishReason).
		Int("total_steps", res.TotalSteps).
		Int("messages", len(res.Conversation)).
		Msg("tool stream finished")
}

// Stream 处理 POST {base}/stream/sse：不带工具，直接转发模型增量。
func (h *Handlers) Stream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	ctx, cancel, logger := h.requestScope(r, "stream/sse")
	defer cancel()

	req, err := decodeChatRequest(r)
	if err != nil {
		logger.Warn().Err(err).Int("status", httpStatusFromError(err)).Msg("rejected request")
		writeInternalError(w)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.Error().Msg("streaming not supported")
		writeInternalError(w)
		return
	}
	model, err := h.newChatModel(ctx, ModelRequest{CallName: callNameOr(req.Name, defaultChatCallName)})
	if err != nil {
		logger.Error().Err(err).Int("status", httpStatusFromError(err)).Msg("failed to create model")
		writeInternalError(w)
		return
	}

	writeSSEHeaders(w)
	flusher.Flush()
	defer observability.StreamOpened()()

	if err := orchestrator.Relay(ctx, model, relayInstructions, req.Messages, newSSESink(w, flusher, r.Context())); err != nil {
		logger.Info().Err(err).Msg("client disconnected")
		return
	}
	logger.Debug().Msg("relay stream finished")
}
