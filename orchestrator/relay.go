package orchestrator

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/LubyRuffy/toolchat/chatapi"
	"github.com/LubyRuffy/toolchat/internal/observability"
)

// Relay 不带工具地调用一次模型：每个增量作为 text-delta 转发，
// 结束时发出 finish{completed, 1}；模型出错时发出一个 error 事件。
// 只有 sink 关闭时返回非 nil error。
func Relay(ctx context.Context, model StreamModel, systemPrompt string, conv chatapi.Conversation, sink Sink) error {
	start := time.Now()
	sr, err := model.Stream(ctx, ToSchemaMessages(systemPrompt, conv))
	if err != nil {
		observability.RecordModelRequest(start, err)
		return relayEnd(ctx, sink, chatapi.NewErrorChunk(err.Error()), FinishReasonError)
	}
	defer sr.Close()

	for {
		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			observability.RecordModelRequest(start, err)
			return relayEnd(ctx, sink, chatapi.NewErrorChunk(err.Error()), FinishReasonError)
		}
		if msg == nil || msg.Content == "" {
			continue
		}
		if err := sink.Send(ctx, chatapi.NewTextDelta(msg.Content)); err != nil {
			observability.RecordLoopRun(observability.ReasonSinkClosed)
			return err
		}
	}
	observability.RecordModelRequest(start, nil)
	return relayEnd(ctx, sink, chatapi.NewFinish(chatapi.FinishReasonCompleted, 1), chatapi.FinishReasonCompleted)
}

func relayEnd(ctx context.Context, sink Sink, chunk chatapi.StreamChunk, reason string) error {
	if err := sink.Send(ctx, chunk); err != nil {
		observability.RecordLoopRun(observability.ReasonSinkClosed)
		return err
	}
	observability.RecordLoopRun(reason)
	return nil
}
