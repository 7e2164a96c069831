// Package toolchat 是一个聊天前端服务：把用户消息转发给托管的大模型网关（默认 Opper），
// 以 SSE 把模型输出推回浏览器，并允许模型在对话中调用 sum/diff/prod 算术工具。
//
// 主要组成：
//  1. orchestrator 包：工具调用编排循环（流式检测 toolCalls JSON、执行工具、多步续写）
//  2. backend 包：Opper 网关与 Anthropic 的 eino BaseChatModel 实现
//  3. chathttp 包：/stream/sse_tools、/stream/sse、/chat 等 handlers 与 gin 路由注册
package toolchat
