// Package chatapi 提供 chat 前端与浏览器之间的协议层数据结构与辅助函数。
//
// 该包只关注协议层：请求 JSON 结构、会话消息、工具调用/结果以及 SSE 推送的 StreamChunk。
// 模型调用（backend）与工具循环（orchestrator）在其他包中实现。
//
// 示例：构建一个 text-delta chunk 并以 SSE 帧输出
//
//	data, _ := json.Marshal(chatapi.NewTextDelta("hello"))
//	fmt.Fprintf(w, "data: %s\n\n", data)
package chatapi
