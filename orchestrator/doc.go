// Package orchestrator 实现工具调用编排循环。
//
// 每一步把完整会话交给模型，流式转发文本增量；当模型按约定输出
// {"toolCalls":[...]} 时执行工具、把结果追加到会话，再进入下一步，
// 直到模型不再调用工具或达到最大步数。
package orchestrator
