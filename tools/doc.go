// Package tools 定义模型可调用的本地工具及其注册表。
//
// 包含：
//   - Tool：名称、描述、JSON Schema 输入定义、执行函数。
//   - 内置算术工具：sum、diff、prod（输入 {"numbers": [...]}，输出 {result, operation, numbers}）。
//   - Registry：启动时校验的封闭名称集合，未知名称返回 *UnknownToolError。
//   - SystemPrompt / FunctionCallPrompt：把注册表渲染成给模型的指令。
package tools
