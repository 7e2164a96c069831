package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Registry 保存工具名称到实现的映射。构建后只读，可被多个请求并发使用。
type Registry struct {
	tools map[Name]Tool
	order []Name
}

// NewRegistry 校验并构建注册表：工具不能为 nil，名称必须属于封闭集合且不可重复。
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[Name]Tool, len(tools))}
	for _, tool := range tools {
		if tool == nil {
			return nil, fmt.Errorf("tool is nil")
		}
		name := tool.Name()
		if name == "" {
			return nil, fmt.Errorf("tool name is empty")
		}
		if _, err := ParseName(string(name)); err != nil {
			return nil, fmt.Errorf("tool %s is not a known tool name", name)
		}
		if _, exists := r.tools[name]; exists {
			return nil, fmt.Errorf("tool %s already registered", name)
		}
		r.tools[name] = tool
		r.order = append(r.order, name)
	}
	return r, nil
}

// NewDefaultRegistry 返回包含 sum/diff/prod 的注册表。
func NewDefaultRegistry() (*Registry, error) {
	r, err := NewRegistry(Builtin()...)
	if err != nil {
		return nil, err
	}
	for _, name := range builtinNames {
		if _, ok := r.tools[name]; !ok {
			return nil, fmt.Errorf("builtin tool %s missing", name)
		}
	}
	return r, nil
}

// Lookup 按模型给出的名称查找工具；未知名称返回 *UnknownToolError。
func (r *Registry) Lookup(name string) (Tool, error) {
	parsed, err := ParseName(name)
	if err != nil {
		return nil, err
	}
	tool, ok := r.tools[parsed]
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	return tool, nil
}

// List 按注册顺序返回全部工具。
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Execute 查找并执行工具，输出序列化为 JSON。
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage) (json.RawMessage, error) {
	tool, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	output, err := tool.Execute(ctx, input)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(output)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s output: %w", name, err)
	}
	return data, nil
}
