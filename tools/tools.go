package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Name 是工具名称。内置工具构成一个封闭集合，见 ParseName。
type Name string

const (
	Sum  Name = "sum"
	Diff Name = "diff"
	Prod Name = "prod"
)

// builtinNames 决定工具在提示词与列表中的顺序。
var builtinNames = []Name{Sum, Diff, Prod}

// UnknownToolError 表示模型请求了不存在的工具。
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	if e.Name == "" {
		return "Tool name is missing"
	}
	return fmt.Sprintf("Tool %s not found", e.Name)
}

// ParseName 把模型给出的名称映射到封闭集合中的 Name。
func ParseName(name string) (Name, error) {
	for _, n := range builtinNames {
		if string(n) == name {
			return n, nil
		}
	}
	return "", &UnknownToolError{Name: name}
}

// Tool 是一个可被模型调用的本地函数。
type Tool interface {
	Name() Name
	Description() string
	InputSchema() *jsonschema.Schema
	Execute(ctx context.Context, input json.RawMessage) (any, error)
}

// NumbersInput 是全部算术工具的输入。
type NumbersInput struct {
	Numbers []float64 `json:"numbers"`
}

// Output 是算术工具的输出。
type Output struct {
	Result    float64   `json:"result"`
	Operation string    `json:"operation"`
	Numbers   []float64 `json:"numbers"`
}

type arithmeticTool struct {
	name        Name
	description string
	operation   string
	schema      *jsonschema.Schema
	reduce      func(numbers []float64) (float64, error)
}

func (t *arithmeticTool) Name() Name                      { return t.name }
func (t *arithmeticTool) Description() string             { return t.description }
func (t *arithmeticTool) InputSchema() *jsonschema.Schema { return t.schema }

func (t *arithmeticTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	numbers, err := decodeNumbers(input)
	if err != nil {
		return nil, err
	}
	result, err := t.reduce(numbers)
	if err != nil {
		return nil, err
	}
	return Output{Result: result, Operation: t.operation, Numbers: numbers}, nil
}

func decodeNumbers(input json.RawMessage) ([]float64, error) {
	if len(input) == 0 {
		return nil, fmt.Errorf("numbers is required")
	}
	var in NumbersInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if in.Numbers == nil {
		return nil, fmt.Errorf("numbers is required")
	}
	return in.Numbers, nil
}

// NewSumTool 返回 sum 工具：从 0 开始累加。
func NewSumTool() Tool {
	return &arithmeticTool{
		name:        Sum,
		description: "Calculate sum of multiple numbers",
		operation:   "sum",
		schema:      numbersSchema("Array of numbers to sum"),
		reduce: func(numbers []float64) (float64, error) {
			var acc float64
			for _, n := range numbers {
				acc += n
			}
			return acc, nil
		},
	}
}

// NewDiffTool 返回 diff 工具：第一个数依次减去其余各数。
func NewDiffTool() Tool {
	return &arithmeticTool{
		name:        Diff,
		description: "Calculate difference of multiple numbers",
		operation:   "difference",
		schema:      numbersSchema("Array of numbers to subtract (first - rest)"),
		reduce: func(numbers []float64) (float64, error) {
			if len(numbers) == 0 {
				return 0, fmt.Errorf("numbers must not be empty")
			}
			acc := numbers[0]
			for _, n := range numbers[1:] {
				acc -= n
			}
			return acc, nil
		},
	}
}

// NewProdTool 返回 prod 工具：从 1 开始累乘。
func NewProdTool() Tool {
	return &arithmeticTool{
		name:        Prod,
		description: "Calculate product of multiple numbers",
		operation:   "product",
		schema:      numbersSchema("Array of numbers to multiply"),
		reduce: func(numbers []float64) (float64, error) {
			acc := 1.0
			for _, n := range numbers {
				acc *= n
			}
			return acc, nil
		},
	}
}

// Builtin 返回全部内置工具。
func Builtin() []Tool {
	return []Tool{NewSumTool(), NewDiffTool(), NewProdTool()}
}
