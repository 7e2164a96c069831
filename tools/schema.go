package tools

import "github.com/invopop/jsonschema"

// numbersSchema 从 NumbersInput 反射出 JSON Schema，并替换 numbers 字段的描述。
func numbersSchema(description string) *jsonschema.Schema {
	r := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}
	s := r.Reflect(&NumbersInput{})
	// 提示词里不需要 $schema 头
	s.Version = ""
	if prop, ok := s.Properties.Get("numbers"); ok && prop != nil {
		prop.Description = description
	}
	return s
}
