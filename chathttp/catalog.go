package chathttp

import (
	"net/http"

	"github.com/invopop/jsonschema"

	"github.com/LubyRuffy/toolchat"
)

type modelList struct {
	Object  string                 `json:"object"`
	Default string                 `json:"default"`
	Data    []toolchat.PresetModel `json:"data"`
}

type toolInfo struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}

type toolList struct {
	Object string     `json:"object"`
	Data   []toolInfo `json:"data"`
}

// Models 处理 GET {base}/models。
func (h *Handlers) Models(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, modelList{
		Object:  "list",
		Default: h.cfg.Model,
		Data:    toolchat.PresetModels(),
	})
}

// Tools 处理 GET {base}/tools：按注册顺序列出工具及其输入 schema。
func (h *Handlers) Tools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	registered := h.cfg.Registry.List()
	data := make([]toolInfo, 0, len(registered))
	for _, tool := range registered {
		data = append(data, toolInfo{
			Name:        string(tool.Name()),
			Description: tool.Description(),
			InputSchema: tool.InputSchema(),
		})
	}
	writeJSON(w, toolList{Object: "list", Data: data})
}
