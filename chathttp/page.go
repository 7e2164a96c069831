package chathttp

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
)

//go:embed web/index.html
var webFS embed.FS

var pageTemplate = template.Must(template.ParseFS(webFS, "web/index.html"))

// PageHandler 返回内置的浏览器聊天页面，页面请求 {basePath}/stream/sse_tools。
func PageHandler(basePath string) (http.HandlerFunc, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, struct{ StreamToolsPath string }{
		StreamToolsPath: joinPath(basePath, "/stream/sse_tools"),
	}); err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}
	page := buf.Bytes()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			writeMethodNotAllowed(w)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	}, nil
}
