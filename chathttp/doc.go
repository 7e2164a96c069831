// Package chathttp 提供聊天前端的 HTTP 处理器。
//
// 该包对外只暴露：
// - net/http 形式的 handlers（stream/sse_tools、stream/sse、chat、models、tools）
// - Gin 路由注册方法与内置的浏览器页面
// - 基于 rs/cors 的 CORS 包装
//
// API key 仅通过回调注入（AuthProvider），该包不会读取本地文件或环境变量。
//
// 使用示例：
//
//	// net/http
//	h, _ := chathttp.NewHandlers(chathttp.Config{
//		AuthProvider: func(ctx context.Context) (string, error) { return apiKey, nil },
//	})
//	mux.HandleFunc("/api/stream/sse_tools", h.StreamTools)
//
//	// gin
//	_ = chathttp.RegisterGinRoutes(r, chathttp.Config{
//		BasePath:     "/api",
//		AuthProvider: func(ctx context.Context) (string, error) { return apiKey, nil },
//	})
package chathttp
