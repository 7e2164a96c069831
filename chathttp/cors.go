package chathttp

import (
	"net/http"

	"github.com/rs/cors"
)

// NewCORS 允许 origins 中的浏览器来源调用 API；origins 为空时只允许同源访问，
// 包含 "*" 时允许任意来源。
func NewCORS(origins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{
			"Content-Type",
			"Cache-Control",
		},
		MaxAge: 7200,
	})
}

// WithCORS 用 NewCORS(origins) 包装 handler；origins 为空时原样返回。
func WithCORS(handler http.Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		return handler
	}
	return NewCORS(origins).Handler(handler)
}
