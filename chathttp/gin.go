package chathttp

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// RegisterGinRoutes 在 BasePath 下注册全部 API 路由。
func RegisterGinRoutes(r gin.IRouter, cfg Config) error {
	if r == nil {
		return fmt.Errorf("router is nil")
	}
	h, err := NewHandlers(cfg)
	if err != nil {
		return err
	}

	basePath := h.cfg.BasePath
	r.POST(joinPath(basePath, "/stream/sse_tools"), gin.WrapF(h.StreamTools))
	r.POST(joinPath(basePath, "/stream/sse"), gin.WrapF(h.Stream))
	r.POST(joinPath(basePath, "/chat"), gin.WrapF(h.Chat))
	r.GET(joinPath(basePath, "/models"), gin.WrapF(h.Models))
	r.GET(joinPath(basePath, "/tools"), gin.WrapF(h.Tools))
	return nil
}

// RegisterGinPage 在 "/" 注册内置的浏览器页面。
func RegisterGinPage(r gin.IRouter, basePath string) error {
	if r == nil {
		return fmt.Errorf("router is nil")
	}
	page, err := PageHandler(basePath)
	if err != nil {
		return err
	}
	r.GET("/", gin.WrapF(page))
	return nil
}
