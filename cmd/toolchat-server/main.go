package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/LubyRuffy/toolchat"
	"github.com/LubyRuffy/toolchat/auth"
	"github.com/LubyRuffy/toolchat/chathttp"
	"github.com/LubyRuffy/toolchat/internal/config"
	"github.com/LubyRuffy/toolchat/internal/observability"
)

const serviceName = "toolchat-server"

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger := observability.GetLogger()
		logger.Fatal().Err(err).Msg("load config failed")
	}

	var (
		listen      = flag.String("listen", cfg.Listen, "listen address")
		basePath    = flag.String("base-path", cfg.BasePath, "api base path")
		provider    = flag.String("provider", cfg.Provider, "model provider: opper|anthropic")
		gatewayURL  = flag.String("gateway-url", cfg.GatewayURL, "opper gateway base url")
		model       = flag.String("model", cfg.Model, "model id")
		callName    = flag.String("call-name", cfg.CallName, "gateway call name for the tool loop")
		maxSteps    = flag.Int("max-steps", cfg.MaxSteps, "max tool loop steps (0 finishes immediately)")
		authSource  = flag.String("auth-source", cfg.AuthSource, "auth source: env|file|auto")
		authFile    = flag.String("auth-file", cfg.AuthFile, "auth file path (default: ~/.config/toolchat/auth.json)")
		corsOrigins = flag.String("cors-origins", strings.Join(cfg.CORSAllowedOrigins, ","), "comma separated CORS allowed origins")
		logLevel    = flag.String("log-level", cfg.LogLevel, "log level: debug|info|warn|error")
		logPretty   = flag.Bool("log-pretty", cfg.LogPretty, "human readable console logs")
		metrics     = flag.Bool("metrics", cfg.MetricsEnabled, "expose /metrics")
	)
	flag.Parse()

	cfg.Listen = *listen
	cfg.BasePath = *basePath
	cfg.Provider = *provider
	cfg.GatewayURL = *gatewayURL
	cfg.Model = *model
	cfg.CallName = *callName
	cfg.MaxSteps = *maxSteps
	cfg.AuthSource = *authSource
	cfg.AuthFile = *authFile
	cfg.CORSAllowedOrigins = splitOrigins(*corsOrigins)
	cfg.LogLevel = *logLevel
	cfg.LogPretty = *logPretty
	cfg.MetricsEnabled = *metrics

	logger := observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	backendName, err := auth.ParseBackend(cfg.Provider)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid provider")
	}
	if warning := modelWarning(cfg.Model); warning != "" {
		logger.Warn().Str("model", cfg.Model).Msg(warning)
	}
	authProvider, err := auth.NewProvider(cfg.AuthSource, backendName, cfg.AuthFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid auth-source")
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(requestLogger(logger), gin.Recovery())

	if err := chathttp.RegisterGinRoutes(r, chathttp.Config{
		BasePath:     cfg.BasePath,
		Provider:     string(backendName),
		GatewayURL:   cfg.GatewayURL,
		AuthProvider: authProvider.Auth,
		Model:        cfg.Model,
		CallName:     cfg.CallName,
		MaxSteps:     cfg.MaxSteps,
		ModelTimeout: time.Duration(cfg.ModelTimeout) * time.Second,
		Logger:       &logger,
	}); err != nil {
		logger.Fatal().Err(err).Msg("register routes failed")
	}
	if err := chathttp.RegisterGinPage(r, cfg.BasePath); err != nil {
		logger.Fatal().Err(err).Msg("register page failed")
	}
	r.GET("/health", gin.WrapF(observability.HealthCheckHandler(serviceName, version)))
	if cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(observability.MetricsHandler()))
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           chathttp.WithCORS(r, cfg.CORSAllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	local := addrForLocalClient(cfg.Listen)
	logger.Info().
		Str("listen", cfg.Listen).
		Str("provider", string(backendName)).
		Str("model", cfg.Model).
		Str("version", version).
		Msg("toolchat server listening")
	logger.Info().Msgf("open: http://%s/", local)
	logger.Info().Msgf(`try: curl -N http://%s%s/stream/sse_tools -H 'Content-Type: application/json' -d '{"messages":[{"role":"user","content":"add 5 and 10"}]}'`, local, strings.TrimRight(cfg.BasePath, "/"))

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}

// requestLogger 用 zerolog 记录每个请求，替代 gin.Logger 的文本输出。
func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// modelWarning 对不在预置列表中的模型返回告警文本。
func modelWarning(model string) string {
	if toolchat.IsPresetModelID(model) {
		return ""
	}
	return "model is not in the preset list, requests may fail if the gateway does not support it"
}

func splitOrigins(value string) []string {
	var out []string
	for _, origin := range strings.Split(value, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}

// addrForLocalClient 把监听地址转换为本机 curl 可以访问的地址。
func addrForLocalClient(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
