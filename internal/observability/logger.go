package observability

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	loggerMu     sync.Mutex
	globalLogger zerolog.Logger
	initialized  bool
)

// ParseLevel 把配置中的日志级别转换为 zerolog 级别，无法识别时回退到 info。
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// InitLogger 初始化全局结构化日志：pretty 为 true 时输出到控制台格式，否则输出 JSON。
func InitLogger(level string, pretty bool) zerolog.Logger {
	return initLogger(os.Stderr, level, pretty)
}

func initLogger(out io.Writer, level string, pretty bool) zerolog.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	zerolog.SetGlobalLevel(ParseLevel(level))
	if pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	globalLogger = zerolog.New(out).With().Timestamp().Logger()
	log.Logger = globalLogger
	initialized = true
	return globalLogger
}

// GetLogger 返回全局 logger；未初始化时按默认值初始化。
func GetLogger() zerolog.Logger {
	loggerMu.Lock()
	ready := initialized
	logger := globalLogger
	loggerMu.Unlock()
	if !ready {
		return InitLogger("info", false)
	}
	return logger
}

// WithRequestID 返回带 request_id 字段的子 logger。
func WithRequestID(logger zerolog.Logger, requestID string) zerolog.Logger {
	return logger.With().Str("request_id", requestID).Logger()
}
