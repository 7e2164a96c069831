package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	loopRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toolchat_loop_runs_total",
		Help: "Total number of orchestration loop runs by finish reason",
	}, []string{"reason"})

	loopSteps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "toolchat_loop_steps_total",
		Help: "Total number of tool-calling steps executed",
	})

	toolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toolchat_tool_calls_total",
		Help: "Total number of tool calls",
	}, []string{"tool", "status"})

	modelRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toolchat_model_requests_total",
		Help: "Total number of model requests",
	}, []string{"status"})

	modelLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "toolchat_model_latency_seconds",
		Help:    "Model stream latency in seconds, from request to end of stream",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
	})

	activeStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "toolchat_active_streams",
		Help: "Number of SSE streams currently open",
	})
)

// loop 结束原因（除 finish reason 外的取值）。
const (
	ReasonError      = "error"
	ReasonSinkClosed = "sink_closed"
)

func RecordLoopRun(reason string) { loopRuns.WithLabelValues(reason).Inc() }

func RecordLoopStep() { loopSteps.Inc() }

// UnknownToolLabel 是未注册工具在 tool 标签上的取值。
const UnknownToolLabel = "unknown"

// RecordToolCall 记录一次工具调用，status 为 success 或 error。
// tool 必须来自已注册的工具名或 UnknownToolLabel。
func RecordToolCall(tool string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	toolCalls.WithLabelValues(tool, status).Inc()
}

// RecordModelRequest 记录一次模型调用及其耗时。
func RecordModelRequest(start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	modelRequests.WithLabelValues(status).Inc()
	modelLatency.Observe(time.Since(start).Seconds())
}

// StreamOpened 在 SSE 流建立时调用，返回的函数在流结束时调用。
func StreamOpened() func() {
	activeStreams.Inc()
	return activeStreams.Dec
}

// MetricsHandler 返回 Prometheus 抓取端点。
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
