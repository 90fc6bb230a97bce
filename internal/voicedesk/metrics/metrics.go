// Package metrics 定义 voicedesk 的业务指标，注册到默认 Registry 并通过 /metrics 导出。
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/voicedesk/pkg/infra/metrics"
)

var (
	// EventsPublished 按事件类型统计写入中继的事件。
	EventsPublished = metrics.NewCounterVec("voicedesk_events_published_total", "Events appended to a relay stream", "type")

	// SSESubscribers 当前打开的 SSE 连接数。
	SSESubscribers = metrics.NewGauge("voicedesk_sse_subscribers", "Open SSE subscriptions")

	// ChunksStored 写入知识库的分块数。
	ChunksStored = metrics.NewCounter("voicedesk_knowledge_chunks_stored_total", "Knowledge chunks stored by ingestion")

	// FunctionCalls 按函数类别统计 webhook 分发。
	FunctionCalls = metrics.NewCounterVec("voicedesk_function_calls_total", "Webhook function calls dispatched", "class")

	// RequestDuration HTTP 请求耗时（秒）。
	RequestDuration = metrics.NewHistogram("voicedesk_http_request_duration_seconds", "HTTP request latency", nil)
)

func init() {
	metrics.Register(EventsPublished)
	metrics.Register(SSESubscribers)
	metrics.Register(ChunksStored)
	metrics.Register(FunctionCalls)
	metrics.Register(RequestDuration)
}

// Handler serves the default registry in Prometheus text format.
func Handler(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", []byte(metrics.Export()))
}

// ObserveLatency 记录请求耗时，SSE 长连接除外。
func ObserveLatency(skipPrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		for _, p := range skipPrefixes {
			if strings.HasPrefix(c.Request.URL.Path, p) {
				return
			}
		}
		RequestDuration.Observe(time.Since(start).Seconds())
	}
}
