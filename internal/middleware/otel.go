package middleware

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/config"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"PushOrShame/pkg/logger"
)

type httpMetrics struct {
	requestTotal   metric.Int64Counter
	duration       metric.Float64Histogram
	activeRequests metric.Int64UpDownCounter
}

var (
	httpMetricsOnce sync.Once
	httpMetricsInst *httpMetrics
)

// toValidUTF8 统一清洗用户可控字符串，防止非法 UTF-8 触发指标/trace 序列化失败
func toValidUTF8(val string) string {
	return strings.ToValidUTF8(val, "")
}

// getHTTPMetrics 首次请求时从全局 MeterProvider 创建，失败时返回 nil
func getHTTPMetrics() *httpMetrics {
	httpMetricsOnce.Do(func() {
		meter := otel.Meter("PushOrShame/http")
		m := &httpMetrics{}
		var err error

		if m.requestTotal, err = meter.Int64Counter(
			"http.server.requests.total",
			metric.WithDescription("Total number of HTTP requests"),
			metric.WithUnit("{request}"),
		); err != nil {
			logger.Logger.Warn("Failed to create HTTP metrics", zap.Error(err))
			return
		}

		if m.duration, err = meter.Float64Histogram(
			"http.server.duration",
			metric.WithDescription("HTTP request duration"),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
		); err != nil {
			logger.Logger.Warn("Failed to create HTTP metrics", zap.Error(err))
			return
		}

		if m.activeRequests, err = meter.Int64UpDownCounter(
			"http.server.active_requests",
			metric.WithDescription("Number of active HTTP requests"),
			metric.WithUnit("{request}"),
		); err != nil {
			logger.Logger.Warn("Failed to create HTTP metrics", zap.Error(err))
			return
		}

		httpMetricsInst = m
	})
	return httpMetricsInst
}

// RequestMetricsMiddleware 请求指标；span 由 hertztracing 创建，这里只补充属性
func RequestMetricsMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		m := getHTTPMetrics()
		startTime := time.Now()

		if m != nil {
			m.activeRequests.Add(ctx, 1)
		}

		c.Next(ctx)

		method := toValidUTF8(string(c.Method()))
		route := toValidUTF8(c.FullPath())
		if route == "" {
			route = "unmatched"
		}
		statusCode := c.Response.StatusCode()

		span := trace.SpanFromContext(ctx)
		if span.IsRecording() {
			if pid, ok := GetParticipantID(ctx, c); ok {
				span.SetAttributes(attribute.String("enduser.id", toValidUTF8(pid)))
			}
			if requestID := c.GetHeader("X-Request-Id"); len(requestID) > 0 {
				span.SetAttributes(attribute.String("http.request_id", toValidUTF8(string(requestID))))
			}
		}

		if m == nil {
			return
		}
		labels := metric.WithAttributes(
			semconv.HTTPMethod(method),
			semconv.HTTPRoute(route),
			semconv.HTTPStatusCode(statusCode),
		)
		m.requestTotal.Add(ctx, 1, labels)
		m.duration.Record(ctx, time.Since(startTime).Seconds(), labels)
		m.activeRequests.Add(ctx, -1)
	}
}

// NewServerTracerConfig 创建 Hertz Server 的追踪配置
// 返回用于初始化 Hertz server 的配置选项和追踪中间件
func NewServerTracerConfig(opts ...hertztracing.Option) (config.Option, app.HandlerFunc) {
	tracer, cfg := hertztracing.NewServerTracer(opts...)
	return tracer, hertztracing.ServerMiddleware(cfg)
}
