package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig 追踪中间件配置
type TracingConfig struct {
	ServiceName string
	// 精确匹配或以 "/" 结尾的前缀
	SkipPaths []string
}

// Tracing 为每个请求创建服务端 span，并把 traceparent 写回响应头
// span 名使用路由模板，未匹配的路由统一命名，避免按 ID 爆炸
func Tracing(cfg *TracingConfig) gin.HandlerFunc {
	serviceName := "funzone-backend"
	var skip []string
	if cfg != nil {
		if cfg.ServiceName != "" {
			serviceName = cfg.ServiceName
		}
		skip = cfg.SkipPaths
	}
	tracer := otel.Tracer(serviceName)

	return func(c *gin.Context) {
		if skipped(c.Request.URL.Path, skip) {
			c.Next()
			return
		}
		propagator := otel.GetTextMapPropagator()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPMethod(c.Request.Method),
				semconv.HTTPRoute(route),
				semconv.HTTPTarget(c.Request.URL.Path),
				attribute.String("http.client_ip", c.ClientIP()),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		propagator.Inject(ctx, propagation.HeaderCarrier(c.Writer.Header()))

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(semconv.HTTPStatusCode(status))
		if userID := c.GetInt64("user_id"); userID > 0 {
			span.SetAttributes(
				attribute.Int64("funzone.user_id", userID),
				attribute.String("funzone.role", c.GetString("role")),
			)
		}
		for _, e := range c.Errors {
			span.RecordError(e.Err)
		}
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

func skipped(path string, skip []string) bool {
	for _, p := range skip {
		if path == p || (strings.HasSuffix(p, "/") && strings.HasPrefix(path, p)) {
			return true
		}
	}
	return false
}

// GetTraceID 当前请求的 trace ID，未采样时为空
func GetTraceID(c *gin.Context) string {
	sc := trace.SpanContextFromContext(c.Request.Context())
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}
