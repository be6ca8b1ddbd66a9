package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	domainfacts "github.com/yungbote/kpi-visual-backend/internal/domain/facts"
	"github.com/yungbote/kpi-visual-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// AttachTraceContext stamps the request with a request id and trace id, echoes
// both as headers and tags the active span with the KPI family or upload task
// the route serves.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		traceID := resolveTraceID(c)

		ctx := c.Request.Context()
		trace.SpanFromContext(ctx).SetAttributes(routeAttributes(c, reqID)...)
		c.Request = c.Request.WithContext(ctxutil.WithTraceData(ctx, &ctxutil.TraceData{
			TraceID:   traceID,
			RequestID: reqID,
		}))
		c.Set("trace_id", traceID)
		c.Set("request_id", reqID)
		c.Writer.Header().Set(headerTraceID, traceID)
		c.Writer.Header().Set(headerRequestID, reqID)
		c.Next()
	}
}

// resolveTraceID prefers the span started by otelgin, so logs and exported
// traces share one id. Without tracing the caller's header is kept.
func resolveTraceID(c *gin.Context) string {
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	if id := strings.TrimSpace(c.GetHeader(headerTraceID)); id != "" {
		return id
	}
	return uuid.NewString()
}

func routeAttributes(c *gin.Context, reqID string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("request.id", reqID)}
	if fam, ok := familyFromPath(c.Request.URL.Path); ok {
		attrs = append(attrs, attribute.String("kpi.family", string(fam)))
	}
	if taskID := strings.TrimSpace(c.Param("task_id")); taskID != "" {
		attrs = append(attrs, attribute.String("task_id", taskID))
	}
	return attrs
}

// familyFromPath reads the family slug of /api/{family}/... routes.
func familyFromPath(path string) (domainfacts.Family, bool) {
	rest, ok := strings.CutPrefix(path, "/api/")
	if !ok {
		return "", false
	}
	slug, _, _ := strings.Cut(rest, "/")
	fam, err := domainfacts.ParseFamily(slug)
	if err != nil {
		return "", false
	}
	return fam, true
}
