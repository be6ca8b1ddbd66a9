package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/yungbote/kpi-visual-backend/internal/platform/ctxutil"
)

func TestAttachTraceContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seen *ctxutil.TraceData
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/x", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "req-42")
	req.Header.Set("X-Trace-Id", "trace-7")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.NotNil(t, seen)
	assert.Equal(t, "req-42", seen.RequestID)
	assert.Equal(t, "trace-7", seen.TraceID)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "trace-7", rec.Header().Get("X-Trace-Id"))
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]string {
	out := map[attribute.Key]string{}
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value.Emit()
	}
	return out
}

func TestAttachTraceContextTagsSpan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	r := gin.New()
	r.Use(otelgin.Middleware("kpi-visual", otelgin.WithTracerProvider(tp)))
	r.Use(AttachTraceContext())
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/api/ra/options", ok)
	r.GET("/api/upload/:task_id/status", ok)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/ra/options", nil)
	req.Header.Set("X-Trace-Id", "ignored-when-traced")
	r.ServeHTTP(rec, req)
	rec2 := httptest.NewRecorder()
	r.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/api/upload/task-9/status", nil))

	spans := sr.Ended()
	require.Len(t, spans, 2)

	options := spanAttrs(spans[0])
	assert.Equal(t, "RA", options["kpi.family"])
	assert.NotContains(t, options, attribute.Key("task_id"))
	assert.NotEmpty(t, options["request.id"])
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), rec.Header().Get("X-Trace-Id"))

	status := spanAttrs(spans[1])
	assert.Equal(t, "task-9", status["task_id"])
	assert.NotContains(t, status, attribute.Key("kpi.family"))
	assert.Equal(t, rec2.Header().Get("X-Request-Id"), status["request.id"])
}
