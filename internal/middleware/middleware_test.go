package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/user/cinematch/internal/metrics"
)

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})
	return r
}

func serve(r http.Handler, method, target string, header http.Header) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRequestIDGenerated(t *testing.T) {
	w := serve(newEngine(RequestID()), http.MethodGet, "/ping", nil)

	id := w.Header().Get(RequestIDHeader)
	assert.Len(t, id, 36)
	assert.Equal(t, id, w.Body.String())
}

func TestRequestIDPropagated(t *testing.T) {
	// 非规范写法的键同样能被识别
	w := serve(newEngine(RequestID()), http.MethodGet, "/ping", http.Header{RequestIDHeader: {"abc"}})

	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "abc", w.Body.String())
}

func TestSecurityHeaders(t *testing.T) {
	w := serve(newEngine(Security()), http.MethodGet, "/ping", nil)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestCORSPreflight(t *testing.T) {
	w := serve(newEngine(CORS()), http.MethodOptions, "/ping", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsCountsByRoute(t *testing.T) {
	r := newEngine(Metrics())
	matched := metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/ping", "200")
	unmatched := metrics.HTTPRequests.WithLabelValues(http.MethodGet, "unmatched", "404")
	beforeMatched := testutil.ToFloat64(matched)
	beforeUnmatched := testutil.ToFloat64(unmatched)

	serve(r, http.MethodGet, "/ping", nil)
	serve(r, http.MethodGet, "/missing", nil)

	assert.Equal(t, beforeMatched+1, testutil.ToFloat64(matched))
	assert.Equal(t, beforeUnmatched+1, testutil.ToFloat64(unmatched))
}

func TestLoggerPassesThrough(t *testing.T) {
	w := serve(newEngine(RequestID(), Logger()), http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
