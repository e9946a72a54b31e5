package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sjperalta/lotes-api/internal/metrics"
	"github.com/stretchr/testify/assert"
)

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/who", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "request_id": GetRequestID(c)})
	})
	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestActingUser(t *testing.T) {
	r := newRouter(ActingUser())

	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set(UserIDHeader, "12")
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":12`)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/who", nil))
	assert.Contains(t, w.Body.String(), `"user_id":0`)

	req = httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set(UserIDHeader, "-1")
	w = serve(r, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestLogger_PropagatesRequestID(t *testing.T) {
	r := newRouter(RequestLogger())

	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := serve(r, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Contains(t, w.Body.String(), `"request_id":"abc-123"`)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/who", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestCORS(t *testing.T) {
	r := newRouter(CORS([]string{"https://app.example.com/"}))

	req := httptest.NewRequest(http.MethodOptions, "/who", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := serve(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), UserIDHeader)

	req = httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetrics_RecordsMatchedRoute(t *testing.T) {
	m := metrics.New()
	r := newRouter(Metrics(m))

	serve(r, httptest.NewRequest(http.MethodGet, "/who", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/who", http.MethodGet, "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("unmatched", http.MethodGet, "404")))
}
