package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newRouter(origins []string, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(logger), Recovery(logger), CORS(origins))
	r.GET("/ok", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func serve(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    string
	}{
		{"wildcard", []string{"*"}, "http://a.example", "*"},
		{"no origins configured", nil, "http://a.example", "*"},
		{"listed origin", []string{"http://a.example"}, "http://a.example", "http://a.example"},
		{"unlisted origin", []string{"http://a.example"}, "http://b.example", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(tt.origins, zap.NewNop())
			w := serve(r, http.MethodGet, "/ok", map[string]string{"Origin": tt.origin})
			require.Equal(t, http.StatusOK, w.Code)
			require.Equal(t, tt.want, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	r := newRouter([]string{"*"}, zap.NewNop())
	w := serve(r, http.MethodOptions, "/ok", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newRouter(nil, zap.New(core))

	w := serve(r, http.MethodGet, "/ok", map[string]string{RequestIDHeader: "req-1"})
	require.Equal(t, "req-1", w.Header().Get(RequestIDHeader))

	w = serve(r, http.MethodGet, "/ok", nil)
	require.Len(t, w.Header().Get(RequestIDHeader), 36)

	entries := logs.FilterMessage("Request handled").All()
	require.Len(t, entries, 2)
	require.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
	require.Equal(t, "/ok", entries[0].ContextMap()["path"])
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newRouter(nil, zap.New(core))

	w := serve(r, http.MethodGet, "/panic", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
	require.Equal(t, 1, logs.FilterMessage("Recovered from panic").Len())
	require.Equal(t, 1, logs.FilterMessage("Request failed").Len())
}
