package logger

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(buf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	l := slog.New(slog.NewJSONHandler(buf, nil))
	r := gin.New()
	r.Use(Middleware(l))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/v1/calls", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRouter(&buf)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/calls", nil))

	rid := w.Header().Get("X-Request-Id")
	if rid == "" {
		t.Fatal("no request id assigned")
	}
	if !strings.Contains(buf.String(), rid) {
		t.Errorf("summary line does not carry request_id %q: %s", rid, buf.String())
	}
}

func TestMiddlewarePreservesCallerRequestID(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRouter(&buf)

	req := httptest.NewRequest(http.MethodGet, "/v1/calls", nil)
	req.Header.Set("X-Request-Id", "rid-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-Id"); got != "rid-42" {
		t.Errorf("request id = %q, want caller-provided rid-42", got)
	}
}

func TestMiddlewareSkipsHealthProbes(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRouter(&buf)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if buf.Len() != 0 {
		t.Errorf("health probe was logged: %s", buf.String())
	}
}
