package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chatarchive/pkg/common"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordedHTTP struct {
	method, route string
	status        int
}

type fakeMetrics struct {
	calls []recordedHTTP
}

func (f *fakeMetrics) ObserveHTTP(method, route string, status int, _ time.Duration) {
	f.calls = append(f.calls, recordedHTTP{method, route, status})
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel zapcore.Level
	}{
		{"success logs at info", http.StatusOK, zapcore.InfoLevel},
		{"client error logs at info", http.StatusNotFound, zapcore.InfoLevel},
		{"server error logs at warn", http.StatusServiceUnavailable, zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			handler := Logger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/graph-data", nil))

			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			assert.Equal(t, tt.wantLevel, entry.Level)
			assert.Equal(t, int64(tt.status), entry.ContextMap()["status"])
			assert.Equal(t, "/api/v1/graph-data", entry.ContextMap()["path"])
		})
	}
}

func TestRequestContext(t *testing.T) {
	var seen string
	handler := chimiddleware.RequestID(RequestContext(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = common.GetRequestID(r.Context())
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(chimiddleware.RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", rec.Header().Get(chimiddleware.RequestIDHeader))
}

func TestMetrics_UnmatchedRoute(t *testing.T) {
	m := &fakeMetrics{}
	handler := Metrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	require.Len(t, m.calls, 1)
	assert.Equal(t, recordedHTTP{http.MethodGet, "unmatched", http.StatusOK}, m.calls[0])
}
